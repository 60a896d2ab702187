package schema

import (
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Fields is the ordered field list a declaration returns from Schema.
// Adding a name twice replaces the earlier entry in place.
type Fields struct {
	names  []string
	byName map[string]*FieldType
	err    error
}

// NewFields returns an empty field list.
func NewFields() *Fields {
	return &Fields{byName: make(map[string]*FieldType)}
}

// Add appends (or replaces) a named field and returns the list.
func (fs *Fields) Add(name string, ft *FieldType) *Fields {
	if fs.err != nil {
		return fs
	}
	switch {
	case name == "":
		fs.err = fmt.Errorf("%w: field name is empty", types.ErrInvalidDeclaration)
		return fs
	case ft == nil:
		fs.err = fmt.Errorf("%w: field %q has no type", types.ErrInvalidDeclaration, name)
		return fs
	case ft.err != nil:
		fs.err = fmt.Errorf("field %q: %w", name, ft.err)
		return fs
	}
	if _, ok := fs.byName[name]; !ok {
		fs.names = append(fs.names, name)
	}
	fs.byName[name] = ft
	return fs
}

// Names returns the field names in declaration order.
func (fs *Fields) Names() []string { return append([]string(nil), fs.names...) }

// Get returns the named field type.
func (fs *Fields) Get(name string) (*FieldType, bool) {
	ft, ok := fs.byName[name]
	return ft, ok
}

// Len returns the number of fields.
func (fs *Fields) Len() int { return len(fs.names) }

// Err returns the first error recorded by Add.
func (fs *Fields) Err() error { return fs.err }
