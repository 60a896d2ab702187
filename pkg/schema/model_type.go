package schema

import (
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Owner linkage field names. Every model type that is the target of a
// relation carries these String fields; a child row stores its parent's
// primary key, type name and relation field name in them.
const (
	OwnerIDField    = "ownerID"
	OwnerTypeField  = "ownerType"
	OwnerFieldField = "ownerField"
)

// ValueField is the field a primitive model type stores its value in.
const ValueField = "value"

// IsOwnerField reports whether name is one of the owner linkage fields.
func IsOwnerField(name string) bool {
	return name == OwnerIDField || name == OwnerTypeField || name == OwnerFieldField
}

// Match is a tri-state filter term: Any accepts every field, Only accepts
// fields with the property, Exclude accepts fields without it.
type Match uint8

// Match values.
const (
	Any Match = iota
	Only
	Exclude
)

func (m Match) accepts(has bool) bool {
	switch m {
	case Only:
		return has
	case Exclude:
		return !has
	}
	return true
}

// FieldFilter selects fields during iteration. Virtual is evaluated under
// Context.
type FieldFilter struct {
	Context   types.Context
	Virtual   Match
	Primitive Match
}

// Columns returns the filter that selects storable columns under ctx:
// non-virtual fields holding scalar values.
func Columns(ctx types.Context) FieldFilter {
	return FieldFilter{Context: ctx, Virtual: Exclude, Primitive: Only}
}

// ModelType is the built, ordered field set of one registered type. It owns
// its field types. After Lock nothing can be added and every field is
// read-only.
type ModelType struct {
	name      string
	engine    *Engine
	parent    *ModelType
	primitive Kind
	impl      Implementation
	fields    []*FieldType
	index     map[string]int
	locked    bool
}

func newModelType(e *Engine, name string) *ModelType {
	return &ModelType{name: name, engine: e, index: make(map[string]int)}
}

// Name returns the registered type name.
func (m *ModelType) Name() string { return m.name }

// Engine returns the registry the type belongs to.
func (m *ModelType) Engine() *Engine { return m.engine }

// Parent returns the type this one inherits from, or nil.
func (m *ModelType) Parent() *ModelType { return m.parent }

// Implementation returns the declaration's behaviour.
func (m *ModelType) Implementation() Implementation { return m.impl }

// IsPrimitive reports whether m is one of the built-in scalar model types.
func (m *ModelType) IsPrimitive() bool { return m.primitive != KindInvalid }

// PrimitiveKind returns the scalar kind of a primitive model type.
func (m *ModelType) PrimitiveKind() Kind { return m.primitive }

// Locked reports whether the type is read-only.
func (m *ModelType) Locked() bool { return m.locked }

// Lock makes the type and all its field types read-only.
func (m *ModelType) Lock() {
	if m.locked {
		return
	}
	m.locked = true
	for _, f := range m.fields {
		f.lock()
	}
}

// AddField appends a named field, or replaces an existing field of the same
// name in place.
func (m *ModelType) AddField(name string, ft *FieldType) error {
	if m.locked {
		return fmt.Errorf("%w: %s", types.ErrModelTypeLocked, m.name)
	}
	if name == "" || ft == nil {
		return fmt.Errorf("%w: %s: field needs a name and a type", types.ErrInvalidDeclaration, m.name)
	}
	if ft.err != nil {
		return fmt.Errorf("%s.%s: %w", m.name, name, ft.err)
	}
	ft.name = name
	if i, ok := m.index[name]; ok {
		m.fields[i] = ft
		return nil
	}
	m.index[name] = len(m.fields)
	m.fields = append(m.fields, ft)
	return nil
}

// HasField reports whether the type declares the named field.
func (m *ModelType) HasField(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Field returns the named field type.
func (m *ModelType) Field(name string) (*FieldType, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.fields[i], true
}

// FieldNames returns the field names in declaration order.
func (m *ModelType) FieldNames() []string {
	out := make([]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.name
	}
	return out
}

// Fields returns the field types in declaration order.
func (m *ModelType) Fields() []*FieldType {
	return append([]*FieldType(nil), m.fields...)
}

// IterateFields calls fn for every field accepted by filter, in declaration
// order, until fn returns false.
func (m *ModelType) IterateFields(filter FieldFilter, fn func(f *FieldType) bool) {
	for _, f := range m.fields {
		if !filter.Virtual.accepts(f.IsVirtual(filter.Context)) {
			continue
		}
		if !filter.Primitive.accepts(f.IsPrimitive()) {
			continue
		}
		if !fn(f) {
			return
		}
	}
}

// Select returns the fields accepted by filter.
func (m *ModelType) Select(filter FieldFilter) []*FieldType {
	var out []*FieldType
	m.IterateFields(filter, func(f *FieldType) bool {
		out = append(out, f)
		return true
	})
	return out
}

// PrimaryKey returns the first field marked primary key under ctx.
func (m *ModelType) PrimaryKey(ctx types.Context) (*FieldType, bool) {
	for _, f := range m.fields {
		if f.Flag(PropPrimaryKey, ctx) {
			return f, true
		}
	}
	return nil, false
}

// ColumnField returns the field stored in the named column under ctx.
func (m *ModelType) ColumnField(ctx types.Context, column string) (*FieldType, bool) {
	for _, f := range m.fields {
		if f.ColumnName(ctx) == column {
			return f, true
		}
	}
	return nil, false
}

func (m *ModelType) String() string { return m.name }
