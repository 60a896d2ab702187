package schema

import (
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Types is the factory declarations use to build field types. Relation
// targets are recorded by name and resolved when the engine starts.
type Types struct{}

// Integer returns a new Integer field type.
func (Types) Integer() *FieldType { return newFieldType(Descriptor{Kind: KindInteger}) }

// Decimal returns a new Decimal field type.
func (Types) Decimal() *FieldType { return newFieldType(Descriptor{Kind: KindDecimal}) }

// String returns a new String field type.
func (Types) String() *FieldType { return newFieldType(Descriptor{Kind: KindString}) }

// Boolean returns a new Boolean field type.
func (Types) Boolean() *FieldType { return newFieldType(Descriptor{Kind: KindBoolean}) }

// Date returns a new Date field type.
func (Types) Date() *FieldType { return newFieldType(Descriptor{Kind: KindDate}) }

// Time returns a new Time field type.
func (Types) Time() *FieldType { return newFieldType(Descriptor{Kind: KindTime}) }

// DateTime returns a new DateTime field type.
func (Types) DateTime() *FieldType { return newFieldType(Descriptor{Kind: KindDateTime}) }

// Scalar returns a new field type of scalar kind k.
func (Types) Scalar(k Kind) *FieldType {
	f := newFieldType(Descriptor{Kind: k})
	if !k.Scalar() {
		f.err = fmt.Errorf("%w: %s is not a scalar kind", types.ErrUnknownSchemaType, k)
	}
	return f
}

// Model returns a single-valued relation to the named model type.
func (t Types) Model(name string) *FieldType {
	return t.relation(false, name)
}

// OneOf returns a single-valued relation whose value may be any of the named
// types.
func (t Types) OneOf(names ...string) *FieldType {
	return t.relation(false, names...)
}

// ArrayOf returns a many-valued relation to the named types.
func (t Types) ArrayOf(names ...string) *FieldType {
	return t.relation(true, names...)
}

func (Types) relation(many bool, names ...string) *FieldType {
	targets := make([]string, 0, len(names))
	for _, n := range names {
		if n = NormalizeTypeName(n); n != "" {
			targets = append(targets, n)
		}
	}
	f := newFieldType(Descriptor{Kind: KindRelation, Targets: targets, Many: many})
	if len(targets) == 0 {
		f.err = fmt.Errorf("%w: relation needs at least one target", types.ErrUnknownSchemaType)
	}
	return f
}

// Named returns a field type for a type name: a scalar kind name gives a
// scalar field, any other name a single relation.
func (t Types) Named(name string) *FieldType {
	if k, ok := ParseKind(NormalizeTypeName(name)); ok {
		return t.Scalar(k)
	}
	return t.Model(name)
}
