package schema

import "context"

// Implementation is what a declaration produces: at minimum the field list.
// self is a relation to the type being declared, so a type can refer to
// itself.
type Implementation interface {
	Schema(self *FieldType, t Types) *Fields
}

// Decomposer overrides ModelType.Decompose for one type.
type Decomposer interface {
	Decompose(m *ModelType, v any, opts DecomposeOptions) ([]Row, error)
}

// Validator overrides ModelType.Validate for one type.
type Validator interface {
	Validate(ctx context.Context, m *ModelType, v any, opts ValidateOptions) error
}

// Constructor overrides ModelType.Instantiate for one type.
type Constructor interface {
	New(m *ModelType, args ...any) (Entity, error)
}

// Declaration builds a type's implementation from its parent's. Types
// without a parent receive Base.
type Declaration func(parent Implementation) (Implementation, error)

// SchemaFunc adapts a function to Implementation.
type SchemaFunc func(self *FieldType, t Types) *Fields

// Schema calls fn.
func (fn SchemaFunc) Schema(self *FieldType, t Types) *Fields { return fn(self, t) }

// Declare returns a declaration whose implementation is fn, ignoring the
// parent. Inherited fields are merged by the engine regardless.
func Declare(fn SchemaFunc) Declaration {
	return func(Implementation) (Implementation, error) { return fn, nil }
}

// Base is the implementation parentless types extend. It declares no fields.
type Base struct{}

// Schema returns an empty field list.
func (Base) Schema(*FieldType, Types) *Fields { return NewFields() }

// primitive is the implementation of the built-in scalar model types: the
// owner linkage fields plus a value field of the kind.
type primitive struct {
	kind Kind
}

func (p primitive) Schema(_ *FieldType, t Types) *Fields {
	return NewFields().
		Add(OwnerTypeField, t.String()).
		Add(OwnerIDField, t.String()).
		Add(OwnerFieldField, t.String()).
		Add(ValueField, t.Scalar(p.kind))
}

// Validate accepts every value; scalar checks happen on the owning field.
func (primitive) Validate(context.Context, *ModelType, any, ValidateOptions) error {
	return nil
}

func primitiveDeclaration(k Kind) Declaration {
	return func(Implementation) (Implementation, error) { return primitive{kind: k}, nil }
}

// ownerFields lists the linkage fields in injection order.
func ownerFields(t Types) []*FieldType {
	return []*FieldType{t.String(), t.String(), t.String()}
}

var ownerFieldNames = []string{OwnerIDField, OwnerTypeField, OwnerFieldField}
