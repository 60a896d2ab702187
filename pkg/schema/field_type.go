package schema

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Descriptor is the type tag of a field: a scalar kind, or a relation to one
// or more target model types, optionally many-valued.
type Descriptor struct {
	Kind    Kind
	Targets []string
	Many    bool
}

// IsRelation reports whether the descriptor refers to other model types.
func (d Descriptor) IsRelation() bool {
	return d.Kind == KindRelation
}

// TypeName renders the descriptor: "String", "User", "OneOf(A|B)" or
// "ArrayOf(A)".
func (d Descriptor) TypeName() string {
	if !d.IsRelation() {
		return d.Kind.String()
	}
	joined := strings.Join(d.Targets, "|")
	switch {
	case d.Many:
		return "ArrayOf(" + joined + ")"
	case len(d.Targets) == 1:
		return joined
	default:
		return "OneOf(" + joined + ")"
	}
}

// Equal reports whether two descriptors describe the same type.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Kind != o.Kind || d.Many != o.Many || len(d.Targets) != len(o.Targets) {
		return false
	}
	for i := range d.Targets {
		if d.Targets[i] != o.Targets[i] {
			return false
		}
	}
	return true
}

// FieldType describes one field of a model type. Properties are stored per
// context; a read under a context falls back to the default context when the
// property was never set there. Once the owning model type is locked every
// write fails with ErrReadOnlyProperty.
//
// The fluent builders (NotNull, PrimaryKey, Validate, ...) write under the
// active context, which Context switches. They record the first error and
// return the receiver; Err reports it.
type FieldType struct {
	name   string
	desc   Descriptor
	props  [types.NumContexts]propSet
	active types.Context
	locked bool
	err    error
}

func newFieldType(desc Descriptor) *FieldType {
	f := &FieldType{desc: desc}
	f.props[types.ContextDefault] = defaultProps()
	return f
}

// Name returns the declared field name. Empty until the field is added to a
// model type.
func (f *FieldType) Name() string { return f.name }

// Descriptor returns the field's type tag.
func (f *FieldType) Descriptor() Descriptor { return f.desc }

// TypeName renders the field's descriptor.
func (f *FieldType) TypeName() string { return f.desc.TypeName() }

// Kind returns the descriptor kind.
func (f *FieldType) Kind() Kind { return f.desc.Kind }

// IsPrimitive reports whether the field holds a scalar value.
func (f *FieldType) IsPrimitive() bool { return f.desc.Kind.Scalar() }

// IsRelation reports whether the field refers to other model types.
func (f *FieldType) IsRelation() bool { return f.desc.IsRelation() }

// Targets returns the relation target type names.
func (f *FieldType) Targets() []string {
	return append([]string(nil), f.desc.Targets...)
}

// Many reports whether the relation holds a list.
func (f *FieldType) Many() bool { return f.desc.Many }

// Locked reports whether the field is read-only.
func (f *FieldType) Locked() bool { return f.locked }

// ActiveContext returns the context the fluent builders write under.
func (f *FieldType) ActiveContext() types.Context { return f.active }

// Err returns the first error recorded by a fluent builder.
func (f *FieldType) Err() error { return f.err }

// Prop reads property p under ctx, falling back to the default context.
func (f *FieldType) Prop(p Prop, ctx types.Context) any {
	if ctx.Valid() && f.props[ctx].has(p) {
		return f.props[ctx].get(p)
	}
	return f.props[types.ContextDefault].get(p)
}

// IsSet reports whether p was given explicitly under ctx.
func (f *FieldType) IsSet(p Prop, ctx types.Context) bool {
	return ctx.Valid() && f.props[ctx].has(p)
}

// SetProp writes property p under ctx. Other contexts are unaffected.
func (f *FieldType) SetProp(p Prop, v any, ctx types.Context) error {
	if f.locked {
		return fmt.Errorf("%w: %s.%s", types.ErrReadOnlyProperty, f.name, p)
	}
	if !ctx.Valid() {
		return fmt.Errorf("%w: %s", types.ErrUnknownContext, ctx)
	}
	return f.props[ctx].put(p, v)
}

// Flag reads a boolean property under ctx.
func (f *FieldType) Flag(p Prop, ctx types.Context) bool {
	b, _ := f.Prop(p, ctx).(bool)
	return b
}

// IsVirtual reports whether the field is excluded from storage under ctx.
func (f *FieldType) IsVirtual(ctx types.Context) bool {
	return f.Flag(PropVirtual, ctx)
}

// ColumnName returns the storage column name under ctx, defaulting to the
// declared field name.
func (f *FieldType) ColumnName(ctx types.Context) string {
	if s, _ := f.Prop(PropField, ctx).(string); s != "" {
		return s
	}
	return f.name
}

// StorageTypeName returns the explicit storage type under ctx, or "".
func (f *FieldType) StorageTypeName(ctx types.Context) string {
	s, _ := f.Prop(PropStorageType, ctx).(string)
	return s
}

// DefaultValue returns the default value under ctx.
func (f *FieldType) DefaultValue(ctx types.Context) any {
	return f.Prop(PropDefaultValue, ctx)
}

// GetterFunc returns the getter under ctx.
func (f *FieldType) GetterFunc(ctx types.Context) Transform {
	if fn, ok := f.Prop(PropGetter, ctx).(Transform); ok && fn != nil {
		return fn
	}
	return identity
}

// SetterFunc returns the setter under ctx.
func (f *FieldType) SetterFunc(ctx types.Context) Transform {
	if fn, ok := f.Prop(PropSetter, ctx).(Transform); ok && fn != nil {
		return fn
	}
	return identity
}

// Validators returns the validators configured under ctx.
func (f *FieldType) Validators(ctx types.Context) []ValidatorFunc {
	list, _ := f.Prop(PropValidators, ctx).([]ValidatorFunc)
	return list
}

func (f *FieldType) set(p Prop, v any) *FieldType {
	if err := f.SetProp(p, v, f.active); err != nil && f.err == nil {
		f.err = err
	}
	return f
}

// NotNull marks the field as not nullable.
func (f *FieldType) NotNull() *FieldType { return f.set(PropNotNull, true) }

// AllowNull sets whether the field accepts null.
func (f *FieldType) AllowNull(allow bool) *FieldType { return f.set(PropNotNull, !allow) }

// PrimaryKey marks the field as the model's primary key.
func (f *FieldType) PrimaryKey() *FieldType { return f.set(PropPrimaryKey, true) }

// ForeignKey marks the field as a foreign key.
func (f *FieldType) ForeignKey() *FieldType { return f.set(PropForeignKey, true) }

// AutoIncrement marks the field as generated by storage. String primary
// keys marked this way receive a fresh ID on Instantiate.
func (f *FieldType) AutoIncrement() *FieldType { return f.set(PropAutoIncrement, true) }

// Virtual excludes the field from storage.
func (f *FieldType) Virtual() *FieldType { return f.set(PropVirtual, true) }

// Default sets the value used when an instance omits the field.
func (f *FieldType) Default(v any) *FieldType { return f.set(PropDefaultValue, v) }

// Column overrides the storage column name.
func (f *FieldType) Column(name string) *FieldType { return f.set(PropField, name) }

// StorageType overrides the storage column type.
func (f *FieldType) StorageType(name string) *FieldType { return f.set(PropStorageType, name) }

// Getter sets the transform applied when reading the field for storage.
func (f *FieldType) Getter(fn Transform) *FieldType { return f.set(PropGetter, fn) }

// Setter sets the transform applied when writing the field on Instantiate.
func (f *FieldType) Setter(fn Transform) *FieldType { return f.set(PropSetter, fn) }

// Required marks the field required and adds the Required validator.
func (f *FieldType) Required() *FieldType {
	return f.set(PropRequired, true).Validate(Required)
}

// Validate appends fn to the validators of the active context. A context
// that has no validators of its own starts from an empty list.
func (f *FieldType) Validate(fn ValidatorFunc) *FieldType {
	if fn == nil {
		if f.err == nil {
			f.err = fmt.Errorf("%w: nil validator", types.ErrInvalidPropertyValue)
		}
		return f
	}
	var list []ValidatorFunc
	if f.props[f.active].has(PropValidators) {
		list = append(list, f.props[f.active].validators...)
	}
	return f.set(PropValidators, append(list, fn))
}

// Context runs fn with ctx active, so builder calls inside fn write under
// ctx. The context stays active after fn returns.
func (f *FieldType) Context(ctx types.Context, fn func(*FieldType)) *FieldType {
	if !ctx.Valid() {
		if f.err == nil {
			f.err = fmt.Errorf("%w: %s", types.ErrUnknownContext, ctx)
		}
		return f
	}
	f.active = ctx
	if fn != nil {
		fn(f)
	}
	return f
}

// Equivalent reports whether two field types have the same descriptor and
// the same storage-relevant properties under every context.
func (f *FieldType) Equivalent(o *FieldType) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !f.desc.Equal(o.desc) {
		return false
	}
	for _, ctx := range types.Contexts() {
		if f.ColumnName(ctx) != o.ColumnName(ctx) || f.StorageTypeName(ctx) != o.StorageTypeName(ctx) {
			return false
		}
		for _, p := range []Prop{PropNotNull, PropPrimaryKey, PropForeignKey, PropAutoIncrement, PropVirtual, PropRequired} {
			if f.Flag(p, ctx) != o.Flag(p, ctx) {
				return false
			}
		}
	}
	return true
}

func (f *FieldType) clone() *FieldType {
	c := &FieldType{name: f.name, desc: f.desc, err: f.err}
	c.desc.Targets = append([]string(nil), f.desc.Targets...)
	for i := range f.props {
		c.props[i] = f.props[i].clone()
	}
	return c
}

func (f *FieldType) lock() { f.locked = true }
