package schema

import (
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Row is one normalized storage row: the model type it belongs to and its
// column values keyed by the column name of the decomposition context.
type Row struct {
	Model  *ModelType
	Values map[string]any
}

// OwnerLink identifies the parent a child row belongs to.
type OwnerLink struct {
	Type  string
	ID    any
	Field string
}

// DecomposeOptions configures Decompose. Context selects column names,
// getters and virtual flags. Owner is set when decomposing a child.
type DecomposeOptions struct {
	Context types.Context
	Owner   *OwnerLink

	depth int
}

// Decompose turns v into rows: v's own row first, followed by the rows of
// every related value in field order, depth first. Child rows carry owner
// linkage to their parent. Virtual fields are skipped, getters run before
// storage, and a value graph that contains a cycle is rejected before any
// row is produced.
func (m *ModelType) Decompose(v any, opts DecomposeOptions) ([]Row, error) {
	if err := CheckCycles(v); err != nil {
		return nil, fmt.Errorf("decompose %s: %w", m.name, err)
	}
	return m.decompose(v, opts)
}

func (m *ModelType) decompose(v any, opts DecomposeOptions) ([]Row, error) {
	if opts.depth > MaxDepth {
		return nil, fmt.Errorf("decompose %s: %w", m.name, types.ErrGraphTooDeep)
	}
	if d, ok := m.impl.(Decomposer); ok {
		return d.Decompose(m, v, opts)
	}
	ctx := opts.Context
	row := Row{Model: m, Values: make(map[string]any, len(m.fields))}

	var relations []*FieldType
	var id any
	for _, f := range m.fields {
		if f.IsVirtual(ctx) {
			continue
		}
		if f.IsRelation() {
			relations = append(relations, f)
			continue
		}
		col := f.ColumnName(ctx)
		if IsOwnerField(f.name) && opts.Owner != nil {
			row.Values[col] = opts.Owner.value(f.name)
			continue
		}
		val, err := m.storageValue(f, v, ctx)
		if err != nil {
			return nil, err
		}
		row.Values[col] = val
		if f.Flag(PropPrimaryKey, ctx) && id == nil {
			id = val
		}
	}

	rows := []Row{row}
	for _, f := range relations {
		raw, _ := m.valueOf(v, f.name)
		val, err := f.GetterFunc(ctx)(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.name, f.name, err)
		}
		elems, err := relationElements(f, val)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.name, f.name, err)
		}
		child := opts
		child.depth++
		child.Owner = &OwnerLink{Type: m.name, ID: id, Field: f.name}
		for _, elem := range elems {
			target, err := m.engine.relationTarget(f, elem)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", m.name, f.name, err)
			}
			childRows, err := target.decompose(elem, child)
			if err != nil {
				return nil, err
			}
			rows = append(rows, childRows...)
		}
	}
	return rows, nil
}

func (o *OwnerLink) value(field string) any {
	switch field {
	case OwnerTypeField:
		return o.Type
	case OwnerFieldField:
		return o.Field
	}
	if o.ID == nil {
		return nil
	}
	return fmt.Sprint(o.ID)
}

// storageValue reads field f from v, applies its getter and coerces the
// result to the field's kind.
func (m *ModelType) storageValue(f *FieldType, v any, ctx types.Context) (any, error) {
	raw, _ := m.valueOf(v, f.name)
	val, err := f.GetterFunc(ctx)(raw)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", m.name, f.name, err)
	}
	out, err := f.Kind().Coerce(val)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", m.name, f.name, err)
	}
	return out, nil
}

// valueOf reads a field from an instance. Primitive model types hold the
// whole value in ValueField.
func (m *ModelType) valueOf(v any, field string) (any, bool) {
	if m.IsPrimitive() && field == ValueField {
		if ent, ok := v.(Entity); ok {
			return ent.Get(ValueField)
		}
		return v, v != nil
	}
	switch x := v.(type) {
	case nil:
		return nil, false
	case Entity:
		return x.Get(field)
	case map[string]any:
		val, ok := x[field]
		return val, ok
	}
	return nil, false
}

// relationElements lists the values a relation field holds: the elements
// of a many-valued field, or the single value of a one-valued field.
func relationElements(f *FieldType, v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if !f.Many() {
		return []any{v}, nil
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %s needs a list, got %T", types.ErrInvalidValue, f.TypeName(), v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// relationTarget picks the model type of one related value. A single-target
// relation uses its target; a union introspects the value among its targets.
func (e *Engine) relationTarget(f *FieldType, v any) (*ModelType, error) {
	if len(f.desc.Targets) == 1 {
		mt, ok := e.ModelType(f.desc.Targets[0])
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownModelType, f.desc.Targets[0])
		}
		return mt, nil
	}
	return e.Introspect(v, IntrospectOptions{Candidates: f.desc.Targets})
}
