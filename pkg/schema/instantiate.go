package schema

import (
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Instantiate builds a new instance of m from args. Each argument is a
// map of field values or an Entity to copy from; a primitive type also
// accepts the bare value. Later arguments win. Setters run on every given
// value, omitted fields take their default, and an omitted String primary
// key marked AutoIncrement receives NewID. Cyclic arguments are rejected.
func (m *ModelType) Instantiate(args ...any) (Entity, error) {
	if err := CheckCycles(args); err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", m.name, err)
	}
	if c, ok := m.impl.(Constructor); ok {
		return c.New(m, args...)
	}

	given := make(map[string]any)
	for _, arg := range args {
		switch x := arg.(type) {
		case nil:
		case map[string]any:
			for k, v := range x {
				given[k] = v
			}
		case Entity:
			x.Range(func(k string, v any) bool {
				given[k] = v
				return true
			})
		default:
			if !m.IsPrimitive() {
				return nil, fmt.Errorf("%w: %s cannot be built from %T", types.ErrInvalidValue, m.name, arg)
			}
			given[ValueField] = x
		}
	}

	ctx := types.ContextDefault
	values := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		v, ok := given[f.name]
		if !ok {
			switch {
			case f.DefaultValue(ctx) != nil:
				values[f.name] = f.DefaultValue(ctx)
			case f.Kind() == KindString && f.Flag(PropPrimaryKey, ctx) && f.Flag(PropAutoIncrement, ctx):
				values[f.name] = NewID()
			}
			continue
		}
		set, err := f.SetterFunc(ctx)(v)
		if err != nil {
			return nil, fmt.Errorf("instantiate %s.%s: %w", m.name, f.name, err)
		}
		values[f.name] = set
	}
	return &Record{handle: NextHandle(), typeName: m.name, model: m, values: values}, nil
}
