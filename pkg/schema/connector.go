package schema

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Query selects stored rows of one model type. Where maps field names (or
// column names) to the values they must equal.
type Query struct {
	Model  string
	Where  map[string]any
	Limit  int
	Offset int
}

// Connector is the storage contract the engine saves through and loads
// from. Context names the column-naming context rows are produced under.
type Connector interface {
	Context() types.Context
	Query(ctx context.Context, e *Engine, q Query) ([]Row, error)
	Write(ctx context.Context, e *Engine, row Row) error
}

// BatchWriter is implemented by connectors that can write the rows of one
// save atomically.
type BatchWriter interface {
	WriteRows(ctx context.Context, e *Engine, rows []Row) error
}

// Save introspects v, decomposes it under the connector's context and writes
// every row, root first. Connectors implementing BatchWriter receive all
// rows at once.
func (e *Engine) Save(ctx context.Context, c Connector, v any, opts IntrospectOptions) error {
	if !e.started {
		return types.ErrEngineNotStarted
	}
	if v == nil {
		return nil
	}
	mt, err := e.Introspect(v, opts)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	rows, err := mt.Decompose(v, DecomposeOptions{Context: c.Context()})
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	e.opts.logger.Debugw("saving", "type", mt.name, "rows", len(rows))

	if bw, ok := c.(BatchWriter); ok {
		return bw.WriteRows(ctx, e, rows)
	}
	for _, row := range rows {
		if err := c.Write(ctx, e, row); err != nil {
			return fmt.Errorf("save %s: %w", row.Model.name, err)
		}
	}
	return nil
}

// Load queries the connector for rows of q.Model and recomposes each into
// an instance, reading relation fields back through owner linkage.
func (e *Engine) Load(ctx context.Context, c Connector, q Query) ([]Entity, error) {
	if !e.started {
		return nil, types.ErrEngineNotStarted
	}
	mt, ok := e.ModelType(q.Model)
	if !ok {
		return nil, fmt.Errorf("load: %w: %s", types.ErrUnknownModelType, q.Model)
	}
	rows, err := c.Query(ctx, e, q)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", mt.name, err)
	}
	out := make([]Entity, 0, len(rows))
	for _, row := range rows {
		ent, err := mt.Recompose(ctx, c, row)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, nil
}

// Recompose turns a stored row back into an instance of m, loading related
// rows whose owner linkage points at it.
func (m *ModelType) Recompose(ctx context.Context, c Connector, row Row) (Entity, error) {
	return m.recompose(ctx, c, row, 0)
}

func (m *ModelType) recompose(ctx context.Context, c Connector, row Row, depth int) (Entity, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("recompose %s: %w", m.name, types.ErrGraphTooDeep)
	}
	cctx := c.Context()
	values := make(map[string]any, len(m.fields))
	var id any
	for _, f := range m.fields {
		if f.IsRelation() || f.IsVirtual(cctx) {
			continue
		}
		raw, ok := row.Values[f.ColumnName(cctx)]
		if !ok {
			continue
		}
		v, err := f.Kind().Coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("recompose %s.%s: %w", m.name, f.name, err)
		}
		values[f.name] = v
		if f.Flag(PropPrimaryKey, cctx) && id == nil {
			id = v
		}
	}

	if id != nil && !m.IsPrimitive() {
		for _, f := range m.fields {
			if !f.IsRelation() || f.IsVirtual(cctx) {
				continue
			}
			related, err := m.loadRelation(ctx, c, f, id, depth)
			if err != nil {
				return nil, err
			}
			switch {
			case f.Many():
				values[f.name] = related
			case len(related) > 0:
				values[f.name] = related[0]
			}
		}
	}

	if m.IsPrimitive() {
		return m.Instantiate(values[ValueField])
	}
	return m.Instantiate(values)
}

func (m *ModelType) loadRelation(ctx context.Context, c Connector, f *FieldType, id any, depth int) ([]any, error) {
	related := []any{}
	for _, target := range f.desc.Targets {
		tm, ok := m.engine.ModelType(target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownModelType, target)
		}
		rows, err := c.Query(ctx, m.engine, Query{
			Model: tm.name,
			Where: map[string]any{
				OwnerTypeField:  m.name,
				OwnerIDField:    fmt.Sprint(id),
				OwnerFieldField: f.name,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("load %s.%s: %w", m.name, f.name, err)
		}
		for _, row := range rows {
			if tm.IsPrimitive() {
				vf, _ := tm.Field(ValueField)
				v, err := vf.Kind().Coerce(row.Values[vf.ColumnName(c.Context())])
				if err != nil {
					return nil, fmt.Errorf("load %s.%s: %w", m.name, f.name, err)
				}
				related = append(related, v)
				continue
			}
			child, err := tm.recompose(ctx, c, row, depth+1)
			if err != nil {
				return nil, err
			}
			related = append(related, child)
		}
	}
	return related, nil
}
