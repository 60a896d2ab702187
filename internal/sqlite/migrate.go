package sqlite

import (
	"context"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// ChangeKind names what a planned change does to one table.
type ChangeKind string

// Change kinds.
const (
	ChangeCreate     ChangeKind = "create"
	ChangeAddColumn  ChangeKind = "add-column"
	ChangeDropColumn ChangeKind = "drop-column"
	ChangeRebuild    ChangeKind = "rebuild"
)

// Change is the work needed to bring one table in line with its model type.
type Change struct {
	Table      string
	Kind       ChangeKind
	Column     string
	Statements []Statement
}

// Plan is the ordered list of changes a migration applies.
type Plan struct {
	Changes []Change
}

// Empty reports whether the live schema already matches.
func (p *Plan) Empty() bool { return len(p.Changes) == 0 }

// Statements flattens the plan.
func (p *Plan) Statements() []Statement {
	var out []Statement
	for _, ch := range p.Changes {
		out = append(out, ch.Statements...)
	}
	return out
}

// Plan compares the live database with every model type that needs a table.
// A missing table is created. A single added or dropped column uses the
// add-column or drop-column rebuild; any other difference rebuilds the
// table. Tables without a model type are left alone.
func (c *Connector) Plan(ctx context.Context, e *schema.Engine) (*Plan, error) {
	live, err := c.RawDatabaseSchema(ctx)
	if err != nil {
		return nil, err
	}
	cctx := c.Context()
	plan := &Plan{}

	for _, mt := range e.StorableModelTypes() {
		table := TableName(mt)
		opts := RebuildOptions{Context: cctx}
		existing, ok := live[table]
		if !ok {
			create, err := CreateTableQuery(mt, table, opts)
			if err != nil {
				return nil, err
			}
			plan.Changes = append(plan.Changes, Change{Table: table, Kind: ChangeCreate, Statements: []Statement{Stmt(create)}})
			continue
		}

		fields := mt.Select(schema.Columns(cctx))
		want := make(map[string]bool, len(fields))
		var added []*schema.FieldType
		changed := 0
		for _, f := range fields {
			col := f.ColumnName(cctx)
			want[col] = true
			lc, ok := existing[col]
			switch {
			case !ok:
				added = append(added, f)
			case !columnMatches(f, cctx, lc):
				changed++
			}
		}
		var dropped []string
		for col := range existing {
			if !want[col] {
				dropped = append(dropped, col)
			}
		}
		sort.Strings(dropped)

		opts.Existing = make([]string, 0, len(existing))
		for col := range existing {
			opts.Existing = append(opts.Existing, col)
		}
		sort.Strings(opts.Existing)

		var ch Change
		switch {
		case len(added) == 0 && len(dropped) == 0 && changed == 0:
			continue
		case len(added) == 1 && len(dropped) == 0 && changed == 0:
			ch = Change{Table: table, Kind: ChangeAddColumn, Column: added[0].ColumnName(cctx)}
			ch.Statements, err = AddColumnQueries(mt, table, added[0], opts)
		case len(dropped) == 1 && len(added) == 0 && changed == 0:
			ch = Change{Table: table, Kind: ChangeDropColumn, Column: dropped[0]}
			ch.Statements, err = DropColumnQueries(mt, table, dropped[0], opts)
		default:
			ch = Change{Table: table, Kind: ChangeRebuild}
			ch.Statements, err = UpdateTableQueries(mt, table, opts)
		}
		if err != nil {
			return nil, err
		}
		plan.Changes = append(plan.Changes, ch)
	}
	return plan, nil
}

// columnMatches reports whether a live column agrees with field f on type,
// primary key and nullability.
func columnMatches(f *schema.FieldType, ctx types.Context, col types.Column) bool {
	base, _ := splitType(SQLType(f, ctx))
	if base != col.Type {
		return false
	}
	pk := f.Flag(schema.PropPrimaryKey, ctx)
	if pk != col.IsPrimary() {
		return false
	}
	// SQLite reports INTEGER PRIMARY KEY columns as nullable.
	if !pk && f.Flag(schema.PropNotNull, ctx) == col.Nullable {
		return false
	}
	return true
}

// Migrate plans and applies the changes needed for e, then records e's
// schema snapshot. A failed change is rolled back and stops the migration.
func (c *Connector) Migrate(ctx context.Context, e *schema.Engine) (*Plan, error) {
	plan, err := c.Plan(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := c.apply(ctx, plan); err != nil {
		return plan, err
	}
	if _, err := c.RecordSchema(ctx, e); err != nil {
		return plan, err
	}
	return plan, nil
}

// apply runs each change of plan while holding txMu.
func (c *Connector) apply(ctx context.Context, plan *Plan) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()

	for _, ch := range plan.Changes {
		c.log.Infow("migrating table", "table", ch.Table, "change", string(ch.Kind), "column", ch.Column)
		if _, err := c.execAll(ctx, ch.Statements); err != nil {
			if ch.Kind != ChangeCreate {
				_, _ = c.execAll(ctx, []Statement{
					OptionalStmt("ROLLBACK"),
					OptionalStmt("PRAGMA foreign_keys = ON"),
				})
			}
			return fmt.Errorf("migrate %s (%s): %w", ch.Table, ch.Kind, err)
		}
	}
	return nil
}
