package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// typeParams splits "VARCHAR(255)" into base type and parameter list.
var typeParams = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_ ]*?)\s*(?:\(\s*([^)]*)\))?\s*$`)

// splitType returns the upper-cased base type of a declared column type and
// its single numeric parameter, if any.
func splitType(declared string) (string, float64) {
	m := typeParams.FindStringSubmatch(declared)
	if m == nil {
		return strings.ToUpper(strings.TrimSpace(declared)), 0
	}
	base := strings.ToUpper(m[1])
	if m[2] == "" || strings.Contains(m[2], ",") {
		return base, 0
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
	if err != nil {
		return base, 0
	}
	return base, max
}

// normalizeColumn turns one PRAGMA table_info row into a Column.
func normalizeColumn(row map[string]any) types.Column {
	base, max := splitType(asString(row["type"]))
	col := types.Column{
		Field:    asString(row["name"]),
		Type:     base,
		Nullable: asInt(row["notnull"]) == 0,
		Max:      max,
		Default:  row["dflt_value"],
	}
	if asInt(row["pk"]) > 0 {
		col.Key = types.KeyPrimary
	}
	return col
}

// Tables lists the user tables in the database, sorted by name. SQLite's
// internal tables and the schema history table are left out.
func (c *Connector) Tables(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, Stmt(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' AND name <> ? ORDER BY name`,
		historyTable,
	))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, asString(row["name"]))
	}
	return out, nil
}

// TableColumns returns the live column descriptors of one table, in
// declaration order.
func (c *Connector) TableColumns(ctx context.Context, table string) ([]types.Column, error) {
	res, err := c.run(ctx, Stmt(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	cols := make([]types.Column, 0, len(res.Rows))
	for _, row := range res.Rows {
		cols = append(cols, normalizeColumn(row))
	}
	return cols, nil
}

// RawDatabaseSchema describes every user table and its columns.
func (c *Connector) RawDatabaseSchema(ctx context.Context) (types.RawDatabaseSchema, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}
	out := make(types.RawDatabaseSchema, len(tables))
	for _, table := range tables {
		cols, err := c.TableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		ts := make(types.TableSchema, len(cols))
		for _, col := range cols {
			ts[col.Field] = col
		}
		out[table] = ts
	}
	return out, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case bool:
		if n {
			return 1
		}
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}
