package sqlite

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// RebuildOptions shape the column set of a generated table.
//
// Exclude drops model columns from the definition. Extra appends further
// field definitions after the model's. Existing lists the live table's
// columns; the rebuild copies only columns present both there and in the new
// definition. A nil Existing copies every model column.
type RebuildOptions struct {
	Context  types.Context
	Existing []string
	Exclude  []string
	Extra    []*schema.FieldType
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = quoteIdent(n)
	}
	return strings.Join(q, ", ")
}

// SQLType returns the column type of a scalar field under ctx. An explicit
// storage type wins.
func SQLType(f *schema.FieldType, ctx types.Context) string {
	if st := f.StorageTypeName(ctx); st != "" {
		return st
	}
	switch f.Kind() {
	case schema.KindInteger:
		return "INTEGER"
	case schema.KindDecimal:
		return "REAL"
	case schema.KindBoolean:
		return "BOOLEAN"
	case schema.KindDate:
		return "DATE"
	case schema.KindTime:
		return "TIME"
	case schema.KindDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// FieldDefinition renders one column definition: name, type and constraint
// flags joined by spaces.
func FieldDefinition(f *schema.FieldType, ctx types.Context) string {
	parts := []string{quoteIdent(f.ColumnName(ctx)), SQLType(f, ctx)}
	pk := f.Flag(schema.PropPrimaryKey, ctx)
	if f.Flag(schema.PropNotNull, ctx) {
		parts = append(parts, "NOT NULL")
	}
	if pk {
		parts = append(parts, "PRIMARY KEY")
		// SQLite only accepts AUTOINCREMENT on INTEGER PRIMARY KEY.
		if f.Flag(schema.PropAutoIncrement, ctx) && f.Kind() == schema.KindInteger {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if dv := f.DefaultValue(ctx); dv != nil {
		parts = append(parts, "DEFAULT", sqlLiteral(dv))
	}
	return strings.Join(parts, " ")
}

// sqlLiteral renders a default value as an SQL literal.
func sqlLiteral(v any) string {
	switch x := serializeValue(v).(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}

// definitions returns the column definitions and names of the table built
// from mt under opts.
func definitions(mt *schema.ModelType, opts RebuildOptions) ([]string, []string) {
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		exclude[name] = true
	}
	var defs, cols []string
	for _, f := range mt.Select(schema.Columns(opts.Context)) {
		col := f.ColumnName(opts.Context)
		if exclude[col] {
			continue
		}
		defs = append(defs, FieldDefinition(f, opts.Context))
		cols = append(cols, col)
	}
	for _, f := range opts.Extra {
		defs = append(defs, FieldDefinition(f, opts.Context))
		cols = append(cols, f.ColumnName(opts.Context))
	}
	return defs, cols
}

// CreateTableQuery renders CREATE TABLE for mt under the given table name.
// Returns ErrNoColumns when mt has no storable column.
func CreateTableQuery(mt *schema.ModelType, table string, opts RebuildOptions) (string, error) {
	defs, _ := definitions(mt, opts)
	if len(defs) == 0 {
		return "", fmt.Errorf("%w: %s", types.ErrNoColumns, mt.Name())
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", ")), nil
}

// UpdateTableQueries renders the rebuild of table as mt: rename the live
// table aside, create the new one, copy the common columns across, drop the
// old table. The statements run in one transaction with foreign key checks
// off.
func UpdateTableQueries(mt *schema.ModelType, table string, opts RebuildOptions) ([]Statement, error) {
	create, err := CreateTableQuery(mt, table, opts)
	if err != nil {
		return nil, err
	}
	_, newCols := definitions(mt, opts)
	common := newCols
	if opts.Existing != nil {
		live := make(map[string]bool, len(opts.Existing))
		for _, c := range opts.Existing {
			live[c] = true
		}
		common = nil
		for _, c := range newCols {
			if live[c] {
				common = append(common, c)
			}
		}
	} else if len(opts.Extra) > 0 {
		common = newCols[:len(newCols)-len(opts.Extra)]
	}

	tmp := "_" + table
	stmts := []Statement{
		Stmt("PRAGMA foreign_keys = OFF"),
		Stmt("BEGIN TRANSACTION"),
		Stmt(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(table), quoteIdent(tmp))),
		Stmt(create),
	}
	if len(common) > 0 {
		cols := quoteList(common)
		stmts = append(stmts, Stmt(fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			quoteIdent(table), cols, cols, quoteIdent(tmp))))
	}
	stmts = append(stmts,
		Stmt(fmt.Sprintf("DROP TABLE %s", quoteIdent(tmp))),
		Stmt("COMMIT"),
		Stmt("PRAGMA foreign_keys = ON"),
	)
	return stmts, nil
}

// AddColumnQueries rebuilds table with f's column placed last.
func AddColumnQueries(mt *schema.ModelType, table string, f *schema.FieldType, opts RebuildOptions) ([]Statement, error) {
	opts.Exclude = append(append([]string(nil), opts.Exclude...), f.ColumnName(opts.Context))
	opts.Extra = append(append([]*schema.FieldType(nil), opts.Extra...), f)
	return UpdateTableQueries(mt, table, opts)
}

// DropColumnQueries rebuilds table without the named column.
func DropColumnQueries(mt *schema.ModelType, table, column string, opts RebuildOptions) ([]Statement, error) {
	opts.Exclude = append(append([]string(nil), opts.Exclude...), column)
	return UpdateTableQueries(mt, table, opts)
}

// serializeValue converts a Go value to what the driver binds: times become
// the fixed UTC layout, booleans 0 or 1.
func serializeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.UTC().Format(types.TimestampLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(types.TimestampLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}
