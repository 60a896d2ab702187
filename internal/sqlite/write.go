package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// WriteRaw stores one decomposed row. It looks up an existing row by
// primary key and issues UPDATE when one is found, INSERT otherwise. A lookup
// failure counts as "not found". Primitive value rows are always inserted.
// Any other model without a primary key, or a row without a primary key
// value, fails before any statement runs.
func (c *Connector) WriteRaw(ctx context.Context, row schema.Row, opts ...ExecOption) error {
	return c.writeRow(ctx, row, nil, opts...)
}

// writeRow is WriteRaw with a record of keys already written in the same
// query group, whose queued inserts the lookup cannot see yet.
func (c *Connector) writeRow(ctx context.Context, row schema.Row, written map[string]bool, opts ...ExecOption) error {
	mt := row.Model
	if mt == nil {
		return types.ErrUnknownModelType
	}
	cctx := c.Context()
	pk, ok := mt.PrimaryKey(cctx)
	if !ok {
		if mt.IsPrimitive() {
			return c.writeValue(ctx, row, written, opts...)
		}
		return fmt.Errorf("write %s: %w", mt.Name(), types.ErrNoPrimaryKey)
	}
	pkCol := pk.ColumnName(cctx)
	pkVal := serializeValue(row.Values[pkCol])
	if pkVal == nil || pkVal == "" {
		return fmt.Errorf("write %s: %w: %s is empty", mt.Name(), types.ErrNoPrimaryKey, pkCol)
	}
	table := quoteIdent(TableName(mt))

	key := TableName(mt) + "\x00" + fmt.Sprint(pkVal)
	exists := written[key]
	lookup := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", quoteIdent(pkCol), table, quoteIdent(pkCol))
	if !exists {
		if res, err := c.run(ctx, Stmt(lookup, pkVal)); err == nil && len(res.Rows) > 0 {
			exists = true
		}
	}

	fields := mt.Select(schema.Columns(cctx))
	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		col := f.ColumnName(cctx)
		cols = append(cols, col)
		vals = append(vals, serializeValue(row.Values[col]))
	}

	var query string
	if exists {
		sets := make([]string, len(cols))
		for i, col := range cols {
			sets[i] = quoteIdent(col) + " = ?"
		}
		query = fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), quoteIdent(pkCol))
		vals = append(vals, pkVal)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, quoteList(cols), placeholders(len(cols)))
	}

	if _, err := c.Exec(ctx, Statement{Query: query, Values: vals}, opts...); err != nil {
		c.log.Errorw("write failed", "type", mt.Name(), "key", pkVal, "error", err)
		return fmt.Errorf("write %s: %w", mt.Name(), err)
	}
	if written != nil {
		written[key] = true
	}
	return nil
}

// writeValue inserts one primitive value row. Inside a batch the owner's
// previous values for the same field are deleted first, once, so saving an
// instance again replaces its list instead of extending it.
func (c *Connector) writeValue(ctx context.Context, row schema.Row, written map[string]bool, opts ...ExecOption) error {
	mt := row.Model
	cctx := c.Context()
	table := quoteIdent(TableName(mt))

	var linkCols []string
	var linkVals []any
	for _, name := range []string{schema.OwnerTypeField, schema.OwnerIDField, schema.OwnerFieldField} {
		f, ok := mt.Field(name)
		if !ok {
			continue
		}
		col := f.ColumnName(cctx)
		linkCols = append(linkCols, quoteIdent(col)+" = ?")
		linkVals = append(linkVals, serializeValue(row.Values[col]))
	}
	if written != nil && len(linkCols) > 0 {
		key := TableName(mt) + "\x00" + fmt.Sprintf("%q", linkVals)
		if !written[key] {
			del := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(linkCols, " AND "))
			if _, err := c.Exec(ctx, Statement{Query: del, Values: linkVals}, opts...); err != nil {
				return fmt.Errorf("write %s: %w", mt.Name(), err)
			}
			written[key] = true
		}
	}

	fields := mt.Select(schema.Columns(cctx))
	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, f := range fields {
		col := f.ColumnName(cctx)
		cols = append(cols, col)
		vals = append(vals, serializeValue(row.Values[col]))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, quoteList(cols), placeholders(len(cols)))
	if _, err := c.Exec(ctx, Statement{Query: query, Values: vals}, opts...); err != nil {
		c.log.Errorw("write failed", "type", mt.Name(), "error", err)
		return fmt.Errorf("write %s: %w", mt.Name(), err)
	}
	return nil
}

// Write stores one row immediately.
func (c *Connector) Write(ctx context.Context, _ *schema.Engine, row schema.Row) error {
	return c.WriteRaw(ctx, row)
}

// WriteRows stores every row of one save in a single query group.
func (c *Connector) WriteRows(ctx context.Context, _ *schema.Engine, rows []schema.Row) error {
	written := make(map[string]bool, len(rows))
	return c.Transaction(ctx, func(g *Group) error {
		for _, row := range rows {
			if err := c.writeRow(ctx, row, written, InGroup(g)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query selects rows of q.Model whose columns equal q.Where. Where keys are
// field names or column names.
func (c *Connector) Query(ctx context.Context, e *schema.Engine, q schema.Query) ([]schema.Row, error) {
	mt, ok := e.ModelType(q.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownModelType, q.Model)
	}
	cctx := c.Context()

	fields := mt.Select(schema.Columns(cctx))
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.ColumnName(cctx)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNoColumns, mt.Name())
	}

	keys := make([]string, 0, len(q.Where))
	for k := range q.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", quoteList(cols), quoteIdent(TableName(mt)))
	args := make([]any, 0, len(keys)+2)
	for i, k := range keys {
		col := k
		if f, ok := mt.Field(k); ok {
			col = f.ColumnName(cctx)
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if v := serializeValue(q.Where[k]); v == nil {
			sb.WriteString(quoteIdent(col) + " IS NULL")
		} else {
			sb.WriteString(quoteIdent(col) + " = ?")
			args = append(args, v)
		}
	}
	sb.WriteString(" ORDER BY rowid")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
		if q.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, q.Offset)
		}
	}

	res, err := c.run(ctx, Stmt(sb.String(), args...))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", mt.Name(), err)
	}
	rows := make([]schema.Row, 0, len(res.Rows))
	for _, values := range res.Rows {
		rows = append(rows, schema.Row{Model: mt, Values: values})
	}
	return rows, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
