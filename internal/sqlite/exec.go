package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// Statement is one SQL statement with its bind values. A failing Optional
// statement is recorded and execution continues; any other failure stops
// ExecAll and group flushes.
type Statement struct {
	Query    string
	Values   []any
	Optional bool
}

// Stmt returns a required statement.
func Stmt(query string, values ...any) Statement {
	return Statement{Query: query, Values: values}
}

// OptionalStmt returns a statement whose failure does not stop execution.
func OptionalStmt(query string, values ...any) Statement {
	return Statement{Query: query, Values: values, Optional: true}
}

// Result is the outcome of one executed statement. Rows is set for read
// queries; Err is set only for failed optional statements.
type Result struct {
	Query        string
	Rows         []map[string]any
	RowsAffected int64
	LastInsertID int64
	Err          error
}

// readQuery matches statements that return rows. They never queue.
var readQuery = regexp.MustCompile(`(?i)^\s*(select\b|with\b|pragma\s+(table_info|database_list|index_list|foreign_keys)\b\s*(\(|;|$))`)

// IsReadQuery reports whether query returns rows and so bypasses query
// groups.
func IsReadQuery(query string) bool {
	return readQuery.MatchString(query)
}

type execConfig struct {
	group *Group
}

// ExecOption configures Exec.
type ExecOption func(*execConfig)

// InGroup queues the statement on g instead of running it, unless it is a
// read query.
func InGroup(g *Group) ExecOption {
	return func(ec *execConfig) { ec.group = g }
}

// Exec runs one statement. With InGroup, non-read statements are queued and
// Exec returns a nil Result. A write outside a group waits until no group
// transaction is open.
func (c *Connector) Exec(ctx context.Context, st Statement, opts ...ExecOption) (*Result, error) {
	var ec execConfig
	for _, opt := range opts {
		opt(&ec)
	}
	if IsReadQuery(st.Query) {
		return c.run(ctx, st)
	}
	if ec.group != nil {
		return nil, ec.group.Queue(st)
	}
	c.txMu.Lock()
	defer c.txMu.Unlock()
	return c.run(ctx, st)
}

// ExecAll runs statements in order. It stops at the first failure of a
// required statement, returning the results so far and the error. Failures
// of optional statements are recorded in their Result and skipped. No group
// transaction runs while ExecAll does.
func (c *Connector) ExecAll(ctx context.Context, stmts []Statement) ([]Result, error) {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	return c.execAll(ctx, stmts)
}

// execAll is ExecAll for callers already holding txMu.
func (c *Connector) execAll(ctx context.Context, stmts []Statement) ([]Result, error) {
	results := make([]Result, 0, len(stmts))
	for _, st := range stmts {
		res, err := c.run(ctx, st)
		if err != nil {
			if !st.Optional {
				return results, err
			}
			c.log.Warnw("optional statement failed", "statement", st.Query, "error", err)
			results = append(results, Result{Query: st.Query, Err: err})
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// run executes st immediately under the exec mutex.
func (c *Connector) run(ctx context.Context, st Statement) (*Result, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}

	c.execMu.Lock()
	defer c.execMu.Unlock()

	if c.trace != nil {
		c.trace(st.Query)
	}

	res := &Result{Query: st.Query}
	if IsReadQuery(st.Query) {
		rows, err := db.QueryContext(ctx, st.Query, st.Values...)
		if err != nil {
			c.log.Errorw("statement failed", "statement", st.Query, "error", err)
			return nil, fmt.Errorf("query %q: %w", st.Query, err)
		}
		defer rows.Close()
		if res.Rows, err = collectRows(rows); err != nil {
			return nil, fmt.Errorf("query %q: %w", st.Query, err)
		}
		return res, nil
	}

	out, err := db.ExecContext(ctx, st.Query, st.Values...)
	if err != nil {
		c.log.Errorw("statement failed", "statement", st.Query, "error", err)
		return nil, fmt.Errorf("exec %q: %w", st.Query, err)
	}
	res.RowsAffected, _ = out.RowsAffected()
	res.LastInsertID, _ = out.LastInsertId()
	return res, nil
}

// collectRows reads every row into a column-keyed map. Byte slices become
// strings.
func collectRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
