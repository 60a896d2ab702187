// Package sqlite implements the SQLite connector for larder: statement
// execution with query groups, live schema introspection, DDL synthesis
// including the table rebuild used for column changes, the row write and
// read paths, migration planning and the schema history table.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Connector stores model rows in one SQLite database. It holds a single
// pooled connection; statement execution is serialized by execMu. txMu is
// held across a group's flush and commit, a migration, and any write issued
// outside a group, so such a write never lands inside an open transaction.
type Connector struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	ctx      types.Context

	execMu sync.Mutex
	txMu   sync.Mutex

	groupsMu sync.Mutex
	groups   map[string]*Group

	log   *zap.SugaredLogger
	trace func(query string)
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger statement failures, rollbacks and migration
// steps are reported to.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Connector) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTrace registers fn to observe every statement sent to the database,
// in execution order.
func WithTrace(fn func(query string)) Option {
	return func(c *Connector) { c.trace = fn }
}

var _ schema.Connector = (*Connector)(nil)
var _ schema.BatchWriter = (*Connector)(nil)

// NewConnector creates a detached connector. Call Attach to open the
// database.
func NewConnector(opts ...Option) *Connector {
	c := &Connector{
		groups: make(map[string]*Group),
		log:    zap.NewNop().Sugar(),
		ctx:    types.ContextSQLite,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach opens the configured database, creating DataDir if needed, applies
// connection pragmas and creates the schema history table.
// Returns ErrAlreadyAttached if already attached.
func (c *Connector) Attach(config types.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dsn := config.DatabaseName()
	if dsn != types.MemoryDatabase {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, dsn)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dsn, err)
	}
	// One connection: pragmas stick and statements never interleave.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	timeout := config.BusyTimeout
	if timeout <= 0 {
		timeout = types.DefaultBusyTimeout
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		createHistory,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return fmt.Errorf("initialize %s: %w", dsn, err)
		}
	}

	c.db = db
	c.config = config
	c.ctx = config.StorageContext()
	c.attached = true
	c.log.Debugw("connector attached", "database", dsn, "context", c.ctx.String())
	return nil
}

// Detach closes the database. Open query groups are discarded without
// running. Detach is idempotent.
func (c *Connector) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached {
		return nil
	}

	c.groupsMu.Lock()
	if n := len(c.groups); n > 0 {
		c.log.Warnw("discarding open query groups", "count", n)
	}
	for id, g := range c.groups {
		g.close()
		delete(c.groups, id)
	}
	c.groupsMu.Unlock()

	c.execMu.Lock()
	defer c.execMu.Unlock()
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return err
		}
		c.db = nil
	}
	c.attached = false
	return nil
}

// Attached reports whether the connector has an open database.
func (c *Connector) Attached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attached
}

// Context returns the property context column names are resolved under.
func (c *Connector) Context() types.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

// database returns the open handle or ErrConnectorDetached.
func (c *Connector) database() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.attached {
		return nil, types.ErrConnectorDetached
	}
	return c.db, nil
}

// newID returns a UUID v7, falling back to v4.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// TableName returns the table a model type is stored in.
func TableName(mt *schema.ModelType) string {
	return mt.Name()
}
