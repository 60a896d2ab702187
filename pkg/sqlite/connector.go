// Package sqlite provides the public API for the SQLite connector.
// This package exposes the factory and the types callers handle while
// keeping the implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/larder/internal/sqlite"
)

// Connector stores model rows in one SQLite database.
type Connector = sqlite.Connector

// Option configures a Connector.
type Option = sqlite.Option

// Plan is the ordered list of table changes a migration applies.
type Plan = sqlite.Plan

// Change is the work needed to bring one table in line with its model type.
type Change = sqlite.Change

// Snapshot is one recorded schema.
type Snapshot = sqlite.Snapshot

// Statement is one SQL statement with its bind values.
type Statement = sqlite.Statement

// WithLogger sets the connector's logger.
var WithLogger = sqlite.WithLogger

// WithTrace observes every statement sent to the database.
var WithTrace = sqlite.WithTrace

// NewConnector creates a new SQLite connector.
// The connector is not attached; call Attach with a Config to open it.
//
// Example:
//
//	conn := sqlite.NewConnector()
//	err := conn.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".larder-db",
//	})
//	defer conn.Detach()
//	err = engine.Save(ctx, conn, record, schema.IntrospectOptions{})
func NewConnector(opts ...Option) *Connector {
	return sqlite.NewConnector(opts...)
}
