//go:build cgo_sqlite

package sqlite

import _ "github.com/mattn/go-sqlite3"

// driverName is the database/sql driver the connector opens.
const driverName = "sqlite3"
