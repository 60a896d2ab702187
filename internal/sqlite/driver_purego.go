//go:build !cgo_sqlite

package sqlite

import _ "modernc.org/sqlite"

// driverName is the database/sql driver the connector opens. The default
// build uses the pure-Go driver; build with -tags cgo_sqlite for mattn.
const driverName = "sqlite"
