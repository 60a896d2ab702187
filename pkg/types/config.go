package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for a connector's Attach.
type Config struct {
	Backend     string        `json:"backend" yaml:"backend"`
	DataDir     string        `json:"data_dir" yaml:"data_dir"`
	Database    string        `json:"database" yaml:"database"`
	Context     string        `json:"context" yaml:"context"`
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Defaults applied by connectors when the matching Config field is empty.
const (
	DefaultDatabase    = "larder.db"
	DefaultBusyTimeout = 5 * time.Second
	MemoryDatabase     = ":memory:"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Context != "" {
		if _, err := ParseContext(c.Context); err != nil {
			return err
		}
	}
	return nil
}

// DatabaseName returns the configured database file name or the default.
func (c Config) DatabaseName() string {
	if c.Database == "" {
		return DefaultDatabase
	}
	return c.Database
}

// StorageContext returns the property context the backend reads field
// overrides from. An empty Context selects the backend's own context.
func (c Config) StorageContext() Context {
	if c.Context != "" {
		if ctx, err := ParseContext(c.Context); err == nil {
			return ctx
		}
	}
	switch c.Backend {
	case BackendSQLite:
		return ContextSQLite
	default:
		return ContextDefault
	}
}
