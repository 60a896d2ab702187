package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/internal/paths"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/sqlite"
	"github.com/mesh-intelligence/larder/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyDatabase    = "database"
	cfgKeyContext     = "context"
	cfgKeyBusyTimeout = "busy_timeout"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# larder configuration

# Backend selection
backend: sqlite

# Database file inside the data directory
database: larder.db

# How long a statement waits on a locked database
busy_timeout: 5s

# Data directory (optional; overridable by --data-dir flag)
# data_dir:
`

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run. A missing config.yaml is not
// an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := paths.EnsureDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDatabase, types.DefaultDatabase)
	v.SetDefault(cfgKeyBusyTimeout, types.DefaultBusyTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// env is what every command that touches the database needs.
type env struct {
	configDir string
	config    types.Config
	log       *zap.SugaredLogger
}

// setup resolves directories, reads the config file and builds the logger.
func setup(flags *rootFlags) (*env, error) {
	log, err := logging.New(flags.verbose)
	if err != nil {
		return nil, sysError("%w", err)
	}
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, sysError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, sysError("%w", err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysError("resolve data dir: %w", err)
	}

	timeout := v.GetDuration(cfgKeyBusyTimeout)
	if timeout <= 0 {
		timeout = types.DefaultBusyTimeout
	}
	cfg := types.Config{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     dataDir,
		Database:    v.GetString(cfgKeyDatabase),
		Context:     v.GetString(cfgKeyContext),
		BusyTimeout: timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, userError("invalid config %s: %w", filepath.Join(configDir, configFileExt), err)
	}
	log.Debugw("config loaded", "config_dir", configDir, "data_dir", dataDir, "backend", cfg.Backend)
	return &env{configDir: configDir, config: cfg, log: log}, nil
}

// attach opens the configured database.
func (e *env) attach() (*sqlite.Connector, error) {
	conn := sqlite.NewConnector(sqlite.WithLogger(e.log))
	if err := conn.Attach(e.config); err != nil {
		return nil, sysError("attach %s: %w", e.config.DataDir, err)
	}
	return conn, nil
}

// loadSchema builds a started engine from a schema file.
func (e *env) loadSchema(path string) (*schema.Engine, error) {
	if path == "" {
		return nil, userError("--schema is required")
	}
	raw, err := schema.LoadRawSchemaFile(path)
	if err != nil {
		return nil, userError("load schema %s: %w", path, err)
	}
	engine, err := schema.FromRawSchema(raw, schema.WithLogger(e.log))
	if err != nil {
		return nil, userError("schema %s: %w", path, err)
	}
	return engine, nil
}
