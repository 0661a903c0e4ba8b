// Package config loads comgr settings from COMGR_* environment variables,
// optional .env files and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
	CacheMongo    = "mongo"
)

// Journal backends.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalSQLite = "sqlite"
)

// Config holds every runtime setting. Environment values override the
// YAML file, which overrides the defaults.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"COMGR_LOG_LEVEL" yaml:"log_level"`
	// EmitVerboseLogs adds tool output to action logs.
	EmitVerboseLogs bool `env:"COMGR_EMIT_VERBOSE_LOGS" yaml:"emit_verbose_logs"`
	// SaveTemps keeps every stage workspace.
	SaveTemps bool `env:"COMGR_SAVE_TEMPS" yaml:"save_temps"`
	// RedirectLogs copies action logs to stdout, stderr or a file path.
	RedirectLogs string `env:"COMGR_REDIRECT_LOGS" yaml:"redirect_logs"`

	ToolchainDir  string `env:"COMGR_TOOLCHAIN_DIR" yaml:"toolchain_dir"`
	DeviceLibPath string `env:"COMGR_DEVICE_LIB_PATH" yaml:"device_lib_path"`
	TempDir       string `env:"COMGR_TEMP_DIR" yaml:"temp_dir"`
	// ISATable replaces the built-in ISA table.
	ISATable string `env:"COMGR_ISA_TABLE" yaml:"isa_table"`

	Cache    string `env:"COMGR_CACHE" yaml:"cache"`
	CacheDSN string `env:"COMGR_CACHE_DSN" yaml:"cache_dsn"`

	Journal    string `env:"COMGR_JOURNAL" yaml:"journal"`
	JournalDSN string `env:"COMGR_JOURNAL_DSN" yaml:"journal_dsn"`

	// MaxHandles caps each handle table. Zero means unlimited.
	MaxHandles int `env:"COMGR_MAX_HANDLES" yaml:"max_handles"`

	// ConfigPath names the YAML file that was loaded, if any.
	ConfigPath string `env:"COMGR_CONFIG" yaml:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel: "info",
		Cache:    CacheNone,
		Journal:  JournalNone,
	}
}

// Vars is a set of environment variables.
type Vars map[string]string

// FromOS returns the process environment.
func FromOS() Vars {
	out := make(Vars)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}

// LoadEnvFile reads a .env file.
func LoadEnvFile(path string) (Vars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	m, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse env file %q: %w", path, err)
	}
	return Vars(m), nil
}

// Load resolves the configuration from vars. Variables from envFiles apply
// only where vars does not set them; missing env files are skipped.
func Load(vars Vars, envFiles ...string) (Config, error) {
	merged := make(Vars)
	for _, path := range envFiles {
		fileVars, err := LoadEnvFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, err
		}
		maps.Copy(merged, fileVars)
	}
	maps.Copy(merged, vars)

	cfg := Default()
	if path := merged["COMGR_CONFIG"]; path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: merged}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// Validate checks backend names and their DSNs.
func (c Config) Validate() error {
	switch c.Cache {
	case CacheNone, CacheMemory:
	case CacheSQLite, CachePostgres, CacheRedis, CacheMongo:
		if c.CacheDSN == "" {
			return fmt.Errorf("cache %q requires COMGR_CACHE_DSN", c.Cache)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache)
	}

	switch c.Journal {
	case JournalNone, JournalMemory:
	case JournalSQLite:
		if c.JournalDSN == "" {
			return errors.New("journal \"sqlite\" requires COMGR_JOURNAL_DSN")
		}
	default:
		return fmt.Errorf("unknown journal backend %q", c.Journal)
	}

	if c.MaxHandles < 0 {
		return fmt.Errorf("max handles must not be negative, got %d", c.MaxHandles)
	}
	return nil
}
