package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Vars{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Environment(t *testing.T) {
	cfg, err := Load(Vars{
		"COMGR_LOG_LEVEL":         "debug",
		"COMGR_EMIT_VERBOSE_LOGS": "true",
		"COMGR_SAVE_TEMPS":        "1",
		"COMGR_REDIRECT_LOGS":     "stderr",
		"COMGR_TOOLCHAIN_DIR":     "/opt/rocm/llvm/bin",
		"COMGR_CACHE":             "sqlite",
		"COMGR_CACHE_DSN":         "file:cache.db",
		"COMGR_JOURNAL":           "memory",
		"COMGR_MAX_HANDLES":       "128",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.EmitVerboseLogs)
	assert.True(t, cfg.SaveTemps)
	assert.Equal(t, "stderr", cfg.RedirectLogs)
	assert.Equal(t, "/opt/rocm/llvm/bin", cfg.ToolchainDir)
	assert.Equal(t, CacheSQLite, cfg.Cache)
	assert.Equal(t, "file:cache.db", cfg.CacheDSN)
	assert.Equal(t, JournalMemory, cfg.Journal)
	assert.Equal(t, 128, cfg.MaxHandles)
}

func TestLoad_Precedence(t *testing.T) {
	yamlPath := writeFile(t, "comgr.yaml", `
log_level: warn
toolchain_dir: /yaml/bin
cache: memory
max_handles: 10
`)
	envFile := writeFile(t, ".env", "COMGR_CONFIG="+yamlPath+"\nCOMGR_TOOLCHAIN_DIR=/dotenv/bin\nCOMGR_TEMP_DIR=/dotenv/tmp\n")

	cfg, err := Load(Vars{"COMGR_TEMP_DIR": "/env/tmp"}, envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel, "from yaml")
	assert.Equal(t, CacheMemory, cfg.Cache, "from yaml")
	assert.Equal(t, 10, cfg.MaxHandles, "from yaml")
	assert.Equal(t, "/dotenv/bin", cfg.ToolchainDir, ".env beats yaml")
	assert.Equal(t, "/env/tmp", cfg.TempDir, "environment beats .env")
	assert.Equal(t, yamlPath, cfg.ConfigPath)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(Vars{"COMGR_MAX_HANDLES": "many"})
	assert.Error(t, err)

	_, err = Load(Vars{"COMGR_CONFIG": filepath.Join(t.TempDir(), "absent.yaml")})
	assert.ErrorContains(t, err, "read config file")

	bad := writeFile(t, "bad.yaml", "cache: [unterminated")
	_, err = Load(Vars{"COMGR_CONFIG": bad})
	assert.ErrorContains(t, err, "parse config file")

	badEnv := writeFile(t, "bad.env", "BAD-KEY=1\n")
	_, err = Load(Vars{}, badEnv)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg     Config
		wantErr string
	}{
		"defaults":          {cfg: Default()},
		"unknown cache":     {cfg: Config{Cache: "memcached", Journal: JournalNone}, wantErr: "unknown cache backend"},
		"cache without dsn": {cfg: Config{Cache: CacheRedis, Journal: JournalNone}, wantErr: "COMGR_CACHE_DSN"},
		"unknown journal":   {cfg: Config{Cache: CacheNone, Journal: "kafka"}, wantErr: "unknown journal backend"},
		"journal no dsn":    {cfg: Config{Cache: CacheNone, Journal: JournalSQLite}, wantErr: "COMGR_JOURNAL_DSN"},
		"negative handles":  {cfg: Config{Cache: CacheNone, Journal: JournalNone, MaxHandles: -1}, wantErr: "negative"},
	} {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestFromOS(t *testing.T) {
	t.Setenv("COMGR_TEST_VALUE", "a=b")
	assert.Equal(t, "a=b", FromOS()["COMGR_TEST_VALUE"])
}
