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
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "localhost:8080", cfg.Addr())
	assert.Equal(t, 1024*1024, cfg.Limits.MaxFileSize)
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{
				"server": {"port": 9090},
				"database": {"in_memory": true},
				"limits": {"max_file_size": 2048},
				"log_level": "debug"
			}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
server:
  port: 9090
database:
  in_memory: true
limits:
  max_file_size: 2048
log_level: debug
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, 9090, cfg.Server.Port)
			assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep defaults")
			assert.True(t, cfg.Database.InMemory)
			assert.Equal(t, 2048, cfg.Limits.MaxFileSize)
			assert.Equal(t, 1000, cfg.Limits.MaxPathLength)
			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, 50, cfg.Sessions.HistoryLimit)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config file format")

	_, err = Load(writeFile(t, "config.json", "{"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.json", `{"server": {"port": 70000}}`))
	assert.ErrorContains(t, err, "port out of range")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UIGEN_LOG_LEVEL", "warn")
	t.Setenv("UIGEN_DB_PATH", "/tmp/uigen-db")
	t.Setenv("UIGEN_PORT", "7000")

	cfg, err := Load(writeFile(t, "config.json", `{"log_level": "debug"}`))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/uigen-db", cfg.Database.Path)
	assert.Equal(t, 7000, cfg.Server.Port)

	t.Setenv("UIGEN_PORT", "http")
	_, err = Load("")
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("UIGEN_ENV", "")
	assert.Equal(t, "config/config.development.json", Path())
	t.Setenv("UIGEN_ENV", "production")
	assert.Equal(t, "config/config.production.json", Path())
}
