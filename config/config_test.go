package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "STORE_DRIVER", "SQLITE_PATH", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "STORE_NAMESPACE", "LOG_LEVEL", "CORS_ORIGINS",
	} {
		// Setenv registers the restore; godotenv only fills unset keys.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "books.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "bubbelbudget_", cfg.Storage.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.Server.CORSOrigins)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nSTORE_DRIVER=redis\nREDIS_ADDR=cache:6379\nREDIS_DB=2\nCORS_ORIGINS= https://a.example , ,https://b.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{"APP_PORT": "http"}},
		{"port out of range", map[string]string{"APP_PORT": "70000"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}},
		{"redis db not a number", map[string]string{"REDIS_DB": "zero"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.Error(t, cfg.Validate())
}
