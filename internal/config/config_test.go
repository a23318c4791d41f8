package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults only",
			setup: func() {
				viper.Reset()
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultHost, cfg.Server.Host)
				assert.Equal(t, uint16(DefaultPort), cfg.Server.Port)
				assert.Equal(t, DefaultWorkers, cfg.Server.Workers)
				assert.Equal(t, DefaultReadBufferSize, cfg.Server.ReadBufferSize)
				assert.Equal(t, DefaultRootDir, cfg.Static.RootDir)
				assert.Equal(t, DefaultSleepDelay, cfg.Static.SleepDelay)
				assert.Equal(t, int64(0), cfg.Static.CacheSize)
				assert.False(t, cfg.LiveReload.Enabled)
				assert.Equal(t, "info", cfg.Log.Level)
			},
		},
		{
			name: "overrides",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 3000)
				viper.Set("server.host", "127.0.0.1")
				viper.Set("server.workers", 16)
				viper.Set("static.root_dir", "./site")
				viper.Set("static.sleep_delay", "250ms")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, uint16(3000), cfg.Server.Port)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 16, cfg.Server.Workers)
				assert.Equal(t, "./site", cfg.Static.RootDir)
				assert.Equal(t, 250*time.Millisecond, cfg.Static.SleepDelay)
			},
		},
		{
			name: "invalid port type",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "zero workers",
			setup: func() {
				viper.Reset()
				viper.Set("server.workers", 0)
			},
			expectError: true,
		},
		{
			name: "port zero",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 0)
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func() {
				viper.Reset()
				viper.Set("log.level", "chatty")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()

			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
				assert.True(t, errors.IsFatal(err))
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".poolserve.yml")
	content := `server:
  port: 9090
  workers: 2
static:
  root_dir: ` + dir + `
  cache_size: 1048576
  cache_ttl: 30s
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.Workers)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, int64(1048576), cfg.Static.CacheSize)
	assert.Equal(t, 30*time.Second, cfg.Static.CacheTTL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POOLSERVE_SERVER_PORT", "7070")
	t.Setenv("POOLSERVE_SERVER_WORKERS", "8")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, uint16(7070), cfg.Server.Port)
	assert.Equal(t, 8, cfg.Server.Workers)
}

func TestAddress(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())

	cfg.Server.Host = "::1"
	cfg.Server.Port = 9000
	assert.Equal(t, "[::1]:9000", cfg.Address())

	cfg.LiveReload.Port = 35730
	assert.Equal(t, "[::1]:35730", cfg.LiveReloadAddress())
}

func TestValidateConfigWithDetails(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(cfg *Config)
		errorFields   []string
		warningFields []string
	}{
		{
			name:   "defaults with existing root",
			mutate: func(cfg *Config) {},
		},
		{
			name:          "privileged port warns",
			mutate:        func(cfg *Config) { cfg.Server.Port = 80 },
			warningFields: []string{"server.port"},
		},
		{
			name:        "empty host",
			mutate:      func(cfg *Config) { cfg.Server.Host = "" },
			errorFields: []string{"server.host"},
		},
		{
			name:        "host with shell characters",
			mutate:      func(cfg *Config) { cfg.Server.Host = "localhost;rm" },
			errorFields: []string{"server.host"},
		},
		{
			name:        "tiny read buffer",
			mutate:      func(cfg *Config) { cfg.Server.ReadBufferSize = 8 },
			errorFields: []string{"server.read_buffer_size"},
		},
		{
			name:        "empty root",
			mutate:      func(cfg *Config) { cfg.Static.RootDir = "  " },
			errorFields: []string{"static.root_dir"},
		},
		{
			name:          "missing root warns",
			mutate:        func(cfg *Config) { cfg.Static.RootDir = "/definitely/not/here" },
			warningFields: []string{"static.root_dir"},
		},
		{
			name:        "escaping not found page",
			mutate:      func(cfg *Config) { cfg.Static.NotFoundPage = "../404.html" },
			errorFields: []string{"static.not_found_page"},
		},
		{
			name: "cache without ttl",
			mutate: func(cfg *Config) {
				cfg.Static.CacheSize = 1024
				cfg.Static.CacheTTL = 0
			},
			errorFields: []string{"static.cache_ttl"},
		},
		{
			name: "live reload sharing the server port",
			mutate: func(cfg *Config) {
				cfg.Static.Watch = true
				cfg.LiveReload.Enabled = true
				cfg.LiveReload.Port = cfg.Server.Port
			},
			errorFields: []string{"live_reload.port"},
		},
		{
			name:          "live reload without watch",
			mutate:        func(cfg *Config) { cfg.LiveReload.Enabled = true },
			warningFields: []string{"live_reload.enabled"},
		},
		{
			name:        "bad log format",
			mutate:      func(cfg *Config) { cfg.Log.Format = "xml" },
			errorFields: []string{"log.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Static.RootDir = t.TempDir()
			tt.mutate(cfg)

			result := ValidateConfigWithDetails(cfg)

			assert.Equal(t, tt.errorFields, fieldsOf(result.Errors))
			assert.Equal(t, tt.warningFields, fieldsOf(result.Warnings))
			assert.Equal(t, len(tt.errorFields) == 0, result.Valid)

			if len(tt.errorFields) > 0 {
				assert.Error(t, cfg.Validate())
				assert.Contains(t, result.String(), "Validation errors:")
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func fieldsOf(issues []ValidationError) []string {
	var fields []string
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	return fields
}
