package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotNil(t, cfg)
	assert.Equal(t, 4, cfg.M)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	valid := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "grpc transport",
			config:  valid(func(c *Config) { c.Transport = "grpc"; c.BasePort = 9000 }),
			wantErr: false,
		},
		{
			name:    "invalid M (too large)",
			config:  valid(func(c *Config) { c.M = 63 }),
			wantErr: true,
		},
		{
			name:    "invalid M (too small)",
			config:  valid(func(c *Config) { c.M = 0 }),
			wantErr: true,
		},
		{
			name:    "empty pattern",
			config:  valid(func(c *Config) { c.InputPattern = "" }),
			wantErr: true,
		},
		{
			name:    "negative participants",
			config:  valid(func(c *Config) { c.Participants = -2 }),
			wantErr: true,
		},
		{
			name:    "unknown transport",
			config:  valid(func(c *Config) { c.Transport = "mpi" }),
			wantErr: true,
		},
		{
			name:    "invalid base port",
			config:  valid(func(c *Config) { c.BasePort = 70000 }),
			wantErr: true,
		},
		{
			name:    "port range overflow",
			config:  valid(func(c *Config) { c.BasePort = 65530; c.Participants = 10 }),
			wantErr: true,
		},
		{
			name:    "unknown log format",
			config:  valid(func(c *Config) { c.LogFormat = "xml" }),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ring.yaml")
	content := `
m: 6
inputDir: /data/ring
transport: grpc
basePort: 7100
logLevel: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.M)
	assert.Equal(t, "/data/ring", cfg.InputDir)
	assert.Equal(t, "grpc", cfg.Transport)
	assert.Equal(t, 7100, cfg.BasePort)
	assert.Equal(t, "debug", cfg.LogLevel)

	// untouched keys keep their defaults
	assert.Equal(t, "in%d.txt", cfg.InputPattern)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("m: [unterminated"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse yaml")
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvM, "5")
	t.Setenv(EnvTransport, "grpc")
	t.Setenv(EnvBasePort, "7000")
	t.Setenv(EnvTraceAddr, "127.0.0.1:8090")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnvOverrides())

	assert.Equal(t, 5, cfg.M)
	assert.Equal(t, "grpc", cfg.Transport)
	assert.Equal(t, 7000, cfg.BasePort)
	assert.Equal(t, "127.0.0.1:8090", cfg.TraceAddr)
}

func TestApplyEnvOverridesMalformedInt(t *testing.T) {
	for _, env := range []string{EnvM, EnvParticipants, EnvBasePort} {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, "not-a-number")

			cfg := DefaultConfig()
			err := cfg.ApplyEnvOverrides()
			require.Error(t, err)
			assert.Contains(t, err.Error(), env)
		})
	}
}
