package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8001", cfg.Server.Addr())
	assert.Equal(t, 4, cfg.Server.Workers)

	assert.Equal(t, "./downloads", cfg.Output.Directory)
	assert.Equal(t, 24*time.Hour, cfg.Output.MaxAge)
	assert.Equal(t, time.Hour, cfg.Output.SweepInterval)

	assert.Equal(t, 30*time.Second, cfg.Extraction.MetadataTimeout)
	assert.Equal(t, 60*time.Second, cfg.Extraction.StreamTimeout)
	assert.Equal(t, MinEngineRetries, cfg.Extraction.EngineRetries)
	assert.Equal(t, []string{StrategyManaged, StrategyAPI, StrategyEmbed}, cfg.Extraction.Strategies)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGFETCH_PORT", "9090")
	t.Setenv("IGFETCH_WORKERS", "8")
	t.Setenv("IGFETCH_OUTPUT_DIR", "/tmp/igfetch-test")
	t.Setenv("IGFETCH_MAX_AGE", "2h")
	t.Setenv("IGFETCH_STRATEGIES", "direct_api, html_scraping")
	t.Setenv("IGFETCH_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Server.Workers)
	assert.Equal(t, "/tmp/igfetch-test", cfg.Output.Directory)
	assert.Equal(t, 2*time.Hour, cfg.Output.MaxAge)
	assert.Equal(t, []string{StrategyAPI, StrategyEmbed}, cfg.Extraction.Strategies)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("IGFETCH_PORT", "not-a-number")
	t.Setenv("IGFETCH_MAX_AGE", "forever")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGFETCH_PORT")
	assert.Contains(t, err.Error(), "IGFETCH_MAX_AGE")
	assert.Equal(t, 8001, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7000
output:
  directory: /srv/videos
  max_age: 30m
extraction:
  engine_retries: 7
  strategies: [html_scraping]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/srv/videos", cfg.Output.Directory)
	assert.Equal(t, 30*time.Minute, cfg.Output.MaxAge)
	assert.Equal(t, 7, cfg.Extraction.EngineRetries)
	assert.Equal(t, []string{StrategyEmbed}, cfg.Extraction.Strategies)
	// untouched sections keep defaults
	assert.Equal(t, 60*time.Second, cfg.Extraction.StreamTimeout)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "bad port", modify: func(c *Config) { c.Server.Port = 70000 }, wantErr: "port"},
		{name: "no workers", modify: func(c *Config) { c.Server.Workers = 0 }, wantErr: "workers"},
		{name: "no output dir", modify: func(c *Config) { c.Output.Directory = "" }, wantErr: "output directory"},
		{name: "too few retries", modify: func(c *Config) { c.Extraction.EngineRetries = 2 }, wantErr: "at least 5"},
		{name: "no strategies", modify: func(c *Config) { c.Extraction.Strategies = nil }, wantErr: "at least one"},
		{name: "unknown strategy", modify: func(c *Config) { c.Extraction.Strategies = []string{"magic"} }, wantErr: "unknown extraction strategy"},
		{name: "duplicate strategy", modify: func(c *Config) {
			c.Extraction.Strategies = []string{StrategyAPI, StrategyAPI}
		}, wantErr: "duplicate"},
		{name: "bad log level", modify: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "log level"},
		{name: "bad log format", modify: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOrderedStrategies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extraction.Strategies = []string{StrategyEmbed, StrategyManaged}
	assert.Equal(t, []string{StrategyManaged, StrategyEmbed}, cfg.OrderedStrategies())
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"port":       9000,
		"output":     "/tmp/out",
		"log-level":  "warn",
		"strategies": []string{StrategyAPI},
		"workers":    0, // zero values are ignored
		"host":       "",
	})

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/out", cfg.Output.Directory)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{StrategyAPI}, cfg.Extraction.Strategies)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = 8123
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "extraction")

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 8123, loaded.Server.Port)
	assert.Equal(t, cfg.Output.MaxAge, loaded.Output.MaxAge)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n  workers: 2\n"), 0644))

	t.Setenv("IGFETCH_PORT", "7500")
	t.Setenv("IGFETCH_WORKERS", "")

	cfg, err := Load(path, map[string]interface{}{"output": filepath.Join(dir, "out")})
	require.NoError(t, err)

	assert.Equal(t, 7500, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.Workers)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Directory)

	_, err = Load(path, map[string]interface{}{"log-level": "shouting"})
	assert.Error(t, err)
}
