package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Strategy names accepted in ExtractionConfig.Strategies
const (
	StrategyManaged = "ytdlp_enhanced"
	StrategyAPI     = "direct_api"
	StrategyEmbed   = "html_scraping"
)

// MinEngineRetries is the lowest retry count handed to the extraction engine
const MinEngineRetries = 5

// Config holds all configuration options for igfetch
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string        `yaml:"host" json:"host"`
	Port           int           `yaml:"port" json:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	Workers        int           `yaml:"workers" json:"workers"`
	QueueSize      int           `yaml:"queue_size" json:"queue_size"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig holds download directory and retention settings
type OutputConfig struct {
	Directory     string        `yaml:"directory" json:"directory"`
	MaxAge        time.Duration `yaml:"max_age" json:"max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// ExtractionConfig holds settings for the strategy chain
type ExtractionConfig struct {
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" json:"metadata_timeout"`
	StreamTimeout   time.Duration `yaml:"stream_timeout" json:"stream_timeout"`
	EngineTimeout   time.Duration `yaml:"engine_timeout" json:"engine_timeout"`
	EngineRetries   int           `yaml:"engine_retries" json:"engine_retries"`
	EngineBinary    string        `yaml:"engine_binary" json:"engine_binary"`
	Strategies      []string      `yaml:"strategies" json:"strategies"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8001,
			RequestTimeout: 10 * time.Minute,
			Workers:        4,
			QueueSize:      32,
		},
		Output: OutputConfig{
			Directory:     "./downloads",
			MaxAge:        24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Extraction: ExtractionConfig{
			BaseURL:         "https://www.instagram.com",
			MetadataTimeout: 30 * time.Second,
			StreamTimeout:   60 * time.Second,
			EngineTimeout:   5 * time.Minute,
			EngineRetries:   MinEngineRetries,
			EngineBinary:    "yt-dlp",
			Strategies:      []string{StrategyManaged, StrategyAPI, StrategyEmbed},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("IGFETCH_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("IGFETCH_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFETCH_PORT: %w", err))
		} else {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("IGFETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFETCH_WORKERS: %w", err))
		} else {
			c.Server.Workers = n
		}
	}
	if v := os.Getenv("IGFETCH_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("IGFETCH_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFETCH_MAX_AGE: %w", err))
		} else {
			c.Output.MaxAge = d
		}
	}
	if v := os.Getenv("IGFETCH_ENGINE_BINARY"); v != "" {
		c.Extraction.EngineBinary = v
	}
	if v := os.Getenv("IGFETCH_ENGINE_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFETCH_ENGINE_RETRIES: %w", err))
		} else {
			c.Extraction.EngineRetries = n
		}
	}
	if v := os.Getenv("IGFETCH_STRATEGIES"); v != "" {
		c.Extraction.Strategies = splitList(v)
	}
	if v := os.Getenv("IGFETCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IGFETCH_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("IGFETCH_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igfetch.yaml",
		".igfetch.yml",
		filepath.Join(home, ".config", "igfetch", "config.yaml"),
		filepath.Join(home, ".config", "igfetch", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	if c.Server.Workers <= 0 {
		errs = append(errs, errors.New("server workers must be positive"))
	}
	if c.Server.QueueSize < 0 {
		errs = append(errs, errors.New("server queue size cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.MaxAge < 0 {
		errs = append(errs, errors.New("output max age cannot be negative"))
	}

	if c.Extraction.BaseURL == "" {
		errs = append(errs, errors.New("extraction base URL is required"))
	}
	if c.Extraction.MetadataTimeout <= 0 || c.Extraction.StreamTimeout <= 0 {
		errs = append(errs, errors.New("extraction timeouts must be positive"))
	}
	if c.Extraction.EngineRetries < MinEngineRetries {
		errs = append(errs, fmt.Errorf("engine retries must be at least %d", MinEngineRetries))
	}
	if len(c.Extraction.Strategies) == 0 {
		errs = append(errs, errors.New("at least one extraction strategy is required"))
	}
	seen := make(map[string]bool)
	for _, name := range c.Extraction.Strategies {
		switch name {
		case StrategyManaged, StrategyAPI, StrategyEmbed:
		default:
			errs = append(errs, fmt.Errorf("unknown extraction strategy %q", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate extraction strategy %q", name))
		}
		seen[name] = true
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "console", "json":
	default:
		errs = append(errs, errors.New("invalid log format"))
	}

	return errors.Join(errs...)
}

// OrderedStrategies returns the configured strategies in the fixed chain
// order, whatever order they were listed in.
func (c *Config) OrderedStrategies() []string {
	enabled := make(map[string]bool, len(c.Extraction.Strategies))
	for _, name := range c.Extraction.Strategies {
		enabled[name] = true
	}
	var out []string
	for _, name := range []string{StrategyManaged, StrategyAPI, StrategyEmbed} {
		if enabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Server.Workers = workers
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if binary, ok := flags["engine-binary"].(string); ok && binary != "" {
		c.Extraction.EngineBinary = binary
	}
	if strategies, ok := flags["strategies"].([]string); ok && len(strategies) > 0 {
		c.Extraction.Strategies = strategies
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
