package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level
	LogFile    string `yaml:"log_file"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Device struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"device"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Dashboard struct {
		RecentLogs int `yaml:"recent_logs"`
	} `yaml:"dashboard"`

	Datadog struct {
		Enabled   bool     `yaml:"enabled"`
		AgentAddr string   `yaml:"agent_addr"`
		Namespace string   `yaml:"namespace"`
		Tags      []string `yaml:"tags"`
	} `yaml:"datadog"`

	Ntfy struct {
		Topic string `yaml:"topic"`
	} `yaml:"ntfy"`
}

func Load() (*Config, error) {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.yml", "Path to service config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile parses a config file without touching the flag set. Used by
// tests and tooling.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	cfg.ConfigFile = path
	cfg.LogLevel = zerolog.InfoLevel

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Device.TimeoutSeconds == 0 {
		cfg.Device.TimeoutSeconds = 10
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/rainstation.db"
	}
	if cfg.Dashboard.RecentLogs == 0 {
		cfg.Dashboard.RecentLogs = 10
	}
	if cfg.Datadog.AgentAddr == "" {
		cfg.Datadog.AgentAddr = "127.0.0.1:8125"
	}
	if cfg.Datadog.Namespace == "" {
		cfg.Datadog.Namespace = "rainstation."
	}
}

func (cfg *Config) validate() error {
	if cfg.Device.BaseURL == "" {
		return fmt.Errorf("config: device.base_url is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Device.TimeoutSeconds < 1 {
		return fmt.Errorf("config: device.timeout_seconds must be positive")
	}
	return nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
