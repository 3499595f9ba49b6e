package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uiprobe/uiprobe/internal/scoring"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	AuthToken         string        `yaml:"auth_token"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	// ClientBuffer is how many frames a transport may fall behind before
	// its writes fail and the bus drops it.
	ClientBuffer int `yaml:"client_buffer"`
}

type WorkflowConfig struct {
	// Workers bounds how many components are tested concurrently.
	Workers        int           `yaml:"workers"`
	MaxFixAttempts int           `yaml:"max_fix_attempts"`
	StepDelay      time.Duration `yaml:"step_delay"`
	// Seed makes simulated runs reproducible; 0 seeds from the clock.
	Seed  int64    `yaml:"seed"`
	Tests []string `yaml:"tests"`
}

type ScoringConfig struct {
	Performance scoring.LoadThresholds `yaml:"performance"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			HeartbeatInterval: 30 * time.Second,
			ClientBuffer:      64,
		},
		Workflow: WorkflowConfig{
			Workers:        4,
			MaxFixAttempts: 3,
			StepDelay:      150 * time.Millisecond,
			Tests:          []string{"accessibility", "performance"},
		},
		Scoring: ScoringConfig{
			Performance: scoring.DefaultLoadThresholds(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults, so absent keys keep their default
// values. An empty path returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Workflow.Workers <= 0 {
		return fmt.Errorf("workflow.workers must be positive, got %d", c.Workflow.Workers)
	}
	if c.Workflow.MaxFixAttempts < 0 {
		return fmt.Errorf("workflow.max_fix_attempts must not be negative, got %d", c.Workflow.MaxFixAttempts)
	}
	if c.Server.ClientBuffer <= 0 {
		return fmt.Errorf("server.client_buffer must be positive, got %d", c.Server.ClientBuffer)
	}
	return nil
}
