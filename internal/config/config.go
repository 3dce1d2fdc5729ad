package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the assertions daemon.
type Config struct {
	// Mode selects test/development/production behavior (see mode.go).
	Mode string `yaml:"mode"`

	Graph      GraphConfig      `yaml:"graph"`
	Relational RelationalConfig `yaml:"relational"`
	Server     ServerConfig     `yaml:"server"`
	Health     HealthConfig     `yaml:"health"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

// GraphConfig holds Neo4j connection settings.
type GraphConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RelationalConfig holds Postgres connection settings.
type RelationalConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// ServerConfig holds HTTP/WebSocket transport settings.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// HealthConfig controls whether /health/jobs is exposed.
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JobsConfig holds scheduled-maintenance intervals and retention.
type JobsConfig struct {
	DraftCleanupInterval      time.Duration `yaml:"draft_cleanup_interval"`
	IdempotencyCleanupInterval time.Duration `yaml:"idempotency_cleanup_interval"`
	OutboxCleanupInterval      time.Duration `yaml:"outbox_cleanup_interval"`
	OutboxRetention            time.Duration `yaml:"outbox_retention"`
}

// Default returns sensible defaults for local development.
func Default() *Config {
	return &Config{
		Mode: "development",
		Graph: GraphConfig{
			URI:      "neo4j://localhost:7687",
			User:     "neo4j",
			Password: "password",
			Database: "neo4j",
		},
		Relational: RelationalConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "assertions",
			User:     "assertions",
			Password: "assertions",
			SSLMode:  "disable",
		},
		Server: ServerConfig{
			Port:       8080,
			CORSOrigin: "http://localhost:3000",
		},
		Health: HealthConfig{
			Enabled: true,
		},
		Jobs: JobsConfig{
			DraftCleanupInterval:       12 * time.Hour,
			IdempotencyCleanupInterval: 12 * time.Hour,
			OutboxCleanupInterval:      1 * time.Hour,
			OutboxRetention:            7 * 24 * time.Hour,
		},
	}
}

// Load loads configuration from a YAML file, .env overrides, and the
// environment, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("relational", cfg.Relational)
	v.SetDefault("server", cfg.Server)
	v.SetDefault("health", cfg.Health)
	v.SetDefault("jobs", cfg.Jobs)

	v.SetEnvPrefix("ASSERTIONS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence. Skipped entirely
// in production, where configuration must come from the real environment.
func loadEnvFiles() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}

	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies explicit environment variable overrides,
// taking precedence over both the config file and viper's AutomaticEnv
// binding (which only matches ASSERTIONS_-prefixed keys).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAPH_URI"); v != "" {
		cfg.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_USER"); v != "" {
		cfg.Graph.User = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		cfg.Graph.Password = v
	}
	if v := os.Getenv("GRAPH_DATABASE"); v != "" {
		cfg.Graph.Database = v
	}

	if v := os.Getenv("RELATIONAL_HOST"); v != "" {
		cfg.Relational.Host = v
	}
	if v := os.Getenv("RELATIONAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Relational.Port = port
		}
	}
	if v := os.Getenv("RELATIONAL_DATABASE"); v != "" {
		cfg.Relational.Database = v
	}
	if v := os.Getenv("RELATIONAL_USER"); v != "" {
		cfg.Relational.User = v
	}
	if v := os.Getenv("RELATIONAL_PASSWORD"); v != "" {
		cfg.Relational.Password = v
	}
	if v := os.Getenv("RELATIONAL_SSLMODE"); v != "" {
		cfg.Relational.SSLMode = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.Server.CORSOrigin = v
	}

	if v := os.Getenv("HEALTH_ENDPOINTS_ENABLED"); v != "" {
		cfg.Health.Enabled = v == "true"
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Mode = v
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration to a YAML file at path, creating its
// directory if needed.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("mode", c.Mode)
	v.Set("graph", c.Graph)
	v.Set("relational", c.Relational)
	v.Set("server", c.Server)
	v.Set("health", c.Health)
	v.Set("jobs", c.Jobs)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
