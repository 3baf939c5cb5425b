// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config defines the Journey Dynamics configuration schema and
// helpers for loading and validating it. Only ambient, deployment-level
// settings live here: which Postgres database to use, where to bind the
// HTTP listener, how verbose to log, and which decision-graph/schema
// documents to compile at startup. The injected capabilities themselves
// (decision engine, schema validator, event store) are never constructed
// from this file — only the paths/DSNs that parameterise them.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist at the given path.
var ErrConfigNotFound = errors.New("journeyd config not found")

// Config is the top-level Journey Dynamics configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	DecisionEngine DecisionEngineConfig `yaml:"decision_engine"`
	Schema         SchemaConfig         `yaml:"schema"`
}

// ServerConfig describes the HTTP listener and logging verbosity.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig describes how to reach the event store's Postgres database.
type DatabaseConfig struct {
	// ConnectionEnv names the environment variable holding the DSN, so the
	// DSN itself (which may carry credentials) never has to live in the
	// YAML file on disk.
	ConnectionEnv string `yaml:"connection_env"`
}

// DecisionEngineConfig selects the decision graph document to compile.
type DecisionEngineConfig struct {
	GraphPath string `yaml:"graph_path"`
}

// SchemaConfig selects the JSON Schema document to compile.
type SchemaConfig struct {
	SchemaPath string `yaml:"schema_path"`
}

// DefaultConfigPath returns the default config path for the current working directory.
func DefaultConfigPath() string {
	return "journeyd.yml"
}

// Exists reports whether a config file exists at the given path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Load reads and validates the config from the given path.
//
// It returns ErrConfigNotFound if the file does not exist.
func Load(path string) (*Config, error) {
	exists, err := Exists(path)
	if err != nil {
		return nil, fmt.Errorf("checking config existence: %w", err)
	}
	if !exists {
		return nil, ErrConfigNotFound
	}

	// nolint:gosec // G304: reading config file from an operator-specified path is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a Config populated with the service's built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			ConnectionEnv: "JOURNEYD_DATABASE_URL",
		},
		DecisionEngine: DecisionEngineConfig{
			GraphPath: "config/decision-graph.json",
		},
		Schema: SchemaConfig{
			SchemaPath: "config/journey.schema.json",
		},
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("config: server.addr must be non-empty")
	}
	if cfg.Database.ConnectionEnv == "" {
		return errors.New("config: database.connection_env must be non-empty")
	}
	if cfg.DecisionEngine.GraphPath == "" {
		return errors.New("config: decision_engine.graph_path must be non-empty")
	}
	if cfg.Schema.SchemaPath == "" {
		return errors.New("config: schema.schema_path must be non-empty")
	}
	return nil
}

// ConnectionString resolves the Postgres DSN from the environment variable
// named by Database.ConnectionEnv.
func (c *Config) ConnectionString() (string, error) {
	dsn := os.Getenv(c.Database.ConnectionEnv)
	if dsn == "" {
		return "", fmt.Errorf("environment variable %q is not set", c.Database.ConnectionEnv)
	}
	return dsn, nil
}
