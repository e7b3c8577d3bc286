// Package config provides configuration structures and loading for GoAnonymize.
package config

import (
	"os"
	"strings"
)

// DefaultEnvironment is assumed when no environment is configured anywhere.
// It is deliberately one of the default restricted environments.
const DefaultEnvironment = "production"

// Config represents the complete application configuration.
type Config struct {
	Environment string          `yaml:"environment" mapstructure:"environment"`
	Database    DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Replica     ReplicaConfig   `yaml:"replica" mapstructure:"replica"`
	Anonymize   AnonymizeConfig `yaml:"anonymize" mapstructure:"anonymize"`
	Safety      SafetyConfig    `yaml:"safety" mapstructure:"safety"`
	Logging     LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents the MySQL database whose records are anonymized.
type DatabaseConfig struct {
	Connection         string `yaml:"connection" mapstructure:"connection"` // identifier matched against allowed_db_connections
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ReplicaConfig represents the replica database for replication lag monitoring.
type ReplicaConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// AnonymizeConfig holds the anonymization run settings.
type AnonymizeConfig struct {
	Locale       string  `yaml:"locale" mapstructure:"locale"`
	ChunkSize    int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	SleepSeconds float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"`
	FakerSeed    uint64  `yaml:"faker_seed" mapstructure:"faker_seed"` // 0 = random

	RestrictedEnv []string `yaml:"restricted_env" mapstructure:"restricted_env"`

	// AllowedDBConnections exempts connections from the restricted environment
	// check, but only when AllowedDBConnectionsEnabled is set.
	AllowedDBConnections        []string `yaml:"allowed_db_connections" mapstructure:"allowed_db_connections"`
	AllowedDBConnectionsEnabled bool     `yaml:"allowed_db_connections_enabled" mapstructure:"allowed_db_connections_enabled"`

	PriorityModels []string `yaml:"priority_models" mapstructure:"priority_models"`
}

// SafetyConfig represents safety settings for anonymization runs.
type SafetyConfig struct {
	LagThreshold  int  `yaml:"lag_threshold" mapstructure:"lag_threshold"`
	CheckInterval int  `yaml:"check_interval" mapstructure:"check_interval"`
	SkipLock      bool `yaml:"skip_lock" mapstructure:"skip_lock"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" mapstructure:"format"` // json or text
	Output     string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Connection:         "default",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Replica: ReplicaConfig{
			Enabled: false,
			Port:    3306,
		},
		Anonymize: AnonymizeConfig{
			Locale:         "en_US",
			ChunkSize:      1000,
			SleepSeconds:   0,
			RestrictedEnv:  DefaultRestrictedEnv(),
			PriorityModels: []string{},
		},
		Safety: SafetyConfig{
			LagThreshold:  10,
			CheckInterval: 5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// DefaultRestrictedEnv returns the environments that require confirmation
// when restricted_env is not configured.
func DefaultRestrictedEnv() []string {
	return []string{"production", "staging"}
}

// ResolveEnvironment returns the environment name the run executes in.
// Precedence: explicit override, configured environment, APP_ENV, DefaultEnvironment.
func (c *Config) ResolveEnvironment(override string) string {
	if env := strings.TrimSpace(override); env != "" {
		return env
	}
	if env := strings.TrimSpace(c.Environment); env != "" && !strings.HasPrefix(env, "$") {
		return env
	}
	if env := strings.TrimSpace(os.Getenv("APP_ENV")); env != "" {
		return env
	}
	return DefaultEnvironment
}
