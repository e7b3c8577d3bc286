package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	// Slices are decoded into the existing backing array, so a shorter list in
	// the file would keep trailing defaults. Start from nil instead.
	cfg.Anonymize.RestrictedEnv = nil

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !v.IsSet("anonymize.restricted_env") {
		cfg.Anonymize.RestrictedEnv = DefaultRestrictedEnv()
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	cfg.Environment = expandEnvVar(cfg.Environment)

	cfg.Database.Connection = expandEnvVar(cfg.Database.Connection)
	cfg.Database.Host = expandEnvVar(cfg.Database.Host)
	cfg.Database.User = expandEnvVar(cfg.Database.User)
	cfg.Database.Password = expandEnvVar(cfg.Database.Password)
	cfg.Database.Database = expandEnvVar(cfg.Database.Database)

	cfg.Replica.Host = expandEnvVar(cfg.Replica.Host)
	cfg.Replica.User = expandEnvVar(cfg.Replica.User)
	cfg.Replica.Password = expandEnvVar(cfg.Replica.Password)

	cfg.Anonymize.Locale = expandEnvVar(cfg.Anonymize.Locale)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// Overrides contains CLI flag values that take precedence over the file.
// Zero values leave the file setting untouched.
type Overrides struct {
	LogLevel     string
	LogFormat    string
	ChunkSize    int
	SleepSeconds float64
	Locale       string
	SkipLock     bool
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.ChunkSize > 0 {
		c.Anonymize.ChunkSize = o.ChunkSize
	}
	if o.SleepSeconds > 0 {
		c.Anonymize.SleepSeconds = o.SleepSeconds
	}
	if o.Locale != "" {
		c.Anonymize.Locale = o.Locale
	}
	if o.SkipLock {
		c.Safety.SkipLock = true
	}
}
