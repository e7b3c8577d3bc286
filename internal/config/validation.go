package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/goanonymize/pkg/faker"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase()...)

	if c.Replica.Enabled {
		errors = append(errors, c.validateReplica()...)
	}

	errors = append(errors, c.validateAnonymize()...)
	errors = append(errors, c.validateSafety()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors
	db := &c.Database

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   "database.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateReplica() ValidationErrors {
	var errors ValidationErrors

	if c.Replica.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "replica.host",
			Message: "host is required when replica is enabled",
		})
	}

	if c.Replica.Port <= 0 || c.Replica.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "replica.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if c.Replica.User == "" {
		errors = append(errors, ValidationError{
			Field:   "replica.user",
			Message: "user is required when replica is enabled",
		})
	}

	return errors
}

func (c *Config) validateAnonymize() ValidationErrors {
	var errors ValidationErrors
	a := &c.Anonymize

	if a.ChunkSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "anonymize.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if a.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "anonymize.sleep_seconds",
			Message: "sleep_seconds cannot be negative",
		})
	}

	if a.Locale != "" {
		if _, err := faker.ParseLocale(a.Locale); err != nil {
			errors = append(errors, ValidationError{
				Field:   "anonymize.locale",
				Message: fmt.Sprintf("invalid locale %q: %v", a.Locale, err),
			})
		}
	}

	for i, env := range a.RestrictedEnv {
		if strings.TrimSpace(env) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("anonymize.restricted_env[%d]", i),
				Message: "environment name cannot be empty",
			})
		}
	}

	seen := make(map[string]bool, len(a.PriorityModels))
	for i, name := range a.PriorityModels {
		field := fmt.Sprintf("anonymize.priority_models[%d]", i)
		if strings.TrimSpace(name) == "" {
			errors = append(errors, ValidationError{Field: field, Message: "model name cannot be empty"})
			continue
		}
		if seen[name] {
			errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf("model %q listed more than once", name)})
		}
		seen[name] = true
	}

	return errors
}

func (c *Config) validateSafety() ValidationErrors {
	var errors ValidationErrors

	if c.Safety.LagThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.lag_threshold",
			Message: "lag_threshold cannot be negative",
		})
	}

	if c.Safety.CheckInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.check_interval",
			Message: "check_interval cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "rotation settings cannot be negative",
		})
	}

	return errors
}
