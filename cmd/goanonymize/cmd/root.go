package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goanonymize/internal/config"
	"github.com/dbsmedya/goanonymize/internal/logger"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	envName      string
	logLevel     string
	logFormat    string
	chunkSize    int
	sleepSeconds float64
	locale       string
	noProgress   bool
)

// registry supplies the models every command works on.
var registry = anonymize.Default()

var rootCmd = &cobra.Command{
	Use:   "goanonymize",
	Short: "MySQL record anonymizer",
	Long: `A CLI tool for overwriting sensitive MySQL records with synthetic values
in bounded, transactional chunks.

Features:
  - Models registered in Go decide what each record is rewritten to
  - One transaction per chunk, keyset pagination by primary key
  - Related records updated before their parent
  - Confirmation required in restricted environments
  - Replication lag monitoring and an advisory run lock`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetRegistry replaces the registry the commands read models from.
// Applications that keep their own registry call it before Execute.
func SetRegistry(r *anonymize.Registry) {
	registry = r
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goanonymize.yaml",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "",
		"Environment name (overrides config environment and APP_ENV)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0,
		"Override chunk size (records per transaction)")
	rootCmd.PersistentFlags().Float64Var(&sleepSeconds, "sleep", 0,
		"Override sleep seconds between chunks")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "",
		"Override faker locale (e.g. en_US)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false,
		"Print plain lines instead of progress bars")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		ChunkSize:    chunkSize,
		SleepSeconds: sleepSeconds,
		Locale:       locale,
	}
}

// loadConfig reads the config file, applies flag overrides and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(GetCLIOverrides())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and builds the logger.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
