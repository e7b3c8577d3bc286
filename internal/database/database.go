// Package database manages the MySQL connections goanonymize writes through
// and monitors.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/dbsmedya/goanonymize/internal/config"
)

// Manager owns the target connection and, when enabled, the replica used for
// lag monitoring.
type Manager struct {
	Target  *sql.DB
	Replica *sql.DB
	config  *config.Config

	// open is swapped in tests.
	open func(dsn string) (*sql.DB, error)
}

// NewManager creates a manager. Nothing is opened until Connect.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

// Connect opens the target and, if configured, the replica.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.ConnectTarget(ctx); err != nil {
		return err
	}

	if m.config.Replica.Enabled {
		replicaCfg := &config.DatabaseConfig{
			Host:     m.config.Replica.Host,
			Port:     m.config.Replica.Port,
			User:     m.config.Replica.User,
			Password: m.config.Replica.Password,
			TLS:      m.config.Database.TLS,
		}
		var err error
		m.Replica, err = m.connectWithRetry(ctx, replicaCfg)
		if err != nil {
			_ = m.Target.Close()
			m.Target = nil
			return fmt.Errorf("failed to connect to replica database: %w", err)
		}
	}
	return nil
}

// ConnectTarget opens only the target database. Read-only commands use it.
func (m *Manager) ConnectTarget(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx, &m.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to target database %q: %w", m.config.Database.Connection, err)
	}
	m.Target = db
	return nil
}

// connectWithRetry pings up to three times with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	const maxRetries = 3
	backoff := time.Second

	var err error
	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = m.connect(cfg)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}
			_ = db.Close()
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

func (m *Manager) connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := m.open(BuildDSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN builds a go-sql-driver/mysql DSN:
// user:password@tcp(host:port)/database?parseTime=true&tls=...
func BuildDSN(cfg *config.DatabaseConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	default:
		params += "&tls=preferred"
	}
	return dsn + params
}

// Close closes every open connection.
func (m *Manager) Close() error {
	var errs []error
	if m.Replica != nil {
		if err := m.Replica.Close(); err != nil {
			errs = append(errs, fmt.Errorf("replica close: %w", err))
		}
	}
	if m.Target != nil {
		if err := m.Target.Close(); err != nil {
			errs = append(errs, fmt.Errorf("target close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping verifies every open connection.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Target != nil {
		if err := m.Target.PingContext(ctx); err != nil {
			return fmt.Errorf("target ping failed: %w", err)
		}
	}
	if m.Replica != nil {
		if err := m.Replica.PingContext(ctx); err != nil {
			return fmt.Errorf("replica ping failed: %w", err)
		}
	}
	return nil
}
