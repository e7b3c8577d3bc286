// Package guard decides whether an anonymization run may write to the
// configured database in the current environment.
package guard

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/dbsmedya/goanonymize/internal/config"
	"github.com/dbsmedya/goanonymize/internal/logger"
)

// Confirmer asks the operator whether to continue.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Guard holds the environment facts a run is checked against.
type Guard struct {
	environment      string
	connection       string
	restricted       []string
	allowed          []string
	allowListEnabled bool

	force     bool
	confirmer Confirmer
	logger    *logger.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithForce skips confirmation in restricted environments.
func WithForce(force bool) Option {
	return func(g *Guard) { g.force = force }
}

// WithConfirmer replaces the terminal prompt.
func WithConfirmer(c Confirmer) Option {
	return func(g *Guard) { g.confirmer = c }
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *logger.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New builds a Guard for cfg running in environment.
func New(cfg *config.Config, environment string, opts ...Option) *Guard {
	g := &Guard{
		environment:      strings.TrimSpace(environment),
		connection:       cfg.Database.Connection,
		restricted:       cfg.Anonymize.RestrictedEnv,
		allowed:          cfg.Anonymize.AllowedDBConnections,
		allowListEnabled: cfg.Anonymize.AllowedDBConnectionsEnabled,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.NewNop()
	}
	if g.confirmer == nil {
		g.confirmer = NewTerminalConfirmer()
	}
	return g
}

// Environment returns the environment the guard evaluates.
func (g *Guard) Environment() string { return g.environment }

// Connection returns the configured connection identifier.
func (g *Guard) Connection() string { return g.connection }

// IsRestricted reports whether the environment requires confirmation.
// Environment names compare case-insensitively. A connection listed in
// allowed_db_connections is exempt only when the allow list is enabled.
func (g *Guard) IsRestricted() bool {
	restricted := lo.ContainsBy(g.restricted, func(env string) bool {
		return strings.EqualFold(strings.TrimSpace(env), g.environment)
	})
	if !restricted {
		return false
	}
	if g.allowListEnabled && lo.Contains(g.allowed, g.connection) {
		return false
	}
	return true
}

// ConfirmToProceed returns true when the run may continue. check defaults
// to IsRestricted; when it reports false no prompt is shown. In a restricted
// environment --force proceeds with a warning and otherwise the operator is
// asked, defaulting to no.
func (g *Guard) ConfirmToProceed(ctx context.Context, promptContext string, check func() bool) (bool, error) {
	if check == nil {
		check = g.IsRestricted
	}
	if !check() {
		return true, nil
	}

	if g.force {
		g.logger.Warnw("Proceeding in restricted environment because --force was given",
			"environment", g.environment,
			"connection", g.connection,
		)
		return true, nil
	}

	prompt := promptContext
	if prompt == "" {
		prompt = "Anonymize records"
	}
	ok, err := g.confirmer.Confirm(ctx, prompt+" in environment \""+g.environment+"\" on connection \""+g.connection+"\"")
	if err != nil {
		return false, err
	}
	if !ok {
		g.logger.Warnw("Run declined", "environment", g.environment)
	}
	return ok, nil
}
