package guard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goanonymize/internal/config"
)

// countingConfirmer records prompts and returns a fixed answer.
type countingConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (c *countingConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

func guardConfig(mutate func(*config.Config)) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Database.Connection = "mysql_main"
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func TestGuard_IsRestricted(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		mutate   func(*config.Config)
		expected bool
	}{
		{name: "production is restricted by default", env: "production", expected: true},
		{name: "staging is restricted by default", env: "staging", expected: true},
		{name: "local is not restricted", env: "local", expected: false},
		{name: "case insensitive", env: "Production", expected: true},
		{
			name:     "empty restricted list",
			env:      "production",
			mutate:   func(c *config.Config) { c.Anonymize.RestrictedEnv = []string{} },
			expected: false,
		},
		{
			name: "allow list ignored without toggle",
			env:  "production",
			mutate: func(c *config.Config) {
				c.Anonymize.AllowedDBConnections = []string{"mysql_main"}
			},
			expected: true,
		},
		{
			name: "allow list honored with toggle",
			env:  "production",
			mutate: func(c *config.Config) {
				c.Anonymize.AllowedDBConnections = []string{"mysql_main"}
				c.Anonymize.AllowedDBConnectionsEnabled = true
			},
			expected: false,
		},
		{
			name: "allow list enabled but connection not listed",
			env:  "production",
			mutate: func(c *config.Config) {
				c.Anonymize.AllowedDBConnections = []string{"reporting"}
				c.Anonymize.AllowedDBConnectionsEnabled = true
			},
			expected: true,
		},
		{
			name: "custom restricted list",
			env:  "qa",
			mutate: func(c *config.Config) {
				c.Anonymize.RestrictedEnv = []string{"qa"}
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(guardConfig(tt.mutate), tt.env, WithConfirmer(&countingConfirmer{}))
			assert.Equal(t, tt.expected, g.IsRestricted())
		})
	}
}

func TestGuard_ConfirmToProceed_NotRestrictedNeverPrompts(t *testing.T) {
	c := &countingConfirmer{answer: false}
	g := New(guardConfig(nil), "local", WithConfirmer(c))

	ok, err := g.ConfirmToProceed(context.Background(), "", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, c.prompts)
}

func TestGuard_ConfirmToProceed_CustomCheck(t *testing.T) {
	c := &countingConfirmer{answer: false}
	g := New(guardConfig(nil), "local", WithConfirmer(c))

	ok, err := g.ConfirmToProceed(context.Background(), "Wipe", func() bool { return true })
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "Wipe")
	assert.Contains(t, c.prompts[0], `"local"`)
	assert.Contains(t, c.prompts[0], `"mysql_main"`)
}

func TestGuard_ConfirmToProceed_Restricted(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		c := &countingConfirmer{answer: true}
		g := New(guardConfig(nil), "production", WithConfirmer(c))
		ok, err := g.ConfirmToProceed(context.Background(), "", nil)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Len(t, c.prompts, 1)
	})

	t.Run("declined", func(t *testing.T) {
		c := &countingConfirmer{answer: false}
		g := New(guardConfig(nil), "production", WithConfirmer(c))
		ok, err := g.ConfirmToProceed(context.Background(), "", nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("force skips prompt", func(t *testing.T) {
		c := &countingConfirmer{answer: false}
		g := New(guardConfig(nil), "production", WithConfirmer(c), WithForce(true))
		ok, err := g.ConfirmToProceed(context.Background(), "", nil)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, c.prompts)
	})

	t.Run("confirmer error", func(t *testing.T) {
		c := &countingConfirmer{err: errors.New("tty gone")}
		g := New(guardConfig(nil), "production", WithConfirmer(c))
		ok, err := g.ConfirmToProceed(context.Background(), "", nil)
		assert.EqualError(t, err, "tty gone")
		assert.False(t, ok)
	})
}

func TestGuard_ConfirmerFunc(t *testing.T) {
	called := false
	g := New(guardConfig(nil), "staging", WithConfirmer(ConfirmerFunc(func(context.Context, string) (bool, error) {
		called = true
		return true, nil
	})))

	ok, err := g.ConfirmToProceed(context.Background(), "", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
	assert.Equal(t, "staging", g.Environment())
	assert.Equal(t, "mysql_main", g.Connection())
}

func TestTerminalConfirmer(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := &TerminalConfirmer{
				In:         strings.NewReader(tt.input),
				Out:        &out,
				IsTerminal: func() bool { return true },
			}
			ok, err := c.Confirm(context.Background(), "Anonymize")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
			assert.Contains(t, out.String(), "Anonymize? [y/N]: ")
		})
	}
}

func TestTerminalConfirmer_NonInteractiveDeclines(t *testing.T) {
	var out bytes.Buffer
	c := &TerminalConfirmer{
		In:         strings.NewReader("yes\n"),
		Out:        &out,
		IsTerminal: func() bool { return false },
	}

	ok, err := c.Confirm(context.Background(), "Anonymize")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "not a terminal")
}

func TestTerminalConfirmer_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	c := &TerminalConfirmer{In: pr, Out: io.Discard, IsTerminal: func() bool { return true }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := c.Confirm(ctx, "Anonymize")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestTerminalConfirmer_AnswerAfterCancelServesNextPrompt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	c := &TerminalConfirmer{In: pr, Out: io.Discard, IsTerminal: func() bool { return true }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Confirm(ctx, "Anonymize")
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = pw.Write([]byte("yes\n")) }()

	ok, err := c.Confirm(context.Background(), "Anonymize")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTerminalConfirmer_ClosedInputDeclinesEveryPrompt(t *testing.T) {
	c := &TerminalConfirmer{In: strings.NewReader(""), Out: io.Discard, IsTerminal: func() bool { return true }}

	for i := 0; i < 2; i++ {
		ok, err := c.Confirm(context.Background(), "Anonymize")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
