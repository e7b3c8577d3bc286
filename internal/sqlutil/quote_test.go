package sqlutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "users", "`users`"},
		{"underscore", "user_profiles", "`user_profiles`"},
		{"embedded backtick", "my`table", "`my``table`"},
		{"empty", "", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.input))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"users", "User_1", "deleted_at", "ID"}
	invalid := []string{"", "users; DROP TABLE x", "first-name", "a.b", "na me", "`x`"}

	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), name)
	}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), name)
	}
}

func TestQuoteIdentifierSafe(t *testing.T) {
	quoted, err := QuoteIdentifierSafe("email")
	require.NoError(t, err)
	assert.Equal(t, "`email`", quoted)

	_, err = QuoteIdentifierSafe("email = 'x'")
	require.Error(t, err)

	var invalid *InvalidIdentifierError
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, "email = 'x'", invalid.Name)
	assert.Contains(t, err.Error(), "invalid identifier")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}

func TestSetClause(t *testing.T) {
	clause, err := SetClause([]string{"email", "name"})
	require.NoError(t, err)
	assert.Equal(t, "`email` = ?, `name` = ?", clause)

	_, err = SetClause([]string{"email", "name=1"})
	assert.Error(t, err)
}

func TestSetClause_Pinned(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		pinned  []string
		want    string
		wantErr bool
	}{
		{name: "pinned appended", columns: []string{"name"}, pinned: []string{"updated_at"}, want: "`name` = ?, `updated_at` = `updated_at`"},
		{name: "explicit value wins", columns: []string{"updated_at"}, pinned: []string{"updated_at"}, want: "`updated_at` = ?"},
		{name: "duplicate pins collapse", columns: []string{"name"}, pinned: []string{"ts", "ts"}, want: "`name` = ?, `ts` = `ts`"},
		{name: "invalid pinned column", columns: []string{"name"}, pinned: []string{"ts`x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SetClause(tt.columns, tt.pinned...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
