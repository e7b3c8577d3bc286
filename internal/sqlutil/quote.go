// Package sqlutil provides SQL building helpers for GoAnonymize.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a MySQL identifier (table name, column name) with backticks.
// It escapes any existing backticks by doubling them.
// Example: "my_table" -> "`my_table`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex restricts identifiers to alphanumerics and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid MySQL identifier.
// Column names returned by a model's rewrite are checked with this before
// they are interpolated into an UPDATE.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a MySQL identifier after validating it.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// SetClause builds "`a` = ?, `b` = ?" for the given columns in order.
// Every column is validated first. Each pinned column not already set is
// appended as "`c` = `c`", which keeps MySQL from refreshing ON UPDATE
// CURRENT_TIMESTAMP columns.
func SetClause(columns []string, pinned ...string) (string, error) {
	parts := make([]string, 0, len(columns)+len(pinned))
	set := make(map[string]bool, len(columns))
	for _, col := range columns {
		quoted, err := QuoteIdentifierSafe(col)
		if err != nil {
			return "", err
		}
		parts = append(parts, quoted+" = ?")
		set[col] = true
	}
	for _, col := range pinned {
		if set[col] {
			continue
		}
		quoted, err := QuoteIdentifierSafe(col)
		if err != nil {
			return "", err
		}
		parts = append(parts, quoted+" = "+quoted)
		set[col] = true
	}
	return strings.Join(parts, ", "), nil
}
