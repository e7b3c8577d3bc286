package anonymizer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/dbsmedya/goanonymize/internal/logger"
	"github.com/dbsmedya/goanonymize/internal/sqlutil"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

// PreflightError is a failed preflight check.
type PreflightError struct {
	Check   string
	Message string
	Tables  []string
}

func (e *PreflightError) Error() string {
	if len(e.Tables) > 0 {
		return fmt.Sprintf("%s: %s (tables: %v)", e.Check, e.Message, e.Tables)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// PreflightChecker validates planned types against information_schema
// before anything is written.
type PreflightChecker struct {
	db       *sql.DB
	database string
	logger   *logger.Logger
}

// NewPreflightChecker creates a checker for the target database schema.
func NewPreflightChecker(db *sql.DB, database string, log *logger.Logger) (*PreflightChecker, error) {
	if db == nil {
		return nil, errors.New("database is nil")
	}
	if database == "" {
		return nil, errors.New("database name is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PreflightChecker{db: db, database: database, logger: log}, nil
}

// RunAllChecks validates declarations, table and key columns, UPDATE
// triggers and ON UPDATE CASCADE rules for the plan, then reports the
// auto-updating timestamp columns writes will pin.
func (p *PreflightChecker) RunAllChecks(ctx context.Context, plan *RunPlan, forceTriggers bool) error {
	p.logger.Info("Running preflight checks...")
	types := plan.Types()

	for _, t := range types {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	tables := PlanTables(types)
	if len(tables) == 0 {
		p.logger.Info("No models planned, nothing to check")
		return nil
	}

	if err := p.ValidateTablesExist(ctx, tables); err != nil {
		return err
	}
	if err := p.ValidateKeyColumns(ctx, types); err != nil {
		return err
	}
	if err := p.ValidateTriggers(ctx, tables, forceTriggers); err != nil {
		return err
	}
	if err := p.WarnCascadeRules(ctx, tables); err != nil {
		return err
	}
	pinned, err := p.AutoUpdateColumns(ctx, tables)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if cols := pinned[table]; len(cols) > 0 {
			p.logger.Infof("%s: ON UPDATE columns %v will keep their values", table, cols)
		}
	}

	p.logger.Info("All preflight checks PASSED")
	return nil
}

// PlanTables returns every table the types write to, sorted.
func PlanTables(types []*anonymize.Type) []string {
	var tables []string
	for _, t := range types {
		tables = append(tables, t.Table)
		for _, rel := range t.Relations {
			tables = append(tables, rel.Table)
		}
	}
	tables = lo.Uniq(tables)
	sort.Strings(tables)
	return tables
}

func (p *PreflightChecker) inClause(query string, tables []string) (string, []any) {
	args := make([]any, 0, len(tables)+1)
	args = append(args, p.database)
	for _, t := range tables {
		args = append(args, t)
	}
	return strings.Replace(query, "(?)", "("+sqlutil.Placeholders(len(tables))+")", 1), args
}

// ValidateTablesExist checks that every table exists in the target schema.
func (p *PreflightChecker) ValidateTablesExist(ctx context.Context, tables []string) error {
	query, args := p.inClause(`SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME IN (?)`, tables)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	missing := lo.Filter(tables, func(t string, _ int) bool { return !existing[t] })
	if len(missing) > 0 {
		return &PreflightError{
			Check:   "TABLE_EXISTENCE_CHECK",
			Message: "Tables not found in target database",
			Tables:  missing,
		}
	}
	p.logger.Debugf("Table existence check PASSED (%d tables)", len(tables))
	return nil
}

// ValidateKeyColumns checks that the primary key, soft delete column and
// every relation key a type uses exist.
func (p *PreflightChecker) ValidateKeyColumns(ctx context.Context, types []*anonymize.Type) error {
	const query = `SELECT COUNT(*) FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?`

	var missing []string
	check := func(table, column string) error {
		var n int
		if err := p.db.QueryRowContext(ctx, query, p.database, table, column).Scan(&n); err != nil {
			return fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
		}
		if n == 0 {
			missing = append(missing, table+"."+column)
		}
		return nil
	}

	for _, t := range types {
		if err := check(t.Table, t.PrimaryKey); err != nil {
			return err
		}
		if t.SoftDeleteColumn != "" && !t.IncludeSoftDeleted {
			if err := check(t.Table, t.SoftDeleteColumn); err != nil {
				return err
			}
		}

		names := lo.Keys(t.Relations)
		sort.Strings(names)
		for _, name := range names {
			rel := t.Relations[name]
			relTable, relColumn := rel.Table, rel.ForeignKey
			if rel.Kind == anonymize.BelongsTo {
				relColumn = lo.Ternary(rel.OwnerKey != "", rel.OwnerKey, anonymize.DefaultPrimaryKey)
			}
			if err := check(relTable, relColumn); err != nil {
				return err
			}
		}
	}

	if len(missing) > 0 {
		return &PreflightError{
			Check:   "KEY_COLUMN_CHECK",
			Message: "Key columns not found",
			Tables:  missing,
		}
	}
	p.logger.Debug("Key column check PASSED")
	return nil
}

// ValidateTriggers fails when UPDATE triggers exist on planned tables
// unless forceTriggers is set, in which case it only warns.
func (p *PreflightChecker) ValidateTriggers(ctx context.Context, tables []string, forceTriggers bool) error {
	query, args := p.inClause(`SELECT EVENT_OBJECT_TABLE, TRIGGER_NAME FROM information_schema.TRIGGERS WHERE EVENT_OBJECT_SCHEMA = ? AND EVENT_OBJECT_TABLE IN (?) AND EVENT_MANIPULATION = 'UPDATE'`, tables)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var table, trigger string
		if err := rows.Scan(&table, &trigger); err != nil {
			return err
		}
		found = append(found, fmt.Sprintf("%s(%s)", table, trigger))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(found) == 0 {
		p.logger.Debug("UPDATE trigger check PASSED (no triggers found)")
		return nil
	}
	if forceTriggers {
		p.logger.Warnf("UPDATE triggers detected (proceeding due to --force-triggers): %v", found)
		return nil
	}
	return &PreflightError{
		Check:   "UPDATE_TRIGGER_CHECK",
		Message: "UPDATE triggers detected and would fire for every anonymized record. Use --force-triggers to override",
		Tables:  found,
	}
}

// WarnCascadeRules logs foreign keys with ON UPDATE CASCADE on planned
// tables. It never fails the check.
func (p *PreflightChecker) WarnCascadeRules(ctx context.Context, tables []string) error {
	query, args := p.inClause(`SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
			ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
			AND kcu.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
		WHERE kcu.TABLE_SCHEMA = ?
		AND rc.UPDATE_RULE = 'CASCADE'
		AND kcu.REFERENCED_TABLE_NAME IN (?)`, tables)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var cascades []string
	for rows.Next() {
		var table, column, refTable, refColumn string
		if err := rows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			return err
		}
		cascades = append(cascades, fmt.Sprintf("%s.%s->%s.%s", table, column, refTable, refColumn))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(cascades) > 0 {
		p.logger.Warnf("ON UPDATE CASCADE rules detected (%d): %v", len(cascades), cascades)
		p.logger.Warn("Rewriting a referenced column will cascade into the referencing tables.")
	}
	return nil
}

// AutoUpdateColumns returns, per table, the columns MySQL refreshes on every
// UPDATE (ON UPDATE CURRENT_TIMESTAMP). Tables without any are absent.
func (p *PreflightChecker) AutoUpdateColumns(ctx context.Context, tables []string) (map[string][]string, error) {
	pinned := make(map[string][]string)
	if len(tables) == 0 {
		return pinned, nil
	}
	query, args := p.inClause(`SELECT TABLE_NAME, COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME IN (?) AND EXTRA LIKE '%on update%' ORDER BY TABLE_NAME, ORDINAL_POSITION`, tables)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-update columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		pinned[table] = append(pinned[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pinned, nil
}
