package anonymizer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbsmedya/goanonymize/internal/config"
	"github.com/dbsmedya/goanonymize/internal/logger"
	"github.com/dbsmedya/goanonymize/internal/sqlutil"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
	"github.com/dbsmedya/goanonymize/pkg/faker"
)

// Execer is the write side of *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Engine anonymizes one type at a time: count, page, rewrite, persist.
type Engine struct {
	db        *sql.DB
	faker     faker.Faker
	chunkSize int
	sleep     time.Duration
	lag       *LagMonitor
	logger    *logger.Logger

	// pinned maps a table to columns every UPDATE assigns to themselves.
	pinned map[string][]string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLagMonitor makes the engine wait for replica lag between chunks.
func WithLagMonitor(lm *LagMonitor) EngineOption {
	return func(e *Engine) { e.lag = lm }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithPinnedColumns sets, per table, the ON UPDATE CURRENT_TIMESTAMP
// columns whose values every write must preserve.
func WithPinnedColumns(pinned map[string][]string) EngineOption {
	return func(e *Engine) {
		for table, cols := range pinned {
			e.PinColumns(table, cols...)
		}
	}
}

// NewEngine creates an engine writing through db.
func NewEngine(db *sql.DB, f faker.Faker, cfg config.AnonymizeConfig, opts ...EngineOption) *Engine {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	e := &Engine{
		db:        db,
		faker:     f,
		chunkSize: chunkSize,
		sleep:     time.Duration(cfg.SleepSeconds * float64(time.Second)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.NewNop()
	}
	return e
}

// PinColumns adds columns of table that every write keeps unchanged.
func (e *Engine) PinColumns(table string, columns ...string) {
	if len(columns) == 0 {
		return
	}
	if e.pinned == nil {
		e.pinned = make(map[string][]string)
	}
	e.pinned[table] = append(e.pinned[table], columns...)
}

// ChunkSize returns the page size.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// Count returns the number of records the type will anonymize.
func (e *Engine) Count(ctx context.Context, t *anonymize.Type) (int64, error) {
	where, args := scopeClause(t)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", sqlutil.QuoteIdentifier(t.Table), where)

	var count int64
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.Table, err)
	}
	return count, nil
}

// ForEachChunk pages through the type and calls fn for each chunk. It stops
// after a short page, an error from fn, or cancellation of ctx, which is
// only checked between chunks. It returns the number of chunks fetched.
func (e *Engine) ForEachChunk(ctx context.Context, t *anonymize.Type, fn func(*Chunk) error) (int, error) {
	fetcher := NewChunkFetcher(e.db, t, e.chunkSize)
	chunks := 0

	for {
		if err := ctx.Err(); err != nil {
			return chunks, err
		}

		records, err := fetcher.FetchNext(ctx)
		if err != nil {
			return chunks, err
		}
		if len(records) == 0 {
			return chunks, nil
		}

		chunks++
		if err := fn(&Chunk{Number: chunks, Records: records, LastKey: fetcher.Cursor()}); err != nil {
			return chunks, err
		}
		if len(records) < e.chunkSize {
			return chunks, nil
		}

		if err := e.pause(ctx); err != nil {
			return chunks, err
		}
	}
}

// pause runs between chunks: replica lag first, then the configured sleep.
func (e *Engine) pause(ctx context.Context) error {
	if e.lag.IsEnabled() {
		if err := e.lag.WaitForLag(ctx); err != nil {
			return err
		}
	}
	if e.sleep <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.sleep):
		return nil
	}
}

// Rewrite asks the model for a record's new values. Any failure is a
// contract error naming the type.
func (e *Engine) Rewrite(t *anonymize.Type, rec anonymize.Record) (anonymize.RewriteSpec, error) {
	spec, err := t.Model.ToAnonymize(e.faker, rec)
	if err != nil {
		return anonymize.RewriteSpec{}, &anonymize.ContractError{Model: t.Name, Reason: "ToAnonymize failed", Err: err}
	}
	normalized, err := spec.Normalize()
	if err != nil {
		return anonymize.RewriteSpec{}, &anonymize.ContractError{Model: t.Name, Reason: "invalid rewrite", Err: err}
	}
	return normalized, nil
}

// Apply persists spec for rec. Relation updates run first, one bulk UPDATE
// per relation in name order, then the record's own columns. Pinned
// columns are assigned to themselves so audit timestamps keep their values.
func (e *Engine) Apply(ctx context.Context, tx Execer, t *anonymize.Type, rec anonymize.Record, spec anonymize.RewriteSpec) error {
	for _, name := range spec.RelationNames() {
		if err := e.applyRelation(ctx, tx, t, rec, name, spec.Relations[name]); err != nil {
			return err
		}
	}

	if len(spec.Fields) == 0 {
		return nil
	}
	if _, ok := spec.Fields[t.PrimaryKey]; ok {
		return &anonymize.ContractError{Model: t.Name, Reason: fmt.Sprintf("rewrite changes primary key %q", t.PrimaryKey)}
	}

	columns := spec.Columns()
	set, err := sqlutil.SetClause(columns, e.pinned[t.Table]...)
	if err != nil {
		return &anonymize.ContractError{Model: t.Name, Reason: "invalid column", Err: err}
	}

	args := make([]any, 0, len(columns)+1)
	for _, col := range columns {
		args = append(args, spec.Fields[col])
	}
	args = append(args, rec.Get(t.PrimaryKey))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		sqlutil.QuoteIdentifier(t.Table), set, sqlutil.QuoteIdentifier(t.PrimaryKey))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s %v: %w", t.Table, rec.Get(t.PrimaryKey), err)
	}
	return nil
}

func (e *Engine) applyRelation(ctx context.Context, tx Execer, t *anonymize.Type, rec anonymize.Record, name string, values map[string]any) error {
	rel, ok := t.Relations[name]
	if !ok {
		return &anonymize.ContractError{Model: t.Name, Reason: fmt.Sprintf("unknown relation %q", name)}
	}
	if len(values) == 0 {
		return nil
	}

	// keyColumn is matched on the related table against keySource on rec.
	var keyColumn, keySource string
	switch rel.Kind {
	case anonymize.BelongsTo:
		keyColumn = rel.OwnerKey
		if keyColumn == "" {
			keyColumn = anonymize.DefaultPrimaryKey
		}
		keySource = rel.ForeignKey
	default:
		keyColumn = rel.ForeignKey
		keySource = rel.OwnerKey
		if keySource == "" {
			keySource = t.PrimaryKey
		}
	}

	if !rec.Has(keySource) {
		return &anonymize.ContractError{Model: t.Name, Reason: fmt.Sprintf("relation %q needs column %q on the record", name, keySource)}
	}
	key := rec.Get(keySource)
	if key == nil {
		return nil
	}

	rs := anonymize.RewriteSpec{Fields: values}
	columns := rs.Columns()
	set, err := sqlutil.SetClause(columns, e.pinned[rel.Table]...)
	if err != nil {
		return &anonymize.ContractError{Model: t.Name, Reason: fmt.Sprintf("relation %q: invalid column", name), Err: err}
	}

	args := make([]any, 0, len(columns)+1)
	for _, col := range columns {
		args = append(args, values[col])
	}
	args = append(args, key)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		sqlutil.QuoteIdentifier(rel.Table), set, sqlutil.QuoteIdentifier(keyColumn))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update relation %s (%s): %w", name, rel.Table, err)
	}
	return nil
}

// AnonymizeChunk rewrites every record of the chunk in one transaction.
// The transaction ignores cancellation of ctx so a shutdown signal lets the
// chunk finish. Any failure rolls the whole chunk back.
func (e *Engine) AnonymizeChunk(ctx context.Context, t *anonymize.Type, chunk *Chunk) error {
	txCtx := context.WithoutCancel(ctx)

	tx, err := e.db.BeginTx(txCtx, nil)
	if err != nil {
		return &ModelError{Model: t.Name, Chunk: chunk.Number, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer func() {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Errorf("Failed to roll back chunk %d of %s: %v", chunk.Number, t.Name, rbErr)
			}
		}
	}()

	for _, rec := range chunk.Records {
		spec, err := e.Rewrite(t, rec)
		if err != nil {
			return &ModelError{Model: t.Name, Chunk: chunk.Number, Err: err}
		}
		if err := e.Apply(txCtx, tx, t, rec, spec); err != nil {
			return &ModelError{Model: t.Name, Chunk: chunk.Number, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		tx = nil
		return &ModelError{Model: t.Name, Chunk: chunk.Number, Err: fmt.Errorf("failed to commit: %w", err)}
	}
	tx = nil
	return nil
}

// Process anonymizes every eligible record of t. A type with no records
// reports zero chunks and zero duration.
func (e *Engine) Process(ctx context.Context, t *anonymize.Type, progress ProgressReporter) (*ModelStats, error) {
	if progress == nil {
		progress = NopProgress{}
	}
	log := e.logger.WithModel(t.Name, t.Table)
	stats := &ModelStats{Model: t.Name, Table: t.Table}

	total, err := e.Count(ctx, t)
	if err != nil {
		return stats, err
	}
	stats.Total = total
	if total == 0 {
		log.Info("No records to anonymize")
		return stats, nil
	}

	log.Infof("Anonymizing %d records in chunks of %d", total, e.chunkSize)
	progress.Start(t.Name, total)
	start := time.Now()

	_, err = e.ForEachChunk(ctx, t, func(c *Chunk) error {
		if err := e.AnonymizeChunk(ctx, t, c); err != nil {
			return err
		}
		stats.Chunks++
		stats.Processed += int64(len(c.Records))
		progress.Advance(t.Name, len(c.Records))
		log.WithChunk(c.Number).Debugf("Chunk committed (%d records, last key %v)", len(c.Records), c.LastKey)
		return nil
	})
	stats.Duration = time.Since(start)
	progress.Done(t.Name, err)

	if err != nil {
		return stats, err
	}
	log.Infof("Anonymized %d records in %d chunks (%s)", stats.Processed, stats.Chunks, stats.Duration)
	return stats, nil
}
