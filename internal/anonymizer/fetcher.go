// Package anonymizer walks anonymizable types chunk by chunk and rewrites
// their records inside one transaction per chunk.
package anonymizer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/goanonymize/internal/sqlutil"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

// Chunk is one page of records in ascending primary key order.
type Chunk struct {
	Number  int
	Records []anonymize.Record
	// LastKey is the primary key of the last record, the cursor for the
	// next page.
	LastKey any
}

// ChunkFetcher pages through a type's eligible records with keyset
// pagination on the primary key.
type ChunkFetcher struct {
	db        *sql.DB
	typ       *anonymize.Type
	chunkSize int
	cursor    any
	started   bool
}

// NewChunkFetcher creates a fetcher positioned before the first record.
func NewChunkFetcher(db *sql.DB, t *anonymize.Type, chunkSize int) *ChunkFetcher {
	return &ChunkFetcher{
		db:        db,
		typ:       t,
		chunkSize: chunkSize,
	}
}

// FetchNext returns the next page, or an empty slice when none are left.
// The first page has no cursor predicate so tables whose keys are not
// positive integers are walked from the start.
func (f *ChunkFetcher) FetchNext(ctx context.Context) ([]anonymize.Record, error) {
	where, args := scopeClause(f.typ)
	pk := sqlutil.QuoteIdentifier(f.typ.PrimaryKey)

	if f.started {
		where = "(" + where + ") AND " + pk + " > ?"
		args = append(args, f.cursor)
	} else {
		where = "(" + where + ")"
	}
	args = append(args, f.chunkSize)

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY %s ASC LIMIT ?",
		sqlutil.QuoteIdentifier(f.typ.Table), where, pk)

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records from %s: %w", f.typ.Table, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read records from %s: %w", f.typ.Table, err)
	}
	if len(records) == 0 {
		return records, nil
	}

	last := records[len(records)-1]
	if !last.Has(f.typ.PrimaryKey) {
		return nil, &anonymize.ContractError{
			Model:  f.typ.Name,
			Reason: fmt.Sprintf("primary key column %q not found in %s", f.typ.PrimaryKey, f.typ.Table),
		}
	}
	f.cursor = last.Get(f.typ.PrimaryKey)
	f.started = true

	return records, nil
}

// Cursor returns the last primary key fetched, nil before the first page.
func (f *ChunkFetcher) Cursor() any {
	return f.cursor
}

// scopeClause builds the WHERE fragment selecting the records a type
// anonymizes.
func scopeClause(t *anonymize.Type) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if t.Condition != nil && t.Condition.Where != "" {
		clauses = append(clauses, "("+t.Condition.Where+")")
		args = append(args, t.Condition.Args...)
	}
	if t.SoftDeleteColumn != "" && !t.IncludeSoftDeleted {
		clauses = append(clauses, sqlutil.QuoteIdentifier(t.SoftDeleteColumn)+" IS NULL")
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// scanRecords reads every row into a Record. The MySQL driver returns
// []byte for text and blob columns; those become strings.
func scanRecords(rows *sql.Rows) ([]anonymize.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []anonymize.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(anonymize.Record, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[col] = v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
