// Package postgres implements the table store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"txnalytics/internal/storage"
)

// Store implements storage.Store for Postgres.
//
// Snapshot replace is CREATE IF NOT EXISTS + TRUNCATE + INSERT inside one
// transaction; readers on the same table see the old snapshot until commit.
// Optimize issues VACUUM ANALYZE, which cannot run inside a transaction and
// therefore goes straight through the pool.
type Store struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a pooled Postgres store and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// WriteSnapshot transactionally replaces the table content.
func (s *Store) WriteSnapshot(ctx context.Context, table string, columns []storage.Column, rows [][]any) (int64, error) {
	if err := storage.ValidateSnapshot(table, columns, rows); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, buildCreateTableSQL(table, columns)); err != nil {
		return 0, fmt.Errorf("postgres: create table %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+pgIdent(table)); err != nil {
		return 0, fmt.Errorf("postgres: truncate %s: %w", table, err)
	}

	var written int64
	for start := 0; start < len(rows); start += maxRowsPerInsert(len(columns)) {
		end := start + maxRowsPerInsert(len(columns))
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(table, columns, rows[start:end])
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("postgres: insert into %s: %w", table, err)
		}
		written += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit %s: %w", table, err)
	}
	return written, nil
}

// Optimize vacuums and re-analyzes the table.
func (s *Store) Optimize(ctx context.Context, table string) error {
	if _, err := s.pool.Exec(ctx, "VACUUM ANALYZE "+pgIdent(table)); err != nil {
		return fmt.Errorf("postgres: vacuum analyze %s: %w", table, err)
	}
	return nil
}

// maxRowsPerInsert keeps each statement well below the 65535 bind parameter
// protocol limit.
func maxRowsPerInsert(columns int) int {
	if columns < 1 {
		columns = 1
	}
	n := 10000 / columns
	if n < 1 {
		n = 1
	}
	return n
}

// buildCreateTableSQL renders an idempotent CREATE TABLE for the canonical
// column types.
func buildCreateTableSQL(table string, columns []storage.Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(pgType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

// buildInsertSQL renders one multi-row INSERT with $n placeholders.
func buildInsertSQL(table string, columns []storage.Column, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// pgType maps a canonical type to a Postgres type.
func pgType(t storage.ColumnType) string {
	switch t {
	case storage.TypeDouble:
		return "DOUBLE PRECISION"
	case storage.TypeBigint:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// pgIdent double-quotes an identifier, escaping embedded quotes.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
