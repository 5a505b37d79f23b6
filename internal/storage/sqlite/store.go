// Package sqlite implements the table store on SQLite via modernc.org/sqlite
// (no cgo). It is the default backend: a single-file database under the
// output directory is the closest single-machine analog of a directory of
// columnar table files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"txnalytics/internal/storage"
)

// Store implements storage.Store for SQLite.
//
// SQLite notes:
//   - One writer at a time: the pool is capped at a single connection so
//     concurrent view writes serialize instead of tripping SQLITE_BUSY.
//   - Snapshot replace is DELETE+INSERT inside one transaction; VACUUM runs
//     in Optimize, outside any transaction, and reclaims the dead pages.
type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (creating when absent) the database file named by cfg.DSN and
// validates connectivity. The parent directory of a plain file path is
// created as needed.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	if err := ensureParentDir(cfg.DSN); err != nil {
		return nil, fmt.Errorf("sqlite: output dir: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// ensureParentDir creates the directory holding a plain file DSN. URI and
// in-memory DSNs are left alone.
func ensureParentDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

// WriteSnapshot transactionally replaces the table content.
func (s *Store) WriteSnapshot(ctx context.Context, table string, columns []storage.Column, rows [][]any) (int64, error) {
	if err := storage.ValidateSnapshot(table, columns, rows); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, buildCreateTableSQL(table, columns)); err != nil {
		return 0, fmt.Errorf("sqlite: create table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(table)); err != nil {
		return 0, fmt.Errorf("sqlite: clear table %s: %w", table, err)
	}

	var written int64
	for start := 0; start < len(rows); start += maxRowsPerInsert(len(columns)) {
		end := start + maxRowsPerInsert(len(columns))
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(table, columns, rows[start:end])
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit %s: %w", table, err)
	}
	return written, nil
}

// Optimize refreshes planner statistics for the table and vacuums the file.
// VACUUM rewrites the whole database, so after the three view writes this
// plays the role compaction does for columnar table formats.
func (s *Store) Optimize(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "ANALYZE "+sqlIdent(table)); err != nil {
		return fmt.Errorf("sqlite: analyze %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("sqlite: vacuum: %w", err)
	}
	return nil
}

// maxRowsPerInsert keeps each statement comfortably below SQLite's bound
// variable limit (999 in older builds).
func maxRowsPerInsert(columns int) int {
	if columns < 1 {
		columns = 1
	}
	n := 900 / columns
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
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(sqliteType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

// buildInsertSQL renders one multi-row INSERT with ? placeholders.
func buildInsertSQL(table string, columns []storage.Column, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c.Name))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// sqliteType maps a canonical type to a SQLite affinity.
func sqliteType(t storage.ColumnType) string {
	switch t {
	case storage.TypeDouble:
		return "REAL"
	case storage.TypeBigint:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// sqlIdent double-quotes an identifier, escaping embedded quotes.
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
