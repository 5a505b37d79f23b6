// Package mssql implements the table store on Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"txnalytics/internal/storage"
)

// Store implements storage.Store for SQL Server.
//
// Snapshot replace is an OBJECT_ID-guarded CREATE + DELETE + chunked INSERT
// in one transaction. Chunking keeps each statement under SQL Server's 2100
// bind parameter limit. The view tables are heaps (no declared indexes), so
// Optimize refreshes statistics rather than reorganizing indexes.
type Store struct {
	db dbConn
}

func init() {
	storage.Register("mssql", New)
}

// New opens a SQL Server connection pool and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// Small pool: a run writes three snapshot tables, nothing bursty.
	raw.SetMaxOpenConns(8)
	raw.SetMaxIdleConns(8)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Store{db: &sqlDB{db: raw}}, nil
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
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, buildCreateTableSQL(table, columns)); err != nil {
		return 0, fmt.Errorf("mssql: create table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+mssqlTableIdent(table)); err != nil {
		return 0, fmt.Errorf("mssql: clear table %s: %w", table, err)
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
			return 0, fmt.Errorf("mssql: insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit %s: %w", table, err)
	}
	return written, nil
}

// Optimize refreshes the table's statistics.
func (s *Store) Optimize(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE STATISTICS "+mssqlTableIdent(table)); err != nil {
		return fmt.Errorf("mssql: update statistics %s: %w", table, err)
	}
	return nil
}

// maxRowsPerInsert stays comfortably below the 2100 parameter limit.
func maxRowsPerInsert(columns int) int {
	if columns < 1 {
		columns = 1
	}
	n := 2000 / columns
	if n < 1 {
		n = 1
	}
	return n
}

// buildCreateTableSQL wraps CREATE TABLE in an OBJECT_ID guard; SQL Server
// has no CREATE TABLE IF NOT EXISTS.
func buildCreateTableSQL(table string, columns []storage.Column) string {
	var defs strings.Builder
	for i, c := range columns {
		if i > 0 {
			defs.WriteString(", ")
		}
		defs.WriteString(mssqlIdent(c.Name))
		defs.WriteString(" ")
		defs.WriteString(mssqlType(c.Type))
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		table,
		mssqlTableIdent(table),
		defs.String(),
	)
}

// buildInsertSQL renders one multi-row INSERT with @p placeholders.
func buildInsertSQL(table string, columns []storage.Column, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c.Name))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// mssqlType maps a canonical type to a SQL Server type.
func mssqlType(t storage.ColumnType) string {
	switch t {
	case storage.TypeDouble:
		return "FLOAT"
	case storage.TypeBigint:
		return "BIGINT"
	default:
		return "NVARCHAR(400)"
	}
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent bracket-quotes schema-qualified names part by part:
// "dbo.popular_products" -> [dbo].[popular_products].
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// ---- database/sql seam types ----

// dbConn is a narrow interface over *sql.DB so the store is testable
// without a server.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

// txConn is the transactional subset used by WriteSnapshot.
type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// sqlDB wraps *sql.DB to implement dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }

var _ dbConn = (*sqlDB)(nil)
