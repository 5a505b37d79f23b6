// Package storage defines the table store the aggregate views are persisted
// to, plus a registry the concrete SQL backends hook into from their init
// functions. Importing txnalytics/internal/storage/all links in every
// backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config selects and parameterizes a backend.
type Config struct {
	// Kind is a registered backend name ("sqlite", "postgres", "mssql").
	Kind string `json:"kind"`

	// DSN is the backend connection string.
	DSN string `json:"dsn"`
}

// Column describes one table column with a canonical type each backend maps
// to its own dialect.
type Column struct {
	Name string
	Type ColumnType
}

// ColumnType is a canonical column type.
type ColumnType string

const (
	// TypeText holds string cells (group keys).
	TypeText ColumnType = "text"
	// TypeDouble holds float64 cells (averages).
	TypeDouble ColumnType = "double"
	// TypeBigint holds int64 cells (counts).
	TypeBigint ColumnType = "bigint"
)

// Store writes view snapshots. Implementations are safe for use from a
// single run; no cross-process coordination is provided (a second concurrent
// run against the same DSN races on overwrite, by contract).
type Store interface {
	// WriteSnapshot replaces the named table's content with the given rows,
	// creating the table when absent. The replace is transactional: readers
	// never observe a half-written snapshot. Returns the row count written.
	WriteSnapshot(ctx context.Context, table string, columns []Column, rows [][]any) (int64, error)

	// Optimize runs backend-specific post-write maintenance (compaction,
	// statistics). Failures are expected to be tolerable; callers log them
	// and move on.
	Optimize(ctx context.Context, table string) error

	// Close releases the underlying handles.
	Close()
}

// Factory constructs a Store from a Config.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register installs a backend factory under a kind name. It panics on an
// empty kind, a nil factory, or a duplicate registration; backends register
// from init, so any of those is a programmer error caught at startup.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	kind = strings.TrimSpace(kind)
	if kind == "" {
		panic("storage: Register with empty kind")
	}
	if f == nil {
		panic(fmt.Sprintf("storage: Register(%q) with nil factory", kind))
	}
	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("storage: duplicate Register(%q)", kind))
	}
	registry[kind] = f
}

// Open constructs the Store for cfg.Kind. Unknown kinds report the
// registered alternatives, which doubles as the "did you import storage/all"
// hint.
func Open(ctx context.Context, cfg Config) (Store, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Kind]
	var known []string
	if !ok {
		for k := range registry {
			known = append(known, k)
		}
	}
	registryMu.RUnlock()

	if !ok {
		sort.Strings(known)
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(known, ", "))
	}
	return f(ctx, cfg)
}

// ValidateSnapshot rejects shapes no backend can write: an unnamed table,
// an empty column list, a column without a name or with an unknown type, and
// rows whose width differs from the column list. Backends call it first so
// shape errors read the same everywhere.
func ValidateSnapshot(table string, columns []Column, rows [][]any) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("storage: table name is empty")
	}
	if len(columns) == 0 {
		return fmt.Errorf("storage: table %s has no columns", table)
	}
	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("storage: table %s column %d has no name", table, i)
		}
		switch c.Type {
		case TypeText, TypeDouble, TypeBigint:
		default:
			return fmt.Errorf("storage: table %s column %s has unknown type %q", table, c.Name, c.Type)
		}
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return fmt.Errorf("storage: table %s row %d has %d values, want %d", table, i, len(r), len(columns))
		}
	}
	return nil
}
