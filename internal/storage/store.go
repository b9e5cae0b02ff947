// Package storage defines the key-value contract used to persist field
// configurations between sessions, plus a small factory so callers can open
// a backend by kind without importing it.
//
// Backends register themselves at init time (see storage/sqlite,
// storage/postgres, storage/mysql and storage/mssql); import storage/all to
// enable every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// DefaultTable is the table name SQL backends use when Config.Table is empty.
const DefaultTable = "jsonlkit_kv"

// Store is a string-keyed blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key that starts with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: "memory", "sqlite", "postgres",
	// "mysql" or "mssql".
	Kind string
	// DSN is passed to the backend driver verbatim.
	DSN string
	// Table overrides DefaultTable for SQL backends.
	Table string
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func init() {
	Register("memory", func(context.Context, Config) (Store, error) { return NewMemory(), nil })
}

// Register makes a backend available under kind. Registering a kind twice
// replaces the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ParseDSN derives a Config from a single connection string:
//
//	memory:                       in-process map
//	sqlite:<path or file: URI>    SQLite database
//	postgres://... postgresql://  Postgres
//	mysql://<go-sql-driver DSN>   MySQL, e.g. mysql://user:pw@tcp(host:3306)/db
//	sqlserver://...               SQL Server
//
// A bare path is treated as a SQLite database file.
func ParseDSN(dsn string) (Config, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return Config{}, fmt.Errorf("storage: empty DSN")
	case dsn == "memory:" || dsn == "memory":
		return Config{Kind: "memory"}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Config{Kind: "postgres", DSN: dsn}, nil
	case strings.HasPrefix(dsn, "mysql://"):
		return Config{Kind: "mysql", DSN: strings.TrimPrefix(dsn, "mysql://")}, nil
	case strings.HasPrefix(dsn, "sqlserver://"):
		return Config{Kind: "mssql", DSN: dsn}, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return Config{Kind: "sqlite", DSN: strings.TrimPrefix(dsn, "sqlite:")}, nil
	default:
		return Config{Kind: "sqlite", DSN: dsn}, nil
	}
}

// Open is ParseDSN followed by New.
func Open(ctx context.Context, dsn string) (Store, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}
