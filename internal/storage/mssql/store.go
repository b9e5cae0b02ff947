// Package mssql implements storage.Store on Microsoft SQL Server through
// database/sql and github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"jsonlkit/internal/storage"
)

// Store is a SQL Server-backed key-value store. Key ordering and prefix
// matching follow the column collation; a case-insensitive default
// collation makes "A_" and "a_" the same prefix.
type Store struct {
	db *sql.DB
	// name is the unquoted table name for OBJECT_ID, table the quoted one.
	name  string
	table string
}

var _ storage.Store = (*Store)(nil)

// Open connects to a sqlserver:// DSN and creates the key-value table if
// needed. table may be schema-qualified ("dbo.jsonlkit_kv").
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mssql: DSN must not be empty")
	}
	if table == "" {
		table = storage.DefaultTable
	}
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	s := &Store{db: db, name: table, table: msFQN(table)}
	if err := s.ensureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`IF OBJECT_ID(@p1, N'U') IS NULL
CREATE TABLE %s (
	[key] NVARCHAR(450) NOT NULL PRIMARY KEY,
	[value] VARBINARY(MAX) NOT NULL,
	[updated_at] DATETIME2 NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl, s.name); err != nil {
		return fmt.Errorf("mssql: create table: %w", err)
	}
	return nil
}

// Get returns the value for key or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	q := fmt.Sprintf(`SELECT [value] FROM %s WHERE [key] = @p1`, s.table)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mssql: get %q: %w", key, err)
	}
	return v, nil
}

// Set inserts or replaces key with a single MERGE.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	q := fmt.Sprintf(`MERGE %s WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS [key], @p2 AS [value], @p3 AS [updated_at]) AS src
ON t.[key] = src.[key]
WHEN MATCHED THEN UPDATE SET [value] = src.[value], [updated_at] = src.[updated_at]
WHEN NOT MATCHED THEN INSERT ([key], [value], [updated_at]) VALUES (src.[key], src.[value], src.[updated_at]);`, s.table)
	if _, err := s.db.ExecContext(ctx, q, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("mssql: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE [key] = @p1`, s.table)
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("mssql: delete %q: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix. LEFT with DATALENGTH is used instead
// of LIKE so wildcards and trailing spaces in the prefix match literally.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	q := fmt.Sprintf(`SELECT [key] FROM %s WHERE LEFT([key], DATALENGTH(@p1) / 2) = @p1 ORDER BY [key]`, s.table)
	rows, err := s.db.QueryContext(ctx, q, prefix)
	if err != nil {
		return nil, fmt.Errorf("mssql: keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("mssql: keys: scan: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// msFQN quotes a possibly qualified name like "dbo.kv" to [dbo].[kv].
func msFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, "["+strings.ReplaceAll(p, "]", "]]")+"]")
		}
	}
	return strings.Join(out, ".")
}
