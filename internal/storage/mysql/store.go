// Package mysql implements storage.Store on MySQL through database/sql and
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"jsonlkit/internal/storage"
)

// Store is a MySQL-backed key-value store. Keys use a binary collation so
// prefix matching and ordering are byte-wise, as in the other backends.
type Store struct {
	db    *sql.DB
	table string
}

var _ storage.Store = (*Store)(nil)

// Open connects with a go-sql-driver DSN ("user:pw@tcp(host:3306)/db") and
// creates the key-value table if needed. table may be "db.table".
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	if table == "" {
		table = storage.DefaultTable
	}
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	cfg.ParseTime = true

	conn, err := driver.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	s := &Store{db: db, table: myFQN(table)}
	if err := s.ensureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
		"\t`key` VARCHAR(512) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL PRIMARY KEY,\n"+
		"\t`value` LONGBLOB NOT NULL,\n"+
		"\t`updated_at` DATETIME(6) NOT NULL\n"+
		")", s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql: create table: %w", err)
	}
	return nil
}

// Get returns the value for key or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	q := fmt.Sprintf("SELECT `value` FROM %s WHERE `key` = ?", s.table)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: get %q: %w", key, err)
	}
	return v, nil
}

// Set inserts or replaces key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	q := fmt.Sprintf("INSERT INTO %s (`key`, `value`, `updated_at`) VALUES (?, ?, ?) "+
		"ON DUPLICATE KEY UPDATE `value` = VALUES(`value`), `updated_at` = VALUES(`updated_at`)", s.table)
	if _, err := s.db.ExecContext(ctx, q, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("mysql: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE `key` = ?", s.table)
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("mysql: delete %q: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix. LEFT is used instead of LIKE so
// '%' and '_' in the prefix match literally.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	q := fmt.Sprintf("SELECT `key` FROM %s WHERE LEFT(`key`, CHAR_LENGTH(?)) = ? ORDER BY `key`", s.table)
	rows, err := s.db.QueryContext(ctx, q, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("mysql: keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("mysql: keys: scan: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// myFQN quotes a possibly qualified name like "db.kv" to `db`.`kv`.
func myFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, "`"+strings.ReplaceAll(p, "`", "``")+"`")
		}
	}
	return strings.Join(out, ".")
}
