// Package all wires every built-in storage backend into the storage
// factory. Importing it (as a blank import) runs the backends' init
// functions, which makes the following kinds available:
//
//   - "memory"   (always registered by package storage)
//   - "sqlite"   (jsonlkit/internal/storage/sqlite)
//   - "postgres" (jsonlkit/internal/storage/postgres)
//   - "mysql"    (jsonlkit/internal/storage/mysql)
//   - "mssql"    (jsonlkit/internal/storage/mssql)
//
// Typical usage from a command:
//
//	import _ "jsonlkit/internal/storage/all"
//
//	st, err := storage.Open(ctx, os.Getenv("JSONLKIT_STORE_DSN"))
package all

import (
	_ "jsonlkit/internal/storage/mssql"
	_ "jsonlkit/internal/storage/mysql"
	_ "jsonlkit/internal/storage/postgres"
	_ "jsonlkit/internal/storage/sqlite"
)
