// Package sqliteutil opens datastore connections with the pragmas the
// engine requires for every connection's lifetime.
package sqliteutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// pragmas are applied once per connection, immediately after open, and are
// guaranteed for the connection's lifetime: WAL allows concurrent readers
// with a single writer, busy_timeout absorbs short writer contention
// without surfacing as errors, and foreign_keys=ON makes referential
// constraints effective (SQLite defaults that off).
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// PathForDatastore resolves the on-disk file for a datastore: one SQLite
// file per datastore, stored under baseDir, named by datastore id.
func PathForDatastore(baseDir, datastoreID string) string {
	return filepath.Join(baseDir, datastoreID+".db")
}

// Open opens (creating if absent) the SQLite file at path and applies the
// connection's required pragmas. SQLite has a single writer regardless of
// how many connections are open, so the pool is capped at one connection to
// keep writer contention visible to busy_timeout rather than spread across
// Go's connection pool.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating datastore directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening datastore %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Exists reports whether a datastore file is already present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
