package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/acsqe/acsqe"
	"github.com/acsqe/acsqe/internal/config"
	"github.com/acsqe/acsqe/internal/sqliteutil"
)

func loadPermissionIndex(path string) (*acsqe.Index, error) {
	if path == "" {
		return acsqe.BuildIndex(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading permission file %s: %w", path, err)
	}

	var rows []acsqe.PermissionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing permission file %s: %w", path, err)
	}

	return acsqe.BuildIndex(rows), nil
}

func openDatastore(ctx context.Context, datastoreID string) (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading acsqe.toml: %w", err)
	}

	path := sqliteutil.PathForDatastore(cfg.DatastoreDir, datastoreID)
	exists, err := sqliteutil.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("checking datastore %s: %w", datastoreID, err)
	}
	if !exists {
		return nil, fmt.Errorf("datastore %q not found at %s", datastoreID, path)
	}

	db, err := sqliteutil.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS)); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying busy_timeout: %w", err)
	}
	return db, nil
}
