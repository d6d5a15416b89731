// Package storage implements the engine's durable stores on sqlite, plus a
// json5 file store for single-user deployments.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"

	"github.com/solacehq/pulse/pkg/storage/upgrades"
)

// OpenDatabase opens (or creates) the engine database and applies pending
// schema upgrades.
func OpenDatabase(ctx context.Context, path string, log zerolog.Logger) (*dbutil.Database, error) {
	raw, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		return nil, fmt.Errorf("wrap database: %w", err)
	}
	db.Log = dbutil.ZeroLogger(log.With().Str("component", "database").Logger())
	db.UpgradeTable = upgrades.Table
	if err := db.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrade database: %w", err)
	}
	return db, nil
}
