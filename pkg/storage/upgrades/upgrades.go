// Package upgrades holds the engine's database schema migrations.
package upgrades

import (
	"embed"

	"go.mau.fi/util/dbutil"
)

//go:embed *.sql
var rawUpgrades embed.FS

// Table is the upgrade table applied by pkg/storage on open.
var Table dbutil.UpgradeTable

func init() {
	Table.RegisterFS(rawUpgrades)
}
