package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS custom_guild_reagent_bank (
		guild_id      INTEGER NOT NULL,
		item_entry    INTEGER NOT NULL,
		item_subclass INTEGER NOT NULL,
		amount        INTEGER NOT NULL DEFAULT 0 CHECK (amount >= 0),
		PRIMARY KEY (guild_id, item_entry)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reagent_bank_subclass
		ON custom_guild_reagent_bank (guild_id, item_subclass, item_entry)`,
	`CREATE TABLE IF NOT EXISTS custom_guild_reagent_bank_size (
		guild_id INTEGER NOT NULL PRIMARY KEY,
		space    INTEGER NOT NULL DEFAULT 0
	)`,
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ledger: migrate: %w", err)
		}
	}
	return nil
}
