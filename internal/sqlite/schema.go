package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// historyColumns lists the history table columns in scan order.
const historyColumns = `id, type, "group", value, search, count, width, height, favorite, createTime, note, subtype`

// filterColumns maps Filter keys to the indexed columns they compare.
var filterColumns = map[string]string{
	"id":         "id",
	"type":       "type",
	"value":      "value",
	"group":      `"group"`,
	"favorite":   "favorite",
	"createTime": "createTime",
}

// runMigrations brings the schema up to date using the embedded goose
// migrations.
func runMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
