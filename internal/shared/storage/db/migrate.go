package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

const schemaDir = "migrations"

//go:embed migrations/*.sql
var schema embed.FS

// MigrateClientState creates or upgrades the client_state table that backs
// STATE_BACKEND=postgres. A nil database means no database is configured.
func MigrateClientState(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	goose.SetBaseFS(schema)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("client_state schema: %w", err)
	}
	if err := goose.UpContext(ctx, database, schemaDir); err != nil {
		return fmt.Errorf("client_state schema: %w", err)
	}
	return nil
}
