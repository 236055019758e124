package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the conversation tables if they do not exist, so the
// service can start against a fresh database. Turns reference their session
// with ON DELETE SET NULL: removing a session row orphans its turns instead
// of cascading, and each turn stays retrievable by id.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, stmt := range schemaStatements(tables) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(tables *TableNames) []string {
	createSessions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Sessions + ` (
			id UUID PRIMARY KEY,
			user_id TEXT,
			title TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`

	createTurns := `
		CREATE TABLE IF NOT EXISTS ` + tables.Turns + ` (
			id UUID PRIMARY KEY,
			session_id UUID REFERENCES ` + tables.Sessions + `(id) ON DELETE SET NULL,
			question TEXT NOT NULL,
			response TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			responded_at TIMESTAMPTZ
		)
	`

	// ListBySession and ListCompleted both filter by session and order by
	// creation time.
	createTurnsIndex := `
		CREATE INDEX IF NOT EXISTS idx_` + tables.Turns + `_session_created
		ON ` + tables.Turns + ` (session_id, created_at)
	`

	return []string{createSessions, createTurns, createTurnsIndex}
}
