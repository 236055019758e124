package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"dpmeschat/internal/domain"
	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/domain/repositories"
)

// PostgresSessionRepository implements the SessionRepository interface using PostgreSQL
type PostgresSessionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSessionRepository creates a new PostgresSessionRepository
func NewSessionRepository(config *RepositoryConfig) repositories.SessionRepository {
	return &PostgresSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new chat session
func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, title, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, r.tables.Sessions)

	err := r.pool.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.Title,
		session.CreatedAt,
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// Get retrieves a non-deleted session by ID
func (r *PostgresSessionRepository) Get(ctx context.Context, id string) (*models.ChatSession, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, created_at, deleted_at
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Sessions)

	var session models.ChatSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Title,
		&session.CreatedAt,
		&session.DeletedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &session, nil
}

// ListByUser retrieves all non-deleted sessions for a user, newest first
func (r *PostgresSessionRepository) ListByUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, created_at, deleted_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, r.tables.Sessions)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var session models.ChatSession
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Title,
			&session.CreatedAt,
			&session.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	// Return empty slice instead of nil
	if sessions == nil {
		sessions = []models.ChatSession{}
	}

	return sessions, nil
}

// SetTitle assigns a title to a session that has none yet. The title IS NULL
// guard makes the assignment write-once even under concurrent answers.
func (r *PostgresSessionRepository) SetTitle(ctx context.Context, id, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1
		WHERE id = $2 AND title IS NULL AND deleted_at IS NULL
	`, r.tables.Sessions)

	_, err := r.pool.Exec(ctx, query, title, id)
	if err != nil {
		return fmt.Errorf("set session title: %w", err)
	}

	return nil
}

// SoftDelete marks a session as deleted without removing its turns
func (r *PostgresSessionRepository) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Sessions)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	// Orphan the turns: SET NULL, never cascade. Turns stay retrievable by id.
	orphan := fmt.Sprintf(`UPDATE %s SET session_id = NULL WHERE session_id = $1`, r.tables.Turns)
	if _, err := r.pool.Exec(ctx, orphan, id); err != nil {
		return fmt.Errorf("orphan turns: %w", err)
	}

	return nil
}

// DeleteIfUntitled removes the session only if it never got a title
func (r *PostgresSessionRepository) DeleteIfUntitled(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND title IS NULL AND deleted_at IS NULL
	`, r.tables.Sessions)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cleanup untitled session: %w", err)
	}

	if result.RowsAffected() > 0 {
		r.logger.Debug("removed untitled session", "session_id", id)
	}

	return nil
}
