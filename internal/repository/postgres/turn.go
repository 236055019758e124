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

// PostgresTurnRepository implements the TurnRepository interface using PostgreSQL
type PostgresTurnRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewTurnRepository creates a new PostgresTurnRepository
func NewTurnRepository(config *RepositoryConfig) repositories.TurnRepository {
	return &PostgresTurnRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new turn. The response stays NULL until generation
// completes; a NULL response marks the turn as in flight.
func (r *PostgresTurnRepository) Create(ctx context.Context, turn *models.Turn) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, question, response, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, r.tables.Turns)

	err := r.pool.QueryRow(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.Question,
		turn.Response,
		turn.CreatedAt,
	).Scan(&turn.CreatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("session %v: %w", turn.SessionID, domain.ErrNotFound)
		}
		return fmt.Errorf("create turn: %w", err)
	}

	return nil
}

// Get retrieves a turn by ID. Works for orphaned turns whose session is gone.
func (r *PostgresTurnRepository) Get(ctx context.Context, id string) (*models.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, question, response, created_at, responded_at
		FROM %s
		WHERE id = $1
	`, r.tables.Turns)

	var turn models.Turn
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&turn.ID,
		&turn.SessionID,
		&turn.Question,
		&turn.Response,
		&turn.CreatedAt,
		&turn.RespondedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("turn %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get turn: %w", err)
	}

	return &turn, nil
}

// ListBySession retrieves all turns for a session, oldest first
func (r *PostgresTurnRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, question, response, created_at, responded_at
		FROM %s
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, r.tables.Turns)

	return r.list(ctx, query, sessionID)
}

// ListCompleted retrieves up to limit answered turns for a session, newest
// first. Turns with a NULL response are in flight and never included.
func (r *PostgresTurnRepository) ListCompleted(ctx context.Context, sessionID string, limit int) ([]models.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, question, response, created_at, responded_at
		FROM %s
		WHERE session_id = $1 AND response IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2
	`, r.tables.Turns)

	return r.list(ctx, query, sessionID, limit)
}

// SetResponse persists the accumulated answer onto the turn
func (r *PostgresTurnRepository) SetResponse(ctx context.Context, id, response string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET response = $1, responded_at = NOW()
		WHERE id = $2
	`, r.tables.Turns)

	result, err := r.pool.Exec(ctx, query, response, id)
	if err != nil {
		return fmt.Errorf("set turn response: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("turn %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresTurnRepository) list(ctx context.Context, query string, args ...any) ([]models.Turn, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var turn models.Turn
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Question,
			&turn.Response,
			&turn.CreatedAt,
			&turn.RespondedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	if turns == nil {
		turns = []models.Turn{}
	}

	return turns, nil
}
