package repositories

import (
	"context"

	"dpmeschat/internal/domain/models"
)

// SessionRepository manages chat sessions in the conversation store.
type SessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	Get(ctx context.Context, id string) (*models.ChatSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.ChatSession, error)

	// SetTitle assigns the title only if the session has none yet; the title
	// is write-once by construction.
	SetTitle(ctx context.Context, id, title string) error

	// SoftDelete marks the session deleted. Turns are orphaned, not cascaded.
	SoftDelete(ctx context.Context, id string) error

	// DeleteIfUntitled removes the session only when it still has no title.
	// Scoped to one session id; the unscoped variant races with concurrent
	// session creation.
	DeleteIfUntitled(ctx context.Context, id string) error
}

// TurnRepository manages question/response turns.
type TurnRepository interface {
	Create(ctx context.Context, turn *models.Turn) error
	Get(ctx context.Context, id string) (*models.Turn, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.Turn, error)

	// ListCompleted returns up to limit turns with a non-null response for
	// the session, newest first.
	ListCompleted(ctx context.Context, sessionID string, limit int) ([]models.Turn, error)

	// SetResponse persists the accumulated answer onto the turn. Each turn's
	// response is written exactly once, by the task that created the turn.
	SetResponse(ctx context.Context, id, response string) error
}
