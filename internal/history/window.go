package history

import (
	"context"
	"fmt"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/domain/repositories"
)

// DefaultTurns is the conversation window used when no cap is configured.
const DefaultTurns = 3

// Window builds the bounded conversation history for a completion call.
// Only completed turns count toward the cap; the turn currently being
// answered is never part of its own history.
type Window struct {
	turns repositories.TurnRepository
	cap   int
}

func NewWindow(turns repositories.TurnRepository, cap int) *Window {
	if cap <= 0 {
		cap = DefaultTurns
	}
	return &Window{turns: turns, cap: cap}
}

// Messages returns the window as alternating user/assistant messages,
// oldest turn first.
func (w *Window) Messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	turns, err := w.turns.ListCompleted(ctx, sessionID, w.cap)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// ListCompleted returns newest first; the prompt wants oldest first.
	messages := make([]models.Message, 0, len(turns)*2)
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		messages = append(messages, models.Message{Role: models.RoleUser, Content: turn.Question})
		if turn.Response != nil {
			messages = append(messages, models.Message{Role: models.RoleAssistant, Content: *turn.Response})
		}
	}
	return messages, nil
}
