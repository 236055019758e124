package models

import (
	"time"
)

// ChatSession is one conversation between a user and the bot.
// Sessions are soft-deleted; the title is set exactly once, from the first
// question that gets answered.
type ChatSession struct {
	ID        string     `json:"id" db:"id"`
	UserID    *string    `json:"user_id,omitempty" db:"user_id"`
	Title     *string    `json:"title,omitempty" db:"title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Turn is a single question/response pair within a session.
// Response is null while the answer is still streaming ("in flight").
// SessionID is nullable: deleting a session orphans its turns instead of
// cascading, so a turn stays retrievable by id after its session is gone.
type Turn struct {
	ID          string     `json:"id" db:"id"`
	SessionID   *string    `json:"session_id,omitempty" db:"session_id"`
	Question    string     `json:"question" db:"question"`
	Response    *string    `json:"response,omitempty" db:"response"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`
}

// Completed reports whether the turn has a persisted response.
func (t *Turn) Completed() bool {
	return t.Response != nil
}
