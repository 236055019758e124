package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey holds pending questions from the ask endpoint.
	StreamKey = "chat:questions"
	// ConsumerGroup is shared by all answer workers; each question is
	// delivered to exactly one of them.
	ConsumerGroup = "chat-workers"
)

// Task is one queued question. The worker re-runs the answering pipeline
// from these three fields alone.
type Task struct {
	ChatID   string `json:"chat_id"`
	TurnID   string `json:"turn_id"`
	Question string `json:"question"`
}

// Enqueuer schedules a question for background answering.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// Queue is the Redis Streams implementation of the question queue.
type Queue struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewQueue(rdb *redis.Client, logger *slog.Logger) *Queue {
	return &Queue{rdb: rdb, logger: logger}
}

// Enqueue appends the task to the question stream.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	id, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		Values: map[string]interface{}{"task": string(payload)},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue question: %w", err)
	}

	q.logger.Debug("question enqueued", "stream_id", id, "chat_id", task.ChatID, "turn_id", task.TurnID)
	return nil
}
