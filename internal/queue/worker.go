package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dpmeschat/internal/chat"
)

// ChunkPusher forwards one answer delta to the relay server.
type ChunkPusher interface {
	PushChunk(ctx context.Context, chatID, chunk string) error
}

// defaultConcurrency bounds in-flight answer generations per worker process.
const defaultConcurrency = 4

// ackTimeout bounds the acknowledgment call, which runs detached from the
// task context so a shutdown mid-task cannot leave the message pending.
const ackTimeout = 5 * time.Second

// Worker consumes queued questions and runs the answering pipeline with a
// relay-push sink. Tasks generate in parallel up to the concurrency bound;
// deltas within one task stay ordered because each task pushes its own
// stream synchronously. There is no client cancellation path: once a task
// is claimed it runs to completion and the response is persisted regardless
// of whether anyone is still subscribed.
type Worker struct {
	rdb      *redis.Client
	consumer string
	service  *chat.Service
	relay    ChunkPusher
	sem      chan struct{}
	logger   *slog.Logger
}

func NewWorker(rdb *redis.Client, consumer string, concurrency int, service *chat.Service, relay ChunkPusher, logger *slog.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Worker{
		rdb:      rdb,
		consumer: consumer,
		service:  service,
		relay:    relay,
		sem:      make(chan struct{}, concurrency),
		logger:   logger,
	}
}

// EnsureGroup creates the consumer group if it does not exist yet.
func (w *Worker) EnsureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Run blocks consuming tasks until the context is canceled, then waits for
// in-flight answers to finish.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("answer worker started", "consumer", w.consumer, "concurrency", cap(w.sem))

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		default:
		}

		streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: w.consumer,
			Streams:  []string{StreamKey, ">"},
			Count:    int64(cap(w.sem)),
			Block:    5 * time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				w.drain()
				return ctx.Err()
			}
			w.logger.Error("stream read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				w.dispatch(ctx, msg)
			}
		}
	}
}

// dispatch hands one claimed task to a goroutine, blocking while every
// concurrency slot is busy so the stream read backs off instead of piling
// up claimed-but-unstarted messages.
func (w *Worker) dispatch(ctx context.Context, msg redis.XMessage) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	go func() {
		defer func() { <-w.sem }()
		w.handle(ctx, msg)
	}()
}

// drain waits until every dispatched task has finished.
func (w *Worker) drain() {
	for i := 0; i < cap(w.sem); i++ {
		w.sem <- struct{}{}
	}
}

// handle answers one claimed task. The message is acked in every case;
// a question whose pipeline failed is not retried because its turn already
// exists and retrying would double-answer it.
func (w *Worker) handle(ctx context.Context, msg redis.XMessage) {
	defer w.ack(msg.ID)

	raw, ok := msg.Values["task"].(string)
	if !ok {
		w.logger.Error("queued message missing task field", "stream_id", msg.ID)
		return
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		w.logger.Error("queued task unreadable", "stream_id", msg.ID, "error", err)
		return
	}

	logger := w.logger.With("chat_id", task.ChatID, "turn_id", task.TurnID)
	logger.Info("answering queued question")

	sink := &relaySink{relay: w.relay, chatID: task.ChatID, logger: logger}
	if err := w.service.Respond(ctx, task.ChatID, task.TurnID, task.Question, sink); err != nil {
		logger.Error("queued answer failed", "error", err)
	}
}

// ack runs on its own short context: the task context may already be
// canceled by shutdown, and a message that is handled but never acked
// stays pending in the group forever.
func (w *Worker) ack(msgID string) {
	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()

	if err := w.rdb.XAck(ctx, StreamKey, ConsumerGroup, msgID).Err(); err != nil {
		w.logger.Error("task ack failed", "stream_id", msgID, "error", err)
	}
}

// relaySink pushes each delta to the relay server synchronously, keeping
// push order equal to generation order. The relay protocol has no terminal
// event; subscribers detect completion from the transcript.
type relaySink struct {
	relay  ChunkPusher
	chatID string
	logger *slog.Logger
}

func (s *relaySink) Delta(ctx context.Context, chunk string) error {
	return s.relay.PushChunk(ctx, s.chatID, chunk)
}

func (s *relaySink) End(_ context.Context) error {
	s.logger.Debug("relay stream complete")
	return nil
}
