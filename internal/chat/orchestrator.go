package chat

import (
	"context"
	"fmt"
	"log/slog"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/llm"
	"dpmeschat/internal/prompt"
)

// Orchestrator builds the final prompt and runs the streaming completion.
// The message layout is fixed: system rules selected by intent, the
// assembled context as a user message, the bounded history, then the
// question itself.
type Orchestrator struct {
	streamer llm.Streamer
	rules    *prompt.Rules
	logger   *slog.Logger
}

func NewOrchestrator(streamer llm.Streamer, rules *prompt.Rules, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{streamer: streamer, rules: rules, logger: logger}
}

// Stream opens the completion stream for one turn. The returned channel is
// single-pass and finite; empty deltas are filtered out so every received
// chunk carries text.
func (o *Orchestrator) Stream(ctx context.Context, bundle models.ContextBundle, history []models.Message, question string) (<-chan string, error) {
	messages := make([]models.Message, 0, len(history)+3)
	messages = append(messages,
		models.Message{Role: models.RoleSystem, Content: o.rules.For(bundle.Intent)},
		models.Message{Role: models.RoleUser, Content: "Context:\n" + bundle.Text},
	)
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: question})

	raw, err := o.streamer.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("open answer stream: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for chunk := range raw {
			if chunk == "" {
				continue
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
