package llm

import (
	"context"

	"dpmeschat/internal/domain/models"
)

// Completer issues a single blocking completion call. Used by the intent
// classifier and the period/performance extractors.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}

// Streamer opens a token-streaming completion call. The returned channel is
// single-pass and finite; it is closed when the model signals completion or
// the stream fails. A second traversal requires a new call.
type Streamer interface {
	Stream(ctx context.Context, messages []models.Message) (<-chan string, error)
}

// Embedder turns text into a query vector for the semantic retriever.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
