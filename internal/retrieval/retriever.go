package retrieval

import (
	"context"

	"dpmeschat/internal/domain/models"
)

// Retriever returns the ranked document fragments for a question. The
// semantic index itself is a black box; implementations only translate a
// question into an ordered fragment list with string metadata.
type Retriever interface {
	Search(ctx context.Context, question string, limit int) ([]models.Fragment, error)
}
