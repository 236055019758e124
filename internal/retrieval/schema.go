package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	wmodels "github.com/weaviate/weaviate/entities/models"
)

// indicatorClass defines the chunk class. Vectors come from the embedding
// endpoint at ingestion and query time, so the class carries no vectorizer.
func indicatorClass(name string) *wmodels.Class {
	properties := make([]*wmodels.Property, 0, len(metadataFields)+1)
	properties = append(properties, &wmodels.Property{
		Name:     "text",
		DataType: []string{"text"},
	})
	for _, field := range metadataFields {
		properties = append(properties, &wmodels.Property{
			Name:         field,
			DataType:     []string{"text"},
			Tokenization: "field",
		})
	}

	return &wmodels.Class{
		Class:      name,
		Vectorizer: "none",
		Properties: properties,
	}
}

// EnsureClass creates the indicator chunk class if it does not exist yet.
// Idempotent; safe to run on every startup.
func EnsureClass(ctx context.Context, client *weaviate.Client, name string, logger *slog.Logger) error {
	exists, err := client.Schema().ClassExistenceChecker().WithClassName(name).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if err := client.Schema().ClassCreator().WithClass(indicatorClass(name)).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", name, err)
	}
	logger.Info("weaviate class created", "class", name)
	return nil
}
