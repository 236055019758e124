package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/llm"
)

// metadataFields are the scalar properties fetched alongside the chunk text.
// Whatever comes back non-empty lands in Fragment.Metadata under the same key.
var metadataFields = []string{
	"code",
	"name",
	"topic",
	"category",
	"unit",
	"source",
	"kpi_type",
	"parent",
	"version",
	"ministry_id",
	"policy_area_id",
	"goal_id",
}

// WeaviateRetriever embeds the question and runs a nearVector search against
// the indicator chunk class.
type WeaviateRetriever struct {
	client   *weaviate.Client
	embedder llm.Embedder
	class    string
	logger   *slog.Logger
}

func NewWeaviateRetriever(client *weaviate.Client, embedder llm.Embedder, class string, logger *slog.Logger) *WeaviateRetriever {
	return &WeaviateRetriever{
		client:   client,
		embedder: embedder,
		class:    class,
		logger:   logger,
	}
}

func (r *WeaviateRetriever) Search(ctx context.Context, question string, limit int) ([]models.Fragment, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	nearVector := r.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := make([]graphql.Field, 0, len(metadataFields)+1)
	fields = append(fields, graphql.Field{Name: "text"})
	for _, name := range metadataFields {
		fields = append(fields, graphql.Field{Name: name})
	}

	result, err := r.client.GraphQL().Get().
		WithClassName(r.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}

	fragments := r.parseResults(result)
	r.logger.Debug("semantic search complete", "class", r.class, "fragments", len(fragments))
	return fragments, nil
}

func (r *WeaviateRetriever) parseResults(result *wmodels.GraphQLResponse) []models.Fragment {
	get, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[r.class].([]interface{})
	if !ok {
		return nil
	}

	fragments := make([]models.Fragment, 0, len(items))
	for _, item := range items {
		props, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		frag := models.Fragment{Metadata: make(map[string]string)}
		if text, ok := props["text"].(string); ok {
			frag.Text = text
		}
		for _, name := range metadataFields {
			if v, ok := props[name].(string); ok && v != "" {
				frag.Metadata[name] = v
			}
		}

		if frag.Text == "" && len(frag.Metadata) == 0 {
			continue
		}
		fragments = append(fragments, frag)
	}
	return fragments
}
