package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"dpmeschat/internal/domain/models"
)

// streamTemperature is used for answer generation; classification and
// extraction calls run at temperature 0 for deterministic output.
const streamTemperature = 0.2

// OpenAIClient talks to an OpenAI-compatible completion server (vLLM).
// It implements Completer, Streamer and Embedder.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	embedModel string
	logger     *slog.Logger
}

// Options configures the OpenAI-compatible client.
type Options struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
}

// NewOpenAIClient creates a client against an OpenAI-compatible endpoint.
func NewOpenAIClient(opts Options, logger *slog.Logger) (*OpenAIClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("llm base URL not configured")
	}
	if opts.Model == "" {
		return nil, errors.New("llm model not configured")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL

	logger.Info("llm client initialized", "base_url", opts.BaseURL, "model", opts.Model)

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		embedModel: opts.EmbeddingModel,
		logger:     logger,
	}, nil
}

// Complete issues a single blocking completion call at temperature 0.
func (c *OpenAIClient) Complete(ctx context.Context, messages []models.Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream opens a token-streaming completion call and forwards content deltas
// on the returned channel until the model signals completion.
func (c *OpenAIClient) Stream(ctx context.Context, messages []models.Message) (<-chan string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: streamTemperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				c.logger.Error("completion stream failed", "error", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			select {
			case out <- resp.Choices[0].Delta.Content:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Embed returns the embedding vector for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}

	return resp.Data[0].Embedding, nil
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}
