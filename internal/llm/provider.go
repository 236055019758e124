package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dpmeschat/internal/domain/models"
)

// Provider hands out a process-wide LLM client, constructed lazily on first
// use and reused across requests. Construction failure is memoized and
// reported to every caller as an error; it never crashes the process.
//
// Provider itself implements Completer, Streamer and Embedder so callers can
// hold the interface without forcing construction at wiring time.
type Provider struct {
	opts   Options
	logger *slog.Logger

	once   sync.Once
	client *OpenAIClient
	err    error
}

// NewProvider creates a provider; no connection is made until first use.
func NewProvider(opts Options, logger *slog.Logger) *Provider {
	return &Provider{opts: opts, logger: logger}
}

// Client returns the shared client, constructing it on first call.
func (p *Provider) Client() (*OpenAIClient, error) {
	p.once.Do(func() {
		p.client, p.err = NewOpenAIClient(p.opts, p.logger)
		if p.err != nil {
			p.logger.Error("llm client construction failed", "error", p.err)
		}
	})
	if p.err != nil {
		return nil, fmt.Errorf("llm provider: %w", p.err)
	}
	return p.client, nil
}

func (p *Provider) Complete(ctx context.Context, messages []models.Message) (string, error) {
	client, err := p.Client()
	if err != nil {
		return "", err
	}
	return client.Complete(ctx, messages)
}

func (p *Provider) Stream(ctx context.Context, messages []models.Message) (<-chan string, error) {
	client, err := p.Client()
	if err != nil {
		return nil, err
	}
	return client.Stream(ctx, messages)
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := p.Client()
	if err != nil {
		return nil, err
	}
	return client.Embed(ctx, text)
}
