package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client pushes answer chunks from the worker to the relay server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type chunkRequest struct {
	ChatID string `json:"chat_id"`
	Chunk  string `json:"chunk"`
}

// PushChunk delivers one delta for a chat. The call is synchronous so push
// order matches generation order.
func (c *Client) PushChunk(ctx context.Context, chatID, chunk string) error {
	payload, err := json.Marshal(chunkRequest{ChatID: chatID, Chunk: chunk})
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stream_chunk", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build chunk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push chunk: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push chunk: unexpected status %d", resp.StatusCode)
	}
	return nil
}
