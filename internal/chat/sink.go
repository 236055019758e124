package chat

import "context"

// DeltaSink receives answer deltas in order. Both transports implement it:
// the direct websocket channel writes stream events, the background worker
// pushes chunks to the relay server.
//
// Delta errors are delivery problems, not generation problems; the pipeline
// logs them and keeps streaming so the answer is still persisted in full.
type DeltaSink interface {
	Delta(ctx context.Context, chunk string) error

	// End signals that no further deltas will arrive for this turn. Called
	// exactly once, after the response has been persisted.
	End(ctx context.Context) error
}
