package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"dpmeschat/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inbound is the client frame shape: a question keyed by "message".
type inbound struct {
	Message string `json:"message"`
}

// StreamEvent is one outbound frame. Deltas carry is_stream true; the
// terminal frame carries is_final true with an empty message.
type StreamEvent struct {
	Message  string `json:"message"`
	IsStream bool   `json:"is_stream"`
	IsFinal  bool   `json:"is_final"`
}

// Handler serves the direct streaming channel at /ws/chat/{id}. One
// connection maps to one session; questions are answered sequentially in
// arrival order.
type Handler struct {
	service *chat.Service
	logger  *slog.Logger
}

func NewHandler(service *chat.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	// Reject before upgrading so the client sees a proper HTTP status for
	// a dead session id.
	if _, err := h.service.Session(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("session_id", sessionID)
	logger.Info("chat channel opened")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("chat channel read failed", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("unreadable client frame", "error", err)
			continue
		}
		if strings.TrimSpace(msg.Message) == "" {
			continue
		}

		sink := &connSink{conn: conn}
		if err := h.service.Answer(r.Context(), sessionID, msg.Message, sink); err != nil {
			logger.Error("answer pipeline failed", "error", err)
			// Close the turn on the client side even though the answer
			// was not produced.
			if err := sink.End(r.Context()); err != nil {
				logger.Warn("end-of-stream delivery failed", "error", err)
			}
		}
	}
}

// connSink writes stream events onto the websocket connection. Each delta
// is flushed before the next is requested, preserving orchestrator order.
type connSink struct {
	conn *websocket.Conn
}

func (s *connSink) Delta(_ context.Context, chunk string) error {
	return s.conn.WriteJSON(StreamEvent{Message: chunk, IsStream: true})
}

func (s *connSink) End(_ context.Context) error {
	return s.conn.WriteJSON(StreamEvent{IsFinal: true})
}
