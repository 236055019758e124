package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dpmeschat/internal/httputil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 10 * time.Second

// chunkEvent is the frame fanned out to subscribers for each pushed delta.
type chunkEvent struct {
	Event  string `json:"event"`
	Chunk  string `json:"chunk"`
	ChatID string `json:"chat_id"`
}

// Server is the relay process surface: subscribers attach over websocket,
// the answer worker posts chunks over plain HTTP.
type Server struct {
	hub    *Hub
	logger *slog.Logger
}

func NewServer(hub *Hub, logger *slog.Logger) *Server {
	return &Server{hub: hub, logger: logger}
}

// HandleWS subscribes a websocket client to one chat's stream.
// GET /ws?chat_id=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		http.Error(w, "chat_id query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("relay upgrade failed", "error", err)
		return
	}

	sub := s.hub.Subscribe(chatID)
	defer conn.Close()

	// Writer: forward fanned-out frames until the subscription closes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for frame := range sub.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}()

	// Reader: the client sends nothing meaningful; reading detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Unsubscribing closes the send channel, which stops the writer.
	s.hub.Unsubscribe(chatID, sub)
	<-done
}

// HandleStreamChunk accepts one pushed delta and fans it out.
// POST /stream_chunk {"chat_id": ..., "chunk": ...}
func (s *Server) HandleStreamChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ChatID == "" {
		http.Error(w, "chat_id required", http.StatusBadRequest)
		return
	}

	frame, err := json.Marshal(chunkEvent{
		Event:  "bot_stream_chunk",
		Chunk:  req.Chunk,
		ChatID: req.ChatID,
	})
	if err != nil {
		http.Error(w, "encode frame", http.StatusInternalServerError)
		return
	}

	s.hub.Broadcast(req.ChatID, frame)
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
