package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"dpmeschat/internal/chat"
	"dpmeschat/internal/httputil"
	"dpmeschat/internal/queue"
)

// ChatHandler serves the session CRUD surface and the decoupled ask
// endpoint.
type ChatHandler struct {
	service *chat.Service
	queue   queue.Enqueuer
	logger  *slog.Logger
}

func NewChatHandler(service *chat.Service, q queue.Enqueuer, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, queue: q, logger: logger}
}

// Register mounts the chat routes on the mux.
func (h *ChatHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chats", h.CreateSession)
	mux.HandleFunc("GET /api/chats", h.ListSessions)
	mux.HandleFunc("DELETE /api/chats/{id}", h.DeleteSession)
	mux.HandleFunc("GET /api/chats/{id}/turns", h.SessionTurns)
	mux.HandleFunc("GET /api/turns/{id}", h.Turn)
	mux.HandleFunc("POST /api/chats/{id}/ask", h.Ask)
}

// CreateSession opens a new untitled session for the caller.
// POST /api/chats
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var userID *string
	if id := httputil.GetUserID(r); id != "" {
		userID = &id
	}

	session, err := h.service.CreateSession(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusCreated, "Chat created successfully!", session)
}

// ListSessions returns the caller's sessions, newest first.
// GET /api/chats
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondFailure(w, http.StatusUnauthorized, "Authentication required!")
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Chats fetched successfully!", sessions)
}

// DeleteSession soft-deletes a session; its turns become orphans.
// DELETE /api/chats/{id}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		h.handleError(w, err)
		return
	}
	httputil.RespondSuccess(w, http.StatusOK, "Chat deleted successfully!", nil)
}

// SessionTurns returns a session's transcript, oldest first.
// GET /api/chats/{id}/turns
func (h *ChatHandler) SessionTurns(w http.ResponseWriter, r *http.Request) {
	turns, err := h.service.SessionTurns(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	httputil.RespondSuccess(w, http.StatusOK, "History fetched successfully!", turns)
}

// Turn returns one turn by id, including orphans of deleted sessions.
// GET /api/turns/{id}
func (h *ChatHandler) Turn(w http.ResponseWriter, r *http.Request) {
	turn, err := h.service.Turn(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	httputil.RespondSuccess(w, http.StatusOK, "Turn fetched successfully!", turn)
}

// AskRequest is the decoupled question payload.
type AskRequest struct {
	Question string `json:"question"`
}

func (r AskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Question,
			validation.Required.Error("No question provided!"),
			validation.Length(1, 500).Error("Question too long!"),
		),
	)
}

// Ask records the question, schedules background answering, and returns
// immediately. The answer streams to relay subscribers; the transcript
// endpoints serve it once persisted.
// POST /api/chats/{id}/ask
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req AskRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondFailure(w, http.StatusBadRequest, "No question provided!")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondFailure(w, http.StatusBadRequest, "No question provided!")
		return
	}

	turn, err := h.service.Begin(r.Context(), sessionID, req.Question)
	if err != nil {
		h.handleError(w, err)
		return
	}

	task := queue.Task{ChatID: sessionID, TurnID: turn.ID, Question: turn.Question}
	if err := h.queue.Enqueue(r.Context(), task); err != nil {
		h.logger.Error("question enqueue failed", "chat_id", sessionID, "turn_id", turn.ID, "error", err)
		httputil.RespondFailure(w, http.StatusInternalServerError, "Failed to schedule answer!")
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, map[string]interface{}{
		"result":  "PROCESSING",
		"chat_id": sessionID,
		"turn_id": turn.ID,
	})
}
