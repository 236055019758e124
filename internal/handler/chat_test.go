package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dpmeschat/internal/chat"
	"dpmeschat/internal/domain"
	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/httputil"
	"dpmeschat/internal/queue"
)

type memSessionRepo struct {
	sessions map[string]*models.ChatSession
	deleted  []string
}

func newMemSessionRepo(ids ...string) *memSessionRepo {
	m := &memSessionRepo{sessions: make(map[string]*models.ChatSession)}
	for _, id := range ids {
		m.sessions[id] = &models.ChatSession{ID: id}
	}
	return m
}

func (m *memSessionRepo) Create(_ context.Context, s *models.ChatSession) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) Get(_ context.Context, id string) (*models.ChatSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "session not found"}
	}
	return s, nil
}

func (m *memSessionRepo) ListByUser(_ context.Context, userID string) ([]models.ChatSession, error) {
	out := []models.ChatSession{}
	for _, s := range m.sessions {
		if s.UserID != nil && *s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessionRepo) SetTitle(_ context.Context, id, title string) error {
	if s, ok := m.sessions[id]; ok && s.Title == nil {
		s.Title = &title
	}
	return nil
}

func (m *memSessionRepo) SoftDelete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return &domain.NotFoundError{Message: "session not found"}
	}
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memSessionRepo) DeleteIfUntitled(_ context.Context, _ string) error { return nil }

type memTurnRepo struct {
	turns []models.Turn
}

func (m *memTurnRepo) Create(_ context.Context, t *models.Turn) error {
	m.turns = append(m.turns, *t)
	return nil
}

func (m *memTurnRepo) Get(_ context.Context, id string) (*models.Turn, error) {
	for _, t := range m.turns {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "turn not found"}
}

func (m *memTurnRepo) ListBySession(_ context.Context, sessionID string) ([]models.Turn, error) {
	out := []models.Turn{}
	for _, t := range m.turns {
		if t.SessionID != nil && *t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTurnRepo) ListCompleted(_ context.Context, _ string, _ int) ([]models.Turn, error) {
	return nil, nil
}

func (m *memTurnRepo) SetResponse(_ context.Context, _, _ string) error { return nil }

type recordingQueue struct {
	tasks []queue.Task
	err   error
}

func (r *recordingQueue) Enqueue(_ context.Context, task queue.Task) error {
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func newTestHandler(sessions *memSessionRepo, turns *memTurnRepo, q *recordingQueue) *http.ServeMux {
	svc := chat.NewService(chat.ServiceConfig{
		Sessions: sessions,
		Turns:    turns,
		Logger:   slog.Default(),
	})
	h := NewChatHandler(svc, q, slog.Default())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	var env httputil.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func TestAskAcceptsAndEnqueues(t *testing.T) {
	sessions := newMemSessionRepo("s1")
	turns := &memTurnRepo{}
	q := &recordingQueue{}
	mux := newTestHandler(sessions, turns, q)

	rec := doRequest(mux, http.MethodPost, "/api/chats/s1/ask", `{"question": "How is GDP doing?"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["result"] != "PROCESSING" || resp["chat_id"] != "s1" {
		t.Errorf("response = %v", resp)
	}

	if len(turns.turns) != 1 {
		t.Fatalf("turns created = %d, want 1", len(turns.turns))
	}
	if len(q.tasks) != 1 {
		t.Fatalf("enqueued tasks = %d, want 1", len(q.tasks))
	}
	if q.tasks[0].TurnID != turns.turns[0].ID || q.tasks[0].Question != "How is GDP doing?" {
		t.Errorf("task = %+v", q.tasks[0])
	}
}

func TestAskEmptyQuestionRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing field", body: `{}`},
		{name: "empty string", body: `{"question": ""}`},
		{name: "not json", body: `what`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &recordingQueue{}
			mux := newTestHandler(newMemSessionRepo("s1"), &memTurnRepo{}, q)

			rec := doRequest(mux, http.MethodPost, "/api/chats/s1/ask", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Result != httputil.ResultFailure || env.Message != "No question provided!" {
				t.Errorf("envelope = %+v", env)
			}
			if len(q.tasks) != 0 {
				t.Error("nothing must be enqueued for an invalid question")
			}
		})
	}
}

func TestAskUnknownSession(t *testing.T) {
	mux := newTestHandler(newMemSessionRepo(), &memTurnRepo{}, &recordingQueue{})
	rec := doRequest(mux, http.MethodPost, "/api/chats/nope/ask", `{"question": "hi"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Result != httputil.ResultFailure {
		t.Errorf("envelope = %+v", env)
	}
}

func TestAskEnqueueFailure(t *testing.T) {
	q := &recordingQueue{err: context.DeadlineExceeded}
	mux := newTestHandler(newMemSessionRepo("s1"), &memTurnRepo{}, q)

	rec := doRequest(mux, http.MethodPost, "/api/chats/s1/ask", `{"question": "hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestCreateAndDeleteSession(t *testing.T) {
	sessions := newMemSessionRepo()
	mux := newTestHandler(sessions, &memTurnRepo{}, &recordingQueue{})

	rec := doRequest(mux, http.MethodPost, "/api/chats", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Result != httputil.ResultSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	created := env.Data.(map[string]interface{})
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("created session id missing: %v", created)
	}

	rec = doRequest(mux, http.MethodDelete, "/api/chats/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != id {
		t.Errorf("deleted = %v", sessions.deleted)
	}
}

func TestSessionTurnsUnknownSession(t *testing.T) {
	mux := newTestHandler(newMemSessionRepo(), &memTurnRepo{}, &recordingQueue{})
	rec := doRequest(mux, http.MethodGet, "/api/chats/ghost/turns", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
