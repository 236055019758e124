package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dpmeschat/internal/chat"
	"dpmeschat/internal/domain"
	"dpmeschat/internal/domain/models"
)

type stubSessionRepo struct{ known map[string]bool }

func (s *stubSessionRepo) Create(_ context.Context, _ *models.ChatSession) error { return nil }
func (s *stubSessionRepo) Get(_ context.Context, id string) (*models.ChatSession, error) {
	if !s.known[id] {
		return nil, &domain.NotFoundError{Message: "session not found"}
	}
	title := "t"
	return &models.ChatSession{ID: id, Title: &title}, nil
}
func (s *stubSessionRepo) ListByUser(_ context.Context, _ string) ([]models.ChatSession, error) {
	return nil, nil
}
func (s *stubSessionRepo) SetTitle(_ context.Context, _, _ string) error      { return nil }
func (s *stubSessionRepo) SoftDelete(_ context.Context, _ string) error       { return nil }
func (s *stubSessionRepo) DeleteIfUntitled(_ context.Context, _ string) error { return nil }

type stubTurnRepo struct{}

func (stubTurnRepo) Create(_ context.Context, _ *models.Turn) error        { return nil }
func (stubTurnRepo) Get(_ context.Context, _ string) (*models.Turn, error) { return nil, nil }
func (stubTurnRepo) ListBySession(_ context.Context, _ string) ([]models.Turn, error) {
	return nil, nil
}
func (stubTurnRepo) ListCompleted(_ context.Context, _ string, _ int) ([]models.Turn, error) {
	return nil, nil
}
func (stubTurnRepo) SetResponse(_ context.Context, _, _ string) error { return nil }

type stubIntents struct{}

func (stubIntents) Classify(_ context.Context, _ string) models.Intent { return models.IntentUnknown }
func (stubIntents) ExtractPeriod(_ context.Context, _ string) models.ReportingPeriod {
	return models.ReportingPeriod{Quarter: models.QuarterAnnual}
}
func (stubIntents) ExtractPerformance(_ context.Context, _ string) models.PerformanceKey {
	return models.PerformanceNone
}

type stubRetriever struct{}

func (stubRetriever) Search(_ context.Context, _ string, _ int) ([]models.Fragment, error) {
	return nil, nil
}

type stubAssembler struct{}

func (stubAssembler) Build(_ context.Context, intent models.Intent, _ []models.Fragment, _ models.ReportingPeriod, _ models.PerformanceKey) (models.ContextBundle, error) {
	return models.ContextBundle{Text: "ctx", Intent: intent}, nil
}

type stubWindow struct{}

func (stubWindow) Messages(_ context.Context, _ string) ([]models.Message, error) { return nil, nil }

type stubOrchestrator struct{ deltas []string }

func (s stubOrchestrator) Stream(_ context.Context, _ models.ContextBundle, _ []models.Message, _ string) (<-chan string, error) {
	out := make(chan string, len(s.deltas))
	for _, d := range s.deltas {
		out <- d
	}
	close(out)
	return out, nil
}

type failingOrchestrator struct{}

func (failingOrchestrator) Stream(_ context.Context, _ models.ContextBundle, _ []models.Message, _ string) (<-chan string, error) {
	return nil, errors.New("model unavailable")
}

func newTestServer(t *testing.T, deltas []string) *httptest.Server {
	return newTestServerWithOrchestrator(t, stubOrchestrator{deltas: deltas})
}

func newTestServerWithOrchestrator(t *testing.T, orch chat.AnswerStreamer) *httptest.Server {
	t.Helper()
	svc := chat.NewService(chat.ServiceConfig{
		Sessions:     &stubSessionRepo{known: map[string]bool{"s1": true}},
		Turns:        stubTurnRepo{},
		Intents:      stubIntents{},
		Retriever:    stubRetriever{},
		Assembler:    stubAssembler{},
		Window:       stubWindow{},
		Orchestrator: orch,
		Logger:       slog.Default(),
	})

	mux := http.NewServeMux()
	mux.Handle("GET /ws/chat/{id}", NewHandler(svc, slog.Default()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamEventOrdering(t *testing.T) {
	srv := newTestServer(t, []string{"Hello", ", ", "world"})
	conn := dial(t, srv, "s1")

	if err := conn.WriteJSON(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var events []StreamEvent
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		events = append(events, ev)
		if ev.IsFinal {
			break
		}
	}

	if len(events) != 4 {
		t.Fatalf("got %d events, want 3 deltas plus terminal", len(events))
	}
	wantDeltas := []string{"Hello", ", ", "world"}
	for i, want := range wantDeltas {
		ev := events[i]
		if ev.Message != want || !ev.IsStream || ev.IsFinal {
			t.Errorf("event[%d] = %+v, want streaming delta %q", i, ev, want)
		}
	}
	last := events[3]
	if last.Message != "" || last.IsStream || !last.IsFinal {
		t.Errorf("terminal event = %+v", last)
	}
}

func TestEmptyMessageIgnored(t *testing.T) {
	srv := newTestServer(t, []string{"answer"})
	conn := dial(t, srv, "s1")

	// An empty question must produce no frames; the next real question
	// streams normally.
	if err := conn.WriteJSON(map[string]string{"message": "   "}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"message": "real question"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ev StreamEvent
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Message != "answer" || !ev.IsStream {
		t.Errorf("first frame = %+v, want the real question's delta", ev)
	}
}

func TestPipelineFailureStillSendsTerminal(t *testing.T) {
	srv := newTestServerWithOrchestrator(t, failingOrchestrator{})
	conn := dial(t, srv, "s1")

	if err := conn.WriteJSON(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The failed answer produces no deltas, but the client must still see
	// the turn close.
	var ev StreamEvent
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Message != "" || ev.IsStream || !ev.IsFinal {
		t.Errorf("frame = %+v, want the terminal event", ev)
	}
}

func TestUnknownSessionRejectedBeforeUpgrade(t *testing.T) {
	srv := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/missing"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %+v, want 404", resp)
	}
}
