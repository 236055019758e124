package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dpmeschat/internal/domain"
	"dpmeschat/internal/domain/models"
	"dpmeschat/internal/domain/repositories"
	"dpmeschat/internal/intent"
)

// IntentService classifies questions and extracts period and performance
// parameters from them.
type IntentService interface {
	Classify(ctx context.Context, question string) models.Intent
	ExtractPeriod(ctx context.Context, question string) models.ReportingPeriod
	ExtractPerformance(ctx context.Context, question string) models.PerformanceKey
}

// Retriever is the semantic search entry point.
type Retriever interface {
	Search(ctx context.Context, question string, limit int) ([]models.Fragment, error)
}

// ContextAssembler dispatches per-intent context builders.
type ContextAssembler interface {
	Build(ctx context.Context, intentVal models.Intent, fragments []models.Fragment, period models.ReportingPeriod, perf models.PerformanceKey) (models.ContextBundle, error)
}

// HistoryWindow loads the bounded conversation history.
type HistoryWindow interface {
	Messages(ctx context.Context, sessionID string) ([]models.Message, error)
}

// AnswerStreamer runs the final streaming completion.
type AnswerStreamer interface {
	Stream(ctx context.Context, bundle models.ContextBundle, history []models.Message, question string) (<-chan string, error)
}

// Service runs the question-answering pipeline and owns the session and
// turn records around it. Both transports call the same code: the websocket
// adapter uses Answer, the ask endpoint splits it into Begin (before the
// 202 acknowledgment) and Respond (inside the worker).
type Service struct {
	sessions repositories.SessionRepository
	turns    repositories.TurnRepository

	intents      IntentService
	retriever    Retriever
	assembler    ContextAssembler
	window       HistoryWindow
	orchestrator AnswerStreamer

	retrievalLimit int
	logger         *slog.Logger
}

type ServiceConfig struct {
	Sessions       repositories.SessionRepository
	Turns          repositories.TurnRepository
	Intents        IntentService
	Retriever      Retriever
	Assembler      ContextAssembler
	Window         HistoryWindow
	Orchestrator   AnswerStreamer
	RetrievalLimit int
	Logger         *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	limit := cfg.RetrievalLimit
	if limit <= 0 {
		limit = 4
	}
	return &Service{
		sessions:       cfg.Sessions,
		turns:          cfg.Turns,
		intents:        cfg.Intents,
		retriever:      cfg.Retriever,
		assembler:      cfg.Assembler,
		window:         cfg.Window,
		orchestrator:   cfg.Orchestrator,
		retrievalLimit: limit,
		logger:         cfg.Logger,
	}
}

// Begin validates the question, records the turn, and handles session
// titling. It does not generate anything; the caller decides whether to
// answer inline (websocket) or hand off to the worker (ask endpoint).
func (s *Service) Begin(ctx context.Context, sessionID, question string) (*models.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &domain.ValidationError{Message: "No question provided!"}
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turn := &models.Turn{
		ID:        uuid.NewString(),
		SessionID: &sessionID,
		Question:  question,
		CreatedAt: time.Now(),
	}
	if err := s.turns.Create(ctx, turn); err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}

	if session.Title == nil {
		if err := s.sessions.SetTitle(ctx, sessionID, question); err != nil {
			s.logger.Warn("session title assignment failed", "session_id", sessionID, "error", err)
		}
	}

	// Cleanup pass for sessions abandoned before their first question.
	// Scoped to this session so it cannot race a concurrent creation.
	if err := s.sessions.DeleteIfUntitled(ctx, sessionID); err != nil {
		s.logger.Warn("untitled session cleanup failed", "session_id", sessionID, "error", err)
	}

	return turn, nil
}

// Respond generates the answer for an already-recorded turn and streams it
// into the sink. The accumulated response is persisted before End fires, so
// a client that reconnects after the terminal event always sees the full
// answer in the transcript.
func (s *Service) Respond(ctx context.Context, sessionID, turnID, question string, sink DeltaSink) error {
	classified := s.intents.Classify(ctx, question)
	logger := s.logger.With("session_id", sessionID, "turn_id", turnID, "intent", classified)

	var fragments []models.Fragment
	if classified != models.IntentUnknown {
		var err error
		fragments, err = s.retriever.Search(ctx, question, s.retrievalLimit)
		if err != nil {
			// Degrade to an empty result; the assembler renders its
			// no-indicator fallback and the model explains the gap.
			logger.Warn("semantic retrieval failed", "error", err)
			fragments = nil
		}
	}

	period, perf := s.extractParameters(ctx, classified, question)

	bundle, err := s.assembler.Build(ctx, classified, fragments, period, perf)
	if err != nil {
		return fmt.Errorf("assemble context: %w", err)
	}

	historyMessages, err := s.window.Messages(ctx, sessionID)
	if err != nil {
		return err
	}

	deltas, err := s.orchestrator.Stream(ctx, bundle, historyMessages, question)
	if err != nil {
		return err
	}

	var response strings.Builder
	for chunk := range deltas {
		response.WriteString(chunk)
		if err := sink.Delta(ctx, chunk); err != nil {
			logger.Warn("delta delivery failed", "error", err)
		}
	}

	if err := s.turns.SetResponse(ctx, turnID, response.String()); err != nil {
		return fmt.Errorf("persist response: %w", err)
	}

	if err := sink.End(ctx); err != nil {
		logger.Warn("end-of-stream delivery failed", "error", err)
	}

	logger.Info("question answered", "response_len", response.Len())
	return nil
}

// Answer is the single-call form used by the direct channel.
func (s *Service) Answer(ctx context.Context, sessionID, question string, sink DeltaSink) error {
	turn, err := s.Begin(ctx, sessionID, question)
	if err != nil {
		return err
	}
	return s.Respond(ctx, sessionID, turn.ID, turn.Question, sink)
}

// extractParameters runs only the extractors the intent needs. TIME_SERIES
// takes its year from the question text directly; the reporting-period
// extraction call is reserved for the score intents.
func (s *Service) extractParameters(ctx context.Context, classified models.Intent, question string) (models.ReportingPeriod, models.PerformanceKey) {
	period := models.ReportingPeriod{Quarter: models.QuarterAnnual}
	perf := models.PerformanceNone

	switch classified {
	case models.IntentTimeSeries:
		period.Year = intent.ExtractYear(question)
	case models.IntentMinistryScore, models.IntentPolicyAreaScore, models.IntentGoalScore:
		period = s.intents.ExtractPeriod(ctx, question)
	case models.IntentMinistryPerformance:
		period = s.intents.ExtractPeriod(ctx, question)
		perf = s.intents.ExtractPerformance(ctx, question)
	}
	return period, perf
}

// CreateSession opens a new, untitled session for a user.
func (s *Service) CreateSession(ctx context.Context, userID *string) (*models.ChatSession, error) {
	session := &models.ChatSession{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now()}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ListSessions returns the caller's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]models.ChatSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// DeleteSession soft-deletes a session. Its turns are orphaned, not
// removed.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.SoftDelete(ctx, id)
}

// SessionTurns returns the transcript of a session, oldest first.
func (s *Service) SessionTurns(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.turns.ListBySession(ctx, sessionID)
}

// Turn returns a single turn, including orphans of deleted sessions.
func (s *Service) Turn(ctx context.Context, id string) (*models.Turn, error) {
	return s.turns.Get(ctx, id)
}

// Session returns one non-deleted session.
func (s *Service) Session(ctx context.Context, id string) (*models.ChatSession, error) {
	return s.sessions.Get(ctx, id)
}
