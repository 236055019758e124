package chat

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"dpmeschat/internal/domain"
	"dpmeschat/internal/domain/models"
)

type fakeSessionRepo struct {
	sessions       map[string]*models.ChatSession
	titles         map[string]string
	untitledChecks []string
	getErr         error
}

func newFakeSessionRepo(sessions ...*models.ChatSession) *fakeSessionRepo {
	m := make(map[string]*models.ChatSession)
	for _, s := range sessions {
		m[s.ID] = s
	}
	return &fakeSessionRepo{sessions: m, titles: make(map[string]string)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *models.ChatSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionRepo) Get(_ context.Context, id string) (*models.ChatSession, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "session not found"}
	}
	return s, nil
}

func (f *fakeSessionRepo) ListByUser(_ context.Context, _ string) ([]models.ChatSession, error) {
	return nil, nil
}

func (f *fakeSessionRepo) SetTitle(_ context.Context, id, title string) error {
	f.titles[id] = title
	return nil
}

func (f *fakeSessionRepo) SoftDelete(_ context.Context, _ string) error { return nil }

func (f *fakeSessionRepo) DeleteIfUntitled(_ context.Context, id string) error {
	f.untitledChecks = append(f.untitledChecks, id)
	return nil
}

type fakeTurnRepo struct {
	created   []*models.Turn
	responses map[string]string
	setErr    error
}

func newFakeTurnRepo() *fakeTurnRepo {
	return &fakeTurnRepo{responses: make(map[string]string)}
}

func (f *fakeTurnRepo) Create(_ context.Context, t *models.Turn) error {
	f.created = append(f.created, t)
	return nil
}

func (f *fakeTurnRepo) Get(_ context.Context, _ string) (*models.Turn, error) { return nil, nil }
func (f *fakeTurnRepo) ListBySession(_ context.Context, _ string) ([]models.Turn, error) {
	return nil, nil
}
func (f *fakeTurnRepo) ListCompleted(_ context.Context, _ string, _ int) ([]models.Turn, error) {
	return nil, nil
}

func (f *fakeTurnRepo) SetResponse(_ context.Context, id, response string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.responses[id] = response
	return nil
}

type fakeIntents struct {
	intent models.Intent
	period models.ReportingPeriod
	perf   models.PerformanceKey

	periodCalls int
	perfCalls   int
}

func (f *fakeIntents) Classify(_ context.Context, _ string) models.Intent { return f.intent }
func (f *fakeIntents) ExtractPeriod(_ context.Context, _ string) models.ReportingPeriod {
	f.periodCalls++
	return f.period
}
func (f *fakeIntents) ExtractPerformance(_ context.Context, _ string) models.PerformanceKey {
	f.perfCalls++
	return f.perf
}

type fakeRetriever struct {
	fragments []models.Fragment
	err       error
	calls     int
}

func (f *fakeRetriever) Search(_ context.Context, _ string, _ int) ([]models.Fragment, error) {
	f.calls++
	return f.fragments, f.err
}

type fakeAssembler struct {
	gotFragments []models.Fragment
	gotIntent    models.Intent
	gotPerf      models.PerformanceKey
}

func (f *fakeAssembler) Build(_ context.Context, intent models.Intent, fragments []models.Fragment, _ models.ReportingPeriod, perf models.PerformanceKey) (models.ContextBundle, error) {
	f.gotIntent = intent
	f.gotFragments = fragments
	f.gotPerf = perf
	return models.ContextBundle{Text: "assembled context", Intent: intent}, nil
}

type fakeWindow struct {
	messages []models.Message
	err      error
}

func (f *fakeWindow) Messages(_ context.Context, _ string) ([]models.Message, error) {
	return f.messages, f.err
}

type fakeStreamer struct {
	deltas []string
	err    error
}

func (f *fakeStreamer) Stream(_ context.Context, _ models.ContextBundle, _ []models.Message, _ string) (<-chan string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan string, len(f.deltas))
	for _, d := range f.deltas {
		out <- d
	}
	close(out)
	return out, nil
}

type recordingSink struct {
	deltas   []string
	deltaErr error
	ends     int
}

func (r *recordingSink) Delta(_ context.Context, chunk string) error {
	r.deltas = append(r.deltas, chunk)
	return r.deltaErr
}

func (r *recordingSink) End(_ context.Context) error {
	r.ends++
	return nil
}

type fixture struct {
	sessions  *fakeSessionRepo
	turns     *fakeTurnRepo
	intents   *fakeIntents
	retriever *fakeRetriever
	assembler *fakeAssembler
	streamer  *fakeStreamer
	svc       *Service
}

func newFixture(intent models.Intent, deltas []string) *fixture {
	f := &fixture{
		sessions:  newFakeSessionRepo(&models.ChatSession{ID: "s1"}),
		turns:     newFakeTurnRepo(),
		intents:   &fakeIntents{intent: intent, period: models.ReportingPeriod{Quarter: models.QuarterAnnual}},
		retriever: &fakeRetriever{fragments: []models.Fragment{{Text: "frag"}}},
		assembler: &fakeAssembler{},
		streamer:  &fakeStreamer{deltas: deltas},
	}
	f.svc = NewService(ServiceConfig{
		Sessions:     f.sessions,
		Turns:        f.turns,
		Intents:      f.intents,
		Retriever:    f.retriever,
		Assembler:    f.assembler,
		Window:       &fakeWindow{},
		Orchestrator: f.streamer,
		Logger:       slog.Default(),
	})
	return f
}

func TestAnswerStreamsAndPersists(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, []string{"The ", "GDP ", "grew."})
	sink := &recordingSink{}

	if err := f.svc.Answer(context.Background(), "s1", "GDP in 2016?", sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if len(f.turns.created) != 1 {
		t.Fatalf("turns created = %d, want 1", len(f.turns.created))
	}
	turnID := f.turns.created[0].ID

	if got := f.turns.responses[turnID]; got != "The GDP grew." {
		t.Errorf("persisted response = %q", got)
	}
	if len(sink.deltas) != 3 || sink.deltas[0] != "The " || sink.deltas[2] != "grew." {
		t.Errorf("sink deltas = %v", sink.deltas)
	}
	if sink.ends != 1 {
		t.Errorf("End called %d times, want 1", sink.ends)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, nil)
	err := f.svc.Answer(context.Background(), "s1", "   ", &recordingSink{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(f.turns.created) != 0 {
		t.Error("turn must not be created for an empty question")
	}
}

func TestAnswerUnknownSessionFails(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, nil)
	err := f.svc.Answer(context.Background(), "nope", "question", &recordingSink{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not-found error", err)
	}
}

func TestUnknownIntentSkipsRetrieval(t *testing.T) {
	f := newFixture(models.IntentUnknown, []string{"<p>Hello</p>"})

	if err := f.svc.Answer(context.Background(), "s1", "hi there", &recordingSink{}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if f.retriever.calls != 0 {
		t.Errorf("retriever called %d times for UNKNOWN, want 0", f.retriever.calls)
	}
	if f.assembler.gotIntent != models.IntentUnknown {
		t.Errorf("assembler intent = %v", f.assembler.gotIntent)
	}
}

func TestRetrievalFailureDegrades(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, []string{"answer"})
	f.retriever.err = errors.New("vector store down")
	f.retriever.fragments = nil

	if err := f.svc.Answer(context.Background(), "s1", "GDP?", &recordingSink{}); err != nil {
		t.Fatalf("retrieval failure must degrade, got error: %v", err)
	}
	if f.assembler.gotFragments != nil {
		t.Errorf("assembler fragments = %v, want nil", f.assembler.gotFragments)
	}
}

func TestExtractorsPerIntent(t *testing.T) {
	tests := []struct {
		intent          models.Intent
		wantPeriodCalls int
		wantPerfCalls   int
	}{
		{models.IntentTimeSeries, 0, 0},
		{models.IntentMinistryScore, 1, 0},
		{models.IntentMinistryPerformance, 1, 1},
		{models.IntentPolicyAreaScore, 1, 0},
		{models.IntentGoalScore, 1, 0},
		{models.IntentUnknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			f := newFixture(tt.intent, []string{"x"})
			if err := f.svc.Answer(context.Background(), "s1", "question", &recordingSink{}); err != nil {
				t.Fatalf("Answer: %v", err)
			}
			if f.intents.periodCalls != tt.wantPeriodCalls {
				t.Errorf("period extractions = %d, want %d", f.intents.periodCalls, tt.wantPeriodCalls)
			}
			if f.intents.perfCalls != tt.wantPerfCalls {
				t.Errorf("performance extractions = %d, want %d", f.intents.perfCalls, tt.wantPerfCalls)
			}
		})
	}
}

func TestSinkFailureDoesNotAbortPersistence(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, []string{"part one ", "part two"})
	sink := &recordingSink{deltaErr: errors.New("client gone")}

	if err := f.svc.Answer(context.Background(), "s1", "GDP?", sink); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	turnID := f.turns.created[0].ID
	if got := f.turns.responses[turnID]; got != "part one part two" {
		t.Errorf("persisted response = %q despite delivery failures", got)
	}
	if sink.ends != 1 {
		t.Errorf("End called %d times, want 1", sink.ends)
	}
}

func TestPersistFailureIsFatal(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, []string{"x"})
	f.turns.setErr = errors.New("write failed")
	sink := &recordingSink{}

	if err := f.svc.Answer(context.Background(), "s1", "GDP?", sink); err == nil {
		t.Fatal("expected error when response persistence fails")
	}
	if sink.ends != 0 {
		t.Error("End must not fire when the response was not persisted")
	}
}

func TestBeginAssignsTitleOnce(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, nil)

	if _, err := f.svc.Begin(context.Background(), "s1", "first question"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := f.sessions.titles["s1"]; got != "first question" {
		t.Errorf("title = %q, want first question", got)
	}

	// Simulate the stored title and ask again.
	title := "first question"
	f.sessions.sessions["s1"].Title = &title
	f.sessions.titles["s1"] = ""

	if _, err := f.svc.Begin(context.Background(), "s1", "second question"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := f.sessions.titles["s1"]; got != "" {
		t.Errorf("title reassigned to %q on a titled session", got)
	}
}

func TestBeginRunsScopedCleanup(t *testing.T) {
	f := newFixture(models.IntentTimeSeries, nil)
	if _, err := f.svc.Begin(context.Background(), "s1", "question"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(f.sessions.untitledChecks) != 1 || f.sessions.untitledChecks[0] != "s1" {
		t.Errorf("cleanup checks = %v, want exactly [s1]", f.sessions.untitledChecks)
	}
}
