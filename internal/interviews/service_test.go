package interviews

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/provider"
	"github.com/aura-interview/backend/internal/provider/avatar"
	"github.com/aura-interview/backend/internal/provider/generation"
	"github.com/aura-interview/backend/internal/scoring"
	"github.com/aura-interview/backend/pkg/queue"
)

const scenarioB = "I led a team of 5 engineers, for example on Project X, using React and AWS."

func testConfig() config.InterviewConfig {
	return config.InterviewConfig{
		PromptContextTurns: 6,
		MemoryWindow:       20,
		MaxMessageLength:   5000,
		DefaultPersona:     "sarah-professional-hr",
		Retention:          time.Minute,
		PassThreshold:      7.0,
	}
}

// flakyStore fails writes on demand. failReplies fails only interviewer turns.
type flakyStore struct {
	*MemoryStore
	failAppend  atomic.Bool
	failReplies atomic.Bool
	failStatus  atomic.Bool
}

func (f *flakyStore) AppendTurn(ctx context.Context, id uuid.UUID, turn models.ConversationTurn, score *models.ScoreRecord, final *float64) error {
	if f.failAppend.Load() || (f.failReplies.Load() && turn.Speaker == models.SpeakerAI) {
		return errors.New("connection refused")
	}
	return f.MemoryStore.AppendTurn(ctx, id, turn, score, final)
}

func (f *flakyStore) UpdateStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) error {
	if f.failStatus.Load() {
		return errors.New("connection refused")
	}
	return f.MemoryStore.UpdateStatus(ctx, id, u)
}

// gatedBackend holds follow-up generation until released.
type gatedBackend struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gatedBackend {
	return &gatedBackend{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedBackend) Name() string { return "gated" }

func (g *gatedBackend) Invoke(ctx context.Context, req generation.Request) (string, error) {
	if req.Kind != generation.KindFollowUp {
		return generation.Demo(ctx, req)
	}
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return "Tell me more about Project X.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordedEvent struct {
	id    uuid.UUID
	event string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(id uuid.UUID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{id: id, event: event})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

type fakeMirror struct {
	mu   sync.Mutex
	jobs []queue.ArtifactMirrorPayload
}

func (m *fakeMirror) EnqueueArtifactMirror(_ context.Context, p queue.ArtifactMirrorPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, p)
	return nil
}

type vendorAvatar struct{}

func (vendorAvatar) Name() string { return "did" }

func (vendorAvatar) Invoke(context.Context, avatar.Request) (string, error) {
	return "https://vendor.example/talks/result.mp4", nil
}

func newTestService(t *testing.T, mutate func(*Deps)) (*Service, *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	d := Deps{Store: store, Config: testConfig()}
	if mutate != nil {
		mutate(&d)
	}
	return NewService(d), store
}

func start(t *testing.T, svc *Service) *StartResult {
	t.Helper()
	res, err := svc.StartSession(context.Background(), StartInput{
		Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer"},
	})
	require.NoError(t, err)
	return res
}

func TestStartSession(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, nil)

	res := start(t, svc)
	assert.Equal(t, "sarah-professional-hr", res.Persona.ID)
	assert.Contains(t, res.WelcomeText, "Ana")
	assert.Contains(t, res.WelcomeText, "Engineer")
	assert.NotEmpty(t, res.AudioURL)
	assert.NotEmpty(t, res.VideoURL)
	assert.Equal(t, models.ExperienceMid, res.Candidate.Experience)

	iv, err := svc.GetSession(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, iv.Status)
	require.Len(t, iv.Conversation, 1)
	assert.Equal(t, models.SpeakerAI, iv.Conversation[0].Speaker)
	assert.Nil(t, iv.FinalScore)

	stored, err := store.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Len(t, stored.Conversation, 1)
}

func TestStartSessionRejectsBadProfile(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	cases := []StartInput{
		{Candidate: models.CandidateProfile{Position: "Engineer"}},
		{Candidate: models.CandidateProfile{Name: "Ana"}},
		{Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer", Experience: "wizard"}},
		{Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer", Email: "not-an-email"}},
		{Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer"}, Persona: "nobody"},
	}
	for _, in := range cases {
		_, err := svc.StartSession(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidProfile)
	}
	assert.Zero(t, svc.Registry().Len())
}

func TestStartSessionPersistenceFailure(t *testing.T) {
	t.Parallel()
	store := &failingCreateStore{MemoryStore: NewMemoryStore()}
	svc := NewService(Deps{Store: store, Config: testConfig()})

	_, err := svc.StartSession(context.Background(), StartInput{
		Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer"},
	})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Zero(t, svc.Registry().Len())
}

type failingCreateStore struct{ *MemoryStore }

func (failingCreateStore) Create(context.Context, *models.Interview) error {
	return errors.New("database is down")
}

func TestSubmitTurnScoresAndReplies(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	svc, store := newTestService(t, nil)
	svc.SetPublisher(pub)
	s := start(t, svc)

	res, err := svc.SubmitTurn(context.Background(), s.SessionID, TurnInput{Message: "  " + scenarioB + "  "})
	require.NoError(t, err)
	assert.Equal(t, scenarioB, res.Message)
	assert.GreaterOrEqual(t, res.Score, 7.0)
	assert.LessOrEqual(t, res.Score, 10.0)
	require.NotNil(t, res.CurrentScore)
	assert.Equal(t, res.Score, *res.CurrentScore)
	assert.Equal(t, "Thank you for sharing that. "+generation.Question(1), res.ReplyText)

	iv, err := svc.GetSession(context.Background(), s.SessionID)
	require.NoError(t, err)
	require.Len(t, iv.Conversation, 3)
	answer := iv.Conversation[1]
	assert.Equal(t, models.SpeakerCandidate, answer.Speaker)
	require.NotNil(t, answer.Metadata)
	assert.Subset(t, answer.Metadata.Keywords, []string{"project", "team"})
	require.NotNil(t, answer.Metadata.Score)
	assert.Equal(t, res.Score, *answer.Metadata.Score)
	assert.Equal(t, models.SpeakerAI, iv.Conversation[2].Speaker)

	require.Len(t, iv.Scores, 1)
	assert.Equal(t, models.CategoryOverall, iv.Scores[0].Category)
	assert.Equal(t, answer.ID, iv.Scores[0].TurnID)

	stored, err := store.Get(context.Background(), s.SessionID)
	require.NoError(t, err)
	assert.Len(t, stored.Conversation, 3)
	assert.Len(t, stored.Scores, 1)

	assert.Equal(t, []string{EventScoreUpdate, EventAIResponse}, pub.names())
}

func TestSubmitTurnBriefAnswerAsksToElaborate(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	s := start(t, svc)

	res, err := svc.SubmitTurn(context.Background(), s.SessionID, TurnInput{Message: "Yes."})
	require.NoError(t, err)
	assert.Equal(t, "That's very interesting! Could you tell me more about that?", res.ReplyText)
	assert.Contains(t, res.Feedback, scoring.AdviceMoreDetail)
}

func TestSubmitTurnRejectsEmptyAndOversized(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	s := start(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: ""})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: " \n\t "})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: strings.Repeat("a", 5001)})
	assert.ErrorIs(t, err, ErrResponseTooLong)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Len(t, iv.Conversation, 1)
	assert.Empty(t, iv.Scores)
}

func TestSubmitTurnUnknownSession(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)

	_, err := svc.SubmitTurn(context.Background(), uuid.New(), TurnInput{Message: "hello"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitTurnDeduplicatesByToken(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, nil)
	svc.SetPublisher(pub)
	s := start(t, svc)
	ctx := context.Background()

	first, err := svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB, TurnToken: "t-1"})
	require.NoError(t, err)
	again, err := svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB, TurnToken: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Len(t, iv.Scores, 1)
	assert.Len(t, iv.Conversation, 3)
	assert.Len(t, pub.names(), 2)
}

func TestSubmitTurnPersistenceFailureLeavesHistory(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, nil)
	s := start(t, svc)
	ctx := context.Background()

	store.failAppend.Store(true)
	_, err := svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	assert.ErrorIs(t, err, ErrPersistence)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Len(t, iv.Conversation, 1)
	assert.Empty(t, iv.Scores)

	store.failAppend.Store(false)
	_, err = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	require.NoError(t, err, "busy flag must be released after a failed turn")
}

func TestConcurrentTurnsOnOneSession(t *testing.T) {
	t.Parallel()
	gate := newGate()
	svc, _ := newTestService(t, func(d *Deps) {
		d.Generation = provider.NewAdapter[generation.Request, string](provider.CapabilityGeneration,
			[]provider.Backend[generation.Request, string]{gate}, generation.Demo, provider.Options{})
	})
	s := start(t, svc)
	ctx := context.Background()

	var (
		first    *TurnResult
		firstErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		first, firstErr = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	}()
	<-gate.entered

	_, err := svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: "A second answer while the first is pending."})
	assert.ErrorIs(t, err, ErrSessionBusy)

	close(gate.release)
	<-done
	require.NoError(t, firstErr)
	assert.Equal(t, "Tell me more about Project X.", first.ReplyText)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Len(t, iv.Scores, 1)
	assert.Len(t, iv.Conversation, 3)
}

func TestAbandonDuringTurnDiscardsReply(t *testing.T) {
	t.Parallel()
	gate := newGate()
	svc, store := newTestService(t, func(d *Deps) {
		d.Generation = provider.NewAdapter[generation.Request, string](provider.CapabilityGeneration,
			[]provider.Backend[generation.Request, string]{gate}, generation.Demo, provider.Options{})
	})
	s := start(t, svc)
	ctx := context.Background()

	var turnErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, turnErr = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	}()
	<-gate.entered

	res, err := svc.Abandon(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbandoned, res.Status)

	close(gate.release)
	<-done
	assert.ErrorIs(t, turnErr, ErrSessionNotActive)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbandoned, iv.Status)
	require.Len(t, iv.Conversation, 2)
	assert.Equal(t, models.SpeakerCandidate, iv.Conversation[1].Speaker)
	assert.NotNil(t, iv.EndTime)

	stored, err := store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbandoned, stored.Status)
	assert.Len(t, stored.Conversation, 2)
}

func TestEndSessionFreezesFinalScore(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	svc, store := newTestService(t, nil)
	svc.SetPublisher(pub)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	id := uuid.New()
	a1, a2 := uuid.New(), uuid.New()
	require.NoError(t, store.Create(context.Background(), &models.Interview{
		ID:        id,
		Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer", Experience: models.ExperienceMid},
		Persona:   "john-technical-lead",
		Status:    models.StatusActive,
		StartTime: now.Add(-90 * time.Second),
		Conversation: []models.ConversationTurn{
			{ID: uuid.New(), Speaker: models.SpeakerAI, Message: "Welcome"},
			{ID: a1, Speaker: models.SpeakerCandidate, Message: "First answer"},
			{ID: uuid.New(), Speaker: models.SpeakerAI, Message: "Follow-up"},
			{ID: a2, Speaker: models.SpeakerCandidate, Message: "Second answer"},
		},
		Scores: []models.ScoreRecord{
			{ID: uuid.New(), TurnID: a1, Category: models.CategoryOverall, Score: 6.0},
			{ID: uuid.New(), TurnID: a2, Category: models.CategoryOverall, Score: 8.0},
		},
	}))

	res, err := svc.EndSession(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, res.FinalScore)
	assert.Equal(t, 7.0, *res.FinalScore)
	assert.Equal(t, "1:30", res.Duration)
	assert.Contains(t, res.ClosingText, "Thank you")
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, scoring.RecommendAdvance, res.Recommendations[0])

	iv, err := svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, iv.Status)
	require.NotNil(t, iv.EndTime)
	assert.Equal(t, now, *iv.EndTime)
	assert.Len(t, iv.Conversation, 5)

	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.FinalScore)
	assert.Equal(t, 7.0, *stored.FinalScore)

	_, err = svc.EndSession(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = svc.SubmitTurn(context.Background(), id, TurnInput{Message: "one more thing"})
	assert.ErrorIs(t, err, ErrSessionNotActive)
	assert.Contains(t, pub.names(), EventInterviewEnded)
}

func TestEndSessionPersistenceFailureKeepsSessionOpen(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, nil)
	s := start(t, svc)
	ctx := context.Background()

	store.failStatus.Store(true)
	_, err := svc.EndSession(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrPersistence)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, iv.Status)
	assert.Len(t, iv.Conversation, 2, "closing turn is written before the status")
	stored, err := store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Len(t, stored.Conversation, 2)

	store.failStatus.Store(false)
	_, err = svc.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	stored, err = store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, models.SpeakerAI, stored.Conversation[len(stored.Conversation)-1].Speaker)
}

func TestEndSessionClosingTurnFailureLeavesRecordOpen(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, nil)
	s := start(t, svc)
	ctx := context.Background()

	store.failAppend.Store(true)
	_, err := svc.EndSession(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrPersistence)

	stored, err := store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Nil(t, stored.EndTime)
	assert.Len(t, stored.Conversation, 1)

	store.failAppend.Store(false)
	res, err := svc.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClosingText)
	stored, err = store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Len(t, stored.Conversation, 2)
}

func TestTurnRejectedAfterAnotherServiceCompletes(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	a := NewService(Deps{Store: store, Config: testConfig()})
	b := NewService(Deps{Store: store, Config: testConfig()})
	s := start(t, a)
	ctx := context.Background()

	_, err := a.SubmitTurn(ctx, s.SessionID, TurnInput{Message: "I worked on some projects."})
	require.NoError(t, err)

	// b restores the interview while it is still running.
	_, err = b.Pause(ctx, s.SessionID)
	require.NoError(t, err)
	_, err = b.Resume(ctx, s.SessionID)
	require.NoError(t, err)

	_, err = a.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	frozen, err := store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, frozen.Status)

	_, err = b.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	assert.ErrorIs(t, err, ErrSessionNotActive)

	stored, err := store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, frozen.FinalScore, stored.FinalScore)
	assert.Len(t, stored.Scores, len(frozen.Scores))
	assert.Len(t, stored.Conversation, len(frozen.Conversation))

	iv, err := b.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, iv.Status, "b reloads the record it was refused")
	assert.Len(t, iv.Conversation, len(frozen.Conversation))

	_, err = b.Intervene(ctx, s.SessionID, "hello")
	assert.ErrorIs(t, err, ErrSessionNotActive)
	_, err = b.Abandon(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestStaleTransitionReloadsSession(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	a := NewService(Deps{Store: store, Config: testConfig()})
	b := NewService(Deps{Store: store, Config: testConfig()})
	s := start(t, a)
	ctx := context.Background()

	_, err := b.Pause(ctx, s.SessionID)
	require.NoError(t, err)

	// a still believes the interview is active.
	_, err = a.Pause(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	iv, err := a.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, iv.Status)

	res, err := a.Resume(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, res.Status)
}

func TestLifecycleTransitions(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	s := start(t, svc)
	ctx := context.Background()

	_, err := svc.Resume(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	res, err := svc.Pause(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, res.Status)

	_, err = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	assert.ErrorIs(t, err, ErrSessionNotActive)
	_, err = svc.Pause(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.Resume(ctx, s.SessionID)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(ctx, s.SessionID, TurnInput{Message: scenarioB})
	require.NoError(t, err)

	_, err = svc.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	_, err = svc.Pause(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = svc.Resume(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = svc.Abandon(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestEndPausedSession(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	s := start(t, svc)
	ctx := context.Background()

	_, err := svc.Pause(ctx, s.SessionID)
	require.NoError(t, err)
	res, err := svc.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Nil(t, res.FinalScore)
	assert.Equal(t, scoring.RecommendNotAdvance, res.Recommendations[0])
}

func TestSessionRestoredFromStore(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	first := NewService(Deps{Store: store, Config: testConfig()})
	s := start(t, first)
	_, err := first.SubmitTurn(context.Background(), s.SessionID, TurnInput{Message: scenarioB})
	require.NoError(t, err)

	// A second process sharing the store picks the interview up.
	second := NewService(Deps{Store: store, Config: testConfig()})
	res, err := second.SubmitTurn(context.Background(), s.SessionID, TurnInput{Message: "Yes."})
	require.NoError(t, err)
	require.NotNil(t, res.CurrentScore)
	assert.Equal(t, 1, second.Registry().Len())

	iv, err := second.GetSession(context.Background(), s.SessionID)
	require.NoError(t, err)
	assert.Len(t, iv.Conversation, 5)
	assert.Len(t, iv.Scores, 2)
}

func TestSubmitAudioTurn(t *testing.T) {
	t.Parallel()
	local, err := artifacts.NewLocalStore(t.TempDir(), "/artifacts")
	require.NoError(t, err)
	svc, _ := newTestService(t, func(d *Deps) { d.Artifacts = local })
	s := start(t, svc)

	res, err := svc.SubmitAudioTurn(context.Background(), s.SessionID, AudioInput{
		Data:        []byte("RIFF....WAVEfmt "),
		ContentType: "audio/wav",
		TurnToken:   "audio-1",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Transcript, "JavaScript and React")
	assert.InDelta(t, 0.9, res.Confidence, 0.0001)
	assert.Equal(t, res.Transcript, res.Message)

	iv, err := svc.GetSession(context.Background(), s.SessionID)
	require.NoError(t, err)
	require.Len(t, iv.Conversation, 3)
	answer := iv.Conversation[1]
	assert.True(t, strings.HasPrefix(answer.AudioURL, "/artifacts/uploads/"), answer.AudioURL)
	assert.True(t, strings.HasSuffix(answer.AudioURL, ".wav"), answer.AudioURL)
	assert.InDelta(t, 0.9, answer.Metadata.Confidence, 0.0001)

	again, err := svc.SubmitAudioTurn(context.Background(), s.SessionID, AudioInput{Data: []byte("x"), TurnToken: "audio-1"})
	require.NoError(t, err)
	assert.Equal(t, res.ReplyText, again.ReplyText)

	_, err = svc.SubmitAudioTurn(context.Background(), s.SessionID, AudioInput{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestVendorVideoIsMirrored(t *testing.T) {
	t.Parallel()
	mirror := &fakeMirror{}
	svc, _ := newTestService(t, func(d *Deps) {
		d.Avatar = provider.NewAdapter[avatar.Request, string](provider.CapabilityAvatar,
			[]provider.Backend[avatar.Request, string]{vendorAvatar{}}, avatar.Demo, provider.Options{})
	})
	svc.SetMirrorQueue(mirror)
	s := start(t, svc)

	_, err := svc.SubmitTurn(context.Background(), s.SessionID, TurnInput{Message: scenarioB})
	require.NoError(t, err)

	iv, err := svc.GetSession(context.Background(), s.SessionID)
	require.NoError(t, err)
	require.Len(t, mirror.jobs, 2)
	assert.Equal(t, iv.Conversation[0].ID, mirror.jobs[0].TurnID)
	assert.Equal(t, iv.Conversation[2].ID, mirror.jobs[1].TurnID)
	assert.Equal(t, "https://vendor.example/talks/result.mp4", mirror.jobs[1].SourceURL)
}

func TestUnsavedReplyIsNotMirrored(t *testing.T) {
	t.Parallel()
	mirror := &fakeMirror{}
	svc, store := newTestService(t, func(d *Deps) {
		d.Avatar = provider.NewAdapter[avatar.Request, string](provider.CapabilityAvatar,
			[]provider.Backend[avatar.Request, string]{vendorAvatar{}}, avatar.Demo, provider.Options{})
	})
	svc.SetMirrorQueue(mirror)
	s := start(t, svc)
	require.Len(t, mirror.jobs, 1)

	store.failReplies.Store(true)
	res, err := svc.SubmitTurn(context.Background(), s.SessionID, TurnInput{Message: scenarioB})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ReplyText)

	stored, err := store.Get(context.Background(), s.SessionID)
	require.NoError(t, err)
	assert.Len(t, stored.Conversation, 2)
	assert.Len(t, mirror.jobs, 1, "unsaved reply is not mirrored")
}

func TestInterveneAddsAdminTurn(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	svc, store := newTestService(t, nil)
	svc.SetPublisher(pub)
	s := start(t, svc)
	ctx := context.Background()

	turn, err := svc.Intervene(ctx, s.SessionID, "  Please ask about system design next.  ")
	require.NoError(t, err)
	assert.Equal(t, models.SpeakerAdmin, turn.Speaker)
	assert.Equal(t, "Please ask about system design next.", turn.Message)

	iv, err := svc.GetSession(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, iv.AdminIntervention)
	require.Len(t, iv.Conversation, 2)
	assert.Equal(t, turn.ID, iv.Conversation[1].ID)
	assert.Empty(t, iv.Scores)

	stored, err := store.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.AdminIntervention)
	assert.Len(t, stored.Conversation, 2)
	assert.Contains(t, pub.names(), EventAdminIntervention)

	_, err = svc.Pause(ctx, s.SessionID)
	require.NoError(t, err)
	_, err = svc.Intervene(ctx, s.SessionID, "Paused, still allowed.")
	require.NoError(t, err)

	_, err = svc.Intervene(ctx, s.SessionID, "   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = svc.Intervene(ctx, s.SessionID, strings.Repeat("a", 5001))
	assert.ErrorIs(t, err, ErrResponseTooLong)
	_, err = svc.Intervene(ctx, uuid.New(), "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.EndSession(ctx, s.SessionID)
	require.NoError(t, err)
	_, err = svc.Intervene(ctx, s.SessionID, "too late")
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestDemoVideoIsNotMirrored(t *testing.T) {
	t.Parallel()
	mirror := &fakeMirror{}
	svc, _ := newTestService(t, nil)
	svc.SetMirrorQueue(mirror)
	start(t, svc)
	assert.Empty(t, mirror.jobs)
}

func TestListActiveAndStats(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	a := start(t, svc)
	b := start(t, svc)
	c := start(t, svc)
	_, err := svc.Pause(ctx, b.SessionID)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(ctx, c.SessionID, TurnInput{Message: scenarioB})
	require.NoError(t, err)
	_, err = svc.EndSession(ctx, c.SessionID)
	require.NoError(t, err)

	list := svc.ListActive(ctx)
	require.Len(t, list, 2)
	ids := []uuid.UUID{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{a.SessionID, b.SessionID}, ids)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Paused)
	assert.Equal(t, 1, st.Completed)
	require.NotNil(t, st.AverageScore)
	assert.Equal(t, 8.2, *st.AverageScore)
}

func TestProviderStatusReportsEveryCapability(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)

	st := svc.ProviderStatus()
	require.Len(t, st, 4)
	assert.Equal(t, provider.CapabilityGeneration, st[0].Capability)
	assert.Equal(t, provider.CapabilityAvatar, st[3].Capability)
	assert.Empty(t, st[0].Backends)
}
