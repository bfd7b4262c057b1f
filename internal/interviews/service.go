// Package interviews runs interview sessions: lifecycle, candidate turns, scoring and
// the provider calls that produce interviewer replies.
package interviews

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/analysis"
	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/logger"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/persona"
	"github.com/aura-interview/backend/internal/provider"
	"github.com/aura-interview/backend/internal/provider/avatar"
	"github.com/aura-interview/backend/internal/provider/generation"
	"github.com/aura-interview/backend/internal/provider/speech"
	"github.com/aura-interview/backend/internal/scoring"
	"github.com/aura-interview/backend/pkg/queue"
)

// Realtime event names.
const (
	EventAIResponse        = "ai-response"
	EventScoreUpdate       = "score-update"
	EventInterviewEnded    = "interview-ended"
	EventStatus            = "status"
	EventAdminIntervention = "admin-intervention"
)

// Publisher pushes events to observers of an interview.
type Publisher interface {
	Publish(interviewID uuid.UUID, event string, payload any)
}

// MirrorQueue accepts artifact mirror jobs.
type MirrorQueue interface {
	EnqueueArtifactMirror(ctx context.Context, payload queue.ArtifactMirrorPayload) error
}

// Deps wires a Service. Nil adapters are replaced by fallback-only adapters.
type Deps struct {
	Store       Store
	Registry    *Registry
	Personas    *persona.Catalog
	Analyzer    *analysis.Analyzer
	Engine      *scoring.Engine
	Generation  *generation.Adapter
	Synthesis   *speech.SynthesisAdapter
	Recognition *speech.RecognitionAdapter
	Avatar      *avatar.Adapter
	Artifacts   artifacts.Store
	Config      config.InterviewConfig
	Logger      *zap.Logger
}

// Service is the entry point for every interview operation.
type Service struct {
	store       Store
	registry    *Registry
	personas    *persona.Catalog
	analyzer    *analysis.Analyzer
	engine      *scoring.Engine
	generation  *generation.Adapter
	synthesis   *speech.SynthesisAdapter
	recognition *speech.RecognitionAdapter
	avatar      *avatar.Adapter
	artifacts   artifacts.Store
	cfg         config.InterviewConfig
	logger      *zap.Logger
	publisher   Publisher
	mirror      MirrorQueue
	now         func() time.Time
}

// NewService creates the interview service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Store == nil {
		d.Store = NewMemoryStore()
	}
	if d.Registry == nil {
		d.Registry = NewRegistry(d.Config.Retention, d.Logger)
	}
	if d.Personas == nil {
		d.Personas = persona.Default(d.Config.DefaultPersona)
	}
	if d.Analyzer == nil {
		d.Analyzer = analysis.NewDefault()
	}
	if d.Engine == nil {
		d.Engine = scoring.NewEngine()
	}
	opts := provider.Options{Logger: d.Logger}
	if d.Generation == nil {
		d.Generation = provider.NewAdapter[generation.Request, string](provider.CapabilityGeneration, nil, generation.Demo, opts)
	}
	if d.Synthesis == nil {
		d.Synthesis = provider.NewAdapter[speech.SynthesisRequest, string](provider.CapabilitySynthesis, nil, speech.DemoSynthesis, opts)
	}
	if d.Recognition == nil {
		d.Recognition = provider.NewAdapter[speech.RecognitionRequest, speech.Transcript](provider.CapabilityRecognition, nil, speech.DemoRecognition, opts)
	}
	if d.Avatar == nil {
		d.Avatar = provider.NewAdapter[avatar.Request, string](provider.CapabilityAvatar, nil, avatar.Demo, opts)
	}
	return &Service{
		store:       d.Store,
		registry:    d.Registry,
		personas:    d.Personas,
		analyzer:    d.Analyzer,
		engine:      d.Engine,
		generation:  d.Generation,
		synthesis:   d.Synthesis,
		recognition: d.Recognition,
		avatar:      d.Avatar,
		artifacts:   d.Artifacts,
		cfg:         d.Config,
		logger:      d.Logger,
		now:         time.Now,
	}
}

// SetPublisher registers the realtime event sink. Call before serving.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

// SetMirrorQueue registers the artifact mirror producer. Call before serving.
func (s *Service) SetMirrorQueue(q MirrorQueue) { s.mirror = q }

// Registry exposes the live session registry.
func (s *Service) Registry() *Registry { return s.registry }

// Personas exposes the persona catalog.
func (s *Service) Personas() *persona.Catalog { return s.personas }

// ProviderStatus reports every capability's backends.
func (s *Service) ProviderStatus() []provider.Status {
	return []provider.Status{
		s.generation.Status(),
		s.synthesis.Status(),
		s.recognition.Status(),
		s.avatar.Status(),
	}
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// StartInput is a request to open an interview.
type StartInput struct {
	Candidate models.CandidateProfile `json:"candidate"`
	Persona   string                  `json:"persona"`
}

// StartResult is the opened interview and its welcome message.
type StartResult struct {
	SessionID   uuid.UUID               `json:"session_id"`
	Persona     persona.Persona         `json:"persona"`
	Candidate   models.CandidateProfile `json:"candidate"`
	WelcomeText string                  `json:"welcome_text"`
	AudioURL    string                  `json:"audio_url"`
	VideoURL    string                  `json:"video_url"`
}

// TurnInput is one candidate answer.
type TurnInput struct {
	Message   string `json:"message"`
	AudioURL  string `json:"audio_url,omitempty"`
	TurnToken string `json:"turn_token,omitempty"`
	// Confidence is the recognition confidence for spoken answers.
	Confidence float64 `json:"-"`
}

// TurnResult is the scored answer and the interviewer's reply.
type TurnResult struct {
	Message      string             `json:"message"`
	ReplyText    string             `json:"reply_text"`
	AudioURL     string             `json:"audio_url"`
	VideoURL     string             `json:"video_url"`
	Score        float64            `json:"score"`
	Feedback     string             `json:"feedback"`
	Factors      map[string]float64 `json:"factors"`
	CurrentScore *float64           `json:"current_score"`
}

// AudioInput is a recorded candidate answer.
type AudioInput struct {
	Data        []byte
	ContentType string
	TurnToken   string
}

// AudioTurnResult is a TurnResult plus what was heard.
type AudioTurnResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	TurnResult
}

// EndResult is the closing message and the frozen outcome.
type EndResult struct {
	ClosingText     string   `json:"closing_text"`
	AudioURL        string   `json:"audio_url"`
	VideoURL        string   `json:"video_url"`
	FinalScore      *float64 `json:"final_score"`
	Duration        string   `json:"duration"`
	Recommendations []string `json:"recommendations"`
}

// StatusResult reports a lifecycle change.
type StatusResult struct {
	ID     uuid.UUID              `json:"id"`
	Status models.InterviewStatus `json:"status"`
}

// ScoreUpdate is published after each candidate answer is scored.
type ScoreUpdate struct {
	TurnID       uuid.UUID          `json:"turn_id"`
	Score        float64            `json:"score"`
	Feedback     string             `json:"feedback"`
	Factors      map[string]float64 `json:"factors"`
	CurrentScore *float64           `json:"current_score"`
}

// StartSession opens an interview, generates the welcome message and records it as the first turn.
func (s *Service) StartSession(ctx context.Context, in StartInput) (*StartResult, error) {
	cand, err := normalizeProfile(in.Candidate)
	if err != nil {
		return nil, err
	}
	p, err := s.personas.Resolve(in.Persona)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	started := s.now()
	text := s.generate(ctx, generation.Request{
		Kind:      generation.KindWelcome,
		Persona:   p,
		Candidate: cand,
		Prompt:    welcomePrompt(cand),
	})
	m := s.render(ctx, p, text)
	welcome := s.aiTurn(text, m)

	iv := models.Interview{
		ID:           uuid.New(),
		Candidate:    cand,
		Persona:      p.ID,
		Status:       models.StatusActive,
		StartTime:    started,
		Conversation: []models.ConversationTurn{welcome},
		Scores:       []models.ScoreRecord{},
		UpdatedAt:    started,
	}
	if err := s.store.Create(ctx, &iv); err != nil {
		s.logger.Warn("create interview failed", zap.Error(err))
		return nil, fmt.Errorf("%w: create interview: %v", ErrPersistence, err)
	}
	s.registry.Add(newSession(iv, p, s.cfg.MemoryWindow))
	s.enqueueMirror(ctx, iv.ID, welcome, m)

	s.logger.Info("interview started",
		zap.String(logger.FieldInterview, iv.ID.String()),
		zap.String("persona", p.ID),
		zap.String("position", cand.Position),
	)
	return &StartResult{
		SessionID:   iv.ID,
		Persona:     p,
		Candidate:   cand,
		WelcomeText: text,
		AudioURL:    m.audioURL,
		VideoURL:    m.videoURL,
	}, nil
}

// SubmitTurn records and scores a candidate answer, then generates the interviewer's reply.
// A repeated TurnToken returns the earlier result without scoring again.
func (s *Service) SubmitTurn(ctx context.Context, id uuid.UUID, in TurnInput) (*TurnResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, sess, in)
}

func (s *Service) submit(ctx context.Context, sess *Session, in TurnInput) (*TurnResult, error) {
	id := sess.ID()
	message := strings.TrimSpace(in.Message)

	sess.mu.Lock()
	if r, ok := sess.cachedTurn(in.TurnToken); ok {
		sess.mu.Unlock()
		return &r, nil
	}
	if sess.busy {
		sess.mu.Unlock()
		return nil, ErrSessionBusy
	}
	if sess.iv.Status != models.StatusActive || sess.ending {
		sess.mu.Unlock()
		return nil, ErrSessionNotActive
	}
	if message == "" {
		sess.mu.Unlock()
		return nil, ErrEmptyResponse
	}
	if limit := s.cfg.MaxMessageLength; limit > 0 && utf8.RuneCountInString(message) > limit {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: limit is %d characters", ErrResponseTooLong, limit)
	}
	sess.busy = true
	defer func() {
		sess.mu.Lock()
		sess.busy = false
		sess.mu.Unlock()
	}()

	features := s.analyzer.Analyze(message)
	scored := s.engine.Score(features, sess.memory.Prior())
	now := s.now()
	answer := models.ConversationTurn{
		ID:        uuid.New(),
		Speaker:   models.SpeakerCandidate,
		Message:   message,
		Timestamp: now,
		AudioURL:  in.AudioURL,
		Metadata: &models.TurnMetadata{
			Sentiment:  string(features.Sentiment),
			Keywords:   features.Keywords,
			Confidence: in.Confidence,
			WordCount:  features.WordCount,
			Score:      &scored.Score,
		},
	}
	record := models.ScoreRecord{
		ID:        uuid.New(),
		TurnID:    answer.ID,
		Category:  models.CategoryOverall,
		Score:     scored.Score,
		Feedback:  scored.Feedback,
		Factors:   scored.Factors,
		Timestamp: now,
	}
	scores := append(append([]models.ScoreRecord{}, sess.iv.Scores...), record)
	final := scoring.FinalScore(scores)

	if err := s.store.AppendTurn(context.WithoutCancel(ctx), id, answer, &record, final); err != nil {
		err = s.writeFailed(ctx, sess, "candidate turn", err, ErrSessionNotActive)
		sess.mu.Unlock()
		return nil, err
	}
	sess.iv.Conversation = append(sess.iv.Conversation, answer)
	sess.iv.Scores = scores
	sess.iv.FinalScore = final
	sess.iv.UpdatedAt = now
	sess.memory.Append(answer)
	sess.memory.Observe(features)

	req := generation.Request{
		Kind:      generation.KindFollowUp,
		Persona:   sess.persona,
		Candidate: sess.iv.Candidate,
		Prompt:    followUpPrompt(sess.iv.Candidate, message, features, sess.memory.RecentContext(s.cfg.PromptContextTurns), sess.memory.Topics()),
		Turn:      sess.candidateTurns(),
		Brief:     isBrief(features),
	}
	p := sess.persona
	sess.mu.Unlock()

	s.publish(id, EventScoreUpdate, ScoreUpdate{
		TurnID:       answer.ID,
		Score:        scored.Score,
		Feedback:     scored.Feedback,
		Factors:      scored.Factors,
		CurrentScore: final,
	})

	text := s.generate(ctx, req)
	m := s.render(ctx, p, text)
	reply := s.aiTurn(text, m)

	sess.mu.Lock()
	if sess.closed() {
		sess.mu.Unlock()
		s.logger.Info("discarding reply for finished interview", zap.String(logger.FieldInterview, id.String()))
		return nil, ErrSessionNotActive
	}
	persisted := true
	if err := s.store.AppendTurn(context.WithoutCancel(ctx), id, reply, nil, nil); err != nil {
		if errors.Is(err, ErrRecordClosed) {
			err = s.writeFailed(ctx, sess, "reply turn", err, ErrSessionNotActive)
			sess.mu.Unlock()
			return nil, err
		}
		persisted = false
		s.logger.Warn("persist reply turn failed", zap.String(logger.FieldInterview, id.String()), zap.Error(err))
	}
	sess.iv.Conversation = append(sess.iv.Conversation, reply)
	sess.memory.Append(reply)
	result := TurnResult{
		Message:      message,
		ReplyText:    text,
		AudioURL:     m.audioURL,
		VideoURL:     m.videoURL,
		Score:        scored.Score,
		Feedback:     scored.Feedback,
		Factors:      scored.Factors,
		CurrentScore: copyFloat(final),
	}
	if in.TurnToken != "" {
		sess.turns[in.TurnToken] = result
	}
	sess.mu.Unlock()

	s.publish(id, EventAIResponse, result)
	if persisted {
		s.enqueueMirror(ctx, id, reply, m)
	}
	return &result, nil
}

// SubmitAudioTurn stores and transcribes a recorded answer, then submits the transcript as a turn.
func (s *Service) SubmitAudioTurn(ctx context.Context, id uuid.UUID, in AudioInput) (*AudioTurnResult, error) {
	if len(in.Data) == 0 {
		return nil, ErrEmptyResponse
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if r, ok := sess.cachedTurn(in.TurnToken); ok {
		sess.mu.Unlock()
		return &AudioTurnResult{Transcript: r.Message, TurnResult: r}, nil
	}
	if sess.busy {
		sess.mu.Unlock()
		return nil, ErrSessionBusy
	}
	if sess.closed() || sess.iv.Status != models.StatusActive {
		sess.mu.Unlock()
		return nil, ErrSessionNotActive
	}
	turn := sess.candidateTurns() + 1
	sess.mu.Unlock()

	var audioURL string
	if s.artifacts != nil {
		u, err := s.artifacts.Save(ctx, artifacts.KindUpload, in.ContentType, bytes.NewReader(in.Data), int64(len(in.Data)))
		if err != nil {
			s.logger.Warn("store candidate audio failed", zap.String(logger.FieldInterview, id.String()), zap.Error(err))
		} else {
			audioURL = u
		}
	}

	heard, err := s.recognition.Invoke(ctx, speech.RecognitionRequest{Audio: in.Data, ContentType: in.ContentType, Turn: turn})
	if err != nil {
		return nil, err
	}
	res, err := s.submit(ctx, sess, TurnInput{
		Message:    heard.Artifact.Text,
		AudioURL:   audioURL,
		TurnToken:  in.TurnToken,
		Confidence: heard.Artifact.Confidence,
	})
	if err != nil {
		return nil, err
	}
	return &AudioTurnResult{Transcript: heard.Artifact.Text, Confidence: heard.Artifact.Confidence, TurnResult: *res}, nil
}

// EndSession generates the closing message, freezes the final score and completes the interview.
func (s *Service) EndSession(ctx context.Context, id uuid.UUID) (*EndResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.ending {
		sess.mu.Unlock()
		return nil, ErrSessionBusy
	}
	if !transitionAllowed(sess.iv.Status, models.StatusCompleted) {
		sess.mu.Unlock()
		return nil, ErrInvalidStateTransition
	}
	sess.ending = true
	p := sess.persona
	cand := sess.iv.Candidate
	provisional := scoring.FinalScore(sess.iv.Scores)
	sess.mu.Unlock()

	text := s.generate(ctx, generation.Request{
		Kind:       generation.KindClosing,
		Persona:    p,
		Candidate:  cand,
		Prompt:     closingPrompt(cand, provisional),
		FinalScore: provisional,
	})
	m := s.render(ctx, p, text)
	closing := s.aiTurn(text, m)

	sess.mu.Lock()
	sess.ending = false
	if sess.iv.Status.Terminal() {
		sess.mu.Unlock()
		return nil, ErrSessionNotActive
	}
	wctx := context.WithoutCancel(ctx)
	// The closing turn goes in while the record is still open; completion closes it.
	if err := s.store.AppendTurn(wctx, id, closing, nil, nil); err != nil {
		err = s.writeFailed(ctx, sess, "closing turn", err, ErrInvalidStateTransition)
		sess.mu.Unlock()
		return nil, err
	}
	sess.iv.Conversation = append(sess.iv.Conversation, closing)
	sess.memory.Append(closing)

	end := s.now()
	final := scoring.FinalScore(sess.iv.Scores)
	recs := scoring.Recommend(final, s.cfg.PassThreshold, sess.iv.Scores)
	if err := s.store.UpdateStatus(wctx, id, StatusUpdate{
		From:            sess.iv.Status,
		Status:          models.StatusCompleted,
		EndTime:         &end,
		FinalScore:      final,
		Recommendations: recs,
	}); err != nil {
		err = s.writeFailed(ctx, sess, "completion", err, ErrInvalidStateTransition)
		sess.mu.Unlock()
		return nil, err
	}
	sess.iv.Status = models.StatusCompleted
	sess.iv.EndTime = &end
	sess.iv.FinalScore = final
	sess.iv.Recommendations = recs
	sess.iv.UpdatedAt = end
	result := EndResult{
		ClosingText:     text,
		AudioURL:        m.audioURL,
		VideoURL:        m.videoURL,
		FinalScore:      copyFloat(final),
		Duration:        models.FormatDuration(sess.iv.Duration(end)),
		Recommendations: append([]string(nil), recs...),
	}
	sess.mu.Unlock()

	s.publish(id, EventInterviewEnded, result)
	s.enqueueMirror(ctx, id, closing, m)
	s.logger.Info("interview completed",
		zap.String(logger.FieldInterview, id.String()),
		zap.String("duration", result.Duration),
		zap.Any("final_score", final),
	)
	return &result, nil
}

// Pause moves an active interview to paused.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*StatusResult, error) {
	return s.transition(ctx, id, models.StatusPaused)
}

// Resume moves a paused interview back to active.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*StatusResult, error) {
	return s.transition(ctx, id, models.StatusActive)
}

// Abandon ends an interview without a closing message, e.g. when the candidate disconnects.
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) (*StatusResult, error) {
	return s.transition(ctx, id, models.StatusAbandoned)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to models.InterviewStatus) (*StatusResult, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.ending && to != models.StatusAbandoned {
		sess.mu.Unlock()
		return nil, ErrSessionBusy
	}
	if !transitionAllowed(sess.iv.Status, to) {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStateTransition, sess.iv.Status, to)
	}
	now := s.now()
	u := StatusUpdate{From: sess.iv.Status, Status: to}
	if to == models.StatusAbandoned {
		u.EndTime = &now
	}
	if err := s.store.UpdateStatus(context.WithoutCancel(ctx), id, u); err != nil {
		err = s.writeFailed(ctx, sess, "status", err, ErrInvalidStateTransition)
		sess.mu.Unlock()
		return nil, err
	}
	sess.iv.Status = to
	if u.EndTime != nil {
		sess.iv.EndTime = u.EndTime
	}
	sess.iv.UpdatedAt = now
	sess.mu.Unlock()

	res := StatusResult{ID: id, Status: to}
	s.publish(id, EventStatus, res)
	s.logger.Info("interview status changed", zap.String(logger.FieldInterview, id.String()), zap.String("status", string(to)))
	return &res, nil
}

// Intervene posts an operator message into an active or paused interview and flags the record
// as having had admin intervention.
func (s *Service) Intervene(ctx context.Context, id uuid.UUID, message string) (*models.ConversationTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyResponse
	}
	if limit := s.cfg.MaxMessageLength; limit > 0 && utf8.RuneCountInString(message) > limit {
		return nil, fmt.Errorf("%w: limit is %d characters", ErrResponseTooLong, limit)
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.closed() {
		sess.mu.Unlock()
		return nil, ErrSessionNotActive
	}
	turn := models.ConversationTurn{
		ID:        uuid.New(),
		Speaker:   models.SpeakerAdmin,
		Message:   message,
		Timestamp: s.now(),
	}
	if err := s.store.AppendTurn(context.WithoutCancel(ctx), id, turn, nil, nil); err != nil {
		err = s.writeFailed(ctx, sess, "admin turn", err, ErrSessionNotActive)
		sess.mu.Unlock()
		return nil, err
	}
	sess.iv.Conversation = append(sess.iv.Conversation, turn)
	sess.iv.AdminIntervention = true
	sess.iv.UpdatedAt = turn.Timestamp
	sess.memory.Append(turn)
	sess.mu.Unlock()

	s.publish(id, EventAdminIntervention, turn)
	s.logger.Info("admin intervention", zap.String(logger.FieldInterview, id.String()))
	return &turn, nil
}

// GetSession returns a snapshot of the interview.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	return s.lookup(ctx, id)
}

// ListActive summarises interviews that are active or paused, oldest first.
func (s *Service) ListActive(context.Context) []models.InterviewSummary {
	list := []models.InterviewSummary{}
	for _, sess := range s.registry.All() {
		sum := sess.summary()
		if sum.Status.Terminal() {
			continue
		}
		list = append(list, sum)
	}
	return list
}

// Stats aggregates all stored interviews.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stats: %v", ErrPersistence, err)
	}
	return st, nil
}

// session returns the live session for id, restoring it from the store when this process
// has not seen it. Finished interviews are returned unregistered.
func (s *Service) session(ctx context.Context, id uuid.UUID) (*Session, error) {
	if sess, ok := s.registry.Get(id); ok {
		return sess, nil
	}
	iv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.personas.Resolve(iv.Persona)
	if err != nil {
		p, _ = s.personas.Resolve("")
	}
	sess := restoreSession(*iv, p, s.cfg.MemoryWindow, s.analyzer)
	if iv.Status.Terminal() {
		return sess, nil
	}
	return s.registry.Add(sess), nil
}

// lookup returns a snapshot from the registry or the store.
func (s *Service) lookup(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	if sess, ok := s.registry.Get(id); ok {
		iv := sess.Snapshot()
		return &iv, nil
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	iv, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load interview: %v", ErrPersistence, err)
	}
	return iv, nil
}

// writeFailed maps a rejected store write to a service error. When the record was closed or
// moved by another process the session is reloaded from the store and stale is returned.
// Caller holds sess.mu.
func (s *Service) writeFailed(ctx context.Context, sess *Session, op string, err, stale error) error {
	id := sess.ID()
	if !errors.Is(err, ErrRecordClosed) && !errors.Is(err, ErrStatusConflict) {
		s.logger.Warn("persist "+op+" failed", zap.String(logger.FieldInterview, id.String()), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
	iv, lerr := s.store.Get(context.WithoutCancel(ctx), id)
	if lerr != nil {
		s.logger.Warn("reload interview failed", zap.String(logger.FieldInterview, id.String()), zap.Error(lerr))
		return fmt.Errorf("%w: %v", stale, err)
	}
	sess.reload(*iv, s.cfg.MemoryWindow, s.analyzer)
	s.logger.Info("interview changed elsewhere, session reloaded",
		zap.String(logger.FieldInterview, id.String()),
		zap.String("op", op),
		zap.String("status", string(iv.Status)),
	)
	return fmt.Errorf("%w: interview is %s", stale, iv.Status)
}

type media struct {
	audioURL string
	videoURL string
	// mirror is set when the video came from a vendor and should be copied to durable storage.
	mirror bool
}

func (s *Service) generate(ctx context.Context, req generation.Request) string {
	res, err := s.generation.Invoke(ctx, req)
	if err != nil {
		s.logger.Error("generation failed, using canned text", zap.Error(err))
		text, _ := generation.Demo(ctx, req)
		return text
	}
	s.logger.Debug("generated text",
		zap.String(logger.FieldBackend, res.Backend),
		zap.String("text", logger.TruncateForLog(res.Artifact, 200)),
	)
	return res.Artifact
}

func (s *Service) render(ctx context.Context, p persona.Persona, text string) media {
	var m media
	audio, err := s.synthesis.Invoke(ctx, speech.SynthesisRequest{Text: text, Persona: p})
	if err != nil {
		s.logger.Error("synthesis failed", zap.Error(err))
	} else {
		m.audioURL = audio.Artifact
	}
	video, err := s.avatar.Invoke(ctx, avatar.Request{Text: text, AudioURL: m.audioURL, Persona: p})
	if err != nil {
		s.logger.Error("avatar failed", zap.Error(err))
	} else {
		m.videoURL = video.Artifact
		m.mirror = !video.Degraded
	}
	return m
}

func (s *Service) aiTurn(text string, m media) models.ConversationTurn {
	return models.ConversationTurn{
		ID:        uuid.New(),
		Speaker:   models.SpeakerAI,
		Message:   text,
		Timestamp: s.now(),
		AudioURL:  m.audioURL,
		VideoURL:  m.videoURL,
	}
}

func (s *Service) publish(id uuid.UUID, event string, payload any) {
	if s.publisher != nil {
		s.publisher.Publish(id, event, payload)
	}
}

func (s *Service) enqueueMirror(ctx context.Context, id uuid.UUID, turn models.ConversationTurn, m media) {
	if s.mirror == nil || !m.mirror || turn.VideoURL == "" {
		return
	}
	err := s.mirror.EnqueueArtifactMirror(context.WithoutCancel(ctx), queue.ArtifactMirrorPayload{
		InterviewID: id,
		TurnID:      turn.ID,
		SourceURL:   turn.VideoURL,
	})
	if err != nil {
		s.logger.Warn("enqueue artifact mirror failed", zap.String(logger.FieldInterview, id.String()), zap.Error(err))
	}
}

func normalizeProfile(c models.CandidateProfile) (models.CandidateProfile, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Position = strings.TrimSpace(c.Position)
	if c.Name == "" {
		return c, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if c.Position == "" {
		return c, fmt.Errorf("%w: position is required", ErrInvalidProfile)
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return c, fmt.Errorf("%w: invalid email", ErrInvalidProfile)
	}
	c.Experience = models.ExperienceLevel(strings.ToLower(strings.TrimSpace(string(c.Experience))))
	if c.Experience == "" {
		c.Experience = models.ExperienceMid
	}
	if !c.Experience.Valid() {
		return c, fmt.Errorf("%w: unknown experience level %q", ErrInvalidProfile, c.Experience)
	}
	return c, nil
}
