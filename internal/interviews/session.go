package interviews

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-interview/backend/internal/analysis"
	"github.com/aura-interview/backend/internal/memory"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/persona"
)

// Session is the live state of one interview. The interview record, memory and turn cache are
// guarded by mu; busy serializes candidate turns and ending blocks new turns while a closing
// message is generated.
type Session struct {
	mu      sync.Mutex
	iv      models.Interview
	persona persona.Persona
	memory  *memory.Conversation
	busy    bool
	ending  bool
	turns   map[string]TurnResult
}

func newSession(iv models.Interview, p persona.Persona, window int) *Session {
	s := &Session{
		iv:      iv,
		persona: p,
		memory:  memory.New(window),
		turns:   make(map[string]TurnResult),
	}
	for _, t := range iv.Conversation {
		s.memory.Append(t)
	}
	return s
}

// restoreSession rebuilds a live session from a stored record, replaying candidate turns
// through the analyzer so memory accumulators match an uninterrupted session.
func restoreSession(iv models.Interview, p persona.Persona, window int, a *analysis.Analyzer) *Session {
	s := &Session{persona: p, turns: make(map[string]TurnResult)}
	s.reload(iv, window, a)
	return s
}

// reload replaces the record and rebuilds memory from it. Caller holds mu or owns s.
func (s *Session) reload(iv models.Interview, window int, a *analysis.Analyzer) {
	s.iv = iv
	s.memory = memory.New(window)
	for _, t := range iv.Conversation {
		s.memory.Append(t)
	}
	for _, t := range iv.Conversation {
		if t.Speaker == models.SpeakerCandidate {
			s.memory.Observe(a.Analyze(t.Message))
		}
	}
}

// ID returns the interview id.
func (s *Session) ID() uuid.UUID {
	return s.iv.ID
}

// Snapshot returns a deep copy of the interview record.
func (s *Session) Snapshot() models.Interview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneInterview(s.iv)
}

// Status returns the current lifecycle state.
func (s *Session) Status() models.InterviewStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iv.Status
}

func (s *Session) summary() models.InterviewSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.InterviewSummary{
		ID:        s.iv.ID,
		Candidate: s.iv.Candidate,
		Persona:   s.iv.Persona,
		Status:    s.iv.Status,
		StartTime: s.iv.StartTime,
		Turns:     len(s.iv.Conversation),
		Score:     copyFloat(s.iv.FinalScore),
	}
}

// expired reports whether a terminal session ended before cutoff.
func (s *Session) expired(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iv.Status.Terminal() && s.iv.EndTime != nil && s.iv.EndTime.Before(cutoff)
}

// cachedTurn returns the result already produced for token. Caller holds mu.
func (s *Session) cachedTurn(token string) (TurnResult, bool) {
	if token == "" {
		return TurnResult{}, false
	}
	r, ok := s.turns[token]
	return r, ok
}

// closed reports whether new turns must be refused. Caller holds mu.
func (s *Session) closed() bool {
	return s.iv.Status.Terminal() || s.ending
}

// candidateTurns counts candidate answers so far. Caller holds mu.
func (s *Session) candidateTurns() int {
	n := 0
	for _, t := range s.iv.Conversation {
		if t.Speaker == models.SpeakerCandidate {
			n++
		}
	}
	return n
}

// transitionAllowed is the lifecycle graph: active -> paused|completed|abandoned, paused -> active|completed|abandoned.
func transitionAllowed(from, to models.InterviewStatus) bool {
	switch from {
	case models.StatusActive:
		return to == models.StatusPaused || to == models.StatusCompleted || to == models.StatusAbandoned
	case models.StatusPaused:
		return to == models.StatusActive || to == models.StatusCompleted || to == models.StatusAbandoned
	}
	return false
}
