package interviews

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-interview/backend/internal/models"
)

var (
	// ErrRecordNotFound is returned by a Store for an unknown interview id.
	ErrRecordNotFound = errors.New("interview record not found")
	// ErrRecordClosed is returned when writing to a completed or abandoned interview.
	ErrRecordClosed = errors.New("interview record is closed")
	// ErrStatusConflict is returned when the stored status is not the update's From status.
	ErrStatusConflict = errors.New("interview status changed")
)

// StatusUpdate is a lifecycle change written to the store. From, when set, must match the
// stored status for the update to apply.
type StatusUpdate struct {
	From            models.InterviewStatus
	Status          models.InterviewStatus
	EndTime         *time.Time
	FinalScore      *float64
	Recommendations []string
}

// Stats aggregates every stored interview.
type Stats struct {
	Total           int      `json:"total"`
	Active          int      `json:"active"`
	Paused          int      `json:"paused"`
	Completed       int      `json:"completed"`
	Abandoned       int      `json:"abandoned"`
	AverageScore    *float64 `json:"average_score"`
	AverageDuration string   `json:"average_duration"`
}

// Store is the durable interview record store.
type Store interface {
	Create(ctx context.Context, iv *models.Interview) error
	Get(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	// AppendTurn appends a turn and, for candidate turns, its score and the new running final score.
	// An admin turn also sets the interview's AdminIntervention flag. Returns ErrRecordClosed for
	// terminal interviews.
	AppendTurn(ctx context.Context, id uuid.UUID, turn models.ConversationTurn, score *models.ScoreRecord, final *float64) error
	// UpdateStatus returns ErrRecordClosed for terminal interviews and ErrStatusConflict when u.From
	// does not match.
	UpdateStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) error
	// UpdateTurnMirror records the durable copy of a turn's vendor video.
	UpdateTurnMirror(ctx context.Context, id, turnID uuid.UUID, url string) error
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
}

// MemoryStore keeps interviews in process memory. Used when no database is configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.Interview
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]*models.Interview), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, iv *models.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[iv.ID]; ok {
		return errors.New("interview already exists")
	}
	c := cloneInterview(*iv)
	m.items[iv.ID] = &c
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iv, ok := m.items[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	c := cloneInterview(*iv)
	return &c, nil
}

func (m *MemoryStore) AppendTurn(_ context.Context, id uuid.UUID, turn models.ConversationTurn, score *models.ScoreRecord, final *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.items[id]
	if !ok {
		return ErrRecordNotFound
	}
	if iv.Status.Terminal() {
		return ErrRecordClosed
	}
	iv.Conversation = append(iv.Conversation, cloneTurn(turn))
	if turn.Speaker == models.SpeakerAdmin {
		iv.AdminIntervention = true
	}
	if score != nil {
		iv.Scores = append(iv.Scores, cloneScore(*score))
		iv.FinalScore = copyFloat(final)
	}
	iv.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, u StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.items[id]
	if !ok {
		return ErrRecordNotFound
	}
	if iv.Status.Terminal() {
		return ErrRecordClosed
	}
	if u.From != "" && iv.Status != u.From {
		return ErrStatusConflict
	}
	iv.Status = u.Status
	if u.EndTime != nil {
		t := *u.EndTime
		iv.EndTime = &t
	}
	if u.FinalScore != nil {
		iv.FinalScore = copyFloat(u.FinalScore)
	}
	if u.Recommendations != nil {
		iv.Recommendations = append([]string(nil), u.Recommendations...)
	}
	iv.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) UpdateTurnMirror(_ context.Context, id, turnID uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.items[id]
	if !ok {
		return ErrRecordNotFound
	}
	for i := range iv.Conversation {
		if iv.Conversation[i].ID == turnID {
			iv.Conversation[i].MirroredVideoURL = url
			iv.UpdatedAt = m.now()
			return nil
		}
	}
	return ErrRecordNotFound
}

func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]models.Interview, 0, len(m.items))
	for _, iv := range m.items {
		list = append(list, *iv)
	}
	return computeStats(list, m.now()), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func cloneInterview(iv models.Interview) models.Interview {
	out := iv
	if iv.EndTime != nil {
		t := *iv.EndTime
		out.EndTime = &t
	}
	out.FinalScore = copyFloat(iv.FinalScore)
	out.Conversation = make([]models.ConversationTurn, len(iv.Conversation))
	for i, t := range iv.Conversation {
		out.Conversation[i] = cloneTurn(t)
	}
	out.Scores = make([]models.ScoreRecord, len(iv.Scores))
	for i, s := range iv.Scores {
		out.Scores[i] = cloneScore(s)
	}
	if iv.Recommendations != nil {
		out.Recommendations = append([]string(nil), iv.Recommendations...)
	}
	return out
}

func cloneTurn(t models.ConversationTurn) models.ConversationTurn {
	if t.Metadata != nil {
		md := *t.Metadata
		md.Keywords = append([]string(nil), t.Metadata.Keywords...)
		md.Score = copyFloat(t.Metadata.Score)
		t.Metadata = &md
	}
	return t
}

func cloneScore(s models.ScoreRecord) models.ScoreRecord {
	if s.Factors != nil {
		f := make(map[string]float64, len(s.Factors))
		for k, v := range s.Factors {
			f[k] = v
		}
		s.Factors = f
	}
	return s
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
