package interviews

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry holds live sessions by id. Map mutations take the write lock; work on a
// session takes only that session's lock.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	retention time.Duration
	logger    *zap.Logger
}

// NewRegistry creates a registry that keeps terminal sessions for retention after they end.
func NewRegistry(retention time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{sessions: make(map[uuid.UUID]*Session), retention: retention, logger: logger}
}

// Add registers s, or returns the session already registered under its id.
func (r *Registry) Add(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.ID()]; ok {
		return existing
	}
	r.sessions[s.ID()] = s
	return s
}

// Get returns the live session for id.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove evicts id.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns registered sessions ordered by start time.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].iv.StartTime.Before(list[j].iv.StartTime)
	})
	return list
}

// Sweep evicts terminal sessions that ended more than the retention period before now.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.retention)
	var stale []uuid.UUID
	r.mu.RLock()
	for id, s := range r.sessions {
		if s.expired(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()
	if len(stale) == 0 {
		return 0
	}
	r.mu.Lock()
	for _, id := range stale {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	return len(stale)
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session janitor stopping")
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.logger.Info("evicted finished sessions", zap.Int("count", n))
			}
		}
	}
}
