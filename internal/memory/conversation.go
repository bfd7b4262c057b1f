// Package memory keeps the per-interview transcript and the bounded cross-turn accumulator
// used for prompt building and feedback.
package memory

import (
	"github.com/aura-interview/backend/internal/analysis"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/scoring"
)

const (
	// DefaultRecent is the number of turns used for prompt context.
	DefaultRecent = 6
	// DefaultWindow caps each derived accumulator list.
	DefaultWindow = 20
)

// Conversation is the memory of one interview. It is owned by a single session and is not
// safe for concurrent use on its own.
type Conversation struct {
	turns     []models.ConversationTurn
	window    int
	topics    []string
	patterns  []scoring.Pattern
	responses int
}

// New returns an empty conversation whose accumulator keeps at most window entries.
func New(window int) *Conversation {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Conversation{window: window}
}

// Append adds a turn to the transcript. The transcript is never trimmed.
func (c *Conversation) Append(turn models.ConversationTurn) {
	c.turns = append(c.turns, turn)
}

// Observe folds a candidate answer's features into the accumulator.
func (c *Conversation) Observe(f analysis.Features) {
	c.responses++
	for _, kw := range f.Keywords {
		c.topics = moveToEnd(c.topics, kw)
	}
	if over := len(c.topics) - c.window; over > 0 {
		c.topics = append([]string(nil), c.topics[over:]...)
	}
	c.patterns = append(c.patterns, scoring.Pattern{
		Length:      f.CharLength,
		Sentiment:   f.Sentiment,
		Specificity: f.Specificity,
	})
	if over := len(c.patterns) - c.window; over > 0 {
		c.patterns = append([]scoring.Pattern(nil), c.patterns[over:]...)
	}
}

// RecentContext returns a copy of the last n turns, oldest first.
func (c *Conversation) RecentContext(n int) []models.ConversationTurn {
	if n <= 0 {
		return []models.ConversationTurn{}
	}
	start := len(c.turns) - n
	if start < 0 {
		start = 0
	}
	return append([]models.ConversationTurn{}, c.turns[start:]...)
}

// FullContext returns a copy of the whole transcript.
func (c *Conversation) FullContext() []models.ConversationTurn {
	return append([]models.ConversationTurn{}, c.turns...)
}

// Len is the number of turns recorded.
func (c *Conversation) Len() int { return len(c.turns) }

// Topics returns the most recently mentioned topics, oldest first.
func (c *Conversation) Topics() []string { return append([]string{}, c.topics...) }

// Patterns returns the remembered answer shapes, oldest first.
func (c *Conversation) Patterns() []scoring.Pattern {
	return append([]scoring.Pattern{}, c.patterns...)
}

// Prior summarises earlier answers for the scoring engine.
func (c *Conversation) Prior() scoring.PriorContext {
	return scoring.PriorContext{
		Responses: c.responses,
		Topics:    c.Topics(),
		Patterns:  c.Patterns(),
	}
}

func moveToEnd(list []string, v string) []string {
	for i, s := range list {
		if s == v {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = v
			return list
		}
	}
	return append(list, v)
}
