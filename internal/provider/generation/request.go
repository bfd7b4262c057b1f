// Package generation produces interviewer text through LLM backends with a canned fallback.
package generation

import (
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/persona"
	"github.com/aura-interview/backend/internal/provider"
)

// Kind selects which interviewer message is being generated.
type Kind string

const (
	KindWelcome  Kind = "welcome"
	KindFollowUp Kind = "follow-up"
	KindClosing  Kind = "closing"
)

// Request is the prompt plus the context the fallback needs to stay on topic.
type Request struct {
	Kind      Kind
	Persona   persona.Persona
	Candidate models.CandidateProfile
	// Prompt is the user message sent to the model; the persona system prompt is sent separately.
	Prompt string
	// Turn is the 1-based count of candidate answers so far.
	Turn       int
	Brief      bool
	FinalScore *float64
}

// Adapter is the generation capability.
type Adapter = provider.Adapter[Request, string]
