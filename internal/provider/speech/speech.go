// Package speech covers text-to-speech and speech-to-text backends.
package speech

import (
	"github.com/aura-interview/backend/internal/persona"
	"github.com/aura-interview/backend/internal/provider"
)

// SynthesisRequest asks for interviewer audio in the persona's voice.
type SynthesisRequest struct {
	Text    string
	Persona persona.Persona
}

// RecognitionRequest carries a candidate's recorded answer.
type RecognitionRequest struct {
	Audio       []byte
	ContentType string
	// Turn is the 1-based candidate turn number; only the demo transcript uses it.
	Turn int
}

// Transcript is recognised speech.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SynthesisAdapter yields an audio URL.
type SynthesisAdapter = provider.Adapter[SynthesisRequest, string]

// RecognitionAdapter yields a transcript.
type RecognitionAdapter = provider.Adapter[RecognitionRequest, Transcript]
