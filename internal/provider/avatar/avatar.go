// Package avatar renders talking-head interviewer video through vendor job APIs.
package avatar

import (
	"context"
	"strings"

	"github.com/aura-interview/backend/internal/persona"
	"github.com/aura-interview/backend/internal/provider"
)

// DemoVideoURL is used when a persona carries no pre-rendered clip.
const DemoVideoURL = "https://demo-videos.heygen.com/interview.mp4"

// Request asks for a video of the persona speaking Text. AudioURL, when set, is
// lip-synced instead of vendor text-to-speech.
type Request struct {
	Text     string
	AudioURL string
	Persona  persona.Persona
}

// Adapter is the avatar capability; the artifact is a video URL.
type Adapter = provider.Adapter[Request, string]

// Demo returns the persona's pre-rendered clip.
func Demo(_ context.Context, req Request) (string, error) {
	if u := strings.TrimSpace(req.Persona.DemoVideoURL); u != "" {
		return u, nil
	}
	return DemoVideoURL, nil
}

// isHostedAudio reports whether a vendor can fetch the audio itself.
func isHostedAudio(u string) bool {
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}
