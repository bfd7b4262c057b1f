package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/provider"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabs returns mp3 bytes which are written to the artifact store.
type ElevenLabs struct {
	client *resty.Client
	store  artifacts.Store
}

// NewElevenLabs creates an ElevenLabs backend that saves audio into store.
func NewElevenLabs(apiKey string, timeout time.Duration, store artifacts.Store) *ElevenLabs {
	c := provider.NewRESTClient(elevenLabsBaseURL, timeout).
		SetHeader("xi-api-key", apiKey).
		SetHeader("Accept", "audio/mpeg")
	return &ElevenLabs{client: c, store: store}
}

// SetBaseURL points the backend at another host.
func (e *ElevenLabs) SetBaseURL(u string) *ElevenLabs {
	e.client.SetBaseURL(u)
	return e
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Invoke(ctx context.Context, req SynthesisRequest) (string, error) {
	voice := req.Persona.Voice(e.Name())
	if voice == "" {
		return "", fmt.Errorf("no elevenlabs voice for persona %q", req.Persona.ID)
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"text":     req.Text,
			"model_id": "eleven_monolingual_v1",
			"voice_settings": map[string]float64{
				"stability":        0.5,
				"similarity_boost": 0.5,
			},
		}).
		Post("/text-to-speech/" + voice)
	if err := provider.CheckResponse("elevenlabs tts", resp, err); err != nil {
		return "", err
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return "", errors.New("elevenlabs returned no audio")
	}
	return e.store.Save(ctx, artifacts.KindAudio, "audio/mpeg", bytes.NewReader(audio), int64(len(audio)))
}
