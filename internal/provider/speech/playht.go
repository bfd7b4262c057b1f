package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aura-interview/backend/internal/provider"
)

const playHTBaseURL = "https://api.play.ht/api/v2"

// PlayHT synthesizes speech as an asynchronous job and polls for the hosted mp3.
type PlayHT struct {
	client *resty.Client
	poll   provider.PollPolicy
}

// NewPlayHT creates a PlayHT backend.
func NewPlayHT(apiKey, userID string, timeout time.Duration, poll provider.PollPolicy) *PlayHT {
	c := provider.NewRESTClient(playHTBaseURL, timeout).
		SetAuthToken(apiKey).
		SetHeader("X-User-ID", userID)
	return &PlayHT{client: c, poll: poll}
}

// SetBaseURL points the backend at another host.
func (p *PlayHT) SetBaseURL(u string) *PlayHT {
	p.client.SetBaseURL(u)
	return p
}

func (p *PlayHT) Name() string { return "playht" }

type playHTJob struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Output struct {
		URL string `json:"url"`
	} `json:"output"`
}

func (j playHTJob) audioURL() string {
	if j.URL != "" {
		return j.URL
	}
	return j.Output.URL
}

func (p *PlayHT) Invoke(ctx context.Context, req SynthesisRequest) (string, error) {
	voice := req.Persona.Voice(p.Name())
	if voice == "" {
		return "", fmt.Errorf("no playht voice for persona %q", req.Persona.ID)
	}
	var job playHTJob
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"text":          req.Text,
			"voice":         voice,
			"quality":       "medium",
			"output_format": "mp3",
			"speed":         1,
			"sample_rate":   24000,
		}).
		SetResult(&job).
		Post("/tts")
	if err := provider.CheckResponse("playht tts", resp, err); err != nil {
		return "", err
	}
	if u := job.audioURL(); u != "" {
		return u, nil
	}
	if job.ID == "" {
		return "", errors.New("playht returned neither url nor job id")
	}

	return provider.Poll(ctx, p.poll, func(ctx context.Context, _ int) (string, bool, error) {
		var st playHTJob
		resp, err := p.client.R().SetContext(ctx).SetResult(&st).Get("/tts/" + job.ID)
		if err := provider.CheckResponse("playht status", resp, err); err != nil {
			return "", false, err
		}
		switch strings.ToLower(st.Status) {
		case "failed", "error":
			return "", false, fmt.Errorf("playht job %s failed", job.ID)
		}
		if u := st.audioURL(); u != "" {
			return u, true, nil
		}
		return "", false, nil
	})
}
