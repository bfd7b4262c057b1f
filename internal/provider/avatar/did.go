package avatar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aura-interview/backend/internal/provider"
)

const (
	didBaseURL      = "https://api.d-id.com"
	didDefaultVoice = "en-US-JennyNeural"
)

// DID renders talks on D-ID and polls until the video is ready.
type DID struct {
	client *resty.Client
	poll   provider.PollPolicy
}

// NewDID creates a D-ID backend. apiKey is the Basic credential issued by D-ID.
func NewDID(apiKey string, timeout time.Duration, poll provider.PollPolicy) *DID {
	c := provider.NewRESTClient(didBaseURL, timeout).
		SetHeader("Authorization", "Basic "+apiKey)
	return &DID{client: c, poll: poll}
}

// SetBaseURL points the backend at another host.
func (d *DID) SetBaseURL(u string) *DID {
	d.client.SetBaseURL(u)
	return d
}

func (d *DID) Name() string { return "did" }

type didTalk struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
}

func (d *DID) Invoke(ctx context.Context, req Request) (string, error) {
	presenter := req.Persona.Avatar(d.Name())
	if presenter == "" {
		return "", fmt.Errorf("no d-id presenter for persona %q", req.Persona.ID)
	}
	script := map[string]any{"type": "text", "input": req.Text}
	if isHostedAudio(req.AudioURL) {
		script = map[string]any{"type": "audio", "audio_url": req.AudioURL}
	} else {
		voice := req.Persona.Voice("microsoft")
		if voice == "" {
			voice = didDefaultVoice
		}
		script["provider"] = map[string]string{"type": "microsoft", "voice_id": voice}
	}

	var talk didTalk
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"script": script, "presenter_id": presenter}).
		SetResult(&talk).
		Post("/talks")
	if err := provider.CheckResponse("d-id create talk", resp, err); err != nil {
		return "", err
	}
	if talk.ID == "" {
		return "", errors.New("d-id returned no talk id")
	}

	return provider.Poll(ctx, d.poll, func(ctx context.Context, _ int) (string, bool, error) {
		var st didTalk
		resp, err := d.client.R().SetContext(ctx).SetResult(&st).Get("/talks/" + talk.ID)
		if err := provider.CheckResponse("d-id talk status", resp, err); err != nil {
			return "", false, err
		}
		switch st.Status {
		case "done":
			if st.ResultURL == "" {
				return "", false, errors.New("d-id talk done without result url")
			}
			return st.ResultURL, true, nil
		case "error", "rejected":
			return "", false, fmt.Errorf("d-id talk %s %s", talk.ID, st.Status)
		}
		return "", false, nil
	})
}
