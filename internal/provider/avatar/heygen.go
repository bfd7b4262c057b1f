package avatar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aura-interview/backend/internal/provider"
)

const heyGenBaseURL = "https://api.heygen.com/v1"

// HeyGen renders avatar video on HeyGen and polls until it completes.
type HeyGen struct {
	client *resty.Client
	poll   provider.PollPolicy
}

// NewHeyGen creates a HeyGen backend.
func NewHeyGen(apiKey string, timeout time.Duration, poll provider.PollPolicy) *HeyGen {
	c := provider.NewRESTClient(heyGenBaseURL, timeout).
		SetHeader("X-Api-Key", apiKey)
	return &HeyGen{client: c, poll: poll}
}

// SetBaseURL points the backend at another host.
func (h *HeyGen) SetBaseURL(u string) *HeyGen {
	h.client.SetBaseURL(u)
	return h
}

func (h *HeyGen) Name() string { return "heygen" }

type heyGenEnvelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Data struct {
		VideoID  string `json:"video_id"`
		Status   string `json:"status"`
		VideoURL string `json:"video_url"`
	} `json:"data"`
}

func (h *HeyGen) Invoke(ctx context.Context, req Request) (string, error) {
	avatarID := req.Persona.Avatar(h.Name())
	if avatarID == "" {
		return "", fmt.Errorf("no heygen avatar for persona %q", req.Persona.ID)
	}
	var voice map[string]string
	switch {
	case isHostedAudio(req.AudioURL):
		voice = map[string]string{"type": "audio", "audio_url": req.AudioURL}
	case req.Persona.Voice(h.Name()) != "":
		voice = map[string]string{"type": "text", "input_text": req.Text, "voice_id": req.Persona.Voice(h.Name())}
	default:
		return "", fmt.Errorf("no heygen voice or hosted audio for persona %q", req.Persona.ID)
	}

	var created heyGenEnvelope
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"video_inputs": []map[string]any{{
				"character": map[string]string{"type": "avatar", "avatar_id": avatarID, "avatar_style": "normal"},
				"voice":     voice,
			}},
		}).
		SetResult(&created).
		Post("/video.generate")
	if err := provider.CheckResponse("heygen generate", resp, err); err != nil {
		return "", err
	}
	if created.Error != nil {
		return "", fmt.Errorf("heygen generate: %s", created.Error.Message)
	}
	id := created.Data.VideoID
	if id == "" {
		return "", errors.New("heygen returned no video id")
	}

	return provider.Poll(ctx, h.poll, func(ctx context.Context, _ int) (string, bool, error) {
		var st heyGenEnvelope
		resp, err := h.client.R().
			SetContext(ctx).
			SetQueryParam("video_id", id).
			SetResult(&st).
			Get("/video_status.get")
		if err := provider.CheckResponse("heygen status", resp, err); err != nil {
			return "", false, err
		}
		switch st.Data.Status {
		case "completed":
			if st.Data.VideoURL == "" {
				return "", false, errors.New("heygen completed without video url")
			}
			return st.Data.VideoURL, true, nil
		case "failed":
			return "", false, fmt.Errorf("heygen video %s failed", id)
		}
		return "", false, nil
	})
}
