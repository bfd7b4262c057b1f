package speech

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aura-interview/backend/internal/provider"
)

const deepgramBaseURL = "https://api.deepgram.com/v1"

// Deepgram transcribes audio synchronously.
type Deepgram struct {
	client *resty.Client
}

// NewDeepgram creates a Deepgram backend.
func NewDeepgram(apiKey string, timeout time.Duration) *Deepgram {
	c := provider.NewRESTClient(deepgramBaseURL, timeout).
		SetHeader("Authorization", "Token "+apiKey)
	return &Deepgram{client: c}
}

// SetBaseURL points the backend at another host.
func (d *Deepgram) SetBaseURL(u string) *Deepgram {
	d.client.SetBaseURL(u)
	return d
}

func (d *Deepgram) Name() string { return "deepgram" }

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Invoke(ctx context.Context, req RecognitionRequest) (Transcript, error) {
	if len(req.Audio) == 0 {
		return Transcript{}, errors.New("no audio to transcribe")
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}
	var out deepgramResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"model":        "nova-2",
			"language":     "en-US",
			"punctuate":    "true",
			"smart_format": "true",
		}).
		SetHeader("Content-Type", contentType).
		SetBody(req.Audio).
		SetResult(&out).
		Post("/listen")
	if err := provider.CheckResponse("deepgram listen", resp, err); err != nil {
		return Transcript{}, err
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return Transcript{}, errors.New("deepgram returned no alternatives")
	}
	alt := out.Results.Channels[0].Alternatives[0]
	if strings.TrimSpace(alt.Transcript) == "" {
		return Transcript{}, errors.New("deepgram returned empty transcript")
	}
	return Transcript{Text: alt.Transcript, Confidence: alt.Confidence}, nil
}
