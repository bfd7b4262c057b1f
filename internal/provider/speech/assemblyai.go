package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/aura-interview/backend/internal/provider"
)

const assemblyAIBaseURL = "https://api.assemblyai.com/v2"

// AssemblyAI uploads the audio, starts a transcript job and polls it.
type AssemblyAI struct {
	client *resty.Client
	poll   provider.PollPolicy
}

// NewAssemblyAI creates an AssemblyAI backend.
func NewAssemblyAI(apiKey string, timeout time.Duration, poll provider.PollPolicy) *AssemblyAI {
	c := provider.NewRESTClient(assemblyAIBaseURL, timeout).
		SetHeader("Authorization", apiKey)
	return &AssemblyAI{client: c, poll: poll}
}

// SetBaseURL points the backend at another host.
func (a *AssemblyAI) SetBaseURL(u string) *AssemblyAI {
	a.client.SetBaseURL(u)
	return a
}

func (a *AssemblyAI) Name() string { return "assemblyai" }

type assemblyTranscript struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

func (a *AssemblyAI) Invoke(ctx context.Context, req RecognitionRequest) (Transcript, error) {
	if len(req.Audio) == 0 {
		return Transcript{}, errors.New("no audio to transcribe")
	}

	var upload struct {
		UploadURL string `json:"upload_url"`
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(req.Audio).
		SetResult(&upload).
		Post("/upload")
	if err := provider.CheckResponse("assemblyai upload", resp, err); err != nil {
		return Transcript{}, err
	}
	if upload.UploadURL == "" {
		return Transcript{}, errors.New("assemblyai upload returned no url")
	}

	var job assemblyTranscript
	resp, err = a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"audio_url": upload.UploadURL}).
		SetResult(&job).
		Post("/transcript")
	if err := provider.CheckResponse("assemblyai transcript", resp, err); err != nil {
		return Transcript{}, err
	}
	if job.ID == "" {
		return Transcript{}, errors.New("assemblyai returned no transcript id")
	}

	return provider.Poll(ctx, a.poll, func(ctx context.Context, _ int) (Transcript, bool, error) {
		var st assemblyTranscript
		resp, err := a.client.R().SetContext(ctx).SetResult(&st).Get("/transcript/" + job.ID)
		if err := provider.CheckResponse("assemblyai status", resp, err); err != nil {
			return Transcript{}, false, err
		}
		switch st.Status {
		case "completed":
			return Transcript{Text: st.Text, Confidence: st.Confidence}, true, nil
		case "error":
			return Transcript{}, false, fmt.Errorf("assemblyai transcript failed: %s", st.Error)
		}
		return Transcript{}, false, nil
	})
}
