package interviews

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aura-interview/backend/internal/models"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{"Speaker", "Message", "Timestamp", "Score"}

// TranscriptEntry is one line of a transcript.
type TranscriptEntry struct {
	Speaker   models.Speaker `json:"speaker"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	AudioURL  string         `json:"audio_url,omitempty"`
	VideoURL  string         `json:"video_url,omitempty"`
	Score     *float64       `json:"score,omitempty"`
}

// Transcript is the readable record of an interview.
type Transcript struct {
	InterviewID uuid.UUID               `json:"interview_id"`
	Candidate   models.CandidateProfile `json:"candidate"`
	Persona     string                  `json:"persona"`
	Status      models.InterviewStatus  `json:"status"`
	Duration    string                  `json:"duration"`
	FinalScore  *float64                `json:"final_score"`
	Entries     []TranscriptEntry       `json:"entries"`
}

// Transcript returns the interview transcript.
func (s *Service) Transcript(ctx context.Context, id uuid.UUID) (*Transcript, error) {
	iv, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	t := buildTranscript(iv, s.now())
	return &t, nil
}

// Export renders the interview as JSON or CSV and returns the body with its content type.
// Exporting a finished interview releases its live session.
func (s *Service) Export(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	iv, err := s.lookup(ctx, id)
	if err != nil {
		return nil, "", err
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case FormatCSV:
		body, err = encodeCSV(buildTranscript(iv, s.now()))
		contentType = "text/csv"
	default:
		body, err = json.MarshalIndent(iv, "", "  ")
		contentType = "application/json"
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode %s export: %w", format, err)
	}

	if iv.Status.Terminal() {
		s.registry.Remove(id)
	}
	return body, contentType, nil
}

func buildTranscript(iv *models.Interview, now time.Time) Transcript {
	scores := make(map[uuid.UUID]float64, len(iv.Scores))
	for _, r := range iv.Scores {
		if r.Category == models.CategoryOverall {
			scores[r.TurnID] = r.Score
		}
	}
	t := Transcript{
		InterviewID: iv.ID,
		Candidate:   iv.Candidate,
		Persona:     iv.Persona,
		Status:      iv.Status,
		Duration:    models.FormatDuration(iv.Duration(now)),
		FinalScore:  copyFloat(iv.FinalScore),
		Entries:     make([]TranscriptEntry, 0, len(iv.Conversation)),
	}
	for _, turn := range iv.Conversation {
		e := TranscriptEntry{
			Speaker:   turn.Speaker,
			Message:   turn.Message,
			Timestamp: turn.Timestamp,
			AudioURL:  turn.AudioURL,
			VideoURL:  turn.VideoURL,
		}
		if turn.MirroredVideoURL != "" {
			e.VideoURL = turn.MirroredVideoURL
		}
		if sc, ok := scores[turn.ID]; ok {
			e.Score = &sc
		}
		t.Entries = append(t.Entries, e)
	}
	return t
}

func encodeCSV(t Transcript) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range t.Entries {
		score := ""
		if e.Score != nil {
			score = strconv.FormatFloat(*e.Score, 'f', 1, 64)
		}
		if err := w.Write([]string{string(e.Speaker), e.Message, e.Timestamp.UTC().Format(time.RFC3339), score}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
