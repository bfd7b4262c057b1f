package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InterviewStatus is the lifecycle state of an interview session.
type InterviewStatus string

const (
	StatusActive    InterviewStatus = "active"
	StatusPaused    InterviewStatus = "paused"
	StatusCompleted InterviewStatus = "completed"
	StatusAbandoned InterviewStatus = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (s InterviewStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerAI        Speaker = "ai"
	SpeakerCandidate Speaker = "candidate"
	SpeakerAdmin     Speaker = "admin"
)

// ExperienceLevel is the candidate's seniority tier.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

// Valid reports whether e is one of the known tiers.
func (e ExperienceLevel) Valid() bool {
	switch e {
	case ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceLead, ExperienceExecutive:
		return true
	}
	return false
}

// ScoreCategory groups score records.
type ScoreCategory string

const (
	CategoryCommunication  ScoreCategory = "communication"
	CategoryTechnical      ScoreCategory = "technical"
	CategoryBehavioral     ScoreCategory = "behavioral"
	CategoryProblemSolving ScoreCategory = "problem-solving"
	CategoryOverall        ScoreCategory = "overall"
)

// CandidateProfile describes the person being interviewed.
type CandidateProfile struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone,omitempty"`
	Position   string          `json:"position"`
	Experience ExperienceLevel `json:"experience"`
}

// TurnMetadata carries analysis results attached to a candidate turn.
type TurnMetadata struct {
	Sentiment  string   `json:"sentiment,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	WordCount  int      `json:"word_count,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

// ConversationTurn is one message in the transcript. Turns are never modified after creation.
// MirroredVideoURL is filled in by the artifact worker on the stored copy only.
type ConversationTurn struct {
	ID               uuid.UUID     `json:"id"`
	Speaker          Speaker       `json:"speaker"`
	Message          string        `json:"message"`
	Timestamp        time.Time     `json:"timestamp"`
	AudioURL         string        `json:"audio_url,omitempty"`
	VideoURL         string        `json:"video_url,omitempty"`
	MirroredVideoURL string        `json:"mirrored_video_url,omitempty"`
	Metadata         *TurnMetadata `json:"metadata,omitempty"`
}

// ScoreRecord is one scored assessment of a candidate turn.
type ScoreRecord struct {
	ID        uuid.UUID          `json:"id"`
	TurnID    uuid.UUID          `json:"turn_id"`
	Category  ScoreCategory      `json:"category"`
	Score     float64            `json:"score"`
	Feedback  string             `json:"feedback"`
	Factors   map[string]float64 `json:"factors"`
	Timestamp time.Time          `json:"timestamp"`
}

// Interview is the durable record of one interview session.
type Interview struct {
	ID                uuid.UUID          `json:"id"`
	Candidate         CandidateProfile   `json:"candidate"`
	Persona           string             `json:"persona"`
	Status            InterviewStatus    `json:"status"`
	StartTime         time.Time          `json:"start_time"`
	EndTime           *time.Time         `json:"end_time,omitempty"`
	Conversation      []ConversationTurn `json:"conversation"`
	Scores            []ScoreRecord      `json:"scores"`
	FinalScore        *float64           `json:"final_score"`
	Recommendations   []string           `json:"recommendations,omitempty"`
	// AdminIntervention is set once an operator has posted into the conversation.
	AdminIntervention bool               `json:"admin_intervention"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Duration is the elapsed interview time, up to now for sessions still running.
func (i *Interview) Duration(now time.Time) time.Duration {
	end := now
	if i.EndTime != nil {
		end = *i.EndTime
	}
	if end.Before(i.StartTime) {
		return 0
	}
	return end.Sub(i.StartTime)
}

// InterviewSummary is the list view of a running interview.
type InterviewSummary struct {
	ID        uuid.UUID        `json:"id"`
	Candidate CandidateProfile `json:"candidate"`
	Persona   string           `json:"persona"`
	Status    InterviewStatus  `json:"status"`
	StartTime time.Time        `json:"start_time"`
	Turns     int              `json:"turns"`
	Score     *float64         `json:"current_score"`
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
