package interviews

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/scoring"
)

// analyticsTopics are the subjects reported as covered when any candidate answer mentions them.
var analyticsTopics = []string{"javascript", "react", "node", "python", "aws", "docker", "agile", "team", "leadership"}

// Analytics summarises one interview.
type Analytics struct {
	InterviewID           uuid.UUID                        `json:"interview_id"`
	Status                models.InterviewStatus           `json:"status"`
	Duration              string                           `json:"duration"`
	TotalMessages         int                              `json:"total_messages"`
	AIMessages            int                              `json:"ai_messages"`
	CandidateMessages     int                              `json:"candidate_messages"`
	AverageResponseLength int                              `json:"average_response_length"`
	TopicsCovered         []string                         `json:"topics_covered"`
	Sentiment             map[string]int                   `json:"sentiment"`
	ScoreBreakdown        map[models.ScoreCategory]float64 `json:"score_breakdown"`
	FinalScore            *float64                         `json:"final_score"`
	Passed                bool                             `json:"passed"`
	Recommendations       []string                         `json:"recommendations"`
}

// Analytics computes the summary of an interview, live or stored.
func (s *Service) Analytics(ctx context.Context, id uuid.UUID) (*Analytics, error) {
	iv, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	a := buildAnalytics(iv, s.now(), s.cfg.PassThreshold)
	return &a, nil
}

func buildAnalytics(iv *models.Interview, now time.Time, threshold float64) Analytics {
	a := Analytics{
		InterviewID:    iv.ID,
		Status:         iv.Status,
		Duration:       models.FormatDuration(iv.Duration(now)),
		TotalMessages:  len(iv.Conversation),
		TopicsCovered:  []string{},
		Sentiment:      map[string]int{},
		ScoreBreakdown: map[models.ScoreCategory]float64{},
		FinalScore:     copyFloat(iv.FinalScore),
	}

	var chars int
	var text strings.Builder
	for _, t := range iv.Conversation {
		switch t.Speaker {
		case models.SpeakerAI:
			a.AIMessages++
		case models.SpeakerCandidate:
			a.CandidateMessages++
			chars += len([]rune(t.Message))
			text.WriteString(strings.ToLower(t.Message))
			text.WriteByte(' ')
			if t.Metadata != nil && t.Metadata.Sentiment != "" {
				a.Sentiment[t.Metadata.Sentiment]++
			}
		}
	}
	if a.CandidateMessages > 0 {
		a.AverageResponseLength = int(decimal.NewFromInt(int64(chars)).
			Div(decimal.NewFromInt(int64(a.CandidateMessages))).
			Round(0).IntPart())
	}
	joined := text.String()
	for _, topic := range analyticsTopics {
		if strings.Contains(joined, topic) {
			a.TopicsCovered = append(a.TopicsCovered, topic)
		}
	}

	sums := map[models.ScoreCategory]decimal.Decimal{}
	counts := map[models.ScoreCategory]int64{}
	for _, r := range iv.Scores {
		sums[r.Category] = sums[r.Category].Add(decimal.NewFromFloat(r.Score))
		counts[r.Category]++
	}
	for cat, sum := range sums {
		v, _ := sum.Div(decimal.NewFromInt(counts[cat])).Round(1).Float64()
		a.ScoreBreakdown[cat] = v
	}

	a.Passed = scoring.Passed(a.FinalScore, threshold)
	a.Recommendations = iv.Recommendations
	if len(a.Recommendations) == 0 {
		a.Recommendations = scoring.Recommend(a.FinalScore, threshold, iv.Scores)
	}
	return a
}

// computeStats aggregates interviews in memory, mirroring the SQL in Repository.Stats.
func computeStats(list []models.Interview, now time.Time) Stats {
	st := Stats{Total: len(list)}
	scoreSum := decimal.Zero
	var scored int64
	var elapsed time.Duration
	var completed int64
	for i := range list {
		iv := &list[i]
		switch iv.Status {
		case models.StatusActive:
			st.Active++
		case models.StatusPaused:
			st.Paused++
		case models.StatusCompleted:
			st.Completed++
			if iv.FinalScore != nil {
				scoreSum = scoreSum.Add(decimal.NewFromFloat(*iv.FinalScore))
				scored++
			}
			if iv.EndTime != nil {
				elapsed += iv.Duration(now)
				completed++
			}
		case models.StatusAbandoned:
			st.Abandoned++
		}
	}
	if scored > 0 {
		v, _ := scoreSum.Div(decimal.NewFromInt(scored)).Float64()
		st.AverageScore = roundScore(v)
	}
	var avg time.Duration
	if completed > 0 {
		avg = elapsed / time.Duration(completed)
	}
	st.AverageDuration = models.FormatDuration(avg)
	return st
}

// roundScore rounds to one decimal.
func roundScore(v float64) *float64 {
	r, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return &r
}
