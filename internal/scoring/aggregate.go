package scoring

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aura-interview/backend/internal/models"
)

// Recommendation headlines.
const (
	RecommendAdvance    = "Advance to the next interview round"
	RecommendNotAdvance = "Do not advance at this time"
	maxAdvisories       = 3
)

// FinalScore is the mean of all overall-category scores rounded to one decimal.
// It returns nil when there are none.
func FinalScore(records []models.ScoreRecord) *float64 {
	sum := decimal.Zero
	n := 0
	for _, r := range records {
		if r.Category != models.CategoryOverall {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(r.Score))
		n++
	}
	if n == 0 {
		return nil
	}
	mean := Clamp(sum.Div(decimal.NewFromInt(int64(n))).Round(1))
	v, _ := mean.Float64()
	return &v
}

// Passed reports whether final meets threshold.
func Passed(final *float64, threshold float64) bool {
	return final != nil && *final >= threshold
}

// Recommend builds the recommendations stored on a completed interview: a headline followed
// by the advisories that recurred most across the candidate's answers.
func Recommend(final *float64, threshold float64, records []models.ScoreRecord) []string {
	out := []string{RecommendNotAdvance}
	if Passed(final, threshold) {
		out[0] = RecommendAdvance
	}

	counts := map[string]int{}
	for _, r := range records {
		if r.Category != models.CategoryOverall || r.Feedback == "" {
			continue
		}
		for _, s := range strings.Split(r.Feedback, ". ") {
			if s = strings.TrimSpace(s); s != "" {
				counts[s]++
			}
		}
	}
	advice := make([]string, 0, len(counts))
	for s := range counts {
		advice = append(advice, s)
	}
	sort.Slice(advice, func(i, j int) bool {
		if counts[advice[i]] != counts[advice[j]] {
			return counts[advice[i]] > counts[advice[j]]
		}
		return advice[i] < advice[j]
	})
	if len(advice) > maxAdvisories {
		advice = advice[:maxAdvisories]
	}
	return append(out, advice...)
}
