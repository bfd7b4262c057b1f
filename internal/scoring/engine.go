// Package scoring turns analyzer features into the weighted 1-10 rubric score, the advisory
// feedback attached to it, and the session-level aggregate.
package scoring

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aura-interview/backend/internal/analysis"
)

// Factor names, as they appear in a score record's breakdown.
const (
	FactorResponseLength       = "responseLength"
	FactorKeywordRelevance     = "keywordRelevance"
	FactorSpecificExamples     = "specificExamples"
	FactorCommunicationClarity = "communicationClarity"
	FactorTechnicalAccuracy    = "technicalAccuracy"
	FactorEnthusiasm           = "enthusiasmIndicators"
)

// Score bounds.
var (
	MinScore = decimal.NewFromInt(1)
	MaxScore = decimal.NewFromInt(10)
)

// Weight is one factor's share of the final score.
type Weight struct {
	Factor string
	Value  decimal.Decimal
}

// DefaultWeights is the fixed rubric. Order is the order factors are summed and reported in.
var DefaultWeights = []Weight{
	{FactorResponseLength, decimal.RequireFromString("0.20")},
	{FactorKeywordRelevance, decimal.RequireFromString("0.25")},
	{FactorSpecificExamples, decimal.RequireFromString("0.20")},
	{FactorCommunicationClarity, decimal.RequireFromString("0.15")},
	{FactorTechnicalAccuracy, decimal.RequireFromString("0.10")},
	{FactorEnthusiasm, decimal.RequireFromString("0.10")},
}

// Advisory feedback sentences.
const (
	AdviceMoreDetail     = "Consider providing more detailed responses"
	AdviceUseExamples    = "Include specific examples to strengthen your answers"
	AdvicePositive       = "Good enthusiasm and positive attitude"
	AdviceTechnical      = "Strong technical knowledge demonstrated"
	AdviceRepeatedBrief  = "Several answers in a row have been brief, expand on your experience"
	briefThreshold       = 50
	specificityThreshold = 0.5
	briefStreak          = 3
)

// Pattern is the per-answer shape remembered across turns.
type Pattern struct {
	Length      int                `json:"length"`
	Sentiment   analysis.Sentiment `json:"sentiment"`
	Specificity float64            `json:"specificity"`
}

// PriorContext is what the engine knows about earlier answers in the same interview.
type PriorContext struct {
	Responses int
	Topics    []string
	Patterns  []Pattern
}

// Result is the score for one answer.
type Result struct {
	Score    float64            `json:"score"`
	Feedback string             `json:"feedback"`
	Factors  map[string]float64 `json:"factors"`
}

// Engine applies a weighted rubric. It is stateless.
type Engine struct {
	weights []Weight
}

// NewEngine returns an engine over DefaultWeights.
func NewEngine() *Engine {
	return &Engine{weights: DefaultWeights}
}

// Score rates one answer. Prior context shapes the feedback only, never the number.
func (e *Engine) Score(f analysis.Features, prior PriorContext) Result {
	factors := map[string]int{
		FactorResponseLength:       LengthScore(f.CharLength),
		FactorKeywordRelevance:     min(10, len(f.Keywords)*2),
		FactorSpecificExamples:     ExamplesScore(f.HasExamples),
		FactorCommunicationClarity: ClarityScore(f.SentenceCount, f.AvgSentenceLength),
		FactorTechnicalAccuracy:    min(10, len(f.TechnicalTerms)*3),
		FactorEnthusiasm:           min(10, f.EnthusiasmCount*3+5),
	}

	total := decimal.Zero
	breakdown := make(map[string]float64, len(factors))
	for _, w := range e.weights {
		v := factors[w.Factor]
		breakdown[w.Factor] = float64(v)
		total = total.Add(w.Value.Mul(decimal.NewFromInt(int64(v))))
	}

	score, _ := Clamp(total.Round(1)).Float64()
	return Result{
		Score:    score,
		Feedback: Feedback(f, prior),
		Factors:  breakdown,
	}
}

// LengthScore rates answer length in characters.
func LengthScore(chars int) int {
	switch {
	case chars < 30:
		return 3
	case chars < 100:
		return 6
	case chars < 300:
		return 9
	default:
		return 7
	}
}

// ExamplesScore rates the presence of concrete examples.
func ExamplesScore(has bool) int {
	if has {
		return 8
	}
	return 4
}

// ClarityScore rates mean words per sentence. Text without sentences scores as long-winded.
func ClarityScore(sentences int, avgWords float64) int {
	if sentences == 0 {
		return 6
	}
	switch {
	case avgWords < 10:
		return 8
	case avgWords < 20:
		return 9
	default:
		return 6
	}
}

// Clamp bounds d to [MinScore, MaxScore].
func Clamp(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(MinScore) {
		return MinScore
	}
	if d.GreaterThan(MaxScore) {
		return MaxScore
	}
	return d
}

// Feedback joins the advisories triggered by f.
func Feedback(f analysis.Features, prior PriorContext) string {
	var out []string
	if f.CharLength < briefThreshold {
		out = append(out, AdviceMoreDetail)
	}
	if f.Specificity < specificityThreshold {
		out = append(out, AdviceUseExamples)
	}
	if f.Sentiment == analysis.SentimentPositive {
		out = append(out, AdvicePositive)
	}
	if len(f.TechnicalTerms) > 0 {
		out = append(out, AdviceTechnical)
	}
	if f.CharLength < briefThreshold && briefRun(prior.Patterns) >= briefStreak {
		out = append(out, AdviceRepeatedBrief)
	}
	return strings.Join(out, ". ")
}

// briefRun counts the trailing run of brief answers.
func briefRun(patterns []Pattern) int {
	n := 0
	for i := len(patterns) - 1; i >= 0; i-- {
		if patterns[i].Length >= briefThreshold {
			break
		}
		n++
	}
	return n
}
