package interviews

import (
	"fmt"
	"strings"

	"github.com/aura-interview/backend/internal/analysis"
	"github.com/aura-interview/backend/internal/models"
)

const (
	briefChars       = 50
	vagueSpecificity = 0.5
)

func welcomePrompt(c models.CandidateProfile) string {
	return fmt.Sprintf(`Generate a warm, professional welcome message for a candidate named %s applying for the %s position (%s level).

The message should:
- Be welcoming and put the candidate at ease
- Mention their name and the position they're applying for
- Explain that this is a video interview
- Ask them to introduce themselves and tell you what interested them about the position
- Be conversational and around 2-3 sentences long`, c.Name, c.Position, c.Experience)
}

func followUpPrompt(c models.CandidateProfile, message string, f analysis.Features, recent []models.ConversationTurn, topics []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The candidate (%s) just said: %q\n\n", c.Name, message)
	fmt.Fprintf(&b, "Position: %s\nExperience Level: %s\n\n", c.Position, c.Experience)
	b.WriteString("Response Analysis:\n")
	fmt.Fprintf(&b, "- Length: %d characters, %d words\n", f.CharLength, f.WordCount)
	fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(f.Keywords, ", "))
	fmt.Fprintf(&b, "- Sentiment: %s\n", f.Sentiment)
	fmt.Fprintf(&b, "- Specificity: %.2f\n", f.Specificity)
	fmt.Fprintf(&b, "- Technical terms: %s\n", strings.Join(f.TechnicalTerms, ", "))
	fmt.Fprintf(&b, "- Contains examples: %t\n\n", f.HasExamples)
	fmt.Fprintf(&b, "Recent topics covered: %s\n", strings.Join(topics, ", "))

	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, t := range recent {
			fmt.Fprintf(&b, "%s: %s\n", speakerLabel(t.Speaker), t.Message)
		}
	}

	b.WriteString(`
Generate a natural, conversational response that:
1. Acknowledges their response appropriately
2. Asks a relevant follow-up question
3. Probes for more specific details if needed
4. Maintains a professional but friendly tone
5. Moves the conversation forward naturally

Keep your response under 100 words.`)

	if f.CharLength < briefChars {
		b.WriteString("\n\nTheir response was quite brief. Ask them to elaborate more.")
	}
	if f.Specificity < vagueSpecificity {
		b.WriteString("\n\nTheir response was vague. Ask for specific examples.")
	}
	if len(f.TechnicalTerms) > 0 {
		b.WriteString("\n\nThey mentioned technical terms. Ask for more details about their technical experience.")
	}
	return b.String()
}

func closingPrompt(c models.CandidateProfile, final *float64) string {
	score := "not available"
	if final != nil {
		score = fmt.Sprintf("%.1f/10", *final)
	}
	return fmt.Sprintf(`Generate a professional closing message for %s, who interviewed for the %s position.
Their overall interview score was %s. Do not reveal the score.

The message should thank them for their time, explain that the team will review the interview
and follow up within 2-3 business days, and invite any final questions. Keep it to 2-3 sentences.`,
		c.Name, c.Position, score)
}

func speakerLabel(s models.Speaker) string {
	switch s {
	case models.SpeakerAI:
		return "Interviewer"
	case models.SpeakerCandidate:
		return "Candidate"
	}
	return "Admin"
}

func isBrief(f analysis.Features) bool { return f.CharLength < briefChars }
