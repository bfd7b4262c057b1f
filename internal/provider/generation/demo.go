package generation

import (
	"context"
	"fmt"
	"strings"
)

const (
	briefReply   = "That's very interesting! Could you tell me more about that?"
	closingReply = "Thank you for your time today. We'll review your interview and get back to you within 2-3 business days. Do you have any questions for me?"
)

var categoryOrder = []string{"introduction", "technical", "behavioral", "situational"}

var questionBank = map[string][]string{
	"introduction": {
		"Tell me about yourself and your background.",
		"What interested you about this position?",
		"What are your career goals for the next few years?",
		"Why are you looking for a new opportunity?",
		"What do you know about our company?",
	},
	"technical": {
		"Can you walk me through a challenging technical problem you solved?",
		"What's your experience with the main technologies this role uses?",
		"How do you stay updated with the latest technologies?",
		"Describe a project where you had to learn a new technology quickly.",
		"What's your approach to debugging complex issues?",
	},
	"behavioral": {
		"Tell me about a time you had to work with a difficult team member.",
		"Describe a situation where you had to meet a tight deadline.",
		"How do you handle constructive criticism?",
		"Give me an example of when you went above and beyond in your role.",
		"Tell me about a time you failed and what you learned from it.",
	},
	"situational": {
		"How would you handle a situation where your manager disagrees with your approach?",
		"What would you do if you discovered a critical bug in production?",
		"How do you prioritize multiple competing deadlines?",
		"Describe how you would mentor a junior team member.",
		"What's your approach to handling scope creep in a project?",
	},
}

// Demo answers every request from canned text. The output depends only on the request.
func Demo(_ context.Context, req Request) (string, error) {
	switch req.Kind {
	case KindWelcome:
		return welcomeText(req), nil
	case KindClosing:
		return closingReply, nil
	default:
		if req.Brief {
			return briefReply, nil
		}
		return "Thank you for sharing that. " + Question(req.Turn), nil
	}
}

// Question picks a question from the bank, rotating categories by turn.
func Question(turn int) string {
	if turn < 0 {
		turn = 0
	}
	cat := categoryOrder[turn%len(categoryOrder)]
	qs := questionBank[cat]
	return qs[(turn/len(categoryOrder))%len(qs)]
}

func welcomeText(req Request) string {
	name := strings.TrimSpace(req.Candidate.Name)
	if name == "" {
		name = "there"
	}
	position := strings.TrimSpace(req.Candidate.Position)
	if position == "" {
		position = "open"
	}
	interviewer := strings.TrimSpace(req.Persona.Name)
	if interviewer == "" {
		interviewer = "your interviewer"
	} else if role := strings.TrimSpace(req.Persona.Role); role != "" {
		interviewer = fmt.Sprintf("%s, the %s", interviewer, role)
	}
	return fmt.Sprintf("Hello %s! Thank you for joining us today for the %s position. I'm %s, and I'm excited to learn more about your background and experience. Could you please introduce yourself and tell me what interested you about this opportunity?",
		name, position, interviewer)
}
