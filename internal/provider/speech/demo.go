package speech

import (
	"context"
	"strings"
)

// DemoAudioURL is used when a persona carries no pre-baked clip.
const DemoAudioURL = "https://demo-audio.elevenlabs.com/interview.mp3"

const demoConfidence = 0.9

var demoTranscripts = []string{
	"I have over 5 years of experience in software development, primarily working with JavaScript and React.",
	"In my previous role, I led a team of 6 developers and successfully delivered a major e-commerce platform.",
	"I'm passionate about creating user-friendly applications and solving complex technical challenges.",
	"I believe my experience with cloud technologies and agile methodologies would be valuable for this position.",
	"I'm excited about the opportunity to work with your team and contribute to innovative projects.",
}

// DemoSynthesis returns the persona's pre-baked audio clip.
func DemoSynthesis(_ context.Context, req SynthesisRequest) (string, error) {
	if u := strings.TrimSpace(req.Persona.DemoAudioURL); u != "" {
		return u, nil
	}
	return DemoAudioURL, nil
}

// DemoRecognition returns a canned answer chosen by turn number.
func DemoRecognition(_ context.Context, req RecognitionRequest) (Transcript, error) {
	i := req.Turn - 1
	if i < 0 {
		i = 0
	}
	return Transcript{Text: demoTranscripts[i%len(demoTranscripts)], Confidence: demoConfidence}, nil
}
