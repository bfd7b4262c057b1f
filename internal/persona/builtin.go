package persona

import "fmt"

const promptTemplate = `You are %s, %s, conducting a live video interview.
Tone: %s.
Conduct a natural, professional interview with intelligent follow-up questions.
Ask open-ended questions that encourage detailed answers, probe for specific examples,
and adapt to the candidate's experience level. Keep replies conversational and concise.
Never mention that you are an AI or an automated system.`

func builtin() []Persona {
	list := []Persona{
		{
			ID:         "sarah-professional-hr",
			Name:       "Sarah",
			Role:       "HR Manager",
			Tone:       "warm, professional, encouraging",
			Background: "office-environment",
			Voices: map[string]string{
				"elevenlabs": "21m00Tcm4TlvDq8ikWAM",
				"playht":     "s3://voice-cloning-zero-shot/d9ff78ba-d016-47f6-b0ef-dd630f59414e/female-cs/manifest.json",
			},
			Avatars:      map[string]string{"did": "amy-jcwCkr1grs", "heygen": "Angela-inblackskirt-20220820"},
			DemoAudioURL: "https://demo-audio.elevenlabs.com/sarah-interview.mp3",
			DemoVideoURL: "https://demo-videos.heygen.com/sarah-interview.mp4",
		},
		{
			ID:         "john-technical-lead",
			Name:       "John",
			Role:       "Technical Lead",
			Tone:       "direct, curious, technically rigorous",
			Background: "office-environment",
			Voices: map[string]string{
				"elevenlabs": "TxGEqnHWrfWFTfGW9XjX",
				"playht":     "s3://voice-cloning-zero-shot/8b1d8c5f-0c5a-4c1a-9c1a-8b1d8c5f0c5a/male-cs/manifest.json",
			},
			Avatars:      map[string]string{"did": "josh_lite3_20230714", "heygen": "Tyler-incasualsuit-20220721"},
			DemoAudioURL: "https://demo-audio.elevenlabs.com/john-interview.mp3",
			DemoVideoURL: "https://demo-videos.heygen.com/john-interview.mp4",
		},
		{
			ID:         "priya-senior-hr",
			Name:       "Priya",
			Role:       "Senior HR Business Partner",
			Tone:       "thoughtful, structured, people-focused",
			Background: "office-environment",
			Voices: map[string]string{
				"elevenlabs": "EXAVITQu4vr4xnSDxMaL",
				"playht":     "s3://voice-cloning-zero-shot/7c1d8c5f-0c5a-4c1a-9c1a-7c1d8c5f0c5a/female-cs/manifest.json",
			},
			Avatars:      map[string]string{"did": "rian-lZC6MmWfC1", "heygen": "Kristin-insuit-20220820"},
			DemoAudioURL: "https://demo-audio.elevenlabs.com/priya-interview.mp3",
			DemoVideoURL: "https://demo-videos.heygen.com/priya-interview.mp4",
		},
		{
			ID:         "david-executive",
			Name:       "David",
			Role:       "VP of Engineering",
			Tone:       "strategic, concise, big-picture",
			Background: "executive-office",
			Voices: map[string]string{
				"elevenlabs": "pNInz6obpgDQGcFmaJgB",
				"playht":     "s3://voice-cloning-zero-shot/6b1d8c5f-0c5a-4c1a-9c1a-6b1d8c5f0c5a/male-cs/manifest.json",
			},
			Avatars:      map[string]string{"did": "william-rcT5F0ek4d", "heygen": "Wayne-insuit-20220722"},
			DemoAudioURL: "https://demo-audio.elevenlabs.com/david-interview.mp3",
			DemoVideoURL: "https://demo-videos.heygen.com/david-interview.mp4",
		},
	}
	for i := range list {
		list[i].SystemPrompt = systemPrompt(list[i])
	}
	return list
}

func systemPrompt(p Persona) string {
	return fmt.Sprintf(promptTemplate, p.Name, "the "+p.Role, p.Tone)
}
