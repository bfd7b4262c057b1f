package speech

import (
	"time"

	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/provider"
)

// NewSynthesis builds the synthesis adapter in configured order, skipping backends without credentials.
func NewSynthesis(cfg config.ProvidersConfig, store artifacts.Store, log *zap.Logger) *SynthesisAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	poll := provider.TranscriptionPoll.WithInterval(cfg.PollInterval).WithMaxAttempts(cfg.TranscriptionPollMax)
	var backends []provider.Backend[SynthesisRequest, string]
	for _, name := range cfg.SynthesisBackends {
		switch name {
		case "playht":
			if cfg.PlayHTAPIKey == "" || cfg.PlayHTUserID == "" {
				continue
			}
			backends = append(backends, NewPlayHT(cfg.PlayHTAPIKey, cfg.PlayHTUserID, cfg.SynthesisTimeout, poll))
		case "elevenlabs":
			if cfg.ElevenLabsAPIKey == "" || store == nil {
				continue
			}
			backends = append(backends, NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.SynthesisTimeout, store))
		default:
			log.Warn("unknown synthesis backend", zap.String("backend", name))
		}
	}
	return provider.NewAdapter[SynthesisRequest, string](provider.CapabilitySynthesis, backends, DemoSynthesis, provider.Options{
		Timeout:  pollBudget(cfg.SynthesisTimeout, poll),
		DemoMode: cfg.DemoMode,
		Logger:   log,
	})
}

// NewRecognition builds the recognition adapter in configured order, skipping backends without credentials.
func NewRecognition(cfg config.ProvidersConfig, log *zap.Logger) *RecognitionAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	poll := provider.TranscriptionPoll.WithInterval(cfg.PollInterval).WithMaxAttempts(cfg.TranscriptionPollMax)
	var backends []provider.Backend[RecognitionRequest, Transcript]
	for _, name := range cfg.RecognitionBackends {
		switch name {
		case "assemblyai":
			if cfg.AssemblyAIAPIKey == "" {
				continue
			}
			backends = append(backends, NewAssemblyAI(cfg.AssemblyAIAPIKey, cfg.RecognitionTimeout, poll))
		case "deepgram":
			if cfg.DeepgramAPIKey == "" {
				continue
			}
			backends = append(backends, NewDeepgram(cfg.DeepgramAPIKey, cfg.RecognitionTimeout))
		default:
			log.Warn("unknown recognition backend", zap.String("backend", name))
		}
	}
	return provider.NewAdapter[RecognitionRequest, Transcript](provider.CapabilityRecognition, backends, DemoRecognition, provider.Options{
		Timeout:  pollBudget(cfg.RecognitionTimeout, poll),
		DemoMode: cfg.DemoMode,
		Logger:   log,
	})
}

// pollBudget is the per-backend bound for calls that may poll: the request timeout plus every poll wait.
func pollBudget(timeout time.Duration, poll provider.PollPolicy) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return timeout + time.Duration(poll.MaxAttempts)*poll.Interval
}
