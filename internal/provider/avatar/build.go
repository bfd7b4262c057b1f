package avatar

import (
	"time"

	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/provider"
)

// New builds the avatar adapter in configured order, skipping backends without credentials.
func New(cfg config.ProvidersConfig, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	poll := provider.VideoPoll.WithInterval(cfg.PollInterval).WithMaxAttempts(cfg.VideoPollMax)
	var backends []provider.Backend[Request, string]
	for _, name := range cfg.AvatarBackends {
		switch name {
		case "did":
			if cfg.DIDAPIKey == "" {
				continue
			}
			backends = append(backends, NewDID(cfg.DIDAPIKey, cfg.SynthesisTimeout, poll))
		case "heygen":
			if cfg.HeyGenAPIKey == "" {
				continue
			}
			backends = append(backends, NewHeyGen(cfg.HeyGenAPIKey, cfg.SynthesisTimeout, poll))
		default:
			log.Warn("unknown avatar backend", zap.String("backend", name))
		}
	}
	var budget time.Duration
	if cfg.SynthesisTimeout > 0 {
		budget = cfg.SynthesisTimeout + time.Duration(poll.MaxAttempts)*poll.Interval
	}
	return provider.NewAdapter[Request, string](provider.CapabilityAvatar, backends, Demo, provider.Options{
		Timeout:  budget,
		DemoMode: cfg.DemoMode,
		Logger:   log,
	})
}
