// Package provider runs capability requests against an ordered list of vendor backends,
// falling through on failure and ending in a local deterministic fallback.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-interview/backend/internal/logger"
)

// ErrProviderExhausted means every backend failed and no fallback could produce an artifact.
var ErrProviderExhausted = errors.New("provider exhausted")

// Capability names a family of external functions.
type Capability string

const (
	CapabilityGeneration  Capability = "generation"
	CapabilitySynthesis   Capability = "synthesis"
	CapabilityRecognition Capability = "recognition"
	CapabilityAvatar      Capability = "avatar"
)

// DemoBackend is the backend name reported for fallback artifacts.
const DemoBackend = "demo"

// Backend is one vendor integration for a capability.
type Backend[Req, Art any] interface {
	Name() string
	Invoke(ctx context.Context, req Req) (Art, error)
}

// Fallback produces a placeholder artifact without network access.
type Fallback[Req, Art any] func(ctx context.Context, req Req) (Art, error)

// Result is an artifact plus where it came from.
type Result[Art any] struct {
	Artifact Art
	Backend  string
	Degraded bool
}

// Options configures an Adapter.
type Options struct {
	// Timeout bounds each backend call. Zero means no per-call bound beyond ctx.
	Timeout time.Duration
	// DemoMode skips every backend and answers from the fallback.
	DemoMode bool
	Logger   *zap.Logger
}

// Adapter invokes backends in order until one succeeds.
type Adapter[Req, Art any] struct {
	capability Capability
	backends   []Backend[Req, Art]
	fallback   Fallback[Req, Art]
	timeout    time.Duration
	demo       bool
	logger     *zap.Logger
}

// NewAdapter builds an adapter. Backends should already be filtered to those with credentials.
func NewAdapter[Req, Art any](capability Capability, backends []Backend[Req, Art], fallback Fallback[Req, Art], opts Options) *Adapter[Req, Art] {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Adapter[Req, Art]{
		capability: capability,
		backends:   backends,
		fallback:   fallback,
		timeout:    opts.Timeout,
		demo:       opts.DemoMode,
		logger:     opts.Logger,
	}
}

// Invoke returns the first successful backend artifact, or the fallback artifact with
// Degraded set. An error is returned only when the fallback is missing or fails.
func (a *Adapter[Req, Art]) Invoke(ctx context.Context, req Req) (Result[Art], error) {
	if !a.demo {
		for _, b := range a.backends {
			if ctx.Err() != nil {
				break
			}
			art, err := a.call(ctx, b, req)
			if err == nil {
				return Result[Art]{Artifact: art, Backend: b.Name()}, nil
			}
		}
	}

	var zero Result[Art]
	if a.fallback == nil {
		return zero, fmt.Errorf("%s: %w", a.capability, ErrProviderExhausted)
	}
	art, err := a.fallback(ctx, req)
	if err != nil {
		return zero, fmt.Errorf("%s fallback: %w: %v", a.capability, ErrProviderExhausted, err)
	}
	if !a.demo {
		a.logger.Warn("capability degraded to fallback",
			zap.String(logger.FieldCapability, string(a.capability)),
			zap.Bool("degraded", true),
		)
	}
	return Result[Art]{Artifact: art, Backend: DemoBackend, Degraded: true}, nil
}

func (a *Adapter[Req, Art]) call(ctx context.Context, b Backend[Req, Art], req Req) (Art, error) {
	log := logger.ForProvider(a.logger, string(a.capability), b.Name(), "")
	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	art, err := b.Invoke(callCtx, req)
	latency := time.Since(start)
	if err != nil {
		log.Warn("backend failed, falling through", zap.Duration("latency", latency), zap.Error(err))
		return art, err
	}
	log.Debug("backend succeeded", zap.Duration("latency", latency))
	return art, nil
}

// Status describes an adapter for health reporting.
type Status struct {
	Capability Capability `json:"capability"`
	Backends   []string   `json:"backends"`
	DemoMode   bool       `json:"demo_mode"`
}

// Status reports the configured backends in order.
func (a *Adapter[Req, Art]) Status() Status {
	names := make([]string, 0, len(a.backends))
	for _, b := range a.backends {
		names = append(names, b.Name())
	}
	return Status{Capability: a.capability, Backends: names, DemoMode: a.demo}
}
