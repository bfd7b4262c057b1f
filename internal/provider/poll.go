package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollExhausted means the job did not finish within the attempt cap.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// PollPolicy bounds a status polling loop.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	// Backoff multiplies the interval after each attempt; values <= 1 keep it fixed.
	Backoff     float64
	MaxInterval time.Duration
}

// VideoPoll and TranscriptionPoll are the default caps for asynchronous vendor jobs.
var (
	VideoPoll         = PollPolicy{Interval: time.Second, MaxAttempts: 60}
	TranscriptionPoll = PollPolicy{Interval: time.Second, MaxAttempts: 30}
)

// PollFunc checks a job once. done reports completion; a non-nil error aborts polling.
type PollFunc[T any] func(ctx context.Context, attempt int) (value T, done bool, err error)

// Poll calls fn until it reports done, fails, the attempt cap is hit or ctx ends.
// Cancellation is checked before every attempt and during every wait.
func Poll[T any](ctx context.Context, p PollPolicy, fn PollFunc[T]) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	interval := p.Interval

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, done, err := fn(ctx, attempt)
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		interval = p.next(interval)
	}
	return zero, fmt.Errorf("%w after %d attempts", ErrPollExhausted, p.MaxAttempts)
}

func (p PollPolicy) next(d time.Duration) time.Duration {
	if p.Backoff <= 1 {
		return d
	}
	d = time.Duration(float64(d) * p.Backoff)
	if p.MaxInterval > 0 && d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

// WithInterval returns p with a different base interval; a zero d leaves p unchanged.
func (p PollPolicy) WithInterval(d time.Duration) PollPolicy {
	if d > 0 {
		p.Interval = d
	}
	return p
}

// WithMaxAttempts returns p with a different attempt cap; n <= 0 leaves p unchanged.
func (p PollPolicy) WithMaxAttempts(n int) PollPolicy {
	if n > 0 {
		p.MaxAttempts = n
	}
	return p
}
