// Package retry decides whether a failed delivery attempt should be
// tried again, and after what delay. Decisions are pure; retries are
// re-enqueued as future-scheduled jobs, never timer callbacks.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/transport"
)

// Decision is the outcome of classifying one failed attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy holds the retry parameters for a campaign send.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// Default returns the standard policy: up to 3 attempts, 1s initial
// delay doubling each retry.
func Default() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		BackoffFactor: 2,
		MaxDelay:      5 * time.Minute,
	}
}

// Decide classifies err after the given attempt (1-based count of
// completed attempts). Terminal errors and exhausted attempts never
// retry.
func (p Policy) Decide(attempt int, err error) Decision {
	if err == nil || attempt >= p.MaxAttempts {
		return Decision{}
	}
	if !Retryable(err) {
		return Decision{}
	}
	return Decision{Retry: true, Delay: p.delay(attempt)}
}

// delay produces the backoff for the attempt'th retry with jitter, so
// simultaneous failures don't retry in lockstep.
func (p Policy) delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.BackoffFactor
	b.RandomizationFactor = 0.2
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Retryable classifies an error as transient. Typed transport errors
// carry their own classification; untyped errors are treated as
// terminal so invariant violations never loop.
func Retryable(err error) bool {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	return false
}
