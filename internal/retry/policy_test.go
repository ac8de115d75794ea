package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/createdbymax/Loopletter-Open-source-email-marketing-platform-sub000/internal/transport"
)

func TestDecideNilError(t *testing.T) {
	p := Default()
	assert.False(t, p.Decide(1, nil).Retry)
}

func TestDecideTerminalKinds(t *testing.T) {
	p := Default()
	for _, kind := range []transport.ErrorKind{
		transport.KindRejected,
		transport.KindInvalidRecipient,
		transport.KindNotVerified,
	} {
		err := transport.NewError(kind, "permanent", nil)
		dec := p.Decide(1, err)
		assert.False(t, dec.Retry, "kind %s must not retry", kind)
	}
}

func TestDecideRetryableKinds(t *testing.T) {
	p := Default()
	for _, kind := range []transport.ErrorKind{
		transport.KindThrottled,
		transport.KindTimeout,
		transport.KindInternal,
	} {
		err := transport.NewError(kind, "transient", nil)
		dec := p.Decide(1, err)
		assert.True(t, dec.Retry, "kind %s must retry", kind)
		assert.Greater(t, dec.Delay, time.Duration(0))
	}
}

func TestDecideExhaustedAttempts(t *testing.T) {
	p := Default()
	err := transport.NewError(transport.KindThrottled, "transient", nil)

	assert.True(t, p.Decide(2, err).Retry)
	assert.False(t, p.Decide(3, err).Retry)
	assert.False(t, p.Decide(4, err).Retry)
}

func TestDecideUnknownErrorIsTerminal(t *testing.T) {
	p := Default()
	dec := p.Decide(1, errors.New("something unexpected"))
	assert.False(t, dec.Retry)
}

func TestDelayGrowsExponentially(t *testing.T) {
	p := Default()
	err := transport.NewError(transport.KindThrottled, "transient", nil)

	// Jitter is +/-20% around the exponential schedule.
	d1 := p.Decide(1, err).Delay
	assert.GreaterOrEqual(t, d1, 800*time.Millisecond)
	assert.LessOrEqual(t, d1, 1200*time.Millisecond)

	d2 := p.Decide(2, err).Delay
	assert.GreaterOrEqual(t, d2, 1600*time.Millisecond)
	assert.LessOrEqual(t, d2, 2400*time.Millisecond)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, Retryable(context.DeadlineExceeded))
	assert.True(t, Retryable(transport.NewError(transport.KindInternal, "500", nil)))
	assert.False(t, Retryable(transport.NewError(transport.KindRejected, "bounce", nil)))
	assert.False(t, Retryable(errors.New("untyped")))
}
