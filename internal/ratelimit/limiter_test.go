package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuota struct {
	remaining int
	recorded  int
}

func (q *fakeQuota) Remaining(ctx context.Context, ceiling int) int { return q.remaining }

func (q *fakeQuota) RecordSent(ctx context.Context, n int) {
	q.recorded += n
	q.remaining -= n
}

func TestCanSendDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	l := New(2, 100, &fakeQuota{remaining: 100})

	base := time.Now()
	l.now = func() time.Time { return base }

	// Probing never spends tokens; only Sent does.
	for i := 0; i < 20; i++ {
		dec := l.CanSend(ctx)
		require.True(t, dec.Allowed, "probe %d", i)
	}
}

func TestPerSecondCap(t *testing.T) {
	ctx := context.Background()
	l := New(5, 100, &fakeQuota{remaining: 100})

	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		dec := l.CanSend(ctx)
		require.True(t, dec.Allowed, "send %d", i)
		l.Sent(ctx)
	}

	dec := l.CanSend(ctx)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonPerSecond, dec.Reason)
	assert.Greater(t, dec.Wait, time.Duration(0))

	// The window frees up after a second.
	l.now = func() time.Time { return base.Add(time.Second) }
	dec = l.CanSend(ctx)
	assert.True(t, dec.Allowed)
}

func TestDailyCeilingBlocks(t *testing.T) {
	ctx := context.Background()
	q := &fakeQuota{remaining: 0}
	l := New(5, 100, q)

	dec := l.CanSend(ctx)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonDaily, dec.Reason)
	assert.Equal(t, time.Duration(0), dec.Wait)
}

func TestDailyCheckedBeforePerSecond(t *testing.T) {
	ctx := context.Background()
	q := &fakeQuota{remaining: 100}
	l := New(1, 100, q)

	base := time.Now()
	l.now = func() time.Time { return base }

	require.True(t, l.CanSend(ctx).Allowed)
	l.Sent(ctx)

	// Both ceilings exhausted: the daily reason wins, since it pauses the
	// campaign instead of just delaying the batch.
	q.remaining = 0
	dec := l.CanSend(ctx)
	assert.Equal(t, ReasonDaily, dec.Reason)
}

func TestTryAcquireConsumes(t *testing.T) {
	ctx := context.Background()
	q := &fakeQuota{remaining: 100}
	l := New(5, 100, q)

	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		dec := l.TryAcquire(ctx)
		require.True(t, dec.Allowed, "acquire %d", i)
	}
	assert.Equal(t, 5, q.recorded)

	dec := l.TryAcquire(ctx)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonPerSecond, dec.Reason)
	// A denied acquire consumes nothing.
	assert.Equal(t, 5, q.recorded)
}

func TestTryAcquireConcurrentNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	l := New(5, 100, &fakeQuota{remaining: 100})

	base := time.Now()
	l.now = func() time.Time { return base }

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire(ctx).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
}

func TestTryAcquireConcurrentHonorsDailyCeiling(t *testing.T) {
	ctx := context.Background()
	q := &fakeQuota{remaining: 3}
	l := New(100, 100, q)

	base := time.Now()
	l.now = func() time.Time { return base }

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire(ctx).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
	assert.Equal(t, 3, q.recorded)
}

func TestSentRecordsQuota(t *testing.T) {
	ctx := context.Background()
	q := &fakeQuota{remaining: 100}
	l := New(10, 100, q)

	for i := 0; i < 3; i++ {
		l.Sent(ctx)
	}
	assert.Equal(t, 3, q.recorded)
}
