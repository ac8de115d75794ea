package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedStore struct {
	counts map[string]int
	fail   bool
}

func newScriptedStore() *scriptedStore {
	return &scriptedStore{counts: make(map[string]int)}
}

func (s *scriptedStore) IncrementSent(ctx context.Context, day string, n int) (int, error) {
	if s.fail {
		return 0, errors.New("store down")
	}
	s.counts[day] += n
	return s.counts[day], nil
}

func (s *scriptedStore) SentOn(ctx context.Context, day string) (int, error) {
	if s.fail {
		return 0, errors.New("store down")
	}
	return s.counts[day], nil
}

func fixedDay(day string) func() time.Time {
	t, _ := time.Parse(dayFormat, day)
	return func() time.Time { return t }
}

func TestTrackerRemaining(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	store.counts["2026-08-30"] = 10

	tr := NewTracker(store, zap.NewNop())
	tr.now = fixedDay("2026-08-30")

	assert.Equal(t, 40, tr.Remaining(ctx, 50))

	tr.RecordSent(ctx, 5)
	assert.Equal(t, 35, tr.Remaining(ctx, 50))

	// Never negative.
	assert.Equal(t, 0, tr.Remaining(ctx, 10))
}

func TestTrackerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()

	tr := NewTracker(store, zap.NewNop())
	tr.now = fixedDay("2026-08-30")
	tr.RecordSent(ctx, 7)

	// A fresh tracker over the same store picks up the persisted count.
	tr2 := NewTracker(store, zap.NewNop())
	tr2.now = fixedDay("2026-08-30")
	assert.Equal(t, 43, tr2.Remaining(ctx, 50))
}

func TestTrackerDayRollover(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()

	tr := NewTracker(store, zap.NewNop())
	tr.now = fixedDay("2026-08-30")
	tr.RecordSent(ctx, 49)
	require.Equal(t, 1, tr.Remaining(ctx, 50))

	tr.now = fixedDay("2026-08-31")
	assert.Equal(t, 50, tr.Remaining(ctx, 50))

	tr.RecordSent(ctx, 3)
	assert.Equal(t, 3, store.counts["2026-08-31"])
	assert.Equal(t, 49, store.counts["2026-08-30"])
}

func TestTrackerDegradedFallback(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()

	tr := NewTracker(store, zap.NewNop())
	tr.now = fixedDay("2026-08-30")
	tr.RecordSent(ctx, 10)
	require.False(t, tr.Degraded())

	store.fail = true
	tr.RecordSent(ctx, 5)
	assert.True(t, tr.Degraded())
	// In-memory counter keeps the limiter honest while the store is down.
	assert.Equal(t, 35, tr.Remaining(ctx, 50))

	tr.RecordSent(ctx, 2)
	assert.Equal(t, 33, tr.Remaining(ctx, 50))

	// Recovery resyncs from the store; increments made while degraded are
	// accepted as undercount.
	store.fail = false
	tr.RecordSent(ctx, 1)
	assert.False(t, tr.Degraded())
	assert.Equal(t, 11, store.counts["2026-08-30"])
}

func TestTrackerConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), zap.NewNop())
	tr.now = fixedDay("2026-08-30")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tr.RecordSent(ctx, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 300, tr.Remaining(ctx, 500))
}

func TestTrackerRolloverWithStoreDown(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()

	tr := NewTracker(store, zap.NewNop())
	tr.now = fixedDay("2026-08-30")
	tr.RecordSent(ctx, 50)
	require.Equal(t, 0, tr.Remaining(ctx, 50))

	// Yesterday's count must never carry into the new day, even when the
	// store can't be read.
	store.fail = true
	tr.now = fixedDay("2026-08-31")
	assert.Equal(t, 50, tr.Remaining(ctx, 50))
	assert.True(t, tr.Degraded())
}
