package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScheduler() *Scheduler { return New(zap.NewNop()) }

func TestAddTicker_Fires(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var runs int32
	s.AddTicker("audit_retention", 20*time.Millisecond, func() {
		atomic.AddInt32(&runs, 1)
	})

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}

func TestAddTicker_ReplacesExisting(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var oldRuns, newRuns int32
	s.AddTicker("sweep", 20*time.Millisecond, func() { atomic.AddInt32(&oldRuns, 1) })
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("sweep", 20*time.Millisecond, func() { atomic.AddInt32(&newRuns, 1) })
	time.Sleep(80 * time.Millisecond)

	snap := atomic.LoadInt32(&oldRuns)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&oldRuns), "replaced ticker must stop")
	assert.Positive(t, atomic.LoadInt32(&newRuns))
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var runs int32
	s.AddDelay("once", 30*time.Millisecond, func() {
		atomic.AddInt32(&runs, 1)
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestAddDelay_ReplaceCancelsOld(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var total int32
	s.AddDelay("d", 500*time.Millisecond, func() { atomic.AddInt32(&total, 1) })
	s.AddDelay("d", 30*time.Millisecond, func() { atomic.AddInt32(&total, 10) })
	time.Sleep(100 * time.Millisecond)

	// Only the replacement fires.
	assert.Equal(t, int32(10), atomic.LoadInt32(&total))
}

func TestRemove_Ticker(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var runs int32
	s.AddTicker("sweep", 20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Remove("sweep")
	snap := atomic.LoadInt32(&runs)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&runs), "ticker must stop after Remove")
}

func TestRemove_Delay(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var runs int32
	s.AddDelay("d", 100*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })
	s.Remove("d")
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&runs))
}

func TestRemove_UnknownName(t *testing.T) {
	s := newScheduler()
	defer s.Stop()
	s.Remove("nope") // must not panic
}

func TestStop_StopsAllTickers(t *testing.T) {
	s := newScheduler()

	var a, b int32
	s.AddTicker("a", 20*time.Millisecond, func() { atomic.AddInt32(&a, 1) })
	s.AddTicker("b", 20*time.Millisecond, func() { atomic.AddInt32(&b, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	// Give goroutines time to observe the stop signal before snapping counts.
	time.Sleep(30 * time.Millisecond)
	snapA, snapB := atomic.LoadInt32(&a), atomic.LoadInt32(&b)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snapA, atomic.LoadInt32(&a))
	assert.Equal(t, snapB, atomic.LoadInt32(&b))
}

func TestStop_Idempotent(t *testing.T) {
	s := newScheduler()
	s.Stop()
	s.Stop()
}

func TestListTickers_Sorted(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	s.AddTicker("retention", time.Hour, func() {})
	s.AddTicker("cache_gc", time.Hour, func() {})
	assert.Equal(t, []string{"cache_gc", "retention"}, s.ListTickers())
}

func TestListTickers_AfterRemove(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	s.AddTicker("x", time.Hour, func() {})
	s.AddTicker("y", time.Hour, func() {})
	s.Remove("x")
	assert.Equal(t, []string{"y"}, s.ListTickers())
}

func TestTicker_SurvivesPanickingTask(t *testing.T) {
	s := newScheduler()
	defer s.Stop()

	var runs int32
	s.AddTicker("flaky", 20*time.Millisecond, func() {
		atomic.AddInt32(&runs, 1)
		panic("oops")
	})
	time.Sleep(100 * time.Millisecond)
	// The goroutine keeps ticking after each panic.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}
