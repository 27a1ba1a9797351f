package activity

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires scheduled callbacks only when Advance moves past them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// pending returns the number of timers that are neither stopped nor fired.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// recorder collects callback invocations in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(name string) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, name)
	}
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newTestMonitor(t *testing.T, clock Clock, rec *recorder, warning time.Duration) *Monitor {
	t.Helper()
	m := NewMonitor(Options{
		Timeout:     10 * time.Minute,
		WarningTime: warning,
		Enabled:     true,
		OnTimeout:   rec.add("timeout"),
		OnWarning:   rec.add("warning"),
		Clock:       clock,
	})
	t.Cleanup(m.Stop)
	return m
}

func TestMonitorTimeoutFiresOncePerIdlePeriod(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 0)

	clock.Advance(10*time.Minute - time.Second)
	assert.Empty(t, rec.all())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"timeout"}, rec.all())
	assert.Equal(t, PhaseExpired, m.Phase())

	clock.Advance(time.Hour)
	assert.Equal(t, []string{"timeout"}, rec.all())
}

func TestMonitorActivityBeforeTimeoutPreventsFire(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 0)

	for _, kind := range Kinds() {
		clock.Advance(9 * time.Minute)
		require.True(t, m.Record(kind), "kind %s", kind)
	}
	clock.Advance(9 * time.Minute)

	assert.Empty(t, rec.all())
	assert.Equal(t, 1, clock.pending())
}

func TestMonitorWarningFiresBeforeTimeout(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 2*time.Minute)

	clock.Advance(8*time.Minute - time.Second)
	assert.Empty(t, rec.all())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"warning"}, rec.all())
	assert.Equal(t, PhaseWarned, m.Phase())
	assert.Equal(t, 2*time.Minute, m.Remaining())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, []string{"warning", "timeout"}, rec.all())

	clock.Advance(time.Hour)
	assert.Equal(t, []string{"warning", "timeout"}, rec.all())
}

func TestMonitorActivityAfterWarningRestartsCycle(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 2*time.Minute)

	clock.Advance(9 * time.Minute)
	require.Equal(t, []string{"warning"}, rec.all())

	m.Record(KindKeyDown)
	assert.Equal(t, PhaseIdle, m.Phase())

	clock.Advance(9 * time.Minute)
	assert.Equal(t, []string{"warning", "warning"}, rec.all())

	clock.Advance(time.Minute)
	assert.Equal(t, []string{"warning", "warning", "timeout"}, rec.all())
}

func TestMonitorResetKeepsOneScheduledPair(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, time.Minute)

	for i := 0; i < 50; i++ {
		m.Record(KindMouseMove)
		m.ResetTimer()
	}
	assert.Equal(t, 2, clock.pending())
}

func TestMonitorDisableCancelsPendingCallbacks(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, time.Minute)

	clock.Advance(5 * time.Minute)
	m.SetEnabled(false)

	assert.Equal(t, PhaseDisabled, m.Phase())
	assert.Equal(t, 0, clock.pending())
	assert.False(t, m.Record(KindClick))

	clock.Advance(24 * time.Hour)
	assert.Empty(t, rec.all())
}

func TestMonitorReenableRestartsFromNow(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 0)

	m.SetEnabled(false)
	clock.Advance(time.Hour)

	m.SetEnabled(true)
	assert.Equal(t, clock.Now(), m.LastActivity())

	clock.Advance(10*time.Minute - time.Second)
	assert.Empty(t, rec.all())
	clock.Advance(time.Second)
	assert.Equal(t, []string{"timeout"}, rec.all())
}

func TestMonitorClearTimersDoesNotReschedule(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, time.Minute)

	m.ClearTimers()
	assert.Equal(t, 0, clock.pending())
	clock.Advance(time.Hour)
	assert.Empty(t, rec.all())

	m.ResetTimer()
	clock.Advance(10 * time.Minute)
	assert.Equal(t, []string{"warning", "timeout"}, rec.all())
}

func TestMonitorIgnoresUnrecognizedKinds(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 0)

	start := m.LastActivity()
	clock.Advance(time.Minute)

	assert.False(t, m.Record(Kind("resize")))
	assert.Equal(t, start, m.LastActivity())

	assert.True(t, m.Record(KindScroll))
	assert.Equal(t, clock.Now(), m.LastActivity())
}

func TestMonitorStartsDisabled(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := NewMonitor(Options{
		Timeout:   time.Minute,
		OnTimeout: rec.add("timeout"),
		Clock:     clock,
	})

	assert.Equal(t, PhaseDisabled, m.Phase())
	clock.Advance(time.Hour)
	assert.Empty(t, rec.all())
}

func TestMonitorConfigureReschedules(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, 0)

	clock.Advance(5 * time.Minute)
	m.Configure(time.Minute, 0)

	clock.Advance(time.Minute)
	assert.Equal(t, []string{"timeout"}, rec.all())
}

// leakyClock returns timers whose Stop never prevents the callback, so the
// monitor's own token check is what keeps cancelled callbacks silent.
type leakyClock struct {
	*fakeClock
	mu        sync.Mutex
	callbacks []func()
}

func (c *leakyClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	c.callbacks = append(c.callbacks, f)
	c.mu.Unlock()
	return leakyTimer{}
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func TestMonitorIgnoresCallbacksFromCancelledSchedule(t *testing.T) {
	clock := &leakyClock{fakeClock: newFakeClock()}
	rec := &recorder{}
	m := newTestMonitor(t, clock, rec, time.Minute)

	m.Record(KindKeyPress)
	m.SetEnabled(false)

	clock.mu.Lock()
	callbacks := append([]func(){}, clock.callbacks...)
	clock.mu.Unlock()
	require.Len(t, callbacks, 4)

	for _, cb := range callbacks {
		cb()
	}
	assert.Empty(t, rec.all())

	m.SetEnabled(true)
	clock.mu.Lock()
	latest := clock.callbacks[len(clock.callbacks)-1]
	clock.mu.Unlock()
	latest()
	assert.Equal(t, []string{"timeout"}, rec.all())
}
