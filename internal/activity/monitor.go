// Package activity tracks user inactivity and fires a warning and then a
// timeout callback after a configurable idle period.
package activity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase is the state of the current idle period.
type Phase int

const (
	// PhaseDisabled means no timers are scheduled and activity is ignored.
	PhaseDisabled Phase = iota
	// PhaseIdle means the warning and timeout are pending.
	PhaseIdle
	// PhaseWarned means the warning fired and the timeout is pending.
	PhaseWarned
	// PhaseExpired means the timeout fired for this idle period.
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "disabled"
	case PhaseIdle:
		return "idle"
	case PhaseWarned:
		return "warned"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Options configures a Monitor.
type Options struct {
	// Timeout is the idle period after which OnTimeout fires.
	Timeout time.Duration

	// WarningTime is how long before Timeout OnWarning fires. Zero (or a
	// nil OnWarning) disables the warning. Values >= Timeout are not
	// validated.
	WarningTime time.Duration

	Enabled   bool
	OnTimeout func()
	OnWarning func()

	// Clock defaults to the system clock.
	Clock Clock

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Monitor is the inactivity timer. All methods are safe for concurrent
// use; callbacks run outside the monitor's lock and may call back into it.
type Monitor struct {
	mu sync.Mutex

	clock     Clock
	log       *zap.Logger
	timeout   time.Duration
	warning   time.Duration
	onTimeout func()
	onWarning func()

	enabled      bool
	phase        Phase
	lastActivity time.Time

	// token identifies the live schedule; callbacks carrying an older
	// token are ignored.
	token        uint64
	warningTimer Timer
	timeoutTimer Timer
}

// NewMonitor creates a Monitor and, if opts.Enabled, starts the first
// idle period immediately.
func NewMonitor(opts Options) *Monitor {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := &Monitor{
		clock:        clock,
		log:          log,
		timeout:      opts.Timeout,
		warning:      opts.WarningTime,
		onTimeout:    opts.OnTimeout,
		onWarning:    opts.OnWarning,
		lastActivity: clock.Now(),
	}

	if opts.Enabled {
		m.mu.Lock()
		m.enabled = true
		m.rescheduleLocked()
		m.mu.Unlock()
	}

	return m
}

// Record registers an interaction signal. It returns true when the signal
// reset the idle clock, false when the monitor is disabled or the kind is
// not a recognized activity.
func (m *Monitor) Record(kind Kind) bool {
	if !Recognized(kind) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return false
	}
	m.lastActivity = m.clock.Now()
	m.rescheduleLocked()
	return true
}

// ResetTimer starts a fresh idle period from now, as if activity had
// occurred. The schedule is only rebuilt while enabled.
func (m *Monitor) ResetTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastActivity = m.clock.Now()
	if m.enabled {
		m.rescheduleLocked()
	}
}

// ClearTimers cancels pending callbacks without scheduling new ones. The
// next activity or ResetTimer starts a new idle period.
func (m *Monitor) ClearTimers() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
}

// LastActivity returns the time of the last recognized activity.
func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastActivity
}

// Phase returns the state of the current idle period.
func (m *Monitor) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return PhaseDisabled
	}
	return m.phase
}

// Remaining returns how long until the timeout fires, or zero when
// disabled or expired.
func (m *Monitor) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || m.phase == PhaseExpired {
		return 0
	}
	left := m.timeout - m.clock.Now().Sub(m.lastActivity)
	if left < 0 {
		return 0
	}
	return left
}

// SetEnabled toggles monitoring. Disabling cancels every pending callback
// and ignores further activity; enabling starts a full cycle from now.
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enabled == enabled {
		return
	}
	m.enabled = enabled

	if !enabled {
		m.cancelLocked()
		m.log.Debug("inactivity monitor disabled")
		return
	}

	m.lastActivity = m.clock.Now()
	m.rescheduleLocked()
	m.log.Debug("inactivity monitor enabled",
		zap.Duration("timeout", m.timeout),
		zap.Duration("warning", m.warning),
	)
}

// Configure replaces the durations. When enabled, a new idle period starts
// from now with the new values.
func (m *Monitor) Configure(timeout, warningTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timeout = timeout
	m.warning = warningTime
	if m.enabled {
		m.lastActivity = m.clock.Now()
		m.rescheduleLocked()
	}
}

// Stop disables the monitor; it is the teardown counterpart of
// NewMonitor.
func (m *Monitor) Stop() {
	m.SetEnabled(false)
}

// cancelLocked stops both timers and invalidates their token.
func (m *Monitor) cancelLocked() {
	m.token++
	if m.warningTimer != nil {
		m.warningTimer.Stop()
		m.warningTimer = nil
	}
	if m.timeoutTimer != nil {
		m.timeoutTimer.Stop()
		m.timeoutTimer = nil
	}
	m.phase = PhaseIdle
}

// rescheduleLocked cancels the live schedule and installs a new
// warning/timeout pair under one token.
func (m *Monitor) rescheduleLocked() {
	m.cancelLocked()

	token := m.token
	if m.warning > 0 && m.onWarning != nil {
		m.warningTimer = m.clock.AfterFunc(m.timeout-m.warning, func() {
			m.advance(token, PhaseWarned)
		})
	}
	m.timeoutTimer = m.clock.AfterFunc(m.timeout, func() {
		m.advance(token, PhaseExpired)
	})
}

// advance moves the state machine forward if token is still live and
// invokes the matching callback.
func (m *Monitor) advance(token uint64, next Phase) {
	m.mu.Lock()
	if token != m.token || !m.enabled {
		m.mu.Unlock()
		return
	}

	var cb func()
	switch next {
	case PhaseWarned:
		if m.phase != PhaseIdle {
			m.mu.Unlock()
			return
		}
		m.warningTimer = nil
		cb = m.onWarning
	case PhaseExpired:
		if m.phase == PhaseExpired {
			m.mu.Unlock()
			return
		}
		m.timeoutTimer = nil
		if m.warningTimer != nil {
			m.warningTimer.Stop()
			m.warningTimer = nil
		}
		cb = m.onTimeout
	}
	m.phase = next
	idle := m.clock.Now().Sub(m.lastActivity)
	m.mu.Unlock()

	m.log.Info("inactivity threshold reached",
		zap.Stringer("phase", next),
		zap.Duration("idle", idle),
	)
	if cb != nil {
		cb()
	}
}
