package sync

import (
	"context"
	"slices"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/store"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 30 * time.Second

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Fetcher reads the authenticated user's notifications from the portal.
// The listing and the unread count may come from separate calls and are
// not assumed to be consistent with each other.
type Fetcher interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
}

// SnapshotCache persists the last successful fetch per user.
type SnapshotCache interface {
	LoadSnapshot(ctx context.Context, userID string) (*store.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap store.Snapshot) error
}

// Snapshot is an immutable view of the synchronized notification state.
type Snapshot struct {
	// UserID is empty when no user is signed in.
	UserID        string
	Notifications []model.Notification

	// UnreadCount comes from the unread-count endpoint, not from
	// Notifications.
	UnreadCount int

	// IsLoading is true only while a fetch is in flight.
	IsLoading bool

	// Stale is set by Invalidate until the next fetch completes.
	Stale bool

	// LastSync is when the last successful fetch completed.
	LastSync time.Time

	// Err is the error of the most recent fetch, nil on success.
	Err error
}

// SnapshotMsg is a tea.Msg carrying a published Snapshot.
type SnapshotMsg struct {
	Snapshot Snapshot
}

// fetchReason is logged with each fetch and decides how a request that
// collides with an in-flight fetch is treated.
type fetchReason string

const (
	reasonInitial    fetchReason = "initial"
	reasonPoll       fetchReason = "poll"
	reasonRefresh    fetchReason = "refresh"
	reasonInvalidate fetchReason = "invalidate"
	reasonRead       fetchReason = "read"
	reasonFollowUp   fetchReason = "follow-up"
)

// Option customises an Engine.
type Option func(*Engine)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithCache seeds new sessions from, and saves successful fetches to, c.
func WithCache(c SnapshotCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithFetchTimeout bounds a single fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// Engine polls the portal for notifications on behalf of the signed-in
// user and publishes snapshots to any number of subscribers. It is inert
// until SetUser receives a user and stops again when the user is cleared.
type Engine struct {
	fetcher      Fetcher
	cache        SnapshotCache
	log          *zap.Logger
	fetchTimeout time.Duration

	mu       gosync.Mutex
	interval time.Duration
	user     *model.User

	// session increments on every identity transition; fetches started
	// under an older session are discarded on completion.
	session  uint64
	state    Snapshot
	inFlight bool
	stale    bool
	stopCh   chan struct{}
	resetCh  chan time.Duration
	subs     map[int]chan Snapshot
	nextSub  int
	closed   bool
}

// New creates an Engine that reads through f.
func New(f Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:      f,
		log:          zap.NewNop(),
		fetchTimeout: fetchTimeout,
		interval:     DefaultInterval,
		resetCh:      make(chan time.Duration, 1),
		subs:         make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetUser drives activation from the identity collaborator. A nil user
// stops polling and clears the state; a new user starts a fresh session
// with an immediate fetch. Setting the same user again only refreshes the
// stored profile.
func (e *Engine) SetUser(u *model.User) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	if sameUser(e.user, u) {
		e.user = u
		return
	}

	e.stopLocked()

	if u == nil {
		e.log.Info("notification sync stopped: user signed out")
		e.publishLocked()
		return
	}

	e.user = u
	e.state = Snapshot{UserID: u.ID}
	stop := make(chan struct{})
	e.stopCh = stop

	e.log.Info("notification sync started",
		zap.String("user_id", u.ID),
		zap.Duration("interval", e.interval),
	)
	go e.run(e.session, stop, e.interval)
	e.publishLocked()
}

// Active reports whether a user is signed in.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user != nil
}

// User returns the signed-in user, or nil.
func (e *Engine) User() *model.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user
}

// Snapshot returns the current state. If the state was invalidated and no
// fetch is in flight, the read starts one and the returned snapshot
// reports IsLoading.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stale && !e.inFlight {
		e.startFetchLocked(reasonRead)
	}
	return e.snapshotLocked()
}

// Refresh fetches immediately, out of band with the polling ticker whose
// phase is left untouched. While a fetch is in flight, repeated calls
// collapse into a single follow-up fetch.
func (e *Engine) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user == nil {
		return
	}
	if e.inFlight {
		e.markStaleLocked()
		return
	}
	e.startFetchLocked(reasonRefresh)
}

// Invalidate marks the cached state stale. An in-flight fetch gets exactly
// one follow-up; otherwise a fetch starts now if anyone is subscribed, or
// on the next Snapshot read or poll tick.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.user == nil {
		return
	}
	e.markStaleLocked()
	if e.inFlight || len(e.subs) == 0 {
		return
	}
	e.startFetchLocked(reasonInvalidate)
}

// SetInterval changes the polling period of the running session and of
// sessions started later.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interval == d {
		return
	}
	e.interval = d
	select {
	case <-e.resetCh:
	default:
	}
	e.resetCh <- d
}

// Subscribe returns a channel that always holds the latest snapshot (older
// unread values are replaced) and a function that ends the subscription.
// The current snapshot is delivered immediately.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshotLocked()

	var once gosync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// WaitForSnapshot returns a tea.Cmd that waits for the next snapshot on ch.
// Call it again after handling each SnapshotMsg to keep listening.
func WaitForSnapshot(ch <-chan Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// Close stops polling, discards any in-flight result and closes every
// subscription. The engine cannot be reused.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.stopLocked()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

// run is the polling loop of one session.
func (e *Engine) run(session uint64, stop <-chan struct{}, interval time.Duration) {
	e.seedFromCache(session)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.startFetch(session, reasonInitial)

	for {
		select {
		case <-stop:
			return
		case d := <-e.resetCh:
			ticker.Reset(d)
		case <-ticker.C:
			e.startFetch(session, reasonPoll)
		}
	}
}

// seedFromCache fills an empty session with the cached snapshot so
// consumers have something to show while the first fetch runs.
func (e *Engine) seedFromCache(session uint64) {
	if e.cache == nil {
		return
	}

	e.mu.Lock()
	if session != e.session || e.user == nil {
		e.mu.Unlock()
		return
	}
	userID := e.user.ID
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
	defer cancel()

	cached, err := e.cache.LoadSnapshot(ctx, userID)
	if err != nil {
		e.log.Warn("loading cached notifications failed", zap.Error(err))
		return
	}
	if cached == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if session != e.session || !e.state.LastSync.IsZero() {
		return
	}
	e.state.Notifications = cached.Notifications
	e.state.UnreadCount = cached.UnreadCount
	e.publishLocked()
}

// startFetch starts a fetch for session if it is still current.
func (e *Engine) startFetch(session uint64, reason fetchReason) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if session != e.session {
		return
	}
	e.startFetchLocked(reason)
}

// startFetchLocked launches a fetch unless one is in flight. A colliding
// poll tick is dropped; any other colliding request leaves the state stale
// so the in-flight fetch is followed by exactly one more.
func (e *Engine) startFetchLocked(reason fetchReason) {
	if e.user == nil || e.closed {
		return
	}
	if e.inFlight {
		if reason != reasonPoll {
			e.markStaleLocked()
		}
		return
	}

	e.inFlight = true
	e.stale = false
	e.state.Stale = false
	e.state.IsLoading = true
	e.publishLocked()

	e.log.Debug("fetching notifications", zap.String("reason", string(reason)))
	go e.fetch(e.session, e.user.ID)
}

// fetch performs one list + unread-count round trip and applies the
// result if the session is still current.
func (e *Engine) fetch(session uint64, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
	defer cancel()

	notifications, err := e.fetcher.ListNotifications(ctx)
	unread := 0
	if err == nil {
		unread, err = e.fetcher.UnreadCount(ctx)
	}
	if unread < 0 {
		unread = 0
	}
	completedAt := time.Now()

	e.mu.Lock()
	if session != e.session {
		e.mu.Unlock()
		e.log.Debug("discarding notification fetch from ended session",
			zap.String("user_id", userID),
		)
		return
	}

	e.inFlight = false
	e.state.IsLoading = false
	if err != nil {
		e.state.Err = err
		e.log.Warn("notification fetch failed", zap.Error(err))
	} else {
		e.state.Notifications = notifications
		e.state.UnreadCount = unread
		e.state.LastSync = completedAt
		e.state.Err = nil
	}
	followUp := e.stale
	if followUp {
		e.startFetchLocked(reasonFollowUp)
	} else {
		e.publishLocked()
	}
	e.mu.Unlock()

	if err == nil && e.cache != nil {
		saveErr := e.cache.SaveSnapshot(ctx, store.Snapshot{
			UserID:        userID,
			Notifications: notifications,
			UnreadCount:   unread,
			FetchedAt:     completedAt,
		})
		if saveErr != nil {
			e.log.Warn("caching notifications failed", zap.Error(saveErr))
		}
	}
}

// stopLocked ends the current session: the loop exits, in-flight results
// will be discarded and the state is reset.
func (e *Engine) stopLocked() {
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.session++
	e.user = nil
	e.inFlight = false
	e.stale = false
	e.state = Snapshot{}
}

func (e *Engine) markStaleLocked() {
	e.stale = true
	e.state.Stale = true
}

// snapshotLocked copies the state so callers cannot alias the engine's
// slice.
func (e *Engine) snapshotLocked() Snapshot {
	snap := e.state
	snap.Notifications = slices.Clone(e.state.Notifications)
	return snap
}

// publishLocked delivers the current snapshot to every subscriber without
// blocking, replacing any value the subscriber has not read yet.
func (e *Engine) publishLocked() {
	for _, ch := range e.subs {
		snap := e.snapshotLocked()
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func sameUser(a, b *model.User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
