package session

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/sync"
)

type stubFetcher struct {
	mu    gosync.Mutex
	calls int
}

func (f *stubFetcher) ListNotifications(context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return []model.Notification{{ID: "n-1"}}, nil
}

func (f *stubFetcher) UnreadCount(context.Context) (int, error) {
	return 1, nil
}

func (f *stubFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestProvider(t *testing.T) (*Provider, *stubFetcher) {
	t.Helper()
	f := &stubFetcher{}
	p := NewProvider(sync.New(f, sync.WithInterval(time.Hour)), nil)
	t.Cleanup(p.Close)
	return p, f
}

func TestNotificationsRequiresSession(t *testing.T) {
	p, _ := newTestProvider(t)

	n, err := p.Notifications()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, n)
	assert.Nil(t, p.MaybeNotifications())
}

func TestNotificationsAfterSignIn(t *testing.T) {
	p, f := newTestProvider(t)
	p.SetUser(&model.User{ID: "u-1", Role: model.RoleStudent})

	n, err := p.Notifications()
	require.NoError(t, err)
	require.NotNil(t, p.MaybeNotifications())

	require.Eventually(t, func() bool {
		s := n.Snapshot()
		return !s.IsLoading && s.UnreadCount == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.count())
	assert.Equal(t, "u-1", p.User().ID)
}

func TestSignOutRevokesAccess(t *testing.T) {
	p, _ := newTestProvider(t)
	p.SetUser(&model.User{ID: "u-1"})
	p.SetUser(nil)

	_, err := p.Notifications()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, p.User())
}

func TestInvalidateIfActive(t *testing.T) {
	p, f := newTestProvider(t)
	assert.False(t, p.InvalidateIfActive())

	p.SetUser(&model.User{ID: "u-1"})
	n, err := p.Notifications()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !n.Snapshot().IsLoading }, 2*time.Second, 5*time.Millisecond)

	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()
	<-ch

	assert.True(t, p.InvalidateIfActive())
	require.Eventually(t, func() bool { return f.count() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestProviderAsBridgeTarget(t *testing.T) {
	p, _ := newTestProvider(t)

	var _ sync.Invalidator = p

	// Signed out: no panic and nothing to invalidate.
	p.Invalidate()
}
