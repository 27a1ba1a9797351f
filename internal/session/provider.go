// Package session binds the signed-in identity to the notification sync
// engine and hands the engine to presentation code.
package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/sync"
)

// ErrNoSession is returned by the strict accessor when no user is signed
// in. Callers that hit it are used outside an authenticated session.
var ErrNoSession = errors.New("session: no signed-in user")

// Provider is the shared session context. It owns the engine for the
// lifetime of the process.
type Provider struct {
	engine *sync.Engine
	log    *zap.Logger
}

// NewProvider wraps engine. A nil logger is replaced by a no-op logger.
func NewProvider(engine *sync.Engine, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{engine: engine, log: log}
}

// SetUser forwards an identity transition. nil means signed out.
func (p *Provider) SetUser(u *model.User) {
	if u == nil {
		p.log.Info("session ended")
	} else {
		p.log.Info("session user set", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	}
	p.engine.SetUser(u)
}

// User returns the signed-in user, or nil.
func (p *Provider) User() *model.User {
	return p.engine.User()
}

// Notifications returns the read surface of the sync engine, or
// ErrNoSession when nobody is signed in.
func (p *Provider) Notifications() (*Notifications, error) {
	if !p.engine.Active() {
		return nil, ErrNoSession
	}
	return &Notifications{engine: p.engine}, nil
}

// MaybeNotifications is the lenient form of Notifications; it returns nil
// instead of an error.
func (p *Provider) MaybeNotifications() *Notifications {
	n, err := p.Notifications()
	if err != nil {
		return nil
	}
	return n
}

// Invalidate marks notification state stale. It is a no-op while signed
// out, so a Provider can be handed to sync.NewBridge directly.
func (p *Provider) Invalidate() {
	p.InvalidateIfActive()
}

// InvalidateIfActive invalidates only when a user is signed in and reports
// whether it did.
func (p *Provider) InvalidateIfActive() bool {
	n := p.MaybeNotifications()
	if n == nil {
		return false
	}
	n.Invalidate()
	return true
}

// SetPollInterval applies a new polling period, e.g. after a config
// reload.
func (p *Provider) SetPollInterval(d time.Duration) {
	p.engine.SetInterval(d)
}

// Close tears down the engine.
func (p *Provider) Close() {
	p.engine.Close()
}

// Notifications exposes read access and refresh triggers without the
// identity setters.
type Notifications struct {
	engine *sync.Engine
}

// Snapshot returns the current state.
func (n *Notifications) Snapshot() sync.Snapshot {
	return n.engine.Snapshot()
}

// Refresh fetches immediately.
func (n *Notifications) Refresh() {
	n.engine.Refresh()
}

// Invalidate marks the state stale.
func (n *Notifications) Invalidate() {
	n.engine.Invalidate()
}

// Subscribe returns a latest-value channel of snapshots and its cancel
// func.
func (n *Notifications) Subscribe() (<-chan sync.Snapshot, func()) {
	return n.engine.Subscribe()
}
