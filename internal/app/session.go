package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nhle/scholarship-portal/internal/access"
	"github.com/nhle/scholarship-portal/internal/activity"
	"github.com/nhle/scholarship-portal/internal/credential"
	"github.com/nhle/scholarship-portal/internal/model"
	appsync "github.com/nhle/scholarship-portal/internal/sync"
)

// requestTimeout bounds the identity and logout round trips.
const requestTimeout = 30 * time.Second

// sessionLoadedMsg carries the identity and applications fetched at start
// and on :reload. A nil user means signed out.
type sessionLoadedMsg struct {
	user *model.User
	apps []model.Application
	err  error
}

// signedOutMsg reports the end of the remote logout.
type signedOutMsg struct {
	reason string
	err    error
}

type countdownMsg struct{}

func countdownTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return countdownMsg{}
	})
}

// loadSession re-reads the stored token, then fetches the current user
// and, when signed in, the user's applications.
func (m Model) loadSession() tea.Cmd {
	p := m.portal
	creds := m.creds
	return func() tea.Msg {
		if creds != nil {
			token, err := credential.Token(creds)
			if err != nil {
				return sessionLoadedMsg{err: fmt.Errorf("reading token: %w", err)}
			}
			p.SetToken(token)
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := p.CurrentUser(ctx)
		if err != nil || user == nil {
			return sessionLoadedMsg{err: err}
		}

		apps, err := p.ListApplications(ctx)
		if err != nil {
			return sessionLoadedMsg{user: user, err: fmt.Errorf("loading applications: %w", err)}
		}
		return sessionLoadedMsg{user: user, apps: apps}
	}
}

// applySession installs a loaded identity: the engine starts polling, the
// gate is evaluated and the inactivity monitor is armed.
func (m *Model) applySession(msg sessionLoadedMsg) tea.Cmd {
	m.loading = false
	if msg.err != nil {
		m.log.Warn("loading session failed", zap.Error(msg.err))
		m.statusMsg = msg.err.Error()
	}
	if msg.user == nil {
		if m.signedIn {
			return m.endSession("Your portal session has ended.")
		}
		m.signedOutReason = "Not signed in. Press s to enter a portal token, or set " + credential.TokenEnv + " and run :reload."
		return nil
	}

	m.user = msg.user
	m.apps.SetApplications(msg.apps)
	m.evaluateGate()
	m.provider.SetUser(msg.user)
	m.signedOutReason = ""

	if !m.signedIn {
		m.signedIn = true
		m.monitor.SetEnabled(m.cfg.Session.Enabled)
		m.monitor.ResetTimer()
	}

	if m.snapshots != nil {
		return nil
	}
	n, err := m.provider.Notifications()
	if err != nil {
		m.log.Error("notifications unavailable after sign-in", zap.Error(err))
		return nil
	}
	ch, unsubscribe := n.Subscribe()
	m.snapshots = ch
	m.unsubscribe = unsubscribe
	return appsync.WaitForSnapshot(ch)
}

// evaluateGate recomputes the access decision from the current user and
// applications.
func (m *Model) evaluateGate() {
	m.decision = m.evaluator.Evaluate(m.user, m.apps.Applications())
	m.profile.SetUser(m.user, m.decision)
	if m.decision.EmailUpdateRequired {
		m.log.Info("email update required",
			zap.String("user_id", m.user.ID),
			zap.Bool("pending_email", m.user.PendingEmail != ""),
		)
	}
}

// endSession stops everything tied to the signed-in user locally and
// returns the command that logs out remotely and forgets the token.
func (m *Model) endSession(reason string) tea.Cmd {
	m.signedIn = false
	m.warning = false
	m.user = nil
	m.decision = access.Decision{}
	m.signedOutReason = reason
	m.overlay = overlayNone

	m.monitor.SetEnabled(false)
	m.provider.SetUser(nil)
	m.profile.SetUser(nil, access.Decision{})
	m.apps.SetApplications(nil)

	return m.logout(reason)
}

func (m Model) logout(reason string) tea.Cmd {
	p := m.portal
	creds := m.creds
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var errs error
		if err := p.Logout(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
		p.SetToken("")
		if creds != nil {
			if err := credential.ClearToken(creds); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("clearing token: %w", err))
			}
		}
		return signedOutMsg{reason: reason, err: errs}
	}
}

// activityKind maps terminal input onto the interaction kinds the
// inactivity monitor recognizes.
func activityKind(msg tea.Msg) (activity.Kind, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return activity.KindKeyDown, true
	case tea.MouseMsg:
		ev := tea.MouseEvent(msg)
		switch {
		case ev.IsWheel():
			return activity.KindScroll, true
		case ev.Action == tea.MouseActionPress:
			return activity.KindMouseDown, true
		case ev.Action == tea.MouseActionRelease:
			return activity.KindClick, true
		case ev.Action == tea.MouseActionMotion:
			return activity.KindMouseMove, true
		}
	}
	return "", false
}

// formatRemaining renders d as m:ss.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
