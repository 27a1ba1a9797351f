package app

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/scholarship-portal/internal/access"
	"github.com/nhle/scholarship-portal/internal/activity"
	"github.com/nhle/scholarship-portal/internal/credential"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/portal"
	"github.com/nhle/scholarship-portal/internal/session"
	appsync "github.com/nhle/scholarship-portal/internal/sync"
	"github.com/nhle/scholarship-portal/internal/ui/detail"
	"github.com/nhle/scholarship-portal/internal/ui/notifications"
)

type fakePortal struct {
	mu          gosync.Mutex
	user        *model.User
	apps        []model.Application
	token       string
	logoutCalls int
	logoutErr   error
}

func (p *fakePortal) CurrentUser(context.Context) (*model.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, nil
}

func (p *fakePortal) ListApplications(context.Context) ([]model.Application, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.apps, nil
}

func (p *fakePortal) Logout(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logoutCalls++
	return p.logoutErr
}

func (p *fakePortal) SetBaseURL(string) {}

func (p *fakePortal) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

type emptyFetcher struct{}

func (emptyFetcher) ListNotifications(context.Context) ([]model.Notification, error) {
	return nil, nil
}

func (emptyFetcher) UnreadCount(context.Context) (int, error) { return 0, nil }

type noopMutations struct{}

func (noopMutations) MarkRead(context.Context, string) error { return nil }
func (noopMutations) MarkAllRead(context.Context) error { return nil }
func (noopMutations) Delete(context.Context, string) error { return nil }
func (noopMutations) DeleteMany(context.Context, []string) error { return nil }

type mapStore map[string]string

func (s mapStore) Get(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", credential.ErrNotFound
	}
	return v, nil
}

func (s mapStore) Set(key, value string) error { s[key] = value; return nil }

func (s mapStore) Delete(key string) error { delete(s, key); return nil }

var (
	gmailStudent = &model.User{ID: "u1", Name: "Ana", Email: "ana@gmail.com", Role: model.RoleStudent}
	ubStudent    = &model.User{ID: "u2", Name: "Ben", Email: "ben@s.ubaguio.edu", Role: model.RoleStudent}
	accepted     = []model.Application{{ID: "a1", Program: "Merit", Status: model.ApplicationAccepted}}
)

type harness struct {
	model    Model
	portal   *fakePortal
	provider *session.Provider
	monitor  *activity.Monitor
	creds    mapStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(credential.TokenEnv, "")

	cfg := &model.AppConfig{
		Session: model.SessionConfig{
			Enabled:     true,
			IdleTimeout: time.Hour,
			WarningTime: time.Minute,
		},
		Notifications: model.NotificationsConfig{PollInterval: time.Hour},
		Access:        model.AccessConfig{InstitutionalDomain: access.DefaultInstitutionalDomain},
	}

	engine := appsync.New(emptyFetcher{}, appsync.WithInterval(time.Hour))
	provider := session.NewProvider(engine, nil)
	monitor := activity.NewMonitor(activity.Options{
		Timeout:     cfg.Session.IdleTimeout,
		WarningTime: cfg.Session.WarningTime,
		OnWarning:   func() {},
	})
	fp := &fakePortal{}
	creds := mapStore{credential.TokenKey: "secret"}

	m := New(Deps{
		Config:      cfg,
		Portal:      fp,
		Provider:    provider,
		Bridge:      noopMutations{},
		Monitor:     monitor,
		Credentials: creds,
	})

	h := &harness{model: m, portal: fp, provider: provider, monitor: monitor, creds: creds}
	t.Cleanup(func() {
		h.model.Close()
		monitor.Stop()
		provider.Close()
	})
	return h
}

func (h *harness) signIn(user *model.User, apps []model.Application) {
	h.model.applySession(sessionLoadedMsg{user: user, apps: apps})
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestActivityKind(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want activity.Kind
		ok   bool
	}{
		{"key", keyPress("j"), activity.KindKeyDown, true},
		{"wheel", tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress}, activity.KindScroll, true},
		{"press", tea.MouseMsg{Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}, activity.KindMouseDown, true},
		{"release", tea.MouseMsg{Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease}, activity.KindClick, true},
		{"motion", tea.MouseMsg{Button: tea.MouseButtonNone, Action: tea.MouseActionMotion}, activity.KindMouseMove, true},
		{"resize", tea.WindowSizeMsg{Width: 80, Height: 24}, "", false},
		{"tick", countdownMsg{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := activityKind(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "1:00", formatRemaining(time.Minute))
	assert.Equal(t, "0:09", formatRemaining(9*time.Second))
	assert.Equal(t, "12:30", formatRemaining(12*time.Minute+30*time.Second))
	assert.Equal(t, "0:00", formatRemaining(-time.Second))
}

func TestParseRoute(t *testing.T) {
	r, ok := parseRoute("profile")
	require.True(t, ok)
	assert.Equal(t, RouteProfile, r)

	r, ok = parseRoute("/applications")
	require.True(t, ok)
	assert.Equal(t, RouteApplications, r)

	_, ok = parseRoute("settings")
	assert.False(t, ok)
}

func TestSignInStartsSessionAndArmsMonitor(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, activity.PhaseDisabled, h.monitor.Phase())

	h.signIn(ubStudent, nil)

	assert.True(t, h.model.signedIn)
	assert.False(t, h.model.loading)
	assert.Equal(t, ubStudent, h.provider.User())
	assert.Equal(t, activity.PhaseIdle, h.monitor.Phase())
	assert.NotNil(t, h.model.snapshots)
}

func TestSignInWithoutUserStaysSignedOut(t *testing.T) {
	h := newHarness(t)

	cmd := h.model.applySession(sessionLoadedMsg{})

	assert.Nil(t, cmd)
	assert.False(t, h.model.signedIn)
	assert.Contains(t, h.model.signedOutReason, credential.TokenEnv)
	assert.Equal(t, activity.PhaseDisabled, h.monitor.Phase())
}

func TestGateBlocksRoutesOutsideAllowList(t *testing.T) {
	h := newHarness(t)
	h.signIn(gmailStudent, accepted)

	require.True(t, h.model.decision.EmailUpdateRequired)
	assert.True(t, h.model.gated(RouteRequirements))
	assert.True(t, h.model.gated(RouteApplications))
	assert.False(t, h.model.gated(RouteProfile))
	assert.False(t, h.model.gated(RouteNotifications))

	h.model.route = RouteRequirements
	assert.Contains(t, h.model.renderContent(), "Institutional email required")

	h.model.route = RouteProfile
	assert.NotContains(t, h.model.renderContent(), "Institutional email required")
}

func TestGateOpenForInstitutionalEmail(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, accepted)

	assert.False(t, h.model.decision.EmailUpdateRequired)
	assert.True(t, h.model.decision.HasAcceptedApplication)
	assert.False(t, h.model.gated(RouteRequirements))
}

func TestConfigReloadReevaluatesGate(t *testing.T) {
	h := newHarness(t)
	h.signIn(gmailStudent, accepted)
	require.True(t, h.model.decision.EmailUpdateRequired)

	cfg := *h.model.cfg
	cfg.Access.InstitutionalDomain = "@gmail.com"
	cfg.Notifications.PollInterval = 2 * time.Hour
	h.update(ConfigReloadedMsg{Config: &cfg})

	assert.False(t, h.model.decision.EmailUpdateRequired)
	assert.Equal(t, "Configuration reloaded.", h.model.statusMsg)
}

func TestEndSessionStopsLocalStateBeforeRemoteLogout(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)

	cmd := h.model.endSession("bye")
	require.NotNil(t, cmd)

	assert.False(t, h.model.signedIn)
	assert.Nil(t, h.model.user)
	assert.Nil(t, h.provider.User())
	assert.Nil(t, h.provider.MaybeNotifications())
	assert.Equal(t, activity.PhaseDisabled, h.monitor.Phase())
	assert.Equal(t, 0, h.portal.logoutCalls)

	msg, ok := cmd().(signedOutMsg)
	require.True(t, ok)
	assert.NoError(t, msg.err)
	assert.Equal(t, "bye", msg.reason)
	assert.Equal(t, 1, h.portal.logoutCalls)
	assert.Empty(t, h.portal.token)
	assert.NotContains(t, h.creds, credential.TokenKey)
}

func TestEndSessionReportsLogoutFailure(t *testing.T) {
	h := newHarness(t)
	h.portal.logoutErr = errors.New("portal down")
	h.signIn(ubStudent, nil)

	msg := h.model.endSession("bye")().(signedOutMsg)

	require.Error(t, msg.err)
	assert.Contains(t, msg.err.Error(), "portal down")
	assert.NotContains(t, h.creds, credential.TokenKey, "token is cleared even when logout fails")
}

func TestSessionTimeoutSignsOut(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)

	cmd := h.update(sessionTimeoutMsg{})

	assert.NotNil(t, cmd)
	assert.False(t, h.model.signedIn)
	assert.Contains(t, h.model.signedOutReason, "inactivity")
	assert.Nil(t, h.provider.User())
}

func TestSessionTimeoutWhileSignedOutIsIgnored(t *testing.T) {
	h := newHarness(t)

	h.update(sessionTimeoutMsg{})

	assert.Equal(t, 0, h.portal.logoutCalls)
	assert.Empty(t, h.model.signedOutReason)
}

func TestKeyPressAfterWarningClearsWarning(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)

	h.update(sessionWarningMsg{})
	require.True(t, h.model.warning)

	h.update(keyPress("j"))

	assert.False(t, h.model.warning)
	assert.Equal(t, activity.PhaseIdle, h.monitor.Phase())
}

func TestWarningIgnoredWhenSignedOut(t *testing.T) {
	h := newHarness(t)

	h.update(sessionWarningMsg{})

	assert.False(t, h.model.warning)
}

func TestAuthErrorFromSyncEndsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)

	h.update(appsync.SnapshotMsg{Snapshot: appsync.Snapshot{
		UserID: ubStudent.ID,
		Err:    &portal.AuthError{Method: "GET", Path: "/api/notifications"},
	}})

	assert.False(t, h.model.signedIn)
	assert.Contains(t, h.model.signedOutReason, "expired")
}

func TestNumberKeysNavigate(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)

	h.update(keyPress("2"))
	assert.Equal(t, RouteProfile, h.model.route)

	h.update(keyPress("4"))
	assert.Equal(t, RouteApplications, h.model.route)

	h.update(keyPress("1"))
	assert.Equal(t, RouteNotifications, h.model.route)
}

func TestNumberKeysIgnoredWhenSignedOut(t *testing.T) {
	h := newHarness(t)

	h.update(keyPress("2"))

	assert.Equal(t, RouteNotifications, h.model.route)
}

func TestExecuteCommand(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)

	next, _ := h.model.executeCommand("requirements")
	assert.Equal(t, RouteRequirements, next.route)

	next, _ = h.model.executeCommand("help")
	assert.Equal(t, overlayHelp, next.overlay)

	next, cmd := h.model.executeCommand("bogus")
	assert.Nil(t, cmd)
	assert.Equal(t, "Unknown command: bogus", next.statusMsg)

	next, _ = h.model.executeCommand("logout")
	assert.False(t, next.signedIn)
}

func TestExecuteCommandRequiresSessionForPages(t *testing.T) {
	h := newHarness(t)

	next, cmd := h.model.executeCommand("profile")

	assert.Nil(t, cmd)
	assert.Equal(t, RouteNotifications, next.route)
	assert.Equal(t, "Not signed in.", next.statusMsg)
}

func TestLoadSessionReadsStoredToken(t *testing.T) {
	h := newHarness(t)
	h.portal.user = ubStudent
	h.portal.apps = accepted

	msg, ok := h.model.loadSession()().(sessionLoadedMsg)

	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, ubStudent, msg.user)
	assert.Equal(t, accepted, msg.apps)
	assert.Equal(t, "secret", h.portal.token)
}

func TestTabsMarkLockedRoutes(t *testing.T) {
	h := newHarness(t)
	h.signIn(gmailStudent, accepted)
	h.model.route = RouteProfile

	tabs := h.model.tabs()

	require.Len(t, tabs, 4)
	assert.False(t, tabs[0].Locked)
	assert.True(t, tabs[1].Active)
	assert.False(t, tabs[1].Locked)
	assert.True(t, tabs[2].Locked)
	assert.True(t, tabs[3].Locked)
}

func TestOpenNotificationShowsDetailUntilItDisappears(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)
	n := model.Notification{ID: "n1", Title: "Accepted", Message: "Welcome aboard"}

	h.update(notifications.OpenMsg{Notification: n})
	require.Equal(t, overlayDetail, h.model.overlay)
	assert.Contains(t, h.model.renderContent(), "Welcome aboard")

	h.update(appsync.SnapshotMsg{Snapshot: appsync.Snapshot{UserID: ubStudent.ID, Notifications: []model.Notification{n}}})
	assert.Equal(t, overlayDetail, h.model.overlay)

	h.update(appsync.SnapshotMsg{Snapshot: appsync.Snapshot{UserID: ubStudent.ID}})
	assert.Equal(t, overlayNone, h.model.overlay)
}

func TestEscClosesDetail(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)
	h.update(notifications.OpenMsg{Notification: model.Notification{ID: "n1"}})

	h.update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, overlayNone, h.model.overlay)
}

func TestDetailDeleteClosesOverlay(t *testing.T) {
	h := newHarness(t)
	h.signIn(ubStudent, nil)
	h.update(notifications.OpenMsg{Notification: model.Notification{ID: "n1"}})

	cmd := h.update(detail.ActionMsg{Action: detail.ActionDelete, NotificationID: "n1"})

	assert.NotNil(t, cmd)
	assert.Equal(t, overlayNone, h.model.overlay)
}

func TestSettingsKeyOpensSettingsWhenSignedOut(t *testing.T) {
	h := newHarness(t)

	h.update(keyPress("s"))
	require.Equal(t, overlaySettings, h.model.overlay)

	// Keys typed into the settings view are not global shortcuts.
	h.update(keyPress("q"))
	assert.Equal(t, overlaySettings, h.model.overlay)
}
