package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/scholarship-portal/internal/access"
	"github.com/nhle/scholarship-portal/internal/activity"
	"github.com/nhle/scholarship-portal/internal/credential"
	"github.com/nhle/scholarship-portal/internal/keys"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/portal"
	"github.com/nhle/scholarship-portal/internal/session"
	appsync "github.com/nhle/scholarship-portal/internal/sync"
	"github.com/nhle/scholarship-portal/internal/theme"
	"github.com/nhle/scholarship-portal/internal/ui"
	"github.com/nhle/scholarship-portal/internal/ui/applications"
	"github.com/nhle/scholarship-portal/internal/ui/command"
	"github.com/nhle/scholarship-portal/internal/ui/detail"
	settingsview "github.com/nhle/scholarship-portal/internal/ui/config"
	"github.com/nhle/scholarship-portal/internal/ui/gate"
	helpview "github.com/nhle/scholarship-portal/internal/ui/help"
	"github.com/nhle/scholarship-portal/internal/ui/notifications"
	"github.com/nhle/scholarship-portal/internal/ui/profile"
)

// Portal is the part of the portal API the root model calls directly.
// Notification reads and writes go through the engine and the bridge.
type Portal interface {
	CurrentUser(ctx context.Context) (*model.User, error)
	ListApplications(ctx context.Context) ([]model.Application, error)
	Logout(ctx context.Context) error
	SetToken(token string)
	SetBaseURL(baseURL string)
}

// Deps are the collaborators of the root model.
type Deps struct {
	Config      *model.AppConfig
	ConfigPath  string
	Validate    settingsview.Validator
	Portal      Portal
	Provider    *session.Provider
	Bridge      notifications.Mutations
	Monitor     *activity.Monitor
	Credentials credential.Store
	Events      Events
	Logger      *zap.Logger
}

// overlay is a view drawn over the current route.
type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayCommand
	overlaySettings
	overlayDetail
)

// Model is the root Bubble Tea model that manages routing, the session
// lifecycle and the layout.
type Model struct {
	cfg       *model.AppConfig
	portal    Portal
	provider  *session.Provider
	monitor   *activity.Monitor
	creds     credential.Store
	events    Events
	evaluator access.Evaluator
	log       *zap.Logger
	keys      *keys.KeyMap

	layout  ui.Layout
	ready   bool
	route   Route
	overlay overlay

	notifications notifications.Model
	profile       profile.Model
	apps          applications.Model
	gate          gate.Model
	helpView      helpview.Model
	commandView   command.Model
	settings      settingsview.Model
	detail        detail.Model

	user     *model.User
	decision access.Decision
	snapshot appsync.Snapshot

	snapshots   <-chan appsync.Snapshot
	unsubscribe func()

	signedIn        bool
	loading         bool
	warning         bool
	statusMsg       string
	signedOutReason string
}

// New creates the root model. Nothing is fetched until Init.
func New(d Deps) Model {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	events := d.Events
	if events == nil {
		events = NewEvents()
	}
	k := keys.DefaultKeyMap()

	helpView := helpview.New(k, 80, 24)
	helpView.SetIdleTimeout(d.Config.Session.IdleTimeout)

	return Model{
		cfg:           d.Config,
		portal:        d.Portal,
		provider:      d.Provider,
		monitor:       d.Monitor,
		creds:         d.Credentials,
		events:        events,
		evaluator:     access.NewEvaluator(d.Config.Access.InstitutionalDomain),
		log:           log,
		keys:          k,
		route:         RouteNotifications,
		notifications: notifications.New(d.Bridge, k, 80, 24),
		profile:       profile.New(80, 24),
		apps:          applications.New(80, 24),
		gate:          gate.New(d.Config.Access.InstitutionalDomain, 80, 24),
		helpView:      helpView,
		commandView:   command.New(80, 24),
		detail:        detail.New(k, 80, 24),
		settings:      settingsview.New(d.Config, d.ConfigPath, d.Credentials, d.Validate, 80, 24),
		loading:       true,
	}
}

// Init loads the session and starts listening for background events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSession(),
		m.notifications.Init(),
		m.events.Wait(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if kind, ok := activityKind(msg); ok && m.monitor.Record(kind) {
		m.warning = false
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.notifications.SetSize(w, h)
		m.profile.SetSize(w, h)
		m.apps.SetSize(w, h)
		m.gate.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settings.SetSize(w, h)
		m.detail.SetSize(w, h)
		return m.updateActiveView(msg)

	case sessionLoadedMsg:
		return m, m.applySession(msg)

	case appsync.SnapshotMsg:
		m.snapshot = msg.Snapshot
		if m.overlay == overlayDetail && !m.detail.Sync(msg.Snapshot.Notifications) {
			m.overlay = overlayNone
		}
		if portal.IsAuthError(msg.Snapshot.Err) && m.signedIn {
			return m, tea.Batch(
				m.endSession("Your portal session expired."),
				appsync.WaitForSnapshot(m.snapshots),
			)
		}
		return m, tea.Batch(
			m.notifications.SetSnapshot(msg.Snapshot),
			appsync.WaitForSnapshot(m.snapshots),
		)

	case sessionWarningMsg:
		if !m.signedIn {
			return m, m.events.Wait()
		}
		m.warning = true
		return m, tea.Batch(countdownTick(), m.events.Wait())

	case countdownMsg:
		if m.warning && m.monitor.Phase() == activity.PhaseWarned {
			return m, countdownTick()
		}
		m.warning = false
		return m, nil

	case sessionTimeoutMsg:
		if !m.signedIn {
			return m, m.events.Wait()
		}
		m.log.Info("signing out after inactivity",
			zap.Duration("idle_timeout", m.cfg.Session.IdleTimeout),
		)
		return m, tea.Batch(
			m.endSession("You were signed out after a period of inactivity."),
			m.events.Wait(),
		)

	case signedOutMsg:
		if msg.err != nil {
			m.log.Warn("remote logout incomplete", zap.Error(msg.err))
		}
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		m.statusMsg = "Configuration reloaded."
		return m, m.events.Wait()

	case configErrorMsg:
		m.log.Warn("config reload failed", zap.Error(msg.err))
		m.statusMsg = "Config reload failed: " + msg.err.Error()
		return m, m.events.Wait()

	case notifications.MutationDoneMsg:
		if portal.IsAuthError(msg.Err) && m.signedIn {
			return m, m.endSession("Your portal session expired.")
		}
		var cmd tea.Cmd
		m.notifications, cmd = m.notifications.Update(msg)
		return m, cmd

	case notifications.OpenMsg:
		n := msg.Notification
		m.detail.SetNotification(&n)
		m.overlay = overlayDetail
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionMarkRead:
			return m, m.notifications.MarkRead(msg.NotificationID)
		case detail.ActionDelete:
			m.overlay = overlayNone
			return m, m.notifications.Delete(msg.NotificationID)
		}
		return m, nil

	case command.CommandMsg:
		m.overlay = overlayNone
		return m.executeCommand(string(msg))

	case command.CancelMsg:
		m.overlay = overlayNone
		return m, nil

	case settingsview.DoneMsg:
		m.overlay = overlayNone
		return m, nil

	case settingsview.SavedMsg:
		m.applyConfig(msg.Config)
		m.statusMsg = "Settings saved."
		m.loading = !m.signedIn
		return m, m.loadSession()

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKeys(msg); handled {
			return next, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work regardless of the route.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}

	// Text input and forms own the keyboard.
	if m.overlay == overlayCommand || m.overlay == overlaySettings || m.notifications.Confirming() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.overlay == overlayHelp {
			m.overlay = overlayNone
		} else {
			m.overlay = overlayHelp
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.overlay = overlayCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Settings):
		return m.openSettings(), nil, true

	case key.Matches(msg, m.keys.Back):
		if m.overlay != overlayNone {
			m.overlay = overlayNone
			return m, nil, true
		}
		return m, nil, false
	}

	if !m.signedIn {
		return m, nil, true
	}

	switch {
	case key.Matches(msg, m.keys.Notifications):
		return m.navigate(RouteNotifications), nil, true
	case key.Matches(msg, m.keys.Profile):
		return m.navigate(RouteProfile), nil, true
	case key.Matches(msg, m.keys.Requirements):
		return m.navigate(RouteRequirements), nil, true
	case key.Matches(msg, m.keys.Applications):
		return m.navigate(RouteApplications), nil, true
	case key.Matches(msg, m.keys.Refresh):
		if n := m.provider.MaybeNotifications(); n != nil {
			n.Refresh()
		}
		return m, nil, true
	}

	return m, nil, false
}

func (m Model) openSettings() Model {
	m.settings.Reset()
	m.settings.SetConfig(m.cfg)
	m.overlay = overlaySettings
	return m
}

func (m Model) navigate(r Route) Model {
	m.route = r
	m.overlay = overlayNone
	m.statusMsg = ""
	return m
}

// executeCommand handles a command string from the command palette.
func (m Model) executeCommand(cmd string) (Model, tea.Cmd) {
	switch cmd {
	case "quit", "q":
		return m, tea.Quit
	case "help":
		m.overlay = overlayHelp
		return m, nil
	case "settings":
		return m.openSettings(), nil
	case "reload":
		m.loading = !m.signedIn
		m.statusMsg = ""
		return m, m.loadSession()
	}

	if !m.signedIn {
		m.statusMsg = "Not signed in."
		return m, nil
	}

	switch cmd {
	case "refresh", "sync":
		if n := m.provider.MaybeNotifications(); n != nil {
			n.Refresh()
		}
		return m, nil
	case "read all", "mark all read":
		return m, m.notifications.MarkAllRead()
	case "logout", "sign out":
		return m, m.endSession("Signed out.")
	}

	if r, ok := parseRoute(cmd); ok {
		return m.navigate(r), nil
	}
	m.statusMsg = "Unknown command: " + cmd
	return m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.overlay == overlayCommand:
		m.commandView, cmd = m.commandView.Update(msg)
		return m, cmd
	case m.overlay == overlayHelp:
		m.helpView, cmd = m.helpView.Update(msg)
		return m, cmd
	case m.overlay == overlaySettings:
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd
	}

	// Background messages for the notification view are delivered on any
	// route; input only reaches the visible, ungated page.
	_, isKey := msg.(tea.KeyMsg)
	_, isMouse := msg.(tea.MouseMsg)
	input := isKey || isMouse
	if input && m.overlay == overlayDetail {
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	if input && (!m.signedIn || m.gated(m.route)) {
		return m, nil
	}

	switch {
	case m.route == RouteNotifications || !input:
		m.notifications, cmd = m.notifications.Update(msg)
	case m.route == RouteApplications:
		m.apps, cmd = m.apps.Update(msg)
	}
	return m, cmd
}

// applyConfig hot-applies a reloaded configuration.
func (m *Model) applyConfig(cfg *model.AppConfig) {
	if cfg == nil {
		return
	}
	m.cfg = cfg
	m.portal.SetBaseURL(cfg.API.BaseURL)
	m.settings.SetConfig(cfg)
	m.monitor.Configure(cfg.Session.IdleTimeout, cfg.Session.WarningTime)
	if m.signedIn {
		m.monitor.SetEnabled(cfg.Session.Enabled)
	}
	m.provider.SetPollInterval(cfg.Notifications.PollInterval)

	m.evaluator = access.NewEvaluator(cfg.Access.InstitutionalDomain)
	m.gate.SetDomain(cfg.Access.InstitutionalDomain)
	m.helpView.SetIdleTimeout(cfg.Session.IdleTimeout)
	if m.user != nil {
		m.evaluateGate()
	}

	m.log.Info("configuration applied",
		zap.Duration("idle_timeout", cfg.Session.IdleTimeout),
		zap.Duration("poll_interval", cfg.Notifications.PollInterval),
	)
}

// Close releases the snapshot subscription. Call it after the program
// exits.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Scholarship Portal", m.snapshot.UnreadCount, m.syncStatus())
	tabs := m.layout.RenderTabs(m.tabs())
	content := m.renderContent()

	var statusBar string
	if m.warning {
		statusBar = m.layout.RenderWarningBar(fmt.Sprintf(
			"Session expires in %s. Press any key to stay signed in.",
			formatRemaining(m.monitor.Remaining()),
		))
	} else {
		statusBar = m.layout.RenderStatusBar(m.keyHints())
	}

	return m.layout.RenderWithFrame(header, tabs, content, statusBar)
}

// renderContent returns the rendered string for the current view.
func (m Model) renderContent() string {
	switch m.overlay {
	case overlayHelp:
		return m.helpView.View()
	case overlayCommand:
		return m.commandView.View()
	case overlaySettings:
		return m.settings.View()
	case overlayDetail:
		return m.detail.View()
	}

	if !m.signedIn {
		return m.renderSignedOut()
	}

	if m.gated(m.route) {
		return m.gate.View(m.user, string(m.route))
	}

	switch m.route {
	case RouteNotifications:
		return m.notifications.View()
	case RouteProfile:
		return m.profile.View()
	case RouteRequirements:
		return m.apps.RequirementsView()
	case RouteApplications:
		return m.apps.View()
	default:
		return ""
	}
}

func (m Model) renderSignedOut() string {
	text := "Connecting to the portal..."
	if !m.loading {
		text = m.signedOutReason
		if text == "" {
			text = "Signed out."
		}
	}
	return lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// syncStatus returns a short string describing the notification sync.
func (m Model) syncStatus() string {
	switch {
	case !m.signedIn:
		return "signed out"
	case m.snapshot.IsLoading:
		return "syncing..."
	case m.snapshot.Err != nil:
		return "⚠ sync failed"
	case m.snapshot.Stale:
		return "stale"
	case m.snapshot.LastSync.IsZero():
		return "not synced"
	default:
		return "synced " + m.snapshot.LastSync.Format("15:04")
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" {
		return m.statusMsg
	}

	switch {
	case m.overlay == overlayHelp:
		return "? close help | esc back"
	case m.overlay == overlayCommand:
		return "enter execute | tab complete | esc cancel"
	case m.overlay == overlaySettings:
		return "esc back | ctrl+c quit"
	case m.overlay == overlayDetail:
		return "j/k scroll | enter/m read | d delete | esc back"
	case !m.signedIn:
		return "s settings | : reload | q quit"
	case m.gated(m.route):
		return "1 notifications | 2 profile | : reload | q quit"
	case m.route == RouteNotifications:
		return "o open | enter read | M read all | d delete | space select | D delete selected | r refresh | ? help"
	default:
		return "1-4 switch page | r refresh | : command | ? help | q quit"
	}
}
