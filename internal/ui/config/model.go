// Package config is the connection and session settings view. It checks a
// portal URL and token before storing them and writes the config file,
// which the config watcher then picks up.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/credential"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/theme"
)

const validateTimeout = 30 * time.Second

// ErrTokenRejected is reported when the portal does not recognize a token.
var ErrTokenRejected = errors.New("the portal did not accept this token")

// Validator resolves the identity that baseURL and token authenticate as.
// A nil user with a nil error means the token was not accepted.
type Validator func(ctx context.Context, baseURL, token string) (*model.User, error)

// Mode is the current state of the settings view.
type Mode int

const (
	ModeSummary    Mode = iota // current settings
	ModeForm                   // editing
	ModeValidating             // checking the connection
	ModeResult                 // outcome of the check
)

// DoneMsg asks the parent to close the view.
type DoneMsg struct{}

// SavedMsg reports that new settings were validated and written.
type SavedMsg struct {
	Config *model.AppConfig
	User   *model.User
}

type savedInternalMsg struct {
	cfg  *model.AppConfig
	user *model.User
	err  error
}

// fields are the values the huh form binds to. They live behind a pointer
// so the bindings survive the value copies bubbletea makes of Model.
type fields struct {
	baseURL        string
	token          string
	idleTimeout    string
	warningTime    string
	pollInterval   string
	sessionEnabled bool
}

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode     Mode
	cfg      *model.AppConfig
	path     string
	creds    credential.Store
	validate Validator

	form    *huh.Form
	fields  *fields
	spinner spinner.Model

	user       *model.User
	err        error
	statusMsg  string
	tokenState string

	width, height int
}

// New creates the settings view. path is where the config file is written.
func New(cfg *model.AppConfig, path string, creds credential.Store, validate Validator, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:       ModeSummary,
		cfg:        cfg,
		path:       path,
		creds:      creds,
		validate:   validate,
		fields:     &fields{},
		spinner:    sp,
		tokenState: tokenStatus(creds),
		width:      width,
		height:     height,
	}
}

// Mode returns the current state.
func (m Model) Mode() Mode {
	return m.mode
}

// SetConfig replaces the settings shown in the summary.
func (m *Model) SetConfig(cfg *model.AppConfig) {
	if cfg != nil {
		m.cfg = cfg
	}
}

// Reset returns to the summary, dropping any unsaved edits.
func (m *Model) Reset() {
	m.mode = ModeSummary
	m.form = nil
	m.err = nil
	m.statusMsg = ""
}

// Update handles messages and dispatches based on the current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedInternalMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.mode = ModeResult
		m.err = msg.err
		m.user = msg.user
		if msg.err != nil {
			return m, nil
		}
		m.cfg = msg.cfg
		m.tokenState = tokenStatus(m.creds)
		saved := SavedMsg{Config: msg.cfg, User: msg.user}
		return m, func() tea.Msg { return saved }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

// handleKeyMsg processes key messages based on the current mode.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeSummary:
		switch msg.String() {
		case "e", "enter":
			return m.startForm()
		case "esc":
			return m, func() tea.Msg { return DoneMsg{} }
		}
		return m, nil

	case ModeForm:
		if msg.String() == "esc" {
			m.Reset()
			return m, nil
		}
		return m.updateForm(msg)

	case ModeValidating:
		// Only allow escape during validation.
		if msg.String() == "esc" {
			m.Reset()
			m.statusMsg = "Check cancelled; nothing was saved."
		}
		return m, nil

	case ModeResult:
		switch msg.String() {
		case "r":
			if m.err != nil {
				return m.startCheck()
			}
		case "enter", "esc":
			failed := m.err != nil
			m.Reset()
			if !failed {
				return m, func() tea.Msg { return DoneMsg{} }
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) startForm() (Model, tea.Cmd) {
	*m.fields = fields{
		baseURL:        m.cfg.API.BaseURL,
		idleTimeout:    m.cfg.Session.IdleTimeout.String(),
		warningTime:    m.cfg.Session.WarningTime.String(),
		pollInterval:   m.cfg.Notifications.PollInterval.String(),
		sessionEnabled: m.cfg.Session.Enabled,
	}
	m.mode = ModeForm
	m.err = nil
	m.statusMsg = ""
	m.form = buildForm(m.fields, m.formWidth())
	return m, m.form.Init()
}

func buildForm(f *fields, width int) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Portal URL").
				Description("Root of the portal API (e.g., https://portal.example.edu)").
				Placeholder("http://localhost:5000").
				Value(&f.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API Token").
				Description("Leave empty to keep the stored token").
				EchoMode(huh.EchoModePassword).
				Value(&f.token),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Sign out when idle").
				Affirmative("Yes").
				Negative("No").
				Value(&f.sessionEnabled),
			huh.NewInput().
				Title("Idle timeout").
				Description("e.g. 30m").
				Value(&f.idleTimeout).
				Validate(validateDuration("Idle timeout", false)),
			huh.NewInput().
				Title("Warning before sign-out").
				Description("0s disables the warning").
				Value(&f.warningTime).
				Validate(validateDuration("Warning", true)),
			huh.NewInput().
				Title("Notification poll interval").
				Description("e.g. 30s").
				Value(&f.pollInterval).
				Validate(validateDuration("Poll interval", false)),
		),
	).WithWidth(width)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m.startCheck()
	case huh.StateAborted:
		m.Reset()
		return m, nil
	}
	return m, cmd
}

func (m Model) startCheck() (Model, tea.Cmd) {
	cfg, err := m.fields.apply(m.cfg)
	if err != nil {
		m.mode = ModeResult
		m.err = err
		return m, nil
	}
	m.mode = ModeValidating
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.checkAndSave(cfg, strings.TrimSpace(m.fields.token)))
}

// apply returns a copy of base with the edited values.
func (f *fields) apply(base *model.AppConfig) (*model.AppConfig, error) {
	cfg := *base
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(f.baseURL), "/")
	cfg.Session.Enabled = f.sessionEnabled

	var err error
	if cfg.Session.IdleTimeout, err = time.ParseDuration(strings.TrimSpace(f.idleTimeout)); err != nil {
		return nil, fmt.Errorf("idle timeout: %w", err)
	}
	if cfg.Session.WarningTime, err = time.ParseDuration(strings.TrimSpace(f.warningTime)); err != nil {
		return nil, fmt.Errorf("warning: %w", err)
	}
	if cfg.Notifications.PollInterval, err = time.ParseDuration(strings.TrimSpace(f.pollInterval)); err != nil {
		return nil, fmt.Errorf("poll interval: %w", err)
	}
	return &cfg, nil
}

// checkAndSave validates the connection, then stores the token and writes
// the config file. An empty token re-checks the stored one.
func (m Model) checkAndSave(cfg *model.AppConfig, token string) tea.Cmd {
	creds := m.creds
	validate := m.validate
	path := m.path
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()

		check := token
		if check == "" && creds != nil {
			stored, err := credential.Token(creds)
			if err != nil {
				return savedInternalMsg{err: fmt.Errorf("reading stored token: %w", err)}
			}
			check = stored
		}

		user, err := validate(ctx, cfg.API.BaseURL, check)
		if err != nil {
			return savedInternalMsg{err: err}
		}
		if user == nil {
			return savedInternalMsg{err: ErrTokenRejected}
		}

		if token != "" && creds != nil {
			if err := creds.Set(credential.TokenKey, token); err != nil {
				return savedInternalMsg{user: user, err: fmt.Errorf("connection OK but storing the token failed: %w", err)}
			}
		}
		if err := model.SaveConfig(path, cfg); err != nil {
			return savedInternalMsg{user: user, err: fmt.Errorf("connection OK but save failed: %w", err)}
		}
		return savedInternalMsg{cfg: cfg, user: user}
	}
}

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		if m.form == nil {
			return ""
		}
		return m.frame(m.form.View())
	case ModeValidating:
		return m.frame(fmt.Sprintf("%s Checking connection...\n\nPress esc to cancel.", m.spinner.View()))
	case ModeResult:
		return m.viewResult()
	default:
		return m.viewSummary()
	}
}

func (m Model) viewSummary() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(22)
	row := func(name, value string) {
		b.WriteString(label.Render(name) + value + "\n")
	}

	idle := "off"
	if m.cfg.Session.Enabled {
		idle = m.cfg.Session.IdleTimeout.String()
	}
	row("Portal URL", m.cfg.API.BaseURL)
	row("API token", m.tokenState)
	row("Idle sign-out", idle)
	row("Warning", m.cfg.Session.WarningTime.String())
	row("Poll interval", m.cfg.Notifications.PollInterval.String())
	row("Institutional domain", m.cfg.Access.InstitutionalDomain)
	row("Config file", m.path)

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("e edit | esc back"))
	return m.frame(b.String())
}

func tokenStatus(creds credential.Store) string {
	if creds == nil {
		return "unavailable"
	}
	token, err := credential.Token(creds)
	switch {
	case err != nil:
		return "error: " + err.Error()
	case token == "":
		return "not set"
	default:
		return "stored"
	}
}

func (m Model) viewResult() string {
	if m.err != nil {
		errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
		return m.frame(errStyle.Render("Settings not saved") + "\n\n" +
			m.err.Error() + "\n\n" +
			theme.HelpStyle.Render("r retry | enter/esc back"))
	}

	okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
	name := "OK"
	if m.user != nil {
		name = fmt.Sprintf("%s <%s>", m.user.Name, m.user.Email)
	}
	return m.frame(okStyle.Render("Connection successful") + "\n\n" +
		"Signed in as: " + name + "\n\n" +
		theme.HelpStyle.Render("enter/esc back"))
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validateDuration(fieldName string, allowZero bool) func(string) error {
	return func(s string) error {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a duration like 30s or 5m", fieldName)
		}
		if d < 0 || (d == 0 && !allowZero) {
			return fmt.Errorf("%s must be positive", fieldName)
		}
		return nil
	}
}
