package help

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/keys"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys        *keys.KeyMap
	help        help.Model
	idleTimeout time.Duration
	width       int
	height      int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	parts := []string{title, helpText}
	if m.idleTimeout > 0 {
		parts = append(parts, "", theme.HelpStyle.Render(fmt.Sprintf(
			"You are signed out after %s without keyboard or mouse activity.",
			m.idleTimeout,
		)))
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetIdleTimeout sets the duration quoted in the session note.
func (m *Model) SetIdleTimeout(d time.Duration) {
	m.idleTimeout = d
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
