package profile

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/access"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// Model renders the signed-in user's profile.
type Model struct {
	user     *model.User
	decision access.Decision
	width    int
	height   int
}

// New creates the profile view.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// SetUser replaces the profile shown.
func (m *Model) SetUser(u *model.User, d access.Decision) {
	m.user = u
	m.decision = d
}

// View renders the profile page.
func (m Model) View() string {
	if m.user == nil {
		return theme.PanelStyle.Width(m.width - 4).Render("Not signed in.")
	}

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(16)
	row := func(k, v string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, label.Render(k), v)
	}

	rows := []string{
		theme.TitleStyle.Render("Profile"),
		row("Name", m.user.Name),
		row("Role", string(m.user.Role)),
		row("Email", m.user.Email),
	}
	if strings.TrimSpace(m.user.PendingEmail) != "" {
		rows = append(rows, row("Pending email", m.user.PendingEmail+" (awaiting confirmation)"))
	}

	status := lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("institutional")
	if !m.decision.CurrentEmailIsUB {
		status = lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("personal")
	}
	rows = append(rows, row("Email type", status))

	if m.decision.EmailUpdateRequired {
		rows = append(rows, "",
			theme.ErrorStyle.Render("Your application was accepted. Change your email to your institutional address in the portal to unlock the other pages."),
		)
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
