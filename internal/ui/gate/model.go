// Package gate renders the blocking overlay shown when an accepted
// applicant still uses a non-institutional email.
package gate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/access"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// Model is the email-update overlay.
type Model struct {
	domain string
	width  int
	height int
}

// New creates the overlay for the given institutional domain.
func New(domain string, width, height int) Model {
	if domain == "" {
		domain = access.DefaultInstitutionalDomain
	}
	return Model{domain: domain, width: width, height: height}
}

// View renders the overlay for user at route.
func (m Model) View(user *model.User, route string) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorOrange).
		Render("Institutional email required")

	current := "(unknown)"
	if user != nil {
		current = user.Email
	}

	lines := []string{
		title,
		"",
		"Congratulations, one of your applications was accepted.",
		fmt.Sprintf("Before continuing, update your email to an address ending in %s.", m.domain),
		"",
		"Current email: " + current,
	}
	if user != nil && strings.TrimSpace(user.PendingEmail) != "" {
		lines = append(lines, "Pending email: "+user.PendingEmail)
	}
	lines = append(lines,
		"",
		theme.HelpStyle.Render(fmt.Sprintf("%s is locked until then.", route)),
		theme.HelpStyle.Render("Press 2 for your profile or 1 for notifications. Run :reload after updating."),
	)

	panel := theme.GatePanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// SetDomain updates the domain quoted in the overlay.
func (m *Model) SetDomain(domain string) {
	if domain != "" {
		m.domain = domain
	}
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
