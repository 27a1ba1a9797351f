// Package applications renders the user's applications and the
// requirement checklist derived from them.
package applications

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// Model is the applications table.
type Model struct {
	table  table.Model
	apps   []model.Application
	width  int
	height int
}

// New creates the applications view.
func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(max(height-4, 1)),
	)
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.Foreground(theme.ColorBlue).Bold(true)
	t.SetStyles(styles)

	return Model{table: t, width: width, height: height}
}

func columns(width int) []table.Column {
	program := width - 30
	if program < 20 {
		program = 20
	}
	return []table.Column{
		{Title: "ID", Width: 12},
		{Title: "Program", Width: program},
		{Title: "Status", Width: 10},
	}
}

// SetApplications replaces the rows.
func (m *Model) SetApplications(apps []model.Application) {
	m.apps = apps
	rows := make([]table.Row, len(apps))
	for i, a := range apps {
		rows[i] = table.Row{a.ID, a.Program, string(a.Status)}
	}
	m.table.SetRows(rows)
}

// Applications returns the rows shown.
func (m Model) Applications() []model.Application {
	return m.apps
}

// Update forwards navigation keys to the table.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the applications table.
func (m Model) View() string {
	title := theme.TitleStyle.Render("My Applications")
	if len(m.apps) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			theme.HelpStyle.Render("You have not applied to any program yet."))
	}

	counts := map[model.ApplicationStatus]int{}
	for _, a := range m.apps {
		counts[a.Status]++
	}
	summary := fmt.Sprintf("%s  %s  %s",
		theme.ApplicationStatusStyle("accepted").Render(fmt.Sprintf("%d accepted", counts[model.ApplicationAccepted])),
		theme.ApplicationStatusStyle("pending").Render(fmt.Sprintf("%d pending", counts[model.ApplicationPending])),
		theme.ApplicationStatusStyle("rejected").Render(fmt.Sprintf("%d rejected", counts[model.ApplicationRejected])),
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View(), "", summary)
}

// RequirementsView renders the requirement checklist: accepted programs
// need their documents uploaded through the portal.
func (m Model) RequirementsView() string {
	title := theme.TitleStyle.Render("Requirements")

	var accepted []string
	for _, a := range m.apps {
		if a.Status == model.ApplicationAccepted {
			accepted = append(accepted, "  • "+a.Program)
		}
	}
	if len(accepted) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			theme.HelpStyle.Render("Requirements open once an application is accepted."))
	}

	return theme.PanelStyle.Width(m.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"Upload the requirements for:",
		strings.Join(accepted, "\n"),
		"",
		theme.HelpStyle.Render("Uploads are done in the portal web app; new requests arrive as notifications."),
	))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height-4, 1))
}
