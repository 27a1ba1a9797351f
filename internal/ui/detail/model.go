// Package detail shows one notification in full.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/keys"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// Action names a write requested from the detail view.
type Action string

const (
	ActionMarkRead Action = "read"
	ActionDelete   Action = "delete"
)

// ActionMsg asks the parent to run an action on the shown notification.
type ActionMsg struct {
	Action         Action
	NotificationID string
}

// Model is the notification detail view component.
type Model struct {
	notification *model.Notification
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Notification returns the notification being shown, or nil.
func (m Model) Notification() *model.Notification {
	return m.notification
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.notification != nil {
		id := m.notification.ID
		switch {
		case key.Matches(msg, m.keys.MarkRead):
			if m.notification.Read {
				return m, nil
			}
			return m, func() tea.Msg {
				return ActionMsg{Action: ActionMarkRead, NotificationID: id}
			}

		case key.Matches(msg, m.keys.Delete):
			return m, func() tea.Msg {
				return ActionMsg{Action: ActionDelete, NotificationID: id}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No notification selected")
	}

	hint := theme.HelpStyle.Render("enter/m mark read | d delete | esc back")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), "", hint)
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}

	n := m.notification
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(n.Title))

	kind := n.Type
	if kind == "" {
		kind = "general"
	}
	typeBadge := theme.NotificationTypeStyle(n.Type).Render(strings.ToUpper(kind))
	readBadge := theme.UnreadBadgeStyle.Render("UNREAD")
	if n.Read {
		readBadge = theme.DimmedStyle.Render("read")
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, typeBadge, "  ", readBadge))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if !n.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Received:"),
			valStyle.Render(n.CreatedAt.Local().Format("2006-01-02 15:04")),
		))
	}
	if n.Link != "" {
		sections = append(sections, fmt.Sprintf(
			"%s      %s",
			metaStyle.Render("Page:"),
			valStyle.Render(n.Link),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	body := n.Message
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No message")
	} else if m.width > 4 {
		body = lipgloss.NewStyle().Width(min(m.width-4, 80)).Render(body)
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetNotification updates the notification being displayed and scrolls to
// the top.
func (m *Model) SetNotification(n *model.Notification) {
	m.notification = n
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Sync refreshes the shown notification from a newer listing. It reports
// false when the notification is no longer present.
func (m *Model) Sync(list []model.Notification) bool {
	if m.notification == nil {
		return false
	}
	for i := range list {
		if list[i].ID == m.notification.ID {
			n := list[i]
			m.notification = &n
			m.viewport.SetContent(m.renderContent())
			return true
		}
	}
	m.notification = nil
	return false
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
