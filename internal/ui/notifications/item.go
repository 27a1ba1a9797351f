package notifications

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
	Selected     bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Delegate implements list.ItemDelegate for rendering notifications.
type Delegate struct {
	// now is overridable for deterministic rendering.
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a notification as a headline and a message line.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	marker := " "
	if !n.Read {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("●")
	}
	check := "[ ]"
	if it.Selected {
		check = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("[x]")
	}

	kind := n.Type
	if kind == "" {
		kind = "info"
	}
	badge := theme.NotificationTypeStyle(n.Type).Render(kind)

	now := time.Now
	if d.now != nil {
		now = d.now
	}
	when := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(now(), n.CreatedAt))

	headline := fmt.Sprintf("%s %s %s %s  %s", marker, check, badge, n.Title, when)

	body := n.Message
	if n.Link != "" {
		body += "  → " + n.Link
	}
	width := m.Width() - 6
	if width > 0 && lipgloss.Width(body) > width {
		body = truncate(body, width)
	}
	body = "      " + body

	if n.Read {
		headline = theme.DimmedStyle.Render(headline)
		body = theme.DimmedStyle.Render(body)
	} else {
		body = theme.HelpStyle.Render(body)
	}

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(lipgloss.JoinVertical(lipgloss.Left, headline, body)))
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}
