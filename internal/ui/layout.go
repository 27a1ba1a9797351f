package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/theme"
)

// Tab is one route entry in the tab row.
type Tab struct {
	Label  string
	Active bool

	// Locked tabs are rendered struck through while the email gate is
	// closed.
	Locked bool
}

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	TabsHeight      int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// The header, tab row and status bar are one line each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		TabsHeight:      1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.TabsHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the title bar with an optional unread badge on the
// left and the sync status on the right.
func (l Layout) RenderHeader(title string, unread int, syncStatus string) string {
	left := theme.HeaderStyle.Render(title)
	if unread > 0 {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, theme.UnreadBadgeStyle.Render(unreadLabel(unread)))
	}

	right := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	return l.fill(theme.HeaderStyle, left, right)
}

// RenderTabs renders the route tabs.
func (l Layout) RenderTabs(tabs []Tab) string {
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		switch {
		case t.Active:
			parts = append(parts, theme.ActiveTabStyle.Render(t.Label))
		case t.Locked:
			parts = append(parts, theme.LockedTabStyle.Render(t.Label))
		default:
			parts = append(parts, theme.TabStyle.Render(t.Label))
		}
	}
	return lipgloss.NewStyle().MaxWidth(l.Width).Render(strings.Join(parts, " "))
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), "")
}

// RenderWarningBar renders the session-expiry warning in place of the
// status bar.
func (l Layout) RenderWarningBar(message string) string {
	return l.fill(theme.WarningBarStyle, theme.WarningBarStyle.Render(message), "")
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, tabs, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	tabs string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		tabs,
		content,
		statusBar,
	)
}

// fill pads the gap between left and right with the background of style
// so the bar spans the full width.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

func unreadLabel(n int) string {
	if n > 99 {
		return "99+"
	}
	return strconv.Itoa(n)
}
