// Package notifications is the notification center view. It renders
// engine snapshots and sends every write through the invalidating bridge.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/scholarship-portal/internal/keys"
	"github.com/nhle/scholarship-portal/internal/model"
	"github.com/nhle/scholarship-portal/internal/sync"
	"github.com/nhle/scholarship-portal/internal/theme"
)

// mutationTimeout bounds a single write.
const mutationTimeout = 30 * time.Second

// Mutations is the write surface; *sync.Bridge implements it.
type Mutations interface {
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

// Op names a write for status reporting.
type Op string

const (
	OpMarkRead    Op = "mark read"
	OpMarkAllRead Op = "mark all read"
	OpDelete      Op = "delete"
	OpDeleteMany  Op = "delete selected"
)

// MutationDoneMsg reports the outcome of a write.
type MutationDoneMsg struct {
	Op    Op
	Count int
	Err   error
}

// OpenMsg asks the parent to show a notification in full.
type OpenMsg struct {
	Notification model.Notification
}

// Model is the notification list view.
type Model struct {
	list     list.Model
	keys     *keys.KeyMap
	writes   Mutations
	spinner  spinner.Model
	snapshot sync.Snapshot
	selected map[string]bool

	confirm       *huh.Form
	deleteConfirm *bool
	pendingDelete []string

	statusMsg string
	width     int
	height    int
}

// New creates the notification view.
func New(w Mutations, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, Delegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("notification", "notifications")
	l.Styles.Title = theme.HeaderStyle
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)

	return Model{
		list:     l,
		keys:     k,
		writes:   w,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		selected: make(map[string]bool),
		width:    width,
		height:   height,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSnapshot replaces the rendered state. Selections of notifications
// that disappeared are dropped.
func (m *Model) SetSnapshot(s sync.Snapshot) tea.Cmd {
	wasLoading := m.snapshot.IsLoading
	m.snapshot = s

	present := make(map[string]bool, len(s.Notifications))
	for _, n := range s.Notifications {
		present[n.ID] = true
	}
	for id := range m.selected {
		if !present[id] {
			delete(m.selected, id)
		}
	}

	cmds := []tea.Cmd{m.syncItems()}
	if s.IsLoading && !wasLoading {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// Snapshot returns the state being rendered.
func (m Model) Snapshot() sync.Snapshot {
	return m.snapshot
}

// Selected returns the IDs of the selected notifications in list order.
func (m Model) Selected() []string {
	ids := make([]string, 0, len(m.selected))
	for _, n := range m.snapshot.Notifications {
		if m.selected[n.ID] {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Confirming reports whether the bulk-delete confirmation has focus.
func (m Model) Confirming() bool {
	return m.confirm != nil
}

func (m *Model) syncItems() tea.Cmd {
	items := make([]list.Item, len(m.snapshot.Notifications))
	for i, n := range m.snapshot.Notifications {
		items[i] = Item{Notification: n, Selected: m.selected[n.ID]}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the notification view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirm != nil {
		return m.updateConfirm(msg)
	}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.snapshot.IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MutationDoneMsg:
		m.statusMsg = describe(msg)
		if msg.Err == nil && msg.Op == OpDeleteMany {
			m.selected = make(map[string]bool)
			return m, m.syncItems()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		item, ok := m.list.SelectedItem().(Item)
		if !ok {
			return m, nil
		}
		n := item.Notification
		return m, func() tea.Msg { return OpenMsg{Notification: n} }

	case key.Matches(msg, m.keys.MarkRead):
		item, ok := m.list.SelectedItem().(Item)
		if !ok || item.Notification.Read {
			return m, nil
		}
		return m, m.MarkRead(item.Notification.ID)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.MarkAllRead()

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.list.SelectedItem().(Item)
		if !ok {
			return m, nil
		}
		return m, m.Delete(item.Notification.ID)

	case key.Matches(msg, m.keys.ToggleSelect):
		item, ok := m.list.SelectedItem().(Item)
		if !ok {
			return m, nil
		}
		id := item.Notification.ID
		if m.selected[id] {
			delete(m.selected, id)
		} else {
			m.selected[id] = true
		}
		return m, m.syncItems()

	case key.Matches(msg, m.keys.DeleteSelected):
		ids := m.Selected()
		if len(ids) == 0 {
			m.statusMsg = "Nothing selected. Press space to select notifications."
			return m, nil
		}
		m.pendingDelete = ids
		m.deleteConfirm = new(bool)
		m.confirm = buildDeleteConfirmForm(len(ids), m.deleteConfirm, m.formWidth())
		return m, m.confirm.Init()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// buildDeleteConfirmForm binds the answer to confirmed, which outlives the
// value copies of Model that bubbletea passes around.
func buildDeleteConfirmForm(count int, confirmed *bool, width int) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d selected notification(s)?", count)).
				Description("Deleted notifications cannot be restored.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(confirmed),
		),
	).WithWidth(width)
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		m.confirm = nil
		ids := m.pendingDelete
		m.pendingDelete = nil
		if m.deleteConfirm == nil || !*m.deleteConfirm {
			return m, nil
		}
		return m, m.deleteMany(ids)
	case huh.StateAborted:
		m.confirm = nil
		m.pendingDelete = nil
		return m, nil
	}

	return m, cmd
}

// MarkAllRead returns a command that marks every notification read, or
// nil when nothing is unread.
func (m Model) MarkAllRead() tea.Cmd {
	if m.snapshot.UnreadCount == 0 {
		return nil
	}
	w := m.writes
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return MutationDoneMsg{Op: OpMarkAllRead, Err: w.MarkAllRead(ctx)}
	}
}

// MarkRead returns a command that marks one notification read.
func (m Model) MarkRead(id string) tea.Cmd {
	w := m.writes
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return MutationDoneMsg{Op: OpMarkRead, Count: 1, Err: w.MarkRead(ctx, id)}
	}
}

// Delete returns a command that deletes one notification.
func (m Model) Delete(id string) tea.Cmd {
	w := m.writes
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return MutationDoneMsg{Op: OpDelete, Count: 1, Err: w.Delete(ctx, id)}
	}
}

func (m Model) deleteMany(ids []string) tea.Cmd {
	w := m.writes
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return MutationDoneMsg{Op: OpDeleteMany, Count: len(ids), Err: w.DeleteMany(ctx, ids)}
	}
}

func describe(msg MutationDoneMsg) string {
	if msg.Err != nil {
		return fmt.Sprintf("Could not %s: %v", msg.Op, msg.Err)
	}
	switch msg.Op {
	case OpMarkRead:
		return "Marked as read."
	case OpMarkAllRead:
		return "All notifications marked as read."
	case OpDelete:
		return "Notification deleted."
	case OpDeleteMany:
		return fmt.Sprintf("Deleted %d notification(s).", msg.Count)
	default:
		return ""
	}
}

// View renders the notification view.
func (m Model) View() string {
	if m.confirm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirm.View())
	}

	var footer []string
	if m.snapshot.Err != nil {
		footer = append(footer, theme.ErrorStyle.Render("Sync failed: "+m.snapshot.Err.Error()))
	}
	if n := len(m.selected); n > 0 {
		footer = append(footer, theme.HelpStyle.Render(fmt.Sprintf("%d selected, D to delete", n)))
	}
	if m.statusMsg != "" {
		footer = append(footer, theme.HelpStyle.Render(m.statusMsg))
	}

	var body string
	switch {
	case len(m.list.Items()) == 0 && m.snapshot.IsLoading:
		body = m.centered(m.spinner.View() + " Loading notifications...")
	case len(m.list.Items()) == 0:
		body = m.centered("No notifications.\nYou're all caught up.")
	default:
		body = m.list.View()
	}

	if len(footer) == 0 {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, strings.Join(footer, "  "))
}

func (m Model) centered(s string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(s)
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
