package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/scholarship-portal/internal/model"
)

// Events carries messages produced outside the bubbletea loop (timer and
// file-watcher goroutines) into it. Create it before the monitor and the
// config watcher so their callbacks can post to it.
type Events chan tea.Msg

// NewEvents returns a buffered Events channel.
func NewEvents() Events {
	return make(Events, 16)
}

type sessionWarningMsg struct{}

type sessionTimeoutMsg struct{}

// ConfigReloadedMsg carries a configuration re-read after the file changed.
type ConfigReloadedMsg struct {
	Config *model.AppConfig
}

type configErrorMsg struct {
	err error
}

// Warning is the inactivity monitor's OnWarning callback.
func (e Events) Warning() { e.post(sessionWarningMsg{}) }

// Timeout is the inactivity monitor's OnTimeout callback.
func (e Events) Timeout() { e.post(sessionTimeoutMsg{}) }

// ConfigChanged is the config watcher's change callback.
func (e Events) ConfigChanged(cfg *model.AppConfig) { e.post(ConfigReloadedMsg{Config: cfg}) }

// ConfigError is the config watcher's error callback.
func (e Events) ConfigError(err error) { e.post(configErrorMsg{err: err}) }

// post never blocks a timer goroutine; a full buffer drops the message.
func (e Events) post(msg tea.Msg) {
	select {
	case e <- msg:
	default:
	}
}

// Wait returns a tea.Cmd that delivers the next event. Call it again after
// handling each event to keep listening.
func (e Events) Wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-e
		if !ok {
			return nil
		}
		return msg
	}
}
