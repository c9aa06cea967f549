package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/theakshaypant/calmerge/internal/store"
)

// Feed carries what background work reports to the program: store changes
// and failures raised by the API client's alerter. Sends never block.
type Feed struct {
	changes chan struct{}
	alerts  chan error
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		changes: make(chan struct{}, 1),
		alerts:  make(chan error, 16),
	}
}

// Alert queues err for the alert modal. It satisfies api.Alerter. When the
// queue is full the alert is dropped.
func (f *Feed) Alert(err error) {
	select {
	case f.alerts <- err:
	default:
	}
}

// storeChanged is subscribed to the store. Changes coalesce: the model
// reads a fresh snapshot whenever it wakes up.
func (f *Feed) storeChanged(store.State) {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

type storeChangedMsg struct{}

type alertMsg struct{ err error }

func (f *Feed) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-f.changes
		return storeChangedMsg{}
	}
}

func (f *Feed) waitForAlert() tea.Cmd {
	return func() tea.Msg {
		return alertMsg{err: <-f.alerts}
	}
}
