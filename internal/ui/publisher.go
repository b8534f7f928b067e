package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"lecturemate/internal/events"
)

// teaPublisher turns bus events into tea messages. Sends never block: the
// publisher runs inside Update when the player ticks, and every progress
// message carries the full state, so a dropped one is superseded by the next.
type teaPublisher struct {
	ch chan tea.Msg
}

func (p teaPublisher) Publish(ev events.Event) {
	var msg tea.Msg
	switch e := ev.(type) {
	case events.ProgressUpdated:
		msg = progressMsg{P: e}
	case events.WatchCompleted:
		msg = completedMsg{C: e}
	case events.RateChanged:
		msg = rateMsg{Rate: e.Rate}
	case events.Log:
		msg = logMsg{Line: e.Line}
	default:
		return
	}
	select {
	case p.ch <- msg:
	default:
	}
}
