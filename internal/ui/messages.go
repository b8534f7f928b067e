package ui

import (
	"time"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
)

type tickMsg time.Time

type progressMsg struct {
	P events.ProgressUpdated
}

type completedMsg struct {
	C events.WatchCompleted
}

type rateMsg struct {
	Rate float64
}

type logMsg struct {
	Line string
}

type noteSavedMsg struct {
	Note model.Note
}

type noteErrMsg struct {
	Err error
}

type allDoneMsg struct{}
