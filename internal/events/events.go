// Package events defines the typed messages exchanged between the tracker,
// the platform layer and user-facing surfaces, and a small bus to carry them.
package events

import (
	"time"

	"lecturemate/internal/model"
	"lecturemate/internal/tracker"
)

// Kind identifies an event type.
type Kind string

const (
	KindProgress    Kind = "progress"
	KindCompleted   Kind = "completed"
	KindNextLecture Kind = "next-lecture"
	KindRateChanged Kind = "rate-changed"
	KindNoteSaved   Kind = "note-saved"
	KindSessionDue  Kind = "session-due"
	KindLog         Kind = "log"
)

// Event is implemented by every payload type in this package.
type Event interface {
	Kind() Kind
}

// ProgressUpdated is emitted after every sample a tracker evaluates.
type ProgressUpdated struct {
	Lecture  model.LectureRef
	Progress tracker.Progress
	Gate     tracker.Gate
	Position float64 // playback position of the sample, seconds
}

// WatchCompleted is emitted once per lecture when the completion threshold is crossed.
type WatchCompleted struct {
	Lecture  model.LectureRef
	Progress tracker.Progress
}

// NextLectureRequested asks the platform layer to move on to the next lecture.
type NextLectureRequested struct {
	Lecture model.LectureRef
}

// RateChanged reports a new playback rate.
type RateChanged struct {
	Lecture model.LectureRef
	Rate    float64
}

// NoteSaved is emitted after a note has been persisted.
type NoteSaved struct {
	Note model.Note
}

// SessionDue is emitted when a scheduled study session's reminder fires.
type SessionDue struct {
	Session model.StudySession
	At      time.Time
}

// Log is a human-readable diagnostic associated with a lecture.
type Log struct {
	Lecture model.LectureRef
	Line    string
}

func (ProgressUpdated) Kind() Kind      { return KindProgress }
func (WatchCompleted) Kind() Kind       { return KindCompleted }
func (NextLectureRequested) Kind() Kind { return KindNextLecture }
func (RateChanged) Kind() Kind          { return KindRateChanged }
func (NoteSaved) Kind() Kind            { return KindNoteSaved }
func (SessionDue) Kind() Kind           { return KindSessionDue }
func (Log) Kind() Kind                  { return KindLog }

// Publisher is implemented by the Bus or any observer that accepts events directly.
type Publisher interface {
	Publish(ev Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
