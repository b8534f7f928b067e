package model

import "time"

// LectureRef identifies a lecture on a learning platform.
type LectureRef struct {
	Platform  string
	CourseID  string // e.g. "coursera:machine-learning"
	LectureID string
	Title     string
	URL       string
}

// LectureProgress is the persisted watch snapshot for one lecture.
type LectureProgress struct {
	CourseID      string    `json:"courseId"`
	LectureID     string    `json:"lectureId"`
	WatchedTime   float64   `json:"watchedTime"` // credited seconds
	Duration      float64   `json:"duration"`    // seconds; 0 if unknown
	Completed     bool      `json:"completed"`
	LastWatchedAt time.Time `json:"lastWatchedAt"`
}

// Note is a timestamped note taken while watching a lecture.
type Note struct {
	ID             string    `json:"id"`
	CourseID       string    `json:"courseId"`
	LectureID      string    `json:"lectureId"`
	Timestamp      float64   `json:"timestamp"` // playback position in seconds
	TranscriptText string    `json:"transcriptText,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SessionStatus is the lifecycle state of a StudySession.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionNotified  SessionStatus = "notified"
	SessionStarted   SessionStatus = "started"
	SessionDismissed SessionStatus = "dismissed"
)

// StudySession is a planned block of study time with a reminder.
type StudySession struct {
	ID            string        `json:"sessionId"`
	Title         string        `json:"title"`
	Course        string        `json:"course"`
	URL           string        `json:"url,omitempty"`
	ScheduledTime time.Time     `json:"scheduledTime"`
	Status        SessionStatus `json:"status"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}
