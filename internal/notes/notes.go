// Package notes records timestamped notes against a lecture.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
)

var ErrEmptyNote = errors.New("note text is empty")

// Store persists notes.
type Store interface {
	SaveNote(ctx context.Context, n model.Note) error
	ListNotes(ctx context.Context, courseID string) ([]model.Note, error)
}

type Service struct {
	store Store
	pub   events.Publisher
	now   func() time.Time
}

func NewService(store Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Discard
	}
	return &Service{store: store, pub: pub, now: time.Now}
}

// Add saves a note for lecture at the given playhead position. transcript is
// the transcript line nearest the position, possibly empty.
func (s *Service) Add(ctx context.Context, lecture model.LectureRef, at float64, transcript, text string) (model.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Note{}, ErrEmptyNote
	}
	if at < 0 {
		at = 0
	}
	n := model.Note{
		ID:             uuid.NewString(),
		CourseID:       lecture.CourseID,
		LectureID:      lecture.LectureID,
		Timestamp:      at,
		TranscriptText: strings.TrimSpace(transcript),
		Text:           text,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.SaveNote(ctx, n); err != nil {
		return model.Note{}, err
	}
	s.pub.Publish(events.NoteSaved{Note: n})
	return n, nil
}

// List returns the notes for a course, ordered by lecture then timestamp.
// A non-empty lectureID keeps only that lecture's notes.
func (s *Service) List(ctx context.Context, courseID, lectureID string) ([]model.Note, error) {
	all, err := s.store.ListNotes(ctx, courseID)
	if err != nil || lectureID == "" {
		return all, err
	}
	out := all[:0:0]
	for _, n := range all {
		if n.LectureID == lectureID {
			out = append(out, n)
		}
	}
	return out, nil
}
