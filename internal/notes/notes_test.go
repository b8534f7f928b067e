package notes

import (
	"context"
	"errors"
	"testing"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
)

type memStore struct {
	notes []model.Note
	err   error
}

func (m *memStore) SaveNote(_ context.Context, n model.Note) error {
	if m.err != nil {
		return m.err
	}
	m.notes = append(m.notes, n)
	return nil
}

func (m *memStore) ListNotes(_ context.Context, courseID string) ([]model.Note, error) {
	var out []model.Note
	for _, n := range m.notes {
		if n.CourseID == courseID {
			out = append(out, n)
		}
	}
	return out, nil
}

var lecture = model.LectureRef{Platform: "coursera", CourseID: "coursera:ml", LectureID: "intro"}

func TestAdd(t *testing.T) {
	store := &memStore{}
	bus := events.NewBus()
	var saved []events.NoteSaved
	bus.Subscribe(func(ev events.Event) { saved = append(saved, ev.(events.NoteSaved)) }, events.KindNoteSaved)

	svc := NewService(store, bus)
	n, err := svc.Add(context.Background(), lecture, 42.5, "  gradient descent  ", "  remember the learning rate ")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n.ID == "" {
		t.Error("note has no id")
	}
	if n.Text != "remember the learning rate" || n.TranscriptText != "gradient descent" {
		t.Errorf("text not trimmed: %+v", n)
	}
	if n.Timestamp != 42.5 || n.CourseID != "coursera:ml" || n.LectureID != "intro" {
		t.Errorf("unexpected note: %+v", n)
	}
	if len(saved) != 1 || saved[0].Note.ID != n.ID {
		t.Errorf("NoteSaved events = %+v", saved)
	}

	list, err := svc.List(context.Background(), "coursera:ml", "")
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	list, err = svc.List(context.Background(), "coursera:ml", "other-lecture")
	if err != nil || len(list) != 0 {
		t.Fatalf("List(other-lecture) = %v, %v", list, err)
	}
}

func TestAddEmpty(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, nil)
	if _, err := svc.Add(context.Background(), lecture, 1, "", "   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("err = %v, want ErrEmptyNote", err)
	}
	if len(store.notes) != 0 {
		t.Error("empty note was stored")
	}
}

func TestAddStoreError(t *testing.T) {
	boom := errors.New("disk full")
	bus := events.NewBus()
	published := 0
	bus.Subscribe(func(events.Event) { published++ })

	svc := NewService(&memStore{err: boom}, bus)
	if _, err := svc.Add(context.Background(), lecture, 1, "", "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if published != 0 {
		t.Error("event published for unsaved note")
	}
}

func TestAddClampsNegativeTimestamp(t *testing.T) {
	svc := NewService(&memStore{}, nil)
	n, err := svc.Add(context.Background(), lecture, -3, "", "x")
	if err != nil {
		t.Fatal(err)
	}
	if n.Timestamp != 0 {
		t.Errorf("timestamp = %v, want 0", n.Timestamp)
	}
}
