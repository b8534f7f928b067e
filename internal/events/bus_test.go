package events

import (
	"testing"

	"lecturemate/internal/model"
)

func TestBus_PublishOrderAndFilter(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe(func(ev Event) { got = append(got, "all:"+string(ev.Kind())) })
	bus.Subscribe(func(ev Event) { got = append(got, "completed-only") }, KindCompleted)

	bus.Publish(RateChanged{Rate: 1.5})
	bus.Publish(WatchCompleted{Lecture: model.LectureRef{LectureID: "l1"}})

	want := []string{"all:rate-changed", "all:completed", "completed-only"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	bus.Publish(Log{Line: "one"})
	unsubscribe()
	unsubscribe()
	bus.Publish(Log{Line: "two"})

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestBus_HandlerMayPublish(t *testing.T) {
	bus := NewBus()
	var kinds []Kind
	bus.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind())
		if c, ok := ev.(WatchCompleted); ok {
			bus.Publish(NextLectureRequested{Lecture: c.Lecture})
		}
	})

	bus.Publish(WatchCompleted{})

	if len(kinds) != 2 || kinds[0] != KindCompleted || kinds[1] != KindNextLecture {
		t.Errorf("kinds = %v, want [completed next-lecture]", kinds)
	}
}

func TestBus_NilEventIgnored(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(func(Event) { t.Fatal("handler should not run for nil event") })
	bus.Publish(nil)
}
