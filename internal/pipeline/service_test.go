package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
	"lecturemate/internal/source"
	"lecturemate/internal/tracker"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind()
	}
	return out
}

func (r *recordingPublisher) count(k events.Kind) int {
	n := 0
	for _, got := range r.kinds() {
		if got == k {
			n++
		}
	}
	return n
}

type memStore struct {
	saves []model.LectureProgress
	err   error
}

func (m *memStore) SaveProgress(_ context.Context, p model.LectureProgress) error {
	m.saves = append(m.saves, p)
	return m.err
}

func (m *memStore) last() model.LectureProgress {
	return m.saves[len(m.saves)-1]
}

var lecture = model.LectureRef{Platform: "coursera", CourseID: "coursera:ml", LectureID: "intro"}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// playback builds a trace that seeds at 0, puts the video on screen and plays
// n one-second steps of a video lasting duration seconds.
func playback(n int, duration float64) *source.Trace {
	ratio := 1.0
	evs := []source.Event{
		{Event: source.KindMetadata, T: 0},
		{Event: source.KindIntersection, Ratio: &ratio},
	}
	for i := 1; i <= n; i++ {
		evs = append(evs, source.Event{Event: source.KindTimeUpdate, T: float64(i), Duration: duration, Rate: 1})
	}
	return source.NewTrace(evs)
}

func newTestService(pub events.Publisher, st Store, opts ...Option) *Service {
	base := []Option{
		WithPublisher(pub),
		WithStore(st),
		WithClock(func() time.Time { return fixedNow }),
		WithPersistInterval(time.Hour),
	}
	return NewService(append(base, opts...)...)
}

func TestWatchCompletesLecture(t *testing.T) {
	pub := &recordingPublisher{}
	st := &memStore{}
	svc := newTestService(pub, st)

	res, err := svc.Watch(context.Background(), lecture, playback(100, 100))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if res.Samples != 100 || res.Credited != 100 {
		t.Errorf("samples=%d credited=%d, want 100/100", res.Samples, res.Credited)
	}
	if !res.Progress.Completed || res.Progress.WatchedTime != 100 {
		t.Errorf("progress = %+v", res.Progress)
	}

	if got := pub.count(events.KindProgress); got != 100 {
		t.Errorf("progress events = %d, want 100", got)
	}
	if pub.count(events.KindCompleted) != 1 || pub.count(events.KindNextLecture) != 1 {
		t.Errorf("completion events: %v", pub.kinds())
	}

	// Completion is announced right after the progress update that crossed 96s.
	kinds := pub.kinds()
	for i, k := range kinds {
		if k == events.KindCompleted {
			if i != 96 || kinds[i+1] != events.KindNextLecture {
				t.Errorf("completed at index %d followed by %q", i, kinds[i+1])
			}
		}
	}

	// One save on completion, one on close.
	if len(st.saves) != 2 {
		t.Fatalf("saves = %d, want 2", len(st.saves))
	}
	if !st.saves[0].Completed || st.saves[0].WatchedTime != 96 {
		t.Errorf("completion save = %+v", st.saves[0])
	}
	if got := st.last(); got.WatchedTime != 100 || got.CourseID != "coursera:ml" || !got.LastWatchedAt.Equal(fixedNow) {
		t.Errorf("final save = %+v", got)
	}
}

func TestPeriodicPersistence(t *testing.T) {
	st := &memStore{}
	svc := newTestService(nil, st, WithPersistInterval(0))

	if _, err := svc.Watch(context.Background(), lecture, playback(10, 0)); err != nil {
		t.Fatal(err)
	}
	if len(st.saves) != 11 {
		t.Errorf("saves = %d, want 11", len(st.saves))
	}
	if st.last().Duration != 0 || st.last().Completed {
		t.Errorf("unknown duration should never complete: %+v", st.last())
	}
}

func TestSaveErrorsArePublished(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &memStore{err: errors.New("locked")})

	if _, err := svc.Watch(context.Background(), lecture, playback(3, 100)); err != nil {
		t.Fatal(err)
	}
	if pub.count(events.KindLog) != 1 {
		t.Errorf("log events = %d, want 1", pub.count(events.KindLog))
	}
}

func TestRateChangePublished(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, nil)
	tr := source.NewTrace([]source.Event{{Event: source.KindRateChange, Rate: 1.75}})

	if _, err := svc.Watch(context.Background(), lecture, tr); err != nil {
		t.Fatal(err)
	}
	if pub.count(events.KindRateChanged) != 1 {
		t.Fatalf("kinds = %v", pub.kinds())
	}
	if rc := pub.events[0].(events.RateChanged); rc.Rate != 1.75 || rc.Lecture != lecture {
		t.Errorf("event = %+v", rc)
	}
}

func TestBindRejectsInvalidConfig(t *testing.T) {
	svc := newTestService(nil, nil, WithTrackerConfig(tracker.Config{CompletionThreshold: 2}))
	_, err := svc.Bind(context.Background(), lecture, source.NewPlayer(10))
	if !errors.Is(err, tracker.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if _, err := svc.Bind(context.Background(), lecture, nil); err == nil {
		t.Fatal("nil source accepted")
	}
}

func TestWatchCancelledStillSaves(t *testing.T) {
	st := &memStore{}
	svc := newTestService(nil, st)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Watch(ctx, lecture, playback(5, 100))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(st.saves) != 1 {
		t.Errorf("saves = %d, want 1", len(st.saves))
	}
}

func TestSessionWithPlayer(t *testing.T) {
	pub := &recordingPublisher{}
	st := &memStore{}
	svc := newTestService(pub, st)
	p := source.NewPlayer(60)

	sess, err := svc.Bind(context.Background(), lecture, p)
	if err != nil {
		t.Fatal(err)
	}
	p.Load()
	p.Play()
	for i := 0; i < 8; i++ {
		p.Tick(250 * time.Millisecond)
	}
	if got := sess.Progress().WatchedTime; got != 2 {
		t.Errorf("watched = %v, want 2", got)
	}
	if sess.Position() != 2 || !sess.Gate().Open() {
		t.Errorf("position=%v gate=%+v", sess.Position(), sess.Gate())
	}

	p.ToggleMute()
	p.Tick(time.Second)
	if sess.Gate().Unmuted {
		t.Error("muted sample reported as unmuted")
	}

	first := sess.Close(context.Background())
	second := sess.Close(context.Background())
	if first.Samples != 9 || second.Samples != 9 {
		t.Errorf("samples = %d/%d, want 9", first.Samples, second.Samples)
	}
	if len(st.saves) != 1 {
		t.Errorf("saves = %d, want 1 (close is idempotent)", len(st.saves))
	}

	before := pub.count(events.KindProgress)
	p.Tick(time.Second)
	if pub.count(events.KindProgress) != before {
		t.Error("closed session still publishing")
	}
}
