// Package pipeline binds a progress tracker to a video source and carries its
// results to persistence and subscribers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
	"lecturemate/internal/source"
	"lecturemate/internal/tracker"
)

// DefaultPersistInterval is how often progress is saved while playing.
const DefaultPersistInterval = 10 * time.Second

// Store persists lecture progress.
type Store interface {
	SaveProgress(ctx context.Context, p model.LectureProgress) error
}

// Runner is a video source that plays itself to the end, such as a trace.
type Runner interface {
	tracker.VideoSource
	Run(ctx context.Context) error
}

// Service wires trackers to sources. It never prints; observers receive
// events through the configured Publisher.
type Service struct {
	store        Store
	pub          events.Publisher
	cfg          tracker.Config
	persistEvery time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists progress snapshots.
func WithStore(st Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithPublisher attaches an event publisher (used by TUI and the CLI).
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithTrackerConfig sets the tracker options used for every binding.
func WithTrackerConfig(c tracker.Config) Option {
	return func(s *Service) {
		s.cfg = c
	}
}

// WithPersistInterval sets the minimum time between periodic saves.
func WithPersistInterval(d time.Duration) Option {
	return func(s *Service) {
		s.persistEvery = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a new Service with the provided options.
func NewService(opts ...Option) *Service {
	s := &Service{
		pub:          events.Discard,
		log:          slog.Default(),
		now:          time.Now,
		persistEvery: DefaultPersistInterval,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Session is one tracker bound to one source.
type Session struct {
	svc     *Service
	lecture model.LectureRef
	tracker *tracker.Tracker
	log     *slog.Logger

	mu          sync.Mutex
	samples     int
	credited    int
	position    float64
	completed   bool // set by the tracker callback, consumed after the sample
	lastPersist time.Time
	closed      bool
}

// Bind creates a tracker for lecture and subscribes it, and the session's
// own bookkeeping, to src.
func (s *Service) Bind(ctx context.Context, lecture model.LectureRef, src tracker.VideoSource) (*Session, error) {
	if src == nil {
		return nil, errors.New("pipeline: nil video source")
	}
	sess := &Session{
		svc:         s,
		lecture:     lecture,
		log:         s.log.With("course", lecture.CourseID, "lecture", lecture.LectureID),
		lastPersist: s.now(),
	}

	t, err := tracker.New(src, sess.markCompleted, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	sess.tracker = t

	// Registered after the tracker so it observes the sample's outcome.
	src.OnTimeUpdate(func(smp tracker.Sample) { sess.afterSample(ctx, smp) })

	if rs, ok := src.(source.RateSource); ok {
		rs.OnRateChange(func(rate float64) {
			s.pub.Publish(events.RateChanged{Lecture: lecture, Rate: rate})
		})
	}

	sess.log.DebugContext(ctx, "Tracker bound", "threshold", t.Config().CompletionThreshold)
	return sess, nil
}

func (sess *Session) markCompleted() {
	sess.mu.Lock()
	sess.completed = true
	sess.mu.Unlock()
}

func (sess *Session) afterSample(ctx context.Context, smp tracker.Sample) {
	gate := sess.tracker.LastGate()
	prog := sess.tracker.Progress()
	now := sess.svc.now()

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.samples++
	if gate.Open() {
		sess.credited++
	}
	sess.position = smp.CurrentTime
	justCompleted := sess.completed
	sess.completed = false
	persist := justCompleted || now.Sub(sess.lastPersist) >= sess.svc.persistEvery
	if persist {
		sess.lastPersist = now
	}
	sess.mu.Unlock()

	pub := sess.svc.pub
	pub.Publish(events.ProgressUpdated{Lecture: sess.lecture, Progress: prog, Gate: gate, Position: smp.CurrentTime})

	if persist {
		sess.persist(ctx, prog)
	}
	if justCompleted {
		sess.log.InfoContext(ctx, "Lecture completed", "watched", prog.WatchedTime, "duration", prog.Duration)
		pub.Publish(events.WatchCompleted{Lecture: sess.lecture, Progress: prog})
		pub.Publish(events.NextLectureRequested{Lecture: sess.lecture})
	}
}

func (sess *Session) persist(ctx context.Context, p tracker.Progress) {
	st := sess.svc.store
	if st == nil {
		return
	}
	err := st.SaveProgress(ctx, model.LectureProgress{
		CourseID:      sess.lecture.CourseID,
		LectureID:     sess.lecture.LectureID,
		WatchedTime:   p.WatchedTime,
		Duration:      p.Duration,
		Completed:     p.Completed,
		LastWatchedAt: sess.svc.now().UTC(),
	})
	if err != nil {
		sess.log.WarnContext(ctx, "Failed to save progress", "error", err)
		sess.svc.pub.Publish(events.Log{Lecture: sess.lecture, Line: "save progress: " + err.Error()})
	}
}

// Lecture returns the bound lecture.
func (sess *Session) Lecture() model.LectureRef { return sess.lecture }

func (sess *Session) Progress() tracker.Progress { return sess.tracker.Progress() }

func (sess *Session) Gate() tracker.Gate { return sess.tracker.LastGate() }

// Position returns the playback position of the latest sample.
func (sess *Session) Position() float64 {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.position
}

// Close saves a final snapshot and stops reacting to further samples.
// Calling it more than once is safe.
func (sess *Session) Close(ctx context.Context) Result {
	sess.mu.Lock()
	already := sess.closed
	sess.closed = true
	res := Result{Lecture: sess.lecture, Samples: sess.samples, Credited: sess.credited}
	sess.mu.Unlock()

	res.Progress = sess.tracker.Progress()
	if !already {
		sess.persist(ctx, res.Progress)
	}
	return res
}

// Result summarizes a finished session.
type Result struct {
	Lecture  model.LectureRef
	Progress tracker.Progress
	Samples  int // time updates observed
	Credited int // time updates that passed the counting gate
}

// Watch binds a tracker to r, plays r to the end and closes the session.
// A cancelled context still saves the progress made so far.
func (s *Service) Watch(ctx context.Context, lecture model.LectureRef, r Runner) (Result, error) {
	sess, err := s.Bind(ctx, lecture, r)
	if err != nil {
		return Result{Lecture: lecture}, err
	}
	runErr := r.Run(ctx)
	// The final save must not be skipped because ctx was cancelled.
	res := sess.Close(context.WithoutCancel(ctx))
	if runErr != nil {
		return res, fmt.Errorf("pipeline: play %s: %w", lecture.LectureID, runErr)
	}
	return res, nil
}
