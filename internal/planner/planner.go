// Package planner schedules study sessions and handles the reminders they
// raise.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
	"lecturemate/internal/notify"
	"lecturemate/internal/platform"
	"lecturemate/internal/store"
)

// Store persists study sessions.
type Store interface {
	SaveSession(ctx context.Context, s model.StudySession) error
	Session(ctx context.Context, id string) (model.StudySession, error)
	ListSessions(ctx context.Context, statuses ...model.SessionStatus) ([]model.StudySession, error)
}

// Opener opens a URL for the user.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Button indexes of a study reminder.
const (
	ButtonOpenCourse = 0
	ButtonReschedule = 1
)

// Manager owns the reminders that are currently on screen and the cron
// entries of sessions still to come.
type Manager struct {
	store         Store
	notifier      notify.Notifier
	opener        Opener
	pub           events.Publisher
	log           *slog.Logger
	now           func() time.Time
	rescheduleURL string

	cron *cron.Cron

	mu      sync.Mutex
	active  map[string]model.StudySession
	entries map[string]cron.EntryID
}

type Option func(*Manager)

func WithNotifier(n notify.Notifier) Option { return func(m *Manager) { m.notifier = n } }
func WithOpener(o Opener) Option            { return func(m *Manager) { m.opener = o } }
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.pub = p
		}
	}
}
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithRescheduleURL sets the page opened by the Reschedule button.
func WithRescheduleURL(u string) Option { return func(m *Manager) { m.rescheduleURL = u } }

func NewManager(st Store, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		pub:     events.Discard,
		log:     slog.Default(),
		now:     time.Now,
		cron:    cron.New(),
		active:  map[string]model.StudySession{},
		entries: map[string]cron.EntryID{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.notifier == nil {
		m.notifier = notify.NewLogNotifier(m.log)
	}
	m.log = m.log.With("component", "planner")
	return m
}

// Start runs the reminder scheduler in the background.
func (m *Manager) Start() { m.cron.Start() }

// Stop halts the scheduler and waits for running reminders to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}

// onceAt is a cron schedule that fires a single time.
type onceAt struct{ at time.Time }

func (o onceAt) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}

// Schedule persists s as a scheduled session and arms its reminder. A
// session without an id gets one. Sessions already due fire immediately.
func (m *Manager) Schedule(ctx context.Context, s model.StudySession) (model.StudySession, error) {
	if strings.TrimSpace(s.Title) == "" {
		return model.StudySession{}, errors.New("planner: session title is required")
	}
	if s.ScheduledTime.IsZero() {
		return model.StudySession{}, errors.New("planner: session time is required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Status = model.SessionScheduled
	s.LastUpdated = m.now().UTC()
	if err := m.store.SaveSession(ctx, s); err != nil {
		return model.StudySession{}, err
	}
	m.arm(ctx, s)
	return s, nil
}

func (m *Manager) arm(ctx context.Context, s model.StudySession) {
	if !s.ScheduledTime.After(m.now()) {
		if err := m.Fire(ctx, s.ID); err != nil {
			m.log.ErrorContext(ctx, "Failed to fire overdue session", "session_id", s.ID, "error", err)
		}
		return
	}

	id := s.ID
	entry := m.cron.Schedule(onceAt{at: s.ScheduledTime}, cron.FuncJob(func() {
		if err := m.Fire(context.Background(), id); err != nil {
			m.log.Error("Failed to fire session", "session_id", id, "error", err)
		}
	}))

	m.mu.Lock()
	if old, ok := m.entries[id]; ok {
		m.cron.Remove(old)
	}
	m.entries[id] = entry
	m.mu.Unlock()
	m.log.DebugContext(ctx, "Session armed", "session_id", id, "at", s.ScheduledTime)
}

// Restore re-arms scheduled sessions and re-registers reminders that were
// shown but not acted on, e.g. after a restart.
func (m *Manager) Restore(ctx context.Context) error {
	sessions, err := m.store.ListSessions(ctx, model.SessionScheduled, model.SessionNotified)
	if err != nil {
		return fmt.Errorf("planner: restore: %w", err)
	}
	for _, s := range sessions {
		switch s.Status {
		case model.SessionNotified:
			m.mu.Lock()
			m.active[s.ID] = s
			m.mu.Unlock()
		default:
			m.arm(ctx, s)
		}
	}
	return nil
}

// Fire shows the reminder for a due session. Sessions that are no longer
// scheduled are skipped.
func (m *Manager) Fire(ctx context.Context, id string) error {
	m.mu.Lock()
	if e, ok := m.entries[id]; ok {
		m.cron.Remove(e)
		delete(m.entries, id)
	}
	m.mu.Unlock()

	s, err := m.store.Session(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Status != model.SessionScheduled {
		return nil
	}

	if err := m.notifier.Notify(ctx, notify.ForSession(s)); err != nil {
		return fmt.Errorf("planner: notify %s: %w", id, err)
	}
	s.Status = model.SessionNotified
	s.LastUpdated = m.now().UTC()
	if err := m.store.SaveSession(ctx, s); err != nil {
		return err
	}

	m.mu.Lock()
	m.active[id] = s
	m.mu.Unlock()

	m.pub.Publish(events.SessionDue{Session: s, At: m.now()})
	return nil
}

// Click handles a click on the reminder body: the course is opened.
func (m *Manager) Click(ctx context.Context, id string) error {
	return m.Button(ctx, id, ButtonOpenCourse)
}

// Button handles a reminder button. Unknown reminders are ignored.
func (m *Manager) Button(ctx context.Context, id string, index int) error {
	s, ok := m.take(id)
	if !ok {
		return nil
	}

	switch index {
	case ButtonOpenCourse:
		u := s.URL
		if u == "" {
			u = platform.DefaultURLForCourse(s.Course)
		}
		if err := m.open(ctx, u); err != nil {
			m.putBack(s)
			return err
		}
		return m.setStatus(ctx, s, model.SessionStarted)
	case ButtonReschedule:
		if m.rescheduleURL == "" {
			return nil
		}
		if err := m.open(ctx, m.rescheduleURL); err != nil {
			m.putBack(s)
			return err
		}
		return nil
	default:
		return nil
	}
}

// Dismiss closes a reminder without starting the session.
func (m *Manager) Dismiss(ctx context.Context, id string) error {
	s, ok := m.take(id)
	if !ok {
		return nil
	}
	return m.setStatus(ctx, s, model.SessionDismissed)
}

// Active returns the reminders currently awaiting a response, soonest first.
func (m *Manager) Active() []model.StudySession {
	m.mu.Lock()
	out := make([]model.StudySession, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, s)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}

// Pending reports how many sessions have an armed reminder.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) take(id string) (model.StudySession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	return s, ok
}

// putBack re-activates a reminder whose action failed so it can be answered again.
func (m *Manager) putBack(s model.StudySession) {
	m.mu.Lock()
	m.active[s.ID] = s
	m.mu.Unlock()
}

func (m *Manager) open(ctx context.Context, u string) error {
	if m.opener == nil {
		m.log.InfoContext(ctx, "Open", "url", u)
		return nil
	}
	return m.opener.Open(ctx, u)
}

func (m *Manager) setStatus(ctx context.Context, s model.StudySession, status model.SessionStatus) error {
	s.Status = status
	s.LastUpdated = m.now().UTC()
	return m.store.SaveSession(ctx, s)
}
