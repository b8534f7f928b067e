// Package tracker decides how much of a lecture video has actually been
// watched and signals completion once a configurable fraction of it has.
//
// A Tracker is advanced only by playback samples, delivered serially by a
// VideoSource. Visibility and viewport signals arrive independently and are
// read as last-known values when a sample is evaluated.
package tracker

import (
	"math"
	"sync"
	"sync/atomic"
)

// Sample is one playback observation, emitted on every time update.
type Sample struct {
	CurrentTime  float64 // seconds
	Duration     float64 // seconds; 0, NaN or ±Inf when unknown
	PlaybackRate float64
	Paused       bool
	Muted        bool
}

// VideoSource is the capability a host must provide to drive a Tracker.
// Each On* method registers a callback; sources deliver time updates serially.
type VideoSource interface {
	OnTimeUpdate(fn func(Sample))
	OnMetadata(fn func(currentTime float64))
	OnVisibilityChange(fn func(visible bool))
	OnIntersection(fn func(ratio float64))
}

// Gate is the outcome of the counting gate for the most recent sample.
type Gate struct {
	DeltaValid bool
	Visible    bool
	InViewport bool
	Unmuted    bool
	Playing    bool
}

// Open reports whether every condition held, i.e. the delta was credited
// (subject to a usable playback rate).
func (g Gate) Open() bool {
	return g.DeltaValid && g.Visible && g.InViewport && g.Unmuted && g.Playing
}

// Progress is a point-in-time snapshot of a Tracker.
type Progress struct {
	WatchedTime float64 `json:"watchedTime"`
	Duration    float64 `json:"duration"`   // 0 when unknown
	Completion  float64 `json:"completion"` // WatchedTime/Duration, 0 when duration unknown
	Completed   bool    `json:"completed"`
}

// Tracker accumulates credited watch time for a single video.
type Tracker struct {
	cfg        Config
	onComplete func()

	mu             sync.RWMutex
	watched        float64
	lastSampleTime float64
	duration       float64
	completed      bool
	gate           Gate

	visible    atomic.Bool
	inViewport atomic.Bool
}

// New creates a Tracker and, when src is non-nil, subscribes it to src.
// onComplete is invoked at most once, synchronously from the sample that
// crosses the completion threshold.
func New(src VideoSource, onComplete func(), cfg Config) (*Tracker, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Tracker{cfg: cfg, onComplete: onComplete}
	t.visible.Store(true)

	if src != nil {
		src.OnTimeUpdate(t.Observe)
		src.OnMetadata(t.Seed)
		src.OnVisibilityChange(t.SetVisible)
		src.OnIntersection(t.SetIntersectionRatio)
	}
	return t, nil
}

// Config returns the effective configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// SetVisible records the latest document visibility.
func (t *Tracker) SetVisible(visible bool) {
	t.visible.Store(visible)
}

// SetInViewport records the latest viewport state directly.
func (t *Tracker) SetInViewport(in bool) {
	t.inViewport.Store(in)
}

// SetIntersectionRatio records the latest intersection ratio reported for
// the video element, compared against ViewportIntersectionThreshold.
func (t *Tracker) SetIntersectionRatio(ratio float64) {
	t.inViewport.Store(ratio >= t.cfg.ViewportIntersectionThreshold)
}

// Seed resets the reference position without crediting anything. Sources
// call it once metadata has loaded.
func (t *Tracker) Seed(currentTime float64) {
	if !finite(currentTime) {
		return
	}
	t.mu.Lock()
	t.lastSampleTime = currentTime
	t.mu.Unlock()
}

// Observe runs the sampling step for s.
func (t *Tracker) Observe(s Sample) {
	// A NaN position would poison every later delta.
	if !finite(s.CurrentTime) {
		return
	}

	t.mu.Lock()
	dt := s.CurrentTime - t.lastSampleTime
	gate := Gate{
		DeltaValid: dt > 0 && dt < t.cfg.MaxValidDelta,
		Visible:    t.visible.Load(),
		InViewport: t.inViewport.Load(),
		Unmuted:    !s.Muted,
		Playing:    !s.Paused,
	}
	if gate.Open() {
		t.watched += dt * creditedRate(s.PlaybackRate, t.cfg.MaxCreditedRate)
	}
	t.gate = gate
	t.lastSampleTime = s.CurrentTime
	t.duration = s.Duration

	fire := false
	if !t.completed && knownDuration(s.Duration) && t.watched >= t.cfg.CompletionThreshold*s.Duration {
		t.completed = true
		fire = true
	}
	t.mu.Unlock()

	if fire && t.onComplete != nil {
		t.onComplete()
	}
}

// Progress returns a snapshot. It is safe to call from any goroutine.
func (t *Tracker) Progress() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p := Progress{WatchedTime: t.watched, Completed: t.completed}
	if knownDuration(t.duration) {
		p.Duration = t.duration
		p.Completion = t.watched / t.duration
	}
	return p
}

// LastGate returns the gate evaluated for the most recent sample.
func (t *Tracker) LastGate() Gate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gate
}

// creditedRate caps the rate at maxRate and then at real-time pace, so
// playing faster than 1x never credits more than one second per second.
func creditedRate(rate, maxRate float64) float64 {
	if !finite(rate) || rate <= 0 {
		return 0
	}
	return math.Min(math.Min(rate, maxRate), 1.0)
}

func knownDuration(d float64) bool {
	return finite(d) && d > 0
}
