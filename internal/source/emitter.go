// Package source provides the video sources that drive a tracker outside a
// browser: a recorded trace replayed from JSON lines and an interactive
// simulated player.
package source

import (
	"sync"

	"lecturemate/internal/tracker"
)

// RateSource is implemented by sources that report playback rate changes.
type RateSource interface {
	OnRateChange(fn func(rate float64))
}

// emitter holds registered callbacks. Emission snapshots the callback list so
// a callback may register further callbacks without deadlocking.
type emitter struct {
	mu           sync.RWMutex
	timeUpdate   []func(tracker.Sample)
	metadata     []func(float64)
	visibility   []func(bool)
	intersection []func(float64)
	rateChange   []func(float64)
}

func (e *emitter) OnTimeUpdate(fn func(tracker.Sample)) {
	e.mu.Lock()
	e.timeUpdate = append(e.timeUpdate, fn)
	e.mu.Unlock()
}

func (e *emitter) OnMetadata(fn func(currentTime float64)) {
	e.mu.Lock()
	e.metadata = append(e.metadata, fn)
	e.mu.Unlock()
}

func (e *emitter) OnVisibilityChange(fn func(visible bool)) {
	e.mu.Lock()
	e.visibility = append(e.visibility, fn)
	e.mu.Unlock()
}

func (e *emitter) OnIntersection(fn func(ratio float64)) {
	e.mu.Lock()
	e.intersection = append(e.intersection, fn)
	e.mu.Unlock()
}

func (e *emitter) OnRateChange(fn func(rate float64)) {
	e.mu.Lock()
	e.rateChange = append(e.rateChange, fn)
	e.mu.Unlock()
}

func (e *emitter) emitTimeUpdate(s tracker.Sample) {
	e.mu.RLock()
	fns := append([]func(tracker.Sample){}, e.timeUpdate...)
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (e *emitter) emitMetadata(pos float64) {
	e.mu.RLock()
	fns := append([]func(float64){}, e.metadata...)
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(pos)
	}
}

func (e *emitter) emitVisibility(v bool) {
	e.mu.RLock()
	fns := append([]func(bool){}, e.visibility...)
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (e *emitter) emitIntersection(r float64) {
	e.mu.RLock()
	fns := append([]func(float64){}, e.intersection...)
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(r)
	}
}

func (e *emitter) emitRateChange(r float64) {
	e.mu.RLock()
	fns := append([]func(float64){}, e.rateChange...)
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(r)
	}
}
