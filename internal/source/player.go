package source

import (
	"math"
	"sync"
	"time"

	"lecturemate/internal/tracker"
)

// PlayerState is a snapshot of a Player.
type PlayerState struct {
	Position float64
	Duration float64
	Rate     float64
	Paused   bool
	Muted    bool
	Visible  bool
	Ratio    float64
	Ended    bool
}

// Player is a simulated lecture player advanced by Tick. Every state change
// that a browser would report is emitted to subscribers, outside the lock.
type Player struct {
	emitter

	mu       sync.Mutex
	pos      float64
	duration float64
	rate     float64
	paused   bool
	muted    bool
	visible  bool
	ratio    float64
}

// NewPlayer returns a paused player at position 0, fully on screen.
func NewPlayer(duration float64) *Player {
	return &Player{
		duration: duration,
		rate:     1,
		paused:   true,
		visible:  true,
		ratio:    1,
	}
}

// Load announces metadata and the initial visibility state.
func (p *Player) Load() {
	p.mu.Lock()
	pos, visible, ratio := p.pos, p.visible, p.ratio
	p.mu.Unlock()

	p.emitMetadata(pos)
	p.emitVisibility(visible)
	p.emitIntersection(ratio)
}

// Tick advances playback by elapsed wall time and emits a time update.
// Paused players emit nothing.
func (p *Player) Tick(elapsed time.Duration) {
	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return
	}
	p.pos += elapsed.Seconds() * p.rate
	ended := p.hasDuration() && p.pos >= p.duration
	if ended {
		p.pos = p.duration
	}
	// The final update still reports playing, like a browser's last
	// timeupdate before "ended".
	s := p.sampleLocked()
	p.paused = ended
	p.mu.Unlock()

	p.emitTimeUpdate(s)
}

func (p *Player) Play()  { p.setPaused(false) }
func (p *Player) Pause() { p.setPaused(true) }

func (p *Player) TogglePause() {
	p.mu.Lock()
	paused := !p.paused
	p.mu.Unlock()
	p.setPaused(paused)
}

func (p *Player) setPaused(paused bool) {
	p.mu.Lock()
	if !paused && p.hasDuration() && p.pos >= p.duration {
		p.pos = 0
	}
	p.paused = paused
	p.mu.Unlock()
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// SeekTo moves the playhead, clamped to [0, duration], and emits a time update.
func (p *Player) SeekTo(t float64) {
	if math.IsNaN(t) {
		return
	}
	p.mu.Lock()
	p.pos = math.Max(0, t)
	if p.hasDuration() {
		p.pos = math.Min(p.pos, p.duration)
	}
	s := p.sampleLocked()
	p.mu.Unlock()

	p.emitTimeUpdate(s)
}

// Seek moves the playhead by delta seconds.
func (p *Player) Seek(delta float64) {
	p.SeekTo(p.CurrentTime() + delta)
}

func (p *Player) ToggleMute() {
	p.mu.Lock()
	p.muted = !p.muted
	p.mu.Unlock()
}

func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
}

// SetRate changes the playback rate. Non-positive rates are ignored.
func (p *Player) SetRate(rate float64) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return
	}
	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()
	p.emitRateChange(rate)
}

func (p *Player) SetVisible(visible bool) {
	p.mu.Lock()
	p.visible = visible
	p.mu.Unlock()
	p.emitVisibility(visible)
}

// SetIntersectionRatio records how much of the player is on screen.
func (p *Player) SetIntersectionRatio(ratio float64) {
	ratio = math.Max(0, math.Min(1, ratio))
	p.mu.Lock()
	p.ratio = ratio
	p.mu.Unlock()
	p.emitIntersection(ratio)
}

func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PlayerState{
		Position: p.pos,
		Duration: p.duration,
		Rate:     p.rate,
		Paused:   p.paused,
		Muted:    p.muted,
		Visible:  p.visible,
		Ratio:    p.ratio,
		Ended:    p.hasDuration() && p.pos >= p.duration,
	}
}

func (p *Player) sampleLocked() tracker.Sample {
	return tracker.Sample{
		CurrentTime:  p.pos,
		Duration:     p.duration,
		PlaybackRate: p.rate,
		Paused:       p.paused,
		Muted:        p.muted,
	}
}

func (p *Player) hasDuration() bool {
	return p.duration > 0 && !math.IsInf(p.duration, 0) && !math.IsNaN(p.duration)
}
