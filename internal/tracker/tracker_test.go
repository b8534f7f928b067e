package tracker

import (
	"errors"
	"math"
	"sync"
	"testing"
)

type fakeSource struct {
	timeUpdate   []func(Sample)
	metadata     []func(float64)
	visibility   []func(bool)
	intersection []func(float64)
}

func (f *fakeSource) OnTimeUpdate(fn func(Sample)) { f.timeUpdate = append(f.timeUpdate, fn) }
func (f *fakeSource) OnMetadata(fn func(float64)) { f.metadata = append(f.metadata, fn) }
func (f *fakeSource) OnVisibilityChange(fn func(bool)) { f.visibility = append(f.visibility, fn) }
func (f *fakeSource) OnIntersection(fn func(ratio float64)) { f.intersection = append(f.intersection, fn) }

func (f *fakeSource) emit(s Sample) {
	for _, fn := range f.timeUpdate {
		fn(s)
	}
}

// newWatching returns a tracker whose visibility and viewport gates are satisfied.
func newWatching(t *testing.T, onComplete func(), cfg Config) *Tracker {
	t.Helper()
	tr, err := New(nil, onComplete, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tr.SetVisible(true)
	tr.SetInViewport(true)
	return tr
}

func playing(at, duration float64) Sample {
	return Sample{CurrentTime: at, Duration: duration, PlaybackRate: 1}
}

func TestNew_SubscribesToSource(t *testing.T) {
	src := &fakeSource{}
	tr, err := New(src, nil, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(src.timeUpdate) != 1 || len(src.metadata) != 1 || len(src.visibility) != 1 || len(src.intersection) != 1 {
		t.Fatalf("expected one subscription per signal, got %+v", src)
	}

	for _, fn := range src.intersection {
		fn(0.75)
	}
	src.emit(playing(1, 100))

	if got := tr.Progress().WatchedTime; got != 1 {
		t.Errorf("WatchedTime = %v, want 1", got)
	}
}

func TestNew_InitialSignals(t *testing.T) {
	tr, err := New(nil, nil, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tr.Observe(playing(1, 100))
	g := tr.LastGate()
	if !g.Visible {
		t.Error("document should start visible")
	}
	if g.InViewport {
		t.Error("viewport should be unknown (false) until first intersection report")
	}
	if tr.Progress().WatchedTime != 0 {
		t.Error("nothing should be credited before the viewport is reported")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "threshold one", cfg: Config{CompletionThreshold: 1}},
		{name: "threshold above one", cfg: Config{CompletionThreshold: 1.2}, wantErr: true},
		{name: "negative threshold", cfg: Config{CompletionThreshold: -0.5}, wantErr: true},
		{name: "rate below one", cfg: Config{MaxCreditedRate: 0.5}, wantErr: true},
		{name: "rate two", cfg: Config{MaxCreditedRate: 2}},
		{name: "viewport NaN", cfg: Config{ViewportIntersectionThreshold: math.NaN()}, wantErr: true},
		{name: "negative delta", cfg: Config{MaxValidDelta: -1}, wantErr: true},
		{name: "infinite delta", cfg: Config{MaxValidDelta: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, nil, tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("New() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	got := Config{MaxValidDelta: 3}.WithDefaults()
	want := DefaultConfig()
	want.MaxValidDelta = 3
	if got != want {
		t.Errorf("WithDefaults() = %+v, want %+v", got, want)
	}
}

func TestObserve_Gate(t *testing.T) {
	tests := []struct {
		name     string
		visible  bool
		viewport bool
		sample   Sample
		want     float64
	}{
		{name: "all conditions hold", visible: true, viewport: true, sample: playing(1, 100), want: 1},
		{name: "paused", visible: true, viewport: true, sample: Sample{CurrentTime: 1, Duration: 100, PlaybackRate: 1, Paused: true}},
		{name: "muted", visible: true, viewport: true, sample: Sample{CurrentTime: 1, Duration: 100, PlaybackRate: 1, Muted: true}},
		{name: "hidden tab", visible: false, viewport: true, sample: playing(1, 100)},
		{name: "out of viewport", visible: true, viewport: false, sample: playing(1, 100)},
		{name: "delta at bound", visible: true, viewport: true, sample: playing(5, 100)},
		{name: "delta just under bound", visible: true, viewport: true, sample: playing(4.5, 100), want: 4.5},
		{name: "zero rate", visible: true, viewport: true, sample: Sample{CurrentTime: 1, Duration: 100}},
		{name: "NaN rate", visible: true, viewport: true, sample: Sample{CurrentTime: 1, Duration: 100, PlaybackRate: math.NaN()}},
		{name: "half speed", visible: true, viewport: true, sample: Sample{CurrentTime: 1, Duration: 100, PlaybackRate: 0.5}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := New(nil, nil, Config{})
			tr.SetVisible(tt.visible)
			tr.SetInViewport(tt.viewport)
			tr.Observe(tt.sample)
			if got := tr.Progress().WatchedTime; got != tt.want {
				t.Errorf("WatchedTime = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObserve_PausedNeverCredits(t *testing.T) {
	tr := newWatching(t, nil, Config{})
	for i := 1; i <= 200; i++ {
		tr.Observe(Sample{CurrentTime: float64(i) * 0.25, Duration: 100, PlaybackRate: 1, Paused: true})
	}
	if got := tr.Progress().WatchedTime; got != 0 {
		t.Errorf("WatchedTime = %v, want 0", got)
	}
}

func TestObserve_SeekImmunity(t *testing.T) {
	tr := newWatching(t, nil, Config{MaxValidDelta: 5})
	tr.Observe(playing(1, 100))
	tr.Observe(playing(11, 100)) // 10s jump
	if got := tr.Progress().WatchedTime; got != 1 {
		t.Fatalf("WatchedTime after seek = %v, want 1", got)
	}
	// The position still advances, so the next small delta is measured from 11.
	tr.Observe(playing(12, 100))
	if got := tr.Progress().WatchedTime; got != 2 {
		t.Errorf("WatchedTime after resume = %v, want 2", got)
	}
}

func TestObserve_BackwardSeekNotCredited(t *testing.T) {
	tr := newWatching(t, nil, Config{})
	tr.Observe(playing(3, 100))
	tr.Observe(playing(1, 100))
	tr.Observe(playing(2, 100))
	if got := tr.Progress().WatchedTime; got != 4 {
		t.Errorf("WatchedTime = %v, want 4", got)
	}
}

func TestObserve_RateCap(t *testing.T) {
	tests := []struct {
		name    string
		maxRate float64
		rate    float64
		want    float64
	}{
		{name: "2x with default cap", rate: 2, want: 1},
		{name: "2x with raised cap still real-time", maxRate: 2, rate: 2, want: 1},
		{name: "1.5x", rate: 1.5, want: 1},
		{name: "0.75x", rate: 0.75, want: 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newWatching(t, nil, Config{MaxCreditedRate: tt.maxRate})
			tr.Observe(Sample{CurrentTime: 1, Duration: 100, PlaybackRate: tt.rate})
			if got := tr.Progress().WatchedTime; got != tt.want {
				t.Errorf("WatchedTime = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObserve_ThresholdFiresOnce(t *testing.T) {
	fired := 0
	firedAt := -1.0
	var current float64
	tr := newWatching(t, func() {
		fired++
		if firedAt < 0 {
			firedAt = current
		}
	}, Config{})

	for i := 1; i <= 120; i++ {
		current = float64(i)
		tr.Observe(playing(current, 100))
		if i < 96 && fired != 0 {
			t.Fatalf("completion fired early at t=%v", current)
		}
	}

	if fired != 1 {
		t.Fatalf("onComplete fired %d times, want 1", fired)
	}
	if firedAt != 96 {
		t.Errorf("fired at t=%v, want 96", firedAt)
	}
	p := tr.Progress()
	if !p.Completed {
		t.Error("Completed = false after firing")
	}
	if p.WatchedTime != 120 {
		t.Errorf("accumulation should continue after completion: WatchedTime = %v", p.WatchedTime)
	}
}

func TestObserve_UnknownDuration(t *testing.T) {
	for _, d := range []float64{0, math.NaN(), math.Inf(1)} {
		fired := false
		tr := newWatching(t, func() { fired = true }, Config{})
		for i := 1; i <= 1000; i++ {
			tr.Observe(playing(float64(i), d))
		}
		p := tr.Progress()
		if fired || p.Completed {
			t.Errorf("duration %v: completion fired", d)
		}
		if p.Completion != 0 || p.Duration != 0 {
			t.Errorf("duration %v: Completion = %v, Duration = %v, want 0", d, p.Completion, p.Duration)
		}
		if p.WatchedTime != 1000 {
			t.Errorf("duration %v: WatchedTime = %v, want 1000", d, p.WatchedTime)
		}
	}
}

func TestObserve_NonFinitePositionIgnored(t *testing.T) {
	tr := newWatching(t, nil, Config{})
	tr.Observe(playing(1, 100))
	tr.Observe(playing(math.NaN(), 100))
	tr.Observe(playing(2, 100))
	if got := tr.Progress().WatchedTime; got != 2 {
		t.Errorf("WatchedTime = %v, want 2", got)
	}
}

func TestObserve_Monotonic(t *testing.T) {
	tr := newWatching(t, nil, Config{})
	positions := []float64{0.5, 1, 0.2, 9, 9.1, math.NaN(), -3, 4, 4.25, 100, 3, 3.5}
	prev := 0.0
	for i, pos := range positions {
		tr.SetVisible(i%4 != 3)
		tr.Observe(Sample{CurrentTime: pos, Duration: 50, PlaybackRate: float64(i%3) + 0.5, Muted: i%5 == 4})
		got := tr.Progress().WatchedTime
		if got < prev || got < 0 {
			t.Fatalf("step %d: WatchedTime went from %v to %v", i, prev, got)
		}
		prev = got
	}
}

func TestSeed(t *testing.T) {
	tr := newWatching(t, nil, Config{})
	tr.Seed(30)
	tr.Observe(playing(31, 100))
	if got := tr.Progress().WatchedTime; got != 1 {
		t.Errorf("WatchedTime = %v, want 1", got)
	}
}

func TestSetIntersectionRatio(t *testing.T) {
	tr, _ := New(nil, nil, Config{ViewportIntersectionThreshold: 0.5})
	tests := []struct {
		ratio float64
		want  bool
	}{
		{0.49, false},
		{0.5, true},
		{1, true},
		{0, false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		tr.SetIntersectionRatio(tt.ratio)
		tr.Observe(playing(0, 100))
		if got := tr.LastGate().InViewport; got != tt.want {
			t.Errorf("ratio %v: InViewport = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestProgress_ConcurrentReads(t *testing.T) {
	tr := newWatching(t, nil, Config{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = tr.Progress()
			tr.SetVisible(true)
		}
	}()
	for i := 1; i <= 500; i++ {
		tr.Observe(playing(float64(i)*0.25, 1000))
	}
	wg.Wait()
	if got := tr.Progress().WatchedTime; got != 125 {
		t.Errorf("WatchedTime = %v, want 125", got)
	}
}
