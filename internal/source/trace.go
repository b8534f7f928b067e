package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lecturemate/internal/tracker"
)

// Trace event kinds.
const (
	KindTimeUpdate   = "timeupdate"
	KindMetadata     = "metadata"
	KindVisibility   = "visibility"
	KindIntersection = "intersection"
	KindRateChange   = "ratechange"
)

// Event is one line of a recorded playback trace.
type Event struct {
	Event    string   `json:"event,omitempty"` // empty means timeupdate
	T        float64  `json:"t"`
	Duration float64  `json:"duration,omitempty"`
	Rate     float64  `json:"rate,omitempty"`
	Paused   bool     `json:"paused,omitempty"`
	Muted    bool     `json:"muted,omitempty"`
	Visible  *bool    `json:"visible,omitempty"`
	Ratio    *float64 `json:"ratio,omitempty"`
}

// ReadTrace parses a JSON-lines trace. Blank lines and lines starting with
// '#' are skipped. A missing or zero rate is read as 1.
func ReadTrace(r io.Reader) ([]Event, error) {
	var out []Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		if ev.Event == "" {
			ev.Event = KindTimeUpdate
		}
		switch ev.Event {
		case KindTimeUpdate, KindMetadata, KindRateChange:
		case KindVisibility:
			if ev.Visible == nil {
				return nil, fmt.Errorf("trace line %d: visibility event without \"visible\"", line)
			}
		case KindIntersection:
			if ev.Ratio == nil {
				return nil, fmt.Errorf("trace line %d: intersection event without \"ratio\"", line)
			}
		default:
			return nil, fmt.Errorf("trace line %d: unknown event %q", line, ev.Event)
		}
		if ev.Rate == 0 {
			ev.Rate = 1
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return out, nil
}

// ReadTraceFile opens path and parses it with ReadTrace.
func ReadTraceFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrace(f)
}

// Trace replays recorded events as a tracker.VideoSource.
type Trace struct {
	emitter
	events []Event
	pace   float64 // wall seconds per media second; 0 replays instantly
}

type TraceOption func(*Trace)

// WithPace sleeps between time updates so replay runs at speed times real
// time. A speed of 0 disables pacing.
func WithPace(speed float64) TraceOption {
	return func(t *Trace) {
		if speed > 0 {
			t.pace = 1 / speed
		}
	}
}

func NewTrace(events []Event, opts ...TraceOption) *Trace {
	t := &Trace{events: events}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Len reports the number of events in the trace.
func (t *Trace) Len() int { return len(t.events) }

// Run delivers every event in order. It returns ctx.Err() if cancelled.
func (t *Trace) Run(ctx context.Context) error {
	last := -1.0
	for _, ev := range t.events {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch ev.Event {
		case KindMetadata:
			t.emitMetadata(ev.T)
			last = ev.T
		case KindVisibility:
			t.emitVisibility(*ev.Visible)
		case KindIntersection:
			t.emitIntersection(*ev.Ratio)
		case KindRateChange:
			t.emitRateChange(ev.Rate)
		default:
			if t.pace > 0 && last >= 0 && ev.T > last && !ev.Paused {
				wait := time.Duration((ev.T - last) / ev.Rate * t.pace * float64(time.Second))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
			if ev.Visible != nil {
				t.emitVisibility(*ev.Visible)
			}
			if ev.Ratio != nil {
				t.emitIntersection(*ev.Ratio)
			}
			t.emitTimeUpdate(tracker.Sample{
				CurrentTime:  ev.T,
				Duration:     ev.Duration,
				PlaybackRate: ev.Rate,
				Paused:       ev.Paused,
				Muted:        ev.Muted,
			})
			last = ev.T
		}
	}
	return nil
}
