package hotkey

import "strings"

// Player is the subset of player controls the dispatcher drives.
type Player interface {
	Paused() bool
	Play()
	Pause()
	CurrentTime() float64
	Duration() float64
	SeekTo(t float64)
}

// Target describes the element that has keyboard focus.
type Target struct {
	Tag             string
	ContentEditable bool
}

// Ignored reports whether keystrokes should go to the focused element
// instead of the player.
func (t Target) Ignored() bool {
	if t.ContentEditable {
		return true
	}
	switch strings.ToLower(t.Tag) {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// Dispatcher applies bound actions to a Player.
type Dispatcher struct {
	bindings Bindings
	player   Player
	onNote   func(at float64)
}

// NewDispatcher returns a dispatcher. onNote receives the playhead position
// when the take-note action fires; it may be nil.
func NewDispatcher(b Bindings, p Player, onNote func(at float64)) *Dispatcher {
	if b == nil {
		b = DefaultBindings()
	}
	return &Dispatcher{bindings: b, player: p, onNote: onNote}
}

// Handle runs the action bound to c. It reports the action name, or "" when
// the key was not consumed.
func (d *Dispatcher) Handle(c Chord, target Target) string {
	if target.Ignored() {
		return ""
	}
	c.Key = normalizeKey(c.Key)
	action, ok := d.bindings[c]
	if !ok {
		return ""
	}
	switch action {
	case ActionPlayPause:
		if d.player.Paused() {
			d.player.Play()
		} else {
			d.player.Pause()
		}
	case ActionSeekForward:
		to := d.player.CurrentTime() + SkipSeconds
		if dur := d.player.Duration(); dur > 0 && to > dur {
			to = dur
		}
		d.player.SeekTo(to)
	case ActionSeekBackward:
		to := d.player.CurrentTime() - SkipSeconds
		if to < 0 {
			to = 0
		}
		d.player.SeekTo(to)
	case ActionAddNote:
		if d.onNote != nil {
			d.onNote(d.player.CurrentTime())
		}
	}
	return action
}

// HandleKey parses a chord string such as "alt+right" and handles it with no
// focused element.
func (d *Dispatcher) HandleKey(s string) string {
	c, err := ParseChord(s)
	if err != nil {
		return ""
	}
	return d.Handle(c, Target{})
}
