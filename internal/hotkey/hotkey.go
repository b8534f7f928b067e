// Package hotkey maps keyboard chords to lecture player actions.
package hotkey

import (
	"fmt"
	"sort"
	"strings"
)

// Action names accepted in the hotkeys configuration map.
const (
	ActionPlayPause    = "playPause"
	ActionSeekForward  = "seekForward"
	ActionSeekBackward = "seekBackward"
	ActionAddNote      = "addNote"
)

// legacyActions maps names used by earlier releases to current actions.
var legacyActions = map[string]string{
	"toggleplay":   ActionPlayPause,
	"skipforward":  ActionSeekForward,
	"skipbackward": ActionSeekBackward,
	"takenote":     ActionAddNote,
}

// SkipSeconds is how far the seek actions move the playhead.
const SkipSeconds = 10.0

// Chord is a key plus modifiers, e.g. Alt+ArrowRight.
type Chord struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	Key   string // normalized: lower-case letter or named key like "arrowright"
}

var keyAliases = map[string]string{
	"right": "arrowright",
	"left":  "arrowleft",
	"up":    "arrowup",
	"down":  "arrowdown",
	"esc":   "escape",
	" ":     "space",
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if a, ok := keyAliases[k]; ok {
		return a
	}
	return k
}

// ParseChord parses strings like "Alt+P", "ctrl+m" or "alt+right".
func ParseChord(s string) (Chord, error) {
	var c Chord
	parts := strings.Split(s, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			c.Key = normalizeKey(p)
			break
		}
		switch strings.ToLower(p) {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt", "option":
			c.Alt = true
		case "shift":
			c.Shift = true
		case "meta", "cmd", "super":
			c.Meta = true
		default:
			return Chord{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
		}
	}
	if c.Key == "" {
		return Chord{}, fmt.Errorf("hotkey %q: missing key", s)
	}
	return c, nil
}

func (c Chord) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("Ctrl+")
	}
	if c.Alt {
		b.WriteString("Alt+")
	}
	if c.Shift {
		b.WriteString("Shift+")
	}
	if c.Meta {
		b.WriteString("Meta+")
	}
	k := c.Key
	switch {
	case strings.HasPrefix(k, "arrow"):
		k = "Arrow" + strings.ToUpper(k[5:6]) + k[6:]
	case len(k) == 1:
		k = strings.ToUpper(k)
	}
	b.WriteString(k)
	return b.String()
}

// Bindings maps chords to action names.
type Bindings map[Chord]string

// DefaultBindings are the bindings used when none are configured.
func DefaultBindings() Bindings {
	return Bindings{
		{Alt: true, Key: "p"}:          ActionPlayPause,
		{Alt: true, Key: "arrowright"}: ActionSeekForward,
		{Alt: true, Key: "arrowleft"}:  ActionSeekBackward,
		{Ctrl: true, Key: "m"}:         ActionAddNote,
	}
}

// ParseBindings builds Bindings from an action -> chord map. Action names
// are matched case-insensitively because configuration loaders lower-case
// map keys. Actions absent from m keep their default chord.
func ParseBindings(m map[string]string) (Bindings, error) {
	known := map[string]string{}
	for k, a := range legacyActions {
		known[k] = a
	}
	for _, a := range []string{ActionPlayPause, ActionSeekForward, ActionSeekBackward, ActionAddNote} {
		known[strings.ToLower(a)] = a
	}

	b := DefaultBindings()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		action, ok := known[strings.ToLower(k)]
		if !ok {
			return nil, fmt.Errorf("hotkey: unknown action %q", k)
		}
		c, err := ParseChord(m[k])
		if err != nil {
			return nil, err
		}
		for old, a := range b {
			if a == action {
				delete(b, old)
			}
		}
		b[c] = action
	}
	return b, nil
}

// ChordFor returns the chord bound to action.
func (b Bindings) ChordFor(action string) (Chord, bool) {
	for c, a := range b {
		if a == action {
			return c, true
		}
	}
	return Chord{}, false
}
