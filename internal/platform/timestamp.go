package platform

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bracketedClock = regexp.MustCompile(`\[(\d+):(\d+)\]`)
	bareClock      = regexp.MustCompile(`(\d+):(\d+)`)
)

// ParseTimestamp reads a transcript timestamp. attr is a timing attribute
// value in seconds (data-timestamp, data-start, data-time); text is the
// line's visible text, which may carry "[mm:ss]" or "mm:ss".
func ParseTimestamp(attr, text string) (float64, bool) {
	if attr = strings.TrimSpace(attr); attr != "" {
		if v, err := strconv.ParseFloat(attr, 64); err == nil && v >= 0 {
			return v, true
		}
	}
	if m := bracketedClock.FindStringSubmatch(text); m != nil {
		return clock(m[1], m[2]), true
	}
	if m := bareClock.FindStringSubmatch(text); m != nil {
		return clock(m[1], m[2]), true
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil && v >= 0 {
		return v, true
	}
	return 0, false
}

func clock(min, sec string) float64 {
	m, _ := strconv.Atoi(min)
	s, _ := strconv.Atoi(sec)
	return float64(m*60 + s)
}
