package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatClock renders seconds as m:ss. Minutes are not wrapped into hours,
// so a 75 minute lecture reads 75:00. Negative or non-finite input is 0:00.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return strconv.FormatInt(total/60, 10) + ":" + fmt.Sprintf("%02d", total%60)
}

// ParseClock reads "ss", "m:ss" or "h:mm:ss" into seconds.
func ParseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// Percent renders a 0..1 fraction as a percentage with one decimal.
func Percent(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}
