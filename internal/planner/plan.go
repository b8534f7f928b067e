package planner

import (
	"fmt"
	"strings"
	"time"

	"lecturemate/internal/model"
)

const (
	DefaultDailyBudget   = 120 * time.Minute
	DefaultSessionLength = 30 * time.Minute
	DefaultBreak         = 10 * time.Minute
)

// Budget bounds the sessions Plan creates for one day.
type Budget struct {
	Daily         time.Duration
	SessionLength time.Duration
	Break         time.Duration
}

func (b Budget) withDefaults() Budget {
	if b.Daily <= 0 {
		b.Daily = DefaultDailyBudget
	}
	if b.SessionLength <= 0 {
		b.SessionLength = DefaultSessionLength
	}
	if b.Break < 0 {
		b.Break = 0
	}
	return b
}

// Plan splits the daily budget into sessions starting at start, rotating
// through courses. A course given as a URL becomes the session URL.
func Plan(courses []string, start time.Time, b Budget) []model.StudySession {
	b = b.withDefaults()
	var names []string
	for _, c := range courses {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	if len(names) == 0 {
		return nil
	}

	n := int(b.Daily / b.SessionLength)
	out := make([]model.StudySession, 0, n)
	at := start
	for i := 0; i < n; i++ {
		course := names[i%len(names)]
		s := model.StudySession{
			Title:         fmt.Sprintf("Study block %d (%d min)", i+1, int(b.SessionLength.Minutes())),
			Course:        course,
			ScheduledTime: at,
			Status:        model.SessionScheduled,
		}
		if strings.HasPrefix(course, "http://") || strings.HasPrefix(course, "https://") {
			s.URL = course
		}
		out = append(out, s)
		at = at.Add(b.SessionLength + b.Break)
	}
	return out
}
