// Package platform describes how each supported learning site exposes its
// lecture player, transcript and course identifiers.
package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type Platform string

const (
	Coursera Platform = "coursera"
	LinkedIn Platform = "linkedin"
	Generic  Platform = "generic"
)

// UnknownCourse is reported when a URL carries no recognizable course slug.
const UnknownCourse = "unknown"

// Adapter is the per-platform capability set consumed by the watch pipeline.
type Adapter interface {
	Name() Platform
	// VideoSelectors lists CSS selectors for the lecture video, most specific first.
	VideoSelectors() []string
	TranscriptSelectors() []string
	CourseID(u *url.URL) string
	LectureID(u *url.URL) string
	// ParseTimestamp extracts a transcript line's start time in seconds from
	// its timing attribute or, failing that, its text.
	ParseTimestamp(attr, text string) (float64, bool)
	DefaultCourseURL() string
}

var genericVideoSelectors = []string{
	"video",
	`[data-testid*="video"] video`,
	`[class*="player"] video`,
	`[class*="video"] video`,
}

var genericTranscriptSelectors = []string{
	`[data-testid*="transcript"]`,
	`[class*="transcript"]`,
	`[class*="caption"]`,
	`[class*="subtitle"]`,
	`[role="complementary"]`,
}

type site struct {
	name                Platform
	videoSelectors      []string
	transcriptSelectors []string
	coursePath          *regexp.Regexp
	defaultURL          string
}

func (s site) Name() Platform { return s.name }

func (s site) VideoSelectors() []string {
	return append(append([]string{}, s.videoSelectors...), genericVideoSelectors...)
}

func (s site) TranscriptSelectors() []string {
	return append(append([]string{}, s.transcriptSelectors...), genericTranscriptSelectors...)
}

func (s site) CourseID(u *url.URL) string {
	if s.coursePath == nil || u == nil {
		return UnknownCourse
	}
	m := s.coursePath.FindStringSubmatch(u.Path)
	if m == nil {
		return UnknownCourse
	}
	return string(s.name) + ":" + m[1]
}

func (s site) LectureID(u *url.URL) string {
	return lectureID(u)
}

func (s site) ParseTimestamp(attr, text string) (float64, bool) {
	return ParseTimestamp(attr, text)
}

func (s site) DefaultCourseURL() string { return s.defaultURL }

var (
	coursera = site{
		name: Coursera,
		videoSelectors: []string{
			`video[data-testid="lecture-video"]`,
			"video.vjs-tech",
			".video-player video",
			`[data-track-component="lecture_video"] video`,
			".rc-VideoPlayer video",
		},
		transcriptSelectors: []string{
			`[data-testid="transcript-container"]`,
			".rc-Transcript",
			".transcript-container",
			".cc-transcript",
		},
		coursePath: regexp.MustCompile(`/learn/([^/]+)`),
		defaultURL: "https://www.coursera.org/",
	}
	linkedIn = site{
		name: LinkedIn,
		videoSelectors: []string{
			".classroom-media-container video",
			"video.vjs-tech",
			`[data-live-test-classroom-video] video`,
		},
		transcriptSelectors: []string{
			".classroom-transcript",
			`[data-live-test-transcript]`,
		},
		coursePath: regexp.MustCompile(`/learning/([^/]+)`),
		defaultURL: "https://www.linkedin.com/learning/",
	}
	generic = site{
		name:       Generic,
		defaultURL: "https://www.coursera.org/",
	}
)

// ForName returns the adapter registered under name. Unknown names fall back
// to the generic adapter.
func ForName(name string) Adapter {
	switch Platform(strings.ToLower(strings.TrimSpace(name))) {
	case Coursera:
		return coursera
	case LinkedIn:
		return linkedIn
	default:
		return generic
	}
}

// Detect parses a raw lecture URL and selects the adapter for its host.
// URLs without a scheme are treated as https. Hosts that are not a known
// learning platform get the generic adapter.
func Detect(raw string) (Adapter, *url.URL, error) {
	u, err := parseLoose(raw)
	if err != nil {
		return nil, nil, err
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "coursera.org" || strings.HasSuffix(host, ".coursera.org"):
		return coursera, u, nil
	case (host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")) && strings.HasPrefix(u.Path, "/learning"):
		return linkedIn, u, nil
	default:
		return generic, u, nil
	}
}

// CourseKey returns the storage key for a course given either a lecture URL
// or an already-qualified course id such as "coursera:ml".
func CourseKey(s string) string {
	if strings.Contains(s, ":") && !strings.Contains(s, "/") {
		return s
	}
	a, u, err := Detect(s)
	if err != nil {
		return UnknownCourse
	}
	return a.CourseID(u)
}

// DefaultURLForCourse picks a landing page for a course known only by name.
func DefaultURLForCourse(course string) string {
	c := strings.ToLower(course)
	switch {
	case strings.Contains(c, "linkedin"):
		return linkedIn.defaultURL
	default:
		return coursera.defaultURL
	}
}

func parseLoose(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || u.Host == "") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", raw)
	}
	return u, nil
}

// lectureID prefers the fragment, then the last path segment.
func lectureID(u *url.URL) string {
	if u == nil {
		return "lecture-1"
	}
	if u.Fragment != "" {
		return u.Fragment
	}
	if i := strings.LastIndex(u.Path, "/"); i >= 0 && i < len(u.Path)-1 {
		return u.Path[i+1:]
	}
	return "lecture-1"
}
