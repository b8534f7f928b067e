// Package quiz builds placeholder fill-in-the-blank questions from a lecture
// transcript.
package quiz

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultQuestions = 5
	blank            = "____"
	minSentenceLen   = 10
	minWords         = 6
)

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation"`
}

// Generate looks at the first n sentences longer than ten characters and
// turns each one with at least six words into a cloze question, so it can
// return fewer than n. The middle word is blanked out and is always the first
// option.
func Generate(transcript string, n int) []Question {
	if n <= 0 {
		n = DefaultQuestions
	}
	var candidates []string
	for _, s := range sentenceEnd.Split(transcript, -1) {
		if s = strings.TrimSpace(s); len(s) > minSentenceLen {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	var out []Question
	for _, s := range candidates {
		words := strings.Fields(s)
		if len(words) < minWords {
			continue
		}
		mid := len(words) / 2
		key := words[mid]
		words[mid] = blank
		out = append(out, Question{
			Question:    strings.Join(words, " ") + "?",
			Options:     []string{key, "Option B", "Option C", "Option D"},
			Correct:     0,
			Explanation: fmt.Sprintf("The correct answer is %q", key),
		})
	}
	return out
}
