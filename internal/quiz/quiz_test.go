package quiz

import "testing"

func TestGenerate(t *testing.T) {
	transcript := "Short one. Gradient descent updates the weights each step! " +
		"Too few words here? The learning rate controls how far we move. Done"

	qs := Generate(transcript, 5)
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2: %+v", len(qs), qs)
	}

	q := qs[0]
	if q.Question != "Gradient descent updates ____ weights each step?" {
		t.Errorf("question = %q", q.Question)
	}
	if q.Options[0] != "the" || q.Correct != 0 || len(q.Options) != 4 {
		t.Errorf("options = %v correct = %d", q.Options, q.Correct)
	}
	if q.Explanation != `The correct answer is "the"` {
		t.Errorf("explanation = %q", q.Explanation)
	}
	if qs[1].Options[0] != "how" {
		t.Errorf("second key = %q, want %q", qs[1].Options[0], "how")
	}
}

func TestGenerateLimit(t *testing.T) {
	s := "one two three four five six seven. "
	transcript := s + s + s
	if got := len(Generate(transcript, 2)); got != 2 {
		t.Errorf("len = %d, want 2", got)
	}
	if got := len(Generate(transcript, 0)); got != 3 {
		t.Errorf("default limit len = %d, want 3", got)
	}
	if got := len(Generate("", 3)); got != 0 {
		t.Errorf("empty transcript len = %d", got)
	}
}

func TestGenerateDoesNotBackfill(t *testing.T) {
	transcript := "Too few words here. " +
		"Gradient descent updates the weights each step. " +
		"The learning rate controls how far we move."
	qs := Generate(transcript, 2)
	if len(qs) != 1 {
		t.Fatalf("got %d questions, want 1: %+v", len(qs), qs)
	}
	if qs[0].Options[0] != "the" {
		t.Errorf("key = %q, want %q", qs[0].Options[0], "the")
	}
}
