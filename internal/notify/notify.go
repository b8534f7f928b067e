// Package notify delivers study reminders to the user.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"lecturemate/internal/model"
)

// Button labels of a study reminder, by index.
const (
	ButtonOpenCourse = "Open Course"
	ButtonReschedule = "Reschedule"
)

type Notification struct {
	ID                 string
	Title              string
	Message            string
	Buttons            []string
	RequireInteraction bool
}

// ForSession builds the reminder shown when a study session is due.
func ForSession(s model.StudySession) Notification {
	return Notification{
		ID:                 s.ID,
		Title:              "📚 Study Time!",
		Message:            fmt.Sprintf("Time for: %s\nCourse: %s", s.Title, s.Course),
		Buttons:            []string{ButtonOpenCourse, ButtonReschedule},
		RequireInteraction: true,
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*TerminalNotifier)(nil)
	_ Notifier = (*Multi)(nil)
)

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.log.InfoContext(ctx, "Study reminder",
		"id", n.ID,
		"title", n.Title,
		"message", strings.ReplaceAll(n.Message, "\n", " | "),
	)
	return nil
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	buttonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

// TerminalNotifier renders notifications as a bordered box on w.
type TerminalNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{w: w}
}

func (t *TerminalNotifier) Notify(_ context.Context, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, Render(n))
	return err
}

// Render formats n the way TerminalNotifier prints it.
func Render(n Notification) string {
	lines := []string{titleStyle.Render(n.Title), n.Message}
	if len(n.Buttons) > 0 {
		btns := make([]string, len(n.Buttons))
		for i, b := range n.Buttons {
			btns[i] = buttonStyle.Render(fmt.Sprintf("[%d] %s", i, b))
		}
		lines = append(lines, strings.Join(btns, "  "))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Multi fans out to every notifier. Failures are logged, not returned.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, n Notification) error {
	for _, nt := range m.notifiers {
		if err := nt.Notify(ctx, n); err != nil {
			slog.ErrorContext(ctx, "multi-notifier: notification failed", "id", n.ID, "error", err)
		}
	}
	return nil
}
