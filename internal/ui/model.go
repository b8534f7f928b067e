package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lecturemate/internal/hotkey"
	"lecturemate/internal/model"
	"lecturemate/internal/notes"
	"lecturemate/internal/pipeline"
	"lecturemate/internal/source"
	"lecturemate/internal/tracker"
	"lecturemate/internal/util/format"
)

// TickInterval is how often the simulated player advances.
const TickInterval = 250 * time.Millisecond

const (
	rateStep = 0.25
	minRate  = 0.25
)

type watchState struct {
	progress  tracker.Progress
	gate      tracker.Gate
	completed bool
	noting    bool
	noteAt    float64
	notes     int
	status    string
	err       error
	logs      []string
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	lecture    model.LectureRef
	player     *source.Player
	session    *pipeline.Session
	notes      *notes.Service
	dispatcher *hotkey.Dispatcher
	bindings   hotkey.Bindings
	maxRate    float64

	st    *watchState
	bar   bubblesprogress.Model
	input textinput.Model

	width, height int
	styles        Styles

	eventCh chan tea.Msg
}

type modelConfig struct {
	lecture  model.LectureRef
	player   *source.Player
	session  *pipeline.Session
	notes    *notes.Service
	bindings hotkey.Bindings
	maxRate  float64
	eventCh  chan tea.Msg
}

func newModel(ctx context.Context, cfg modelConfig) Model {
	c, cancel := context.WithCancel(ctx)
	if cfg.bindings == nil {
		cfg.bindings = hotkey.DefaultBindings()
	}
	if cfg.maxRate < 1 {
		cfg.maxRate = 1
	}
	if cfg.eventCh == nil {
		cfg.eventCh = make(chan tea.Msg, 256)
	}

	in := textinput.New()
	in.Placeholder = "Type a note, enter to save, esc to cancel"
	in.CharLimit = 500
	in.Width = 60

	m := Model{
		ctx:      c,
		cancel:   cancel,
		lecture:  cfg.lecture,
		player:   cfg.player,
		session:  cfg.session,
		notes:    cfg.notes,
		bindings: cfg.bindings,
		maxRate:  cfg.maxRate,
		st:       &watchState{status: "Paused. Press " + chordLabel(cfg.bindings, hotkey.ActionPlayPause) + " to play."},
		bar:      bubblesprogress.New(bubblesprogress.WithDefaultGradient(), bubblesprogress.WithWidth(40)),
		input:    in,
		styles:   defaultStyles(),
		eventCh:  cfg.eventCh,
	}
	m.dispatcher = hotkey.NewDispatcher(cfg.bindings, cfg.player, m.startNote)
	return m
}

// startNote is the take-note action; it opens the note input at the
// current position.
func (m Model) startNote(at float64) {
	m.st.noting = true
	m.st.noteAt = at
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.listenEventsCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.player.Tick(TickInterval)
		m.st.progress = m.session.Progress()
		m.st.gate = m.session.Gate()
		return m, tickCmd()

	// Bus events: keep listening after each one.
	case progressMsg:
		m.st.progress = msg.P.Progress
		m.st.gate = msg.P.Gate
		if msg.P.Progress.Completed {
			m.st.completed = true
		}
		return m, m.listenEventsCmd()
	case completedMsg:
		m.st.completed = true
		m.st.status = "Lecture complete. Press n to continue, q to quit."
		return m, m.listenEventsCmd()
	case rateMsg:
		m.st.status = fmt.Sprintf("Playback rate %.2fx", msg.Rate)
		return m, m.listenEventsCmd()
	case logMsg:
		m.appendLog(msg.Line)
		return m, m.listenEventsCmd()

	case noteSavedMsg:
		m.st.notes++
		m.st.status = "Note saved at " + format.FormatClock(msg.Note.Timestamp)
		return m, nil
	case noteErrMsg:
		m.st.err = msg.Err
		m.st.status = "Note not saved: " + msg.Err.Error()
		return m, nil
	case allDoneMsg:
		return m, tea.Quit
	}

	// Cursor blinks and other component messages.
	if m.st.noting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.st.noting {
		switch k.Type {
		case tea.KeyEsc:
			m.st.noting = false
			m.input.Reset()
			m.input.Blur()
			return m, nil
		case tea.KeyEnter:
			text := m.input.Value()
			at := m.st.noteAt
			m.st.noting = false
			m.input.Reset()
			m.input.Blur()
			return m, m.saveNoteCmd(at, text)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "n":
		if m.st.completed {
			m.cancel()
			return m, tea.Quit
		}
	case "+", "=":
		m.player.SetRate(clampRate(m.player.State().Rate+rateStep, m.maxRate))
		return m, nil
	case "-":
		m.player.SetRate(clampRate(m.player.State().Rate-rateStep, m.maxRate))
		return m, nil
	case "m":
		m.player.ToggleMute()
		return m, nil
	case "v":
		m.player.SetVisible(!m.player.State().Visible)
		return m, nil
	case "o":
		if m.player.State().Ratio > 0 {
			m.player.SetIntersectionRatio(0)
		} else {
			m.player.SetIntersectionRatio(1)
		}
		return m, nil
	}

	chord, ok := chordFromKey(k)
	if !ok {
		return m, nil
	}
	if action := m.dispatcher.Handle(chord, hotkey.Target{}); action == hotkey.ActionAddNote {
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// chordFromKey maps a terminal key to a chord. Terminals send ctrl+m as
// enter, so enter stands in for it.
func chordFromKey(k tea.KeyMsg) (hotkey.Chord, bool) {
	s := k.String()
	if s == "enter" {
		s = "ctrl+m"
	}
	c, err := hotkey.ParseChord(s)
	if err != nil {
		return hotkey.Chord{}, false
	}
	return c, true
}

func clampRate(r, max float64) float64 {
	r = math.Round(r/rateStep) * rateStep
	return math.Max(minRate, math.Min(r, max))
}

func (m Model) saveNoteCmd(at float64, text string) tea.Cmd {
	svc, lecture, ctx := m.notes, m.lecture, m.ctx
	return func() tea.Msg {
		if svc == nil {
			return noteErrMsg{Err: fmt.Errorf("notes are not available")}
		}
		n, err := svc.Add(ctx, lecture, at, "", text)
		if err != nil {
			return noteErrMsg{Err: err}
		}
		return noteSavedMsg{Note: n}
	}
}

func (m Model) appendLog(line string) {
	line = strings.TrimRight(line, "\r\n")
	if len(m.st.logs) >= 5 {
		m.st.logs = m.st.logs[1:]
	}
	m.st.logs = append(m.st.logs, line)
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func chordLabel(b hotkey.Bindings, action string) string {
	if c, ok := b.ChordFor(action); ok {
		return c.String()
	}
	return "?"
}
