package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"lecturemate/internal/events"
	"lecturemate/internal/hotkey"
	"lecturemate/internal/model"
	"lecturemate/internal/notes"
	"lecturemate/internal/pipeline"
	"lecturemate/internal/source"
)

// Options configures an interactive watch session.
type Options struct {
	Lecture  model.LectureRef
	Duration float64 // seconds
	Service  *pipeline.Service
	Bus      *events.Bus // the bus Service and Notes publish to
	Notes    *notes.Service
	Bindings hotkey.Bindings
	MaxRate  float64
}

// Run plays a simulated lecture in the terminal until the user quits and
// returns the session summary.
func Run(ctx context.Context, opts Options) (pipeline.Result, error) {
	if opts.Service == nil || opts.Bus == nil {
		return pipeline.Result{}, errors.New("ui: service and bus are required")
	}

	eventCh := make(chan tea.Msg, 256)
	unsubscribe := opts.Bus.Subscribe(teaPublisher{ch: eventCh}.Publish)
	defer unsubscribe()

	player := source.NewPlayer(opts.Duration)
	sess, err := opts.Service.Bind(ctx, opts.Lecture, player)
	if err != nil {
		return pipeline.Result{}, err
	}
	player.Load()

	m := newModel(ctx, modelConfig{
		lecture:  opts.Lecture,
		player:   player,
		session:  sess,
		notes:    opts.Notes,
		bindings: opts.Bindings,
		maxRate:  opts.MaxRate,
		eventCh:  eventCh,
	})
	prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, runErr := prog.Run()

	res := sess.Close(context.WithoutCancel(ctx))
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return res, runErr
	}
	return res, nil
}
