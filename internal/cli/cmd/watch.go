package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
	"lecturemate/internal/notes"
	"lecturemate/internal/pipeline"
	"lecturemate/internal/platform"
	"lecturemate/internal/ui"
	"lecturemate/internal/util/format"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <lecture-url>",
		Short: "Watch a lecture in the terminal player and track progress",
		Long:  "Plays a simulated lecture of the given length. Watch time only counts " +
			"while the player is playing, unmuted, visible and in the viewport.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE:        runWatch,
	}
	cmd.Flags().String("duration", "10:00", "Lecture length (ss, m:ss or h:mm:ss)")
	cmd.Flags().String("title", "", "Lecture title shown in the header")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !isTerminal() {
		return &ExitError{Code: ExitCLIError, Err: errors.New("watch needs an interactive terminal; use 'lecturemate replay' for recorded traces")}
	}
	e, st, err := storeFor(cmd)
	if err != nil {
		return err
	}

	lecture, err := lectureFromURL(args[0])
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if title, _ := cmd.Flags().GetString("title"); title != "" {
		lecture.Title = title
	}
	rawDur, _ := cmd.Flags().GetString("duration")
	duration, err := format.ParseClock(rawDur)
	if err != nil || duration <= 0 {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid --duration %q", rawDur)}
	}

	bindings, err := e.settings.Bindings()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	bus := events.NewBus()
	svc := pipeline.NewService(
		pipeline.WithStore(st),
		pipeline.WithPublisher(bus),
		pipeline.WithTrackerConfig(e.settings.TrackerConfig()),
		pipeline.WithPersistInterval(e.settings.PersistInterval),
		pipeline.WithLogger(e.log),
	)

	res, err := ui.Run(cmd.Context(), ui.Options{
		Lecture:  lecture,
		Duration: duration,
		Service:  svc,
		Bus:      bus,
		Notes:    notes.NewService(st, bus),
		Bindings: bindings,
		MaxRate:  e.settings.MaxPlaybackRate,
	})
	if err != nil {
		return &ExitError{Code: ExitPlaybackError, Err: err}
	}
	printResult(cmd, res)
	return nil
}

// lectureFromURL resolves the platform, course and lecture of a lecture URL.
func lectureFromURL(raw string) (model.LectureRef, error) {
	a, u, err := platform.Detect(raw)
	if err != nil {
		return model.LectureRef{}, err
	}
	return model.LectureRef{
		Platform:  string(a.Name()),
		CourseID:  a.CourseID(u),
		LectureID: a.LectureID(u),
		URL:       u.String(),
	}, nil
}

func printResult(cmd *cobra.Command, res pipeline.Result) {
	p := res.Progress
	status := "in progress"
	if p.Completed {
		status = "completed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s/%s: watched %s of %s (%s), %s\n",
		res.Lecture.CourseID, res.Lecture.LectureID,
		format.FormatClock(p.WatchedTime), format.FormatClock(p.Duration),
		format.Percent(p.Completion), status)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
