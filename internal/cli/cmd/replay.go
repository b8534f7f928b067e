package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
	"lecturemate/internal/pipeline"
	"lecturemate/internal/source"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace.jsonl...>",
		Short: "Replay recorded player traces through the progress tracker",
		Long:  "Each trace is a JSON-lines file of player events. Traces are replayed " +
			"concurrently (see --jobs) and the resulting progress is saved like a live session.",
		Args: cobra.MinimumNArgs(1),
		RunE: runReplay,
	}
	cmd.Flags().String("course", "", "Lecture URL or course id the traces belong to (default: local:<dir>)")
	cmd.Flags().Float64("pace", 0, "Replay speed relative to real time; 0 replays instantly")
	cmd.Flags().Bool("no-save", false, "Do not persist progress")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	e, err := mustEnv(cmd)
	if err != nil {
		return err
	}
	course, _ := cmd.Flags().GetString("course")
	pace, _ := cmd.Flags().GetFloat64("pace")
	noSave, _ := cmd.Flags().GetBool("no-save")

	bus := events.NewBus()
	unsubscribe := bus.Subscribe(func(ev events.Event) {
		switch v := ev.(type) {
		case events.WatchCompleted:
			e.log.Info("Lecture completed", "course", v.Lecture.CourseID, "lecture", v.Lecture.LectureID)
		case events.Log:
			e.log.Warn(v.Line, "lecture", v.Lecture.LectureID)
		}
	}, events.KindCompleted, events.KindLog)
	defer unsubscribe()

	opts := []pipeline.Option{
		pipeline.WithPublisher(bus),
		pipeline.WithTrackerConfig(e.settings.TrackerConfig()),
		pipeline.WithPersistInterval(e.settings.PersistInterval),
		pipeline.WithLogger(e.log),
	}
	if !noSave {
		st, err := e.store()
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithStore(st))
	}
	svc := pipeline.NewService(opts...)

	results := make([]pipeline.Result, len(args))
	p := pool.New().WithErrors().WithMaxGoroutines(e.settings.Jobs)
	for i, path := range args {
		i, path := i, path
		p.Go(func() error {
			evs, err := source.ReadTraceFile(path)
			if err != nil {
				return err
			}
			lecture := traceLecture(path, course)
			res, err := svc.Watch(cmd.Context(), lecture, source.NewTrace(evs, source.WithPace(pace)))
			results[i] = res
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	runErr := p.Wait()

	for _, res := range results {
		if res.Lecture.LectureID == "" {
			continue
		}
		printResult(cmd, res)
		fmt.Fprintf(cmd.OutOrStdout(), "  %d of %d samples credited\n", res.Credited, res.Samples)
	}
	if runErr != nil {
		return &ExitError{Code: ExitPlaybackError, Err: runErr}
	}
	return nil
}

// traceLecture names the lecture of a trace file after the file itself.
// The course comes from --course or, failing that, the trace's directory.
func traceLecture(path, course string) model.LectureRef {
	base := filepath.Base(path)
	lectureID := strings.TrimSuffix(base, filepath.Ext(base))

	ref := model.LectureRef{Platform: "local", LectureID: lectureID, Title: base}
	switch {
	case strings.Contains(course, "/"):
		if l, err := lectureFromURL(course); err == nil {
			ref.Platform, ref.CourseID, ref.URL = l.Platform, l.CourseID, l.URL
			return ref
		}
	case course != "":
		ref.CourseID = course
		return ref
	}
	ref.CourseID = "local:" + filepath.Base(filepath.Dir(mustAbs(path)))
	return ref
}

func mustAbs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
