package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lecturemate/internal/events"
	"lecturemate/internal/notes"
	"lecturemate/internal/platform"
	"lecturemate/internal/store"
	"lecturemate/internal/util/format"
)

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Add, list and delete timestamped lecture notes",
	}
	cmd.AddCommand(newNotesAddCmd(), newNotesListCmd(), newNotesDeleteCmd())
	return cmd
}

func newNotesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <lecture-url> <timestamp> <text...>",
		Short: "Save a note at a playback position",
		Long:  "The timestamp accepts seconds, m:ss, h:mm:ss or a transcript cue such as [12:34].",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			lecture, err := lectureFromURL(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			at, err := parseNoteTimestamp(lecture.Platform, args[1])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			transcript, _ := cmd.Flags().GetString("transcript")

			bus := events.NewBus()
			bus.Subscribe(func(ev events.Event) {
				n := ev.(events.NoteSaved).Note
				e.log.Debug("Note saved", "id", n.ID, "course", n.CourseID, "lecture", n.LectureID)
			}, events.KindNoteSaved)

			n, err := notes.NewService(st, bus).Add(cmd.Context(), lecture, at, transcript, strings.Join(args[2:], " "))
			if errors.Is(err, notes.ErrEmptyNote) {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved note %s at %s\n", n.ID, format.FormatClock(n.Timestamp))
			return nil
		},
	}
	cmd.Flags().String("transcript", "", "Transcript text near the timestamp")
	return cmd
}

// parseNoteTimestamp reads a clock value or a transcript cue.
func parseNoteTimestamp(platformName, s string) (float64, error) {
	if v, err := format.ParseClock(s); err == nil {
		return v, nil
	}
	if v, ok := platform.ForName(platformName).ParseTimestamp("", s); ok {
		return v, nil
	}
	return 0, fmt.Errorf("invalid timestamp %q", s)
}

func newNotesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <course-or-lecture-url>",
		Short: "List notes for a course, or for one lecture when given a lecture URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			course, lectureID := args[0], ""
			if strings.Contains(args[0], "/") {
				l, err := lectureFromURL(args[0])
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				course = l.CourseID
				if all, _ := cmd.Flags().GetBool("all"); !all {
					lectureID = l.LectureID
				}
			}

			list, err := notes.NewService(st, nil).List(cmd.Context(), course, lectureID)
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintf(out, "No notes for %s.\n", course)
				return nil
			}
			last := ""
			for _, n := range list {
				if n.LectureID != last {
					fmt.Fprintf(out, "%s\n", n.LectureID)
					last = n.LectureID
				}
				fmt.Fprintf(out, "  [%s] %s\n", format.FormatClock(n.Timestamp), n.Text)
				if n.TranscriptText != "" {
					fmt.Fprintf(out, "         %q\n", n.TranscriptText)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	cmd.Flags().Bool("all", false, "With a lecture URL, list notes of the whole course")
	return cmd
}

func newNotesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			if err := st.DeleteNote(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("note %s not found", args[0])}
				}
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
			return nil
		},
	}
}
