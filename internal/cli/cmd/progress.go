package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lecturemate/internal/model"
	"lecturemate/internal/util/format"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress [course]",
		Short: "Show watch progress for all courses or one course",
		Long:  "The course may be given as a lecture URL or as a course id such as coursera:machine-learning.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			var courses []string
			if len(args) == 1 {
				courses = []string{courseArg(args[0])}
			} else if courses, err = st.Courses(cmd.Context()); err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}

			all := map[string][]model.LectureProgress{}
			for _, c := range courses {
				rows, err := st.CourseProgress(cmd.Context(), c)
				if err != nil {
					return &ExitError{Code: ExitStoreError, Err: err}
				}
				all[c] = rows
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}

			if len(courses) == 0 {
				fmt.Fprintln(out, "No progress recorded yet.")
				return nil
			}
			for _, c := range courses {
				rows := all[c]
				done := 0
				for _, r := range rows {
					if r.Completed {
						done++
					}
				}
				fmt.Fprintf(out, "%s  (%d/%d lectures completed)\n", c, done, len(rows))
				for _, r := range rows {
					mark := " "
					if r.Completed {
						mark = "✓"
					}
					completion := 0.0
					if r.Duration > 0 {
						completion = r.WatchedTime / r.Duration
					}
					fmt.Fprintf(out, "  %s %-32s %7s / %-7s %6s  %s\n", mark, r.LectureID,
						format.FormatClock(r.WatchedTime), format.FormatClock(r.Duration),
						format.Percent(completion), r.LastWatchedAt.Local().Format("2006-01-02 15:04"))
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

// courseArg accepts a lecture URL, a qualified course id or a bare course
// slug, which is taken as-is.
func courseArg(s string) string {
	if strings.Contains(s, "/") {
		if l, err := lectureFromURL(s); err == nil {
			return l.CourseID
		}
	}
	return s
}
