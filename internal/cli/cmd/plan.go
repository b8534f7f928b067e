package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lecturemate/internal/events"
	"lecturemate/internal/model"
	"lecturemate/internal/notify"
	"lecturemate/internal/planner"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Schedule study sessions and run their reminders",
	}
	cmd.AddCommand(newPlanAddCmd(), newPlanListCmd(), newPlanAutoCmd(), newPlanRunCmd())
	return cmd
}

// newManager builds a reminder manager over the env's store. Only managers
// that show reminders (n != nil) get a URL opener; without a browser helper,
// course URLs are logged instead of opened.
func newManager(cmd *cobra.Command, e *env, n notify.Notifier, pub events.Publisher) (*planner.Manager, error) {
	st, err := e.store()
	if err != nil {
		return nil, err
	}
	opts := []planner.Option{
		planner.WithLogger(e.log),
		planner.WithRescheduleURL(e.settings.Planner.RescheduleURL),
	}
	if pub != nil {
		opts = append(opts, planner.WithPublisher(pub))
	}
	if n != nil {
		opts = append(opts, planner.WithNotifier(n))
		if o, err := planner.NewSystemOpener(e.settings.Opener); err == nil {
			opts = append(opts, planner.WithOpener(o))
		} else {
			e.log.WarnContext(cmd.Context(), "No URL opener found, course links will only be logged", "error", err)
		}
	}
	return planner.NewManager(st, opts...), nil
}

func newPlanAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Schedule one study session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			rawAt, _ := cmd.Flags().GetString("at")
			at, err := parseWhen(rawAt, time.Now())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if !at.After(time.Now()) {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("--at %q is in the past", rawAt)}
			}
			course, _ := cmd.Flags().GetString("course")
			url, _ := cmd.Flags().GetString("url")
			if course == "" && url != "" {
				course = courseArg(url)
			}

			m, err := newManager(cmd, e, nil, nil)
			if err != nil {
				return err
			}
			s, err := m.Schedule(cmd.Context(), model.StudySession{
				Title:         strings.Join(args, " "),
				Course:        course,
				URL:           url,
				ScheduledTime: at,
			})
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s for %s (%s)\n", s.Title, s.ScheduledTime.Local().Format(timeLayout), s.ID)
			return nil
		},
	}
	cmd.Flags().String("at", "", "When: RFC3339, \"2006-01-02 15:04\", \"15:04\" or a delay like +45m")
	cmd.Flags().String("course", "", "Course name or id")
	cmd.Flags().String("url", "", "Page to open when the session starts")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newPlanListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List study sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			var statuses []model.SessionStatus
			raw, _ := cmd.Flags().GetStringSlice("status")
			for _, s := range raw {
				statuses = append(statuses, model.SessionStatus(strings.ToLower(s)))
			}
			sessions, err := st.ListSessions(cmd.Context(), statuses...)
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No study sessions.")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintf(out, "%s  %-10s %-30s %s\n", s.ScheduledTime.Local().Format(timeLayout), s.Status, s.Title, s.Course)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("status", nil, "Only these statuses (scheduled, notified, started, dismissed)")
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func newPlanAutoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto <course...>",
		Short: "Split the daily study budget into sessions across courses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			rawStart, _ := cmd.Flags().GetString("start")
			start, err := parseWhen(rawStart, time.Now())
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			daily, session, brk := e.settings.Budget()
			plan := planner.Plan(args, start, planner.Budget{Daily: daily, SessionLength: session, Break: brk})

			out := cmd.OutOrStdout()
			if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
				for _, s := range plan {
					fmt.Fprintf(out, "%s  %-30s %s\n", s.ScheduledTime.Local().Format(timeLayout), s.Title, s.Course)
				}
				return nil
			}

			m, err := newManager(cmd, e, nil, nil)
			if err != nil {
				return err
			}
			for _, s := range plan {
				saved, err := m.Schedule(cmd.Context(), s)
				if err != nil {
					return &ExitError{Code: ExitStoreError, Err: err}
				}
				fmt.Fprintf(out, "Scheduled %s at %s\n", saved.Title, saved.ScheduledTime.Local().Format(timeLayout))
			}
			return nil
		},
	}
	cmd.Flags().String("start", "+5m", "First session start (same formats as plan add --at)")
	cmd.Flags().Bool("dry-run", false, "Show the plan without saving it")
	return cmd
}

func newPlanRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Show study reminders as they come due",
		Long:  "Runs in the foreground. When a reminder is shown, type 0 to open the course, " +
			"1 to reschedule or d to dismiss. The oldest open reminder is answered first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			m, err := newManager(cmd, e, notify.NewMulti(notify.NewLogNotifier(e.log), notify.NewTerminalNotifier(out)), nil)
			if err != nil {
				return err
			}
			if err := m.Restore(cmd.Context()); err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			m.Start()
			defer m.Stop()
			fmt.Fprintf(out, "Waiting for %d reminder(s). Ctrl+C to stop.\n", m.Pending())

			go answerReminders(cmd, m, cmd.InOrStdin())
			<-cmd.Context().Done()
			return nil
		},
	}
}

// answerReminders maps typed answers onto the oldest open reminder.
func answerReminders(cmd *cobra.Command, m *planner.Manager, in io.Reader) {
	ctx := cmd.Context()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		active := m.Active()
		if len(active) == 0 {
			continue
		}
		id := active[0].ID
		var err error
		switch answer := strings.TrimSpace(strings.ToLower(sc.Text())); answer {
		case "d", "dismiss":
			err = m.Dismiss(ctx, id)
		case "":
			continue
		default:
			idx, convErr := strconv.Atoi(answer)
			if convErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "answer 0, 1 or d")
				continue
			}
			err = m.Button(ctx, id, idx)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}
}

const timeLayout = "2006-01-02 15:04"

// parseWhen reads an absolute time or a delay relative to now. A bare
// clock time that has already passed today means tomorrow.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil || d < 0 {
			return time.Time{}, fmt.Errorf("invalid delay %q", s)
		}
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(timeLayout, s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
