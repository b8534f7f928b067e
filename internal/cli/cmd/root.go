package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lecturemate/internal/config"
	"lecturemate/internal/dirs"
	"lecturemate/internal/logging"
	"lecturemate/internal/store"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitStoreError    = 3
	ExitPlaybackError = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// annotationTUI marks commands that own the terminal; their logs go to a
// file instead of stderr.
const annotationTUI = "tui"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lecturemate",
		Short: "Study companion for online lecture videos",
		Long:  "LectureMate tracks how much of each lecture you actually watched, " +
			"takes timestamped notes, schedules study reminders and turns transcripts into quick quizzes.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupEnv,
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if env := envFrom(cmd); env != nil {
				env.close()
			}
		},
	}

	bindPersistentFlags(root.PersistentFlags())

	root.AddCommand(newWatchCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newProgressCmd())
	root.AddCommand(newNotesCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newQuizCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// bindPersistentFlags declares the flags every subcommand inherits. config.Init
// binds them to their settings keys.
func bindPersistentFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (default: config.yaml in the app config dir)")
	fs.String("db-path", "", "SQLite database path")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-file", "", "Also write logs to this file (rotated)")
	fs.Int("jobs", 2, "Max concurrent replays")
	fs.BoolP("verbose", "v", false, "Debug logging")
}

// Execute runs the CLI and returns the process exit code. Failures are
// printed to stderr and, once logging is set up, recorded in the log.
func Execute(ctx context.Context) int {
	return execute(ctx, newRootCmd())
}

func execute(ctx context.Context, root *cobra.Command) int {
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}

	code := ExitCLIError
	var ee *ExitError
	if errors.As(err, &ee) {
		code = ee.Code
	}
	// PersistentPostRun is skipped when RunE fails.
	if e := envFrom(cmd); e != nil {
		e.log.Error("Command failed", "command", cmd.CommandPath(), "exit_code", code, "error", err)
		e.close()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(root.ErrOrStderr(), "%s: %s\n", root.Name(), msg)
	}
	return code
}

type ctxKey string

const envKey ctxKey = "env"

// env is the per-invocation state shared by subcommands.
type env struct {
	settings config.Settings
	log      *slog.Logger
	logClose io.Closer
	st       *store.Store
}

func envFrom(cmd *cobra.Command) *env {
	if cmd == nil {
		return nil
	}
	if ctx := cmd.Context(); ctx != nil {
		if e, ok := ctx.Value(envKey).(*env); ok {
			return e
		}
	}
	return nil
}

func setupEnv(cmd *cobra.Command, _ []string) error {
	if err := config.Init(cmd.Root()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	e := &env{}
	// Settings saved with `settings set` sit under the config file, env and flags.
	if path := viper.GetString("db_path"); path != "" {
		if _, err := os.Stat(path); err == nil {
			st, err := store.Open(path, store.Options{})
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			e.st = st
			stored, err := st.Settings(cmd.Context())
			if err != nil {
				_ = st.Close()
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			config.ApplyStored(viper.GetViper(), stored)
		}
	}

	s, err := config.Load()
	if err != nil {
		e.close()
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if getPersistentBool(cmd, "verbose", false) {
		s.Log.Level = "debug"
	}
	e.settings = s

	var console io.Writer = os.Stderr
	if cmd.Annotations[annotationTUI] == "true" {
		console = nil
		if s.Log.File == "" {
			if l, err := dirs.Resolve(); err == nil {
				s.Log.File = l.LogPath()
			}
		}
	}
	e.log, e.logClose = logging.Setup(s.Log, console)
	if e.st != nil {
		e.st.SetLogger(e.log)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), envKey, e))
	return nil
}

// store opens the database on first use.
func (e *env) store() (*store.Store, error) {
	if e.st != nil {
		return e.st, nil
	}
	st, err := store.Open(e.settings.DBPath, store.Options{Logger: e.log})
	if err != nil {
		return nil, &ExitError{Code: ExitStoreError, Err: fmt.Errorf("open database: %w", err)}
	}
	e.st = st
	return st, nil
}

func (e *env) close() {
	if e.st != nil {
		_ = e.st.Close()
		e.st = nil
	}
	if e.logClose != nil {
		_ = e.logClose.Close()
		e.logClose = nil
	}
}

// mustEnv returns the env set up by the root pre-run.
func mustEnv(cmd *cobra.Command) (*env, error) {
	e := envFrom(cmd)
	if e == nil {
		return nil, &ExitError{Code: ExitCLIError, Err: errors.New("internal: command environment not initialised")}
	}
	return e, nil
}

func storeFor(cmd *cobra.Command) (*env, *store.Store, error) {
	e, err := mustEnv(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := e.store()
	if err != nil {
		return nil, nil, err
	}
	return e, st, nil
}

// Helpers
func getPersistentBool(cmd *cobra.Command, name string, def bool) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return def
	}
	return v
}
