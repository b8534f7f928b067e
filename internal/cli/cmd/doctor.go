package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lecturemate/internal/dirs"
	"lecturemate/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the database, configuration and URL opener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			cfgFile := viper.ConfigFileUsed()
			if cfgFile == "" {
				cfgFile = "(none, using defaults)"
				if l, err := dirs.Resolve(); err == nil {
					cfgFile = fmt.Sprintf("(none, create %s to override defaults)", l.ConfigFile())
				}
			}
			fmt.Fprintf(out, "Config:    %s\n", cfgFile)
			fmt.Fprintf(out, "Database:  %s\n", e.settings.DBPath)

			version, err := st.SchemaVersion()
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			fmt.Fprintf(out, "Schema:    v%d\n", version)

			problems, err := st.IntegrityCheck(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			if len(problems) != 1 || problems[0] != "ok" {
				for _, p := range problems {
					fmt.Fprintf(out, "Integrity: %s\n", p)
				}
				return &ExitError{Code: ExitStoreError, Err: errors.New("database integrity check failed")}
			}
			fmt.Fprintln(out, "Integrity: ok")

			o, err := deps.FindOpener(e.settings.Opener)
			if err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			fmt.Fprintf(out, "Opener:    %s\n", o.Path)
			return nil
		},
	}
}
