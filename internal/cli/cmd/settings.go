package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lecturemate/internal/config"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change saved settings",
		Long:  "Saved settings live in the database and apply unless the config file, " +
			"a LECTUREMATE_* variable or a flag sets the same key.",
	}
	cmd.AddCommand(newSettingsListCmd(), newSettingsGetCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List effective settings; saved ones are marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			stored, err := st.Settings(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			keys := viper.AllKeys()
			sort.Strings(keys)
			for _, k := range keys {
				mark := " "
				if _, ok := stored[k]; ok {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %v\n", mark, k, viper.Get(k))
			}
			return nil
		},
	}
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			if action, ok := strings.CutPrefix(key, "hotkeys."); ok {
				e, err := mustEnv(cmd)
				if err != nil {
					return err
				}
				for a, chord := range e.settings.Hotkeys {
					if strings.EqualFold(a, action) {
						fmt.Fprintln(cmd.OutOrStdout(), chord)
						return nil
					}
				}
			}
			if !viper.IsSet(key) {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("unknown setting %q", args[0])}
			}
			fmt.Fprintln(cmd.OutOrStdout(), viper.Get(key))
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a setting in the database",
		Long:  "Savable keys: " + strings.Join(config.StoredKeys, ", ") + " and hotkeys.<action>.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := strings.ToLower(args[0]), args[1]
			if !config.IsStoredKey(key) {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("setting %q cannot be saved", args[0])}
			}
			_, st, err := storeFor(cmd)
			if err != nil {
				return err
			}
			stored, err := st.Settings(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			stored[key] = value

			// Validate against defaults plus saved settings only, so a bad
			// value is rejected even if the config file currently masks it.
			v := viper.New()
			config.SetDefaults(v)
			config.ApplyStored(v, stored)
			if _, err := config.LoadFrom(v); err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid value for %s: %w", key, err)}
			}

			if err := st.SetSetting(cmd.Context(), key, value); err != nil {
				return &ExitError{Code: ExitStoreError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			return nil
		},
	}
}
