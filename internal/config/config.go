package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lecturemate/internal/dirs"
	"lecturemate/internal/hotkey"
	"lecturemate/internal/tracker"
)

// Settings is the user-tunable configuration. Keys mirror the config file.
type Settings struct {
	Hotkeys             map[string]string `mapstructure:"hotkeys"`
	MaxPlaybackRate     float64           `mapstructure:"max_playback_rate"`
	DailyBudgetMins     int               `mapstructure:"daily_budget_mins"`
	SessionLengthMins   int               `mapstructure:"session_length_mins"`
	BreakMins           int               `mapstructure:"break_mins"`
	CompletionThreshold float64           `mapstructure:"completion_threshold"`
	Tracker             tracker.Config    `mapstructure:"tracker"`
	PersistInterval     time.Duration     `mapstructure:"persist_interval"`
	DBPath              string            `mapstructure:"db_path"`
	Jobs                int               `mapstructure:"jobs"`
	Opener              string            `mapstructure:"opener"`
	Log                 LogSettings       `mapstructure:"log"`
	API                 APISettings       `mapstructure:"api"`
	Planner             PlannerSettings   `mapstructure:"planner"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type APISettings struct {
	Addr string `mapstructure:"addr"`
}

type PlannerSettings struct {
	RescheduleURL string `mapstructure:"reschedule_url"`
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// A missing config file is not an error; a malformed one is.
func Init(root *cobra.Command) error {
	if l, err := dirs.Resolve(); err == nil {
		_ = l.Ensure()
		viper.AddConfigPath(l.Config)
	}
	viper.SetConfigName("config") // config.{yaml|yml|json|toml}

	// Environment variables: LECTUREMATE_*
	viper.SetEnvPrefix("LECTUREMATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	pf := root.PersistentFlags()
	_ = viper.BindPFlag("db_path", pf.Lookup("db-path"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.file", pf.Lookup("log-file"))
	_ = viper.BindPFlag("jobs", pf.Lookup("jobs"))

	if file, _ := pf.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("hotkeys", map[string]string{
		hotkey.ActionPlayPause:    "Alt+P",
		hotkey.ActionSeekForward:  "Alt+ArrowRight",
		hotkey.ActionSeekBackward: "Alt+ArrowLeft",
		hotkey.ActionAddNote:      "Ctrl+M",
	})
	v.SetDefault("max_playback_rate", 2.0)
	v.SetDefault("daily_budget_mins", 120)
	v.SetDefault("session_length_mins", 30)
	v.SetDefault("break_mins", 10)
	v.SetDefault("completion_threshold", tracker.DefaultCompletionThreshold)
	v.SetDefault("tracker.max_credited_rate", tracker.DefaultMaxCreditedRate)
	v.SetDefault("tracker.viewport_intersection_threshold", tracker.DefaultViewportIntersectionThreshold)
	v.SetDefault("tracker.max_valid_delta", tracker.DefaultMaxValidDelta)
	v.SetDefault("persist_interval", 10*time.Second)
	v.SetDefault("jobs", 2)
	// log.level stays unset so an empty level falls back to LOG_LEVEL.
	v.SetDefault("api.addr", "127.0.0.1:8765")

	if l, err := dirs.Resolve(); err == nil {
		v.SetDefault("db_path", l.DBPath())
	}
}

// Load returns the settings held by the global Viper instance.
func Load() (Settings, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the settings held by v.
func LoadFrom(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges that the rest of the program relies on.
func (s Settings) Validate() error {
	if s.MaxPlaybackRate < 1 || s.MaxPlaybackRate > 16 {
		return fmt.Errorf("max_playback_rate %v must be between 1 and 16", s.MaxPlaybackRate)
	}
	if s.DailyBudgetMins <= 0 {
		return fmt.Errorf("daily_budget_mins must be > 0, got %d", s.DailyBudgetMins)
	}
	if s.SessionLengthMins <= 0 || s.SessionLengthMins > s.DailyBudgetMins {
		return fmt.Errorf("session_length_mins %d must be in 1..%d", s.SessionLengthMins, s.DailyBudgetMins)
	}
	if s.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1, got %d", s.Jobs)
	}
	if _, err := hotkey.ParseBindings(s.Hotkeys); err != nil {
		return err
	}
	return s.TrackerConfig().Validate()
}

// TrackerConfig returns the tracker options, with the top-level
// completion_threshold taking precedence over tracker.completion_threshold.
func (s Settings) TrackerConfig() tracker.Config {
	c := s.Tracker
	if s.CompletionThreshold != 0 {
		c.CompletionThreshold = s.CompletionThreshold
	}
	return c.WithDefaults()
}

// Bindings parses the configured hotkeys.
func (s Settings) Bindings() (hotkey.Bindings, error) {
	return hotkey.ParseBindings(s.Hotkeys)
}

// Budget returns the study planner budget.
func (s Settings) Budget() (daily, session, brk time.Duration) {
	return time.Duration(s.DailyBudgetMins) * time.Minute,
		time.Duration(s.SessionLengthMins) * time.Minute,
		time.Duration(s.BreakMins) * time.Minute
}

// StoredKeys are the settings that may be persisted in the database with
// `settings set`. Hotkeys are stored per action as "hotkeys.<action>".
var StoredKeys = []string{
	"max_playback_rate",
	"daily_budget_mins",
	"session_length_mins",
	"break_mins",
	"completion_threshold",
	"opener",
	"api.addr",
	"planner.reschedule_url",
}

const hotkeyPrefix = "hotkeys."

// IsStoredKey reports whether key may be persisted in the database.
func IsStoredKey(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, hotkeyPrefix) {
		return len(key) > len(hotkeyPrefix)
	}
	for _, k := range StoredKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ApplyStored layers persisted settings over the defaults of v. The config
// file, environment and flags still take precedence. Unknown keys are
// ignored.
func ApplyStored(v *viper.Viper, stored map[string]string) {
	hotkeys := map[string]string{}
	for k, val := range stored {
		k = strings.ToLower(k)
		if !IsStoredKey(k) {
			continue
		}
		if action, ok := strings.CutPrefix(k, hotkeyPrefix); ok {
			hotkeys[action] = val
			continue
		}
		v.SetDefault(k, val)
	}
	if len(hotkeys) == 0 {
		return
	}
	merged := map[string]string{}
	for k, val := range v.GetStringMapString("hotkeys") {
		merged[strings.ToLower(k)] = val
	}
	for k, val := range hotkeys {
		merged[k] = val
	}
	v.SetDefault("hotkeys", merged)
}
