package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"lecturemate/internal/config"
)

func TestLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := Level(in); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if got := Level(""); got != slog.LevelDebug {
		t.Fatalf("Level(\"\") = %v, want debug", got)
	}
}

func TestSetupConsoleAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "lecturemate.log")
	var console bytes.Buffer

	log, closer := Setup(config.LogSettings{Level: "info", File: file}, &console)
	log.Debug("hidden")
	log.Info("progress saved", "lecture", "week-1")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if strings.Contains(console.String(), "hidden") {
		t.Errorf("debug record written at info level: %q", console.String())
	}
	if !strings.Contains(console.String(), "lecture=week-1") {
		t.Errorf("console = %q", console.String())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "progress saved") {
		t.Errorf("log file = %q", data)
	}
}

func TestSetupDiscard(t *testing.T) {
	log, closer := Setup(config.LogSettings{}, nil)
	log.Info("nowhere")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDefaultSettingsHonourLogLevelEnv(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("LOG_LEVEL", "debug")
	v := viper.New()
	config.SetDefaults(v)
	s, err := config.LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	var console bytes.Buffer
	log, _ := Setup(s.Log, &console)
	log.Debug("gate closed", "reason", "hidden")
	if !strings.Contains(console.String(), "gate closed") {
		t.Errorf("debug record missing with LOG_LEVEL=debug: %q", console.String())
	}
}
