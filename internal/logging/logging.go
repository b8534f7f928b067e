// Package logging builds the process logger: slog text output on the
// console, optionally teed into a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"lecturemate/internal/config"
	"lecturemate/internal/util"
)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 5
	MaxBackups = 5
	MaxAgeDays = 14
)

// Setup returns a logger writing to console and, when cfg.File is set, to a
// rotated log file. Pass a nil console to log to the file only, as the
// interactive UI does. The returned closer releases the file.
func Setup(cfg config.LogSettings, console io.Writer) (*slog.Logger, io.Closer) {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := util.EnsureParentDir(cfg.File); err == nil {
			lj := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    MaxSizeMB,
				MaxBackups: MaxBackups,
				MaxAge:     MaxAgeDays,
			}
			writers = append(writers, lj)
			closer = lj
		}
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(cfg.Level)})
	return slog.New(handler), closer
}

// Level parses a level name. An empty name falls back to LOG_LEVEL and
// then to info.
func Level(name string) slog.Level {
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
