// Package dirs locates lecturemate's files on disk: config.yaml in the
// config dir, the SQLite database in the data dir and the rotating log in
// the state dir.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "lecturemate"

// Layout holds the three per-user directories lecturemate writes to.
type Layout struct {
	Config string
	Data   string
	State  string
}

// location describes where one kind of directory lives on each OS.
type location struct {
	xdgEnv  string   // linux override, e.g. XDG_DATA_HOME
	xdgHome []string // linux fallback under $HOME
	darwin  []string // under $HOME
	other   string   // subdir under os.UserConfigDir elsewhere
}

var (
	configLoc = location{"XDG_CONFIG_HOME", []string{".config"}, []string{"Library", "Application Support"}, ""}
	dataLoc   = location{"XDG_DATA_HOME", []string{".local", "share"}, []string{"Library", "Application Support"}, "data"}
	stateLoc  = location{"XDG_STATE_HOME", []string{".local", "state"}, []string{"Library", "Logs"}, "state"}
)

func (l location) resolve(goos string) (string, error) {
	if goos == "linux" {
		if v := os.Getenv(l.xdgEnv); v != "" {
			return filepath.Join(v, appName), nil
		}
	}
	if goos == "linux" || goos == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		parts := l.xdgHome
		if goos == "darwin" {
			parts = l.darwin
		}
		return filepath.Join(append(append([]string{home}, parts...), appName)...), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName, l.other), nil
}

// Resolve returns the layout for the current user and OS.
func Resolve() (Layout, error) {
	return resolveFor(runtime.GOOS)
}

func resolveFor(goos string) (Layout, error) {
	var l Layout
	var err error
	if l.Config, err = configLoc.resolve(goos); err != nil {
		return Layout{}, err
	}
	if l.Data, err = dataLoc.resolve(goos); err != nil {
		return Layout{}, err
	}
	if l.State, err = stateLoc.resolve(goos); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// ConfigFile is the default config path. Viper also accepts yml, json and toml.
func (l Layout) ConfigFile() string { return filepath.Join(l.Config, "config.yaml") }

// DBPath is the default SQLite database.
func (l Layout) DBPath() string { return filepath.Join(l.Data, appName+".db") }

// LogPath is the log file used when the terminal UI owns stderr.
func (l Layout) LogPath() string { return filepath.Join(l.State, appName+".log") }

// Ensure creates every directory in the layout.
func (l Layout) Ensure() error {
	for _, d := range []string{l.Config, l.Data, l.State} {
		if err := Ensure(d); err != nil {
			return err
		}
	}
	return nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}
