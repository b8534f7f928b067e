package dirs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolveLinuxXDG(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	l, err := resolveFor("linux")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name, got, want string
	}{
		{"config", l.Config, filepath.Join(base, "config", "lecturemate")},
		{"config file", l.ConfigFile(), filepath.Join(base, "config", "lecturemate", "config.yaml")},
		{"db", l.DBPath(), filepath.Join(base, "data", "lecturemate", "lecturemate.db")},
		{"log", l.LogPath(), filepath.Join(base, "state", "lecturemate", "lecturemate.log")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}

	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, d := range []string{l.Config, l.Data, l.State} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Errorf("%s not created: %v", d, err)
		}
	}
}

func TestResolveHomeFallbacks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home dir comes from USERPROFILE on windows")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")

	tests := []struct {
		goos              string
		config, data, log string
	}{
		{"linux",
			filepath.Join(home, ".config", "lecturemate"),
			filepath.Join(home, ".local", "share", "lecturemate"),
			filepath.Join(home, ".local", "state", "lecturemate", "lecturemate.log")},
		{"darwin",
			filepath.Join(home, "Library", "Application Support", "lecturemate"),
			filepath.Join(home, "Library", "Application Support", "lecturemate"),
			filepath.Join(home, "Library", "Logs", "lecturemate", "lecturemate.log")},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			l, err := resolveFor(tt.goos)
			if err != nil {
				t.Fatal(err)
			}
			if l.Config != tt.config || l.Data != tt.data || l.LogPath() != tt.log {
				t.Errorf("layout = %+v, log %q", l, l.LogPath())
			}
		})
	}
}

func TestEnsureEmptyPath(t *testing.T) {
	if err := Ensure(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
