package deps

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener is a resolved helper that opens URLs in the user's browser.
type Opener struct {
	Path string
	Args []string // leading arguments placed before the URL
}

// FindOpener returns the URL opener for this platform. If customPath is
// non-empty it is looked up in PATH and used as-is.
func FindOpener(customPath string) (Opener, error) {
	if customPath != "" {
		p, err := exec.LookPath(customPath)
		if err != nil {
			return Opener{}, fmt.Errorf("could not find opener %q: %w", customPath, err)
		}
		return Opener{Path: p}, nil
	}

	var candidates []Opener
	switch runtime.GOOS {
	case "darwin":
		candidates = []Opener{{Path: "open"}}
	case "windows":
		candidates = []Opener{{Path: "rundll32", Args: []string{"url.dll,FileProtocolHandler"}}}
	default:
		candidates = []Opener{{Path: "xdg-open"}, {Path: "wslview"}, {Path: "gio", Args: []string{"open"}}}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c.Path); err == nil {
			c.Path = p
			return c, nil
		}
	}
	return Opener{}, fmt.Errorf("could not find a URL opener in PATH (tried %s)", candidates[0].Path)
}
