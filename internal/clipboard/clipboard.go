// Package clipboard copies generated citations to the system clipboard by
// piping them to a platform tool.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is a clipboard writer command.
type tool struct {
	name string
	args []string
}

// tools lists candidate writers per GOOS in preference order.
var tools = map[string][]tool{
	"darwin":  {{"pbcopy", nil}},
	"linux":   {{"wl-copy", nil}, {"xclip", []string{"-selection", "clipboard"}}, {"xsel", []string{"--clipboard", "--input"}}},
	"windows": {{"clip", nil}},
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// find returns the first installed writer for goos.
func find(goos string) (tool, error) {
	for _, t := range tools[goos] {
		if _, err := lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return tool{}, ErrClipboardUnavailable
}

// IsAvailable reports whether a clipboard writer is installed.
func IsAvailable() bool {
	_, err := find(runtime.GOOS)
	return err == nil
}

// Copy writes text to the system clipboard.
func Copy(text string) error {
	t, err := find(runtime.GOOS)
	if err != nil {
		return err
	}
	cmd := exec.Command(t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
