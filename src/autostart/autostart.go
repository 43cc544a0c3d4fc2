package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
)

const (
	appName     = "light-translator"
	displayName = "LightTranslator"
)

// Entry manages the login item that starts the resident hidden. On Linux it is the XDG
// autostart file under $XDG_CONFIG_HOME/autostart, resolved once at process start.
type Entry struct {
	// Exec is the binary written to the entry; "--hidden" is appended.
	Exec string
}

// ForExecutable returns an Entry launching the running binary.
func ForExecutable() (*Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return &Entry{Exec: exe}, nil
}

func (e *Entry) app() *autostart.App {
	return &autostart.App{
		Name:        appName,
		DisplayName: displayName,
		Exec:        []string{e.Exec, "--hidden"},
	}
}

// Enable writes the autostart entry, replacing any existing one.
func (e *Entry) Enable() error {
	if err := e.app().Enable(); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	return nil
}

// Disable removes the autostart entry. A missing entry is not an error.
func (e *Entry) Disable() error {
	if err := e.app().Disable(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("disable autostart: %w", err)
	}
	return nil
}

// Enabled reports whether the autostart entry exists.
func (e *Entry) Enabled() (bool, error) {
	return e.app().IsEnabled(), nil
}
