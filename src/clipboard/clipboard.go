package clipboard

import (
	"sync"

	"golang.design/x/clipboard"
)

// Bridge is the only way the rest of the application touches the clipboard.
type Bridge interface {
	// Read returns the current text, or "" when the clipboard is empty or holds no text.
	Read() (string, error)
	Write(text string) error
}

var (
	writeMu sync.Mutex
)

func Init() error {
	return clipboard.Init()
}

// System is the platform clipboard. Init must have succeeded before use.
type System struct{}

func (System) Read() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func (System) Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Memory is an in-process clipboard used when no display is available.
type Memory struct {
	mu   sync.Mutex
	text string
	// Err, when set, is returned by Read.
	Err error
}

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.text, nil
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}
