package events

import (
	"time"

	"github.com/google/uuid"

	"light-translator/src/config"
)

// Surface labels known to the UI layer.
const (
	LabelMain  = "main"
	LabelQuick = "quick"
	LabelAll   = "*"
)

// Event names emitted to the UI layer.
const (
	QuickTranslateText = "quick-translate-text"
	OCRResult          = "ocr-result"
	OpenSettings       = "open-settings"
	Window             = "window"
)

// Envelope carries one event to every subscriber of Label ("*" for all).
type Envelope struct {
	ID      string    `json:"id"`
	Label   string    `json:"label"`
	Event   string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// New stamps an envelope with a fresh id and the current time.
func New(label, event string, payload any) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Label:   label,
		Event:   event,
		Payload: payload,
		Time:    time.Now(),
	}
}

// Window operations carried in the payload of a Window event.
const (
	OpShow     = "show"
	OpHide     = "hide"
	OpFocus    = "focus"
	OpPosition = "position"
	OpSize     = "size"
)

// WindowOp asks the UI process owning a surface to change it.
type WindowOp struct {
	Op     string  `json:"op"`
	X      int     `json:"x,omitempty"`
	Y      int     `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// RetainKey reports whether env is window state a late subscriber must still see. Show and
// hide share one slot; hide also clears a retained focus.
func RetainKey(env Envelope) (key string, clears []string, ok bool) {
	if env.Event != Window {
		return "", nil, false
	}
	op, isOp := env.Payload.(WindowOp)
	if !isOp {
		return "", nil, false
	}
	switch op.Op {
	case OpShow:
		return "visibility", nil, true
	case OpHide:
		return "visibility", []string{OpFocus}, true
	case OpFocus, OpPosition, OpSize:
		return op.Op, nil, true
	}
	return "", nil, false
}

// Message is an internal notification consumed by the resident event loop.
type Message interface {
	Type() string
}

const (
	TypeHotkeyPressed   = "HotkeyPressed"
	TypeTrayMenuClicked = "TrayMenuClicked"
	TypeOCRComplete     = "OCRComplete"
	TypeConfigChanged   = "ConfigChanged"
)

// HotkeyPressed - sent by the hotkey listener on each press edge
type HotkeyPressed struct {
	Combo string // committed shortcut at press time, e.g. "Ctrl+Shift+X"
}

func (m HotkeyPressed) Type() string { return TypeHotkeyPressed }

// TrayMenuClicked - sent by the tray when the user picks a menu item
type TrayMenuClicked struct {
	Action string // "show", "settings", "ocr", "quit"
}

func (m TrayMenuClicked) Type() string { return TypeTrayMenuClicked }

// OCRComplete - sent by the worker when a tray OCR capture finishes
type OCRComplete struct {
	Text  string
	Error error
}

func (m OCRComplete) Type() string { return TypeOCRComplete }

// ConfigChanged - sent by the env file watcher after a successful reload
type ConfigChanged struct {
	Config *config.Config
}

func (m ConfigChanged) Type() string { return TypeConfigChanged }
