package hotkey

import (
	"fmt"
	"strings"
)

// Binding is a parsed global shortcut: any set of modifiers plus exactly one key.
type Binding struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Super bool
	Key   string
}

// ParseError is returned for accelerator strings that cannot be bound.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid shortcut %q: %s", e.Input, e.Reason)
}

// String renders the canonical accelerator, e.g. "Ctrl+Shift+X".
func (b Binding) String() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if b.Alt {
		parts = append(parts, "Alt")
	}
	if b.Shift {
		parts = append(parts, "Shift")
	}
	if b.Super {
		parts = append(parts, "Super")
	}
	parts = append(parts, displayKey(b.Key))
	return strings.Join(parts, "+")
}

// keys lists the normalized key names that must all be down for the binding to fire.
func (b Binding) keys() []string {
	var keys []string
	if b.Ctrl {
		keys = append(keys, "ctrl")
	}
	if b.Alt {
		keys = append(keys, "alt")
	}
	if b.Shift {
		keys = append(keys, "shift")
	}
	if b.Super {
		keys = append(keys, "super")
	}
	return append(keys, b.Key)
}

// Parse converts an accelerator such as "CommandOrControl+Shift+X" or "Ctrl+Alt+q".
func Parse(accelerator string) (Binding, error) {
	var b Binding
	if strings.TrimSpace(accelerator) == "" {
		return b, &ParseError{Input: accelerator, Reason: "empty shortcut"}
	}

	for _, part := range parseHotkey(accelerator) {
		switch part {
		case "":
			return Binding{}, &ParseError{Input: accelerator, Reason: "empty key in combination"}
		case "ctrl":
			b.Ctrl = true
		case "alt":
			b.Alt = true
		case "shift":
			b.Shift = true
		case "super":
			b.Super = true
		default:
			if b.Key != "" {
				return Binding{}, &ParseError{Input: accelerator, Reason: fmt.Sprintf("more than one key (%s, %s)", b.Key, part)}
			}
			if len(keyNameToRawcodes(part)) == 0 {
				return Binding{}, &ParseError{Input: accelerator, Reason: fmt.Sprintf("unknown key %q", part)}
			}
			b.Key = part
		}
	}

	if b.Key == "" {
		return Binding{}, &ParseError{Input: accelerator, Reason: "no key besides modifiers"}
	}
	return b, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control", "commandorcontrol", "cmdorctrl", "cmdorcontrol", "commandorctrl", "command", "cmd":
			// The target desktop has no Command key; Tauri's CommandOrControl maps to Ctrl.
			keys = append(keys, "ctrl")
		case "alt", "option", "altgr":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "super", "win", "meta":
			keys = append(keys, "super")
		default:
			keys = append(keys, normalizeKeyName(part))
		}
	}

	return keys
}

// normalizeKeyName accepts DOM code style names ("KeyX", "Digit1", "ArrowUp").
func normalizeKeyName(name string) string {
	switch {
	case len(name) == 4 && strings.HasPrefix(name, "key"):
		return name[3:]
	case len(name) == 6 && strings.HasPrefix(name, "digit"):
		return name[5:]
	case strings.HasPrefix(name, "arrow"):
		return strings.TrimPrefix(name, "arrow")
	}
	return name
}

func displayKey(key string) string {
	if len(key) == 1 {
		return strings.ToUpper(key)
	}
	if key[0] == 'f' && len(key) <= 3 {
		return strings.ToUpper(key)
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// keyNameToRawcodes maps a key name to X11 keysyms, which the hook reports as rawcodes
// on the target desktop. Modifiers return both left and right variants; letters and digits
// also return their shifted keysym (US layout) because Shift changes the reported keysym.
// shiftedDigits holds the keysyms of Shift+0..Shift+9.
var shiftedDigits = [10]byte{')', '!', '@', '#', '$', '%', '^', '&', '*', '('}

func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c), uint16(c - 'a' + 'A')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c), uint16(shiftedDigits[c-'0'])}
		}
	}

	if len(keyName) >= 2 && keyName[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(keyName[1:], "%d", &n); err == nil && fmt.Sprintf("f%d", n) == keyName && n >= 1 && n <= 24 {
			return []uint16{uint16(0xffbe + n - 1)} // XK_F1..XK_F24
		}
	}

	switch keyName {
	// Modifier keys - return both left and right variants
	case "ctrl":
		return []uint16{0xffe3, 0xffe4} // XK_Control_L, XK_Control_R
	case "shift":
		return []uint16{0xffe1, 0xffe2} // XK_Shift_L, XK_Shift_R
	case "alt":
		return []uint16{0xffe9, 0xffea} // XK_Alt_L, XK_Alt_R
	case "super":
		return []uint16{0xffeb, 0xffec} // XK_Super_L, XK_Super_R

	// Common special keys
	case "space":
		return []uint16{0x20}
	case "enter", "return":
		return []uint16{0xff0d}
	case "esc", "escape":
		return []uint16{0xff1b}
	case "tab":
		return []uint16{0xff09}
	case "backspace":
		return []uint16{0xff08}
	case "delete", "del":
		return []uint16{0xffff}
	case "insert", "ins":
		return []uint16{0xff63}
	case "home":
		return []uint16{0xff50}
	case "end":
		return []uint16{0xff57}
	case "pageup", "pgup":
		return []uint16{0xff55}
	case "pagedown", "pgdn":
		return []uint16{0xff56}

	// Arrow keys
	case "left":
		return []uint16{0xff51}
	case "up":
		return []uint16{0xff52}
	case "right":
		return []uint16{0xff53}
	case "down":
		return []uint16{0xff54}

	default:
		return nil
	}
}
