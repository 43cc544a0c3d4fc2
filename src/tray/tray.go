package tray

import (
	"log"

	"github.com/getlantern/systray"
)

// Menu actions reported to the click handler.
const (
	ActionShow     = "show"
	ActionSettings = "settings"
	ActionOCR      = "ocr"
	ActionQuit     = "quit"
)

type menuItem struct {
	action  string
	title   string
	tooltip string
}

var menu = []menuItem{
	{ActionShow, "Show LightTranslator", "Show the main window"},
	{ActionSettings, "Settings", "Open settings"},
	{ActionOCR, "OCR Screenshot", "Select a screen area and recognize its text"},
	{ActionQuit, "Quit", "Quit the application"},
}

// Run starts the tray and blocks until Quit. onClick receives one of the Action
// constants; onReady runs once the tray is up, onExit after it is torn down.
// Must be called from the main goroutine.
func Run(onClick func(action string), onReady, onExit func()) {
	systray.Run(func() {
		setup(onClick)
		if onReady != nil {
			onReady()
		}
	}, func() {
		if onExit != nil {
			onExit()
		}
	})
}

// Quit stops the tray event loop, making Run return.
func Quit() {
	systray.Quit()
}

func setup(onClick func(action string)) {
	systray.SetIcon(IconPNG)
	systray.SetTitle("LightTranslator")
	systray.SetTooltip("LightTranslator")

	for _, m := range menu {
		item := systray.AddMenuItem(m.title, m.tooltip)
		go forward(item.ClickedCh, m.action, onClick)
	}
}

// forward relays clicks of one menu item.
func forward(clicked <-chan struct{}, action string, onClick func(string)) {
	for range clicked {
		log.Printf("tray: %s clicked", action)
		onClick(action)
	}
}
