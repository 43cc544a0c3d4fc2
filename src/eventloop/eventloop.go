package eventloop

import (
	"context"
	"errors"
	"log"
	"time"

	"light-translator/src/capture"
	"light-translator/src/events"
	"light-translator/src/surface"
	"light-translator/src/tray"
	"light-translator/src/worker"
)

// Trigger is satisfied by *capture.Orchestrator.
type Trigger interface {
	Trigger(ctx context.Context) capture.Report
}

// Shortcuts is satisfied by *settings.Store.
type Shortcuts interface {
	UpdateShortcut(shortcut string) error
	Shortcut() string
}

type Deps struct {
	Capture   Trigger
	OCR       capture.Recognizer
	Main      surface.Window
	Emitter   surface.Emitter
	Shortcuts Shortcuts
	Pool      *worker.Pool
	// Hotkey is the HOTKEY value the resident started with; reloads only act on changes to it.
	Hotkey string
	// OnQuit runs when the tray Quit item is picked.
	OnQuit func()
}

// Loop is the single-threaded coordinator for hotkey, tray and config events.
// Capture triggers run on the loop goroutine, one at a time.
type Loop struct {
	d        Deps
	msgs     chan events.Message
	busy     bool
	hotkey   string
	deadline time.Duration
}

// New creates a new event loop. A nil Pool gets a single-worker pool.
func New(d Deps) *Loop {
	if d.Pool == nil {
		d.Pool = worker.New(1)
	}
	return &Loop{
		d:        d,
		msgs:     make(chan events.Message, 8),
		hotkey:   d.Hotkey,
		deadline: 5 * time.Minute,
	}
}

// Post queues a message without blocking. Returns false if the queue is full.
func (l *Loop) Post(m events.Message) bool {
	select {
	case l.msgs <- m:
		return true
	default:
		log.Printf("eventloop: dropped %s, queue full", m.Type())
		return false
	}
}

// HotkeyHandler returns the callback bound to the registered shortcut.
func (l *Loop) HotkeyHandler() func() {
	return func() { l.Post(events.HotkeyPressed{Combo: l.d.Shortcuts.Shortcut()}) }
}

// Run processes messages until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.d.Pool.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-l.msgs:
			l.handle(ctx, m)
		}
	}
}

func (l *Loop) handle(ctx context.Context, m events.Message) {
	switch m := m.(type) {
	case events.HotkeyPressed:
		l.handleHotkey(ctx, m.Combo)
	case events.TrayMenuClicked:
		l.handleTray(ctx, m.Action)
	case events.OCRComplete:
		l.handleOCRComplete(m)
	case events.ConfigChanged:
		l.handleConfig(m)
	default:
		log.Printf("eventloop: unhandled message %s", m.Type())
	}
}

func (l *Loop) handleHotkey(ctx context.Context, combo string) {
	r := l.d.Capture.Trigger(ctx)
	log.Printf("handleHotkey: %s trace=%v at=%+v defaulted=%v delivery=%v",
		combo, r.Trace, r.Position, r.PositionDefaulted, r.DeliveryScheduled)
}

func (l *Loop) handleTray(ctx context.Context, action string) {
	switch action {
	case tray.ActionShow:
		_ = l.d.Main.Show()
		_ = l.d.Main.Focus()
	case tray.ActionSettings:
		_ = l.d.Main.Show()
		_ = l.d.Main.Focus()
		_ = l.d.Emitter.EmitTo(events.LabelMain, events.OpenSettings, nil)
	case tray.ActionOCR:
		l.startOCR(ctx)
	case tray.ActionQuit:
		if l.d.OnQuit != nil {
			l.d.OnQuit()
		}
	default:
		log.Printf("handleTray: unknown action %q", action)
	}
}

func (l *Loop) startOCR(ctx context.Context) {
	if l.busy {
		log.Printf("startOCR: busy, skipping")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.busy = true
	submitted := l.d.Pool.Submit(jobCtx, "tray-ocr", func(ctx context.Context) (string, error) {
		return capture.ScreenText(ctx, l.d.OCR)
	}, func(text string, err error) {
		cancel()
		select {
		case l.msgs <- events.OCRComplete{Text: text, Error: err}:
		case <-ctx.Done():
		}
	})
	if !submitted {
		cancel()
		l.busy = false
	}
}

func (l *Loop) handleOCRComplete(m events.OCRComplete) {
	l.busy = false
	switch {
	case errors.Is(m.Error, capture.ErrCancelled):
		log.Printf("handleOCRComplete: selection cancelled")
	case m.Error != nil:
		log.Printf("handleOCRComplete: %v", m.Error)
	default:
		capture.PresentOCR(l.d.Main, l.d.Emitter, m.Text)
	}
}

func (l *Loop) handleConfig(m events.ConfigChanged) {
	if m.Config == nil || m.Config.Hotkey == l.hotkey {
		return
	}
	next := m.Config.Hotkey
	if err := l.d.Shortcuts.UpdateShortcut(next); err != nil {
		log.Printf("handleConfig: HOTKEY %q rejected: %v", next, err)
		return
	}
	l.hotkey = next
}
