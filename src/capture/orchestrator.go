package capture

import (
	"context"
	"image"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"light-translator/src/clipboard"
	"light-translator/src/display"
	"light-translator/src/events"
	"light-translator/src/gateway"
	"light-translator/src/logutil"
	"light-translator/src/surface"
)

// State is a step of one capture trigger.
type State int

const (
	Idle State = iota
	KeystrokeSent
	ClipboardRead
	SurfacePositioned
	SurfaceVisible
	TextDelivered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case KeystrokeSent:
		return "KeystrokeSent"
	case ClipboardRead:
		return "ClipboardRead"
	case SurfacePositioned:
		return "SurfacePositioned"
	case SurfaceVisible:
		return "SurfaceVisible"
	case TextDelivered:
		return "TextDelivered"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// DefaultPosition is used whenever the cursor location cannot be determined.
var DefaultPosition = Position{X: 100, Y: 100}

// DefaultTitle is the window title searched for when forcing activation.
const DefaultTitle = "Quick Translate"

// Position is a cursor location in logical screen coordinates.
type Position struct {
	X, Y int
}

// ParseCursor reads the x: and y: tokens of xdotool getmouselocation output. Each
// coordinate that is missing or malformed falls back to DefaultPosition; ok is false
// when either did.
func ParseCursor(s string) (Position, bool) {
	p := DefaultPosition
	var gotX, gotY bool
	for _, tok := range strings.Fields(s) {
		if v, found := strings.CutPrefix(tok, "x:"); found {
			if n, err := strconv.Atoi(v); err == nil {
				p.X, gotX = n, true
			} else {
				p.X, gotX = DefaultPosition.X, false
			}
		} else if v, found := strings.CutPrefix(tok, "y:"); found {
			if n, err := strconv.Atoi(v); err == nil {
				p.Y, gotY = n, true
			} else {
				p.Y, gotY = DefaultPosition.Y, false
			}
		}
	}
	return p, gotX && gotY
}

// Report records what each step of one trigger did. Failures here are informational:
// every step is best-effort and later steps run with defaults.
type Report struct {
	KeystrokeErr      error
	ClipboardText     string
	ClipboardErr      error
	CursorRaw         string
	CursorErr         error
	Position          Position
	PositionDefaulted bool
	PositionErr       error
	ShowErr           error
	FocusErr          error
	DeliveryScheduled bool
	// Delivered receives the outcome of the scheduled delivery once it has run (nil error
	// means TextDelivered was reached). It is nil when nothing was scheduled.
	Delivered <-chan error
	// Trace lists the states reached before Trigger returned.
	Trace []State
}

// Deps are the collaborators of an Orchestrator. Bounds and Title are optional.
type Deps struct {
	Keyboard  gateway.Keyboard
	Clipboard clipboard.Bridge
	Pointer   gateway.Pointer
	Windows   gateway.Windows
	Quick     surface.Window
	Emitter   surface.Emitter
	Bounds    display.Bounds
	Title     string
}

// Orchestrator copies the current selection and pops the quick surface up next to the
// cursor with that text.
type Orchestrator struct {
	d Deps

	settleDelay   time.Duration
	activateDelay time.Duration
	deliverDelay  time.Duration

	sizeMu sync.Mutex
	size   image.Point

	wg sync.WaitGroup
}

func New(d Deps) *Orchestrator {
	if d.Title == "" {
		d.Title = DefaultTitle
	}
	return &Orchestrator{
		d:             d,
		settleDelay:   150 * time.Millisecond,
		activateDelay: 50 * time.Millisecond,
		deliverDelay:  100 * time.Millisecond,
		size:          image.Pt(400, 300),
	}
}

// Resized records the quick surface size used when keeping it on screen.
func (o *Orchestrator) Resized(width, height float64) {
	o.sizeMu.Lock()
	o.size = image.Pt(int(width), int(height))
	o.sizeMu.Unlock()
}

func (o *Orchestrator) surfaceSize() image.Point {
	o.sizeMu.Lock()
	defer o.sizeMu.Unlock()
	return o.size
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Trigger runs one capture. Copy, clipboard read, positioning and show/focus happen in
// order on the calling goroutine; window activation and text delivery are spawned and
// return before they run.
func (o *Orchestrator) Trigger(ctx context.Context) Report {
	var r Report
	step := func(s State) {
		r.Trace = append(r.Trace, s)
		log.Printf("capture: %s", s)
	}

	if _, err := o.d.Keyboard.SendCopy(ctx); err != nil {
		r.KeystrokeErr = err
		log.Printf("capture: copy keystroke: %v", err)
	}
	step(KeystrokeSent)

	sleep(ctx, o.settleDelay)

	text, err := o.d.Clipboard.Read()
	if err != nil {
		r.ClipboardErr = err
		log.Printf("capture: clipboard read: %v", err)
		text = ""
	}
	r.ClipboardText = text
	log.Printf("capture: clipboard %q", logutil.Truncate(text, 80))
	step(ClipboardRead)

	r.Position = DefaultPosition
	r.PositionDefaulted = true
	raw, err := o.d.Pointer.Location(ctx)
	r.CursorRaw = raw
	if err != nil {
		r.CursorErr = err
		log.Printf("capture: cursor location: %v", err)
	} else {
		pos, ok := ParseCursor(raw)
		r.Position, r.PositionDefaulted = pos, !ok
	}
	at := image.Pt(r.Position.X, r.Position.Y)
	if o.d.Bounds != nil {
		at = display.Clamp(o.d.Bounds, at, o.surfaceSize())
	}
	if err := o.d.Quick.SetPosition(at.X, at.Y); err != nil {
		r.PositionErr = err
		log.Printf("capture: position quick surface: %v", err)
	}
	step(SurfacePositioned)

	if err := o.d.Quick.Show(); err != nil {
		r.ShowErr = err
		log.Printf("capture: show quick surface: %v", err)
	}
	if err := o.d.Quick.Focus(); err != nil {
		r.FocusErr = err
		log.Printf("capture: focus quick surface: %v", err)
	}
	step(SurfaceVisible)

	bg := context.WithoutCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		sleep(bg, o.activateDelay)
		if _, err := o.d.Windows.ActivateByTitle(bg, o.d.Title); err != nil {
			log.Printf("capture: activate %q: %v", o.d.Title, err)
		}
	}()

	if text != "" {
		delivered := make(chan error, 1)
		r.DeliveryScheduled = true
		r.Delivered = delivered
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			sleep(bg, o.deliverDelay)
			err := o.d.Emitter.EmitTo(events.LabelQuick, events.QuickTranslateText, text)
			delivered <- err
			close(delivered)
			if err != nil {
				log.Printf("capture: deliver text: %v", err)
				return
			}
			log.Printf("capture: %s (%d chars)", TextDelivered, len(text))
		}()
	}

	return r
}

// Ready emits the current clipboard text to the quick surface, if there is any. The
// surface calls this once it is listening, so it does not depend on the timed push.
func (o *Orchestrator) Ready(ctx context.Context) error {
	text, err := o.d.Clipboard.Read()
	if err != nil {
		log.Printf("capture: ready: clipboard read: %v", err)
		return nil
	}
	if text == "" {
		return nil
	}
	return o.d.Emitter.EmitTo(events.LabelQuick, events.QuickTranslateText, text)
}

// Wait blocks until all spawned activation and delivery tasks have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
