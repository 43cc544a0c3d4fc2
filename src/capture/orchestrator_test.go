package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"sync"
	"testing"
	"time"

	"light-translator/src/display"
	"light-translator/src/events"
	"light-translator/src/gateway"
	"light-translator/src/ocr"
	"light-translator/src/surface"
)

// journal records collaborator calls in the order they happen.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeDesktop struct {
	j         *journal
	clip      string
	clipErr   error
	cursor    string
	cursorErr error
	keyErr    error
}

func (f *fakeDesktop) SendCopy(context.Context) (gateway.Result, error) {
	f.j.add("copy")
	return gateway.Result{Success: f.keyErr == nil}, f.keyErr
}

func (f *fakeDesktop) Read() (string, error) {
	f.j.add("read")
	return f.clip, f.clipErr
}

func (f *fakeDesktop) Write(string) error { return nil }

func (f *fakeDesktop) Location(context.Context) (string, error) {
	f.j.add("cursor")
	return f.cursor, f.cursorErr
}

func (f *fakeDesktop) ActivateByTitle(_ context.Context, title string) (gateway.Result, error) {
	f.j.add("activate %s", title)
	return gateway.Result{Success: true}, nil
}

type journalWindow struct{ j *journal }

func (w journalWindow) SetPosition(x, y int) error     { w.j.add("position %d,%d", x, y); return nil }
func (w journalWindow) Show() error                    { w.j.add("show"); return nil }
func (w journalWindow) Hide() error                    { w.j.add("hide"); return nil }
func (w journalWindow) Focus() error                   { w.j.add("focus"); return nil }
func (w journalWindow) SetSize(float64, float64) error { return nil }

func newTestOrchestrator(f *fakeDesktop, rec *surface.Recorder) *Orchestrator {
	o := New(Deps{
		Keyboard:  f,
		Clipboard: f,
		Pointer:   f,
		Windows:   f,
		Quick:     journalWindow{j: f.j},
		Emitter:   rec,
	})
	o.settleDelay = time.Millisecond
	o.activateDelay = time.Millisecond
	o.deliverDelay = time.Millisecond
	return o
}

func TestTriggerHappyPath(t *testing.T) {
	f := &fakeDesktop{j: &journal{}, clip: "hello", cursor: "x:640 y:480 screen:0 window:999\n"}
	rec := &surface.Recorder{}
	o := newTestOrchestrator(f, rec)

	r := o.Trigger(context.Background())
	o.Wait()

	if r.Position != (Position{640, 480}) || r.PositionDefaulted {
		t.Errorf("position = %+v defaulted=%v", r.Position, r.PositionDefaulted)
	}
	if r.ClipboardText != "hello" || !r.DeliveryScheduled {
		t.Errorf("report = %+v", r)
	}
	wantTrace := []State{KeystrokeSent, ClipboardRead, SurfacePositioned, SurfaceVisible}
	if !reflect.DeepEqual(r.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", r.Trace, wantTrace)
	}
	if err, ok := <-r.Delivered; !ok || err != nil {
		t.Errorf("delivery outcome = %v (received=%v), want nil", err, ok)
	}

	got := f.j.list()
	wantPrefix := []string{"copy", "read", "cursor", "position 640,480", "show", "focus"}
	if len(got) < len(wantPrefix) || !reflect.DeepEqual(got[:len(wantPrefix)], wantPrefix) {
		t.Fatalf("calls = %v, want prefix %v", got, wantPrefix)
	}
	if got[len(got)-1] != "activate Quick Translate" {
		t.Errorf("activation missing: %v", got)
	}

	calls := rec.Calls()
	want := []surface.Call{{Label: events.LabelQuick, Name: events.QuickTranslateText, Payload: "hello"}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("emitted = %+v, want %+v", calls, want)
	}
}

func TestTriggerEmptyClipboardDeliversNothing(t *testing.T) {
	f := &fakeDesktop{j: &journal{}, cursor: "x:1 y:2"}
	rec := &surface.Recorder{}
	o := newTestOrchestrator(f, rec)

	r := o.Trigger(context.Background())
	o.Wait()

	if r.DeliveryScheduled || r.Delivered != nil {
		t.Error("delivery must not be scheduled for empty clipboard")
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("emitted %+v", rec.Calls())
	}
	if r.Trace[len(r.Trace)-1] != SurfaceVisible {
		t.Errorf("trace = %v", r.Trace)
	}
}

func TestTriggerDegradesOnFailures(t *testing.T) {
	f := &fakeDesktop{
		j:         &journal{},
		keyErr:    &gateway.LaunchError{Command: "xdotool", Err: errors.New("not found")},
		clipErr:   errors.New("no clipboard"),
		cursorErr: &gateway.LaunchError{Command: "xdotool", Err: errors.New("not found")},
	}
	rec := &surface.Recorder{}
	o := newTestOrchestrator(f, rec)

	r := o.Trigger(context.Background())
	o.Wait()

	if r.KeystrokeErr == nil || r.ClipboardErr == nil || r.CursorErr == nil {
		t.Errorf("errors not recorded: %+v", r)
	}
	if r.Position != DefaultPosition || !r.PositionDefaulted {
		t.Errorf("position = %+v", r.Position)
	}
	got := f.j.list()
	if !contains(got, "position 100,100") || !contains(got, "show") || !contains(got, "focus") {
		t.Errorf("surface not shown at default: %v", got)
	}
	if len(rec.Calls()) != 0 {
		t.Error("nothing should be delivered")
	}
}

func TestTriggerReturnsBeforeBackgroundTasks(t *testing.T) {
	f := &fakeDesktop{j: &journal{}, clip: "late", cursor: "x:5 y:5"}
	rec := &surface.Recorder{}
	o := newTestOrchestrator(f, rec)
	o.activateDelay = 200 * time.Millisecond
	o.deliverDelay = 200 * time.Millisecond

	o.Trigger(context.Background())
	if len(rec.Calls()) != 0 || contains(f.j.list(), "activate Quick Translate") {
		t.Error("background tasks ran before Trigger returned")
	}
	o.Wait()
	if len(rec.Calls()) != 1 {
		t.Errorf("delivery did not happen: %+v", rec.Calls())
	}
}

func TestTriggerFailedDeliveryIsNotTraced(t *testing.T) {
	f := &fakeDesktop{j: &journal{}, clip: "text", cursor: "x:5 y:5"}
	rec := &surface.Recorder{Err: errors.New("no subscriber")}
	o := newTestOrchestrator(f, rec)

	r := o.Trigger(context.Background())
	if !r.DeliveryScheduled {
		t.Fatal("delivery should be scheduled for non-empty clipboard")
	}
	for _, s := range r.Trace {
		if s == TextDelivered {
			t.Fatalf("trace claims %s before delivery ran: %v", s, r.Trace)
		}
	}
	if err := <-r.Delivered; err == nil {
		t.Error("failed emit should be reported on Delivered")
	}
	o.Wait()
}

func TestTriggerClampsToDisplay(t *testing.T) {
	f := &fakeDesktop{j: &journal{}, cursor: "x:700 y:500"}
	o := newTestOrchestrator(f, &surface.Recorder{})
	o.d.Bounds = display.Static{image.Rect(0, 0, 800, 600)}
	o.Resized(400, 300)

	o.Trigger(context.Background())
	o.Wait()
	if !contains(f.j.list(), "position 400,300") {
		t.Errorf("calls = %v", f.j.list())
	}
}

func TestParseCursor(t *testing.T) {
	tests := []struct {
		in   string
		want Position
		ok   bool
	}{
		{"x:640 y:480 screen:0 window:999", Position{640, 480}, true},
		{"screen:0 y:20 x:10", Position{10, 20}, true},
		{"bad data", Position{100, 100}, false},
		{"", Position{100, 100}, false},
		{"x:abc y:480", Position{100, 480}, false},
		{"x:-5 y:7", Position{-5, 7}, true},
	}
	for _, tt := range tests {
		got, ok := ParseCursor(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCursor(%q) = %+v,%v want %+v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "Idle" || TextDelivered.String() != "TextDelivered" || State(42).String() != "State(42)" {
		t.Error("unexpected State names")
	}
}

func TestReady(t *testing.T) {
	f := &fakeDesktop{j: &journal{}, clip: "pulled"}
	rec := &surface.Recorder{}
	o := newTestOrchestrator(f, rec)

	if err := o.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	f.clip = ""
	if err := o.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0].Payload != "pulled" || calls[0].Label != events.LabelQuick {
		t.Errorf("calls = %+v", calls)
	}
}

type fakeRecognizer struct {
	img       string
	captured  bool
	outcome   ocr.Outcome
	captureEr error
}

func (f fakeRecognizer) CaptureScreen(context.Context) (string, bool, error) {
	return f.img, f.captured, f.captureEr
}

func (f fakeRecognizer) OCRImage(context.Context, string) (ocr.Outcome, error) {
	return f.outcome, nil
}

func TestScreenText(t *testing.T) {
	text := "recognized"
	msg := "tesseract error"

	got, err := ScreenText(context.Background(), fakeRecognizer{img: "data:,", captured: true, outcome: ocr.Outcome{Success: true, Text: &text}})
	if err != nil || got != "recognized" {
		t.Errorf("success: %q, %v", got, err)
	}

	if _, err := ScreenText(context.Background(), fakeRecognizer{}); !errors.Is(err, ErrCancelled) {
		t.Errorf("cancel: err = %v", err)
	}

	_, err = ScreenText(context.Background(), fakeRecognizer{captured: true, outcome: ocr.Outcome{Error: &msg}})
	if err == nil {
		t.Error("failed outcome should be an error")
	}
}

func TestPresentOCR(t *testing.T) {
	rec := &surface.Recorder{}
	PresentOCR(rec.Window(events.LabelMain), rec, "text")

	var names []string
	for _, c := range rec.Calls() {
		names = append(names, c.Label+":"+c.Name)
	}
	want := []string{"main:show", "main:focus", "main:ocr-result"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("calls = %v, want %v", names, want)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
