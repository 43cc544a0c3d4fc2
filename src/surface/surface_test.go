package surface

import (
	"errors"
	"testing"
	"time"

	"light-translator/src/events"
	"light-translator/src/router"
)

func TestRemotePublishesWindowOps(t *testing.T) {
	r := router.NewRouter()
	defer r.Shutdown()
	_, ch := r.Subscribe(events.LabelQuick, 8)

	w := NewRemote(events.LabelQuick, r)
	if err := w.SetPosition(640, 480); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	_ = w.Show()
	_ = w.Focus()
	_ = w.SetSize(320, 240.5)
	_ = w.Hide()

	want := []events.WindowOp{
		{Op: events.OpPosition, X: 640, Y: 480},
		{Op: events.OpShow},
		{Op: events.OpFocus},
		{Op: events.OpSize, Width: 320, Height: 240.5},
		{Op: events.OpHide},
	}
	for i, op := range want {
		env, err := router.WaitForEvent(ch, events.Window, time.Second)
		if err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		if env.Label != events.LabelQuick || env.Payload != op {
			t.Errorf("op %d = %+v, want %+v", i, env.Payload, op)
		}
	}
}

func TestRemoteStateReachesLateUI(t *testing.T) {
	r := router.NewRouter()
	defer r.Shutdown()

	w := NewRemote(events.LabelMain, r)
	if err := w.Show(); err != nil {
		t.Fatalf("Show before UI subscribed: %v", err)
	}
	if err := w.Focus(); err != nil {
		t.Fatalf("Focus before UI subscribed: %v", err)
	}

	_, ch := r.Subscribe(events.LabelMain, 16)
	for _, want := range []string{events.OpShow, events.OpFocus} {
		env, err := router.WaitForEvent(ch, events.Window, 300*time.Millisecond)
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if op := env.Payload.(events.WindowOp).Op; op != want {
			t.Errorf("op = %s, want %s", op, want)
		}
	}
}

func TestBusWithoutUIReportsError(t *testing.T) {
	r := router.NewRouter()
	defer r.Shutdown()

	err := NewBus(r).EmitTo(events.LabelMain, events.OCRResult, "text")
	if !errors.Is(err, router.ErrNoSubscriber) {
		t.Fatalf("err = %v", err)
	}
}

func TestBusEmits(t *testing.T) {
	r := router.NewRouter()
	defer r.Shutdown()
	_, ch := r.Subscribe(events.LabelMain, 1)

	if err := NewBus(r).EmitTo(events.LabelMain, events.OCRResult, "text"); err != nil {
		t.Fatalf("EmitTo: %v", err)
	}
	env, err := router.WaitForEvent(ch, events.OCRResult, time.Second)
	if err != nil || env.Payload != "text" {
		t.Fatalf("env = %+v, err = %v", env, err)
	}
}

func TestRecorderOrder(t *testing.T) {
	rec := &Recorder{}
	w := rec.Window("quick")
	_ = w.Show()
	_ = rec.EmitTo("quick", "e", 1)

	calls := rec.Calls()
	if len(calls) != 2 || calls[0].Name != events.OpShow || calls[1].Name != "e" {
		t.Errorf("calls = %+v", calls)
	}
}
