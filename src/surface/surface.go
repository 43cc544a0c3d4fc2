package surface

import (
	"fmt"
	"sync"

	"light-translator/src/events"
)

// Window is one UI surface as seen from the native core.
type Window interface {
	SetPosition(x, y int) error
	Show() error
	Hide() error
	Focus() error
	SetSize(width, height float64) error
}

// Emitter delivers named events to the surface with the given label.
type Emitter interface {
	EmitTo(label, event string, payload any) error
}

// Sender is satisfied by *router.Router.
type Sender interface {
	Send(env events.Envelope) error
}

// Remote is a Window rendered by the UI process subscribed to its label. Each operation is
// published as a "window" event.
type Remote struct {
	label  string
	sender Sender
}

func NewRemote(label string, s Sender) *Remote {
	return &Remote{label: label, sender: s}
}

func (r *Remote) Label() string { return r.label }

func (r *Remote) apply(op events.WindowOp) error {
	if err := r.sender.Send(events.New(r.label, events.Window, op)); err != nil {
		return fmt.Errorf("%s window %s: %w", r.label, op.Op, err)
	}
	return nil
}

func (r *Remote) SetPosition(x, y int) error {
	return r.apply(events.WindowOp{Op: events.OpPosition, X: x, Y: y})
}

func (r *Remote) Show() error  { return r.apply(events.WindowOp{Op: events.OpShow}) }
func (r *Remote) Hide() error  { return r.apply(events.WindowOp{Op: events.OpHide}) }
func (r *Remote) Focus() error { return r.apply(events.WindowOp{Op: events.OpFocus}) }

func (r *Remote) SetSize(width, height float64) error {
	return r.apply(events.WindowOp{Op: events.OpSize, Width: width, Height: height})
}

// Bus is an Emitter over a Sender.
type Bus struct {
	sender Sender
}

func NewBus(s Sender) *Bus {
	return &Bus{sender: s}
}

func (b *Bus) EmitTo(label, event string, payload any) error {
	return b.sender.Send(events.New(label, event, payload))
}

// Call is one recorded operation.
type Call struct {
	Label   string
	Name    string
	Payload any
}

// Recorder records window operations and emitted events in order. Err, when set, is
// returned from every call after it is recorded.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.Err
}

// Calls returns a snapshot of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Window returns a Window whose operations are recorded under label.
func (r *Recorder) Window(label string) Window {
	return recordedWindow{label: label, r: r}
}

func (r *Recorder) EmitTo(label, event string, payload any) error {
	return r.record(Call{Label: label, Name: event, Payload: payload})
}

type recordedWindow struct {
	label string
	r     *Recorder
}

func (w recordedWindow) SetPosition(x, y int) error {
	return w.r.record(Call{Label: w.label, Name: events.OpPosition, Payload: [2]int{x, y}})
}

func (w recordedWindow) Show() error  { return w.r.record(Call{Label: w.label, Name: events.OpShow}) }
func (w recordedWindow) Hide() error  { return w.r.record(Call{Label: w.label, Name: events.OpHide}) }
func (w recordedWindow) Focus() error { return w.r.record(Call{Label: w.label, Name: events.OpFocus}) }

func (w recordedWindow) SetSize(width, height float64) error {
	return w.r.record(Call{Label: w.label, Name: events.OpSize, Payload: [2]float64{width, height}})
}
