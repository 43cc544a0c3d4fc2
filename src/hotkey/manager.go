package hotkey

import (
	"errors"
	"fmt"
	"log"
	"sync"

	gohook "github.com/robotn/gohook"
)

var (
	ErrAlreadyRegistered = errors.New("a shortcut is already registered")
	ErrNotRegistered     = errors.New("shortcut is not registered")
)

// KeyEvent is a key transition reported by the OS hook.
type KeyEvent struct {
	Down    bool
	Rawcode uint16
}

// Source produces global key events. Start is called once per Manager.
type Source interface {
	Start() <-chan KeyEvent
	Stop()
}

type gohookSource struct{}

func (gohookSource) Start() <-chan KeyEvent {
	out := make(chan KeyEvent, 64)
	evChan := gohook.Start()
	if evChan == nil {
		log.Printf("ERROR: gohook.Start() returned nil channel")
		close(out)
		return out
	}
	go func() {
		defer close(out)
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				out <- KeyEvent{Down: true, Rawcode: ev.Rawcode}
			case gohook.KeyUp:
				out <- KeyEvent{Down: false, Rawcode: ev.Rawcode}
			}
		}
	}()
	return out
}

func (gohookSource) Stop() { gohook.End() }

// chord tracks which member keys of a binding are down and fires once per press.
// Auto-repeat while held does not refire; releasing any member key re-arms it.
type chord struct {
	rawcodes [][]uint16
	pressed  []bool
	latched  bool
}

func newChord(b Binding) *chord {
	keys := b.keys()
	c := &chord{rawcodes: make([][]uint16, len(keys)), pressed: make([]bool, len(keys))}
	for i, k := range keys {
		c.rawcodes[i] = keyNameToRawcodes(k)
	}
	return c
}

func (c *chord) member(rawcode uint16) int {
	for i, codes := range c.rawcodes {
		for _, code := range codes {
			if code == rawcode {
				return i
			}
		}
	}
	return -1
}

// handle applies ev and reports whether the binding fired.
func (c *chord) handle(ev KeyEvent) bool {
	i := c.member(ev.Rawcode)
	if i < 0 {
		return false
	}
	if !ev.Down {
		c.pressed[i] = false
		c.latched = false
		return false
	}
	c.pressed[i] = true
	for _, p := range c.pressed {
		if !p {
			return false
		}
	}
	if c.latched {
		return false
	}
	c.latched = true
	return true
}

type registration struct {
	binding Binding
	handler func()
	chord   *chord
}

// Manager holds at most one registered binding and dispatches its presses.
type Manager struct {
	src     Source
	mu      sync.Mutex
	started bool
	active  *registration
}

// NewManager returns a manager backed by the global gohook event stream.
func NewManager() *Manager { return NewManagerWithSource(gohookSource{}) }

// NewManagerWithSource is used by tests to inject key events.
func NewManagerWithSource(src Source) *Manager {
	return &Manager{src: src}
}

// Register binds handler to b. It fails if another binding is still registered.
func (m *Manager) Register(b Binding, handler func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return fmt.Errorf("register %s: %w (%s)", b, ErrAlreadyRegistered, m.active.binding)
	}
	m.active = &registration{binding: b, handler: handler, chord: newChord(b)}
	log.Printf("Hotkey registered: %s", b)

	if !m.started {
		m.started = true
		go m.listen(m.src.Start())
	}
	return nil
}

// Unregister removes b if it is the registered binding.
func (m *Manager) Unregister(b Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.binding != b {
		return fmt.Errorf("unregister %s: %w", b, ErrNotRegistered)
	}
	m.active = nil
	log.Printf("Hotkey unregistered: %s", b)
	return nil
}

// Registered returns the active binding, if any.
func (m *Manager) Registered() (Binding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Binding{}, false
	}
	return m.active.binding, true
}

// Close stops the underlying hook.
func (m *Manager) Close() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		m.src.Stop()
	}
}

func (m *Manager) listen(events <-chan KeyEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in hotkey goroutine: %v", r)
		}
	}()

	for ev := range events {
		m.mu.Lock()
		reg := m.active
		fire := reg != nil && reg.chord.handle(ev)
		m.mu.Unlock()

		if fire {
			log.Printf("HOTKEY COMBINATION DETECTED! %s", reg.binding)
			if reg.handler != nil {
				reg.handler()
			}
		}
	}
	log.Printf("Event channel closed")
}
