package settings

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"light-translator/src/hotkey"
)

// fakeRegistrar mimics the OS hotkey subsystem: at most one binding at a time.
type fakeRegistrar struct {
	mu          sync.Mutex
	active      *hotkey.Binding
	handler     func()
	failOn      string
	unregisters int
}

func (f *fakeRegistrar) Register(b hotkey.Binding, handler func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active != nil {
		return hotkey.ErrAlreadyRegistered
	}
	if f.failOn != "" && b.String() == f.failOn {
		return errors.New("grab failed")
	}
	f.active = &b
	f.handler = handler
	return nil
}

func (f *fakeRegistrar) Unregister(b hotkey.Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregisters++
	if f.active == nil || *f.active != b {
		return hotkey.ErrNotRegistered
	}
	f.active = nil
	f.handler = nil
	return nil
}

func (f *fakeRegistrar) press() bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}

func (f *fakeRegistrar) registered() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return ""
	}
	return f.active.String()
}

func newTestStore(t *testing.T, reg *fakeRegistrar, p Persister) (*Store, *int) {
	t.Helper()
	triggers := 0
	s := New(reg, p, func() { triggers++ })
	if err := s.RegisterCurrent(); err != nil {
		t.Fatalf("RegisterCurrent: %v", err)
	}
	return s, &triggers
}

func TestUpdateShortcutReplacesBinding(t *testing.T) {
	reg := &fakeRegistrar{}
	s, triggers := newTestStore(t, reg, nil)

	if err := s.UpdateShortcut("Ctrl+Alt+Q"); err != nil {
		t.Fatalf("UpdateShortcut: %v", err)
	}
	if s.Shortcut() != "Ctrl+Alt+Q" {
		t.Errorf("Shortcut() = %q", s.Shortcut())
	}
	if got := reg.registered(); got != "Ctrl+Alt+Q" {
		t.Errorf("registered = %q, want Ctrl+Alt+Q", got)
	}
	if !reg.press() || *triggers != 1 {
		t.Error("new binding should trigger the orchestrator")
	}
}

func TestUpdateShortcutInvalidKeepsPreviousBinding(t *testing.T) {
	reg := &fakeRegistrar{}
	s, triggers := newTestStore(t, reg, nil)

	err := s.UpdateShortcut("Ctrl+Nope+")
	var pe *hotkey.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("UpdateShortcut error = %v, want *hotkey.ParseError", err)
	}
	if s.Shortcut() != DefaultShortcut {
		t.Errorf("Shortcut() = %q, want %q", s.Shortcut(), DefaultShortcut)
	}
	if got := reg.registered(); got != "Ctrl+Shift+X" {
		t.Errorf("registered = %q, want Ctrl+Shift+X", got)
	}
	if reg.unregisters != 0 {
		t.Errorf("unregister called %d times on invalid input", reg.unregisters)
	}
	if !reg.press() || *triggers != 1 {
		t.Error("previous binding should still trigger")
	}
}

func TestUpdateShortcutRegistrationFailureRestoresPrevious(t *testing.T) {
	reg := &fakeRegistrar{failOn: "Ctrl+Alt+Q"}
	s, _ := newTestStore(t, reg, nil)

	if err := s.UpdateShortcut("Ctrl+Alt+Q"); err == nil {
		t.Fatal("expected registration error")
	}
	if s.Shortcut() != DefaultShortcut {
		t.Errorf("Shortcut() = %q, want unchanged", s.Shortcut())
	}
	if got := reg.registered(); got != "Ctrl+Shift+X" {
		t.Errorf("registered = %q, want previous binding restored", got)
	}
}

func TestUpdateShortcutUnparsableOldIsIgnored(t *testing.T) {
	reg := &fakeRegistrar{}
	s := New(reg, nil, func() {})
	s.setShortcut("not a shortcut+")

	if err := s.UpdateShortcut("Alt+F5"); err != nil {
		t.Fatalf("UpdateShortcut: %v", err)
	}
	if got := reg.registered(); got != "Alt+F5" {
		t.Errorf("registered = %q", got)
	}
}

func TestSetProxyReplacesAndCopies(t *testing.T) {
	s := New(&fakeRegistrar{}, nil, nil)
	if s.Proxy() != nil {
		t.Fatal("expected no proxy before configuration")
	}
	user := "bob"
	s.SetProxy(ProxyConfig{Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: 8080, Username: &user})

	got := s.Proxy()
	if got == nil || got.Host != "127.0.0.1" || got.Port != 8080 || *got.Username != "bob" {
		t.Fatalf("Proxy() = %+v", got)
	}
	*got.Username = "mallory"
	if *s.Proxy().Username != "bob" {
		t.Error("Proxy() must return a copy")
	}

	s.SetProxy(ProxyConfig{Enabled: false})
	if s.Proxy().Enabled {
		t.Error("SetProxy should replace unconditionally")
	}
}

func TestSQLitePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	saved, err := db.Load()
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if saved.Shortcut != "" || saved.Proxy != nil {
		t.Fatalf("expected empty settings, got %+v", saved)
	}

	reg := &fakeRegistrar{}
	s, _ := newTestStore(t, reg, db)
	if err := s.UpdateShortcut("Super+T"); err != nil {
		t.Fatalf("UpdateShortcut: %v", err)
	}
	pw := "secret"
	s.SetProxy(ProxyConfig{Enabled: true, Protocol: "socks5", Host: "proxy.local", Port: 1080, Password: &pw})
	s.SetProxy(ProxyConfig{Enabled: true, Protocol: "http", Host: "proxy.local", Port: 3128})
	db.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	restored := New(&fakeRegistrar{}, reopened, nil)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Shortcut() != "Super+T" {
		t.Errorf("restored shortcut = %q", restored.Shortcut())
	}
	p := restored.Proxy()
	if p == nil || p.Protocol != "http" || p.Port != 3128 || p.Password != nil {
		t.Errorf("restored proxy = %+v", p)
	}
}

func TestProxyStringRedactsPassword(t *testing.T) {
	u, pw := "alice", "hunter2hunter2"
	s := ProxyConfig{Enabled: true, Protocol: "http", Host: "h", Port: 1, Username: &u, Password: &pw}.String()
	if want := "enabled=true http://alice:hunt...ter2@h:1"; s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
}

func TestUseDefaultYieldsToSavedShortcut(t *testing.T) {
	s := New(&fakeRegistrar{}, nil, nil)
	s.UseDefault("")
	if s.Shortcut() != DefaultShortcut {
		t.Errorf("empty default changed shortcut to %q", s.Shortcut())
	}
	s.UseDefault("Alt+T")
	if s.Shortcut() != "Alt+T" {
		t.Errorf("Shortcut() = %q, want Alt+T", s.Shortcut())
	}

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	if err := db.SaveShortcut("Super+T"); err != nil {
		t.Fatalf("SaveShortcut: %v", err)
	}

	restored := New(&fakeRegistrar{}, db, nil)
	restored.UseDefault("Alt+T")
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Shortcut() != "Super+T" {
		t.Errorf("Shortcut() = %q, want saved Super+T", restored.Shortcut())
	}
}
