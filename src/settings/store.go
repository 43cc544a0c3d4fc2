package settings

import (
	"fmt"
	"log"
	"sync"

	"light-translator/src/hotkey"
	"light-translator/src/logutil"
)

// DefaultShortcut is bound when nothing else has been configured.
const DefaultShortcut = "CommandOrControl+Shift+X"

// ProxyConfig is the user's proxy choice as sent by the settings screen.
type ProxyConfig struct {
	Enabled  bool    `json:"enabled"`
	Protocol string  `json:"protocol"`
	Host     string  `json:"host"`
	Port     uint16  `json:"port"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (p ProxyConfig) String() string {
	user := ""
	if p.Username != nil {
		user = *p.Username + "@"
		if p.Password != nil {
			user = *p.Username + ":" + logutil.RedactSecret(*p.Password) + "@"
		}
	}
	return fmt.Sprintf("enabled=%v %s://%s%s:%d", p.Enabled, p.Protocol, user, p.Host, p.Port)
}

func (p ProxyConfig) clone() *ProxyConfig {
	c := p
	if p.Username != nil {
		u := *p.Username
		c.Username = &u
	}
	if p.Password != nil {
		pw := *p.Password
		c.Password = &pw
	}
	return &c
}

// Registrar is the OS hotkey subsystem.
type Registrar interface {
	Register(b hotkey.Binding, handler func()) error
	Unregister(b hotkey.Binding) error
}

// Store owns the active shortcut and proxy configuration. Each lock is held only for the
// single read or write it guards, never across hotkey registration or network I/O.
type Store struct {
	reg     Registrar
	persist Persister
	trigger func()

	shortcutMu sync.Mutex
	shortcut   string
	updateMu   sync.Mutex

	proxyMu sync.Mutex
	proxy   *ProxyConfig
}

// New creates a store. trigger is bound to every shortcut the store registers.
func New(reg Registrar, persist Persister, trigger func()) *Store {
	if persist == nil {
		persist = Nop{}
	}
	return &Store{reg: reg, persist: persist, trigger: trigger, shortcut: DefaultShortcut}
}

// UseDefault replaces the built-in shortcut. Call it before Restore so a saved shortcut still wins.
func (s *Store) UseDefault(shortcut string) {
	if shortcut != "" {
		s.setShortcut(shortcut)
	}
}

// Restore loads the persisted shortcut and proxy, keeping defaults for anything missing.
func (s *Store) Restore() error {
	saved, err := s.persist.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if saved.Shortcut != "" {
		s.setShortcut(saved.Shortcut)
	}
	if saved.Proxy != nil {
		s.proxyMu.Lock()
		s.proxy = saved.Proxy.clone()
		s.proxyMu.Unlock()
	}
	return nil
}

// Shortcut returns the committed shortcut string.
func (s *Store) Shortcut() string {
	s.shortcutMu.Lock()
	defer s.shortcutMu.Unlock()
	return s.shortcut
}

func (s *Store) setShortcut(v string) {
	s.shortcutMu.Lock()
	s.shortcut = v
	s.shortcutMu.Unlock()
}

// RegisterCurrent binds the committed shortcut at startup.
func (s *Store) RegisterCurrent() error {
	current := s.Shortcut()
	b, err := hotkey.Parse(current)
	if err != nil {
		return err
	}
	if err := s.reg.Register(b, s.trigger); err != nil {
		return fmt.Errorf("register %s: %w", current, err)
	}
	return nil
}

// UpdateShortcut replaces the registered shortcut. A malformed shortcut is rejected before
// anything is touched; a failed registration restores the previous binding. The new value is
// committed only after it has been registered.
func (s *Store) UpdateShortcut(next string) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	nb, err := hotkey.Parse(next)
	if err != nil {
		return err
	}

	old := s.Shortcut()
	ob, oldErr := hotkey.Parse(old)
	if oldErr != nil {
		log.Printf("settings: ignoring unparsable previous shortcut %q: %v", old, oldErr)
	} else if err := s.reg.Unregister(ob); err != nil {
		log.Printf("settings: unregister %s: %v", ob, err)
	}

	if err := s.reg.Register(nb, s.trigger); err != nil {
		if oldErr == nil {
			if rerr := s.reg.Register(ob, s.trigger); rerr != nil {
				log.Printf("settings: restoring %s failed: %v", ob, rerr)
			}
		}
		return fmt.Errorf("register %s: %w", next, err)
	}

	s.setShortcut(next)
	if err := s.persist.SaveShortcut(next); err != nil {
		log.Printf("settings: persist shortcut: %v", err)
	}
	log.Printf("settings: shortcut updated %q -> %q", old, next)
	return nil
}

// SetProxy replaces the proxy configuration. Reachability is not checked here.
func (s *Store) SetProxy(cfg ProxyConfig) {
	s.proxyMu.Lock()
	s.proxy = cfg.clone()
	s.proxyMu.Unlock()

	if err := s.persist.SaveProxy(cfg); err != nil {
		log.Printf("settings: persist proxy: %v", err)
	}
	log.Printf("settings: proxy set (%s)", cfg)
}

// Proxy returns a copy of the current proxy configuration, or nil when none was set.
func (s *Store) Proxy() *ProxyConfig {
	s.proxyMu.Lock()
	defer s.proxyMu.Unlock()
	if s.proxy == nil {
		return nil
	}
	return s.proxy.clone()
}
