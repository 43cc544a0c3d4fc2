package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Saved is what a Persister remembers between runs.
type Saved struct {
	Shortcut string
	Proxy    *ProxyConfig
}

// Persister keeps settings across restarts.
type Persister interface {
	Load() (Saved, error)
	SaveShortcut(shortcut string) error
	SaveProxy(cfg ProxyConfig) error
}

// Nop remembers nothing.
type Nop struct{}

func (Nop) Load() (Saved, error)        { return Saved{}, nil }
func (Nop) SaveShortcut(string) error   { return nil }
func (Nop) SaveProxy(ProxyConfig) error { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const (
	keyShortcut = "shortcut"
	keyProxy    = "proxy"
)

// SQLite stores settings as key/value rows.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the settings database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure settings dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure settings database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Load() (Saved, error) {
	var saved Saved

	shortcut, ok, err := s.get(keyShortcut)
	if err != nil {
		return Saved{}, err
	}
	if ok {
		saved.Shortcut = shortcut
	}

	raw, ok, err := s.get(keyProxy)
	if err != nil {
		return Saved{}, err
	}
	if ok {
		var p ProxyConfig
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return Saved{}, fmt.Errorf("decode stored proxy: %w", err)
		}
		saved.Proxy = &p
	}
	return saved, nil
}

func (s *SQLite) SaveShortcut(shortcut string) error {
	return s.put(keyShortcut, shortcut)
}

func (s *SQLite) SaveProxy(cfg ProxyConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode proxy: %w", err)
	}
	return s.put(keyProxy, string(b))
}
