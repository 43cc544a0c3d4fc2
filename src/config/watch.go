package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events an editor produces for one save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the configuration whenever the env file at path is written or replaced and
// passes the result to fn. It returns once the watcher is running; watching stops with ctx.
func Watch(ctx context.Context, path string, opts LoadOptions, fn func(*Config)) error {
	if path == "" {
		return fmt.Errorf("watch config: no env file")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	// Watch the directory: editors often save by renaming a temp file over the original.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	opts.EnvFileOverride = abs

	go func() {
		defer w.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			case <-fire:
				fire = nil
				cfg, err := LoadWithOptions(opts)
				if err != nil {
					log.Printf("config: reload %s: %v", abs, err)
					continue
				}
				log.Printf("config: reloaded %s", abs)
				fn(cfg)
			}
		}
	}()
	return nil
}
