package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"light-translator/src/events"
)

// ErrNoSubscriber is returned by Send when nobody listens on the label.
var ErrNoSubscriber = errors.New("no subscriber")

// sendTimeout bounds how long Send waits on one slow subscriber.
const sendTimeout = time.Second

type retainedEnv struct {
	key string
	env events.Envelope
}

type subscription struct {
	id    string
	label string
	ch    chan events.Envelope
}

// Router fans event envelopes out to the subscribers of each surface label. The latest window
// state per label is kept and replayed to subscribers that arrive after it was sent.
type Router struct {
	subs     map[string]*subscription
	retained map[string][]retainedEnv
	mu       sync.RWMutex
	retainMu sync.Mutex // guards retained; taken inside mu
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRouter creates a new event router
func NewRouter() *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		subs:     make(map[string]*subscription),
		retained: make(map[string][]retainedEnv),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers a listener for label ("*" receives every envelope).
func (r *Router) Subscribe(label string, bufferSize int) (string, <-chan events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &subscription{
		id:    uuid.NewString(),
		label: label,
		ch:    make(chan events.Envelope, bufferSize),
	}
	r.subs[s.id] = s
	log.Printf("Router: %s subscribed to %q (buffer %d)", s.id, label, bufferSize)
	r.replay(s)
	return s.id, s.ch
}

// replay pushes the retained window state for s.label into its buffer, oldest first.
// Caller holds r.mu for writing.
func (r *Router) replay(s *subscription) {
	r.retainMu.Lock()
	defer r.retainMu.Unlock()

	var labels []string
	if s.label == events.LabelAll {
		for l := range r.retained {
			labels = append(labels, l)
		}
		sort.Strings(labels)
	} else {
		labels = []string{s.label}
	}
	for _, l := range labels {
		for _, kept := range r.retained[l] {
			select {
			case s.ch <- kept.env:
			default:
				log.Printf("Router: %s buffer full, dropped retained %s for %q", s.id, kept.key, l)
			}
		}
	}
}

// retain records env as the current value of its slot, dropping what it supersedes.
func (r *Router) retain(env events.Envelope) bool {
	key, clears, ok := events.RetainKey(env)
	if !ok || env.Label == events.LabelAll {
		return false
	}
	r.retainMu.Lock()
	defer r.retainMu.Unlock()

	kept := r.retained[env.Label][:0:0]
	for _, k := range r.retained[env.Label] {
		if k.key == key || slices.Contains(clears, k.key) {
			continue
		}
		kept = append(kept, k)
	}
	r.retained[env.Label] = append(kept, retainedEnv{key: key, env: env})
	return true
}

// Unsubscribe removes a listener and closes its channel.
func (r *Router) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.subs[id]; ok {
		close(s.ch)
		delete(r.subs, id)
		log.Printf("Router: %s unsubscribed from %q", id, s.label)
	}
}

// Send delivers env to every subscriber of env.Label. Delivery to one subscriber gives up
// after a short timeout; the envelope is dropped for that subscriber only. Window state sent
// while nobody listens is retained for the next subscriber instead of failing.
func (r *Router) Send(env events.Envelope) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wasRetained := r.retain(env)

	log.Printf("Router: -> %s: %s", env.Label, env.Event)

	var targets []*subscription
	for _, s := range r.subs {
		if env.Label == events.LabelAll || s.label == events.LabelAll || s.label == env.Label {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		if wasRetained {
			log.Printf("Router: no subscriber on %q yet, retained %s", env.Label, env.Event)
			return nil
		}
		return fmt.Errorf("send %s to %q: %w", env.Event, env.Label, ErrNoSubscriber)
	}

	var timeouts []string
	for _, s := range targets {
		select {
		case s.ch <- env:
		case <-time.After(sendTimeout):
			timeouts = append(timeouts, s.id)
		case <-r.ctx.Done():
			return fmt.Errorf("router is shutting down")
		}
	}
	if len(timeouts) == len(targets) {
		return fmt.Errorf("timeout sending %s to %q", env.Event, env.Label)
	}
	if len(timeouts) > 0 {
		log.Printf("Router: timeouts delivering %s: %v", env.Event, timeouts)
	}
	return nil
}

// Labels returns the distinct labels with at least one subscriber.
func (r *Router) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var labels []string
	for _, s := range r.subs {
		if !seen[s.label] {
			seen[s.label] = true
			labels = append(labels, s.label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Shutdown closes every subscription.
func (r *Router) Shutdown() {
	log.Printf("Router: Shutting down...")

	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.subs {
		close(s.ch)
		delete(r.subs, id)
	}
	r.retainMu.Lock()
	clear(r.retained)
	r.retainMu.Unlock()
	log.Printf("Router: Shutdown complete")
}

// WaitForEvent waits for a specific event name from a channel with timeout
func WaitForEvent(ch <-chan events.Envelope, event string, timeout time.Duration) (events.Envelope, error) {
	deadline := time.After(timeout)

	for {
		select {
		case env, ok := <-ch:
			if !ok {
				return events.Envelope{}, fmt.Errorf("channel closed waiting for %s", event)
			}
			if env.Event == event {
				return env, nil
			}
		case <-deadline:
			return events.Envelope{}, fmt.Errorf("timeout waiting for event %s", event)
		}
	}
}

// DrainChannel drains all buffered envelopes from a channel
func DrainChannel(ch <-chan events.Envelope) int {
	count := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}
