package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"light-translator/src/capture"
	"light-translator/src/dispatch"
	"light-translator/src/events"
	"light-translator/src/ocr"
	"light-translator/src/settings"
	"light-translator/src/surface"
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, spec dispatch.RequestSpec) dispatch.RequestResult
}

// OCR is satisfied by *ocr.Pipeline.
type OCR interface {
	capture.Recognizer
	ProbeDependencies(ctx context.Context) ocr.DependencyStatus
}

// Settings is satisfied by *settings.Store.
type Settings interface {
	UpdateShortcut(shortcut string) error
	Shortcut() string
	SetProxy(cfg settings.ProxyConfig)
}

// QuickText is satisfied by *capture.Orchestrator.
type QuickText interface {
	Ready(ctx context.Context) error
	Resized(width, height float64)
}

// Autostart is satisfied by *autostart.Entry.
type Autostart interface {
	Enable() error
	Disable() error
	Enabled() (bool, error)
}

// Subscriber is satisfied by *router.Router.
type Subscriber interface {
	Subscribe(label string, bufferSize int) (string, <-chan events.Envelope)
	Unsubscribe(id string)
	Labels() []string
}

// Deps are the services commands are routed to.
type Deps struct {
	Dispatcher Dispatcher
	OCR        OCR
	Settings   Settings
	Quick      surface.Window
	QuickText  QuickText
	Autostart  Autostart
	Events     Subscriber
}

type Config struct {
	// ListenAddr is the loopback address the UI layer connects to.
	ListenAddr string
}

// Server is the command-invocation channel between the UI layer and the native core:
// JSON commands over HTTP and pushed events over a WebSocket.
type Server struct {
	cfg      Config
	deps     Deps
	router   chi.Router
	upgrader websocket.Upgrader
	commands map[string]command
}

func New(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Loopback only; the UI is served from a custom scheme origin.
				return true
			},
		},
	}
	s.commands = s.commandTable()
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/commands/{name}", s.optionsHandler("POST"))
	r.Post("/commands/{name}", s.handleCommand)

	r.Get("/events", s.handleEvents)
	r.Get("/health", s.handleHealth)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("server: %s %s", r.Method, r.URL.Path)
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s,
		ReadTimeout: 15 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	labels := []string{}
	if s.deps.Events != nil {
		if l := s.deps.Events.Labels(); l != nil {
			labels = l
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "surfaces": labels})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "missing label query parameter")
		return
	}
	if s.deps.Events == nil {
		writeError(w, http.StatusServiceUnavailable, "events unavailable")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	id, ch := s.deps.Events.Subscribe(label, 16)
	defer s.deps.Events.Unsubscribe(id)
	log.Printf("server: surface %q connected (%s)", label, id)

	// The UI never sends on this socket; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case env, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("server: surface %q write: %v", label, err)
				return
			}
		case <-closed:
			log.Printf("server: surface %q disconnected (%s)", label, id)
			return
		}
	}
}
