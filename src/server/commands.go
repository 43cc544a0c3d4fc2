package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"light-translator/src/dispatch"
	"light-translator/src/hotkey"
	"light-translator/src/ocr"
	"light-translator/src/settings"
)

// command runs one named invocation. args is the raw JSON object of named arguments.
type command func(ctx context.Context, args json.RawMessage) (any, error)

// argsError marks malformed arguments, reported as 400.
type argsError struct{ err error }

func (e *argsError) Error() string { return "invalid arguments: " + e.err.Error() }
func (e *argsError) Unwrap() error { return e.err }

func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &argsError{err: err}
	}
	return nil
}

func (s *Server) commandTable() map[string]command {
	return map[string]command{
		"proxy_request":            s.proxyRequest,
		"capture_screen":           s.captureScreen,
		"ocr_image":                s.ocrImage,
		"check_ocr_dependencies":   s.checkOCRDependencies,
		"install_ocr_dependencies": s.installOCRDependencies,
		"update_shortcut":          s.updateShortcut,
		"get_shortcut":             s.getShortcut,
		"set_proxy":                s.setProxy,
		"quick_window_ready":       s.quickWindowReady,
		"close_quick_window":       s.closeQuickWindow,
		"resize_quick_window":      s.resizeQuickWindow,
		"set_auto_launch":          s.setAutoLaunch,
		"get_auto_launch":          s.getAutoLaunch,
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cmd, ok := s.commands[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown command %q", name))
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := s.invoke(r.Context(), name, cmd, raw)
	if err != nil {
		status := http.StatusInternalServerError
		var ae *argsError
		var pe *hotkey.ParseError
		if errors.As(err, &ae) || errors.As(err, &pe) {
			status = http.StatusBadRequest
		}
		log.Printf("server: command %s failed: %v", name, err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// invoke keeps a panicking command from taking the resident down.
func (s *Server) invoke(ctx context.Context, name string, cmd command, raw json.RawMessage) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("server: command %s panicked: %v", name, rec)
			err = fmt.Errorf("%s: internal error", name)
		}
	}()
	return cmd(ctx, raw)
}

func (s *Server) proxyRequest(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		URL     string            `json:"url"`
		Options *dispatch.Options `json:"options"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return s.deps.Dispatcher.Dispatch(ctx, dispatch.NewSpec(args.URL, args.Options)), nil
}

func (s *Server) captureScreen(ctx context.Context, _ json.RawMessage) (any, error) {
	img, ok, err := s.deps.OCR.CaptureScreen(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return img, nil
}

func (s *Server) ocrImage(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Base64Image string `json:"base64Image"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return s.deps.OCR.OCRImage(ctx, args.Base64Image)
}

func (s *Server) checkOCRDependencies(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.deps.OCR.ProbeDependencies(ctx), nil
}

func (s *Server) installOCRDependencies(context.Context, json.RawMessage) (any, error) {
	return nil, errors.New(ocr.InstallHint)
}

func (s *Server) updateShortcut(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Shortcut string `json:"shortcut"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := s.deps.Settings.UpdateShortcut(args.Shortcut); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) getShortcut(context.Context, json.RawMessage) (any, error) {
	return s.deps.Settings.Shortcut(), nil
}

func (s *Server) setProxy(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Settings *settings.ProxyConfig `json:"settings"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Settings == nil {
		return nil, &argsError{err: errors.New("missing settings")}
	}
	s.deps.Settings.SetProxy(*args.Settings)
	return nil, nil
}

func (s *Server) quickWindowReady(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, s.deps.QuickText.Ready(ctx)
}

func (s *Server) closeQuickWindow(context.Context, json.RawMessage) (any, error) {
	return nil, s.deps.Quick.Hide()
}

func (s *Server) resizeQuickWindow(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Dimensions *struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"dimensions"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Dimensions == nil {
		return nil, &argsError{err: errors.New("missing dimensions")}
	}
	d := args.Dimensions
	if err := s.deps.Quick.SetSize(d.Width, d.Height); err != nil {
		return nil, err
	}
	s.deps.QuickText.Resized(d.Width, d.Height)
	return nil, nil
}

func (s *Server) setAutoLaunch(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Enabled {
		return nil, s.deps.Autostart.Enable()
	}
	return nil, s.deps.Autostart.Disable()
}

func (s *Server) getAutoLaunch(context.Context, json.RawMessage) (any, error) {
	return s.deps.Autostart.Enabled()
}
