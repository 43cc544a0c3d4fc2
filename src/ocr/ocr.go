package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"light-translator/src/gateway"
)

// DefaultLanguages is the tesseract language set requested for every recognition.
var DefaultLanguages = []string{"chi_sim", "chi_tra", "eng", "jpn", "kor"}

// InstallHint is returned by install_ocr_dependencies; installation is left to the user.
const InstallHint = "Please install OCR dependencies manually: sudo apt install tesseract-ocr tesseract-ocr-chi-sim tesseract-ocr-chi-tra tesseract-ocr-eng tesseract-ocr-jpn tesseract-ocr-kor gnome-screenshot xdotool"

// Outcome is the result of one recognition.
type Outcome struct {
	Success bool    `json:"success"`
	Text    *string `json:"text"`
	Error   *string `json:"error"`
}

// DependencyStatus reports which OCR tools are present.
type DependencyStatus struct {
	TesseractInstalled       bool     `json:"tesseractInstalled"`
	TesseractVersion         *string  `json:"tesseractVersion"`
	Languages                []string `json:"languages"`
	GnomeScreenshotInstalled bool     `json:"gnomeScreenshotInstalled"`
}

// Pipeline wires the screenshot tool and the OCR engine together through scratch files.
type Pipeline struct {
	shots     gateway.Screenshotter
	engine    gateway.OCREngine
	locator   gateway.Locator
	scratch   string
	languages []string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithScratchDir sets where temporary images are written. Defaults to os.TempDir().
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.scratch = dir
		}
	}
}

// WithLanguages overrides the recognition language set.
func WithLanguages(langs []string) Option {
	return func(p *Pipeline) {
		if len(langs) > 0 {
			p.languages = append([]string(nil), langs...)
		}
	}
}

func New(shots gateway.Screenshotter, engine gateway.OCREngine, locator gateway.Locator, opts ...Option) *Pipeline {
	p := &Pipeline{
		shots:     shots,
		engine:    engine,
		locator:   locator,
		scratch:   os.TempDir(),
		languages: DefaultLanguages,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewSystem builds a pipeline backed by the real gnome-screenshot, tesseract and which.
func NewSystem(r gateway.Runner, opts ...Option) *Pipeline {
	return New(gateway.Gnome{Runner: r}, gateway.Tesseract{Runner: r}, gateway.Which{Runner: r}, opts...)
}

// Languages returns the language set passed to the engine.
func (p *Pipeline) Languages() []string {
	return append([]string(nil), p.languages...)
}

func (p *Pipeline) scratchPath(kind string) string {
	return filepath.Join(p.scratch, fmt.Sprintf("lt-%s-%s.png", kind, uuid.NewString()))
}

func removeScratch(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ocr: cleanup %s: %v", path, err)
	}
}

// CaptureScreen lets the user select a screen area and returns it as a PNG data URL.
// ok is false when the user cancelled or nothing was written.
func (p *Pipeline) CaptureScreen(ctx context.Context) (string, bool, error) {
	path := p.scratchPath("capture")
	defer removeScratch(path)

	res, err := p.shots.CaptureArea(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("failed to run gnome-screenshot: %w", err)
	}
	if !res.Success {
		log.Printf("ocr: screenshot cancelled (exit %d)", res.ExitCode)
		return "", false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("ocr: screenshot produced no file")
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read screenshot: %w", err)
	}
	log.Printf("ocr: captured %d bytes", len(data))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), true, nil
}

// OCRImage recognizes text in a base64 image, with or without a data URL prefix.
func (p *Pipeline) OCRImage(ctx context.Context, encoded string) (Outcome, error) {
	data, err := base64.StdEncoding.DecodeString(StripDataURL(encoded))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to decode base64: %w", err)
	}

	path := p.scratchPath("ocr")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Outcome{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	defer removeScratch(path)

	res, err := p.engine.Recognize(ctx, path, p.languages)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to run tesseract: %w", err)
	}
	if !res.Success {
		msg := string(res.Stderr)
		log.Printf("ocr: tesseract exited %d", res.ExitCode)
		return Outcome{Success: false, Error: &msg}, nil
	}

	text := CleanText(string(res.Stdout))
	log.Printf("ocr: recognized %d characters", len(text))
	return Outcome{Success: true, Text: &text}, nil
}

// ProbeDependencies reports tool availability. Every failure degrades to "not installed".
func (p *Pipeline) ProbeDependencies(ctx context.Context) DependencyStatus {
	status := DependencyStatus{Languages: []string{}}

	if res, err := p.engine.Version(ctx); err == nil && res.Success {
		status.TesseractInstalled = true
		v := ""
		if ls := lines(string(res.Stdout)); len(ls) > 0 {
			v = ls[0]
		}
		status.TesseractVersion = &v
	}

	if status.TesseractInstalled {
		if res, err := p.engine.ListLanguages(ctx); err == nil && res.Success {
			if ls := lines(string(res.Stdout)); len(ls) > 1 {
				status.Languages = append(status.Languages, ls[1:]...)
			}
		}
	}

	status.GnomeScreenshotInstalled = p.locator.Which(ctx, gateway.GnomeScreenshot)
	return status
}

// StripDataURL drops everything up to and including the first comma, if any.
func StripDataURL(s string) string {
	if _, rest, ok := strings.Cut(s, ","); ok {
		return rest
	}
	return s
}

// CleanText drops blank lines and joins the rest with single spaces.
func CleanText(s string) string {
	var parts []string
	for _, line := range lines(s) {
		if strings.TrimSpace(line) != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// lines splits on \n, trimming a trailing \r per line and ignoring the final empty line.
func lines(s string) []string {
	if s == "" {
		return nil
	}
	out := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}
