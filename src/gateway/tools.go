package gateway

import (
	"context"
	"strings"
)

// Tool names of the single supported desktop environment (X11 + GNOME).
const (
	Xdotool         = "xdotool"
	GnomeScreenshot = "gnome-screenshot"
	TesseractBin    = "tesseract"
	WhichBin        = "which"
)

// Keyboard injects keystrokes.
type Keyboard interface {
	SendCopy(ctx context.Context) (Result, error)
}

// Pointer reports the on-screen cursor location as raw tool output.
type Pointer interface {
	Location(ctx context.Context) (string, error)
}

// Windows activates windows by title search.
type Windows interface {
	ActivateByTitle(ctx context.Context, title string) (Result, error)
}

// Screenshotter captures an interactively selected screen area into path.
type Screenshotter interface {
	CaptureArea(ctx context.Context, path string) (Result, error)
}

// OCREngine recognizes text in image files.
type OCREngine interface {
	Recognize(ctx context.Context, path string, languages []string) (Result, error)
	Version(ctx context.Context) (Result, error)
	ListLanguages(ctx context.Context) (Result, error)
}

// Locator checks whether a tool is on PATH.
type Locator interface {
	Which(ctx context.Context, tool string) bool
}

// XdoTool implements Keyboard, Pointer and Windows on top of xdotool.
type XdoTool struct {
	Runner Runner
}

func (x XdoTool) SendCopy(ctx context.Context) (Result, error) {
	return x.Runner.Run(ctx, Xdotool, "key", "--clearmodifiers", "ctrl+c")
}

func (x XdoTool) Location(ctx context.Context) (string, error) {
	res, err := x.Runner.Run(ctx, Xdotool, "getmouselocation")
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}

func (x XdoTool) ActivateByTitle(ctx context.Context, title string) (Result, error) {
	return x.Runner.Run(ctx, Xdotool, "search", "--name", title, "windowactivate")
}

// Gnome implements Screenshotter with gnome-screenshot's area mode.
type Gnome struct {
	Runner Runner
}

func (g Gnome) CaptureArea(ctx context.Context, path string) (Result, error) {
	return g.Runner.Run(ctx, GnomeScreenshot, "-a", "-f", path)
}

// Tesseract implements OCREngine with the tesseract CLI.
type Tesseract struct {
	Runner Runner
}

func (t Tesseract) Recognize(ctx context.Context, path string, languages []string) (Result, error) {
	args := []string{path, "stdout"}
	if len(languages) > 0 {
		args = append(args, "-l", strings.Join(languages, "+"))
	}
	return t.Runner.Run(ctx, TesseractBin, args...)
}

func (t Tesseract) Version(ctx context.Context) (Result, error) {
	return t.Runner.Run(ctx, TesseractBin, "--version")
}

func (t Tesseract) ListLanguages(ctx context.Context) (Result, error) {
	return t.Runner.Run(ctx, TesseractBin, "--list-langs")
}

// Which implements Locator using the which command.
type Which struct {
	Runner Runner
}

func (w Which) Which(ctx context.Context, tool string) bool {
	res, err := w.Runner.Run(ctx, WhichBin, tool)
	return err == nil && res.Success
}
