package capture

import (
	"context"
	"errors"
	"fmt"
	"log"

	"light-translator/src/events"
	"light-translator/src/ocr"
	"light-translator/src/surface"
)

// ErrCancelled means the user dismissed the area selection.
var ErrCancelled = errors.New("screen capture cancelled")

// Recognizer is satisfied by *ocr.Pipeline.
type Recognizer interface {
	CaptureScreen(ctx context.Context) (string, bool, error)
	OCRImage(ctx context.Context, encoded string) (ocr.Outcome, error)
}

// ScreenText lets the user select a screen area and returns the text recognized in it.
func ScreenText(ctx context.Context, rec Recognizer) (string, error) {
	img, ok, err := rec.CaptureScreen(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrCancelled
	}
	out, err := rec.OCRImage(ctx, img)
	if err != nil {
		return "", err
	}
	if !out.Success {
		msg := ""
		if out.Error != nil {
			msg = *out.Error
		}
		return "", fmt.Errorf("ocr failed: %s", msg)
	}
	if out.Text == nil {
		return "", nil
	}
	return *out.Text, nil
}

// PresentOCR brings the main surface forward and hands it the recognized text.
func PresentOCR(main surface.Window, emit surface.Emitter, text string) {
	_ = main.Show()
	_ = main.Focus()
	if err := emit.EmitTo(events.LabelMain, events.OCRResult, text); err != nil {
		log.Printf("capture: emit ocr result: %v", err)
	}
}
