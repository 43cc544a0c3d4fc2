package gateway

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"
)

func TestExecRunnerNonZeroExitIsNotAnError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	res, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2; exit 3")
	if err != nil {
		t.Fatalf("expected no error for non-zero exit, got %v", err)
	}
	if res.Success {
		t.Fatal("expected Success=false")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if string(res.Stdout) != "out\n" || string(res.Stderr) != "err\n" {
		t.Errorf("unexpected output stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	res, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || string(res.Stdout) != "hello" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExecRunnerMissingBinaryIsLaunchError(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-tool-lt")
	if err == nil {
		t.Fatal("expected launch error")
	}
	var le *LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LaunchError, got %T", err)
	}
	if le.Command != "definitely-not-a-real-tool-lt" {
		t.Errorf("Command = %q", le.Command)
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to be true")
	}
}

type call struct {
	name string
	args []string
}

type recorder struct {
	calls []call
	res   Result
	err   error
}

func (r *recorder) Run(ctx context.Context, name string, args ...string) (Result, error) {
	r.calls = append(r.calls, call{name: name, args: args})
	return r.res, r.err
}

func TestToolArguments(t *testing.T) {
	tests := []struct {
		name     string
		invoke   func(r Runner)
		wantName string
		wantArgs []string
	}{
		{
			name:     "copy keystroke",
			invoke:   func(r Runner) { _, _ = XdoTool{Runner: r}.SendCopy(context.Background()) },
			wantName: Xdotool,
			wantArgs: []string{"key", "--clearmodifiers", "ctrl+c"},
		},
		{
			name:     "cursor location",
			invoke:   func(r Runner) { _, _ = XdoTool{Runner: r}.Location(context.Background()) },
			wantName: Xdotool,
			wantArgs: []string{"getmouselocation"},
		},
		{
			name: "window activation",
			invoke: func(r Runner) {
				_, _ = XdoTool{Runner: r}.ActivateByTitle(context.Background(), "Quick Translate")
			},
			wantName: Xdotool,
			wantArgs: []string{"search", "--name", "Quick Translate", "windowactivate"},
		},
		{
			name:     "area screenshot",
			invoke:   func(r Runner) { _, _ = Gnome{Runner: r}.CaptureArea(context.Background(), "/tmp/x.png") },
			wantName: GnomeScreenshot,
			wantArgs: []string{"-a", "-f", "/tmp/x.png"},
		},
		{
			name: "ocr",
			invoke: func(r Runner) {
				_, _ = Tesseract{Runner: r}.Recognize(context.Background(), "/tmp/x.png", []string{"eng", "jpn"})
			},
			wantName: TesseractBin,
			wantArgs: []string{"/tmp/x.png", "stdout", "-l", "eng+jpn"},
		},
		{
			name:     "ocr version",
			invoke:   func(r Runner) { _, _ = Tesseract{Runner: r}.Version(context.Background()) },
			wantName: TesseractBin,
			wantArgs: []string{"--version"},
		},
		{
			name:     "ocr languages",
			invoke:   func(r Runner) { _, _ = Tesseract{Runner: r}.ListLanguages(context.Background()) },
			wantName: TesseractBin,
			wantArgs: []string{"--list-langs"},
		},
		{
			name:     "which",
			invoke:   func(r Runner) { Which{Runner: r}.Which(context.Background(), GnomeScreenshot) },
			wantName: WhichBin,
			wantArgs: []string{GnomeScreenshot},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{res: Result{Success: true}}
			tt.invoke(r)
			if len(r.calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(r.calls))
			}
			if r.calls[0].name != tt.wantName {
				t.Errorf("name = %q, want %q", r.calls[0].name, tt.wantName)
			}
			if !reflect.DeepEqual(r.calls[0].args, tt.wantArgs) {
				t.Errorf("args = %q, want %q", r.calls[0].args, tt.wantArgs)
			}
		})
	}
}

func TestWhichFalseOnFailure(t *testing.T) {
	if (Which{Runner: &recorder{res: Result{Success: false, ExitCode: 1}}}).Which(context.Background(), "x") {
		t.Error("expected false for non-zero exit")
	}
	if (Which{Runner: &recorder{err: &LaunchError{Command: WhichBin, Err: exec.ErrNotFound}}}).Which(context.Background(), "x") {
		t.Error("expected false for launch failure")
	}
}
