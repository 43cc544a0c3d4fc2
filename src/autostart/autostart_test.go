package autostart

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// The autostart directory is read from XDG_CONFIG_HOME when the process starts, so the
// round trip runs in a child test process pointed at a temporary config home.
const childEnv = "LIGHT_TRANSLATOR_AUTOSTART_CHILD"

func runInChild(t *testing.T, name string) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("XDG autostart entries are Linux only")
	}
	base := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^"+name+"$", "-test.v")
	cmd.Env = append(os.Environ(), childEnv+"=1", "XDG_CONFIG_HOME="+base, "HOME="+base)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("child %s failed: %v\n%s", name, err, out)
	}
	return base
}

func entryPath() string {
	return filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "autostart", appName+".desktop")
}

func TestEnableDisableRoundTrip(t *testing.T) {
	if os.Getenv(childEnv) == "" {
		base := runInChild(t, "TestEnableDisableRoundTrip")
		if _, err := os.Stat(filepath.Join(base, "autostart", appName+".desktop")); !os.IsNotExist(err) {
			t.Errorf("entry left behind after Disable: %v", err)
		}
		return
	}

	e := &Entry{Exec: "/opt/light translator/bin"}
	on, err := e.Enabled()
	if err != nil || on {
		t.Fatalf("Enabled before = %v, %v", on, err)
	}
	if err := e.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if on, _ := e.Enabled(); !on {
		t.Fatal("entry should exist after Enable")
	}

	b, err := os.ReadFile(entryPath())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Name=" + displayName, "/opt/light translator/bin", "--hidden"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("entry missing %q:\n%s", want, b)
		}
	}

	if err := e.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if on, _ := e.Enabled(); on {
		t.Error("entry should be gone after Disable")
	}
	if err := e.Disable(); err != nil {
		t.Errorf("second Disable: %v", err)
	}
}

func TestEnableLeavesEntryUnderConfigHome(t *testing.T) {
	if os.Getenv(childEnv) == "" {
		base := runInChild(t, "TestEnableLeavesEntryUnderConfigHome")
		if _, err := os.Stat(filepath.Join(base, "autostart", appName+".desktop")); err != nil {
			t.Errorf("entry not under XDG_CONFIG_HOME: %v", err)
		}
		return
	}

	if err := (&Entry{Exec: "/usr/bin/light-translator"}).Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
}

func TestForExecutableResolvesBinary(t *testing.T) {
	e, err := ForExecutable()
	if err != nil {
		t.Fatalf("ForExecutable: %v", err)
	}
	if !filepath.IsAbs(e.Exec) {
		t.Errorf("Exec = %q, want an absolute path", e.Exec)
	}
}
