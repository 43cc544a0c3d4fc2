package clipboard

import (
	"errors"
	"testing"
)

func TestSystemRoundTrip(t *testing.T) {
	if err := Init(); err != nil {
		t.Skipf("clipboard unavailable in this environment: %v", err)
	}
	var b Bridge = System{}
	if err := b.Write("light-translator test"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "light-translator test" {
		t.Logf("clipboard returned %q (another process may own the selection)", got)
	}
}

func TestMemoryEmptyReadsAsEmptyString(t *testing.T) {
	m := &Memory{}
	got, err := m.Read()
	if err != nil || got != "" {
		t.Fatalf("Read() = %q, %v; want empty, nil", got, err)
	}
	_ = m.Write("hello")
	if got, _ := m.Read(); got != "hello" {
		t.Errorf("Read() = %q, want hello", got)
	}
}

func TestMemoryReadError(t *testing.T) {
	m := &Memory{Err: errors.New("unavailable")}
	if _, err := m.Read(); err == nil {
		t.Fatal("expected error")
	}
}
