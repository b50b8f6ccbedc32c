package vsi

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signals.vsi")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTemp(t, "1.0\ntransmission.gear 1\ncar.backup 2\n")
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != 1.0 {
		t.Errorf("version = %v", m.Version)
	}
	id, ok := m.Lookup("transmission.gear")
	if !ok || id != 1 {
		t.Errorf("Lookup = %v, %v", id, ok)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d", m.Len())
	}
}

func TestLoadMalformedLine(t *testing.T) {
	path := writeTemp(t, "1.0\nbad-line-no-id\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestLoadMalformedVersion(t *testing.T) {
	path := writeTemp(t, "not-a-version\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed version")
	}
}
