package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	entry := filepath.Join(dir, "main.mvs")
	if err := os.WriteFile(entry, []byte("1"), 0o644); err != nil {
		t.Fatalf("failed to write entry file: %v", err)
	}
	if content != "" {
		if err := os.WriteFile(filepath.Join(dir, "mvsc.jsonc"), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}
	}
	return entry
}

func TestLoadMissingManifestIsNotAnError(t *testing.T) {
	entry := writeManifest(t, t.TempDir(), "")
	m, ok, err := Load(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a missing manifest, got %+v", m)
	}
}

func TestLoadParsesJSONCWithCommentsAndTrailingCommas(t *testing.T) {
	entry := writeManifest(t, t.TempDir(), `{
  "version": "1.4.0", // a comment
  "maxStackArraySize": 128,
  "optimize": false,
}`)
	m, ok, err := Load(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if m.Version != "1.4.0" {
		t.Fatalf("expected version 1.4.0, got %q", m.Version)
	}
	if m.MaxStackArraySize == nil || *m.MaxStackArraySize != 128 {
		t.Fatalf("expected maxStackArraySize 128, got %v", m.MaxStackArraySize)
	}
	if m.Optimize == nil || *m.Optimize != false {
		t.Fatalf("expected optimize false, got %v", m.Optimize)
	}
}

func TestLoadRejectsInvalidVersion(t *testing.T) {
	entry := writeManifest(t, t.TempDir(), `{"version": "not-a-version"}`)
	_, _, err := Load(entry)
	if err == nil {
		t.Fatalf("expected an error for an invalid semantic version")
	}
}

func TestLoadAcceptsPlainSemverWithoutVPrefix(t *testing.T) {
	entry := writeManifest(t, t.TempDir(), `{"version": "2.0.0"}`)
	m, ok, err := Load(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || m.Version != "2.0.0" {
		t.Fatalf("expected version 2.0.0, got %+v (ok=%v)", m, ok)
	}
}
