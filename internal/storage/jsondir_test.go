package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempDir(t *testing.T) *JSONDir {
	t.Helper()
	dir, err := NewJSONDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONDir: %v", err)
	}
	return dir
}

func TestSaveAndGet(t *testing.T) {
	d := tempDir(t)
	payload := []byte(`[{"id":"col_1","name":"Juegos"}]`)
	if err := d.Save(KindCollections, payload); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := d.Get(KindCollections)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %q", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	d := tempDir(t)
	got, err := d.Get(KindItems)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing record set, got %q", got)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	d := tempDir(t)
	if err := d.Save(KindSettings, []byte(`{}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(d.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), "tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSaveOverwrites(t *testing.T) {
	d := tempDir(t)
	_ = d.Save(KindSections, []byte(`[1]`))
	if err := d.Save(KindSections, []byte(`[1,2]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := d.Get(KindSections)
	if string(got) != `[1,2]` {
		t.Errorf("payload = %q", got)
	}
}

func TestKindForPath(t *testing.T) {
	d := tempDir(t)
	kind, ok := d.KindForPath(filepath.Join(d.Root(), "items.json"))
	if !ok || kind != KindItems {
		t.Errorf("KindForPath = %q, %v", kind, ok)
	}
	if _, ok := d.KindForPath(filepath.Join(d.Root(), "bogus.json")); ok {
		t.Error("expected no kind for unknown file")
	}
	if _, ok := d.KindForPath(filepath.Join(d.Root(), "items.tmp")); ok {
		t.Error("expected no kind for non-json file")
	}
}

func TestNewJSONDirRejectsMissing(t *testing.T) {
	if _, err := NewJSONDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
