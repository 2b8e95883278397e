package storage

import (
	"path/filepath"
	"testing"
)

func tempSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRoundtrip(t *testing.T) {
	db := tempSQLite(t)
	payload := []byte(`[{"id":"item_1"}]`)
	if err := db.Save(KindItems, payload); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := db.Get(KindItems)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %q", got)
	}
}

func TestSQLiteMissingReturnsNil(t *testing.T) {
	db := tempSQLite(t)
	got, err := db.Get(KindUsers)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %q", got)
	}
}

func TestSQLiteUpsert(t *testing.T) {
	db := tempSQLite(t)
	_ = db.Save(KindSettings, []byte(`{"a":1}`))
	if err := db.Save(KindSettings, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := db.Get(KindSettings)
	if string(got) != `{"a":2}` {
		t.Errorf("payload = %q", got)
	}
}
