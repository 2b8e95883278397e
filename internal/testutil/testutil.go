// Package testutil provides shared test helpers: an in-memory storage
// provider and pre-seeded catalog fixtures.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/storage"
	"github.com/starford/vitrine/internal/store"
)

// MemProvider is an in-memory storage.Provider with per-kind failure
// injection for exercising persistence error paths.
type MemProvider struct {
	mu       sync.Mutex
	data     map[storage.Kind][]byte
	FailSave map[storage.Kind]error
}

// NewMemProvider creates an empty provider.
func NewMemProvider() *MemProvider {
	return &MemProvider{
		data:     map[storage.Kind][]byte{},
		FailSave: map[storage.Kind]error{},
	}
}

// Get returns the stored payload, or nil when the kind was never saved.
func (m *MemProvider) Get(kind storage.Kind) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[kind], nil
}

// Save stores the payload, unless a failure is injected for the kind.
func (m *MemProvider) Save(kind storage.Kind, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailSave[kind]; err != nil {
		return fmt.Errorf("memprovider: %s: %w", kind, err)
	}
	m.data[kind] = append([]byte(nil), payload...)
	return nil
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore creates an empty store backed by a fresh MemProvider.
func NewStore(t *testing.T) (*store.Store, *MemProvider) {
	t.Helper()
	mem := NewMemProvider()
	s := store.New(mem, Logger())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, mem
}

// Fixture ids used by SeedCatalog.
const (
	CollectionID = "col_juegos"
	SectionID    = "sec_consolas"
	TypeID       = "type_juego"
	NameFieldID  = "fdef_nombre"
	GenreFieldID = "fdef_genero"
)

// SeedCatalog fills the store with a small catalog: one collection with
// one section, one item type (name + genre fields, genre filterable),
// and three items.
func SeedCatalog(t *testing.T, s *store.Store) {
	t.Helper()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	must(s.SaveCollection(models.Collection{ID: CollectionID, Name: "Juegos", Icon: "🎮"}))
	must(s.SaveSection(models.Section{ID: SectionID, CollectionID: CollectionID, Name: "Consolas"}))

	must(s.SaveFieldDefinition(models.FieldDefinition{
		ID: NameFieldID, Label: "Nombre", Key: "nombre",
		Type: models.FieldText, CollectionID: CollectionID,
		DefaultInNewTypes: true, DefaultMandatory: true, DefaultShowInList: true,
	}))
	must(s.SaveFieldDefinition(models.FieldDefinition{
		ID: GenreFieldID, Label: "Género", Key: "genero",
		Type: models.FieldSelect, Options: []string{"RPG", "Aventura", "Puzzle"},
	}))

	must(s.SaveType(models.ItemType{
		ID: TypeID, SectionID: SectionID, Name: "Juego",
		Fields: []models.FieldUsage{
			{FieldID: NameFieldID, Mandatory: true, ShowInList: true},
			{FieldID: GenreFieldID, Filterable: true},
		},
	}))

	items := []models.Item{
		{ID: "item_1", TypeID: TypeID, SectionID: SectionID,
			Data: map[string]any{"nombre": "Chrono Trigger", "genero": "RPG"}},
		{ID: "item_2", TypeID: TypeID, SectionID: SectionID,
			Data: map[string]any{"nombre": "Zelda", "genero": "Aventura"}},
		{ID: "item_3", TypeID: TypeID, SectionID: SectionID,
			Data: map[string]any{"nombre": "Persona 5", "genero": "RPG"}},
	}
	for _, it := range items {
		must(s.SaveItem(it))
	}
}
