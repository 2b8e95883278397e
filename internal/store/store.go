// Package store holds the single authoritative in-memory snapshot of
// every catalog record-set. All mutation is funneled through its
// methods: each one updates the snapshot, persists the full record-set
// for the affected kind, and only then notifies subscribers.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vitrine/internal/apperr"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/storage"
)

// Subscriber is called with the kind of the record-set that changed,
// strictly after the change has been persisted.
type Subscriber func(kind storage.Kind)

// Store is the process-wide entity store. Initialize once with Load.
type Store struct {
	provider storage.Provider
	logger   *slog.Logger

	mu   sync.RWMutex
	snap snapshot

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int
}

type snapshot struct {
	Collections      []models.Collection
	Sections         []models.Section
	ItemTypes        []models.ItemType
	Items            []models.Item
	FieldDefinitions []models.FieldDefinition
	Users            []models.User
	Barcodes         []models.Barcode
	Settings         models.Settings
}

// New creates a Store over the given provider. Call Load before use.
func New(provider storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		provider: provider,
		logger:   logger,
		subs:     make(map[int]Subscriber),
	}
}

// Load fetches every record-set from the provider in parallel and
// populates the snapshot. Absent record-sets load as empty; Load only
// fails on unreadable or corrupt payloads.
func (s *Store) Load(ctx context.Context) error {
	var next snapshot

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return s.fetch(storage.KindCollections, &next.Collections) })
	g.Go(func() error { return s.fetch(storage.KindSections, &next.Sections) })
	g.Go(func() error { return s.fetch(storage.KindTypes, &next.ItemTypes) })
	g.Go(func() error { return s.fetch(storage.KindItems, &next.Items) })
	g.Go(func() error { return s.fetch(storage.KindFields, &next.FieldDefinitions) })
	g.Go(func() error { return s.fetch(storage.KindUsers, &next.Users) })
	g.Go(func() error { return s.fetch(storage.KindBarcodes, &next.Barcodes) })
	g.Go(func() error { return s.fetch(storage.KindSettings, &next.Settings) })
	if err := g.Wait(); err != nil {
		return err
	}
	if next.Settings == nil {
		next.Settings = models.Settings{}
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	s.logger.Info("store: loaded",
		slog.Int("collections", len(next.Collections)),
		slog.Int("sections", len(next.Sections)),
		slog.Int("types", len(next.ItemTypes)),
		slog.Int("items", len(next.Items)),
		slog.Int("fields", len(next.FieldDefinitions)),
		slog.Int("users", len(next.Users)))
	return nil
}

func (s *Store) fetch(kind storage.Kind, target any) error {
	payload, err := s.provider.Get(kind)
	if err != nil {
		return fmt.Errorf("store: load %s: %w", kind, err)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("store: decode %s: %w", kind, err)
	}
	return nil
}

// Subscribe registers a change callback and returns its unsubscribe
// function.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(kind storage.Kind) {
	s.subMu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(kind)
	}
}

// persistLocked marshals and saves one record-set. Caller holds mu.
func (s *Store) persistLocked(kind storage.Kind, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", kind, err)
	}
	if err := s.provider.Save(kind, payload); err != nil {
		return fmt.Errorf("store: persist %s: %w", kind, err)
	}
	return nil
}

// upsertByID replaces the element with the same id, else appends.
func upsertByID[T any](arr []T, record T, id func(T) string) []T {
	out := make([]T, len(arr))
	copy(out, arr)
	for i := range out {
		if id(out[i]) == id(record) {
			out[i] = record
			return out
		}
	}
	return append(out, record)
}

// removeByID filters out the element with the given id. The second
// return reports whether anything was removed.
func removeByID[T any](arr []T, target string, id func(T) string) ([]T, bool) {
	out := make([]T, 0, len(arr))
	removed := false
	for _, e := range arr {
		if id(e) == target {
			removed = true
			continue
		}
		out = append(out, e)
	}
	return out, removed
}

// --- Collections ---

// SaveCollection upserts a collection: full replace when the id is
// known, append otherwise.
func (s *Store) SaveCollection(c models.Collection) error {
	s.mu.Lock()
	next := upsertByID(s.snap.Collections, c, func(x models.Collection) string { return x.ID })
	if err := s.persistLocked(storage.KindCollections, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap.Collections = next
	s.mu.Unlock()
	s.notify(storage.KindCollections)
	return nil
}

// ReplaceCollections overwrites the whole record-set (bulk reorder).
func (s *Store) ReplaceCollections(cols []models.Collection) error {
	return s.replaceAll(storage.KindCollections, cols, func(sn *snapshot) { sn.Collections = cols })
}

// --- Sections ---

// SaveSection upserts a section.
func (s *Store) SaveSection(sec models.Section) error {
	s.mu.Lock()
	next := upsertByID(s.snap.Sections, sec, func(x models.Section) string { return x.ID })
	if err := s.persistLocked(storage.KindSections, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap.Sections = next
	s.mu.Unlock()
	s.notify(storage.KindSections)
	return nil
}

// ReplaceSections overwrites the whole record-set (bulk reorder).
func (s *Store) ReplaceSections(secs []models.Section) error {
	return s.replaceAll(storage.KindSections, secs, func(sn *snapshot) { sn.Sections = secs })
}

// --- Item types ---

// SaveType upserts an item type.
func (s *Store) SaveType(t models.ItemType) error {
	s.mu.Lock()
	next := upsertByID(s.snap.ItemTypes, t, func(x models.ItemType) string { return x.ID })
	if err := s.persistLocked(storage.KindTypes, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap.ItemTypes = next
	s.mu.Unlock()
	s.notify(storage.KindTypes)
	return nil
}

// ReplaceTypes overwrites the whole record-set (bulk reorder).
func (s *Store) ReplaceTypes(types []models.ItemType) error {
	return s.replaceAll(storage.KindTypes, types, func(sn *snapshot) { sn.ItemTypes = types })
}

// --- Items ---

// SaveItem upserts an item.
func (s *Store) SaveItem(item models.Item) error {
	s.mu.Lock()
	next := upsertByID(s.snap.Items, item, func(x models.Item) string { return x.ID })
	if err := s.persistLocked(storage.KindItems, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap.Items = next
	s.mu.Unlock()
	s.notify(storage.KindItems)
	return nil
}

// --- Field definitions ---

// SaveFieldDefinition upserts a field definition.
func (s *Store) SaveFieldDefinition(def models.FieldDefinition) error {
	s.mu.Lock()
	next := upsertByID(s.snap.FieldDefinitions, def, func(x models.FieldDefinition) string { return x.ID })
	if err := s.persistLocked(storage.KindFields, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap.FieldDefinitions = next
	s.mu.Unlock()
	s.notify(storage.KindFields)
	return nil
}

// --- Users ---

// SaveUser upserts a user account.
func (s *Store) SaveUser(u models.User) error {
	s.mu.Lock()
	next := upsertByID(s.snap.Users, u, func(x models.User) string { return x.ID })
	if err := s.persistLocked(storage.KindUsers, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.snap.Users = next
	s.mu.Unlock()
	s.notify(storage.KindUsers)
	return nil
}

// --- Barcodes and settings ---

// SaveBarcodes replaces the remembered barcode list.
func (s *Store) SaveBarcodes(list []models.Barcode) error {
	return s.replaceAll(storage.KindBarcodes, list, func(sn *snapshot) { sn.Barcodes = list })
}

// SaveSettings replaces the settings record-set.
func (s *Store) SaveSettings(cfg models.Settings) error {
	return s.replaceAll(storage.KindSettings, cfg, func(sn *snapshot) { sn.Settings = cfg })
}

func (s *Store) replaceAll(kind storage.Kind, value any, commit func(*snapshot)) error {
	s.mu.Lock()
	if err := s.persistLocked(kind, value); err != nil {
		s.mu.Unlock()
		return err
	}
	commit(&s.snap)
	s.mu.Unlock()
	s.notify(kind)
	return nil
}

// deleteOne removes a record by id from the record-set for kind.
// Returns apperr.ErrNotFound when no record matched; nothing is
// persisted or notified in that case.
func (s *Store) deleteOne(kind storage.Kind, id string) error {
	s.mu.Lock()
	var (
		removed bool
		err     error
	)
	switch kind {
	case storage.KindCollections:
		var next []models.Collection
		next, removed = removeByID(s.snap.Collections, id, func(x models.Collection) string { return x.ID })
		if removed {
			if err = s.persistLocked(kind, next); err == nil {
				s.snap.Collections = next
			}
		}
	case storage.KindSections:
		var next []models.Section
		next, removed = removeByID(s.snap.Sections, id, func(x models.Section) string { return x.ID })
		if removed {
			if err = s.persistLocked(kind, next); err == nil {
				s.snap.Sections = next
			}
		}
	case storage.KindTypes:
		var next []models.ItemType
		next, removed = removeByID(s.snap.ItemTypes, id, func(x models.ItemType) string { return x.ID })
		if removed {
			if err = s.persistLocked(kind, next); err == nil {
				s.snap.ItemTypes = next
			}
		}
	case storage.KindItems:
		var next []models.Item
		next, removed = removeByID(s.snap.Items, id, func(x models.Item) string { return x.ID })
		if removed {
			if err = s.persistLocked(kind, next); err == nil {
				s.snap.Items = next
			}
		}
	case storage.KindFields:
		var next []models.FieldDefinition
		next, removed = removeByID(s.snap.FieldDefinitions, id, func(x models.FieldDefinition) string { return x.ID })
		if removed {
			if err = s.persistLocked(kind, next); err == nil {
				s.snap.FieldDefinitions = next
			}
		}
	case storage.KindUsers:
		var next []models.User
		next, removed = removeByID(s.snap.Users, id, func(x models.User) string { return x.ID })
		if removed {
			if err = s.persistLocked(kind, next); err == nil {
				s.snap.Users = next
			}
		}
	default:
		s.mu.Unlock()
		return fmt.Errorf("store: delete: unsupported kind %q", kind)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("store: delete %s %s: %w", kind, id, apperr.ErrNotFound)
	}
	s.notify(kind)
	return nil
}

// DeleteSection removes a single section record. Use DeleteSectionCascade
// when its types and items must go with it.
func (s *Store) DeleteSection(id string) error { return s.deleteOne(storage.KindSections, id) }

// DeleteType removes a single item type record.
func (s *Store) DeleteType(id string) error { return s.deleteOne(storage.KindTypes, id) }

// DeleteItem removes a single item record.
func (s *Store) DeleteItem(id string) error { return s.deleteOne(storage.KindItems, id) }

// DeleteFieldDefinition removes a field definition. Usages that still
// reference it degrade to legacy placeholders at resolution time.
func (s *Store) DeleteFieldDefinition(id string) error { return s.deleteOne(storage.KindFields, id) }

// DeleteUser removes a user account.
func (s *Store) DeleteUser(id string) error { return s.deleteOne(storage.KindUsers, id) }
