package store

import (
	"encoding/json"
	"fmt"

	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/storage"
)

// FullSnapshot is the backup/restore payload: the six core record-sets
// serialized together.
type FullSnapshot struct {
	Collections      []models.Collection      `json:"collections"`
	Sections         []models.Section         `json:"sections"`
	ItemTypes        []models.ItemType        `json:"itemTypes"`
	Items            []models.Item            `json:"items"`
	FieldDefinitions []models.FieldDefinition `json:"fieldDefinitions"`
	Users            []models.User            `json:"users"`
}

// ExportSnapshot serializes the six core record-sets for backup.
func (s *Store) ExportSnapshot() ([]byte, error) {
	s.mu.RLock()
	snap := FullSnapshot{
		Collections:      s.snap.Collections,
		Sections:         s.snap.Sections,
		ItemTypes:        s.snap.ItemTypes,
		Items:            s.snap.Items,
		FieldDefinitions: s.snap.FieldDefinitions,
		Users:            s.snap.Users,
	}
	s.mu.RUnlock()
	return json.MarshalIndent(snap, "", "  ")
}

// RestoreSnapshot replaces the six core record-sets from an external
// payload. Validation is per key: a key that is not a JSON array loads
// as empty. A payload that is not a JSON object is rejected with nothing
// applied; once validation passes, all six record-sets are swapped in
// memory together and then persisted one by one.
func (s *Store) RestoreSnapshot(payload []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("store: restore: invalid payload: %w", err)
	}

	next := FullSnapshot{
		Collections:      []models.Collection{},
		Sections:         []models.Section{},
		ItemTypes:        []models.ItemType{},
		Items:            []models.Item{},
		FieldDefinitions: []models.FieldDefinition{},
		Users:            []models.User{},
	}
	// Per-key lenient decode: anything that is not a well-formed array
	// of the expected shape restores as empty.
	decodeArray(raw["collections"], &next.Collections)
	decodeArray(raw["sections"], &next.Sections)
	decodeArray(raw["itemTypes"], &next.ItemTypes)
	decodeArray(raw["items"], &next.Items)
	decodeArray(raw["fieldDefinitions"], &next.FieldDefinitions)
	decodeArray(raw["users"], &next.Users)

	s.mu.Lock()
	s.snap.Collections = next.Collections
	s.snap.Sections = next.Sections
	s.snap.ItemTypes = next.ItemTypes
	s.snap.Items = next.Items
	s.snap.FieldDefinitions = next.FieldDefinitions
	s.snap.Users = next.Users

	persist := []struct {
		kind  storage.Kind
		value any
	}{
		{storage.KindCollections, next.Collections},
		{storage.KindSections, next.Sections},
		{storage.KindTypes, next.ItemTypes},
		{storage.KindItems, next.Items},
		{storage.KindFields, next.FieldDefinitions},
		{storage.KindUsers, next.Users},
	}
	var firstErr error
	var changed []storage.Kind
	for _, p := range persist {
		if err := s.persistLocked(p.kind, p.value); err != nil {
			firstErr = err
			break
		}
		changed = append(changed, p.kind)
	}
	s.mu.Unlock()

	for _, kind := range changed {
		s.notify(kind)
	}
	return firstErr
}

func decodeArray[T any](raw json.RawMessage, target *[]T) {
	if len(raw) == 0 {
		return
	}
	var decoded []T
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return
	}
	*target = decoded
}
