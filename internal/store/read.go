package store

import (
	"github.com/starford/vitrine/internal/models"
)

// Read accessors return copies so callers cannot mutate the snapshot
// behind the store's back; the store's methods are the only write path.

// Collections returns all collections.
func (s *Store) Collections() []models.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Collection(nil), s.snap.Collections...)
}

// Sections returns all sections.
func (s *Store) Sections() []models.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Section(nil), s.snap.Sections...)
}

// ItemTypes returns all item types.
func (s *Store) ItemTypes() []models.ItemType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ItemType(nil), s.snap.ItemTypes...)
}

// Items returns all items.
func (s *Store) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Item(nil), s.snap.Items...)
}

// FieldDefinitions returns all field definitions.
func (s *Store) FieldDefinitions() []models.FieldDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FieldDefinition(nil), s.snap.FieldDefinitions...)
}

// Users returns all user accounts.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.snap.Users...)
}

// Barcodes returns the remembered barcode list.
func (s *Store) Barcodes() []models.Barcode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Barcode(nil), s.snap.Barcodes...)
}

// Settings returns the settings record-set.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(models.Settings, len(s.snap.Settings))
	for k, v := range s.snap.Settings {
		out[k] = v
	}
	return out
}

// CollectionByID finds a collection.
func (s *Store) CollectionByID(id string) (models.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.snap.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return models.Collection{}, false
}

// SectionByID finds a section.
func (s *Store) SectionByID(id string) (models.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sec := range s.snap.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return models.Section{}, false
}

// TypeByID finds an item type.
func (s *Store) TypeByID(id string) (models.ItemType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.snap.ItemTypes {
		if t.ID == id {
			return t, true
		}
	}
	return models.ItemType{}, false
}

// ItemByID finds an item.
func (s *Store) ItemByID(id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.snap.Items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

// FieldDefinitionByID finds a field definition.
func (s *Store) FieldDefinitionByID(id string) (models.FieldDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.snap.FieldDefinitions {
		if d.ID == id {
			return d, true
		}
	}
	return models.FieldDefinition{}, false
}

// UserByUsername finds a user account by username.
func (s *Store) UserByUsername(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.snap.Users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

// SectionsByCollection returns the sections under a collection, in
// stored order.
func (s *Store) SectionsByCollection(collectionID string) []models.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Section
	for _, sec := range s.snap.Sections {
		if sec.CollectionID == collectionID {
			out = append(out, sec)
		}
	}
	return out
}

// TypesBySection returns the item types under a section, in stored order.
func (s *Store) TypesBySection(sectionID string) []models.ItemType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ItemType
	for _, t := range s.snap.ItemTypes {
		if t.SectionID == sectionID {
			out = append(out, t)
		}
	}
	return out
}

// ItemsByType returns the items belonging to one item type.
func (s *Store) ItemsByType(typeID string) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Item
	for _, it := range s.snap.Items {
		if it.TypeID == typeID {
			out = append(out, it)
		}
	}
	return out
}

// ItemsBySection returns the items belonging to any type of a section.
func (s *Store) ItemsBySection(sectionID string) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Item
	for _, it := range s.snap.Items {
		if it.SectionID == sectionID {
			out = append(out, it)
		}
	}
	return out
}
