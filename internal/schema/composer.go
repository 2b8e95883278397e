// Package schema builds and maintains item-type schemas: default-field
// seeding, usage configuration with conditional visibility, and the
// type-level lifecycle operations (delete with strategy, duplicate,
// move).
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/vitrine/internal/apperr"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/store"
)

// DeleteStrategy selects what happens to dependent items when a type or
// section with dependents is deleted.
type DeleteStrategy string

const (
	// StrategyCascade removes dependents before the parent.
	StrategyCascade DeleteStrategy = "cascade"
	// StrategyMigrate rebinds dependents to a target before deleting
	// the now-empty parent.
	StrategyMigrate DeleteStrategy = "migrate"
)

// Composer coordinates the store and the field registry for type
// building.
type Composer struct {
	store    *store.Store
	registry *registry.Registry
}

// New creates a Composer.
func New(s *store.Store, r *registry.Registry) *Composer {
	return &Composer{store: s, registry: r}
}

// usageFromDefault binds a definition into a new type using the
// definition's default flags.
func usageFromDefault(def models.FieldDefinition) models.FieldUsage {
	return models.FieldUsage{
		FieldID:           def.ID,
		Label:             def.Label,
		Mandatory:         def.DefaultMandatory,
		ShowInList:        def.DefaultShowInList,
		Filterable:        def.DefaultFilterable,
		UseForImageSearch: def.DefaultSearchable,
	}
}

// NewType creates (without persisting) a type draft for a section,
// seeded with every definition flagged DefaultInNewTypes that is
// visible to the section's collection.
func (c *Composer) NewType(sectionID string) (models.ItemType, error) {
	sec, ok := c.store.SectionByID(sectionID)
	if !ok {
		return models.ItemType{}, fmt.Errorf("schema: section %s: %w", sectionID, apperr.ErrNotFound)
	}
	var fields []models.FieldUsage
	for _, def := range c.store.FieldDefinitions() {
		if !def.DefaultInNewTypes || !def.VisibleTo(sec.CollectionID) {
			continue
		}
		fields = append(fields, usageFromDefault(def))
	}
	return models.ItemType{
		ID:        models.NewID("type"),
		SectionID: sectionID,
		Icon:      "📦",
		Fields:    fields,
	}, nil
}

// SaveType validates and persists a type draft.
func (c *Composer) SaveType(t models.ItemType) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("schema: type name is required: %w", apperr.ErrValidation)
	}
	return c.store.SaveType(t)
}

// NewSectionWithDefaultType persists a new section and auto-creates its
// default item type: same name and icon, seeded with the default fields
// visible to the collection.
func (c *Composer) NewSectionWithDefaultType(collectionID, name, icon string) (models.Section, models.ItemType, error) {
	if strings.TrimSpace(name) == "" {
		return models.Section{}, models.ItemType{}, fmt.Errorf("schema: section name is required: %w", apperr.ErrValidation)
	}
	if _, ok := c.store.CollectionByID(collectionID); !ok {
		return models.Section{}, models.ItemType{}, fmt.Errorf("schema: collection %s: %w", collectionID, apperr.ErrNotFound)
	}
	sec := models.Section{
		ID:           models.NewID("sec"),
		CollectionID: collectionID,
		Name:         name,
		Icon:         icon,
	}
	if err := c.store.SaveSection(sec); err != nil {
		return models.Section{}, models.ItemType{}, err
	}
	t, err := c.NewType(sec.ID)
	if err != nil {
		return models.Section{}, models.ItemType{}, err
	}
	t.Name = name
	if icon != "" {
		t.Icon = icon
	}
	if err := c.store.SaveType(t); err != nil {
		return models.Section{}, models.ItemType{}, err
	}
	return sec, t, nil
}

// ReorderField swaps the usage at index with its neighbor. direction is
// negative for up, positive for down. Moving the first field up or the
// last field down is a no-op, not an error.
func ReorderField(t *models.ItemType, index, direction int) {
	j := index
	if direction < 0 {
		j = index - 1
	} else if direction > 0 {
		j = index + 1
	}
	if index < 0 || index >= len(t.Fields) || j < 0 || j >= len(t.Fields) || j == index {
		return
	}
	fields := append([]models.FieldUsage(nil), t.Fields...)
	fields[index], fields[j] = fields[j], fields[index]
	t.Fields = fields
}

// UsageConfig carries the editable flags of a field usage.
type UsageConfig struct {
	Mandatory         bool
	ShowInList        bool
	Filterable        bool
	UseForImageSearch bool
	ShowIf            *models.ShowIf
}

// ConfigureUsage applies cfg to the usage at index and persists the
// type. A ShowIf rule must be complete (both source field and expected
// value) and its source must be another usage of the same type whose
// resolved definition is boolean, select, or checklist; otherwise
// nothing is persisted.
func (c *Composer) ConfigureUsage(t models.ItemType, index int, cfg UsageConfig) (models.ItemType, error) {
	if index < 0 || index >= len(t.Fields) {
		return models.ItemType{}, fmt.Errorf("schema: field index %d out of range: %w", index, apperr.ErrValidation)
	}
	if cfg.ShowIf != nil {
		if err := c.validateShowIf(t, t.Fields[index], *cfg.ShowIf); err != nil {
			return models.ItemType{}, err
		}
	}
	fields := append([]models.FieldUsage(nil), t.Fields...)
	usage := fields[index]
	usage.Mandatory = cfg.Mandatory
	usage.ShowInList = cfg.ShowInList
	usage.Filterable = cfg.Filterable
	usage.UseForImageSearch = cfg.UseForImageSearch
	usage.ShowIf = cfg.ShowIf
	fields[index] = usage
	t.Fields = fields

	if err := c.store.SaveType(t); err != nil {
		return models.ItemType{}, err
	}
	return t, nil
}

func (c *Composer) validateShowIf(t models.ItemType, self models.FieldUsage, rule models.ShowIf) error {
	if rule.SourceFieldID == "" || rule.ExpectedValue == "" {
		return fmt.Errorf("schema: conditional rule needs both field and value: %w", apperr.ErrIncompleteRule)
	}
	for _, sibling := range t.Fields {
		if sibling.FieldID == "" || sibling.FieldID != rule.SourceFieldID || sibling.FieldID == self.FieldID {
			continue
		}
		def := c.registry.Resolve(sibling)
		switch def.Type {
		case models.FieldBoolean, models.FieldSelect, models.FieldChecklist:
			return nil
		default:
			return fmt.Errorf("schema: conditional source %q must be boolean, select, or checklist: %w",
				def.Label, apperr.ErrValidation)
		}
	}
	return fmt.Errorf("schema: conditional source %s is not a sibling field: %w",
		rule.SourceFieldID, apperr.ErrValidation)
}

// DeleteType removes a type. With zero dependent items it deletes
// immediately and strategy is ignored. With dependents, the caller must
// pick StrategyCascade (items removed first) or StrategyMigrate with a
// target type that every dependent item is rebound to. There is no
// silent default.
func (c *Composer) DeleteType(typeID string, strategy DeleteStrategy, migrateTargetID string) error {
	items := c.store.ItemsByType(typeID)
	if len(items) == 0 {
		return c.store.DeleteType(typeID)
	}

	switch strategy {
	case StrategyCascade:
		for _, it := range items {
			if err := c.store.DeleteItem(it.ID); err != nil {
				return err
			}
		}
		return c.store.DeleteType(typeID)

	case StrategyMigrate:
		target, ok := c.store.TypeByID(migrateTargetID)
		if !ok || target.ID == typeID {
			return fmt.Errorf("schema: migrate target %s: %w", migrateTargetID, apperr.ErrNotFound)
		}
		for _, it := range items {
			it.TypeID = target.ID
			it.SectionID = target.SectionID
			if err := c.store.SaveItem(it); err != nil {
				return err
			}
		}
		return c.store.DeleteType(typeID)

	default:
		return fmt.Errorf("schema: type %s has %d items, a delete strategy is required: %w",
			typeID, len(items), apperr.ErrConflict)
	}
}

// DuplicateType deep-copies a type into the target section together
// with every dependent item (new ids, same data). Duplicating into the
// type's own section appends " (Copia)" to the copy's name.
func (c *Composer) DuplicateType(typeID, targetSectionID string) (models.ItemType, error) {
	src, ok := c.store.TypeByID(typeID)
	if !ok {
		return models.ItemType{}, fmt.Errorf("schema: type %s: %w", typeID, apperr.ErrNotFound)
	}
	if _, ok := c.store.SectionByID(targetSectionID); !ok {
		return models.ItemType{}, fmt.Errorf("schema: section %s: %w", targetSectionID, apperr.ErrNotFound)
	}

	dup := src
	dup.ID = models.NewID("type")
	dup.SectionID = targetSectionID
	dup.Fields = append([]models.FieldUsage(nil), src.Fields...)
	if targetSectionID == src.SectionID {
		dup.Name = src.Name + " (Copia)"
	}
	if err := c.store.SaveType(dup); err != nil {
		return models.ItemType{}, err
	}

	for _, it := range c.store.ItemsByType(src.ID) {
		copyItem := it
		copyItem.ID = models.NewID("item")
		copyItem.TypeID = dup.ID
		copyItem.SectionID = targetSectionID
		copyItem.Data = cloneData(it.Data)
		copyItem.Gallery = append([]models.GalleryImage(nil), it.Gallery...)
		if err := c.store.SaveItem(copyItem); err != nil {
			return models.ItemType{}, err
		}
	}
	return dup, nil
}

// MoveType rebinds a type to another section in place. The type keeps
// its id, so dependent items keep referencing it; their section binding
// follows the type.
func (c *Composer) MoveType(typeID, targetSectionID string) error {
	t, ok := c.store.TypeByID(typeID)
	if !ok {
		return fmt.Errorf("schema: type %s: %w", typeID, apperr.ErrNotFound)
	}
	if _, ok := c.store.SectionByID(targetSectionID); !ok {
		return fmt.Errorf("schema: section %s: %w", targetSectionID, apperr.ErrNotFound)
	}
	if t.SectionID == targetSectionID {
		return nil
	}
	t.SectionID = targetSectionID
	if err := c.store.SaveType(t); err != nil {
		return err
	}
	for _, it := range c.store.ItemsByType(typeID) {
		it.SectionID = targetSectionID
		if err := c.store.SaveItem(it); err != nil {
			return err
		}
	}
	return nil
}

// DuplicateSection deep-copies a section with all its types and items.
// The copy's name gets a " (Copia)" suffix.
func (c *Composer) DuplicateSection(sectionID string) (models.Section, error) {
	src, ok := c.store.SectionByID(sectionID)
	if !ok {
		return models.Section{}, fmt.Errorf("schema: section %s: %w", sectionID, apperr.ErrNotFound)
	}
	dup := src
	dup.ID = models.NewID("sec")
	dup.Name = src.Name + " (Copia)"
	if err := c.store.SaveSection(dup); err != nil {
		return models.Section{}, err
	}
	for _, t := range c.store.TypesBySection(src.ID) {
		if _, err := c.DuplicateType(t.ID, dup.ID); err != nil {
			return models.Section{}, err
		}
	}
	return dup, nil
}

// DeleteSection removes a section. Empty sections delete immediately.
// With dependent types, StrategyCascade removes everything beneath;
// StrategyMigrate moves the types (and their items) to the target
// sibling section first.
func (c *Composer) DeleteSection(sectionID string, strategy DeleteStrategy, migrateTargetID string) error {
	types := c.store.TypesBySection(sectionID)
	if len(types) == 0 {
		return c.store.DeleteSection(sectionID)
	}

	switch strategy {
	case StrategyCascade:
		return c.store.DeleteSectionCascade(sectionID)

	case StrategyMigrate:
		if _, ok := c.store.SectionByID(migrateTargetID); !ok || migrateTargetID == sectionID {
			return fmt.Errorf("schema: migrate target %s: %w", migrateTargetID, apperr.ErrNotFound)
		}
		for _, t := range types {
			if err := c.MoveType(t.ID, migrateTargetID); err != nil {
				return err
			}
		}
		return c.store.DeleteSection(sectionID)

	default:
		return fmt.Errorf("schema: section %s has %d types, a delete strategy is required: %w",
			sectionID, len(types), apperr.ErrConflict)
	}
}

// NewItem creates (without persisting) an item draft for a type.
func (c *Composer) NewItem(typeID string) (models.Item, error) {
	t, ok := c.store.TypeByID(typeID)
	if !ok {
		return models.Item{}, fmt.Errorf("schema: type %s: %w", typeID, apperr.ErrNotFound)
	}
	return models.Item{
		ID:        models.NewID("item"),
		TypeID:    t.ID,
		SectionID: t.SectionID,
		CreatedAt: time.Now().UTC(),
		Data:      map[string]any{},
	}, nil
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
