// Package registry manages the global reusable field definitions and
// resolves field usages against them.
package registry

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vitrine/internal/apperr"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/store"
)

// Registry is the field-definition manager. All writes go through the
// entity store.
type Registry struct {
	store *store.Store
}

// New creates a Registry over the store.
func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// DuplicateLabelError is returned by CreateOrEdit when another visible
// definition already carries the label. It exposes the existing
// definition so the caller can offer to link to it instead of saving a
// duplicate; it matches apperr.ErrDuplicateLabel via errors.Is.
type DuplicateLabelError struct {
	Existing models.FieldDefinition
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("registry: label %q already used by field %s", e.Existing.Label, e.Existing.ID)
}

func (e *DuplicateLabelError) Unwrap() error { return apperr.ErrDuplicateLabel }

// CreateOrEdit validates and persists a field definition. The label
// must be non-empty and unique (case-insensitive) among definitions
// visible to the same scope, excluding the definition itself. On
// success the storage key is (re)derived from the label for new
// definitions; existing definitions keep their key stable unless the
// caller changed it explicitly. Keys, derived or explicit, must also be
// unique within the visible scope.
func (r *Registry) CreateOrEdit(def models.FieldDefinition) (models.FieldDefinition, error) {
	if err := validation.ValidateStruct(&def,
		validation.Field(&def.Label, validation.Required),
		validation.Field(&def.Type, validation.Required),
	); err != nil {
		return models.FieldDefinition{}, fmt.Errorf("registry: %v: %w", err, apperr.ErrValidation)
	}

	if existing, ok := r.findByLabel(def.Label, def.CollectionID, def.ID); ok {
		return models.FieldDefinition{}, &DuplicateLabelError{Existing: existing}
	}

	if def.ID == "" {
		def.ID = models.NewID("fdef")
	}
	if def.Key == "" {
		def.Key = models.KeyFromLabel(def.Label)
	}
	if existing, ok := r.findByKey(def.Key, def.CollectionID, def.ID); ok {
		return models.FieldDefinition{}, fmt.Errorf(
			"registry: key %q already used by field %s: %w", def.Key, existing.ID, apperr.ErrConflict)
	}

	if err := r.store.SaveFieldDefinition(def); err != nil {
		return models.FieldDefinition{}, err
	}
	return def, nil
}

// Pick returns the definitions visible to a collection scope whose label
// contains the filter text (case-insensitive). An empty filter matches
// everything.
func (r *Registry) Pick(collectionID, filter string) []models.FieldDefinition {
	needle := strings.ToLower(strings.TrimSpace(filter))
	var out []models.FieldDefinition
	for _, def := range r.store.FieldDefinitions() {
		if !def.VisibleTo(collectionID) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(def.Label), needle) {
			continue
		}
		out = append(out, def)
	}
	return out
}

// Delete removes a definition. Usages that still reference it degrade to
// legacy placeholders at resolution time rather than failing.
func (r *Registry) Delete(id string) error {
	return r.store.DeleteFieldDefinition(id)
}

// Resolve maps a field usage to its definition. Linked usages resolve
// against the registry; dangling or inline usages yield a synthesized
// placeholder built from the usage's own label and type. Resolve never
// fails: degraded display beats a crash.
func (r *Registry) Resolve(usage models.FieldUsage) models.FieldDefinition {
	if usage.Linked() {
		if def, ok := r.store.FieldDefinitionByID(usage.FieldID); ok {
			return def
		}
	}
	return PlaceholderFor(usage)
}

// PlaceholderFor synthesizes a legacy placeholder definition from an
// inline or dangling usage.
func PlaceholderFor(usage models.FieldUsage) models.FieldDefinition {
	label := usage.Label
	if label == "" {
		label = "Desconocido"
	}
	typ := usage.InlineType
	if typ == "" {
		typ = models.FieldText
	}
	id := usage.FieldID
	if id == "" {
		id = "legacy_" + models.KeyFromLabel(label)
	}
	return models.FieldDefinition{
		ID:    id,
		Label: label,
		Key:   models.KeyFromLabel(label),
		Type:  typ,
	}
}

// EnsureNameField creates the scoped mandatory "Nombre" field for a
// collection if it does not exist yet. Each collection gets its own
// independent name field; the seed is scoped, not global.
func (r *Registry) EnsureNameField(collectionID string) (models.FieldDefinition, error) {
	for _, def := range r.store.FieldDefinitions() {
		if def.CollectionID == collectionID && strings.EqualFold(strings.TrimSpace(def.Label), "Nombre") {
			return def, nil
		}
	}
	def := models.FieldDefinition{
		ID:                models.NewID("fdef"),
		Label:             "Nombre",
		Key:               "nombre",
		Type:              models.FieldText,
		CollectionID:      collectionID,
		DefaultMandatory:  true,
		DefaultShowInList: true,
		DefaultFilterable: true,
		DefaultSearchable: true,
		DefaultInNewTypes: true,
	}
	if err := r.store.SaveFieldDefinition(def); err != nil {
		return models.FieldDefinition{}, err
	}
	return def, nil
}

// findByLabel searches visible definitions for a case-insensitive label
// match, excluding selfID. Visibility is mutual: a global candidate
// collides with any scope, a scoped candidate only with its own scope
// or a global draft.
func (r *Registry) findByLabel(label, collectionID, selfID string) (models.FieldDefinition, bool) {
	needle := strings.ToLower(strings.TrimSpace(label))
	for _, def := range r.store.FieldDefinitions() {
		if def.ID == selfID {
			continue
		}
		if !scopesOverlap(def.CollectionID, collectionID) {
			continue
		}
		if strings.ToLower(strings.TrimSpace(def.Label)) == needle {
			return def, true
		}
	}
	return models.FieldDefinition{}, false
}

func (r *Registry) findByKey(key, collectionID, selfID string) (models.FieldDefinition, bool) {
	for _, def := range r.store.FieldDefinitions() {
		if def.ID == selfID {
			continue
		}
		if !scopesOverlap(def.CollectionID, collectionID) {
			continue
		}
		if def.Key == key {
			return def, true
		}
	}
	return models.FieldDefinition{}, false
}

// scopesOverlap reports whether two definition scopes share visibility:
// global overlaps everything, scoped only matches the same collection.
func scopesOverlap(a, b string) bool {
	return a == "" || b == "" || a == b
}
