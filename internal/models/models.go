// Package models defines the domain types for Vitrine.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldType enumerates the value types a field definition can carry.
type FieldType string

// Supported field types.
const (
	FieldText      FieldType = "text"
	FieldTextarea  FieldType = "textarea"
	FieldNumber    FieldType = "number"
	FieldURL       FieldType = "url"
	FieldDate      FieldType = "date"
	FieldBoolean   FieldType = "boolean"
	FieldSelect    FieldType = "select"
	FieldChecklist FieldType = "checklist"
	FieldRating    FieldType = "rating"
	FieldReference FieldType = "reference"
)

// Collection is the top-level grouping (e.g. "Gaming"). Deleting one
// cascades through its sections, types, and items.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Section is a named subdivision within a collection.
type Section struct {
	ID           string `json:"id"`
	CollectionID string `json:"collectionId"`
	Name         string `json:"name"`
	Icon         string `json:"icon,omitempty"`
}

// ShowIf is a conditional-visibility predicate: the usage carrying it is
// only shown when the sibling field SourceFieldID currently displays
// ExpectedValue (string-compared).
type ShowIf struct {
	SourceFieldID string `json:"fieldId"`
	ExpectedValue string `json:"value"`
}

// FieldUsage binds a field definition into an item type with local
// overrides. It is a two-variant union: a usage with a non-empty FieldID
// is linked to a registry definition; one without is an inline legacy
// pseudo-definition described by its own Label and InlineType.
type FieldUsage struct {
	FieldID           string    `json:"fieldId,omitempty"`
	Label             string    `json:"label,omitempty"`
	InlineType        FieldType `json:"type,omitempty"`
	Mandatory         bool      `json:"mandatory"`
	ShowInList        bool      `json:"showInList"`
	Filterable        bool      `json:"filterable"`
	UseForImageSearch bool      `json:"useForImageSearch"`
	ShowIf            *ShowIf   `json:"showIf,omitempty"`
}

// Linked reports whether the usage references a registry definition.
func (u FieldUsage) Linked() bool { return u.FieldID != "" }

// BooleanConfig holds the display labels for a boolean field.
type BooleanConfig struct {
	TrueLabel  string `json:"trueLabel"`
	FalseLabel string `json:"falseLabel"`
}

// ReferenceConfig points a reference field at a target item type.
type ReferenceConfig struct {
	TargetTypeID string `json:"targetTypeId"`
}

// FieldDefinition is a reusable field schema, global (empty CollectionID)
// or scoped to one collection. Key is the stable storage key under which
// item data is recorded; it stays fixed once generated even if the label
// is later renamed.
type FieldDefinition struct {
	ID                string           `json:"id"`
	Label             string           `json:"label"`
	Key               string           `json:"key"`
	Type              FieldType        `json:"type"`
	CollectionID      string           `json:"collectionId,omitempty"`
	Options           []string         `json:"options,omitempty"`
	BooleanConfig     *BooleanConfig   `json:"booleanConfig,omitempty"`
	ReferenceConfig   *ReferenceConfig `json:"referenceConfig,omitempty"`
	DefaultMandatory  bool             `json:"defaultMandatory"`
	DefaultFilterable bool             `json:"defaultFilterable"`
	DefaultSearchable bool             `json:"defaultSearchable"`
	DefaultShowInList bool             `json:"defaultShowInList"`
	DefaultInNewTypes bool             `json:"defaultInNewTypes"`
}

// VisibleTo reports whether the definition is usable from the given
// collection scope: global definitions always are, scoped ones only
// within their own collection.
func (d FieldDefinition) VisibleTo(collectionID string) bool {
	return d.CollectionID == "" || d.CollectionID == collectionID
}

// ItemType defines the schema for a homogeneous class of items within a
// section. Fields is ordered; the order is user-reorderable and
// significant for display.
type ItemType struct {
	ID        string       `json:"id"`
	SectionID string       `json:"sectionId"`
	Name      string       `json:"name"`
	Icon      string       `json:"icon,omitempty"`
	Fields    []FieldUsage `json:"fields"`
}

// GalleryImage is a named image reference; element 0 of a gallery is the
// cover image.
type GalleryImage struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	URL   string `json:"url"`
}

// Item is a concrete catalogued record conforming to its type's schema.
// Data holds one entry per field key; absent keys mean empty, not error.
type Item struct {
	ID        string         `json:"id"`
	TypeID    string         `json:"typeId"`
	SectionID string         `json:"sectionId"`
	CreatedAt time.Time      `json:"createdAt"`
	Data      map[string]any `json:"data"`
	Gallery   []GalleryImage `json:"gallery,omitempty"`
}

// Name returns the item's display name from its data, checking the
// canonical "nombre" key first and falling back to "name".
func (i Item) Name() string {
	for _, k := range []string{"nombre", "name"} {
		if v, ok := i.Data[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account. PasswordHash carries a bcrypt hash, never a
// plaintext password.
type User struct {
	ID                   string   `json:"id"`
	Username             string   `json:"username"`
	PasswordHash         string   `json:"password"`
	Role                 string   `json:"role"`
	Name                 string   `json:"name,omitempty"`
	AllowedCollectionIDs []string `json:"allowedCollectionIds,omitempty"`
}

// CanViewCollection reports whether the account may see a collection:
// admins see every collection, other users only the ids they were
// granted.
func (u User) CanViewCollection(collectionID string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, id := range u.AllowedCollectionIDs {
		if id == collectionID {
			return true
		}
	}
	return false
}

// Barcode is a remembered code-to-title association from past lookups.
type Barcode struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Platform string `json:"platform,omitempty"`
}

// Settings is the free-form application configuration record-set.
type Settings map[string]any

// KeyFromLabel derives the stable storage key for a label: lower-cased,
// every character outside [a-z0-9] replaced by an underscore.
func KeyFromLabel(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NewID returns a fresh opaque entity id with a readable prefix.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
