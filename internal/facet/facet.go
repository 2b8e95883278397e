// Package facet derives filter facets from item data and applies
// multi-value selections to item lists.
package facet

import (
	"sort"

	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/schema"
)

// Resolver maps a field usage to its effective definition. The field
// registry satisfies it.
type Resolver interface {
	Resolve(models.FieldUsage) models.FieldDefinition
}

// Bucket is one selectable value of a facet with its item count.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facet is the filter group derived from one filterable field.
type Facet struct {
	FieldID string   `json:"fieldId"`
	Label   string   `json:"label"`
	Buckets []Bucket `json:"buckets"`
}

// State holds the active selection: field id to the set of chosen
// display values. An empty set for a field means no constraint from
// that field.
type State map[string]map[string]bool

// NewState returns an empty selection.
func NewState() State { return State{} }

// Toggle flips one value in the selection and reports whether it is now
// selected.
func (s State) Toggle(fieldID, value string) bool {
	set := s[fieldID]
	if set == nil {
		set = map[string]bool{}
		s[fieldID] = set
	}
	if set[value] {
		delete(set, value)
		if len(set) == 0 {
			delete(s, fieldID)
		}
		return false
	}
	set[value] = true
	return true
}

// Empty reports whether no value is selected at all.
func (s State) Empty() bool {
	for _, set := range s {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// field is one distinct filterable field across the visible type
// subset.
type field struct {
	id    string
	label string
	def   models.FieldDefinition
	// keys by type id: the same definition may serve several types.
	keys map[string]string
}

// collectFields walks the filterable usages of the given types,
// deduplicating by field id so a definition shared across types yields
// one facet.
func collectFields(types []models.ItemType, resolve Resolver) []*field {
	var order []*field
	byID := map[string]*field{}
	for _, t := range types {
		for _, u := range t.Fields {
			if !u.Filterable {
				continue
			}
			def := resolve.Resolve(u)
			f := byID[def.ID]
			if f == nil {
				f = &field{id: def.ID, label: def.Label, def: def, keys: map[string]string{}}
				byID[def.ID] = f
				order = append(order, f)
			}
			f.keys[t.ID] = def.Key
		}
	}
	return order
}

// values extracts the display values an item contributes to a field.
// Checklist values fan out one per entry; everything else yields at
// most one value. Empty values contribute nothing.
func (f *field) values(it models.Item) []string {
	key, ok := f.keys[it.TypeID]
	if !ok {
		return nil
	}
	raw, ok := it.Data[key]
	if !ok || raw == nil {
		return nil
	}
	if f.def.Type == models.FieldChecklist {
		return schema.ChecklistValues(raw)
	}
	if v := schema.DisplayValue(f.def, raw); v != "" {
		return []string{v}
	}
	return nil
}

// Compute derives the facets for the visible type subset over the given
// items. Facets that would offer a single bucket (or none) are dropped:
// they cannot narrow anything.
func Compute(types []models.ItemType, items []models.Item, resolve Resolver) []Facet {
	fields := collectFields(types, resolve)
	out := make([]Facet, 0, len(fields))
	for _, f := range fields {
		counts := map[string]int{}
		var order []string
		for _, it := range items {
			for _, v := range f.values(it) {
				if counts[v] == 0 {
					order = append(order, v)
				}
				counts[v]++
			}
		}
		if len(order) <= 1 {
			continue
		}
		sort.Strings(order)
		buckets := make([]Bucket, 0, len(order))
		for _, v := range order {
			buckets = append(buckets, Bucket{Value: v, Count: counts[v]})
		}
		out = append(out, Facet{FieldID: f.id, Label: f.label, Buckets: buckets})
	}
	return out
}

// Apply filters items against the selection. Constraints from different
// fields are conjunctive; values within one field are disjunctive. An
// empty selection returns the input unchanged.
func Apply(state State, types []models.ItemType, items []models.Item, resolve Resolver) []models.Item {
	if state.Empty() {
		return items
	}
	fields := collectFields(types, resolve)
	byID := map[string]*field{}
	for _, f := range fields {
		byID[f.id] = f
	}

	out := make([]models.Item, 0, len(items))
next:
	for _, it := range items {
		for fieldID, wanted := range state {
			if len(wanted) == 0 {
				continue
			}
			f, ok := byID[fieldID]
			if !ok {
				// Selection for a field the current subset no longer
				// exposes: nothing can match it.
				continue next
			}
			matched := false
			for _, v := range f.values(it) {
				if wanted[v] {
					matched = true
					break
				}
			}
			if !matched {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Page is one slice of a paginated result.
type Page struct {
	Items      []models.Item `json:"items"`
	Number     int           `json:"page"`
	PerPage    int           `json:"perPage"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

// Paginate slices items for the requested page. Page numbers outside
// the valid range, including after a filter shrank the result, clamp to
// page 1.
func Paginate(items []models.Item, page, perPage int) Page {
	if perPage <= 0 {
		perPage = 20
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 || page > totalPages {
		page = 1
	}
	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Items:      items[start:end],
		Number:     page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// TypeSubset picks the visible types of a section scope: all of them
// when no explicit subset is selected, otherwise only the chosen ids.
func TypeSubset(all []models.ItemType, selectedIDs []string) []models.ItemType {
	if len(selectedIDs) == 0 {
		return all
	}
	wanted := map[string]bool{}
	for _, id := range selectedIDs {
		wanted[id] = true
	}
	out := make([]models.ItemType, 0, len(all))
	for _, t := range all {
		if wanted[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// ItemsForTypes keeps the items belonging to the given types.
func ItemsForTypes(types []models.ItemType, items []models.Item) []models.Item {
	wanted := map[string]bool{}
	for _, t := range types {
		wanted[t.ID] = true
	}
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if wanted[it.TypeID] {
			out = append(out, it)
		}
	}
	return out
}
