package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/vitrine/internal/apperr"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/store"
)

// DuplicateStrategy selects what happens to a row whose name matches an
// existing item of the target type.
type DuplicateStrategy string

const (
	// StrategySkip leaves the existing item alone and drops the row.
	StrategySkip DuplicateStrategy = "skip"
	// StrategyOverwrite merges the row into the existing item, keeping
	// its id, creation time, and gallery.
	StrategyOverwrite DuplicateStrategy = "overwrite"
	// StrategyKeepBoth imports the row as a new item with a marker
	// suffix on its name.
	StrategyKeepBoth DuplicateStrategy = "keep-both"
)

// keepBothSuffix marks imported duplicates so they are easy to find.
const keepBothSuffix = " IMPORTADO"

// Mapping binds CSV column indexes to field data keys.
type Mapping map[int]string

// nameKeys are the data keys recognized as the item name, in priority
// order. Mirrors models.Item.Name.
var nameKeys = [...]string{"nombre", "name"}

// rowName extracts a mapped row's name and the key it arrived under.
func rowName(data map[string]any) (name, key string) {
	for _, k := range nameKeys {
		if s, ok := data[k].(string); ok && s != "" {
			return s, k
		}
	}
	return "", ""
}

// nameSynonyms are column headers recognized as the item name.
var nameSynonyms = map[string]bool{
	"nombre": true,
	"name":   true,
	"titulo": true,
	"título": true,
	"title":  true,
}

// SuggestMapping proposes a column-to-field binding for the target
// type: exact key match first, then a case-insensitive label match,
// then the name synonyms for the "nombre" field. Unmatched columns are
// left out and can be bound manually.
func SuggestMapping(header []string, t models.ItemType, reg *registry.Registry) Mapping {
	type slot struct{ key, label string }
	slots := make([]slot, 0, len(t.Fields))
	for _, u := range t.Fields {
		def := reg.Resolve(u)
		slots = append(slots, slot{key: def.Key, label: def.Label})
	}

	m := Mapping{}
	used := map[string]bool{}
	bind := func(col int, key string) {
		if key != "" && !used[key] {
			m[col] = key
			used[key] = true
		}
	}

	for col, h := range header {
		lh := strings.ToLower(strings.TrimSpace(h))
		if lh == "" {
			continue
		}
		for _, s := range slots {
			if s.key == lh {
				bind(col, s.key)
				break
			}
		}
	}
	for col, h := range header {
		if _, ok := m[col]; ok {
			continue
		}
		lh := strings.ToLower(strings.TrimSpace(h))
		for _, s := range slots {
			if strings.ToLower(s.label) == lh {
				bind(col, s.key)
				break
			}
		}
	}
	for col, h := range header {
		if _, ok := m[col]; ok {
			continue
		}
		if nameSynonyms[strings.ToLower(strings.TrimSpace(h))] {
			bind(col, "nombre")
		}
	}
	return m
}

// RowAction is the disposition of one CSV row in a plan.
type RowAction string

const (
	ActionCreate    RowAction = "create"
	ActionDuplicate RowAction = "duplicate"
)

// PlannedRow is one row after reconciliation against the existing
// items.
type PlannedRow struct {
	Index    int
	Name     string
	Data     map[string]any
	Action   RowAction
	Existing *models.Item
}

// Plan reconciles a parsed table against the items of the target type.
// Rows whose mapped name matches an existing item case-insensitively
// are flagged as duplicates; the caller picks a strategy before
// Execute.
type Plan struct {
	TypeID string
	Rows   []PlannedRow
}

// Duplicates counts the rows flagged as duplicates.
func (p Plan) Duplicates() int {
	n := 0
	for _, r := range p.Rows {
		if r.Action == ActionDuplicate {
			n++
		}
	}
	return n
}

// Reconciler builds and executes import plans against the store.
type Reconciler struct {
	store *store.Store
}

// NewReconciler creates a Reconciler.
func NewReconciler(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// BuildPlan maps table rows into item data and classifies each row as a
// create or a duplicate of an existing item. Rows that map to an empty
// name are dropped.
func (r *Reconciler) BuildPlan(table Table, mapping Mapping, typeID string) (Plan, error) {
	if _, ok := r.store.TypeByID(typeID); !ok {
		return Plan{}, fmt.Errorf("importer: type %s: %w", typeID, apperr.ErrNotFound)
	}
	if len(mapping) == 0 {
		return Plan{}, fmt.Errorf("importer: no columns mapped: %w", apperr.ErrValidation)
	}

	existing := map[string]models.Item{}
	for _, it := range r.store.ItemsByType(typeID) {
		existing[strings.ToLower(it.Name())] = it
	}

	plan := Plan{TypeID: typeID}
	for i, row := range table.Rows {
		data := map[string]any{}
		for col, key := range mapping {
			if col < len(row) && row[col] != "" {
				data[key] = row[col]
			}
		}
		name, _ := rowName(data)
		if name == "" {
			continue
		}
		planned := PlannedRow{Index: i, Name: name, Data: data, Action: ActionCreate}
		if match, ok := existing[strings.ToLower(name)]; ok {
			planned.Action = ActionDuplicate
			m := match
			planned.Existing = &m
		}
		plan.Rows = append(plan.Rows, planned)
	}
	return plan, nil
}

// Result summarizes an executed import.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Execute applies a plan. Fresh rows become new items; duplicate rows
// follow the chosen strategy. A plan with duplicates and no strategy is
// rejected before anything is written.
func (r *Reconciler) Execute(plan Plan, strategy DuplicateStrategy) (Result, error) {
	t, ok := r.store.TypeByID(plan.TypeID)
	if !ok {
		return Result{}, fmt.Errorf("importer: type %s: %w", plan.TypeID, apperr.ErrNotFound)
	}
	if plan.Duplicates() > 0 {
		switch strategy {
		case StrategySkip, StrategyOverwrite, StrategyKeepBoth:
		default:
			return Result{}, fmt.Errorf("importer: %d duplicate rows need a strategy: %w",
				plan.Duplicates(), apperr.ErrConflict)
		}
	}

	var res Result
	for _, row := range plan.Rows {
		switch {
		case row.Action == ActionCreate:
			if err := r.create(t, row.Data); err != nil {
				return res, err
			}
			res.Created++

		case strategy == StrategySkip:
			res.Skipped++

		case strategy == StrategyOverwrite:
			it := *row.Existing
			merged := make(map[string]any, len(it.Data)+len(row.Data))
			for k, v := range it.Data {
				merged[k] = v
			}
			for k, v := range row.Data {
				merged[k] = v
			}
			it.Data = merged
			if err := r.store.SaveItem(it); err != nil {
				return res, err
			}
			res.Updated++

		case strategy == StrategyKeepBoth:
			data := row.Data
			name, key := rowName(data)
			if key == "" {
				name, key = row.Name, nameKeys[0]
			}
			data[key] = name + keepBothSuffix
			if err := r.create(t, data); err != nil {
				return res, err
			}
			res.Created++
		}
	}
	return res, nil
}

func (r *Reconciler) create(t models.ItemType, data map[string]any) error {
	return r.store.SaveItem(models.Item{
		ID:        models.NewID("item"),
		TypeID:    t.ID,
		SectionID: t.SectionID,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	})
}
