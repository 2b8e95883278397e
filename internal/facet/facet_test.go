package facet_test

import (
	"testing"

	"github.com/starford/vitrine/internal/facet"
	"github.com/starford/vitrine/internal/models"
)

type defMap map[string]models.FieldDefinition

func (m defMap) Resolve(u models.FieldUsage) models.FieldDefinition { return m[u.FieldID] }

func fixture() ([]models.ItemType, []models.Item, defMap) {
	defs := defMap{
		"fdef_genero": {ID: "fdef_genero", Label: "Género", Key: "genero", Type: models.FieldSelect},
		"fdef_fisico": {ID: "fdef_fisico", Label: "Formato", Key: "fisico", Type: models.FieldBoolean,
			BooleanConfig: &models.BooleanConfig{TrueLabel: "Físico", FalseLabel: "Digital"}},
		"fdef_extras": {ID: "fdef_extras", Label: "Extras", Key: "extras", Type: models.FieldChecklist},
		"fdef_nota":   {ID: "fdef_nota", Label: "Notas", Key: "nota", Type: models.FieldText},
	}
	types := []models.ItemType{{
		ID: "type_juego", SectionID: "sec_1", Name: "Juego",
		Fields: []models.FieldUsage{
			{FieldID: "fdef_genero", Filterable: true},
			{FieldID: "fdef_fisico", Filterable: true},
			{FieldID: "fdef_extras", Filterable: true},
			{FieldID: "fdef_nota"}, // not filterable, never a facet
		},
	}}
	items := []models.Item{
		{ID: "i1", TypeID: "type_juego", Data: map[string]any{
			"genero": "RPG", "fisico": true, "extras": []any{"Caja", "Manual"}}},
		{ID: "i2", TypeID: "type_juego", Data: map[string]any{
			"genero": "RPG", "fisico": false, "extras": []any{"Caja"}}},
		{ID: "i3", TypeID: "type_juego", Data: map[string]any{
			"genero": "Aventura", "fisico": true}},
		{ID: "i4", TypeID: "type_juego", Data: map[string]any{
			"fisico": true}}, // empty genre contributes no bucket
	}
	return types, items, defs
}

func facetByField(fs []facet.Facet, fieldID string) (facet.Facet, bool) {
	for _, f := range fs {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return facet.Facet{}, false
}

func TestComputeCountsAndLabels(t *testing.T) {
	types, items, defs := fixture()
	fs := facet.Compute(types, items, defs)

	genre, ok := facetByField(fs, "fdef_genero")
	if !ok {
		t.Fatal("genre facet missing")
	}
	want := map[string]int{"RPG": 2, "Aventura": 1}
	for _, b := range genre.Buckets {
		if want[b.Value] != b.Count {
			t.Errorf("bucket %q = %d, want %d", b.Value, b.Count, want[b.Value])
		}
		delete(want, b.Value)
	}
	if len(want) != 0 {
		t.Errorf("missing buckets: %v", want)
	}

	boolean, ok := facetByField(fs, "fdef_fisico")
	if !ok {
		t.Fatal("boolean facet missing")
	}
	labels := map[string]int{}
	for _, b := range boolean.Buckets {
		labels[b.Value] = b.Count
	}
	if labels["Físico"] != 3 || labels["Digital"] != 1 {
		t.Errorf("boolean buckets = %v", labels)
	}
}

func TestComputeChecklistFansOut(t *testing.T) {
	types, items, defs := fixture()
	fs := facet.Compute(types, items, defs)

	extras, ok := facetByField(fs, "fdef_extras")
	if !ok {
		t.Fatal("checklist facet missing")
	}
	counts := map[string]int{}
	for _, b := range extras.Buckets {
		counts[b.Value] = b.Count
	}
	if counts["Caja"] != 2 || counts["Manual"] != 1 {
		t.Errorf("checklist buckets = %v", counts)
	}
}

func TestComputeDropsSingleBucketFacets(t *testing.T) {
	types, _, defs := fixture()
	items := []models.Item{
		{ID: "i1", TypeID: "type_juego", Data: map[string]any{"genero": "RPG"}},
		{ID: "i2", TypeID: "type_juego", Data: map[string]any{"genero": "RPG"}},
	}
	fs := facet.Compute(types, items, defs)
	if _, ok := facetByField(fs, "fdef_genero"); ok {
		t.Error("a facet with one bucket cannot narrow anything and must be dropped")
	}
}

func TestComputeIgnoresNonFilterable(t *testing.T) {
	types, items, defs := fixture()
	fs := facet.Compute(types, items, defs)
	if _, ok := facetByField(fs, "fdef_nota"); ok {
		t.Error("non-filterable usage produced a facet")
	}
}

func TestApplyAndAcrossFieldsOrWithin(t *testing.T) {
	types, items, defs := fixture()

	state := facet.NewState()
	state.Toggle("fdef_genero", "RPG")
	state.Toggle("fdef_genero", "Aventura")
	got := facet.Apply(state, types, items, defs)
	if len(got) != 3 {
		t.Errorf("OR within field: %d items, want 3", len(got))
	}

	state.Toggle("fdef_fisico", "Físico")
	got = facet.Apply(state, types, items, defs)
	if len(got) != 2 {
		t.Errorf("AND across fields: %d items, want 2", len(got))
	}
	for _, it := range got {
		if it.ID == "i2" {
			t.Error("i2 is digital, must be excluded")
		}
	}
}

func TestApplyEmptySelectionPassesThrough(t *testing.T) {
	types, items, defs := fixture()
	got := facet.Apply(facet.NewState(), types, items, defs)
	if len(got) != len(items) {
		t.Errorf("got %d items, want all %d", len(got), len(items))
	}
}

func TestApplyChecklistMatchesAnyEntry(t *testing.T) {
	types, items, defs := fixture()
	state := facet.NewState()
	state.Toggle("fdef_extras", "Manual")
	got := facet.Apply(state, types, items, defs)
	if len(got) != 1 || got[0].ID != "i1" {
		t.Errorf("got %+v, want just i1", got)
	}
}

func TestToggleFlipsSelection(t *testing.T) {
	state := facet.NewState()
	if !state.Toggle("f", "v") {
		t.Error("first toggle selects")
	}
	if state.Toggle("f", "v") {
		t.Error("second toggle deselects")
	}
	if !state.Empty() {
		t.Error("state should be empty again")
	}
}

func TestPaginateClampsOutOfRange(t *testing.T) {
	items := make([]models.Item, 45)
	for i := range items {
		items[i].ID = string(rune('a' + i))
	}

	p := facet.Paginate(items, 2, 20)
	if p.Number != 2 || len(p.Items) != 20 || p.TotalPages != 3 {
		t.Errorf("page = %d items=%d totalPages=%d", p.Number, len(p.Items), p.TotalPages)
	}

	// A filter change can leave the page number past the end.
	p = facet.Paginate(items[:5], 3, 20)
	if p.Number != 1 {
		t.Errorf("out-of-range page = %d, want clamp to 1", p.Number)
	}
	if len(p.Items) != 5 {
		t.Errorf("items = %d", len(p.Items))
	}

	p = facet.Paginate(items, 0, 20)
	if p.Number != 1 {
		t.Errorf("page 0 = %d, want 1", p.Number)
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := facet.Paginate(nil, 1, 20)
	if p.Total != 0 || p.TotalPages != 1 || len(p.Items) != 0 {
		t.Errorf("page = %+v", p)
	}
}

func TestTypeSubset(t *testing.T) {
	types, items, _ := fixture()
	extra := models.ItemType{ID: "type_otro", SectionID: "sec_1", Name: "Otro"}
	all := append(types, extra)

	sub := facet.TypeSubset(all, []string{"type_otro"})
	if len(sub) != 1 || sub[0].ID != "type_otro" {
		t.Errorf("subset = %+v", sub)
	}
	if got := facet.TypeSubset(all, nil); len(got) != 2 {
		t.Errorf("nil selection = %d types, want all", len(got))
	}

	scoped := facet.ItemsForTypes(sub, items)
	if len(scoped) != 0 {
		t.Errorf("scoped items = %d, want 0", len(scoped))
	}
}
