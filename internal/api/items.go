package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vitrine/internal/apperr"
	"github.com/starford/vitrine/internal/facet"
	"github.com/starford/vitrine/internal/importer"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/schema"
)

// GetItem handles GET /api/items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, ok := h.store.ItemByID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// SaveItem handles POST /api/items. Mandatory fields are enforced, but
// only for fields currently visible under their conditional rules.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var it models.Item
	if !decodeBody(w, r, &it) {
		return
	}
	t, ok := h.store.TypeByID(it.TypeID)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown type"))
		return
	}
	it.SectionID = t.SectionID
	if it.Data == nil {
		it.Data = map[string]any{}
	}
	if missing := h.missingMandatory(t, it.Data); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "mandatory fields missing",
			"missing": missing,
		})
		return
	}
	created := it.ID == ""
	if created {
		it.ID = models.NewID("item")
		it.CreatedAt = time.Now().UTC()
	} else if prev, ok := h.store.ItemByID(it.ID); ok {
		it.CreatedAt = prev.CreatedAt
	}
	if err := h.store.SaveItem(it); err != nil {
		writeError(w, "save item", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, it)
}

func (h *Handler) missingMandatory(t models.ItemType, data map[string]any) []string {
	var missing []string
	for _, u := range t.Fields {
		if !u.Mandatory {
			continue
		}
		if !schema.EvaluateShowIf(u, h.registry.Resolve, t, data) {
			continue
		}
		def := h.registry.Resolve(u)
		if v, ok := data[def.Key]; !ok || v == nil || v == "" {
			missing = append(missing, def.Label)
		}
	}
	return missing
}

// DeleteItem handles DELETE /api/items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteItem(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryItems handles POST /api/sections/{id}/query: the faceted listing
// behind a section view. The request scopes a type subset, applies the
// filter selection, and paginates; the response carries the facets
// derived from the scoped (pre-filter) items.
func (h *Handler) QueryItems(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "id")
	if _, ok := h.store.SectionByID(sectionID); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var req struct {
		TypeIDs []string            `json:"typeIds"`
		Filters map[string][]string `json:"filters"`
		Page    int                 `json:"page"`
		PerPage int                 `json:"perPage"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	types := facet.TypeSubset(h.store.TypesBySection(sectionID), req.TypeIDs)
	scoped := facet.ItemsForTypes(types, h.store.ItemsBySection(sectionID))

	state := facet.NewState()
	for fieldID, values := range req.Filters {
		for _, v := range values {
			state.Toggle(fieldID, v)
		}
	}

	facets := facet.Compute(types, scoped, h.registry)
	filtered := facet.Apply(state, types, scoped, h.registry)
	page := facet.Paginate(filtered, req.Page, req.PerPage)

	writeJSON(w, http.StatusOK, map[string]any{
		"facets":     facets,
		"items":      page.Items,
		"page":       page.Number,
		"perPage":    page.PerPage,
		"total":      page.Total,
		"totalPages": page.TotalPages,
	})
}

type importRequest struct {
	CSV     string            `json:"csv"`
	TypeID  string            `json:"typeId"`
	Mapping map[string]string `json:"mapping"`
}

func (h *Handler) buildImportPlan(req importRequest) (importer.Table, importer.Mapping, importer.Plan, error) {
	table, err := importer.ParseCSV(req.CSV)
	if err != nil {
		return importer.Table{}, nil, importer.Plan{}, err
	}
	t, ok := h.store.TypeByID(req.TypeID)
	if !ok {
		return importer.Table{}, nil, importer.Plan{}, fmt.Errorf("importer: type %s: %w", req.TypeID, apperr.ErrNotFound)
	}
	mapping := importer.Mapping{}
	if len(req.Mapping) > 0 {
		for col, key := range req.Mapping {
			idx, err := strconv.Atoi(col)
			if err != nil || key == "" {
				continue
			}
			mapping[idx] = key
		}
	} else {
		mapping = importer.SuggestMapping(table.Header, t, h.registry)
	}
	plan, err := h.importer.BuildPlan(table, mapping, req.TypeID)
	return table, mapping, plan, err
}

// ImportPlan handles POST /api/import/plan: parse, map, and reconcile
// without writing anything.
func (h *Handler) ImportPlan(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}
	table, mapping, plan, err := h.buildImportPlan(req)
	if err != nil {
		writeError(w, "import plan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"header":     table.Header,
		"rowCount":   len(table.Rows),
		"mapping":    mapping,
		"rows":       plan.Rows,
		"duplicates": plan.Duplicates(),
	})
}

// ImportExecute handles POST /api/import/execute.
func (h *Handler) ImportExecute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		importRequest
		Strategy string `json:"strategy"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	_, _, plan, err := h.buildImportPlan(req.importRequest)
	if err != nil {
		writeError(w, "import execute", err)
		return
	}
	res, err := h.importer.Execute(plan, importer.DuplicateStrategy(req.Strategy))
	if err != nil {
		writeError(w, "import execute", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
