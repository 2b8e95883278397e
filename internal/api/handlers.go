package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vitrine/internal/importer"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/schema"
	"github.com/starford/vitrine/internal/store"
	"github.com/starford/vitrine/internal/users"
)

// Handler holds API route handlers.
type Handler struct {
	store    *store.Store
	registry *registry.Registry
	composer *schema.Composer
	importer *importer.Reconciler
	users    *users.Service
}

// NewHandler creates a new Handler.
func NewHandler(st *store.Store, reg *registry.Registry, comp *schema.Composer, usr *users.Service) *Handler {
	return &Handler{
		store:    st,
		registry: reg,
		composer: comp,
		importer: importer.NewReconciler(st),
		users:    usr,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListCollections handles GET /api/collections.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"collections": h.store.Collections()})
}

// SaveCollection handles POST /api/collections. Creating a collection
// also provisions its scoped name field so new types always have one.
func (h *Handler) SaveCollection(w http.ResponseWriter, r *http.Request) {
	var c models.Collection
	if !decodeBody(w, r, &c) {
		return
	}
	if c.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	created := c.ID == ""
	if created {
		c.ID = models.NewID("col")
	}
	if err := h.store.SaveCollection(c); err != nil {
		writeError(w, "save collection", err)
		return
	}
	if _, err := h.registry.EnsureNameField(c.ID); err != nil {
		writeError(w, "ensure name field", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, c)
}

// DeleteCollection handles DELETE /api/collections/{id}. The delete
// cascades over the collection's sections, types, and items.
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteCollection(id); err != nil {
		var ce *store.CascadeError
		if errors.As(err, &ce) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":     ce.Error(),
				"completed": len(ce.Completed),
				"pending":   ce.Pending,
			})
			return
		}
		writeError(w, "delete collection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

// reorder arranges records to match the requested id order. It fails
// unless ids is a permutation of the record ids.
func reorder[T any](records []T, ids []string, id func(T) string) ([]T, bool) {
	if len(ids) != len(records) {
		return nil, false
	}
	byID := make(map[string]T, len(records))
	for _, rec := range records {
		byID[id(rec)] = rec
	}
	out := make([]T, 0, len(records))
	seen := make(map[string]bool, len(ids))
	for _, want := range ids {
		rec, ok := byID[want]
		if !ok || seen[want] {
			return nil, false
		}
		seen[want] = true
		out = append(out, rec)
	}
	return out, true
}

// ReorderCollections handles PUT /api/collections/order. The body lists
// every collection id in its new position.
func (h *Handler) ReorderCollections(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ordered, ok := reorder(h.store.Collections(), req.IDs, func(c models.Collection) string { return c.ID })
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("ids must list every collection exactly once"))
		return
	}
	if err := h.store.ReplaceCollections(ordered); err != nil {
		writeError(w, "reorder collections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": ordered})
}

// ReorderSections handles PUT /api/collections/{id}/sections/order.
// Sections of other collections keep their stored order.
func (h *Handler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "id")
	if _, ok := h.store.CollectionByID(collectionID); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	subset, ok := reorder(h.store.SectionsByCollection(collectionID), req.IDs, func(s models.Section) string { return s.ID })
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("ids must list every section of the collection exactly once"))
		return
	}
	var next []models.Section
	for _, sec := range h.store.Sections() {
		if sec.CollectionID != collectionID {
			next = append(next, sec)
		}
	}
	next = append(next, subset...)
	if err := h.store.ReplaceSections(next); err != nil {
		writeError(w, "reorder sections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": subset})
}

// ReorderTypes handles PUT /api/sections/{id}/types/order. Types of
// other sections keep their stored order.
func (h *Handler) ReorderTypes(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "id")
	if _, ok := h.store.SectionByID(sectionID); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	subset, ok := reorder(h.store.TypesBySection(sectionID), req.IDs, func(t models.ItemType) string { return t.ID })
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("ids must list every type of the section exactly once"))
		return
	}
	var next []models.ItemType
	for _, t := range h.store.ItemTypes() {
		if t.SectionID != sectionID {
			next = append(next, t)
		}
	}
	next = append(next, subset...)
	if err := h.store.ReplaceTypes(next); err != nil {
		writeError(w, "reorder types", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": subset})
}

// ListSections handles GET /api/collections/{id}/sections.
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.CollectionByID(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": h.store.SectionsByCollection(id)})
}

// CreateSection handles POST /api/sections. A new section arrives with
// a same-named default type.
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectionID string `json:"collectionId"`
		Name         string `json:"name"`
		Icon         string `json:"icon"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sec, t, err := h.composer.NewSectionWithDefaultType(req.CollectionID, req.Name, req.Icon)
	if err != nil {
		writeError(w, "create section", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"section": sec, "defaultType": t})
}

// DuplicateSection handles POST /api/sections/{id}/duplicate.
func (h *Handler) DuplicateSection(w http.ResponseWriter, r *http.Request) {
	dup, err := h.composer.DuplicateSection(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "duplicate section", err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

// DeleteSection handles DELETE /api/sections/{id}. Sections with types
// require ?strategy=cascade or ?strategy=migrate&target=<sectionId>.
func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.composer.DeleteSection(
		chi.URLParam(r, "id"),
		schema.DeleteStrategy(q.Get("strategy")),
		q.Get("target"),
	)
	if err != nil {
		writeError(w, "delete section", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTypes handles GET /api/sections/{id}/types.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.SectionByID(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": h.store.TypesBySection(id)})
}

// NewTypeDraft handles POST /api/types/new?sectionId=. It returns an
// unsaved draft seeded with the collection's default fields.
func (h *Handler) NewTypeDraft(w http.ResponseWriter, r *http.Request) {
	sectionID := r.URL.Query().Get("sectionId")
	if sectionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("sectionId is required"))
		return
	}
	draft, err := h.composer.NewType(sectionID)
	if err != nil {
		writeError(w, "new type draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// SaveType handles POST /api/types.
func (h *Handler) SaveType(w http.ResponseWriter, r *http.Request) {
	var t models.ItemType
	if !decodeBody(w, r, &t) {
		return
	}
	if _, ok := h.store.SectionByID(t.SectionID); !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown section"))
		return
	}
	created := t.ID == ""
	if created {
		t.ID = models.NewID("type")
	}
	if err := h.composer.SaveType(t); err != nil {
		writeError(w, "save type", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, t)
}

// DeleteType handles DELETE /api/types/{id}. Types with items require
// ?strategy=cascade or ?strategy=migrate&target=<typeId>.
func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.composer.DeleteType(
		chi.URLParam(r, "id"),
		schema.DeleteStrategy(q.Get("strategy")),
		q.Get("target"),
	)
	if err != nil {
		writeError(w, "delete type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateType handles POST /api/types/{id}/duplicate.
func (h *Handler) DuplicateType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SectionID string `json:"sectionId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if req.SectionID == "" {
		// Default: duplicate in place.
		if t, ok := h.store.TypeByID(id); ok {
			req.SectionID = t.SectionID
		}
	}
	dup, err := h.composer.DuplicateType(id, req.SectionID)
	if err != nil {
		writeError(w, "duplicate type", err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

// MoveType handles POST /api/types/{id}/move.
func (h *Handler) MoveType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SectionID string `json:"sectionId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.composer.MoveType(chi.URLParam(r, "id"), req.SectionID); err != nil {
		writeError(w, "move type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func usageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid field index"))
		return 0, false
	}
	return idx, true
}

// ConfigureUsage handles POST /api/types/{id}/fields/{index}/configure.
func (h *Handler) ConfigureUsage(w http.ResponseWriter, r *http.Request) {
	t, ok := h.store.TypeByID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	idx, ok := usageIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Mandatory         bool           `json:"mandatory"`
		ShowInList        bool           `json:"showInList"`
		Filterable        bool           `json:"filterable"`
		UseForImageSearch bool           `json:"useForImageSearch"`
		ShowIf            *models.ShowIf `json:"showIf"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.composer.ConfigureUsage(t, idx, schema.UsageConfig{
		Mandatory:         req.Mandatory,
		ShowInList:        req.ShowInList,
		Filterable:        req.Filterable,
		UseForImageSearch: req.UseForImageSearch,
		ShowIf:            req.ShowIf,
	})
	if err != nil {
		writeError(w, "configure usage", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ReorderField handles POST /api/types/{id}/fields/{index}/reorder.
// Direction is -1 (up) or 1 (down); out-of-range moves are no-ops.
func (h *Handler) ReorderField(w http.ResponseWriter, r *http.Request) {
	t, ok := h.store.TypeByID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	idx, ok := usageIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Direction int `json:"direction"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	schema.ReorderField(&t, idx, req.Direction)
	if err := h.store.SaveType(t); err != nil {
		writeError(w, "reorder field", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// PickFields handles GET /api/fields?collectionId=&q=. It returns the
// definitions visible to the collection, filtered by label substring.
func (h *Handler) PickFields(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	defs := h.registry.Pick(q.Get("collectionId"), q.Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"fields": defs})
}

// SaveField handles POST /api/fields. On a label collision the response
// carries the existing definition so the client can link to it instead.
func (h *Handler) SaveField(w http.ResponseWriter, r *http.Request) {
	var def models.FieldDefinition
	if !decodeBody(w, r, &def) {
		return
	}
	saved, err := h.registry.CreateOrEdit(def)
	if err != nil {
		var dup *registry.DuplicateLabelError
		if errors.As(err, &dup) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":    "label already in use",
				"existing": dup.Existing,
			})
			return
		}
		writeError(w, "save field", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteField handles DELETE /api/fields/{id}. Usages that still point
// at the deleted definition degrade to legacy placeholders.
func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete field", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
