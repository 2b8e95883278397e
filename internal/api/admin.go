package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vitrine/internal/models"
)

// userView is a User without the password hash.
type userView struct {
	ID                   string   `json:"id"`
	Username             string   `json:"username"`
	Role                 string   `json:"role"`
	Name                 string   `json:"name,omitempty"`
	AllowedCollectionIDs []string `json:"allowedCollectionIds,omitempty"`
}

func viewOf(u models.User) userView {
	return userView{
		ID:                   u.ID,
		Username:             u.Username,
		Role:                 u.Role,
		Name:                 u.Name,
		AllowedCollectionIDs: u.AllowedCollectionIDs,
	}
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("bad credentials"))
		return
	}
	// Restricted users only see their allowed collections.
	visible := make([]models.Collection, 0)
	for _, c := range h.store.Collections() {
		if u.CanViewCollection(c.ID) {
			visible = append(visible, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        viewOf(u),
		"collections": visible,
	})
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	views := make([]userView, 0)
	for _, u := range h.store.Users() {
		views = append(views, viewOf(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": views})
}

// SaveUser handles POST /api/users. The plaintext password travels in a
// separate field and is never echoed back.
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		models.User
		Password string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.User.PasswordHash = ""
	saved, err := h.users.Save(req.User, req.Password)
	if err != nil {
		writeError(w, "save user", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(saved))
}

// DeleteUser handles DELETE /api/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSnapshot handles GET /api/snapshot: a full catalog backup as a
// single JSON document.
func (h *Handler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	payload, err := h.store.ExportSnapshot()
	if err != nil {
		writeError(w, "export snapshot", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vitrine-snapshot.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// RestoreSnapshot handles POST /api/snapshot: replaces the catalog with
// the uploaded backup.
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if err := h.store.RestoreSnapshot(payload); err != nil {
		writeError(w, "restore snapshot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Settings())
}

// PutSettings handles PUT /api/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg models.Settings
	if !decodeBody(w, r, &cfg) {
		return
	}
	if err := h.store.SaveSettings(cfg); err != nil {
		writeError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// GetBarcodes handles GET /api/barcodes.
func (h *Handler) GetBarcodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"barcodes": h.store.Barcodes()})
}

// PutBarcodes handles PUT /api/barcodes: the barcode alias table is
// replaced wholesale, mirroring how scanner clients sync it.
func (h *Handler) PutBarcodes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Barcodes []models.Barcode `json:"barcodes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.SaveBarcodes(req.Barcodes); err != nil {
		writeError(w, "save barcodes", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
