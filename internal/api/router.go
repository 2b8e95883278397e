package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/schema"
	"github.com/starford/vitrine/internal/store"
	"github.com/starford/vitrine/internal/users"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(st *store.Store, reg *registry.Registry, comp *schema.Composer, usr *users.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(st, reg, comp, usr)

	r := chi.NewRouter()

	// Login stays outside the auth group so clients can exchange
	// credentials for a session without a token.
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Collections.
		r.Get("/collections", h.ListCollections)
		r.Post("/collections", h.SaveCollection)
		r.Put("/collections/order", h.ReorderCollections)
		r.Delete("/collections/{id}", h.DeleteCollection)
		r.Get("/collections/{id}/sections", h.ListSections)
		r.Put("/collections/{id}/sections/order", h.ReorderSections)

		// Sections.
		r.Post("/sections", h.CreateSection)
		r.Post("/sections/{id}/duplicate", h.DuplicateSection)
		r.Delete("/sections/{id}", h.DeleteSection)
		r.Get("/sections/{id}/types", h.ListTypes)
		r.Put("/sections/{id}/types/order", h.ReorderTypes)
		r.Post("/sections/{id}/query", h.QueryItems)

		// Item types.
		r.Post("/types/new", h.NewTypeDraft)
		r.Post("/types", h.SaveType)
		r.Delete("/types/{id}", h.DeleteType)
		r.Post("/types/{id}/duplicate", h.DuplicateType)
		r.Post("/types/{id}/move", h.MoveType)
		r.Post("/types/{id}/fields/{index}/configure", h.ConfigureUsage)
		r.Post("/types/{id}/fields/{index}/reorder", h.ReorderField)

		// Field registry.
		r.Get("/fields", h.PickFields)
		r.Post("/fields", h.SaveField)
		r.Delete("/fields/{id}", h.DeleteField)

		// Items.
		r.Get("/items/{id}", h.GetItem)
		r.Post("/items", h.SaveItem)
		r.Delete("/items/{id}", h.DeleteItem)

		// CSV import.
		r.Post("/import/plan", h.ImportPlan)
		r.Post("/import/execute", h.ImportExecute)

		// Snapshot backup and restore.
		r.Get("/snapshot", h.ExportSnapshot)
		r.Post("/snapshot", h.RestoreSnapshot)

		// Users.
		r.Get("/users", h.ListUsers)
		r.Post("/users", h.SaveUser)
		r.Delete("/users/{id}", h.DeleteUser)

		// Settings and barcode aliases.
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)
		r.Get("/barcodes", h.GetBarcodes)
		r.Put("/barcodes", h.PutBarcodes)

		// SSE endpoint (protected by the same auth middleware).
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
