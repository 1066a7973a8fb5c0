package costinghttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers the inventory read endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/inventory/items/{itemID}", func(r chi.Router) {
		r.Get("/layers", h.handleListLayers)
		r.Get("/movements", h.handleMovements)
		r.Get("/on-hand", h.handleOnHand)
	})
}
