package reconhttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers the reconciliation endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/recon", func(r chi.Router) {
		r.Get("/report", h.handleGetReport)
		r.Post("/run", h.handleRun)
	})
}
