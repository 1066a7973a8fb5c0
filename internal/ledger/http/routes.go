package ledgerhttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers the journal read endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/accounts", h.handleListAccounts)
		r.Get("/accounts/{code}", h.handleGetAccount)
		r.Get("/accounts/{code}/lines", h.handleAccountLines)
		r.Get("/trial-balance", h.handleTrialBalance)
	})
}
