package editorhttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers the source-document ingress endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.handlePostDocument)
		r.Put("/{transactionID}", h.handleEditDocument)
		r.Delete("/{transactionID}", h.handleDeleteDocument)
	})
}
