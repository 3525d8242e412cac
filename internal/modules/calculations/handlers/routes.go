package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all calculation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/calculate", h.HandleCalculate)
	r.Get("/recipes", h.HandleListRecipes)

	r.Route("/calculations", func(r chi.Router) {
		r.Get("/", h.HandleListCalculations)
		r.Get("/stream", h.HandleStream)
		r.Get("/{id}", h.HandleGetCalculation)
	})
}

// RegisterLegacyRoutes registers the unprefixed routes used by the workstation web form
func (h *Handler) RegisterLegacyRoutes(r chi.Router) {
	r.Post("/calculate", h.HandleCalculate)
	r.Get("/recette", h.HandleListRecipesLegacy)
}
