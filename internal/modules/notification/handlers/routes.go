package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all notification routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/send-mail", h.HandleSendMail)
}

// RegisterLegacyRoutes registers the unprefixed route used by the workstation web form
func (h *Handler) RegisterLegacyRoutes(r chi.Router) {
	r.Post("/send_mail", h.HandleSendMail)
}
