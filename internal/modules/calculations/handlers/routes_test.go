package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, nil, nil, log)

	router := chi.NewRouter()
	assert.NotPanics(t, func() {
		router.Route("/api", handler.RegisterRoutes)
		handler.RegisterLegacyRoutes(router)
	})

	var paths []string
	_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths = append(paths, method+" "+route)
		return nil
	})
	assert.Contains(t, paths, "POST /api/calculate")
	assert.Contains(t, paths, "GET /api/recipes")
	assert.Contains(t, paths, "GET /api/calculations/{id}")
	assert.Contains(t, paths, "GET /api/calculations/stream")
	assert.Contains(t, paths, "POST /calculate")
	assert.Contains(t, paths, "GET /recette")
}
