package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/metrics"
	"github.com/prostay/apiserver/internal/services"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
}

func NewFavoriteHandler(favoriteService *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

// FavoriteRouter registers favorite routes. Every route needs a signed-in
// user; the user is always taken from the credential.
func FavoriteRouter(r chi.Router, favoriteService *services.FavoriteService, authenticator *auth.Authenticator) {
	handler := NewFavoriteHandler(favoriteService)

	r.Use(authenticator.RequireAuth)
	r.Get("/", handler.ListFavorites)
	r.Post("/toggle", handler.ToggleFavorite)
}

type ToggleFavoriteRequest struct {
	PropertyID int `json:"property_id" validate:"gt=0"`
}

type ToggleFavoriteResponse struct {
	Success bool `json:"success"`
	Liked   bool `json:"liked"`
}

func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ToggleFavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	liked, err := h.favoriteService.Toggle(r.Context(), actor.ID, req.PropertyID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result := "unliked"
	if liked {
		result = "liked"
	}
	metrics.FavoriteTogglesTotal.WithLabelValues(result).Inc()

	writeJSON(w, http.StatusOK, ToggleFavoriteResponse{Success: true, Liked: liked})
}

func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	items, err := h.favoriteService.List(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
