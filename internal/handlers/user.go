package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/types"
)

// UserHandler serves the admin user directory.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func UserRouter(r chi.Router, userService *services.UserService, authenticator *auth.Authenticator) {
	handler := NewUserHandler(userService)

	r.Use(authenticator.RequireRole(types.RoleAdmin))
	r.Get("/", handler.ListUsers)
	r.Get("/count", handler.CountUsers)
	r.Get("/role-counts", handler.RoleCounts)
}

// ListUsers returns every user, or those of ?role= when given.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) CountUsers(w http.ResponseWriter, r *http.Request) {
	total, err := h.userService.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{"users": total})
}

func (h *UserHandler) RoleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.userService.RoleCounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
