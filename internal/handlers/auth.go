package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/metrics"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/internal/store"
	"github.com/prostay/apiserver/types"
)

const formFieldPhoto = "photo"

// AuthHandler provides session endpoints: sign-up, login, logout and the
// role checks used by the frontend route guards.
type AuthHandler struct {
	auth        *auth.Authenticator
	userService *services.UserService
}

func NewAuthHandler(authenticator *auth.Authenticator, userService *services.UserService) *AuthHandler {
	return &AuthHandler{auth: authenticator, userService: userService}
}

// AuthRouter registers auth routes on the given router. loginLimit caps
// login attempts per client IP per minute; zero disables the limit.
func AuthRouter(r chi.Router, authenticator *auth.Authenticator, userService *services.UserService, loginLimit int) {
	handler := NewAuthHandler(authenticator, userService)

	r.Post("/register", handler.Register)
	if loginLimit > 0 {
		r.With(httprate.Limit(
			loginLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "too_many_requests")
			}),
		)).Post("/login", handler.Login)
	} else {
		r.Post("/login", handler.Login)
	}
	r.Post("/logout", handler.Logout)
	r.Get("/logout", handler.Logout)

	r.With(authenticator.RequireAuth).Get("/me", handler.Me)
	r.With(authenticator.RequireRole(types.RoleAdmin)).Get("/admin", handler.RoleCheck)
	r.With(authenticator.RequireRole(types.RoleTenant)).Get("/tenant", handler.RoleCheck)
	r.With(authenticator.RequireRole(types.RoleLandlord)).Get("/landlord", handler.RoleCheck)
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=32"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by login and register alongside the cookie.
type AuthResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token"`
	User    types.UserSummary `json:"user"`
}

// RoleCheckResponse echoes the verified identity of the caller.
type RoleCheckResponse struct {
	Status string     `json:"status"`
	Role   types.Role `json:"role"`
	ID     int        `json:"id"`
}

// Register creates an account from a JSON body or a multipart form with an
// optional photo, then signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var (
		req   RegisterRequest
		photo []byte
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		req = RegisterRequest{
			Name:     r.FormValue("name"),
			Email:    r.FormValue("email"),
			Phone:    r.FormValue("phone"),
			Password: r.FormValue("password"),
			Role:     r.FormValue("role"),
		}
		if err := validate(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		var err error
		if photo, err = formImage(r, formFieldPhoto); err != nil {
			writeServiceError(w, r, err)
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
		Photo:    photo,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email_taken")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	credential, err := h.auth.Sign(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.auth.SetCookie(w, credential)

	writeJSON(w, http.StatusCreated, AuthResponse{
		Status:  "success",
		Message: "account created",
		Token:   credential.Token,
		User:    user.Summary(),
	})
}

// Login verifies credentials, sets the session cookie and returns the token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	credential, err := h.auth.Issue(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		reason := auth.Reason(err)
		metrics.LoginAttemptsTotal.WithLabelValues(reason).Inc()
		if errors.Is(err, auth.ErrUpstream) {
			slog.ErrorContext(r.Context(), "login failed", "error", err)
		}
		writeError(w, auth.StatusCode(err), reason)
		return
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	h.auth.SetCookie(w, credential)
	writeJSON(w, http.StatusOK, AuthResponse{
		Status:  "success",
		Message: "login successful",
		Token:   credential.Token,
		User:    credential.User.Summary(),
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Revoke(w)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Account removed after the token was issued.
			writeError(w, http.StatusForbidden, "invalid_or_expired_token")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// RoleCheck echoes the identity admitted by the role gate in front of it.
func (h *AuthHandler) RoleCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RoleCheckResponse{Status: "success", Role: actor.Role, ID: actor.ID})
}
