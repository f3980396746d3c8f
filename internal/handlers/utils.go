package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/internal/storage"
	"github.com/prostay/apiserver/internal/store"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxJSONBodyBytes   = 1 << 20
	maxMultipartMemory = 8 << 20
)

// ErrorResponse is the error payload of every endpoint. Error is a short
// machine-readable reason; Message adds detail for validation failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusResponse acknowledges an action without a resource body.
type StatusResponse struct {
	Status string `json:"status"`
}

// CountResponse wraps a single counter under a resource-specific key.
type CountResponse map[string]int

// ListResponse is a paginated page of items.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, ErrorResponse{Error: reason})
}

func writeErrorMessage(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, ErrorResponse{Error: reason, Message: message})
}

// writeServiceError maps domain errors onto HTTP statuses. Unexpected
// errors are logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", strings.TrimPrefix(err.Error(), services.ErrInvalidInput.Error()+": "))
	case errors.Is(err, services.ErrUploadsDisabled):
		writeError(w, http.StatusBadRequest, "uploads_disabled")
	case errors.Is(err, storage.ErrUnsupportedImage):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_image")
	case errors.Is(err, storage.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "image_too_large")
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

// decodeJSON decodes a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	if err := validate(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return false
	}
	return true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// formImage reads the optional image file named field from a parsed
// multipart form.
func formImage(r *http.Request, field string) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, invalidInput("only one " + field + " file is allowed")
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, invalidInput("failed to read " + field + " file")
	}
	defer file.Close()
	return readFileLimited(file, storage.MaxImageBytes)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, invalidInput("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, storage.ErrImageTooLarge
	}
	return data, nil
}

func invalidInput(message string) error {
	return fmt.Errorf("%w: %s", services.ErrInvalidInput, message)
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseID(r *http.Request, param string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", param)
	}
	return id, nil
}

// requiredFormValue returns the trimmed form field, rejecting a missing or
// blank value.
func requiredFormValue(r *http.Request, field string) (string, error) {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return "", invalidInput(field + " is required")
	}
	return value, nil
}

func requiredFormInt(r *http.Request, field string) (int, error) {
	value, err := requiredFormValue(r, field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalidInput("invalid " + field)
	}
	return n, nil
}

func requiredFormInt64(r *http.Request, field string) (int64, error) {
	value, err := requiredFormValue(r, field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, invalidInput("invalid " + field)
	}
	return n, nil
}

// actorFromRequest returns the caller attached by the auth middleware.
func actorFromRequest(r *http.Request) (services.Actor, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{ID: identity.ID, Role: identity.Role}, true
}

// requireActor writes 401 when no identity is attached. Routes using it are
// always mounted behind RequireAuth, so this only guards misconfiguration.
func requireActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
	}
	return actor, ok
}
