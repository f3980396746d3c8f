package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/types"
)

const (
	formFieldImage       = "image"
	formFieldTitle       = "title"
	formFieldPrice       = "price"
	formFieldBedrooms    = "bedrooms"
	formFieldBathrooms   = "bathrooms"
	formFieldType        = "type"
	formFieldAddress     = "address"
	formFieldCity        = "city"
	formFieldDescription = "description"
)

// PropertyHandler provides HTTP handlers for listings.
type PropertyHandler struct {
	propertyService *services.PropertyService
}

func NewPropertyHandler(propertyService *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

// PropertyRouter registers listing routes on the given router.
func PropertyRouter(r chi.Router, propertyService *services.PropertyService, authenticator *auth.Authenticator) {
	handler := NewPropertyHandler(propertyService)
	owners := authenticator.RequireAnyRole(types.RoleLandlord, types.RoleAdmin)

	r.With(authenticator.OptionalAuth).Get("/", handler.ListProperties)
	r.Get("/count", handler.CountProperties)
	r.With(authenticator.RequireRole(types.RoleLandlord)).Post("/", handler.CreateProperty)
	r.Route("/{propertyID}", func(r chi.Router) {
		r.Get("/", handler.GetProperty)
		r.With(owners).Put("/", handler.UpdateProperty)
		r.With(owners).Delete("/", handler.DeleteProperty)
		r.With(owners).Patch("/status", handler.UpdatePropertyStatus)
	})
}

type PropertyStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type PropertyStatusResponse struct {
	ID     int                  `json:"id"`
	Status types.PropertyStatus `json:"status"`
}

// ListProperties returns a page of listings. Signed-in viewers see which
// ones they have liked.
func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	var viewerID int
	if actor, ok := actorFromRequest(r); ok {
		viewerID = actor.ID
	}

	items, total, err := h.propertyService.List(r.Context(), viewerID, offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[types.PropertyListItem]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *PropertyHandler) CountProperties(w http.ResponseWriter, r *http.Request) {
	total, err := h.propertyService.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{"properties": total})
}

func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "propertyID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	property, err := h.propertyService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	input, err := parsePropertyForm(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	property, err := h.propertyService.Create(r.Context(), actor, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, property)
}

func (h *PropertyHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "propertyID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	input, err := parsePropertyForm(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	property, err := h.propertyService.Update(r.Context(), actor, id, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) UpdatePropertyStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "propertyID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	var req PropertyStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.propertyService.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PropertyStatusResponse{ID: id, Status: status})
}

func (h *PropertyHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "propertyID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	if err := h.propertyService.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parsePropertyForm reads listing fields from a multipart form with an
// optional image. Every text field must be present so a PUT replaces the
// whole listing.
func parsePropertyForm(r *http.Request) (services.PropertyInput, error) {
	if !isMultipart(r) {
		return services.PropertyInput{}, invalidInput("multipart form expected")
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return services.PropertyInput{}, invalidInput("invalid multipart form")
	}

	var (
		in  services.PropertyInput
		err error
	)
	if in.Title, err = requiredFormValue(r, formFieldTitle); err != nil {
		return services.PropertyInput{}, err
	}
	if in.Price, err = requiredFormInt64(r, formFieldPrice); err != nil {
		return services.PropertyInput{}, err
	}
	if in.Bedrooms, err = requiredFormInt(r, formFieldBedrooms); err != nil {
		return services.PropertyInput{}, err
	}
	if in.Bathrooms, err = requiredFormInt(r, formFieldBathrooms); err != nil {
		return services.PropertyInput{}, err
	}
	if in.Type, err = requiredFormValue(r, formFieldType); err != nil {
		return services.PropertyInput{}, err
	}
	if in.Address, err = requiredFormValue(r, formFieldAddress); err != nil {
		return services.PropertyInput{}, err
	}
	if in.City, err = requiredFormValue(r, formFieldCity); err != nil {
		return services.PropertyInput{}, err
	}
	if in.Description, err = requiredFormValue(r, formFieldDescription); err != nil {
		return services.PropertyInput{}, err
	}

	if in.Image, err = formImage(r, formFieldImage); err != nil {
		return services.PropertyInput{}, err
	}
	return in, nil
}
