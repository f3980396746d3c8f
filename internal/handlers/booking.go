package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/metrics"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/internal/store"
	"github.com/prostay/apiserver/types"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func BookingRouter(r chi.Router, bookingService *services.BookingService, authenticator *auth.Authenticator) {
	handler := NewBookingHandler(bookingService)
	tenant := authenticator.RequireRole(types.RoleTenant)

	r.With(tenant).Post("/", handler.CreateBooking)
	r.With(tenant).Get("/mine", handler.ListMyBookings)
	r.With(tenant).Get("/mine/count", handler.CountMyBookings)
	r.With(authenticator.RequireRole(types.RoleAdmin)).Get("/", handler.ListBookings)
	r.With(authenticator.RequireAnyRole(types.RoleLandlord, types.RoleAdmin)).
		Patch("/{bookingID}/status", handler.UpdateBookingStatus)
}

type CreateBookingRequest struct {
	PropertyID int `json:"property_id" validate:"gt=0"`
}

type CreateBookingResponse struct {
	Booking types.Booking `json:"booking"`
	Payment types.Payment `json:"payment"`
}

type BookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type BookingStatusResponse struct {
	ID     int                 `json:"id"`
	Status types.BookingStatus `json:"status"`
}

// CreateBooking books a property for the signed-in tenant.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, payment, err := h.bookingService.Book(r.Context(), actor.ID, req.PropertyID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "already_booked")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	metrics.BookingsCreatedTotal.Inc()

	writeJSON(w, http.StatusCreated, CreateBookingResponse{Booking: booking, Payment: payment})
}

func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	bookings, err := h.bookingService.ListByTenant(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) CountMyBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	total, err := h.bookingService.CountByTenant(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{"bookings": total})
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "bookingID")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	var req BookingStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.bookingService.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingStatusResponse{ID: id, Status: status})
}
