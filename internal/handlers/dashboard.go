package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/types"
)

// DashboardHandler serves the landlord and admin dashboards.
type DashboardHandler struct {
	propertyService *services.PropertyService
	bookingService  *services.BookingService
	paymentService  *services.PaymentService
	statsService    *services.StatsService
}

func NewDashboardHandler(
	propertyService *services.PropertyService,
	bookingService *services.BookingService,
	paymentService *services.PaymentService,
	statsService *services.StatsService,
) *DashboardHandler {
	return &DashboardHandler{
		propertyService: propertyService,
		bookingService:  bookingService,
		paymentService:  paymentService,
		statsService:    statsService,
	}
}

// LandlordRouter registers the landlord dashboard; every route is scoped
// to the signed-in landlord.
func LandlordRouter(r chi.Router, handler *DashboardHandler, authenticator *auth.Authenticator) {
	r.Use(authenticator.RequireRole(types.RoleLandlord))
	r.Get("/properties", handler.LandlordProperties)
	r.Get("/stats", handler.LandlordStats)
	r.Get("/bookings", handler.LandlordBookings)
	r.Get("/payments", handler.LandlordPayments)
}

func AdminRouter(r chi.Router, handler *DashboardHandler, authenticator *auth.Authenticator) {
	r.Use(authenticator.RequireRole(types.RoleAdmin))
	r.Get("/stats", handler.AdminStats)
}

func (h *DashboardHandler) LandlordProperties(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	properties, err := h.propertyService.ListByLandlord(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

func (h *DashboardHandler) LandlordStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	stats, err := h.statsService.Landlord(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) LandlordBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	bookings, err := h.bookingService.ListByLandlord(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *DashboardHandler) LandlordPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	payments, err := h.paymentService.ListByLandlord(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *DashboardHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Admin(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
