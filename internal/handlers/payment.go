package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/types"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func PaymentRouter(r chi.Router, paymentService *services.PaymentService, authenticator *auth.Authenticator) {
	handler := NewPaymentHandler(paymentService)
	tenant := authenticator.RequireRole(types.RoleTenant)

	r.With(tenant).Put("/", handler.Pay)
	r.With(tenant).Get("/mine", handler.ListMyPayments)
	r.With(tenant).Get("/mine/count", handler.CountMyPayments)
	r.With(authenticator.RequireRole(types.RoleAdmin)).Get("/", handler.ListPayments)
}

type PaymentRequest struct {
	PropertyID int    `json:"property_id" validate:"gt=0"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	AccountNo  string `json:"account_no" validate:"required,max=64"`
	Status     string `json:"status"`
}

// Pay records a payment on the tenant's booking of a property.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.paymentService.Pay(r.Context(), actor.ID, services.PaymentInput{
		PropertyID: req.PropertyID,
		Amount:     req.Amount,
		AccountNo:  req.AccountNo,
		Status:     req.Status,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	payments, err := h.paymentService.ListByTenant(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) CountMyPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	total, err := h.paymentService.CountByTenant(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{"payments": total})
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.paymentService.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
