package services

import (
	"context"
	"strings"

	"github.com/prostay/apiserver/internal/mq"
	"github.com/prostay/apiserver/types"
)

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	UpdateForTenant(ctx context.Context, payment types.Payment) (types.Payment, error)
	ListByTenant(ctx context.Context, userID int) ([]types.PaymentView, error)
	ListByLandlord(ctx context.Context, landlordID int) ([]types.PaymentView, error)
	ListAll(ctx context.Context) ([]types.PaymentView, error)
	CountByTenant(ctx context.Context, userID int) (int, error)
}

// PaymentInput is a tenant's payment for a booked property.
type PaymentInput struct {
	PropertyID int
	Amount     int64
	AccountNo  string
	Status     string
}

type PaymentService struct {
	repo   PaymentRepository
	events EventNotifier
}

func NewPaymentService(repo PaymentRepository, events EventNotifier) *PaymentService {
	return &PaymentService{repo: repo, events: notifierOrDiscard(events)}
}

// Pay records a payment on the tenant's own booking of in.PropertyID.
// store.ErrNotFound is returned when the tenant has no such booking.
func (s *PaymentService) Pay(ctx context.Context, tenantID int, in PaymentInput) (types.Payment, error) {
	if in.PropertyID < 1 {
		return types.Payment{}, invalidf("property_id must be positive")
	}
	if in.Amount < 0 {
		return types.Payment{}, invalidf("amount must not be negative")
	}
	accountNo := strings.TrimSpace(in.AccountNo)
	if accountNo == "" {
		return types.Payment{}, invalidf("account_no is required")
	}
	status := types.PaymentPaid
	if strings.TrimSpace(in.Status) != "" {
		parsed, err := types.ParsePaymentStatus(in.Status)
		if err != nil {
			return types.Payment{}, invalidf("%v", err)
		}
		status = parsed
	}

	payment, err := s.repo.UpdateForTenant(ctx, types.Payment{
		PropertyID: in.PropertyID,
		UserID:     tenantID,
		Paid:       in.Amount,
		AccountNo:  accountNo,
		Status:     status,
	})
	if err != nil {
		return types.Payment{}, err
	}

	s.events.Notify(ctx, mq.NewEvent(mq.EventPaymentUpdated, payment.ID, tenantID, map[string]any{
		"booking_id": payment.BookingID,
		"status":     payment.Status,
		"paid":       payment.Paid,
	}))
	return payment, nil
}

func (s *PaymentService) ListByTenant(ctx context.Context, tenantID int) ([]types.PaymentView, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

func (s *PaymentService) CountByTenant(ctx context.Context, tenantID int) (int, error) {
	return s.repo.CountByTenant(ctx, tenantID)
}

func (s *PaymentService) ListByLandlord(ctx context.Context, landlordID int) ([]types.PaymentView, error) {
	return s.repo.ListByLandlord(ctx, landlordID)
}

func (s *PaymentService) ListAll(ctx context.Context) ([]types.PaymentView, error) {
	return s.repo.ListAll(ctx)
}
