package services

import (
	"context"

	"github.com/prostay/apiserver/internal/mq"
	"github.com/prostay/apiserver/types"
)

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking types.Booking) (types.Booking, types.Payment, error)
	Get(ctx context.Context, id int) (types.Booking, error)
	UpdateStatus(ctx context.Context, id int, status types.BookingStatus) error
	ListByTenant(ctx context.Context, userID int) ([]types.BookingView, error)
	ListByLandlord(ctx context.Context, landlordID int) ([]types.BookingView, error)
	ListAll(ctx context.Context) ([]types.BookingView, error)
	CountByTenant(ctx context.Context, userID int) (int, error)
}

// PropertyGetter loads a single property.
type PropertyGetter interface {
	Get(ctx context.Context, id int) (types.Property, error)
}

// BookingService encapsulates booking use-cases.
type BookingService struct {
	repo       BookingRepository
	properties PropertyGetter
	events     EventNotifier
}

func NewBookingService(repo BookingRepository, properties PropertyGetter, events EventNotifier) *BookingService {
	return &BookingService{repo: repo, properties: properties, events: notifierOrDiscard(events)}
}

// Book reserves propertyID for tenantID and opens its unpaid payment. The
// landlord is taken from the property. store.ErrConflict is returned when
// the tenant already booked it.
func (s *BookingService) Book(ctx context.Context, tenantID, propertyID int) (types.Booking, types.Payment, error) {
	if propertyID < 1 {
		return types.Booking{}, types.Payment{}, invalidf("property_id must be positive")
	}
	property, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return types.Booking{}, types.Payment{}, err
	}
	if property.Status != types.PropertyAvailable {
		return types.Booking{}, types.Payment{}, invalidf("property is %s", property.Status)
	}

	booking, payment, err := s.repo.Create(ctx, types.Booking{
		PropertyID: property.ID,
		LandlordID: property.LandlordID,
		UserID:     tenantID,
		Status:     types.BookingPending,
	})
	if err != nil {
		return types.Booking{}, types.Payment{}, err
	}

	s.events.Notify(ctx, mq.NewEvent(mq.EventBookingCreated, booking.ID, tenantID, map[string]int{
		"property_id": booking.PropertyID,
		"landlord_id": booking.LandlordID,
		"payment_id":  payment.ID,
	}))
	return booking, payment, nil
}

// UpdateStatus moves a booking to rawStatus. Only the landlord of the
// booked property or an admin may do so.
func (s *BookingService) UpdateStatus(ctx context.Context, actor Actor, id int, rawStatus string) (types.BookingStatus, error) {
	status, err := types.ParseBookingStatus(rawStatus)
	if err != nil {
		return "", invalidf("%v", err)
	}
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !actor.owns(booking.LandlordID) {
		return "", ErrForbidden
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return "", err
	}

	s.events.Notify(ctx, mq.NewEvent(mq.EventBookingStatusChanged, id, actor.ID, map[string]string{
		"from": string(booking.Status),
		"to":   string(status),
	}))
	return status, nil
}

func (s *BookingService) ListByTenant(ctx context.Context, tenantID int) ([]types.BookingView, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

func (s *BookingService) CountByTenant(ctx context.Context, tenantID int) (int, error) {
	return s.repo.CountByTenant(ctx, tenantID)
}

func (s *BookingService) ListByLandlord(ctx context.Context, landlordID int) ([]types.BookingView, error) {
	return s.repo.ListByLandlord(ctx, landlordID)
}

func (s *BookingService) ListAll(ctx context.Context) ([]types.BookingView, error) {
	return s.repo.ListAll(ctx)
}
