package types

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case BookingPending, BookingApproved, BookingRejected, BookingCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
}

// Booking is a tenant's request to rent a property.
type Booking struct {
	ID         int           `json:"id" db:"id"`
	PropertyID int           `json:"property_id" db:"property_id"`
	LandlordID int           `json:"landlord_id" db:"landlord_id"`
	UserID     int           `json:"user_id" db:"user_id"`
	Status     BookingStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// Payment tracks what a tenant has paid for a booking. A payment row is
// created together with its booking in the unpaid state.
type Payment struct {
	ID         int           `json:"id" db:"id"`
	BookingID  int           `json:"booking_id" db:"booking_id"`
	PropertyID int           `json:"property_id" db:"property_id"`
	LandlordID int           `json:"landlord_id" db:"landlord_id"`
	UserID     int           `json:"user_id" db:"user_id"`
	Paid       int64         `json:"paid" db:"paid"`
	AccountNo  string        `json:"account_no,omitempty" db:"account_no"`
	Status     PaymentStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// PropertySummary is the property part embedded in booking and payment views.
type PropertySummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Price       int64  `json:"price"`
	Bedrooms    int    `json:"bedrooms"`
	Bathrooms   int    `json:"bathrooms"`
	Type        string `json:"type"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

// TenantSummary is the tenant part embedded in landlord and admin views.
type TenantSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
}

// BookingView is a booking joined with its property, tenant and payment.
// Tenant is omitted in the tenant's own listing.
type BookingView struct {
	ID            int             `json:"id"`
	Status        BookingStatus   `json:"status"`
	PaymentID     int             `json:"payment_id,omitempty"`
	PaymentStatus PaymentStatus   `json:"payment_status,omitempty"`
	Property      PropertySummary `json:"property"`
	Tenant        *TenantSummary  `json:"tenant,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentView is a payment joined with its property and, for admin views,
// the tenant and booking.
type PaymentView struct {
	ID            int             `json:"id"`
	Status        PaymentStatus   `json:"status"`
	Paid          int64           `json:"paid"`
	BookingID     int             `json:"booking_id"`
	BookingStatus BookingStatus   `json:"booking_status,omitempty"`
	Property      PropertySummary `json:"property"`
	Tenant        *TenantSummary  `json:"tenant,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Favorite marks a property as liked by a user.
type Favorite struct {
	ID         int       `json:"id" db:"id"`
	UserID     int       `json:"user_id" db:"user_id"`
	PropertyID int       `json:"property_id" db:"property_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LandlordStats aggregates a landlord's dashboard counters.
type LandlordStats struct {
	Properties int `json:"properties"`
	Booked     int `json:"booked"`
	Payments   int `json:"payments"`
}

// AdminStats aggregates site-wide counters.
type AdminStats struct {
	Users      int `json:"users"`
	Properties int `json:"properties"`
	Bookings   int `json:"bookings"`
	Payments   int `json:"payments"`
}
