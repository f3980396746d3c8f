package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prostay/apiserver/types"
)

// BookingRepository handles persistence for bookings and the payment row
// created with each booking.
type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking and its unpaid payment in one transaction.
// ErrConflict is returned when the tenant already booked the property.
func (r *BookingRepository) Create(ctx context.Context, booking types.Booking) (types.Booking, types.Payment, error) {
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = types.BookingPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Booking{}, types.Payment{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const bookingQuery = `
		INSERT INTO bookings (property_id, landlord_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		bookingQuery,
		booking.PropertyID,
		booking.LandlordID,
		booking.UserID,
		string(booking.Status),
		booking.CreatedAt,
		booking.UpdatedAt,
	).Scan(&booking.ID); err != nil {
		return types.Booking{}, types.Payment{}, translateWriteErr(err)
	}

	payment := types.Payment{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		LandlordID: booking.LandlordID,
		UserID:     booking.UserID,
		Status:     types.PaymentUnpaid,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	const paymentQuery = `
		INSERT INTO payments (booking_id, property_id, landlord_id, user_id, paid, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		paymentQuery,
		payment.BookingID,
		payment.PropertyID,
		payment.LandlordID,
		payment.UserID,
		string(payment.Status),
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID); err != nil {
		return types.Booking{}, types.Payment{}, translateWriteErr(err)
	}

	if err := tx.Commit(); err != nil {
		return types.Booking{}, types.Payment{}, err
	}
	return booking, payment, nil
}

func (r *BookingRepository) Get(ctx context.Context, id int) (types.Booking, error) {
	const query = `
		SELECT id, property_id, landlord_id, user_id, status, created_at, updated_at
		FROM bookings
		WHERE id = $1`
	var booking types.Booking
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.PropertyID,
		&booking.LandlordID,
		&booking.UserID,
		&status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Booking{}, ErrNotFound
		}
		return types.Booking{}, err
	}
	booking.Status = types.BookingStatus(status)
	return booking, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int, status types.BookingStatus) error {
	const query = `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, string(status), time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

const bookingViewQuery = `
	SELECT b.id, b.status, b.created_at,
	       COALESCE(m.id, 0), COALESCE(m.status, ''),
	       p.id, p.title, p.price, p.bedrooms, p.bathrooms, p.type, p.address, p.city, p.description, COALESCE(p.image, ''),
	       u.id, u.name, u.email, COALESCE(u.photo, '')
	FROM bookings b
	JOIN properties p ON b.property_id = p.id
	JOIN users u ON b.user_id = u.id
	LEFT JOIN payments m ON m.booking_id = b.id`

// ListByTenant returns the bookings made by userID.
func (r *BookingRepository) ListByTenant(ctx context.Context, userID int) ([]types.BookingView, error) {
	return r.listViews(ctx, false, bookingViewQuery+` WHERE b.user_id = $1 ORDER BY b.id DESC`, userID)
}

// ListByLandlord returns the bookings on properties owned by landlordID.
func (r *BookingRepository) ListByLandlord(ctx context.Context, landlordID int) ([]types.BookingView, error) {
	return r.listViews(ctx, true, bookingViewQuery+` WHERE b.landlord_id = $1 ORDER BY b.id DESC`, landlordID)
}

func (r *BookingRepository) ListAll(ctx context.Context) ([]types.BookingView, error) {
	return r.listViews(ctx, true, bookingViewQuery+` ORDER BY b.id DESC`)
}

func (r *BookingRepository) listViews(ctx context.Context, withTenant bool, query string, args ...any) ([]types.BookingView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]types.BookingView, 0)
	for rows.Next() {
		var view types.BookingView
		var tenant types.TenantSummary
		var status, paymentStatus string
		if err := rows.Scan(
			&view.ID,
			&status,
			&view.CreatedAt,
			&view.PaymentID,
			&paymentStatus,
			&view.Property.ID,
			&view.Property.Title,
			&view.Property.Price,
			&view.Property.Bedrooms,
			&view.Property.Bathrooms,
			&view.Property.Type,
			&view.Property.Address,
			&view.Property.City,
			&view.Property.Description,
			&view.Property.Image,
			&tenant.ID,
			&tenant.Name,
			&tenant.Email,
			&tenant.Photo,
		); err != nil {
			return nil, err
		}
		view.Status = types.BookingStatus(status)
		view.PaymentStatus = types.PaymentStatus(paymentStatus)
		if withTenant {
			view.Tenant = &tenant
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *BookingRepository) Count(ctx context.Context) (int, error) {
	return countWhere(ctx, r.db, `SELECT COUNT(1) FROM bookings`)
}

func (r *BookingRepository) CountByTenant(ctx context.Context, userID int) (int, error) {
	return countWhere(ctx, r.db, `SELECT COUNT(1) FROM bookings WHERE user_id = $1`, userID)
}

func (r *BookingRepository) CountByLandlord(ctx context.Context, landlordID int) (int, error) {
	return countWhere(ctx, r.db, `SELECT COUNT(1) FROM bookings WHERE landlord_id = $1`, landlordID)
}

func countWhere(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	var total int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
