package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prostay/apiserver/types"
)

// PaymentRepository handles persistence for payments.
type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// UpdateForTenant records a payment by userID for propertyID. Only payments
// whose booking is still pending or approved are touched; ErrNotFound is
// returned otherwise.
func (r *PaymentRepository) UpdateForTenant(ctx context.Context, payment types.Payment) (types.Payment, error) {
	payment.UpdatedAt = time.Now()

	const query = `
		UPDATE payments m
		SET paid = $1,
			status = $2,
			account_no = $3,
			updated_at = $4
		FROM bookings b
		WHERE b.id = m.booking_id
			AND m.property_id = $5
			AND m.user_id = $6
			AND b.status IN ($7, $8)
		RETURNING m.id, m.booking_id, m.landlord_id, m.created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		payment.Paid,
		string(payment.Status),
		payment.AccountNo,
		payment.UpdatedAt,
		payment.PropertyID,
		payment.UserID,
		string(types.BookingPending),
		string(types.BookingApproved),
	).Scan(&payment.ID, &payment.BookingID, &payment.LandlordID, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Payment{}, ErrNotFound
		}
		return types.Payment{}, err
	}
	return payment, nil
}

const paymentViewQuery = `
	SELECT m.id, m.status, m.paid, m.updated_at,
	       b.id, b.status,
	       p.id, p.title, p.price, p.bedrooms, p.bathrooms, p.type, p.address, p.city, p.description, COALESCE(p.image, ''),
	       u.id, u.name, u.email, COALESCE(u.photo, '')
	FROM payments m
	JOIN bookings b ON m.booking_id = b.id
	JOIN properties p ON m.property_id = p.id
	JOIN users u ON m.user_id = u.id`

func (r *PaymentRepository) ListByTenant(ctx context.Context, userID int) ([]types.PaymentView, error) {
	return r.listViews(ctx, false, paymentViewQuery+` WHERE m.user_id = $1 ORDER BY m.id DESC`, userID)
}

func (r *PaymentRepository) ListByLandlord(ctx context.Context, landlordID int) ([]types.PaymentView, error) {
	return r.listViews(ctx, true, paymentViewQuery+` WHERE m.landlord_id = $1 ORDER BY m.id DESC`, landlordID)
}

func (r *PaymentRepository) ListAll(ctx context.Context) ([]types.PaymentView, error) {
	return r.listViews(ctx, true, paymentViewQuery+` ORDER BY m.id DESC`)
}

func (r *PaymentRepository) listViews(ctx context.Context, withTenant bool, query string, args ...any) ([]types.PaymentView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]types.PaymentView, 0)
	for rows.Next() {
		var view types.PaymentView
		var tenant types.TenantSummary
		var status, bookingStatus string
		if err := rows.Scan(
			&view.ID,
			&status,
			&view.Paid,
			&view.UpdatedAt,
			&view.BookingID,
			&bookingStatus,
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
		view.Status = types.PaymentStatus(status)
		view.BookingStatus = types.BookingStatus(bookingStatus)
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

func (r *PaymentRepository) Count(ctx context.Context) (int, error) {
	return countWhere(ctx, r.db, `SELECT COUNT(1) FROM payments`)
}

func (r *PaymentRepository) CountByTenant(ctx context.Context, userID int) (int, error) {
	return countWhere(ctx, r.db, `SELECT COUNT(1) FROM payments WHERE user_id = $1`, userID)
}

func (r *PaymentRepository) CountByLandlord(ctx context.Context, landlordID int) (int, error) {
	return countWhere(ctx, r.db, `SELECT COUNT(1) FROM payments WHERE landlord_id = $1`, landlordID)
}
