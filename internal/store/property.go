package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prostay/apiserver/types"
)

const propertyColumns = `p.id, p.title, p.price, p.bedrooms, p.bathrooms, p.type, p.address, p.city,
	p.description, COALESCE(p.image, ''), p.status, p.landlord_id, p.created_at, p.updated_at`

// PropertyRepository handles persistence for properties.
type PropertyRepository struct {
	db *sql.DB
}

func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func scanProperty(row rowScanner, extra ...any) (types.Property, error) {
	var property types.Property
	var status string
	dest := []any{
		&property.ID,
		&property.Title,
		&property.Price,
		&property.Bedrooms,
		&property.Bathrooms,
		&property.Type,
		&property.Address,
		&property.City,
		&property.Description,
		&property.Image,
		&status,
		&property.LandlordID,
		&property.CreatedAt,
		&property.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return types.Property{}, err
	}
	property.Status = types.PropertyStatus(status)
	return property, nil
}

// List returns a page of properties newest first. When viewerID is positive
// each item reports whether that user has it in their favorites.
func (r *PropertyRepository) List(ctx context.Context, viewerID, offset, limit int) ([]types.PropertyListItem, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT p.id, p.title, p.price, p.bedrooms, p.bathrooms, p.type, p.address, p.city,
		       COALESCE(p.image, ''), p.status, p.landlord_id, COALESCE(u.photo, ''),
		       (f.id IS NOT NULL) AS liked
		FROM properties p
		JOIN users u ON p.landlord_id = u.id
		LEFT JOIN favorites f ON f.property_id = p.id AND f.user_id = $1
		ORDER BY p.id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, viewerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]types.PropertyListItem, 0, limit)
	for rows.Next() {
		var item types.PropertyListItem
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Price,
			&item.Bedrooms,
			&item.Bathrooms,
			&item.Type,
			&item.Address,
			&item.City,
			&item.Image,
			&status,
			&item.LandlordID,
			&item.LandlordPhoto,
			&item.Liked,
		); err != nil {
			return nil, 0, err
		}
		item.Status = types.PropertyStatus(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListByLandlord returns every property owned by landlordID, newest first.
func (r *PropertyRepository) ListByLandlord(ctx context.Context, landlordID int) ([]types.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.landlord_id = $1 ORDER BY p.id DESC`
	rows, err := r.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	properties := make([]types.Property, 0)
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return properties, nil
}

// ListFavorites returns the properties userID has marked as favorite.
func (r *PropertyRepository) ListFavorites(ctx context.Context, userID int) ([]types.PropertyListItem, error) {
	const query = `
		SELECT p.id, p.title, p.price, p.bedrooms, p.bathrooms, p.type, p.address, p.city,
		       COALESCE(p.image, ''), p.status, p.landlord_id, COALESCE(u.photo, '')
		FROM favorites f
		JOIN properties p ON p.id = f.property_id
		JOIN users u ON p.landlord_id = u.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.PropertyListItem, 0)
	for rows.Next() {
		item := types.PropertyListItem{Liked: true}
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Price,
			&item.Bedrooms,
			&item.Bathrooms,
			&item.Type,
			&item.Address,
			&item.City,
			&item.Image,
			&status,
			&item.LandlordID,
			&item.LandlordPhoto,
		); err != nil {
			return nil, err
		}
		item.Status = types.PropertyStatus(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PropertyRepository) Get(ctx context.Context, id int) (types.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties p WHERE p.id = $1`
	property, err := scanProperty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Property{}, ErrNotFound
		}
		return types.Property{}, err
	}
	return property, nil
}

// GetDetails returns a property joined with its landlord's contact data.
func (r *PropertyRepository) GetDetails(ctx context.Context, id int) (types.PropertyDetails, error) {
	query := `
		SELECT ` + propertyColumns + `, u.name, u.phone, COALESCE(u.photo, '')
		FROM properties p
		JOIN users u ON p.landlord_id = u.id
		WHERE p.id = $1`
	var details types.PropertyDetails
	property, err := scanProperty(
		r.db.QueryRowContext(ctx, query, id),
		&details.LandlordName,
		&details.LandlordPhone,
		&details.LandlordPhoto,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PropertyDetails{}, ErrNotFound
		}
		return types.PropertyDetails{}, err
	}
	details.Property = property
	return details, nil
}

func (r *PropertyRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM properties`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PropertyRepository) CountByLandlord(ctx context.Context, landlordID int) (int, error) {
	var total int
	const query = `SELECT COUNT(1) FROM properties WHERE landlord_id = $1`
	if err := r.db.QueryRowContext(ctx, query, landlordID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PropertyRepository) Create(ctx context.Context, property types.Property) (types.Property, error) {
	now := time.Now()
	property.CreatedAt = now
	property.UpdatedAt = now
	if property.Status == "" {
		property.Status = types.PropertyAvailable
	}

	const query = `
		INSERT INTO properties (title, price, bedrooms, bathrooms, type, address, city, description, image, status, landlord_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		property.Title,
		property.Price,
		property.Bedrooms,
		property.Bathrooms,
		property.Type,
		property.Address,
		property.City,
		property.Description,
		property.Image,
		string(property.Status),
		property.LandlordID,
		property.CreatedAt,
		property.UpdatedAt,
	).Scan(&property.ID); err != nil {
		return types.Property{}, translateWriteErr(err)
	}
	return property, nil
}

// Update rewrites the descriptive fields of a property. The image is only
// replaced when property.Image is set. Status and ownership are left
// untouched.
func (r *PropertyRepository) Update(ctx context.Context, property types.Property) (types.Property, error) {
	property.UpdatedAt = time.Now()

	const query = `
		UPDATE properties
		SET title = $1,
			price = $2,
			bedrooms = $3,
			bathrooms = $4,
			type = $5,
			address = $6,
			city = $7,
			description = $8,
			image = COALESCE(NULLIF($9, ''), image),
			updated_at = $10
		WHERE id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		property.Title,
		property.Price,
		property.Bedrooms,
		property.Bathrooms,
		property.Type,
		property.Address,
		property.City,
		property.Description,
		property.Image,
		property.UpdatedAt,
		property.ID,
	)
	if err != nil {
		return types.Property{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.Property{}, err
	}
	return property, nil
}

func (r *PropertyRepository) UpdateStatus(ctx context.Context, id int, status types.PropertyStatus) error {
	const query = `UPDATE properties SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, string(status), time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *PropertyRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM properties WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
