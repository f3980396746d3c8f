package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const foreignKeyViolation = pq.ErrorCode("23503")

// FavoriteRepository handles persistence for favorites.
type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Toggle flips the (userID, propertyID) favorite and reports whether the
// pair is liked afterwards. Toggles for the same pair are serialized by a
// transaction-scoped advisory lock, so concurrent calls alternate instead of
// racing on the read-then-write. ErrNotFound is returned for an unknown
// property.
func (r *FavoriteRepository) Toggle(ctx context.Context, userID, propertyID int) (liked bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, userID, propertyID); err != nil {
		return false, fmt.Errorf("lock favorite: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND property_id = $2`, userID, propertyID)
	if err != nil {
		return false, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if deleted == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO favorites (user_id, property_id) VALUES ($1, $2)`, userID, propertyID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
				err = ErrNotFound
			}
			return false, err
		}
		liked = true
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return liked, nil
}

// IsFavorite reports whether userID has liked propertyID.
func (r *FavoriteRepository) IsFavorite(ctx context.Context, userID, propertyID int) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND property_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, userID, propertyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
