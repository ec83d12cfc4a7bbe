package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

type ReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// Create upserts the user's review for the vendor. One review per
// (vendor, user) pair; submitting again replaces the old rating.
func (r *ReviewRepository) Create(ctx context.Context, tx pgx.Tx, rv model.VendorReview) (model.VendorReview, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO vendor_reviews (vendor_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vendor_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		RETURNING id, created_at
	`, rv.VendorID, rv.UserID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		return model.VendorReview{}, fmt.Errorf("failed to insert review: %w", err)
	}
	return rv, nil
}

func (r *ReviewRepository) ListByVendor(ctx context.Context, vendorID int64) ([]model.VendorReview, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, vendor_id, user_id, rating, COALESCE(comment, ''), created_at
		FROM vendor_reviews
		WHERE vendor_id = $1
		ORDER BY created_at DESC
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.VendorReview
	for rows.Next() {
		var rv model.VendorReview
		if err := rows.Scan(&rv.ID, &rv.VendorID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
