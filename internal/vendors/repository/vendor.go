package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

var (
	ErrNotFound       = errors.New("vendor not found")
	ErrAlreadyExists  = errors.New("vendor profile already exists for this user")
	ErrNotEnoughFunds = errors.New("amount exceeds available balance")
)

const vendorColumns = `
	id, user_id, business_name, business_type, description, latitude, longitude,
	address, city, country, contact_number, opening_hours, is_verified, is_active,
	average_rating, total_reviews, total_earnings, available_balance,
	pending_payouts, total_paid_out, payout_recipient_number,
	payout_recipient_name, created_at, updated_at
`

type VendorRepository struct {
	db *pgxpool.Pool
}

func NewVendorRepository(db *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

func scanVendor(row pgx.Row) (model.Vendor, error) {
	var v model.Vendor
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.BusinessName,
		&v.BusinessType,
		&v.Description,
		&v.Latitude,
		&v.Longitude,
		&v.Address,
		&v.City,
		&v.Country,
		&v.ContactNumber,
		&v.OpeningHours,
		&v.IsVerified,
		&v.IsActive,
		&v.AverageRating,
		&v.TotalReviews,
		&v.TotalEarnings,
		&v.AvailableBalance,
		&v.PendingPayouts,
		&v.TotalPaidOut,
		&v.PayoutRecipientNumber,
		&v.PayoutRecipientName,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Vendor{}, ErrNotFound
		}
		return model.Vendor{}, err
	}
	return v, nil
}

func (r *VendorRepository) Create(ctx context.Context, v model.Vendor) (model.Vendor, error) {
	query := `
		INSERT INTO vendors (user_id, business_name, business_type, description,
		                     latitude, longitude, address, city, country,
		                     contact_number, opening_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE(NULLIF($9, ''), 'Kenya'), $10, $11)
		RETURNING ` + vendorColumns

	created, err := scanVendor(r.db.QueryRow(
		ctx,
		query,
		v.UserID,
		v.BusinessName,
		string(v.BusinessType),
		v.Description,
		v.Latitude,
		v.Longitude,
		v.Address,
		v.City,
		v.Country,
		v.ContactNumber,
		v.OpeningHours,
	))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return model.Vendor{}, ErrAlreadyExists
		}
		return model.Vendor{}, fmt.Errorf("failed to insert vendor: %w", err)
	}
	return created, nil
}

func (r *VendorRepository) GetByID(ctx context.Context, id int64) (model.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	v, err := scanVendor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Vendor{}, err
		}
		return model.Vendor{}, fmt.Errorf("failed to fetch vendor: %w", err)
	}
	return v, nil
}

func (r *VendorRepository) GetByUserID(ctx context.Context, userID int64) (model.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE user_id = $1`
	v, err := scanVendor(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Vendor{}, err
		}
		return model.Vendor{}, fmt.Errorf("failed to fetch vendor by user: %w", err)
	}
	return v, nil
}

// ListFilter narrows the vendor listing. Zero values mean "no filter".
type ListFilter struct {
	BusinessType string
	City         string
	IsVerified   *bool
}

func (r *VendorRepository) List(ctx context.Context, f ListFilter) ([]model.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE is_active = true`
	args := []any{}

	if f.BusinessType != "" {
		args = append(args, f.BusinessType)
		query += fmt.Sprintf(" AND business_type = $%d", len(args))
	}
	if f.City != "" {
		args = append(args, f.City)
		query += fmt.Sprintf(" AND LOWER(city) = LOWER($%d)", len(args))
	}
	if f.IsVerified != nil {
		args = append(args, *f.IsVerified)
		query += fmt.Sprintf(" AND is_verified = $%d", len(args))
	}
	query += " ORDER BY average_rating DESC, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (r *VendorRepository) Update(ctx context.Context, v model.Vendor) (model.Vendor, error) {
	query := `
		UPDATE vendors
		SET business_name = COALESCE(NULLIF($2, ''), business_name),
		    description = COALESCE(NULLIF($3, ''), description),
		    latitude = $4,
		    longitude = $5,
		    address = COALESCE(NULLIF($6, ''), address),
		    city = COALESCE(NULLIF($7, ''), city),
		    contact_number = COALESCE(NULLIF($8, ''), contact_number),
		    opening_hours = COALESCE(NULLIF($9, ''), opening_hours),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + vendorColumns

	updated, err := scanVendor(r.db.QueryRow(
		ctx, query,
		v.ID, v.BusinessName, v.Description, v.Latitude, v.Longitude,
		v.Address, v.City, v.ContactNumber, v.OpeningHours,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Vendor{}, err
		}
		return model.Vendor{}, fmt.Errorf("failed to update vendor: %w", err)
	}
	return updated, nil
}

// UpdatePayoutPreferences stores the vendor's default payout recipient.
func (r *VendorRepository) UpdatePayoutPreferences(ctx context.Context, vendorID int64, number, name string) (model.Vendor, error) {
	query := `
		UPDATE vendors
		SET payout_recipient_number = $2,
		    payout_recipient_name = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + vendorColumns

	updated, err := scanVendor(r.db.QueryRow(ctx, query, vendorID, number, name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Vendor{}, err
		}
		return model.Vendor{}, fmt.Errorf("failed to update payout preferences: %w", err)
	}
	return updated, nil
}

// RefreshRatingAggregate recomputes average_rating and total_reviews from
// the reviews table inside the caller's transaction.
func (r *VendorRepository) RefreshRatingAggregate(ctx context.Context, tx pgx.Tx, vendorID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE vendors
		SET average_rating = COALESCE((SELECT AVG(rating) FROM vendor_reviews WHERE vendor_id = $1), 0),
		    total_reviews = (SELECT COUNT(*) FROM vendor_reviews WHERE vendor_id = $1),
		    updated_at = NOW()
		WHERE id = $1
	`, vendorID)
	if err != nil {
		return fmt.Errorf("failed to refresh rating aggregate: %w", err)
	}
	return nil
}

// CreditEarning moves a completed payment's net amount onto the vendor's
// balance within the caller's transaction.
func (r *VendorRepository) CreditEarning(ctx context.Context, tx pgx.Tx, e model.VendorEarning) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO vendor_earnings (vendor_id, payment_id, order_id, gross_amount,
		                             commission_rate, commission_amount, net_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.VendorID, e.PaymentID, e.OrderID, e.GrossAmount, e.CommissionRate, e.CommissionAmount, e.NetAmount)
	if err != nil {
		return fmt.Errorf("failed to insert vendor earning: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE vendors
		SET total_earnings = total_earnings + $2,
		    available_balance = available_balance + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, e.VendorID, e.NetAmount)
	if err != nil {
		return fmt.Errorf("failed to credit vendor balance: %w", err)
	}
	return nil
}

// HoldPayout moves funds available -> pending when a payout starts
// processing. Fails when the balance cannot cover the amount.
func (r *VendorRepository) HoldPayout(ctx context.Context, tx pgx.Tx, vendorID int64, amount float64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE vendors
		SET available_balance = available_balance - $2,
		    pending_payouts = pending_payouts + $2,
		    updated_at = NOW()
		WHERE id = $1 AND available_balance >= $2
	`, vendorID, amount)
	if err != nil {
		return fmt.Errorf("failed to hold payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotEnoughFunds
	}
	return nil
}

// SettlePayout moves funds pending -> paid_out after a successful B2C result.
func (r *VendorRepository) SettlePayout(ctx context.Context, tx pgx.Tx, vendorID int64, amount float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE vendors
		SET pending_payouts = pending_payouts - $2,
		    total_paid_out = total_paid_out + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, vendorID, amount)
	if err != nil {
		return fmt.Errorf("failed to settle payout: %w", err)
	}
	return nil
}

// RevertPayout returns held funds to the available balance after a failed
// B2C result.
func (r *VendorRepository) RevertPayout(ctx context.Context, tx pgx.Tx, vendorID int64, amount float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE vendors
		SET pending_payouts = pending_payouts - $2,
		    available_balance = available_balance + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, vendorID, amount)
	if err != nil {
		return fmt.Errorf("failed to revert payout: %w", err)
	}
	return nil
}

func (r *VendorRepository) Dashboard(ctx context.Context, vendorID int64) (model.DashboardSummary, error) {
	var d model.DashboardSummary
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE vendor_id = $1),
			(SELECT COUNT(*) FROM orders WHERE vendor_id = $1 AND status IN ('pending', 'confirmed', 'in_progress')),
			(SELECT COUNT(*) FROM orders WHERE vendor_id = $1 AND status = 'completed'),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE vendor_id = $1 AND payment_status = 'paid'),
			v.available_balance,
			v.pending_payouts,
			v.total_paid_out,
			(SELECT COUNT(*) FROM gas_products WHERE vendor_id = $1 AND is_active = true),
			(SELECT COUNT(*) FROM gas_products WHERE vendor_id = $1 AND is_active = true AND stock_quantity <= min_stock_alert),
			v.average_rating,
			v.total_reviews
		FROM vendors v WHERE v.id = $1
	`, vendorID).Scan(
		&d.TotalOrders,
		&d.PendingOrders,
		&d.CompletedOrders,
		&d.TotalRevenue,
		&d.AvailableBalance,
		&d.PendingPayouts,
		&d.TotalPaidOut,
		&d.ProductCount,
		&d.LowStockProducts,
		&d.AverageRating,
		&d.TotalReviews,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DashboardSummary{}, ErrNotFound
		}
		return model.DashboardSummary{}, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return d, nil
}
