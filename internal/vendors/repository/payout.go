package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

var ErrPayoutNotFound = errors.New("payout request not found")

const payoutColumns = `
	id, vendor_id, amount, recipient_number, recipient_name, status, notes,
	created_at, updated_at
`

type PayoutRepository struct {
	db *pgxpool.Pool
}

func NewPayoutRepository(db *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

func scanPayout(row pgx.Row) (model.PayoutRequest, error) {
	var p model.PayoutRequest
	err := row.Scan(
		&p.ID,
		&p.VendorID,
		&p.Amount,
		&p.RecipientNumber,
		&p.RecipientName,
		&p.Status,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PayoutRequest{}, ErrPayoutNotFound
		}
		return model.PayoutRequest{}, err
	}
	return p, nil
}

func (r *PayoutRepository) CreateRequest(ctx context.Context, p model.PayoutRequest) (model.PayoutRequest, error) {
	query := `
		INSERT INTO payout_requests (vendor_id, amount, recipient_number, recipient_name, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + payoutColumns

	created, err := scanPayout(r.db.QueryRow(
		ctx, query, p.VendorID, p.Amount, p.RecipientNumber, p.RecipientName, p.Notes))
	if err != nil {
		return model.PayoutRequest{}, fmt.Errorf("failed to insert payout request: %w", err)
	}
	return created, nil
}

func (r *PayoutRepository) GetRequest(ctx context.Context, id int64) (model.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	p, err := scanPayout(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrPayoutNotFound) {
			return model.PayoutRequest{}, err
		}
		return model.PayoutRequest{}, fmt.Errorf("failed to fetch payout request: %w", err)
	}
	return p, nil
}

func (r *PayoutRepository) ListRequests(ctx context.Context, vendorID int64, status model.PayoutStatus) ([]model.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE 1=1`
	args := []any{}

	if vendorID != 0 {
		args = append(args, vendorID)
		query += fmt.Sprintf(" AND vendor_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, string(status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout requests: %w", err)
	}
	defer rows.Close()

	var requests []model.PayoutRequest
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, p)
	}
	return requests, rows.Err()
}

// UpdateRequestStatus advances a payout request only from the expected
// current status, so concurrent admins cannot double-process it.
func (r *PayoutRepository) UpdateRequestStatus(ctx context.Context, tx pgx.Tx, id int64, from, to model.PayoutStatus) (model.PayoutRequest, error) {
	p, err := scanPayout(tx.QueryRow(ctx, `
		UPDATE payout_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+payoutColumns, id, string(from), string(to)))
	if err != nil {
		if errors.Is(err, ErrPayoutNotFound) {
			return model.PayoutRequest{}, fmt.Errorf("payout request %d is not %s: %w", id, from, err)
		}
		return model.PayoutRequest{}, fmt.Errorf("failed to update payout status: %w", err)
	}
	return p, nil
}

func (r *PayoutRepository) CreateTransaction(ctx context.Context, tx pgx.Tx, t model.PayoutTransaction) (model.PayoutTransaction, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO payout_transactions (payout_request_id, vendor_id, amount,
		                                 reference, conversation_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.PayoutRequestID, t.VendorID, t.Amount, t.Reference, t.ConversationID, string(t.Status)).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return model.PayoutTransaction{}, fmt.Errorf("failed to insert payout transaction: %w", err)
	}
	return t, nil
}

// SetTransactionConversation records the gateway conversation ID once the
// transfer request has been accepted.
func (r *PayoutRepository) SetTransactionConversation(ctx context.Context, id int64, conversationID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payout_transactions
		SET conversation_id = $2
		WHERE id = $1
	`, id, conversationID)
	if err != nil {
		return fmt.Errorf("failed to record payout conversation: %w", err)
	}
	return nil
}

// GetTransactionByConversation resolves a B2C result callback back to the
// transaction that initiated it.
func (r *PayoutRepository) GetTransactionByConversation(ctx context.Context, conversationID string) (model.PayoutTransaction, error) {
	var t model.PayoutTransaction
	err := r.db.QueryRow(ctx, `
		SELECT id, payout_request_id, vendor_id, amount, reference, conversation_id,
		       COALESCE(receipt_number, ''), status, COALESCE(failure_reason, ''),
		       created_at, completed_at
		FROM payout_transactions
		WHERE conversation_id = $1
	`, conversationID).Scan(
		&t.ID, &t.PayoutRequestID, &t.VendorID, &t.Amount, &t.Reference,
		&t.ConversationID, &t.ReceiptNumber, &t.Status, &t.FailureReason,
		&t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PayoutTransaction{}, ErrPayoutNotFound
		}
		return model.PayoutTransaction{}, fmt.Errorf("failed to fetch payout transaction: %w", err)
	}
	return t, nil
}

func (r *PayoutRepository) CompleteTransaction(ctx context.Context, tx pgx.Tx, id int64, receipt string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payout_transactions
		SET status = 'completed', receipt_number = $2, completed_at = NOW()
		WHERE id = $1
	`, id, receipt)
	if err != nil {
		return fmt.Errorf("failed to complete payout transaction: %w", err)
	}
	return nil
}

func (r *PayoutRepository) FailTransaction(ctx context.Context, tx pgx.Tx, id int64, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payout_transactions
		SET status = 'failed', failure_reason = $2, completed_at = NOW()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to fail payout transaction: %w", err)
	}
	return nil
}

func (r *PayoutRepository) ListEarnings(ctx context.Context, vendorID int64) ([]model.VendorEarning, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, vendor_id, payment_id, order_id, gross_amount, commission_rate,
		       commission_amount, net_amount, created_at
		FROM vendor_earnings
		WHERE vendor_id = $1
		ORDER BY created_at DESC
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	defer rows.Close()

	var earnings []model.VendorEarning
	for rows.Next() {
		var e model.VendorEarning
		if err := rows.Scan(&e.ID, &e.VendorID, &e.PaymentID, &e.OrderID,
			&e.GrossAmount, &e.CommissionRate, &e.CommissionAmount,
			&e.NetAmount, &e.CreatedAt); err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}
