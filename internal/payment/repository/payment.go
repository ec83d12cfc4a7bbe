package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/model"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrAlreadyExists = errors.New("payment already initiated for this order")
)

const paymentColumns = `
	id, order_id, user_id, amount, currency, payment_method, status,
	COALESCE(mpesa_receipt_number, ''), phone_number, COALESCE(transaction_id, ''),
	transaction_date, commission_rate, commission_amount, vendor_earnings,
	COALESCE(gateway_response, ''), created_at, updated_at
`

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

func scanPayment(row pgx.Row) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.UserID,
		&p.Amount,
		&p.Currency,
		&p.PaymentMethod,
		&p.Status,
		&p.MpesaReceiptNumber,
		&p.PhoneNumber,
		&p.TransactionID,
		&p.TransactionDate,
		&p.CommissionRate,
		&p.CommissionAmount,
		&p.VendorEarnings,
		&p.GatewayResponse,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrNotFound
		}
		return model.Payment{}, err
	}
	return p, nil
}

// Create inserts the payment. A unique index on order_id keeps it at one
// payment per order.
func (r *PaymentRepository) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	query := `
		INSERT INTO payments (order_id, user_id, amount, currency, payment_method,
		                      phone_number, commission_rate, commission_amount,
		                      vendor_earnings)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'KES'), $5, $6, $7, $8, $9)
		RETURNING ` + paymentColumns

	created, err := scanPayment(r.db.QueryRow(
		ctx, query,
		p.OrderID, p.UserID, p.Amount, p.Currency, string(p.PaymentMethod),
		p.PhoneNumber, p.CommissionRate, p.CommissionAmount, p.VendorEarnings,
	))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return model.Payment{}, ErrAlreadyExists
		}
		return model.Payment{}, fmt.Errorf("failed to insert payment: %w", err)
	}
	return created, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	p, err := scanPayment(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to fetch payment by order: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	p, err := scanPayment(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to fetch payment by transaction: %w", err)
	}
	return p, nil
}

// MarkProcessing stores the CheckoutRequestID and moves the payment to
// processing once the STK push is accepted.
func (r *PaymentRepository) MarkProcessing(ctx context.Context, id int64, transactionID, gatewayResponse string) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `
		UPDATE payments
		SET status = 'processing', transaction_id = $2, gateway_response = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id, transactionID, gatewayResponse))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to mark payment processing: %w", err)
	}
	return p, nil
}

// Complete finalizes a successful payment inside the caller's transaction.
func (r *PaymentRepository) Complete(ctx context.Context, tx pgx.Tx, id int64, receipt string, transactionDate time.Time) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments
		SET status = 'completed', mpesa_receipt_number = $2, transaction_date = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
		RETURNING `+paymentColumns, id, receipt, transactionDate))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to complete payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) Fail(ctx context.Context, tx pgx.Tx, id int64, reason string) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments
		SET status = 'failed', gateway_response = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
		RETURNING `+paymentColumns, id, reason))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to fail payment: %w", err)
	}
	return p, nil
}

// ResetForRetry puts a failed payment back to pending with a new phone
// number so initiation can run again.
func (r *PaymentRepository) ResetForRetry(ctx context.Context, id int64, phoneNumber string) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `
		UPDATE payments
		SET status = 'pending', phone_number = $2, transaction_id = NULL,
		    mpesa_receipt_number = NULL, gateway_response = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
		RETURNING `+paymentColumns, id, phoneNumber))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Payment{}, err
		}
		return model.Payment{}, fmt.Errorf("failed to reset payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PaymentRepository) ListAll(ctx context.Context) ([]model.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC`)
}

// ListStuckProcessing returns payments that have sat in processing longer
// than the cutoff; the reconciler times them out.
func (r *PaymentRepository) ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]model.Payment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status = 'processing' AND updated_at < NOW() - $1::interval
		ORDER BY updated_at
	`, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) LogWebhook(ctx context.Context, source, body string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO webhook_logs (source, body) VALUES ($1, $2)
	`, source, body)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}
