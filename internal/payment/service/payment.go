package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	ordermodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/daraja"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/repository"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

var (
	ErrAlreadyInitiated = errors.New("payment already initiated")
	ErrNotPaymentParty  = errors.New("payment belongs to another user")
	ErrNotRetryable     = errors.New("only failed payments can be retried")
	ErrOrderNotPayable  = errors.New("order cannot be paid in its current state")
)

type PaymentRepo interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	GetByID(ctx context.Context, id int64) (model.Payment, error)
	GetByOrderID(ctx context.Context, orderID int64) (model.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (model.Payment, error)
	MarkProcessing(ctx context.Context, id int64, transactionID, gatewayResponse string) (model.Payment, error)
	Complete(ctx context.Context, tx pgx.Tx, id int64, receipt string, transactionDate time.Time) (model.Payment, error)
	Fail(ctx context.Context, tx pgx.Tx, id int64, reason string) (model.Payment, error)
	ResetForRetry(ctx context.Context, id int64, phoneNumber string) (model.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	ListAll(ctx context.Context) ([]model.Payment, error)
	ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]model.Payment, error)
	LogWebhook(ctx context.Context, source, body string) error
}

type OrderReader interface {
	GetByID(ctx context.Context, id int64) (ordermodel.Order, error)
	SetPaymentStatus(ctx context.Context, tx pgx.Tx, id int64, status ordermodel.PaymentStatus) error
}

type EarningCreditor interface {
	GetByID(ctx context.Context, id int64) (vendormodel.Vendor, error)
	GetByUserID(ctx context.Context, userID int64) (vendormodel.Vendor, error)
	CreditEarning(ctx context.Context, tx pgx.Tx, e vendormodel.VendorEarning) error
}

// ChargeGateway starts an STK push charge; the live implementation is the
// Daraja client.
type ChargeGateway interface {
	STKPush(ctx context.Context, phoneNumber string, amount float64, accountReference, description string) (daraja.STKPushResponse, error)
}

type PayoutFinisher interface {
	CompleteFromResult(ctx context.Context, conversationID, receipt string, succeeded bool, failureReason string) error
}

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, ev mq.PaymentEvent) error
}

type PaymentService struct {
	payments       PaymentRepo
	orders         OrderReader
	vendors        EarningCreditor
	gateway        ChargeGateway
	payouts        PayoutFinisher
	events         EventPublisher
	commissionRate float64
}

func NewPaymentService(
	payments PaymentRepo,
	orders OrderReader,
	vendors EarningCreditor,
	gateway ChargeGateway,
	payouts PayoutFinisher,
	events EventPublisher,
	commissionRate float64,
) *PaymentService {
	if commissionRate <= 0 || commissionRate >= 1 {
		commissionRate = 0.10
	}
	return &PaymentService{
		payments:       payments,
		orders:         orders,
		vendors:        vendors,
		gateway:        gateway,
		payouts:        payouts,
		events:         events,
		commissionRate: commissionRate,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Initiate creates the payment with its commission split and fires the
// STK push. The payment lands in processing with the CheckoutRequestID
// stored as its transaction id.
func (s *PaymentService) Initiate(ctx context.Context, userID int64, req dto.InitiatePaymentRequest) (dto.InitiatePaymentResponse, error) {
	action := "initiate_payment"

	if err := req.Validate(); err != nil {
		return dto.InitiatePaymentResponse{}, fmt.Errorf("validation error: %w", err)
	}

	msisdn, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return dto.InitiatePaymentResponse{}, fmt.Errorf("validation error: %w", err)
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return dto.InitiatePaymentResponse{}, err
	}
	if order.CustomerID != userID {
		return dto.InitiatePaymentResponse{}, ErrNotPaymentParty
	}
	if order.Status.Terminal() || order.PaymentStatus == ordermodel.PaymentPaid {
		return dto.InitiatePaymentResponse{}, ErrOrderNotPayable
	}

	if existing, err := s.payments.GetByOrderID(ctx, order.ID); err == nil {
		if existing.Status.Terminal() && existing.Status != model.StatusCompleted {
			// A dead payment exists; retry-payment is the path forward.
			return dto.InitiatePaymentResponse{}, fmt.Errorf("%w: previous attempt %s", ErrAlreadyInitiated, existing.Status)
		}
		return dto.InitiatePaymentResponse{}, ErrAlreadyInitiated
	} else if !errors.Is(err, repository.ErrNotFound) {
		return dto.InitiatePaymentResponse{}, err
	}

	commission := round2(order.TotalAmount * s.commissionRate)
	payment, err := s.payments.Create(ctx, model.Payment{
		OrderID:          order.ID,
		UserID:           userID,
		Amount:           order.TotalAmount,
		Currency:         "KES",
		PaymentMethod:    req.PaymentMethod,
		PhoneNumber:      msisdn,
		CommissionRate:   s.commissionRate,
		CommissionAmount: commission,
		VendorEarnings:   round2(order.TotalAmount - commission),
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return dto.InitiatePaymentResponse{}, ErrAlreadyInitiated
		}
		logger.Error(action, "failed to create payment", "", fmt.Sprint(order.ID), err.Error())
		return dto.InitiatePaymentResponse{}, err
	}

	return s.push(ctx, payment, order)
}

func (s *PaymentService) push(ctx context.Context, payment model.Payment, order ordermodel.Order) (dto.InitiatePaymentResponse, error) {
	action := "initiate_payment"
	orderID := fmt.Sprint(order.ID)

	reference := fmt.Sprintf("ORDER%d", order.ID)
	resp, err := s.gateway.STKPush(ctx, payment.PhoneNumber, payment.Amount, reference, "Zeno order payment")
	if err != nil {
		logger.Error(action, "stk push failed", "", orderID, err.Error())
		tx, txErr := s.payments.BeginTx(ctx)
		if txErr == nil {
			if _, failErr := s.payments.Fail(ctx, tx, payment.ID, err.Error()); failErr == nil {
				tx.Commit(ctx)
			} else {
				tx.Rollback(ctx)
			}
		}
		return dto.InitiatePaymentResponse{}, fmt.Errorf("failed to start mpesa charge: %w", err)
	}

	processing, err := s.payments.MarkProcessing(ctx, payment.ID, resp.CheckoutRequestID, resp.ResponseDescription)
	if err != nil {
		return dto.InitiatePaymentResponse{}, err
	}

	logger.Info(action, fmt.Sprintf("payment %d processing, checkout %s", payment.ID, resp.CheckoutRequestID), "", orderID)
	return dto.InitiatePaymentResponse{
		Payment:         processing,
		CustomerMessage: resp.CustomerMessage,
	}, nil
}

// HandleSTKCallback finalizes a payment from Daraja's callback. A zero
// ResultCode completes the payment, marks the order paid and credits the
// vendor's balance in one transaction.
func (s *PaymentService) HandleSTKCallback(ctx context.Context, cb daraja.STKCallback) error {
	action := "mpesa_callback"

	checkoutID := cb.Body.StkCallback.CheckoutRequestID
	payment, err := s.payments.GetByTransactionID(ctx, checkoutID)
	if err != nil {
		logger.Warn(action, fmt.Sprintf("callback for unknown checkout %s", checkoutID), "", "", err.Error())
		return err
	}
	orderID := fmt.Sprint(payment.OrderID)

	if payment.Status.Terminal() {
		logger.Warn(action, fmt.Sprintf("duplicate callback for payment %d ignored", payment.ID), "", orderID, "")
		return nil
	}

	if cb.Body.StkCallback.ResultCode != 0 {
		tx, err := s.payments.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := s.payments.Fail(ctx, tx, payment.ID, cb.Body.StkCallback.ResultDesc); err != nil {
			return err
		}
		if err := s.orders.SetPaymentStatus(ctx, tx, payment.OrderID, ordermodel.PaymentFailed); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		s.publishPaymentEvent(ctx, payment, "payment.failed", "")
		logger.Info(action, fmt.Sprintf("payment %d failed: %s", payment.ID, cb.Body.StkCallback.ResultDesc), "", orderID)
		return nil
	}

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	tx, err := s.payments.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	receipt := cb.ReceiptNumber()
	completed, err := s.payments.Complete(ctx, tx, payment.ID, receipt, time.Now())
	if err != nil {
		return err
	}
	if err := s.orders.SetPaymentStatus(ctx, tx, payment.OrderID, ordermodel.PaymentPaid); err != nil {
		return err
	}
	if err := s.vendors.CreditEarning(ctx, tx, vendormodel.VendorEarning{
		VendorID:         order.VendorID,
		PaymentID:        completed.ID,
		OrderID:          order.ID,
		GrossAmount:      completed.Amount,
		CommissionRate:   completed.CommissionRate,
		CommissionAmount: completed.CommissionAmount,
		NetAmount:        completed.VendorEarnings,
	}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishPaymentEvent(ctx, completed, "payment.completed", receipt)
	logger.Info(action, fmt.Sprintf("payment %d completed, receipt %s", completed.ID, receipt), "", orderID)
	return nil
}

func (s *PaymentService) publishPaymentEvent(ctx context.Context, p model.Payment, eventType, receipt string) {
	order, err := s.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		return
	}
	if err := s.events.PublishPaymentEvent(ctx, mq.PaymentEvent{
		Type:       eventType,
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		VendorID:   order.VendorID,
		Amount:     p.Amount,
		Status:     string(p.Status),
		Receipt:    receipt,
		OccurredAt: time.Now(),
	}); err != nil {
		logger.Warn("publish_payment_event", "vendor feed publish failed", "", fmt.Sprint(p.OrderID), err.Error())
	}
}

// HandleB2CResult routes a payout result callback to the payout ledger.
func (s *PaymentService) HandleB2CResult(ctx context.Context, result daraja.B2CResult) error {
	succeeded := result.Result.ResultCode == 0
	return s.payouts.CompleteFromResult(
		ctx,
		result.Result.ConversationID,
		result.Result.TransactionID,
		succeeded,
		result.Result.ResultDesc,
	)
}

func (s *PaymentService) LogWebhook(ctx context.Context, source, body string) error {
	return s.payments.LogWebhook(ctx, source, body)
}

// Status returns the payment if the caller owns it, sold it, or is admin.
func (s *PaymentService) Status(ctx context.Context, userID int64, userType string, paymentID int64) (model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	if err := s.authorize(ctx, userID, userType, payment); err != nil {
		return model.Payment{}, err
	}
	return payment, nil
}

// StatusByOrder supports the client's "already initiated" recovery: it
// resolves the order's existing payment for its owner.
func (s *PaymentService) StatusByOrder(ctx context.Context, userID int64, userType string, orderID int64) (model.Payment, error) {
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return model.Payment{}, err
	}
	if err := s.authorize(ctx, userID, userType, payment); err != nil {
		return model.Payment{}, err
	}
	return payment, nil
}

func (s *PaymentService) authorize(ctx context.Context, userID int64, userType string, payment model.Payment) error {
	if userType == "admin" || payment.UserID == userID {
		return nil
	}
	if userType == "vendor" || userType == "mechanic" {
		order, err := s.orders.GetByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		vendor, err := s.vendors.GetByUserID(ctx, userID)
		if err == nil && vendor.ID == order.VendorID {
			return nil
		}
	}
	return ErrNotPaymentParty
}

// Retry resets a failed payment and fires a fresh STK push.
func (s *PaymentService) Retry(ctx context.Context, userID int64, paymentID int64, newPhone string) (dto.InitiatePaymentResponse, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return dto.InitiatePaymentResponse{}, err
	}
	if payment.UserID != userID {
		return dto.InitiatePaymentResponse{}, ErrNotPaymentParty
	}
	if payment.Status != model.StatusFailed {
		return dto.InitiatePaymentResponse{}, ErrNotRetryable
	}

	msisdn := payment.PhoneNumber
	if newPhone != "" {
		msisdn, err = phone.Normalize(newPhone)
		if err != nil {
			return dto.InitiatePaymentResponse{}, fmt.Errorf("validation error: %w", err)
		}
	}

	reset, err := s.payments.ResetForRetry(ctx, paymentID, msisdn)
	if err != nil {
		return dto.InitiatePaymentResponse{}, err
	}

	order, err := s.orders.GetByID(ctx, reset.OrderID)
	if err != nil {
		return dto.InitiatePaymentResponse{}, err
	}
	return s.push(ctx, reset, order)
}

func (s *PaymentService) List(ctx context.Context, userID int64, userType string) ([]model.Payment, error) {
	if userType == "admin" {
		return s.payments.ListAll(ctx)
	}
	return s.payments.ListByUser(ctx, userID)
}

// TimeoutStale fails payments stuck in processing longer than the cutoff.
// The reconciler calls it every minute.
func (s *PaymentService) TimeoutStale(ctx context.Context, olderThan time.Duration) (int, error) {
	action := "reconcile_payments"

	stuck, err := s.payments.ListStuckProcessing(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	var failed int
	for _, p := range stuck {
		tx, err := s.payments.BeginTx(ctx)
		if err != nil {
			return failed, fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := s.payments.Fail(ctx, tx, p.ID, "payment timed out"); err != nil {
			tx.Rollback(ctx)
			logger.Warn(action, fmt.Sprintf("could not time out payment %d", p.ID), "", fmt.Sprint(p.OrderID), err.Error())
			continue
		}
		if err := s.orders.SetPaymentStatus(ctx, tx, p.OrderID, ordermodel.PaymentFailed); err != nil {
			tx.Rollback(ctx)
			continue
		}
		if err := tx.Commit(ctx); err != nil {
			return failed, fmt.Errorf("failed to commit transaction: %w", err)
		}
		failed++
		logger.Info(action, fmt.Sprintf("payment %d timed out after %s", p.ID, olderThan), "", fmt.Sprint(p.OrderID))
	}
	return failed, nil
}
