package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

var (
	ErrPayoutNotActionable = errors.New("payout request is not in an actionable state")
	ErrNoPayoutRecipient   = errors.New("no recipient given and no payout preferences on file")
)

// PayoutGateway sends business-to-customer mobile money transfers. The
// live implementation is the Daraja B2C client; tests inject a fake.
type PayoutGateway interface {
	SendB2C(ctx context.Context, phoneNumber string, amount float64, reference string) (conversationID string, err error)
}

type PayoutRepo interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateRequest(ctx context.Context, p model.PayoutRequest) (model.PayoutRequest, error)
	GetRequest(ctx context.Context, id int64) (model.PayoutRequest, error)
	ListRequests(ctx context.Context, vendorID int64, status model.PayoutStatus) ([]model.PayoutRequest, error)
	UpdateRequestStatus(ctx context.Context, tx pgx.Tx, id int64, from, to model.PayoutStatus) (model.PayoutRequest, error)
	CreateTransaction(ctx context.Context, tx pgx.Tx, t model.PayoutTransaction) (model.PayoutTransaction, error)
	SetTransactionConversation(ctx context.Context, id int64, conversationID string) error
	GetTransactionByConversation(ctx context.Context, conversationID string) (model.PayoutTransaction, error)
	CompleteTransaction(ctx context.Context, tx pgx.Tx, id int64, receipt string) error
	FailTransaction(ctx context.Context, tx pgx.Tx, id int64, reason string) error
	ListEarnings(ctx context.Context, vendorID int64) ([]model.VendorEarning, error)
}

type BalanceRepo interface {
	GetByUserID(ctx context.Context, userID int64) (model.Vendor, error)
	GetByID(ctx context.Context, id int64) (model.Vendor, error)
	UpdatePayoutPreferences(ctx context.Context, vendorID int64, number, name string) (model.Vendor, error)
	HoldPayout(ctx context.Context, tx pgx.Tx, vendorID int64, amount float64) error
	SettlePayout(ctx context.Context, tx pgx.Tx, vendorID int64, amount float64) error
	RevertPayout(ctx context.Context, tx pgx.Tx, vendorID int64, amount float64) error
}

type PayoutService struct {
	payouts PayoutRepo
	vendors BalanceRepo
	gateway PayoutGateway
}

func NewPayoutService(payouts PayoutRepo, vendors BalanceRepo, gateway PayoutGateway) *PayoutService {
	return &PayoutService{payouts: payouts, vendors: vendors, gateway: gateway}
}

// RequestPayout records a vendor's withdrawal request. Funds stay on the
// available balance until an admin processes it.
func (s *PayoutService) RequestPayout(ctx context.Context, userID int64, req dto.PayoutRequestRequest) (model.PayoutRequest, error) {
	action := "request_payout"

	if err := req.Validate(); err != nil {
		return model.PayoutRequest{}, fmt.Errorf("validation error: %w", err)
	}

	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return model.PayoutRequest{}, err
	}
	if req.Amount > vendor.AvailableBalance {
		return model.PayoutRequest{}, repository.ErrNotEnoughFunds
	}

	// An empty recipient falls back to the stored preferences.
	recipientNumber, recipientName := req.RecipientNumber, req.RecipientName
	if recipientNumber == "" {
		recipientNumber = vendor.PayoutRecipientNumber
		recipientName = vendor.PayoutRecipientName
	}
	if recipientNumber == "" {
		return model.PayoutRequest{}, ErrNoPayoutRecipient
	}

	recipient, err := phone.Normalize(recipientNumber)
	if err != nil {
		return model.PayoutRequest{}, fmt.Errorf("validation error: %w", err)
	}

	created, err := s.payouts.CreateRequest(ctx, model.PayoutRequest{
		VendorID:        vendor.ID,
		Amount:          req.Amount,
		RecipientNumber: recipient,
		RecipientName:   recipientName,
		Status:          model.PayoutPending,
		Notes:           req.Notes,
	})
	if err != nil {
		logger.Error(action, "failed to create payout request", "", "", err.Error())
		return model.PayoutRequest{}, err
	}

	logger.Info(action, fmt.Sprintf("payout request %d for vendor %d (%.2f KES)", created.ID, vendor.ID, created.Amount), "", "")
	return created, nil
}

func (s *PayoutService) ListPayouts(ctx context.Context, vendorID int64, status model.PayoutStatus) ([]model.PayoutRequest, error) {
	return s.payouts.ListRequests(ctx, vendorID, status)
}

func (s *PayoutService) ListMyPayouts(ctx context.Context, userID int64) ([]model.PayoutRequest, error) {
	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.payouts.ListRequests(ctx, vendor.ID, "")
}

func (s *PayoutService) ListEarnings(ctx context.Context, userID int64) ([]model.VendorEarning, error) {
	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.payouts.ListEarnings(ctx, vendor.ID)
}

// PayoutPreferences returns the vendor's stored default recipient.
func (s *PayoutService) PayoutPreferences(ctx context.Context, userID int64) (model.PayoutPreferences, error) {
	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return model.PayoutPreferences{}, err
	}
	return model.PayoutPreferences{
		RecipientNumber: vendor.PayoutRecipientNumber,
		RecipientName:   vendor.PayoutRecipientName,
	}, nil
}

// UpdatePayoutPreferences stores the default recipient future withdrawal
// requests fall back to.
func (s *PayoutService) UpdatePayoutPreferences(ctx context.Context, userID int64, req dto.PayoutPreferencesRequest) (model.PayoutPreferences, error) {
	if err := req.Validate(); err != nil {
		return model.PayoutPreferences{}, fmt.Errorf("validation error: %w", err)
	}

	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return model.PayoutPreferences{}, err
	}

	number, err := phone.Normalize(req.RecipientNumber)
	if err != nil {
		return model.PayoutPreferences{}, fmt.Errorf("validation error: %w", err)
	}

	updated, err := s.vendors.UpdatePayoutPreferences(ctx, vendor.ID, number, req.RecipientName)
	if err != nil {
		return model.PayoutPreferences{}, err
	}
	return model.PayoutPreferences{
		RecipientNumber: updated.PayoutRecipientNumber,
		RecipientName:   updated.PayoutRecipientName,
	}, nil
}

// ApprovePayout is the admin gate before money moves.
func (s *PayoutService) ApprovePayout(ctx context.Context, requestID int64) (model.PayoutRequest, error) {
	tx, err := s.payouts.BeginTx(ctx)
	if err != nil {
		return model.PayoutRequest{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	approved, err := s.payouts.UpdateRequestStatus(ctx, tx, requestID, model.PayoutPending, model.PayoutApproved)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutNotFound) {
			return model.PayoutRequest{}, ErrPayoutNotActionable
		}
		return model.PayoutRequest{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.PayoutRequest{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return approved, nil
}

// ProcessPayout holds the funds and records the transaction, then fires
// the B2C transfer. The hold commits before any money moves, so a crash
// mid-transfer leaves a processing transaction to reconcile instead of
// an unrecorded payment. The balance settles or reverts when the result
// callback arrives.
func (s *PayoutService) ProcessPayout(ctx context.Context, requestID int64) (model.PayoutTransaction, error) {
	action := "process_payout"

	tx, err := s.payouts.BeginTx(ctx)
	if err != nil {
		return model.PayoutTransaction{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := s.payouts.UpdateRequestStatus(ctx, tx, requestID, model.PayoutApproved, model.PayoutProcessing)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutNotFound) {
			return model.PayoutTransaction{}, ErrPayoutNotActionable
		}
		return model.PayoutTransaction{}, err
	}

	if err := s.vendors.HoldPayout(ctx, tx, req.VendorID, req.Amount); err != nil {
		return model.PayoutTransaction{}, err
	}

	reference := "PAYOUT-" + uuid.NewString()
	txn, err := s.payouts.CreateTransaction(ctx, tx, model.PayoutTransaction{
		PayoutRequestID: req.ID,
		VendorID:        req.VendorID,
		Amount:          req.Amount,
		Reference:       reference,
		Status:          model.PayoutProcessing,
	})
	if err != nil {
		return model.PayoutTransaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.PayoutTransaction{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	conversationID, err := s.gateway.SendB2C(ctx, req.RecipientNumber, req.Amount, reference)
	if err != nil {
		logger.Error(action, fmt.Sprintf("B2C send failed for payout %d", requestID), "", "", err.Error())
		if revertErr := s.revertTransfer(ctx, txn, err.Error()); revertErr != nil {
			logger.Error(action, fmt.Sprintf("failed to revert payout %d after send failure", requestID), "", "", revertErr.Error())
		}
		return model.PayoutTransaction{}, fmt.Errorf("failed to send payout: %w", err)
	}

	if err := s.payouts.SetTransactionConversation(ctx, txn.ID, conversationID); err != nil {
		// The transfer is in flight; the transaction stays resolvable by
		// reference even without the conversation ID.
		logger.Error(action, fmt.Sprintf("failed to record conversation for payout %d", requestID), "", "", err.Error())
	}
	txn.ConversationID = conversationID

	logger.Info(action, fmt.Sprintf("payout %d processing, conversation %s", requestID, conversationID), "", "")
	return txn, nil
}

// revertTransfer unwinds a held payout whose B2C send was rejected.
func (s *PayoutService) revertTransfer(ctx context.Context, txn model.PayoutTransaction, reason string) error {
	tx, err := s.payouts.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.payouts.FailTransaction(ctx, tx, txn.ID, reason); err != nil {
		return err
	}
	if _, err := s.payouts.UpdateRequestStatus(ctx, tx, txn.PayoutRequestID, model.PayoutProcessing, model.PayoutFailed); err != nil {
		return err
	}
	if err := s.vendors.RevertPayout(ctx, tx, txn.VendorID, txn.Amount); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CompleteFromResult finalizes a payout from a B2C result callback.
// Success settles the held funds; failure returns them to the vendor.
func (s *PayoutService) CompleteFromResult(ctx context.Context, conversationID, receipt string, succeeded bool, failureReason string) error {
	action := "complete_payout"

	txn, err := s.payouts.GetTransactionByConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if txn.Status != model.PayoutProcessing {
		logger.Warn(action, fmt.Sprintf("duplicate result for conversation %s ignored", conversationID), "", "", "")
		return nil
	}

	tx, err := s.payouts.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if succeeded {
		if err := s.payouts.CompleteTransaction(ctx, tx, txn.ID, receipt); err != nil {
			return err
		}
		if _, err := s.payouts.UpdateRequestStatus(ctx, tx, txn.PayoutRequestID, model.PayoutProcessing, model.PayoutCompleted); err != nil {
			return err
		}
		if err := s.vendors.SettlePayout(ctx, tx, txn.VendorID, txn.Amount); err != nil {
			return err
		}
	} else {
		if err := s.payouts.FailTransaction(ctx, tx, txn.ID, failureReason); err != nil {
			return err
		}
		if _, err := s.payouts.UpdateRequestStatus(ctx, tx, txn.PayoutRequestID, model.PayoutProcessing, model.PayoutFailed); err != nil {
			return err
		}
		if err := s.vendors.RevertPayout(ctx, tx, txn.VendorID, txn.Amount); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info(action, fmt.Sprintf("payout conversation %s finished, success=%t", conversationID, succeeded), "", "")
	return nil
}
