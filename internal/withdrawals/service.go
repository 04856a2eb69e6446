package withdrawals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meshbazaar/marketplace-backend/internal/wallet"
	"github.com/meshbazaar/marketplace-backend/pkg/db/models"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/meshbazaar/marketplace-backend/pkg/errors"
	"github.com/meshbazaar/marketplace-backend/pkg/metrics"
	"github.com/meshbazaar/marketplace-backend/pkg/types"
)

// RequestInput is a seller's payout request.
type RequestInput struct {
	SellerID    uuid.UUID
	AmountCents int
	BankDetails types.BankDetails
}

// ResolveInput is an admin decision on a pending or approved request.
type ResolveInput struct {
	RequestID     uuid.UUID
	Status        enums.WithdrawalStatus
	FailureReason *string
}

// Service handles payout requests. The requested amount is debited from the
// available balance the moment the request is accepted, so a seller can never
// have two pending requests racing over the same money.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.WithdrawalRequest, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo         Repository
	wallets      wallet.Repository
	tx           txRunner
	minimumCents int
	metrics      *metrics.CoreMetrics
}

// NewService wires the withdrawal processor.
func NewService(repo Repository, wallets wallet.Repository, tx txRunner, minimumCents int, coreMetrics *metrics.CoreMetrics) Service {
	return &service{
		repo:         repo,
		wallets:      wallets,
		tx:           tx,
		minimumCents: minimumCents,
		metrics:      coreMetrics,
	}
}

// Request validates the amount against the minimum and the seller's available
// balance, then atomically creates the pending request, debits the hold and
// appends the ledger entry.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error) {
	if input.AmountCents < s.minimumCents {
		s.metrics.IncWithdrawalRequest("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum, "withdrawal amount below the minimum").
			WithDetails(map[string]any{"minimum_cents": s.minimumCents})
	}

	var created *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		wallets := s.wallets.WithTx(tx)

		w, err := wallets.FindBySellerIDForUpdate(ctx, input.SellerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "available balance is insufficient").
					WithDetails(map[string]any{"available_cents": 0})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking wallet")
		}
		if input.AmountCents > w.AvailableCents {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "available balance is insufficient").
				WithDetails(map[string]any{"available_cents": w.AvailableCents})
		}

		request := &models.WithdrawalRequest{
			SellerID:    input.SellerID,
			AmountCents: input.AmountCents,
			BankDetails: input.BankDetails,
			Status:      enums.WithdrawalStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating withdrawal request")
		}

		if err := wallets.AddBalances(ctx, w.ID, -input.AmountCents, 0, 0); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "holding withdrawal amount")
		}

		requestID := request.ID
		if err := wallets.CreateTransaction(ctx, &models.WalletTransaction{
			WalletID:            w.ID,
			Type:                enums.WalletTxnDebitWithdrawalHold,
			AmountCents:         -input.AmountCents,
			RelatedWithdrawalID: &requestID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording withdrawal hold")
		}

		created = request
		return nil
	})
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			s.metrics.IncWithdrawalRequest("rejected")
		}
		return nil, err
	}

	s.metrics.IncWithdrawalRequest("accepted")
	return created, nil
}

// Resolve applies an admin decision. Pending requests can be approved or
// rejected; approved requests complete once the transfer settles. Rejection
// returns the held amount to the wallet with a matching ledger entry.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.WithdrawalRequest, error) {
	switch input.Status {
	case enums.WithdrawalStatusApproved, enums.WithdrawalStatusRejected, enums.WithdrawalStatusCompleted:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution must be approved, rejected or completed")
	}

	var resolved *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindByIDForUpdate(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking withdrawal request")
		}

		if request.Status == input.Status {
			resolved = request
			return nil
		}

		switch input.Status {
		case enums.WithdrawalStatusApproved, enums.WithdrawalStatusRejected:
			if request.Status != enums.WithdrawalStatusPending {
				return resolutionConflict(request.Status, input.Status)
			}
		case enums.WithdrawalStatusCompleted:
			if request.Status != enums.WithdrawalStatusApproved {
				return resolutionConflict(request.Status, input.Status)
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":      input.Status,
			"resolved_at": now,
		}
		if input.Status == enums.WithdrawalStatusRejected && input.FailureReason != nil {
			updates["failure_reason"] = *input.FailureReason
		}
		if err := repo.Update(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating withdrawal request")
		}

		if input.Status == enums.WithdrawalStatusRejected {
			if err := s.releaseHold(ctx, tx, request); err != nil {
				return err
			}
		}

		request.Status = input.Status
		request.ResolvedAt = &now
		request.FailureReason = input.FailureReason
		resolved = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// releaseHold returns a rejected request's held amount to the available
// balance.
func (s *service) releaseHold(ctx context.Context, tx *gorm.DB, request *models.WithdrawalRequest) error {
	wallets := s.wallets.WithTx(tx)

	w, err := wallets.FindBySellerIDForUpdate(ctx, request.SellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking wallet")
	}
	if err := wallets.AddBalances(ctx, w.ID, request.AmountCents, 0, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring withdrawal amount")
	}

	requestID := request.ID
	return wallets.CreateTransaction(ctx, &models.WalletTransaction{
		WalletID:            w.ID,
		Type:                enums.WalletTxnCreditWithdrawalReversal,
		AmountCents:         request.AmountCents,
		RelatedWithdrawalID: &requestID,
	})
}

func resolutionConflict(from, to enums.WithdrawalStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
