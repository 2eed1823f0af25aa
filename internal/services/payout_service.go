package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"policy-engine/internal/event"
	"policy-engine/internal/models"
	"policy-engine/internal/repository"

	"github.com/google/uuid"
)

// PayoutService tracks payout settlement. The money actually moves in an
// external payment system; this service records the outcomes and keeps the
// claim in step. A failed settlement can retry without touching the amount.
type PayoutService struct {
	payoutRepo *repository.PayoutRepository
	claimRepo  *repository.ClaimRepository
	publisher  *event.ClaimEventPublisher
}

// NewPayoutService creates a new payout service
func NewPayoutService(
	payoutRepo *repository.PayoutRepository,
	claimRepo *repository.ClaimRepository,
	publisher *event.ClaimEventPublisher,
) *PayoutService {
	return &PayoutService{
		payoutRepo: payoutRepo,
		claimRepo:  claimRepo,
		publisher:  publisher,
	}
}

// GetPayoutByID retrieves a payout by ID
func (s *PayoutService) GetPayoutByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return s.payoutRepo.GetByID(ctx, id)
}

// GetPayoutByClaimID retrieves the payout for a claim
func (s *PayoutService) GetPayoutByClaimID(ctx context.Context, claimID uuid.UUID) (*models.Payout, error) {
	return s.payoutRepo.GetByClaimID(ctx, claimID)
}

// GetPayoutsByFarmerID retrieves all payouts for a farmer
func (s *PayoutService) GetPayoutsByFarmerID(ctx context.Context, farmerID string) ([]models.Payout, error) {
	return s.payoutRepo.GetByFarmerID(ctx, farmerID)
}

// ConfirmSettlement records the settlement outcome reported by the payment
// system. A completed settlement also moves the claim to paid, atomically.
func (s *PayoutService) ConfirmSettlement(ctx context.Context, req *models.ConfirmSettlementRequest) error {
	switch req.Status {
	case models.PayoutProcessing, models.PayoutCompleted, models.PayoutFailed:
	default:
		return fmt.Errorf("settlement status must be processing, completed or failed, got %q: %w", req.Status, models.ErrValidation)
	}

	payout, err := s.payoutRepo.GetByID(ctx, req.PayoutID)
	if err != nil {
		return fmt.Errorf("failed to get payout: %w", err)
	}

	if payout.Status == models.PayoutCompleted {
		return fmt.Errorf("payout %s is already completed: %w", payout.ID, models.ErrInvalidStateTransition)
	}

	completedAt := req.CompletedAt
	if req.Status == models.PayoutCompleted && completedAt == nil {
		now := time.Now().Unix()
		completedAt = &now
	}

	tx, err := s.claimRepo.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.payoutRepo.UpdateStatusTx(ctx, tx, payout.ID, req.Status, completedAt); err != nil {
		return err
	}

	if req.Status == models.PayoutCompleted {
		if err := s.claimRepo.MarkPaidTx(ctx, tx, payout.ClaimID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	slog.Info("Payout settlement recorded",
		"payout_id", payout.ID,
		"claim_id", payout.ClaimID,
		"status", req.Status)

	if req.Status == models.PayoutCompleted {
		claim, err := s.claimRepo.GetByID(ctx, payout.ClaimID)
		if err != nil {
			slog.Error("Failed to reload claim after settlement", "claim_id", payout.ClaimID, "error", err)
			return nil
		}

		statusEvent := event.ClaimStatusChangedEvent{
			ClaimID:            claim.ID,
			ClaimNumber:        claim.ClaimNumber,
			RegisteredPolicyID: claim.RegisteredPolicyID,
			FarmID:             claim.FarmID,
			OldStatus:          models.ClaimApproved,
			NewStatus:          models.ClaimPaid,
			ClaimAmount:        claim.ClaimAmount,
			Timestamp:          time.Now().Unix(),
		}
		if err := s.publisher.PublishClaimStatusChanged(ctx, statusEvent); err != nil {
			slog.Error("Failed to publish claim paid event", "claim_id", claim.ID, "error", err)
		}
	}

	return nil
}

// ConfirmReceiptByFarmer records the farmer's confirmation that the money
// arrived, with an optional rating and feedback.
func (s *PayoutService) ConfirmReceiptByFarmer(ctx context.Context, payoutID uuid.UUID, rating *int, feedback *string) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return fmt.Errorf("rating must be between 1 and 5: %w", models.ErrValidation)
	}

	if err := s.payoutRepo.ConfirmByFarmer(ctx, payoutID, time.Now().Unix(), rating, feedback); err != nil {
		return err
	}

	slog.Info("Farmer confirmed payout receipt", "payout_id", payoutID)
	return nil
}
