package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"policy-engine/internal/config"
	"policy-engine/internal/event"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AutoApprovalReviewer marks decisions written by the sweep rather than a
// human reviewer.
const AutoApprovalReviewer = "system:auto_approval"

// Storage surfaces the lifecycle service depends on. The sqlx repositories
// are the production implementations; tests substitute in-memory stores.
type claimStore interface {
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	GetAll(ctx context.Context, filters map[string]interface{}) ([]models.Claim, error)
	ListPendingPastDeadline(ctx context.Context, now int64) ([]models.Claim, error)
	UpdateDecisionTx(ctx context.Context, tx *sqlx.Tx, claim *models.Claim, expectedRevision int) error
}

type claimRejectionStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, rejection *models.ClaimRejection) error
	GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.ClaimRejection, error)
}

type payoutStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, payout *models.Payout) error
}

type policyReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error)
}

type eventSink interface {
	PublishClaimStatusChanged(ctx context.Context, ev event.ClaimStatusChangedEvent) error
	PublishPayoutRequest(ctx context.Context, ev event.PayoutRequestEvent) error
}

// ClaimLifecycleService drives claims through review, auto-approval and
// settlement. All decisions go through the revision check so exactly one
// writer wins.
type ClaimLifecycleService struct {
	claims     claimStore
	rejections claimRejectionStore
	payouts    payoutStore
	policies   policyReader
	publisher  eventSink
	engineCfg  config.EngineConfig
}

// NewClaimLifecycleService creates a new claim lifecycle service
func NewClaimLifecycleService(
	claims claimStore,
	rejections claimRejectionStore,
	payouts payoutStore,
	policies policyReader,
	publisher eventSink,
	engineCfg config.EngineConfig,
) *ClaimLifecycleService {
	return &ClaimLifecycleService{
		claims:     claims,
		rejections: rejections,
		payouts:    payouts,
		policies:   policies,
		publisher:  publisher,
		engineCfg:  engineCfg,
	}
}

// GetClaimByID retrieves a single claim
func (s *ClaimLifecycleService) GetClaimByID(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	return s.claims.GetByID(ctx, claimID)
}

// GetClaims retrieves claims with optional filters
func (s *ClaimLifecycleService) GetClaims(ctx context.Context, filters map[string]interface{}) ([]models.Claim, error) {
	return s.claims.GetAll(ctx, filters)
}

// GetRejectionByClaimID retrieves the rejection record behind a rejected claim
func (s *ClaimLifecycleService) GetRejectionByClaimID(ctx context.Context, claimID uuid.UUID) (*models.ClaimRejection, error) {
	return s.rejections.GetByClaimID(ctx, claimID)
}

// ApproveClaim records a partner approval and creates the payout in the same
// transaction. A manual approval must carry both a decision and reviewer
// notes. Returns ErrAlreadyDecided when another reviewer or the sweep got
// there first.
func (s *ClaimLifecycleService) ApproveClaim(ctx context.Context, claimID uuid.UUID, req *models.ReviewClaimRequest) (*models.ReviewClaimResponse, error) {
	if strings.TrimSpace(req.ReviewedBy) == "" {
		return nil, fmt.Errorf("reviewed_by is required: %w", models.ErrValidation)
	}
	if strings.TrimSpace(req.PartnerDecision) == "" {
		return nil, fmt.Errorf("partner_decision is required: %w", models.ErrValidation)
	}
	if strings.TrimSpace(req.PartnerNotes) == "" {
		return nil, fmt.Errorf("partner_notes is required: %w", models.ErrValidation)
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if claim.IsTerminal() {
		return nil, fmt.Errorf("claim %s is already %s: %w", claimID, claim.Status, models.ErrAlreadyDecided)
	}

	expectedRevision := claim.Revision
	if req.ExpectedRevision != nil {
		expectedRevision = *req.ExpectedRevision
	}

	payout, err := s.approveClaimTx(ctx, claim, expectedRevision, req.PartnerDecision, req.PartnerNotes, req.ReviewedBy, false)
	if err != nil {
		return nil, err
	}

	return &models.ReviewClaimResponse{
		ClaimID:  claim.ID,
		PayoutID: &payout.ID,
		Status:   models.ClaimApproved,
	}, nil
}

// RejectClaim records a partner rejection together with its taxonomy record.
// The claim row and the rejection record commit atomically.
func (s *ClaimLifecycleService) RejectClaim(ctx context.Context, claimID uuid.UUID, req *models.RejectClaimRequest, reviewedBy string) (*models.ReviewClaimResponse, error) {
	if strings.TrimSpace(reviewedBy) == "" {
		return nil, fmt.Errorf("reviewed_by is required: %w", models.ErrValidation)
	}
	if !models.IsValidClaimRejectionType(req.RejectionType) {
		return nil, fmt.Errorf("unknown rejection type %q: %w", req.RejectionType, models.ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("rejection reason is required: %w", models.ErrValidation)
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if claim.IsTerminal() {
		return nil, fmt.Errorf("claim %s is already %s: %w", claimID, claim.Status, models.ErrAlreadyDecided)
	}

	expectedRevision := claim.Revision
	if req.ExpectedRevision != nil {
		expectedRevision = *req.ExpectedRevision
	}

	now := time.Now().Unix()
	oldStatus := claim.Status

	decided := *claim
	decided.Status = models.ClaimRejected
	decided.PartnerReviewTimestamp = &now
	decision := "rejected"
	decided.PartnerDecision = &decision
	if req.PartnerNotes != "" {
		decided.PartnerNotes = &req.PartnerNotes
	}
	decided.ReviewedBy = &reviewedBy

	rejection := &models.ClaimRejection{
		ID:              uuid.New(),
		ClaimID:         claim.ID,
		RejectionType:   req.RejectionType,
		Reason:          req.Reason,
		ValidatedBy:     reviewedBy,
		ValidationNotes: req.ValidationNotes,
		EventDate:       req.EventDate,
		PolicyClause:    req.PolicyClause,
		BlackoutWindow:  req.BlackoutWindow,
	}
	if len(req.EvidenceDocuments) > 0 {
		rejection.EvidenceDocuments = map[string]any{"documents": req.EvidenceDocuments}
	}

	err = s.claims.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.claims.UpdateDecisionTx(ctx, tx, &decided, expectedRevision); err != nil {
			return err
		}
		return s.rejections.CreateTx(ctx, tx, rejection)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Claim rejected",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"rejection_type", req.RejectionType,
		"reviewed_by", reviewedBy)

	s.publishStatusChange(ctx, claim, oldStatus, models.ClaimRejected, reviewedBy, false)

	return &models.ReviewClaimResponse{
		ClaimID: claim.ID,
		Status:  models.ClaimRejected,
	}, nil
}

// RunAutoApprovalSweep approves every undecided claim whose review deadline
// has passed. Safe to run concurrently with reviewers and with itself: a
// claim decided in the meantime just loses the revision check and is skipped.
func (s *ClaimLifecycleService) RunAutoApprovalSweep(ctx context.Context) (int, error) {
	now := time.Now().Unix()

	claims, err := s.claims.ListPendingPastDeadline(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list claims past deadline: %w", err)
	}

	approved := 0
	for i := range claims {
		claim := claims[i]
		_, err := s.approveClaimTx(ctx, &claim, claim.Revision, "auto-approved after review window", "", AutoApprovalReviewer, true)
		if err != nil {
			if isAlreadyDecided(err) {
				slog.Info("Sweep skipped claim decided elsewhere", "claim_id", claim.ID)
				continue
			}
			slog.Error("Sweep failed to approve claim", "claim_id", claim.ID, "error", err)
			continue
		}
		approved++
	}

	if len(claims) > 0 {
		slog.Info("Auto-approval sweep finished", "eligible", len(claims), "approved", approved)
	}

	return approved, nil
}

// approveClaimTx writes the approval and the payout in one transaction
func (s *ClaimLifecycleService) approveClaimTx(
	ctx context.Context,
	claim *models.Claim,
	expectedRevision int,
	decision, notes, reviewedBy string,
	autoApproved bool,
) (*models.Payout, error) {
	policy, err := s.policies.GetByID(ctx, claim.RegisteredPolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registered policy: %w", err)
	}

	now := time.Now().Unix()
	oldStatus := claim.Status

	decided := *claim
	decided.Status = models.ClaimApproved
	decided.PartnerReviewTimestamp = &now
	decided.PartnerDecision = &decision
	if notes != "" {
		decided.PartnerNotes = &notes
	}
	decided.ReviewedBy = &reviewedBy
	decided.AutoApproved = autoApproved

	payout := &models.Payout{
		ID:                 uuid.New(),
		ClaimID:            claim.ID,
		RegisteredPolicyID: claim.RegisteredPolicyID,
		FarmID:             claim.FarmID,
		FarmerID:           policy.FarmerID,
		PayoutAmount:       claim.ClaimAmount,
		Currency:           s.engineCfg.Currency,
		Status:             models.PayoutPending,
		InitiatedAt:        &now,
		FarmerConfirmed:    false,
	}

	err = s.claims.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.claims.UpdateDecisionTx(ctx, tx, &decided, expectedRevision); err != nil {
			return err
		}
		return s.payouts.CreateTx(ctx, tx, payout)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Claim approved",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"payout_id", payout.ID,
		"payout_amount", payout.PayoutAmount,
		"auto_approved", autoApproved,
		"reviewed_by", reviewedBy)

	s.publishStatusChange(ctx, claim, oldStatus, models.ClaimApproved, reviewedBy, autoApproved)

	payoutEvent := event.PayoutRequestEvent{
		PayoutID:           payout.ID,
		ClaimID:            claim.ID,
		RegisteredPolicyID: claim.RegisteredPolicyID,
		FarmerID:           payout.FarmerID,
		PayoutAmount:       payout.PayoutAmount,
		Currency:           payout.Currency,
		Timestamp:          now,
	}
	if err := s.publisher.PublishPayoutRequest(ctx, payoutEvent); err != nil {
		slog.Error("Failed to publish payout request", "payout_id", payout.ID, "error", err)
	}

	return payout, nil
}

func (s *ClaimLifecycleService) publishStatusChange(ctx context.Context, claim *models.Claim, oldStatus, newStatus models.ClaimStatus, decidedBy string, autoApproved bool) {
	statusEvent := event.ClaimStatusChangedEvent{
		ClaimID:            claim.ID,
		ClaimNumber:        claim.ClaimNumber,
		RegisteredPolicyID: claim.RegisteredPolicyID,
		FarmID:             claim.FarmID,
		OldStatus:          oldStatus,
		NewStatus:          newStatus,
		ClaimAmount:        claim.ClaimAmount,
		AutoApproved:       autoApproved,
		DecidedBy:          decidedBy,
		Timestamp:          time.Now().Unix(),
	}
	if err := s.publisher.PublishClaimStatusChanged(ctx, statusEvent); err != nil {
		slog.Error("Failed to publish claim status event", "claim_id", claim.ID, "error", err)
	}
}

func isAlreadyDecided(err error) bool {
	return errors.Is(err, models.ErrAlreadyDecided)
}
