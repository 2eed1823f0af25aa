package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Storage surfaces the cancellation service depends on, mirrored by the sqlx
// repositories in production and by in-memory stores in tests.
type cancelRequestStore interface {
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CancelRequest, error)
	GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.CancelRequest, error)
	GetByStatus(ctx context.Context, status models.CancelRequestStatus) ([]models.CancelRequest, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error
	UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to models.CancelRequestStatus) error
	UpdateResolutionTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error
}

type policyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status models.PolicyStatus) error
	SetOpenCancelRequestTx(ctx context.Context, tx *sqlx.Tx, policyID, requestID uuid.UUID) error
	ClearOpenCancelRequestTx(ctx context.Context, tx *sqlx.Tx, policyID uuid.UUID) error
}

type basePolicyReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.BasePolicy, error)
}

// CancelRequestService drives the cancellation and dispute state machine:
// pending_review -> approved | denied, denied -> dispute, and dispute ->
// litigation_resolved_approved | litigation_resolved_denied. A policy holds
// at most one open request at a time.
type CancelRequestService struct {
	cancelRequests cancelRequestStore
	policies       policyStore
	products       basePolicyReader
}

// NewCancelRequestService creates a new cancel request service
func NewCancelRequestService(
	cancelRequests cancelRequestStore,
	policies policyStore,
	products basePolicyReader,
) *CancelRequestService {
	return &CancelRequestService{
		cancelRequests: cancelRequests,
		policies:       policies,
		products:       products,
	}
}

// GetByID retrieves a cancel request
func (s *CancelRequestService) GetByID(ctx context.Context, id uuid.UUID) (*models.CancelRequest, error) {
	return s.cancelRequests.GetByID(ctx, id)
}

// GetByRegisteredPolicyID retrieves the cancellation history of a policy
func (s *CancelRequestService) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.CancelRequest, error) {
	return s.cancelRequests.GetByRegisteredPolicyID(ctx, policyID)
}

// GetPendingRequests retrieves the review queue
func (s *CancelRequestService) GetPendingRequests(ctx context.Context) ([]models.CancelRequest, error) {
	return s.cancelRequests.GetByStatus(ctx, models.CancelPendingReview)
}

// CreateCancelRequest opens a cancellation request against an active policy
func (s *CancelRequestService) CreateCancelRequest(
	ctx context.Context,
	policyID uuid.UUID,
	req *models.CreateCancelRequestRequest,
	requestedBy string,
) (*models.CancelRequest, error) {
	if !models.IsValidCancelRequestType(req.CancelRequestType) {
		return nil, fmt.Errorf("unknown cancel request type %q: %w", req.CancelRequestType, models.ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("cancellation reason is required: %w", models.ErrValidation)
	}
	if strings.TrimSpace(requestedBy) == "" {
		return nil, fmt.Errorf("requester identity is required: %w", models.ErrValidation)
	}

	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registered policy: %w", err)
	}

	if policy.Status != models.PolicyActive {
		return nil, fmt.Errorf("policy %s is %s, only active policies can be cancelled: %w",
			policyID, policy.Status, models.ErrInvalidStateTransition)
	}
	if policy.OpenCancelRequestID != nil {
		return nil, fmt.Errorf("policy %s already has an open cancel request: %w",
			policyID, models.ErrInvalidStateTransition)
	}

	request := &models.CancelRequest{
		ID:                 uuid.New(),
		RegisteredPolicyID: policyID,
		CancelRequestType:  req.CancelRequestType,
		Reason:             req.Reason,
		Evidence:           req.Evidence,
		Status:             models.CancelPendingReview,
		RequestedBy:        requestedBy,
		RequestedAt:        time.Now().Unix(),
	}

	err = s.cancelRequests.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.cancelRequests.CreateTx(ctx, tx, request); err != nil {
			return err
		}
		// The conditional update doubles as the lock against a concurrent
		// second request.
		return s.policies.SetOpenCancelRequestTx(ctx, tx, policyID, request.ID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cancel request created",
		"request_id", request.ID,
		"policy_id", policyID,
		"type", request.CancelRequestType,
		"requested_by", requestedBy)

	return request, nil
}

// ReviewCancelRequest records the insurer's decision. Approval cancels the
// policy and computes the premium compensation. A denial is itself treated as
// contested: the policy moves to dispute and stays there until the dispute
// flow resolves it.
func (s *CancelRequestService) ReviewCancelRequest(ctx context.Context, req *models.ReviewCancelRequestReq) (*models.CancelRequest, error) {
	if req.Decision != models.CancelApproved && req.Decision != models.CancelDenied {
		return nil, fmt.Errorf("review decision must be approved or denied, got %q: %w", req.Decision, models.ErrValidation)
	}
	if strings.TrimSpace(req.ReviewNotes) == "" {
		return nil, fmt.Errorf("review notes are required: %w", models.ErrValidation)
	}

	request, err := s.cancelRequests.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel request: %w", err)
	}

	if request.Status != models.CancelPendingReview {
		return nil, fmt.Errorf("cancel request %s is %s, not pending review: %w",
			request.ID, request.Status, models.ErrInvalidStateTransition)
	}

	now := time.Now().Unix()
	request.Status = req.Decision
	request.ReviewedBy = &req.ReviewedBy
	request.ReviewedAt = &now
	request.ReviewNotes = &req.ReviewNotes

	if req.Decision == models.CancelApproved {
		compensation := req.CompensateAmount
		if compensation == nil {
			computed, err := s.computeCompensation(ctx, request.RegisteredPolicyID)
			if err != nil {
				return nil, err
			}
			compensation = &computed
		}
		request.CompensateAmount = compensation
	}

	err = s.cancelRequests.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.cancelRequests.UpdateReviewTx(ctx, tx, request); err != nil {
			return err
		}

		if req.Decision == models.CancelApproved {
			if err := s.policies.UpdateStatusTx(ctx, tx, request.RegisteredPolicyID, models.PolicyCancelled); err != nil {
				return err
			}
			return s.policies.ClearOpenCancelRequestTx(ctx, tx, request.RegisteredPolicyID)
		}

		// A denied cancellation is contested until litigation settles it.
		// The open slot stays occupied so no second request can open.
		return s.policies.UpdateStatusTx(ctx, tx, request.RegisteredPolicyID, models.PolicyDispute)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cancel request reviewed",
		"request_id", request.ID,
		"policy_id", request.RegisteredPolicyID,
		"decision", req.Decision,
		"reviewed_by", req.ReviewedBy)

	return request, nil
}

// OpenDispute escalates a denied request to litigation. The policy is already
// in dispute from the denial; only the request moves.
func (s *CancelRequestService) OpenDispute(ctx context.Context, requestID uuid.UUID, openedBy string) (*models.CancelRequest, error) {
	if strings.TrimSpace(openedBy) == "" {
		return nil, fmt.Errorf("disputer identity is required: %w", models.ErrValidation)
	}

	request, err := s.cancelRequests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel request: %w", err)
	}

	if request.Status != models.CancelDenied {
		return nil, fmt.Errorf("only a denied request can be disputed, request %s is %s: %w",
			request.ID, request.Status, models.ErrInvalidStateTransition)
	}

	err = s.cancelRequests.InTx(ctx, func(tx *sqlx.Tx) error {
		return s.cancelRequests.UpdateStatusTx(ctx, tx, request.ID, models.CancelDenied, models.CancelDispute)
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.CancelDispute

	slog.Info("Cancel request disputed",
		"request_id", request.ID,
		"policy_id", request.RegisteredPolicyID,
		"opened_by", openedBy)

	return request, nil
}

// ResolveDispute records the litigation outcome. A resolution in favor of
// cancellation cancels the policy; otherwise the policy returns to active.
// Either way the request reaches a terminal state and the open slot clears.
func (s *CancelRequestService) ResolveDispute(ctx context.Context, req *models.ResolveDisputeReq) (*models.CancelRequest, error) {
	if req.FinalDecision != models.CancelLitigationApproved && req.FinalDecision != models.CancelLitigationDenied {
		return nil, fmt.Errorf("final decision must be a litigation outcome, got %q: %w", req.FinalDecision, models.ErrValidation)
	}
	if strings.TrimSpace(req.ResolutionNotes) == "" {
		return nil, fmt.Errorf("resolution notes are required: %w", models.ErrValidation)
	}

	request, err := s.cancelRequests.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel request: %w", err)
	}

	if request.Status != models.CancelDispute {
		return nil, fmt.Errorf("cancel request %s is %s, not in dispute: %w",
			request.ID, request.Status, models.ErrInvalidStateTransition)
	}

	now := time.Now().Unix()
	request.Status = req.FinalDecision
	request.ResolvedBy = &req.ResolvedBy
	request.ResolvedAt = &now
	request.ResolutionNotes = &req.ResolutionNotes

	if req.FinalDecision == models.CancelLitigationApproved && request.CompensateAmount == nil {
		computed, err := s.computeCompensation(ctx, request.RegisteredPolicyID)
		if err != nil {
			return nil, err
		}
		request.CompensateAmount = &computed
	}

	finalPolicyStatus := models.PolicyActive
	if req.FinalDecision == models.CancelLitigationApproved {
		finalPolicyStatus = models.PolicyCancelled
	}

	err = s.cancelRequests.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.cancelRequests.UpdateResolutionTx(ctx, tx, request); err != nil {
			return err
		}

		if err := s.policies.UpdateStatusTx(ctx, tx, request.RegisteredPolicyID, finalPolicyStatus); err != nil {
			return err
		}

		return s.policies.ClearOpenCancelRequestTx(ctx, tx, request.RegisteredPolicyID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Cancel request dispute resolved",
		"request_id", request.ID,
		"policy_id", request.RegisteredPolicyID,
		"final_decision", req.FinalDecision,
		"policy_status", finalPolicyStatus,
		"resolved_by", req.ResolvedBy)

	return request, nil
}

// computeCompensation derives the premium refund from the product's cancel
// premium rate and the premium the farmer actually paid.
func (s *CancelRequestService) computeCompensation(ctx context.Context, policyID uuid.UUID) (int64, error) {
	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		return 0, fmt.Errorf("failed to get registered policy: %w", err)
	}

	basePolicy, err := s.products.GetByID(ctx, policy.BasePolicyID)
	if err != nil {
		return 0, fmt.Errorf("failed to get base policy: %w", err)
	}

	if !policy.PremiumPaidByFarmer {
		return 0, nil
	}

	compensation := int64(math.Round(basePolicy.CancelPremiumRate * float64(policy.TotalFarmerPremium)))
	if compensation < 0 {
		compensation = 0
	}
	return compensation, nil
}
