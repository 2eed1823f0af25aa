package models

import (
	"time"

	"policy-engine/internal/utils"

	"github.com/google/uuid"
)

// ============================================================================
// CANCEL REQUEST
// ============================================================================

type CancelRequest struct {
	ID                 uuid.UUID           `json:"id" db:"id"`
	RegisteredPolicyID uuid.UUID           `json:"registered_policy_id" db:"registered_policy_id"`
	CancelRequestType  CancelRequestType   `json:"cancel_request_type" db:"cancel_request_type"`
	Reason             string              `json:"reason" db:"reason"`
	Evidence           utils.JSONMap       `json:"evidence,omitempty" db:"evidence"`
	Status             CancelRequestStatus `json:"status" db:"status"`
	RequestedBy        string              `json:"requested_by" db:"requested_by"`
	RequestedAt        int64               `json:"requested_at" db:"requested_at"`
	CompensateAmount   *int64              `json:"compensate_amount,omitempty" db:"compensate_amount"`
	ReviewedBy         *string             `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt         *int64              `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNotes        *string             `json:"review_notes,omitempty" db:"review_notes"`
	ResolvedBy         *string             `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt         *int64              `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolutionNotes    *string             `json:"resolution_notes,omitempty" db:"resolution_notes"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}

// IsTerminal reports whether the request has reached a final state. A denied
// request is not terminal: denial opens the dispute sub-flow.
func (r *CancelRequest) IsTerminal() bool {
	switch r.Status {
	case CancelApproved, CancelLitigationApproved, CancelLitigationDenied:
		return true
	default:
		return false
	}
}
