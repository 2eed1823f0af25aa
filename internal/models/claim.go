package models

import (
	"time"

	"policy-engine/internal/utils"

	"github.com/google/uuid"
)

// ============================================================================
// CLAIM & CLAIM REJECTION
// ============================================================================

// Claim is created when a trigger fires for an active registered policy.
// Monetary fields are integer minor units. ClaimAmount is immutable once
// status reaches approved; Revision backs the first-writer-wins rule on
// review decisions.
type Claim struct {
	ID                        uuid.UUID     `json:"id" db:"id"`
	ClaimNumber               string        `json:"claim_number" db:"claim_number"`
	RegisteredPolicyID        uuid.UUID     `json:"registered_policy_id" db:"registered_policy_id"`
	BasePolicyID              uuid.UUID     `json:"base_policy_id" db:"base_policy_id"`
	FarmID                    uuid.UUID     `json:"farm_id" db:"farm_id"`
	BasePolicyTriggerID       uuid.UUID     `json:"base_policy_trigger_id" db:"base_policy_trigger_id"`
	TriggerTimestamp          int64         `json:"trigger_timestamp" db:"trigger_timestamp"`
	OverThresholdValue        *float64      `json:"over_threshold_value,omitempty" db:"over_threshold_value"`
	CalculatedFixPayout       int64         `json:"calculated_fix_payout" db:"calculated_fix_payout"`
	CalculatedThresholdPayout int64         `json:"calculated_threshold_payout" db:"calculated_threshold_payout"`
	ClaimAmount               int64         `json:"claim_amount" db:"claim_amount"`
	Status                    ClaimStatus   `json:"status" db:"status"`
	AutoGenerated             bool          `json:"auto_generated" db:"auto_generated"`
	PartnerReviewTimestamp    *int64        `json:"partner_review_timestamp,omitempty" db:"partner_review_timestamp"`
	PartnerDecision           *string       `json:"partner_decision,omitempty" db:"partner_decision"`
	PartnerNotes              *string       `json:"partner_notes,omitempty" db:"partner_notes"`
	ReviewedBy                *string       `json:"reviewed_by,omitempty" db:"reviewed_by"`
	AutoApprovalDeadline      *int64        `json:"auto_approval_deadline,omitempty" db:"auto_approval_deadline"`
	AutoApproved              bool          `json:"auto_approved" db:"auto_approved"`
	EvidenceSummary           utils.JSONMap `json:"evidence_summary,omitempty" db:"evidence_summary"`
	Revision                  int           `json:"revision" db:"revision"`
	CreatedAt                 time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the claim can no longer be decided.
func (c *Claim) IsTerminal() bool {
	switch c.Status {
	case ClaimApproved, ClaimRejected, ClaimPaid:
		return true
	default:
		return false
	}
}

// ClaimRejection is the 1:1 record behind a rejected claim.
type ClaimRejection struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	ClaimID           uuid.UUID          `json:"claim_id" db:"claim_id"`
	RejectionType     ClaimRejectionType `json:"claim_rejection_type" db:"claim_rejection_type"`
	Reason            string             `json:"reason" db:"reason"`
	ValidatedBy       string             `json:"validated_by" db:"validated_by"`
	ValidationNotes   *string            `json:"validation_notes,omitempty" db:"validation_notes"`
	EventDate         *int64             `json:"event_date,omitempty" db:"event_date"`
	PolicyClause      *string            `json:"policy_clause,omitempty" db:"policy_clause"`
	BlackoutWindow    *string            `json:"blackout_window,omitempty" db:"blackout_window"`
	EvidenceDocuments utils.JSONMap      `json:"evidence_documents,omitempty" db:"evidence_documents"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}
