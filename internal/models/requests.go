package models

import "github.com/google/uuid"

// ============================================================================
// REQUEST / RESPONSE DTOS
// ============================================================================

// ReviewClaimRequest is a partner reviewer's decision on a pending claim.
// ExpectedRevision carries the revision the reviewer last saw so a stale
// submission loses the first-writer-wins race instead of clobbering it.
type ReviewClaimRequest struct {
	Status           ClaimStatus `json:"status"`
	PartnerDecision  string      `json:"partner_decision"`
	PartnerNotes     string      `json:"partner_notes"`
	ReviewedBy       string      `json:"reviewed_by"`
	ExpectedRevision *int        `json:"expected_revision,omitempty"`
}

type ReviewClaimResponse struct {
	ClaimID  uuid.UUID   `json:"claim_id"`
	PayoutID *uuid.UUID  `json:"payout_id,omitempty"`
	Status   ClaimStatus `json:"status"`
}

// RejectClaimRequest carries the rejection taxonomy record for a claim.
type RejectClaimRequest struct {
	RejectionType     ClaimRejectionType `json:"claim_rejection_type"`
	Reason            string             `json:"reason"`
	PartnerNotes      string             `json:"partner_notes"`
	ValidationNotes   *string            `json:"validation_notes,omitempty"`
	EventDate         *int64             `json:"event_date,omitempty"`
	PolicyClause      *string            `json:"policy_clause,omitempty"`
	BlackoutWindow    *string            `json:"blackout_window,omitempty"`
	EvidenceDocuments []string           `json:"evidence_documents,omitempty"`
	ExpectedRevision  *int               `json:"expected_revision,omitempty"`
}

type CreateCancelRequestRequest struct {
	CancelRequestType CancelRequestType `json:"cancel_request_type"`
	Reason            string            `json:"reason"`
	Evidence          map[string]any    `json:"evidence,omitempty"`
}

type ReviewCancelRequestReq struct {
	RequestID        uuid.UUID           `json:"-"`
	Decision         CancelRequestStatus `json:"decision"`
	ReviewNotes      string              `json:"review_notes"`
	CompensateAmount *int64              `json:"compensate_amount,omitempty"`
	ReviewedBy       string              `json:"-"`
}

type ResolveDisputeReq struct {
	RequestID       uuid.UUID           `json:"-"`
	FinalDecision   CancelRequestStatus `json:"final_decision"`
	ResolutionNotes string              `json:"resolution_notes"`
	ResolvedBy      string              `json:"-"`
}

type ConfirmSettlementRequest struct {
	PayoutID    uuid.UUID    `json:"payout_id"`
	Status      PayoutStatus `json:"status"`
	CompletedAt *int64       `json:"completed_at,omitempty"`
}
