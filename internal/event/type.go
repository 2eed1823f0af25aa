package event

import (
	"policy-engine/internal/models"

	"github.com/google/uuid"
)

const (
	// ClaimStatusQueue carries every claim lifecycle transition for
	// notification and reporting consumers.
	ClaimStatusQueue = "claim_status_events"

	// PayoutRequestQueue hands approved-claim payouts to the settlement
	// worker.
	PayoutRequestQueue = "payout_requests"
)

// ClaimStatusChangedEvent is emitted on every claim lifecycle transition
type ClaimStatusChangedEvent struct {
	ClaimID            uuid.UUID          `json:"claim_id"`
	ClaimNumber        string             `json:"claim_number"`
	RegisteredPolicyID uuid.UUID          `json:"registered_policy_id"`
	FarmID             uuid.UUID          `json:"farm_id"`
	OldStatus          models.ClaimStatus `json:"old_status"`
	NewStatus          models.ClaimStatus `json:"new_status"`
	ClaimAmount        int64              `json:"claim_amount"`
	AutoApproved       bool               `json:"auto_approved"`
	DecidedBy          string             `json:"decided_by,omitempty"`
	Timestamp          int64              `json:"timestamp"`
}

// PayoutRequestEvent asks the settlement worker to move money for a payout
type PayoutRequestEvent struct {
	PayoutID           uuid.UUID `json:"payout_id"`
	ClaimID            uuid.UUID `json:"claim_id"`
	RegisteredPolicyID uuid.UUID `json:"registered_policy_id"`
	FarmerID           string    `json:"farmer_id"`
	PayoutAmount       int64     `json:"payout_amount"`
	Currency           string    `json:"currency"`
	Timestamp          int64     `json:"timestamp"`
}
