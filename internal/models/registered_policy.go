package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// REGISTERED POLICY (ACTUAL POLICY INSTANCES)
// ============================================================================

type RegisteredPolicy struct {
	ID                  uuid.UUID    `json:"id" db:"id"`
	PolicyNumber        string       `json:"policy_number" db:"policy_number"`
	BasePolicyID        uuid.UUID    `json:"base_policy_id" db:"base_policy_id"`
	InsuranceProviderID string       `json:"insurance_provider_id" db:"insurance_provider_id"`
	FarmID              uuid.UUID    `json:"farm_id" db:"farm_id"`
	FarmerID            string       `json:"farmer_id" db:"farmer_id"`
	AreaHectares        float64      `json:"area_hectares" db:"area_hectares"`
	CoverageAmount      int64        `json:"coverage_amount" db:"coverage_amount"`
	CoverageStartDate   int64        `json:"coverage_start_date" db:"coverage_start_date"`
	CoverageEndDate     int64        `json:"coverage_end_date" db:"coverage_end_date"`
	TotalFarmerPremium  int64        `json:"total_farmer_premium" db:"total_farmer_premium"`
	PremiumPaidByFarmer bool         `json:"premium_paid_by_farmer" db:"premium_paid_by_farmer"`
	PremiumPaidAt       *int64       `json:"premium_paid_at,omitempty" db:"premium_paid_at"`
	Status              PolicyStatus `json:"status" db:"status"`
	OpenCancelRequestID *uuid.UUID   `json:"open_cancel_request_id,omitempty" db:"open_cancel_request_id"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
	RegisteredBy        *string      `json:"registered_by,omitempty" db:"registered_by"`
}
