package models

import (
	"time"

	"policy-engine/internal/utils"

	"github.com/google/uuid"
)

// ============================================================================
// ANALYTICS & LOGGING
// ============================================================================

type TriggerEvaluationLog struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	RegisteredPolicyID  uuid.UUID     `json:"registered_policy_id" db:"registered_policy_id"`
	BasePolicyID        uuid.UUID     `json:"base_policy_id" db:"base_policy_id"`
	FarmID              uuid.UUID     `json:"farm_id" db:"farm_id"`
	BasePolicyTriggerID uuid.UUID     `json:"base_policy_trigger_id" db:"base_policy_trigger_id"`
	EvaluationTimestamp int64         `json:"evaluation_timestamp" db:"evaluation_timestamp"`
	EvaluationResult    bool          `json:"evaluation_result" db:"evaluation_result"`
	EarlyWarning        bool          `json:"early_warning" db:"early_warning"`
	ConditionsEvaluated int           `json:"conditions_evaluated" db:"conditions_evaluated"`
	ConditionsMet       int           `json:"conditions_met" db:"conditions_met"`
	ConditionDetails    utils.JSONMap `json:"condition_details,omitempty" db:"condition_details"`
	ClaimGenerated      bool          `json:"claim_generated" db:"claim_generated"`
	ClaimID             *uuid.UUID    `json:"claim_id,omitempty" db:"claim_id"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
}
