package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BasePolicyRepository struct {
	db *sqlx.DB
}

func NewBasePolicyRepository(db *sqlx.DB) *BasePolicyRepository {
	return &BasePolicyRepository{db: db}
}

// GetByID retrieves a base policy by its ID
func (r *BasePolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BasePolicy, error) {
	var policy models.BasePolicy
	query := `
		SELECT id, insurance_provider_id, product_name, product_code, product_description,
		       crop_type, coverage_currency, coverage_duration_days, premium_base_rate,
		       payout_base_rate, fix_premium_amount, fix_payout_amount,
		       is_premium_per_hectare, is_payout_per_hectare, over_threshold_multiplier,
		       payout_cap, cancel_premium_rate, enrollment_start_date, enrollment_end_date,
		       valid_from_date, valid_to_date, auto_renewal, review_window_days,
		       status, created_at, updated_at, created_by
		FROM base_policy
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base policy by id: %w", err)
	}

	return &policy, nil
}

// GetTriggerByBasePolicyID retrieves the trigger definition for a base policy
func (r *BasePolicyRepository) GetTriggerByBasePolicyID(ctx context.Context, basePolicyID uuid.UUID) (*models.BasePolicyTrigger, error) {
	var trigger models.BasePolicyTrigger
	query := `
		SELECT id, base_policy_id, logical_operator, growth_stage, monitor_interval,
		       monitor_frequency_unit, blackout_periods, created_at, updated_at
		FROM base_policy_trigger
		WHERE base_policy_id = $1
	`

	err := r.db.GetContext(ctx, &trigger, query, basePolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trigger by base policy id: %w", err)
	}

	return &trigger, nil
}

// GetConditionsByTriggerID retrieves the ordered condition list for a trigger
func (r *BasePolicyRepository) GetConditionsByTriggerID(ctx context.Context, triggerID uuid.UUID) ([]models.BasePolicyTriggerCondition, error) {
	var conditions []models.BasePolicyTriggerCondition
	query := `
		SELECT id, base_policy_trigger_id, data_source_id, threshold_operator,
		       threshold_value, early_warning_threshold, aggregation_function,
		       aggregation_window_days, consecutive_required, baseline_window_days,
		       baseline_function, validation_window_days, condition_order, created_at
		FROM base_policy_trigger_condition
		WHERE base_policy_trigger_id = $1
		ORDER BY condition_order ASC
	`

	err := r.db.SelectContext(ctx, &conditions, query, triggerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conditions by trigger id: %w", err)
	}

	return conditions, nil
}
