package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type EvaluationLogRepository struct {
	db *sqlx.DB
}

func NewEvaluationLogRepository(db *sqlx.DB) *EvaluationLogRepository {
	return &EvaluationLogRepository{db: db}
}

// Create appends one evaluation record to the audit trail
func (r *EvaluationLogRepository) Create(ctx context.Context, log *models.TriggerEvaluationLog) error {
	query := `
		INSERT INTO trigger_evaluation_log (
			id, registered_policy_id, base_policy_id, farm_id,
			base_policy_trigger_id, evaluation_timestamp, evaluation_result,
			early_warning, conditions_evaluated, conditions_met,
			condition_details, claim_generated, claim_id, created_at
		) VALUES (
			:id, :registered_policy_id, :base_policy_id, :farm_id,
			:base_policy_trigger_id, :evaluation_timestamp, :evaluation_result,
			:early_warning, :conditions_evaluated, :conditions_met,
			:condition_details, :claim_generated, :claim_id, NOW()
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("failed to create evaluation log: %w", err)
	}

	return nil
}

// GetByRegisteredPolicyID retrieves recent evaluations for a policy
func (r *EvaluationLogRepository) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID, limit int) ([]models.TriggerEvaluationLog, error) {
	var logs []models.TriggerEvaluationLog
	query := `
		SELECT id, registered_policy_id, base_policy_id, farm_id,
		       base_policy_trigger_id, evaluation_timestamp, evaluation_result,
		       early_warning, conditions_evaluated, conditions_met,
		       condition_details, claim_generated, claim_id, created_at
		FROM trigger_evaluation_log
		WHERE registered_policy_id = $1
		ORDER BY evaluation_timestamp DESC
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &logs, query, policyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation logs by policy id: %w", err)
	}

	return logs, nil
}
