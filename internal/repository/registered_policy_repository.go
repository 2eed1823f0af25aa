package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RegisteredPolicyRepository struct {
	db *sqlx.DB
}

func NewRegisteredPolicyRepository(db *sqlx.DB) *RegisteredPolicyRepository {
	return &RegisteredPolicyRepository{db: db}
}

// GetByID retrieves a registered policy by its ID
func (r *RegisteredPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error) {
	var policy models.RegisteredPolicy
	query := `
		SELECT id, policy_number, base_policy_id, insurance_provider_id, farm_id,
		       farmer_id, area_hectares, coverage_amount, coverage_start_date,
		       coverage_end_date, total_farmer_premium, premium_paid_by_farmer,
		       premium_paid_at, status, open_cancel_request_id, created_at,
		       updated_at, registered_by
		FROM registered_policy
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get registered policy by id: %w", err)
	}

	return &policy, nil
}

// GetActivePolicies retrieves all policies currently inside their coverage
// window and eligible for trigger evaluation.
func (r *RegisteredPolicyRepository) GetActivePolicies(ctx context.Context, now int64) ([]models.RegisteredPolicy, error) {
	var policies []models.RegisteredPolicy
	query := `
		SELECT id, policy_number, base_policy_id, insurance_provider_id, farm_id,
		       farmer_id, area_hectares, coverage_amount, coverage_start_date,
		       coverage_end_date, total_farmer_premium, premium_paid_by_farmer,
		       premium_paid_at, status, open_cancel_request_id, created_at,
		       updated_at, registered_by
		FROM registered_policy
		WHERE status = $1
		  AND coverage_start_date <= $2
		  AND coverage_end_date >= $2
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &policies, query, models.PolicyActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active policies: %w", err)
	}

	return policies, nil
}

// UpdateStatus changes the lifecycle status of a registered policy
func (r *RegisteredPolicyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PolicyStatus) error {
	query := `UPDATE registered_policy SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registered policy status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("registered policy not found")
	}

	return nil
}

// UpdateStatusTx is the transactional variant of UpdateStatus
func (r *RegisteredPolicyRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status models.PolicyStatus) error {
	query := `UPDATE registered_policy SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registered policy status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("registered policy not found")
	}

	return nil
}

// SetOpenCancelRequestTx records the single open cancel request on a policy.
// Fails when another open request already exists, keeping at most one open
// request per policy.
func (r *RegisteredPolicyRepository) SetOpenCancelRequestTx(ctx context.Context, tx *sqlx.Tx, policyID, requestID uuid.UUID) error {
	query := `
		UPDATE registered_policy
		SET open_cancel_request_id = $1, updated_at = NOW()
		WHERE id = $2 AND open_cancel_request_id IS NULL
	`

	result, err := tx.ExecContext(ctx, query, requestID, policyID)
	if err != nil {
		return fmt.Errorf("failed to set open cancel request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("policy already has an open cancel request: %w", models.ErrInvalidStateTransition)
	}

	return nil
}

// ClearOpenCancelRequestTx releases the open-request slot on a policy
func (r *RegisteredPolicyRepository) ClearOpenCancelRequestTx(ctx context.Context, tx *sqlx.Tx, policyID uuid.UUID) error {
	query := `
		UPDATE registered_policy
		SET open_cancel_request_id = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, query, policyID); err != nil {
		return fmt.Errorf("failed to clear open cancel request: %w", err)
	}

	return nil
}
