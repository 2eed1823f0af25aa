package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BreachRunRepository persists the consecutive-breach counters so runs
// survive restarts and are shared between instances.
type BreachRunRepository struct {
	db *sqlx.DB
}

func NewBreachRunRepository(db *sqlx.DB) *BreachRunRepository {
	return &BreachRunRepository{db: db}
}

// Get returns the current run for one (policy, condition) pair, or a zero run
// when none has been recorded yet.
func (r *BreachRunRepository) Get(ctx context.Context, registeredPolicyID, conditionID uuid.UUID) (*models.ConditionBreachRun, error) {
	var run models.ConditionBreachRun
	query := `
		SELECT registered_policy_id, condition_id, run_length, last_evaluated_at, updated_at
		FROM condition_breach_run
		WHERE registered_policy_id = $1 AND condition_id = $2
	`

	err := r.db.GetContext(ctx, &run, query, registeredPolicyID, conditionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ConditionBreachRun{
				RegisteredPolicyID: registeredPolicyID,
				ConditionID:        conditionID,
				RunLength:          0,
			}, nil
		}
		return nil, fmt.Errorf("failed to get breach run: %w", err)
	}

	return &run, nil
}

// Increment extends the run by one and returns the new length.
func (r *BreachRunRepository) Increment(ctx context.Context, registeredPolicyID, conditionID uuid.UUID, evaluatedAt int64) (int, error) {
	var runLength int
	query := `
		INSERT INTO condition_breach_run (registered_policy_id, condition_id, run_length, last_evaluated_at, updated_at)
		VALUES ($1, $2, 1, $3, NOW())
		ON CONFLICT (registered_policy_id, condition_id)
		DO UPDATE SET run_length = condition_breach_run.run_length + 1,
		              last_evaluated_at = $3,
		              updated_at = NOW()
		RETURNING run_length
	`

	err := r.db.GetContext(ctx, &runLength, query, registeredPolicyID, conditionID, evaluatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to increment breach run: %w", err)
	}

	return runLength, nil
}

// Reset zeroes the run after a non-breaching evaluation. Missing-data cycles
// must NOT call this: an unknown cycle leaves the counter untouched.
func (r *BreachRunRepository) Reset(ctx context.Context, registeredPolicyID, conditionID uuid.UUID, evaluatedAt int64) error {
	query := `
		INSERT INTO condition_breach_run (registered_policy_id, condition_id, run_length, last_evaluated_at, updated_at)
		VALUES ($1, $2, 0, $3, NOW())
		ON CONFLICT (registered_policy_id, condition_id)
		DO UPDATE SET run_length = 0,
		              last_evaluated_at = $3,
		              updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, registeredPolicyID, conditionID, evaluatedAt); err != nil {
		return fmt.Errorf("failed to reset breach run: %w", err)
	}

	return nil
}
