package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// CreateTx inserts the payout inside the claim-approval transaction
func (r *PayoutRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, payout *models.Payout) error {
	query := `
		INSERT INTO payout (
			id, claim_id, registered_policy_id, farm_id, farmer_id,
			payout_amount, currency, status, initiated_at, farmer_confirmed,
			created_at
		) VALUES (
			:id, :claim_id, :registered_policy_id, :farm_id, :farmer_id,
			:payout_amount, :currency, :status, :initiated_at, :farmer_confirmed,
			NOW()
		)
	`

	if _, err := tx.NamedExecContext(ctx, query, payout); err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}

	return nil
}

// GetByID retrieves a payout by its ID
func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	query := `
		SELECT id, claim_id, registered_policy_id, farm_id, farmer_id,
		       payout_amount, currency, status, initiated_at, completed_at,
		       farmer_confirmed, farmer_confirmation_timestamp, farmer_rating,
		       farmer_feedback, created_at
		FROM payout
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &payout, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout by id: %w", err)
	}

	return &payout, nil
}

// GetByClaimID retrieves the payout for a claim
func (r *PayoutRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	query := `
		SELECT id, claim_id, registered_policy_id, farm_id, farmer_id,
		       payout_amount, currency, status, initiated_at, completed_at,
		       farmer_confirmed, farmer_confirmation_timestamp, farmer_rating,
		       farmer_feedback, created_at
		FROM payout
		WHERE claim_id = $1
	`

	err := r.db.GetContext(ctx, &payout, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout by claim id: %w", err)
	}

	return &payout, nil
}

// GetByFarmerID retrieves all payouts for a farmer
func (r *PayoutRepository) GetByFarmerID(ctx context.Context, farmerID string) ([]models.Payout, error) {
	var payouts []models.Payout
	query := `
		SELECT id, claim_id, registered_policy_id, farm_id, farmer_id,
		       payout_amount, currency, status, initiated_at, completed_at,
		       farmer_confirmed, farmer_confirmation_timestamp, farmer_rating,
		       farmer_feedback, created_at
		FROM payout
		WHERE farmer_id = $1
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &payouts, query, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payouts by farmer id: %w", err)
	}

	return payouts, nil
}

// UpdateStatusTx records a settlement state change. The amount is never
// touched here: settlement retries must not alter claim facts.
func (r *PayoutRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status models.PayoutStatus, completedAt *int64) error {
	query := `
		UPDATE payout
		SET status = $1, completed_at = $2
		WHERE id = $3
	`

	result, err := tx.ExecContext(ctx, query, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update payout status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("payout not found")
	}

	return nil
}

// ConfirmByFarmer records the farmer's receipt confirmation and optional rating
func (r *PayoutRepository) ConfirmByFarmer(ctx context.Context, id uuid.UUID, confirmedAt int64, rating *int, feedback *string) error {
	query := `
		UPDATE payout
		SET farmer_confirmed = true,
		    farmer_confirmation_timestamp = $1,
		    farmer_rating = $2,
		    farmer_feedback = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, confirmedAt, rating, feedback, id, models.PayoutCompleted)
	if err != nil {
		return fmt.Errorf("failed to confirm payout: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("payout %s is not completed: %w", id, models.ErrInvalidStateTransition)
	}

	return nil
}
