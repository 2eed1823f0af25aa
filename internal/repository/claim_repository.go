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

type ClaimRepository struct {
	db *sqlx.DB
}

func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) DB() *sqlx.DB {
	return r.db
}

// InTx runs fn in one transaction, committing on success and rolling back on
// error.
func (r *ClaimRepository) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Create inserts a newly generated claim
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO claim (
			id, claim_number, registered_policy_id, base_policy_id, farm_id,
			base_policy_trigger_id, trigger_timestamp, over_threshold_value,
			calculated_fix_payout, calculated_threshold_payout, claim_amount,
			status, auto_generated, auto_approval_deadline, auto_approved,
			evidence_summary, revision, created_at, updated_at
		) VALUES (
			:id, :claim_number, :registered_policy_id, :base_policy_id, :farm_id,
			:base_policy_trigger_id, :trigger_timestamp, :over_threshold_value,
			:calculated_fix_payout, :calculated_threshold_payout, :claim_amount,
			:status, :auto_generated, :auto_approval_deadline, :auto_approved,
			:evidence_summary, :revision, NOW(), NOW()
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, claim); err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetByID retrieves a claim by its ID
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	query := `
		SELECT id, claim_number, registered_policy_id, base_policy_id, farm_id,
		       base_policy_trigger_id, trigger_timestamp, over_threshold_value,
		       calculated_fix_payout, calculated_threshold_payout, claim_amount,
		       status, auto_generated, partner_review_timestamp, partner_decision,
		       partner_notes, reviewed_by, auto_approval_deadline, auto_approved,
		       evidence_summary, revision, created_at, updated_at
		FROM claim
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &claim, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim by id: %w", err)
	}

	return &claim, nil
}

// GetAll retrieves claims with optional filters
func (r *ClaimRepository) GetAll(ctx context.Context, filters map[string]interface{}) ([]models.Claim, error) {
	var claims []models.Claim
	query := `
		SELECT id, claim_number, registered_policy_id, base_policy_id, farm_id,
		       base_policy_trigger_id, trigger_timestamp, over_threshold_value,
		       calculated_fix_payout, calculated_threshold_payout, claim_amount,
		       status, auto_generated, partner_review_timestamp, partner_decision,
		       partner_notes, reviewed_by, auto_approval_deadline, auto_approved,
		       evidence_summary, revision, created_at, updated_at
		FROM claim
		WHERE 1=1
	`

	args := []interface{}{}
	argCount := 1

	if registeredPolicyID, ok := filters["registered_policy_id"].(uuid.UUID); ok {
		query += fmt.Sprintf(" AND registered_policy_id = $%d", argCount)
		args = append(args, registeredPolicyID)
		argCount++
	}

	if farmID, ok := filters["farm_id"].(uuid.UUID); ok {
		query += fmt.Sprintf(" AND farm_id = $%d", argCount)
		args = append(args, farmID)
		argCount++
	}

	if providerID, ok := filters["insurance_provider_id"].(string); ok {
		query += fmt.Sprintf(" AND base_policy_id IN (SELECT id FROM base_policy WHERE insurance_provider_id = $%d)", argCount)
		args = append(args, providerID)
		argCount++
	}

	if status, ok := filters["status"].(models.ClaimStatus); ok {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, status)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	err := r.db.SelectContext(ctx, &claims, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}

	return claims, nil
}

// GetByRegisteredPolicyID retrieves claims by registered policy ID
func (r *ClaimRepository) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.Claim, error) {
	return r.GetAll(ctx, map[string]interface{}{"registered_policy_id": policyID})
}

// GetByFarmID retrieves claims by farm ID
func (r *ClaimRepository) GetByFarmID(ctx context.Context, farmID uuid.UUID) ([]models.Claim, error) {
	return r.GetAll(ctx, map[string]interface{}{"farm_id": farmID})
}

// GetRecentByTrigger retrieves the most recent claim for a (policy, trigger)
// pair with a trigger timestamp at or after the given cutoff. Used for
// duplicate suppression. Returns nil when no such claim exists.
func (r *ClaimRepository) GetRecentByTrigger(ctx context.Context, policyID, triggerID uuid.UUID, since int64) (*models.Claim, error) {
	var claim models.Claim
	query := `
		SELECT id, claim_number, registered_policy_id, base_policy_id, farm_id,
		       base_policy_trigger_id, trigger_timestamp, over_threshold_value,
		       calculated_fix_payout, calculated_threshold_payout, claim_amount,
		       status, auto_generated, partner_review_timestamp, partner_decision,
		       partner_notes, reviewed_by, auto_approval_deadline, auto_approved,
		       evidence_summary, revision, created_at, updated_at
		FROM claim
		WHERE registered_policy_id = $1
		  AND base_policy_trigger_id = $2
		  AND trigger_timestamp >= $3
		ORDER BY trigger_timestamp DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &claim, query, policyID, triggerID, since)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recent claim by trigger: %w", err)
	}

	return &claim, nil
}

// ListPendingPastDeadline retrieves undecided claims whose auto-approval
// deadline has passed, for the sweep to approve.
func (r *ClaimRepository) ListPendingPastDeadline(ctx context.Context, now int64) ([]models.Claim, error) {
	var claims []models.Claim
	query := `
		SELECT id, claim_number, registered_policy_id, base_policy_id, farm_id,
		       base_policy_trigger_id, trigger_timestamp, over_threshold_value,
		       calculated_fix_payout, calculated_threshold_payout, claim_amount,
		       status, auto_generated, partner_review_timestamp, partner_decision,
		       partner_notes, reviewed_by, auto_approval_deadline, auto_approved,
		       evidence_summary, revision, created_at, updated_at
		FROM claim
		WHERE status IN ($1, $2)
		  AND auto_approval_deadline IS NOT NULL
		  AND auto_approval_deadline <= $3
		ORDER BY auto_approval_deadline ASC
	`

	err := r.db.SelectContext(ctx, &claims, query, models.ClaimGenerated, models.ClaimPendingPartnerReview, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims past deadline: %w", err)
	}

	return claims, nil
}

// UpdateDecisionTx writes a review decision with optimistic concurrency: the
// update only lands when the claim is still undecided and its revision is
// unchanged since the caller read it. Returns ErrAlreadyDecided when another
// writer won the race.
func (r *ClaimRepository) UpdateDecisionTx(ctx context.Context, tx *sqlx.Tx, claim *models.Claim, expectedRevision int) error {
	query := `
		UPDATE claim
		SET status = :status,
		    partner_review_timestamp = :partner_review_timestamp,
		    partner_decision = :partner_decision,
		    partner_notes = :partner_notes,
		    reviewed_by = :reviewed_by,
		    auto_approved = :auto_approved,
		    revision = revision + 1,
		    updated_at = NOW()
		WHERE id = :id
		  AND revision = :expected_revision
		  AND status IN ('generated', 'pending_partner_review')
	`

	params := map[string]interface{}{
		"id":                       claim.ID,
		"status":                   claim.Status,
		"partner_review_timestamp": claim.PartnerReviewTimestamp,
		"partner_decision":         claim.PartnerDecision,
		"partner_notes":            claim.PartnerNotes,
		"reviewed_by":              claim.ReviewedBy,
		"auto_approved":            claim.AutoApproved,
		"expected_revision":        expectedRevision,
	}

	result, err := tx.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to update claim decision: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("claim %s: %w", claim.ID, models.ErrAlreadyDecided)
	}

	return nil
}

// MarkPaidTx transitions an approved claim to paid when its payout settles
func (r *ClaimRepository) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, claimID uuid.UUID) error {
	query := `
		UPDATE claim
		SET status = $1, revision = revision + 1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := tx.ExecContext(ctx, query, models.ClaimPaid, claimID, models.ClaimApproved)
	if err != nil {
		return fmt.Errorf("failed to mark claim paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("claim %s is not approved: %w", claimID, models.ErrInvalidStateTransition)
	}

	return nil
}
