package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ClaimRejectionRepository struct {
	db *sqlx.DB
}

func NewClaimRejectionRepository(db *sqlx.DB) *ClaimRejectionRepository {
	return &ClaimRejectionRepository{db: db}
}

// CreateTx inserts the rejection record inside the same transaction that
// flips the claim to rejected, so the two can never diverge.
func (r *ClaimRejectionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, rejection *models.ClaimRejection) error {
	query := `
		INSERT INTO claim_rejection (
			id, claim_id, claim_rejection_type, reason, validated_by,
			validation_notes, event_date, policy_clause, blackout_window,
			evidence_documents, created_at
		) VALUES (
			:id, :claim_id, :claim_rejection_type, :reason, :validated_by,
			:validation_notes, :event_date, :policy_clause, :blackout_window,
			:evidence_documents, NOW()
		)
	`

	if _, err := tx.NamedExecContext(ctx, query, rejection); err != nil {
		return fmt.Errorf("failed to create claim rejection: %w", err)
	}

	return nil
}

// GetByClaimID retrieves the rejection record for a claim
func (r *ClaimRejectionRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.ClaimRejection, error) {
	var rejection models.ClaimRejection
	query := `
		SELECT id, claim_id, claim_rejection_type, reason, validated_by,
		       validation_notes, event_date, policy_clause, blackout_window,
		       evidence_documents, created_at
		FROM claim_rejection
		WHERE claim_id = $1
	`

	err := r.db.GetContext(ctx, &rejection, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim rejection by claim id: %w", err)
	}

	return &rejection, nil
}

// GetByRejectionType retrieves rejections of one taxonomy value, for reports
func (r *ClaimRejectionRepository) GetByRejectionType(ctx context.Context, rejectionType models.ClaimRejectionType) ([]models.ClaimRejection, error) {
	var rejections []models.ClaimRejection
	query := `
		SELECT id, claim_id, claim_rejection_type, reason, validated_by,
		       validation_notes, event_date, policy_clause, blackout_window,
		       evidence_documents, created_at
		FROM claim_rejection
		WHERE claim_rejection_type = $1
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &rejections, query, rejectionType)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim rejections by type: %w", err)
	}

	return rejections, nil
}
