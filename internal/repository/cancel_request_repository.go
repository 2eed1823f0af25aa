package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CancelRequestRepository struct {
	db *sqlx.DB
}

func NewCancelRequestRepository(db *sqlx.DB) *CancelRequestRepository {
	return &CancelRequestRepository{db: db}
}

func (r *CancelRequestRepository) DB() *sqlx.DB {
	return r.db
}

// InTx runs fn in one transaction, committing on success and rolling back on
// error.
func (r *CancelRequestRepository) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
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

// CreateTx inserts a new cancel request
func (r *CancelRequestRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error {
	query := `
		INSERT INTO cancel_request (
			id, registered_policy_id, cancel_request_type, reason, evidence,
			status, requested_by, requested_at, created_at
		) VALUES (
			:id, :registered_policy_id, :cancel_request_type, :reason, :evidence,
			:status, :requested_by, :requested_at, NOW()
		)
	`

	if _, err := tx.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("failed to create cancel request: %w", err)
	}

	return nil
}

// GetByID retrieves a cancel request by its ID
func (r *CancelRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CancelRequest, error) {
	var request models.CancelRequest
	query := `
		SELECT id, registered_policy_id, cancel_request_type, reason, evidence,
		       status, requested_by, requested_at, compensate_amount, reviewed_by,
		       reviewed_at, review_notes, resolved_by, resolved_at,
		       resolution_notes, created_at
		FROM cancel_request
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &request, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel request by id: %w", err)
	}

	return &request, nil
}

// GetByRegisteredPolicyID retrieves all cancel requests for a policy
func (r *CancelRequestRepository) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.CancelRequest, error) {
	var requests []models.CancelRequest
	query := `
		SELECT id, registered_policy_id, cancel_request_type, reason, evidence,
		       status, requested_by, requested_at, compensate_amount, reviewed_by,
		       reviewed_at, review_notes, resolved_by, resolved_at,
		       resolution_notes, created_at
		FROM cancel_request
		WHERE registered_policy_id = $1
		ORDER BY requested_at DESC
	`

	err := r.db.SelectContext(ctx, &requests, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel requests by policy id: %w", err)
	}

	return requests, nil
}

// GetByStatus retrieves cancel requests in one status, for review queues
func (r *CancelRequestRepository) GetByStatus(ctx context.Context, status models.CancelRequestStatus) ([]models.CancelRequest, error) {
	var requests []models.CancelRequest
	query := `
		SELECT id, registered_policy_id, cancel_request_type, reason, evidence,
		       status, requested_by, requested_at, compensate_amount, reviewed_by,
		       reviewed_at, review_notes, resolved_by, resolved_at,
		       resolution_notes, created_at
		FROM cancel_request
		WHERE status = $1
		ORDER BY requested_at ASC
	`

	err := r.db.SelectContext(ctx, &requests, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel requests by status: %w", err)
	}

	return requests, nil
}

// UpdateReviewTx records the insurer's review decision. The status guard
// keeps decisions from landing on anything but a pending request.
func (r *CancelRequestRepository) UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error {
	query := `
		UPDATE cancel_request
		SET status = :status,
		    compensate_amount = :compensate_amount,
		    reviewed_by = :reviewed_by,
		    reviewed_at = :reviewed_at,
		    review_notes = :review_notes
		WHERE id = :id AND status = 'pending_review'
	`

	result, err := tx.NamedExecContext(ctx, query, request)
	if err != nil {
		return fmt.Errorf("failed to update cancel request review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("cancel request %s is not pending review: %w", request.ID, models.ErrInvalidStateTransition)
	}

	return nil
}

// UpdateStatusTx moves a request between non-review states (dispute opening)
func (r *CancelRequestRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to models.CancelRequestStatus) error {
	query := `UPDATE cancel_request SET status = $1 WHERE id = $2 AND status = $3`

	result, err := tx.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update cancel request status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("cancel request %s is not in status %s: %w", id, from, models.ErrInvalidStateTransition)
	}

	return nil
}

// UpdateResolutionTx records the litigation outcome on a disputed request
func (r *CancelRequestRepository) UpdateResolutionTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error {
	query := `
		UPDATE cancel_request
		SET status = :status,
		    compensate_amount = :compensate_amount,
		    resolved_by = :resolved_by,
		    resolved_at = :resolved_at,
		    resolution_notes = :resolution_notes
		WHERE id = :id AND status = 'dispute'
	`

	result, err := tx.NamedExecContext(ctx, query, request)
	if err != nil {
		return fmt.Errorf("failed to update cancel request resolution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("cancel request %s is not in dispute: %w", request.ID, models.ErrInvalidStateTransition)
	}

	return nil
}
