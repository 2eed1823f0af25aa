package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"policy-engine/internal/config"
	"policy-engine/internal/event"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// IN-MEMORY STORES
// ============================================================================

// fakeClaimStore mirrors the repository's decision semantics: an update only
// lands while the claim is undecided and its revision is unchanged. When
// stalePending is set, ListPendingPastDeadline returns it as-is, standing in
// for a sweep working from a snapshot that another writer has outrun.
type fakeClaimStore struct {
	claims       map[uuid.UUID]*models.Claim
	stalePending []models.Claim
}

func newFakeClaimStore(claims ...*models.Claim) *fakeClaimStore {
	store := &fakeClaimStore{claims: make(map[uuid.UUID]*models.Claim)}
	for _, c := range claims {
		cp := *c
		store.claims[c.ID] = &cp
	}
	return store
}

func (f *fakeClaimStore) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	claim, ok := f.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s not found", id)
	}
	cp := *claim
	return &cp, nil
}

func (f *fakeClaimStore) GetAll(ctx context.Context, filters map[string]interface{}) ([]models.Claim, error) {
	var out []models.Claim
	for _, c := range f.claims {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeClaimStore) ListPendingPastDeadline(ctx context.Context, now int64) ([]models.Claim, error) {
	if f.stalePending != nil {
		return f.stalePending, nil
	}
	var out []models.Claim
	for _, c := range f.claims {
		if c.Status != models.ClaimGenerated && c.Status != models.ClaimPendingPartnerReview {
			continue
		}
		if c.AutoApprovalDeadline == nil || *c.AutoApprovalDeadline > now {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeClaimStore) UpdateDecisionTx(ctx context.Context, tx *sqlx.Tx, claim *models.Claim, expectedRevision int) error {
	current, ok := f.claims[claim.ID]
	if !ok || current.Revision != expectedRevision ||
		(current.Status != models.ClaimGenerated && current.Status != models.ClaimPendingPartnerReview) {
		return fmt.Errorf("claim %s: %w", claim.ID, models.ErrAlreadyDecided)
	}
	updated := *claim
	updated.Revision = current.Revision + 1
	f.claims[claim.ID] = &updated
	return nil
}

type fakePayoutStore struct {
	payouts []models.Payout
}

func (f *fakePayoutStore) CreateTx(ctx context.Context, tx *sqlx.Tx, payout *models.Payout) error {
	f.payouts = append(f.payouts, *payout)
	return nil
}

type fakeRejectionStore struct {
	rejections []models.ClaimRejection
}

func (f *fakeRejectionStore) CreateTx(ctx context.Context, tx *sqlx.Tx, rejection *models.ClaimRejection) error {
	f.rejections = append(f.rejections, *rejection)
	return nil
}

func (f *fakeRejectionStore) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.ClaimRejection, error) {
	for i := range f.rejections {
		if f.rejections[i].ClaimID == claimID {
			return &f.rejections[i], nil
		}
	}
	return nil, fmt.Errorf("rejection for claim %s not found", claimID)
}

type fakePolicyReader struct {
	policies map[uuid.UUID]*models.RegisteredPolicy
}

func (f *fakePolicyReader) GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error) {
	policy, ok := f.policies[id]
	if !ok {
		return nil, fmt.Errorf("registered policy %s not found", id)
	}
	cp := *policy
	return &cp, nil
}

type fakeEventSink struct {
	statusEvents []event.ClaimStatusChangedEvent
	payoutEvents []event.PayoutRequestEvent
}

func (f *fakeEventSink) PublishClaimStatusChanged(ctx context.Context, ev event.ClaimStatusChangedEvent) error {
	f.statusEvents = append(f.statusEvents, ev)
	return nil
}

func (f *fakeEventSink) PublishPayoutRequest(ctx context.Context, ev event.PayoutRequestEvent) error {
	f.payoutEvents = append(f.payoutEvents, ev)
	return nil
}

// ============================================================================
// FIXTURE
// ============================================================================

type lifecycleFixture struct {
	service    *ClaimLifecycleService
	claims     *fakeClaimStore
	payouts    *fakePayoutStore
	rejections *fakeRejectionStore
	events     *fakeEventSink
	policy     *models.RegisteredPolicy
}

func newLifecycleFixture(claims ...*models.Claim) *lifecycleFixture {
	policy := &models.RegisteredPolicy{
		ID:       uuid.New(),
		FarmerID: "farmer-001",
		Status:   models.PolicyActive,
	}
	for _, c := range claims {
		c.RegisteredPolicyID = policy.ID
	}

	claimStore := newFakeClaimStore(claims...)
	payouts := &fakePayoutStore{}
	rejections := &fakeRejectionStore{}
	events := &fakeEventSink{}
	policies := &fakePolicyReader{policies: map[uuid.UUID]*models.RegisteredPolicy{policy.ID: policy}}
	engineCfg := config.EngineConfig{DefaultReviewWindowDays: 7, Currency: "VND"}

	return &lifecycleFixture{
		service:    NewClaimLifecycleService(claimStore, rejections, payouts, policies, events, engineCfg),
		claims:     claimStore,
		payouts:    payouts,
		rejections: rejections,
		events:     events,
		policy:     policy,
	}
}

func pendingClaim(deadline int64) *models.Claim {
	return &models.Claim{
		ID:                   uuid.New(),
		ClaimNumber:          "CLM" + uuid.NewString()[:9],
		BasePolicyID:         uuid.New(),
		FarmID:               uuid.New(),
		BasePolicyTriggerID:  uuid.New(),
		TriggerTimestamp:     time.Now().Unix(),
		ClaimAmount:          23_000_000,
		Status:               models.ClaimPendingPartnerReview,
		AutoGenerated:        true,
		AutoApprovalDeadline: &deadline,
	}
}

// ============================================================================
// MANUAL REVIEW
// ============================================================================

func TestApproveClaim_CreatesPayoutAndPublishesEvents(t *testing.T) {
	ctx := context.Background()
	deadline := time.Now().Add(24 * time.Hour).Unix()
	claim := pendingClaim(deadline)
	fx := newLifecycleFixture(claim)

	req := &models.ReviewClaimRequest{
		PartnerDecision: "damage verified on site",
		PartnerNotes:    "rainfall deficit confirmed against station data",
		ReviewedBy:      "partner-reviewer-01",
	}

	res, err := fx.service.ApproveClaim(ctx, claim.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, res.Status)
	require.NotNil(t, res.PayoutID)

	stored, err := fx.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, stored.Status)
	assert.Equal(t, 1, stored.Revision)
	assert.False(t, stored.AutoApproved)

	require.Len(t, fx.payouts.payouts, 1)
	payout := fx.payouts.payouts[0]
	assert.Equal(t, claim.ClaimAmount, payout.PayoutAmount)
	assert.Equal(t, "VND", payout.Currency)
	assert.Equal(t, models.PayoutPending, payout.Status)
	assert.Equal(t, fx.policy.FarmerID, payout.FarmerID)

	require.Len(t, fx.events.statusEvents, 1)
	assert.Equal(t, models.ClaimPendingPartnerReview, fx.events.statusEvents[0].OldStatus)
	assert.Equal(t, models.ClaimApproved, fx.events.statusEvents[0].NewStatus)
	require.Len(t, fx.events.payoutEvents, 1)
	assert.Equal(t, payout.PayoutAmount, fx.events.payoutEvents[0].PayoutAmount)
}

func TestApproveClaim_RequiresReviewerNotes(t *testing.T) {
	ctx := context.Background()
	deadline := time.Now().Add(24 * time.Hour).Unix()
	claim := pendingClaim(deadline)
	fx := newLifecycleFixture(claim)

	req := &models.ReviewClaimRequest{
		PartnerDecision: "approved",
		ReviewedBy:      "partner-reviewer-01",
	}

	_, err := fx.service.ApproveClaim(ctx, claim.ID, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	stored, err := fx.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPendingPartnerReview, stored.Status)
	assert.Equal(t, 0, stored.Revision)
	assert.Empty(t, fx.payouts.payouts)
	assert.Empty(t, fx.events.statusEvents)
}

func TestApproveClaim_TerminalClaimAlreadyDecided(t *testing.T) {
	ctx := context.Background()
	deadline := time.Now().Add(24 * time.Hour).Unix()
	claim := pendingClaim(deadline)
	claim.Status = models.ClaimApproved
	fx := newLifecycleFixture(claim)

	req := &models.ReviewClaimRequest{
		PartnerDecision: "approved again",
		PartnerNotes:    "second look",
		ReviewedBy:      "partner-reviewer-02",
	}

	_, err := fx.service.ApproveClaim(ctx, claim.ID, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAlreadyDecided)
	assert.Empty(t, fx.payouts.payouts)
}

func TestRejectClaim_RecordsTaxonomyAtomically(t *testing.T) {
	ctx := context.Background()
	deadline := time.Now().Add(24 * time.Hour).Unix()
	claim := pendingClaim(deadline)
	fx := newLifecycleFixture(claim)

	req := &models.RejectClaimRequest{
		RejectionType: models.RejectionTriggerNotMet,
		Reason:        "station backfill shows the 7-day sum above threshold",
	}

	res, err := fx.service.RejectClaim(ctx, claim.ID, req, "partner-reviewer-02")
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, res.Status)

	stored, err := fx.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, stored.Status)
	assert.Equal(t, 1, stored.Revision)

	require.Len(t, fx.rejections.rejections, 1)
	rejection := fx.rejections.rejections[0]
	assert.Equal(t, claim.ID, rejection.ClaimID)
	assert.Equal(t, models.RejectionTriggerNotMet, rejection.RejectionType)
	assert.Equal(t, "partner-reviewer-02", rejection.ValidatedBy)

	assert.Empty(t, fx.payouts.payouts)
	require.Len(t, fx.events.statusEvents, 1)
	assert.Equal(t, models.ClaimRejected, fx.events.statusEvents[0].NewStatus)
}

func TestRejectClaim_UnknownRejectionType(t *testing.T) {
	ctx := context.Background()
	deadline := time.Now().Add(24 * time.Hour).Unix()
	claim := pendingClaim(deadline)
	fx := newLifecycleFixture(claim)

	req := &models.RejectClaimRequest{
		RejectionType: "weather_too_nice",
		Reason:        "not in the taxonomy",
	}

	_, err := fx.service.RejectClaim(ctx, claim.ID, req, "partner-reviewer-02")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, fx.rejections.rejections)
}

// ============================================================================
// AUTO-APPROVAL SWEEP
// ============================================================================

func TestRunAutoApprovalSweep_ApprovesOverdueClaims(t *testing.T) {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour).Unix()
	future := time.Now().Add(48 * time.Hour).Unix()
	overdueA := pendingClaim(past)
	overdueB := pendingClaim(past)
	fresh := pendingClaim(future)
	fx := newLifecycleFixture(overdueA, overdueB, fresh)

	approved, err := fx.service.RunAutoApprovalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, approved)

	for _, id := range []uuid.UUID{overdueA.ID, overdueB.ID} {
		stored, err := fx.claims.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ClaimApproved, stored.Status)
		assert.True(t, stored.AutoApproved)
		require.NotNil(t, stored.ReviewedBy)
		assert.Equal(t, AutoApprovalReviewer, *stored.ReviewedBy)
	}

	stored, err := fx.claims.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPendingPartnerReview, stored.Status)

	assert.Len(t, fx.payouts.payouts, 2)
	assert.Len(t, fx.events.payoutEvents, 2)
}

func TestRunAutoApprovalSweep_SecondRunIsNoOp(t *testing.T) {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour).Unix()
	claim := pendingClaim(past)
	fx := newLifecycleFixture(claim)

	approved, err := fx.service.RunAutoApprovalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, approved)

	approved, err = fx.service.RunAutoApprovalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, approved)

	assert.Len(t, fx.payouts.payouts, 1)
}

func TestRunAutoApprovalSweep_SkipsClaimDecidedFirst(t *testing.T) {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour).Unix()
	claim := pendingClaim(past)
	fx := newLifecycleFixture(claim)

	req := &models.RejectClaimRequest{
		RejectionType: models.RejectionDuplicateClaim,
		Reason:        "duplicate of an open claim on the same trigger",
	}
	_, err := fx.service.RejectClaim(ctx, claim.ID, req, "partner-reviewer-01")
	require.NoError(t, err)

	// The sweep works from a listing taken before the rejection landed. The
	// revision check makes it lose the race instead of overturning the
	// decision.
	snapshot := *claim
	fx.claims.stalePending = []models.Claim{snapshot}

	approved, err := fx.service.RunAutoApprovalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, approved)

	stored, err := fx.claims.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, stored.Status)
	assert.Empty(t, fx.payouts.payouts)
	assert.Len(t, fx.events.statusEvents, 1)
}
