package services

import (
	"context"
	"fmt"
	"testing"

	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// IN-MEMORY STORES
// ============================================================================

// fakeCancelRequestStore mirrors the repository's guarded updates: a review
// only lands on a pending request, a status move checks its source state, and
// a resolution only lands on a disputed request.
type fakeCancelRequestStore struct {
	requests map[uuid.UUID]*models.CancelRequest
}

func newFakeCancelRequestStore() *fakeCancelRequestStore {
	return &fakeCancelRequestStore{requests: make(map[uuid.UUID]*models.CancelRequest)}
}

func (f *fakeCancelRequestStore) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeCancelRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CancelRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("cancel request %s not found", id)
	}
	cp := *request
	return &cp, nil
}

func (f *fakeCancelRequestStore) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.CancelRequest, error) {
	var out []models.CancelRequest
	for _, r := range f.requests {
		if r.RegisteredPolicyID == policyID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeCancelRequestStore) GetByStatus(ctx context.Context, status models.CancelRequestStatus) ([]models.CancelRequest, error) {
	var out []models.CancelRequest
	for _, r := range f.requests {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeCancelRequestStore) CreateTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error {
	cp := *request
	f.requests[request.ID] = &cp
	return nil
}

func (f *fakeCancelRequestStore) UpdateReviewTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error {
	current, ok := f.requests[request.ID]
	if !ok || current.Status != models.CancelPendingReview {
		return fmt.Errorf("cancel request %s is not pending review: %w", request.ID, models.ErrInvalidStateTransition)
	}
	cp := *request
	f.requests[request.ID] = &cp
	return nil
}

func (f *fakeCancelRequestStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to models.CancelRequestStatus) error {
	current, ok := f.requests[id]
	if !ok || current.Status != from {
		return fmt.Errorf("cancel request %s is not in status %s: %w", id, from, models.ErrInvalidStateTransition)
	}
	current.Status = to
	return nil
}

func (f *fakeCancelRequestStore) UpdateResolutionTx(ctx context.Context, tx *sqlx.Tx, request *models.CancelRequest) error {
	current, ok := f.requests[request.ID]
	if !ok || current.Status != models.CancelDispute {
		return fmt.Errorf("cancel request %s is not in dispute: %w", request.ID, models.ErrInvalidStateTransition)
	}
	cp := *request
	f.requests[request.ID] = &cp
	return nil
}

type fakePolicyStore struct {
	policies map[uuid.UUID]*models.RegisteredPolicy
}

func (f *fakePolicyStore) GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error) {
	policy, ok := f.policies[id]
	if !ok {
		return nil, fmt.Errorf("registered policy %s not found", id)
	}
	cp := *policy
	return &cp, nil
}

func (f *fakePolicyStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status models.PolicyStatus) error {
	policy, ok := f.policies[id]
	if !ok {
		return fmt.Errorf("registered policy %s not found", id)
	}
	policy.Status = status
	return nil
}

func (f *fakePolicyStore) SetOpenCancelRequestTx(ctx context.Context, tx *sqlx.Tx, policyID, requestID uuid.UUID) error {
	policy, ok := f.policies[policyID]
	if !ok {
		return fmt.Errorf("registered policy %s not found", policyID)
	}
	if policy.OpenCancelRequestID != nil {
		return fmt.Errorf("policy %s already has an open cancel request: %w", policyID, models.ErrInvalidStateTransition)
	}
	id := requestID
	policy.OpenCancelRequestID = &id
	return nil
}

func (f *fakePolicyStore) ClearOpenCancelRequestTx(ctx context.Context, tx *sqlx.Tx, policyID uuid.UUID) error {
	policy, ok := f.policies[policyID]
	if !ok {
		return fmt.Errorf("registered policy %s not found", policyID)
	}
	policy.OpenCancelRequestID = nil
	return nil
}

type fakeBasePolicyReader struct {
	products map[uuid.UUID]*models.BasePolicy
}

func (f *fakeBasePolicyReader) GetByID(ctx context.Context, id uuid.UUID) (*models.BasePolicy, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("base policy %s not found", id)
	}
	cp := *product
	return &cp, nil
}

// ============================================================================
// FIXTURE
// ============================================================================

type cancelFixture struct {
	service  *CancelRequestService
	requests *fakeCancelRequestStore
	policy   *models.RegisteredPolicy
}

func newCancelFixture() *cancelFixture {
	product := &models.BasePolicy{
		ID:                uuid.New(),
		CancelPremiumRate: 0.8,
	}
	policy := &models.RegisteredPolicy{
		ID:                  uuid.New(),
		BasePolicyID:        product.ID,
		FarmerID:            "farmer-001",
		Status:              models.PolicyActive,
		TotalFarmerPremium:  10_000_000,
		PremiumPaidByFarmer: true,
	}

	requests := newFakeCancelRequestStore()
	policies := &fakePolicyStore{policies: map[uuid.UUID]*models.RegisteredPolicy{policy.ID: policy}}
	products := &fakeBasePolicyReader{products: map[uuid.UUID]*models.BasePolicy{product.ID: product}}

	return &cancelFixture{
		service:  NewCancelRequestService(requests, policies, products),
		requests: requests,
		policy:   policy,
	}
}

func (fx *cancelFixture) openRequest(t *testing.T) *models.CancelRequest {
	t.Helper()
	req := &models.CreateCancelRequestRequest{
		CancelRequestType: models.CancelNonPayment,
		Reason:            "second premium installment never arrived",
	}
	request, err := fx.service.CreateCancelRequest(context.Background(), fx.policy.ID, req, "provider-staff-01")
	require.NoError(t, err)
	return request
}

func (fx *cancelFixture) deniedRequest(t *testing.T) *models.CancelRequest {
	t.Helper()
	request := fx.openRequest(t)
	review := &models.ReviewCancelRequestReq{
		RequestID:   request.ID,
		Decision:    models.CancelDenied,
		ReviewNotes: "installment arrived late but arrived",
		ReviewedBy:  "provider-admin-01",
	}
	reviewed, err := fx.service.ReviewCancelRequest(context.Background(), review)
	require.NoError(t, err)
	return reviewed
}

// ============================================================================
// OPENING REQUESTS
// ============================================================================

func TestCreateCancelRequest_OpensSingleSlot(t *testing.T) {
	fx := newCancelFixture()

	request := fx.openRequest(t)
	assert.Equal(t, models.CancelPendingReview, request.Status)
	require.NotNil(t, fx.policy.OpenCancelRequestID)
	assert.Equal(t, request.ID, *fx.policy.OpenCancelRequestID)

	second := &models.CreateCancelRequestRequest{
		CancelRequestType: models.CancelOther,
		Reason:            "changed my mind about the first request",
	}
	_, err := fx.service.CreateCancelRequest(context.Background(), fx.policy.ID, second, "provider-staff-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}

func TestCreateCancelRequest_RequiresActivePolicy(t *testing.T) {
	fx := newCancelFixture()
	fx.policy.Status = models.PolicyCancelled

	req := &models.CreateCancelRequestRequest{
		CancelRequestType: models.CancelNonPayment,
		Reason:            "premium unpaid",
	}
	_, err := fx.service.CreateCancelRequest(context.Background(), fx.policy.ID, req, "provider-staff-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}

func TestCreateCancelRequest_ValidatesInput(t *testing.T) {
	fx := newCancelFixture()

	unknownType := &models.CreateCancelRequestRequest{
		CancelRequestType: "bored_of_farming",
		Reason:            "some reason",
	}
	_, err := fx.service.CreateCancelRequest(context.Background(), fx.policy.ID, unknownType, "provider-staff-01")
	assert.ErrorIs(t, err, models.ErrValidation)

	emptyReason := &models.CreateCancelRequestRequest{
		CancelRequestType: models.CancelNonPayment,
		Reason:            "   ",
	}
	_, err = fx.service.CreateCancelRequest(context.Background(), fx.policy.ID, emptyReason, "provider-staff-01")
	assert.ErrorIs(t, err, models.ErrValidation)
}

// ============================================================================
// REVIEW
// ============================================================================

func TestReviewCancelRequest_ApprovalCancelsPolicy(t *testing.T) {
	fx := newCancelFixture()
	request := fx.openRequest(t)

	review := &models.ReviewCancelRequestReq{
		RequestID:   request.ID,
		Decision:    models.CancelApproved,
		ReviewNotes: "non-payment confirmed against the ledger",
		ReviewedBy:  "provider-admin-01",
	}
	reviewed, err := fx.service.ReviewCancelRequest(context.Background(), review)
	require.NoError(t, err)

	assert.Equal(t, models.CancelApproved, reviewed.Status)
	require.NotNil(t, reviewed.CompensateAmount)
	assert.Equal(t, int64(8_000_000), *reviewed.CompensateAmount)

	assert.Equal(t, models.PolicyCancelled, fx.policy.Status)
	assert.Nil(t, fx.policy.OpenCancelRequestID)
}

func TestReviewCancelRequest_DenialMarksPolicyDisputed(t *testing.T) {
	fx := newCancelFixture()
	request := fx.openRequest(t)

	review := &models.ReviewCancelRequestReq{
		RequestID:   request.ID,
		Decision:    models.CancelDenied,
		ReviewNotes: "installment arrived late but arrived",
		ReviewedBy:  "provider-admin-01",
	}
	reviewed, err := fx.service.ReviewCancelRequest(context.Background(), review)
	require.NoError(t, err)

	assert.Equal(t, models.CancelDenied, reviewed.Status)
	assert.Nil(t, reviewed.CompensateAmount)

	// The denial itself is contested: the policy sits in dispute and the
	// open slot stays occupied until the dispute flow resolves it.
	assert.Equal(t, models.PolicyDispute, fx.policy.Status)
	require.NotNil(t, fx.policy.OpenCancelRequestID)
	assert.Equal(t, request.ID, *fx.policy.OpenCancelRequestID)
}

func TestReviewCancelRequest_CompensationZeroWhenPremiumUnpaid(t *testing.T) {
	fx := newCancelFixture()
	fx.policy.PremiumPaidByFarmer = false
	request := fx.openRequest(t)

	review := &models.ReviewCancelRequestReq{
		RequestID:   request.ID,
		Decision:    models.CancelApproved,
		ReviewNotes: "premium never collected",
		ReviewedBy:  "provider-admin-01",
	}
	reviewed, err := fx.service.ReviewCancelRequest(context.Background(), review)
	require.NoError(t, err)

	require.NotNil(t, reviewed.CompensateAmount)
	assert.Equal(t, int64(0), *reviewed.CompensateAmount)
}

func TestReviewCancelRequest_OnlyPendingReviewable(t *testing.T) {
	fx := newCancelFixture()
	denied := fx.deniedRequest(t)

	review := &models.ReviewCancelRequestReq{
		RequestID:   denied.ID,
		Decision:    models.CancelApproved,
		ReviewNotes: "second thoughts",
		ReviewedBy:  "provider-admin-02",
	}
	_, err := fx.service.ReviewCancelRequest(context.Background(), review)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}

// ============================================================================
// DISPUTE AND LITIGATION
// ============================================================================

func TestOpenDispute_EscalatesDeniedRequest(t *testing.T) {
	fx := newCancelFixture()
	denied := fx.deniedRequest(t)

	disputed, err := fx.service.OpenDispute(context.Background(), denied.ID, "farmer-001")
	require.NoError(t, err)
	assert.Equal(t, models.CancelDispute, disputed.Status)
	assert.Equal(t, models.PolicyDispute, fx.policy.Status)
}

func TestOpenDispute_RequiresDeniedRequest(t *testing.T) {
	fx := newCancelFixture()
	open := fx.openRequest(t)

	_, err := fx.service.OpenDispute(context.Background(), open.ID, "farmer-001")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}

func TestResolveDispute_LitigationApprovedCancelsPolicy(t *testing.T) {
	fx := newCancelFixture()
	denied := fx.deniedRequest(t)
	disputed, err := fx.service.OpenDispute(context.Background(), denied.ID, "farmer-001")
	require.NoError(t, err)

	resolve := &models.ResolveDisputeReq{
		RequestID:       disputed.ID,
		FinalDecision:   models.CancelLitigationApproved,
		ResolutionNotes: "arbitration upheld the cancellation",
		ResolvedBy:      "litigation-officer-01",
	}
	resolved, err := fx.service.ResolveDispute(context.Background(), resolve)
	require.NoError(t, err)

	assert.Equal(t, models.CancelLitigationApproved, resolved.Status)
	assert.True(t, resolved.IsTerminal())
	require.NotNil(t, resolved.CompensateAmount)
	assert.Equal(t, int64(8_000_000), *resolved.CompensateAmount)

	assert.Equal(t, models.PolicyCancelled, fx.policy.Status)
	assert.Nil(t, fx.policy.OpenCancelRequestID)
}

func TestResolveDispute_LitigationDeniedRestoresPolicy(t *testing.T) {
	fx := newCancelFixture()
	denied := fx.deniedRequest(t)
	disputed, err := fx.service.OpenDispute(context.Background(), denied.ID, "farmer-001")
	require.NoError(t, err)

	resolve := &models.ResolveDisputeReq{
		RequestID:       disputed.ID,
		FinalDecision:   models.CancelLitigationDenied,
		ResolutionNotes: "arbitration sided with the denial",
		ResolvedBy:      "litigation-officer-01",
	}
	resolved, err := fx.service.ResolveDispute(context.Background(), resolve)
	require.NoError(t, err)

	assert.Equal(t, models.CancelLitigationDenied, resolved.Status)
	assert.True(t, resolved.IsTerminal())
	assert.Nil(t, resolved.CompensateAmount)

	assert.Equal(t, models.PolicyActive, fx.policy.Status)
	assert.Nil(t, fx.policy.OpenCancelRequestID)
}

func TestResolveDispute_RequiresDisputedRequest(t *testing.T) {
	fx := newCancelFixture()
	denied := fx.deniedRequest(t)

	resolve := &models.ResolveDisputeReq{
		RequestID:       denied.ID,
		FinalDecision:   models.CancelLitigationApproved,
		ResolutionNotes: "skipping the dispute step",
		ResolvedBy:      "litigation-officer-01",
	}
	_, err := fx.service.ResolveDispute(context.Background(), resolve)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}
