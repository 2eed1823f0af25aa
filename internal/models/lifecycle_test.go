package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimIsTerminal(t *testing.T) {
	tests := []struct {
		status   ClaimStatus
		terminal bool
	}{
		{ClaimGenerated, false},
		{ClaimPendingPartnerReview, false},
		{ClaimApproved, true},
		{ClaimRejected, true},
		{ClaimPaid, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			claim := Claim{Status: tt.status}
			assert.Equal(t, tt.terminal, claim.IsTerminal())
		})
	}
}

func TestCancelRequestIsTerminal(t *testing.T) {
	tests := []struct {
		status   CancelRequestStatus
		terminal bool
	}{
		{CancelPendingReview, false},
		{CancelApproved, true},
		// Denial opens the dispute window, so it is not terminal
		{CancelDenied, false},
		{CancelDispute, false},
		{CancelLitigationApproved, true},
		{CancelLitigationDenied, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			request := CancelRequest{Status: tt.status}
			assert.Equal(t, tt.terminal, request.IsTerminal())
		})
	}
}

func TestIsValidClaimRejectionType(t *testing.T) {
	valid := []ClaimRejectionType{
		RejectionClaimDataIncorrect, RejectionTriggerNotMet, RejectionPolicyNotActive,
		RejectionLocationMismatch, RejectionDuplicateClaim, RejectionSuspectedFraud,
		RejectionPolicyExclusion, RejectionOther,
	}
	for _, rt := range valid {
		assert.True(t, IsValidClaimRejectionType(rt), "%s should be valid", rt)
	}

	assert.False(t, IsValidClaimRejectionType("weather_too_nice"))
	assert.False(t, IsValidClaimRejectionType(""))
}

func TestIsValidCancelRequestType(t *testing.T) {
	valid := []CancelRequestType{
		CancelContractViolation, CancelPolicyholderRequest, CancelNonPayment,
		CancelRegulatoryChange, CancelOther,
	}
	for _, ct := range valid {
		assert.True(t, IsValidCancelRequestType(ct), "%s should be valid", ct)
	}

	assert.False(t, IsValidCancelRequestType("changed_my_mind"))
	assert.False(t, IsValidCancelRequestType(""))
}
