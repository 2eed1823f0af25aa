package services

import (
	"log/slog"
	"math"

	"policy-engine/internal/models"
)

// PayoutResult holds the calculated payout components for a claim, all in
// integer minor units of the coverage currency.
type PayoutResult struct {
	FixPayout          int64
	ThresholdPayout    int64
	TotalPayout        int64
	OverThresholdValue *float64
}

// PayoutCalculator computes claim amounts from the product terms and the
// triggered conditions. Pure math: no storage access.
type PayoutCalculator struct{}

func NewPayoutCalculator() *PayoutCalculator {
	return &PayoutCalculator{}
}

// CalculateClaimPayouts computes the fixed and threshold-proportional
// components of a claim.
//
// The fixed component is the product's fix payout amount, scaled by farm
// area when the product pays per hectare. The proportional component scales
// the coverage amount by the worst over-threshold severity among the
// triggered conditions. The sum is clamped to the payout cap and to the
// coverage amount; a breached cap is logged but never fails the claim.
func (c *PayoutCalculator) CalculateClaimPayouts(
	policy *models.RegisteredPolicy,
	basePolicy *models.BasePolicy,
	triggeredConditions []TriggeredCondition,
) PayoutResult {
	var result PayoutResult

	result.FixPayout = basePolicy.FixPayoutAmount
	if basePolicy.IsPayoutPerHectare {
		result.FixPayout = int64(math.Round(float64(basePolicy.FixPayoutAmount) * policy.AreaHectares))
	}

	// Worst severity among satisfied conditions drives the proportional
	// component. Early warnings never pay.
	maxOverThreshold := 0.0
	haveOverThreshold := false
	for _, tc := range triggeredConditions {
		if tc.IsEarlyWarning {
			continue
		}
		if !haveOverThreshold || tc.OverThreshold > maxOverThreshold {
			maxOverThreshold = tc.OverThreshold
			haveOverThreshold = true
		}
	}

	if haveOverThreshold {
		result.OverThresholdValue = &maxOverThreshold
		thresholdPayout := basePolicy.PayoutBaseRate * float64(policy.CoverageAmount) *
			maxOverThreshold * basePolicy.OverThresholdMultiplier
		if thresholdPayout > 0 {
			result.ThresholdPayout = int64(math.Round(thresholdPayout))
		}
	}

	result.TotalPayout = result.FixPayout + result.ThresholdPayout

	if basePolicy.PayoutCap != nil && result.TotalPayout > *basePolicy.PayoutCap {
		slog.Warn("Payout capped",
			"policy_id", policy.ID,
			"calculated_total", result.TotalPayout,
			"payout_cap", *basePolicy.PayoutCap)
		result.TotalPayout = *basePolicy.PayoutCap
	}

	if result.TotalPayout > policy.CoverageAmount {
		slog.Warn("Payout limited to coverage amount",
			"policy_id", policy.ID,
			"calculated_total", result.TotalPayout,
			"coverage_amount", policy.CoverageAmount)
		result.TotalPayout = policy.CoverageAmount
	}

	return result
}
