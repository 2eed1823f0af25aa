package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"policy-engine/internal/config"
	"policy-engine/internal/database/redis"
	"policy-engine/internal/event"
	"policy-engine/internal/models"
	"policy-engine/internal/repository"
	"policy-engine/internal/utils"

	"github.com/google/uuid"
)

// conditionOutcome is the three-valued result of one condition evaluation.
// Missing data yields outcomeUnknown, which is neither met nor failed.
type conditionOutcome int

const (
	outcomeNotMet conditionOutcome = iota
	outcomeMet
	outcomeUnknown
)

// TriggeredCondition represents a condition that has been satisfied
type TriggeredCondition struct {
	ConditionID           uuid.UUID
	ParameterName         models.DataSourceParameterName
	MeasuredValue         float64
	ThresholdValue        float64
	Operator              models.ThresholdOperator
	Timestamp             int64
	OverThreshold         float64
	BaselineValue         *float64
	ConsecutiveDays       int
	IsEarlyWarning        bool
	EarlyWarningThreshold *float64
}

// TriggerEvaluationService evaluates registered policies against their
// monitoring data and generates claims when triggers fire.
type TriggerEvaluationService struct {
	basePolicyRepo       *repository.BasePolicyRepository
	registeredPolicyRepo *repository.RegisteredPolicyRepository
	dataSourceRepo       *repository.DataSourceRepository
	monitoringRepo       *repository.MonitoringDataRepository
	breachRunRepo        *repository.BreachRunRepository
	claimRepo            *repository.ClaimRepository
	evalLogRepo          *repository.EvaluationLogRepository
	payoutCalc           *PayoutCalculator
	redisClient          *redis.RedisClient
	publisher            *event.ClaimEventPublisher
	engineCfg            config.EngineConfig
}

// NewTriggerEvaluationService creates a new trigger evaluation service
func NewTriggerEvaluationService(
	basePolicyRepo *repository.BasePolicyRepository,
	registeredPolicyRepo *repository.RegisteredPolicyRepository,
	dataSourceRepo *repository.DataSourceRepository,
	monitoringRepo *repository.MonitoringDataRepository,
	breachRunRepo *repository.BreachRunRepository,
	claimRepo *repository.ClaimRepository,
	evalLogRepo *repository.EvaluationLogRepository,
	payoutCalc *PayoutCalculator,
	redisClient *redis.RedisClient,
	publisher *event.ClaimEventPublisher,
	engineCfg config.EngineConfig,
) *TriggerEvaluationService {
	return &TriggerEvaluationService{
		basePolicyRepo:       basePolicyRepo,
		registeredPolicyRepo: registeredPolicyRepo,
		dataSourceRepo:       dataSourceRepo,
		monitoringRepo:       monitoringRepo,
		breachRunRepo:        breachRunRepo,
		claimRepo:            claimRepo,
		evalLogRepo:          evalLogRepo,
		payoutCalc:           payoutCalc,
		redisClient:          redisClient,
		publisher:            publisher,
		engineCfg:            engineCfg,
	}
}

// EvaluateActivePolicies runs one evaluation cycle over every policy inside
// its coverage window. Per-policy failures are logged and skipped so one bad
// policy cannot stall the cycle.
func (s *TriggerEvaluationService) EvaluateActivePolicies(ctx context.Context) error {
	now := time.Now()

	policies, err := s.registeredPolicyRepo.GetActivePolicies(ctx, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to list active policies: %w", err)
	}

	slog.Info("Starting evaluation cycle", "policy_count", len(policies))

	evaluated := 0
	for _, policy := range policies {
		if err := s.EvaluatePolicy(ctx, policy.ID); err != nil {
			slog.Error("Policy evaluation failed",
				"policy_id", policy.ID,
				"policy_number", policy.PolicyNumber,
				"error", err)
			continue
		}
		evaluated++
	}

	slog.Info("Evaluation cycle finished", "evaluated", evaluated, "total", len(policies))
	return nil
}

// EvaluatePolicy evaluates one registered policy under its per-policy lock.
// Holding the lock keeps two instances from evaluating the same policy
// concurrently and double-counting consecutive runs.
func (s *TriggerEvaluationService) EvaluatePolicy(ctx context.Context, policyID uuid.UUID) error {
	acquired, err := s.redisClient.AcquireEvaluationLock(ctx, policyID, s.engineCfg.EvaluationLockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire evaluation lock: %w", err)
	}
	if !acquired {
		slog.Info("Skipping evaluation - another instance holds the lock", "policy_id", policyID)
		return nil
	}
	defer func() {
		if err := s.redisClient.ReleaseEvaluationLock(context.WithoutCancel(ctx), policyID); err != nil {
			slog.Error("Failed to release evaluation lock", "policy_id", policyID, "error", err)
		}
	}()

	policy, err := s.registeredPolicyRepo.GetByID(ctx, policyID)
	if err != nil {
		return fmt.Errorf("failed to get registered policy: %w", err)
	}

	if policy.Status != models.PolicyActive {
		slog.Info("Skipping evaluation - policy not active",
			"policy_id", policyID, "status", policy.Status)
		return nil
	}

	trigger, err := s.basePolicyRepo.GetTriggerByBasePolicyID(ctx, policy.BasePolicyID)
	if err != nil {
		return fmt.Errorf("failed to get trigger: %w", err)
	}

	now := time.Now()

	// Blackout periods suppress the whole evaluation, not just payout
	if isInBlackoutPeriod(trigger.BlackoutPeriods, now) {
		slog.Info("Skipping evaluation during blackout period",
			"policy_id", policyID, "trigger_id", trigger.ID)
		return nil
	}

	conditions, err := s.basePolicyRepo.GetConditionsByTriggerID(ctx, trigger.ID)
	if err != nil {
		return fmt.Errorf("failed to get trigger conditions: %w", err)
	}
	if len(conditions) == 0 {
		slog.Warn("Trigger has no conditions", "trigger_id", trigger.ID)
		return nil
	}

	var outcomes []conditionOutcome
	var triggered []TriggeredCondition
	conditionsMet := 0
	earlyWarning := false

	for _, cond := range conditions {
		outcome, tc, err := s.evaluateCondition(ctx, policy, &cond, now)
		if err != nil {
			return fmt.Errorf("failed to evaluate condition %s: %w", cond.ID, err)
		}

		outcomes = append(outcomes, outcome)
		if outcome == outcomeMet {
			conditionsMet++
		}
		if tc != nil {
			if tc.IsEarlyWarning {
				earlyWarning = true
			}
			triggered = append(triggered, *tc)
		}
	}

	fired := evaluateLogicalOperator(trigger.LogicalOperator, outcomes)

	var claim *models.Claim
	if fired {
		claim, err = s.generateClaimFromTrigger(ctx, policy, trigger.ID, triggered, now)
		if err != nil {
			return fmt.Errorf("failed to generate claim: %w", err)
		}
	} else {
		for _, tc := range triggered {
			if tc.IsEarlyWarning {
				slog.Info("Early warning threshold breached",
					"policy_id", policyID,
					"condition_id", tc.ConditionID,
					"parameter", tc.ParameterName,
					"measured_value", tc.MeasuredValue,
					"early_warning_threshold", tc.EarlyWarningThreshold)
			}
		}
	}

	evalLog := &models.TriggerEvaluationLog{
		ID:                  uuid.New(),
		RegisteredPolicyID:  policy.ID,
		BasePolicyID:        policy.BasePolicyID,
		FarmID:              policy.FarmID,
		BasePolicyTriggerID: trigger.ID,
		EvaluationTimestamp: now.Unix(),
		EvaluationResult:    fired,
		EarlyWarning:        earlyWarning,
		ConditionsEvaluated: len(conditions),
		ConditionsMet:       conditionsMet,
		ConditionDetails:    buildEvidenceSummary(triggered, now),
		ClaimGenerated:      claim != nil,
	}
	if claim != nil {
		evalLog.ClaimID = &claim.ID
	}

	if err := s.evalLogRepo.Create(ctx, evalLog); err != nil {
		slog.Error("Failed to record evaluation log", "policy_id", policyID, "error", err)
	}

	return nil
}

// evaluateCondition evaluates a single condition against its monitoring
// series. Missing data yields outcomeUnknown and leaves the persistent
// consecutive counter untouched.
func (s *TriggerEvaluationService) evaluateCondition(
	ctx context.Context,
	policy *models.RegisteredPolicy,
	cond *models.BasePolicyTriggerCondition,
	now time.Time,
) (conditionOutcome, *TriggeredCondition, error) {
	source, err := s.dataSourceRepo.GetByID(ctx, cond.DataSourceID)
	if err != nil {
		return outcomeUnknown, nil, fmt.Errorf("failed to get data source: %w", err)
	}

	// Pull enough history to cover both the aggregation window and any
	// baseline window behind it.
	lookbackDays := cond.AggregationWindowDays
	if cond.BaselineWindowDays != nil {
		lookbackDays += *cond.BaselineWindowDays
	}
	if cond.ConsecutiveRequired != nil && *cond.ConsecutiveRequired > lookbackDays {
		lookbackDays = *cond.ConsecutiveRequired
	}
	from := now.AddDate(0, 0, -lookbackDays).Unix()

	series, err := s.monitoringRepo.GetSeries(ctx, policy.FarmID, source.ParameterName, from, now.Unix())
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			slog.Warn("No telemetry for condition parameter",
				"policy_id", policy.ID,
				"condition_id", cond.ID,
				"parameter", source.ParameterName)
			return outcomeUnknown, nil, nil
		}
		return outcomeUnknown, nil, err
	}

	aggregatedValue, err := applyAggregation(series, cond.AggregationFunction, cond.AggregationWindowDays, now)
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			return outcomeUnknown, nil, nil
		}
		return outcomeUnknown, nil, err
	}

	var baselineValue *float64
	if cond.BaselineWindowDays != nil && cond.BaselineFunction != nil {
		baseline, err := calculateBaseline(series, *cond.BaselineWindowDays, *cond.BaselineFunction, cond.AggregationWindowDays, now)
		if err != nil {
			if errors.Is(err, models.ErrDataUnavailable) {
				return outcomeUnknown, nil, nil
			}
			return outcomeUnknown, nil, err
		}
		baselineValue = &baseline

		if cond.ThresholdOperator == models.ThresholdChangeGT || cond.ThresholdOperator == models.ThresholdChangeLT {
			aggregatedValue = aggregatedValue - baseline
		}
	}

	isSatisfied := checkThreshold(aggregatedValue, cond.ThresholdValue, cond.ThresholdOperator)

	// Early warning is advisory only: it never feeds the logical operator
	// and never produces a payout.
	isEarlyWarning := false
	if !isSatisfied && cond.EarlyWarningThreshold != nil {
		isEarlyWarning = checkThreshold(aggregatedValue, *cond.EarlyWarningThreshold, cond.ThresholdOperator)
	}

	consecutiveDays := 0
	if cond.ConsecutiveRequired != nil && *cond.ConsecutiveRequired > 1 {
		if isSatisfied {
			consecutiveDays, err = s.breachRunRepo.Increment(ctx, policy.ID, cond.ID, now.Unix())
			if err != nil {
				return outcomeUnknown, nil, err
			}
			if consecutiveDays < *cond.ConsecutiveRequired {
				slog.Info("Consecutive requirement not yet met",
					"condition_id", cond.ID,
					"run_length", consecutiveDays,
					"required", *cond.ConsecutiveRequired)
				isSatisfied = false
			}
		} else {
			if err := s.breachRunRepo.Reset(ctx, policy.ID, cond.ID, now.Unix()); err != nil {
				return outcomeUnknown, nil, err
			}
		}
	}

	var tc *TriggeredCondition
	if isSatisfied || isEarlyWarning {
		timestamp := now.Unix()
		if len(series) > 0 {
			timestamp = series[len(series)-1].MeasurementTimestamp
		}
		tc = &TriggeredCondition{
			ConditionID:           cond.ID,
			ParameterName:         source.ParameterName,
			MeasuredValue:         aggregatedValue,
			ThresholdValue:        cond.ThresholdValue,
			Operator:              cond.ThresholdOperator,
			Timestamp:             timestamp,
			OverThreshold:         overThresholdSeverity(aggregatedValue, cond.ThresholdValue, cond.ThresholdOperator),
			BaselineValue:         baselineValue,
			ConsecutiveDays:       consecutiveDays,
			IsEarlyWarning:        isEarlyWarning && !isSatisfied,
			EarlyWarningThreshold: cond.EarlyWarningThreshold,
		}
	}

	if isSatisfied {
		return outcomeMet, tc, nil
	}
	return outcomeNotMet, tc, nil
}

// generateClaimFromTrigger creates a claim when trigger conditions are satisfied
func (s *TriggerEvaluationService) generateClaimFromTrigger(
	ctx context.Context,
	policy *models.RegisteredPolicy,
	triggerID uuid.UUID,
	triggeredConditions []TriggeredCondition,
	now time.Time,
) (*models.Claim, error) {
	slog.Info("Generating claim from trigger",
		"policy_id", policy.ID,
		"trigger_id", triggerID,
		"conditions_count", len(triggeredConditions))

	// Duplicate suppression: one claim per (policy, trigger) per window
	since := now.Add(-s.engineCfg.DuplicateClaimWindow).Unix()
	recentClaim, err := s.claimRepo.GetRecentByTrigger(ctx, policy.ID, triggerID, since)
	if err != nil {
		slog.Warn("Failed to check for recent claims", "error", err)
		// Continue anyway - better to potentially duplicate than miss a claim
	}
	if recentClaim != nil {
		slog.Info("Skipping claim generation - recent claim exists",
			"policy_id", policy.ID,
			"trigger_id", triggerID,
			"existing_claim_id", recentClaim.ID,
			"existing_claim_number", recentClaim.ClaimNumber)
		return recentClaim, nil
	}

	basePolicy, err := s.basePolicyRepo.GetByID(ctx, policy.BasePolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get base policy: %w", err)
	}

	result := s.payoutCalc.CalculateClaimPayouts(policy, basePolicy, triggeredConditions)

	claimNumber := "CLM" + utils.GenerateRandomStringWithLength(9)

	reviewWindowDays := basePolicy.ReviewWindowDays
	if reviewWindowDays <= 0 {
		reviewWindowDays = s.engineCfg.DefaultReviewWindowDays
	}
	autoApprovalDeadline := now.AddDate(0, 0, reviewWindowDays).Unix()

	claim := &models.Claim{
		ID:                        uuid.New(),
		ClaimNumber:               claimNumber,
		RegisteredPolicyID:        policy.ID,
		BasePolicyID:              policy.BasePolicyID,
		FarmID:                    policy.FarmID,
		BasePolicyTriggerID:       triggerID,
		TriggerTimestamp:          now.Unix(),
		OverThresholdValue:        result.OverThresholdValue,
		CalculatedFixPayout:       result.FixPayout,
		CalculatedThresholdPayout: result.ThresholdPayout,
		ClaimAmount:               result.TotalPayout,
		Status:                    models.ClaimPendingPartnerReview,
		AutoGenerated:             true,
		AutoApprovalDeadline:      &autoApprovalDeadline,
		AutoApproved:              false,
		EvidenceSummary:           buildEvidenceSummary(triggeredConditions, now),
		Revision:                  0,
	}

	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	slog.Info("Claim generated and saved",
		"claim_id", claim.ID,
		"claim_number", claim.ClaimNumber,
		"fix_payout", result.FixPayout,
		"threshold_payout", result.ThresholdPayout,
		"total_payout", result.TotalPayout)

	statusEvent := event.ClaimStatusChangedEvent{
		ClaimID:            claim.ID,
		ClaimNumber:        claim.ClaimNumber,
		RegisteredPolicyID: claim.RegisteredPolicyID,
		FarmID:             claim.FarmID,
		OldStatus:          models.ClaimGenerated,
		NewStatus:          claim.Status,
		ClaimAmount:        claim.ClaimAmount,
		Timestamp:          now.Unix(),
	}
	if err := s.publisher.PublishClaimStatusChanged(ctx, statusEvent); err != nil {
		slog.Error("Failed to publish claim generated event", "claim_id", claim.ID, "error", err)
	}

	return claim, nil
}

// buildEvidenceSummary creates a JSON summary of triggered conditions for the claim
func buildEvidenceSummary(triggeredConditions []TriggeredCondition, now time.Time) utils.JSONMap {
	evidence := utils.JSONMap{
		"triggered_at":      now.Unix(),
		"conditions_count":  len(triggeredConditions),
		"generation_method": "automatic",
	}

	conditions := make([]map[string]interface{}, 0, len(triggeredConditions))
	for _, tc := range triggeredConditions {
		condEvidence := map[string]interface{}{
			"condition_id":     tc.ConditionID.String(),
			"parameter":        string(tc.ParameterName),
			"measured_value":   tc.MeasuredValue,
			"threshold_value":  tc.ThresholdValue,
			"operator":         string(tc.Operator),
			"timestamp":        tc.Timestamp,
			"over_threshold":   tc.OverThreshold,
			"is_early_warning": tc.IsEarlyWarning,
		}

		if tc.BaselineValue != nil {
			condEvidence["baseline_value"] = *tc.BaselineValue
		}

		if tc.ConsecutiveDays > 0 {
			condEvidence["consecutive_days"] = tc.ConsecutiveDays
		}

		if tc.EarlyWarningThreshold != nil {
			condEvidence["early_warning_threshold"] = *tc.EarlyWarningThreshold
		}

		conditions = append(conditions, condEvidence)
	}

	evidence["conditions"] = conditions

	return evidence
}

// applyAggregation applies the aggregation function over the samples inside
// the window. Returns ErrDataUnavailable when the window holds no samples,
// so callers can treat the cycle as unknown instead of comparing against a
// fabricated zero.
func applyAggregation(
	data []models.FarmMonitoringData,
	aggFunc models.AggregationFunction,
	windowDays int,
	now time.Time,
) (float64, error) {
	cutoffTime := now.AddDate(0, 0, -windowDays).Unix()
	var windowData []float64
	for _, d := range data {
		if d.MeasurementTimestamp >= cutoffTime {
			windowData = append(windowData, d.MeasuredValue)
		}
	}

	if len(windowData) == 0 {
		return 0, fmt.Errorf("no samples in %d-day window: %w", windowDays, models.ErrDataUnavailable)
	}

	switch aggFunc {
	case models.AggregationSum:
		var sum float64
		for _, v := range windowData {
			sum += v
		}
		return sum, nil
	case models.AggregationAvg:
		var sum float64
		for _, v := range windowData {
			sum += v
		}
		return sum / float64(len(windowData)), nil
	case models.AggregationMin:
		minVal := windowData[0]
		for _, v := range windowData[1:] {
			if v < minVal {
				minVal = v
			}
		}
		return minVal, nil
	case models.AggregationMax:
		maxVal := windowData[0]
		for _, v := range windowData[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		return maxVal, nil
	case models.AggregationChange:
		if len(windowData) < 2 {
			return 0, fmt.Errorf("change aggregation needs at least 2 samples: %w", models.ErrDataUnavailable)
		}
		return windowData[len(windowData)-1] - windowData[0], nil
	default:
		return windowData[len(windowData)-1], nil
	}
}

// calculateBaseline aggregates the window that sits immediately before the
// aggregation window. With a 7-day aggregation and a 30-day baseline, the
// baseline covers days -37..-7.
func calculateBaseline(
	data []models.FarmMonitoringData,
	baselineWindowDays int,
	baselineFunction models.AggregationFunction,
	aggregationWindowDays int,
	now time.Time,
) (float64, error) {
	aggregationCutoff := now.AddDate(0, 0, -aggregationWindowDays).Unix()
	baselineCutoff := now.AddDate(0, 0, -(aggregationWindowDays + baselineWindowDays)).Unix()

	var baselineData []float64
	for _, d := range data {
		if d.MeasurementTimestamp >= baselineCutoff && d.MeasurementTimestamp < aggregationCutoff {
			baselineData = append(baselineData, d.MeasuredValue)
		}
	}

	if len(baselineData) == 0 {
		return 0, fmt.Errorf("no samples in baseline window: %w", models.ErrDataUnavailable)
	}

	switch baselineFunction {
	case models.AggregationSum:
		var sum float64
		for _, v := range baselineData {
			sum += v
		}
		return sum, nil
	case models.AggregationMin:
		minVal := baselineData[0]
		for _, v := range baselineData[1:] {
			if v < minVal {
				minVal = v
			}
		}
		return minVal, nil
	case models.AggregationMax:
		maxVal := baselineData[0]
		for _, v := range baselineData[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		return maxVal, nil
	default:
		// avg, and the default for anything unrecognized
		var sum float64
		for _, v := range baselineData {
			sum += v
		}
		return sum / float64(len(baselineData)), nil
	}
}

// checkThreshold checks if the measured value satisfies the threshold condition
func checkThreshold(
	measuredValue float64,
	thresholdValue float64,
	operator models.ThresholdOperator,
) bool {
	switch operator {
	case models.ThresholdLT:
		return measuredValue < thresholdValue
	case models.ThresholdGT:
		return measuredValue > thresholdValue
	case models.ThresholdLTE:
		return measuredValue <= thresholdValue
	case models.ThresholdGTE:
		return measuredValue >= thresholdValue
	case models.ThresholdEQ:
		return measuredValue == thresholdValue
	case models.ThresholdNE:
		return measuredValue != thresholdValue
	case models.ThresholdChangeGT:
		return measuredValue > thresholdValue
	case models.ThresholdChangeLT:
		return measuredValue < thresholdValue
	default:
		return false
	}
}

// overThresholdSeverity measures how far past the threshold the value landed,
// relative to the threshold and adjusted for direction, so a satisfied
// condition always scores >= 0 regardless of operator. A zero threshold
// falls back to the raw direction-adjusted difference.
func overThresholdSeverity(
	measuredValue float64,
	thresholdValue float64,
	operator models.ThresholdOperator,
) float64 {
	var diff float64
	switch operator {
	case models.ThresholdGT, models.ThresholdGTE, models.ThresholdChangeGT:
		diff = measuredValue - thresholdValue
	case models.ThresholdLT, models.ThresholdLTE, models.ThresholdChangeLT:
		diff = thresholdValue - measuredValue
	case models.ThresholdEQ:
		return 0
	case models.ThresholdNE:
		diff = math.Abs(measuredValue - thresholdValue)
	default:
		return 0
	}

	if thresholdValue == 0 {
		return diff
	}
	return diff / math.Abs(thresholdValue)
}

// evaluateLogicalOperator combines condition outcomes. An unknown outcome
// can never fire a trigger: under AND the trigger fires only when every
// outcome is definitely met; under OR a single definite met suffices.
func evaluateLogicalOperator(operator models.LogicalOperator, outcomes []conditionOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}

	switch operator {
	case models.LogicalAND:
		for _, o := range outcomes {
			if o != outcomeMet {
				return false
			}
		}
		return true
	case models.LogicalOR:
		for _, o := range outcomes {
			if o == outcomeMet {
				return true
			}
		}
		return false
	default:
		return outcomes[0] == outcomeMet
	}
}

// isInBlackoutPeriod checks if current time falls within any blackout period
func isInBlackoutPeriod(blackoutPeriods utils.JSONMap, currentTime time.Time) bool {
	if blackoutPeriods == nil {
		return false
	}

	// Expected format: {"periods": [{"start": "MM-DD", "end": "MM-DD"}, ...]}
	periods, ok := blackoutPeriods["periods"].([]interface{})
	if !ok {
		return false
	}

	currentMonthDay := currentTime.Format("01-02")

	for _, p := range periods {
		period, ok := p.(map[string]interface{})
		if !ok {
			continue
		}

		start, startOk := period["start"].(string)
		end, endOk := period["end"].(string)
		if !startOk || !endOk {
			continue
		}

		if start <= end {
			// Normal range (e.g., 03-01 to 05-31)
			if currentMonthDay >= start && currentMonthDay <= end {
				return true
			}
		} else {
			// Wrapping range (e.g., 11-01 to 02-28)
			if currentMonthDay >= start || currentMonthDay <= end {
				return true
			}
		}
	}

	return false
}
