package services

import (
	"testing"
	"time"

	"policy-engine/internal/models"
	"policy-engine/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func createTestMonitoringData(
	farmID uuid.UUID,
	dataSourceID uuid.UUID,
	paramName models.DataSourceParameterName,
	timestamp int64,
	value float64,
) models.FarmMonitoringData {
	unit := "index"
	return models.FarmMonitoringData{
		ID:                   uuid.New(),
		FarmID:               farmID,
		DataSourceID:         dataSourceID,
		ParameterName:        paramName,
		MeasuredValue:        value,
		MeasurementTimestamp: timestamp,
		Unit:                 &unit,
	}
}

func rainSeries(values map[int]float64) []models.FarmMonitoringData {
	farmID := uuid.New()
	dataSourceID := uuid.New()
	now := time.Now()
	var series []models.FarmMonitoringData
	for daysAgo, value := range values {
		ts := now.AddDate(0, 0, -daysAgo).Unix()
		series = append(series, createTestMonitoringData(farmID, dataSourceID, models.RainFall, ts, value))
	}
	return series
}

// ============================================================================
// TEST SUITE 1: AGGREGATION FUNCTIONS
// ============================================================================

func TestApplyAggregation_Sum(t *testing.T) {
	data := rainSeries(map[int]float64{5: 10.0, 4: 15.0, 3: 20.0, 2: 25.0})

	result, err := applyAggregation(data, models.AggregationSum, 7, time.Now())

	assert.NoError(t, err)
	assert.Equal(t, 70.0, result, "Sum should be 10+15+20+25=70")
}

func TestApplyAggregation_Average(t *testing.T) {
	data := rainSeries(map[int]float64{5: 0.2, 4: 0.4, 3: 0.6, 2: 0.8})

	result, err := applyAggregation(data, models.AggregationAvg, 7, time.Now())

	assert.NoError(t, err)
	assert.InDelta(t, 0.5, result, 0.01)
}

func TestApplyAggregation_Min(t *testing.T) {
	data := rainSeries(map[int]float64{5: 18.0, 4: 12.0, 3: 30.0})

	result, err := applyAggregation(data, models.AggregationMin, 7, time.Now())

	assert.NoError(t, err)
	assert.Equal(t, 12.0, result)
}

func TestApplyAggregation_Max(t *testing.T) {
	data := rainSeries(map[int]float64{5: 18.0, 4: 12.0, 3: 30.0})

	result, err := applyAggregation(data, models.AggregationMax, 7, time.Now())

	assert.NoError(t, err)
	assert.Equal(t, 30.0, result)
}

func TestApplyAggregation_Change(t *testing.T) {
	farmID := uuid.New()
	dataSourceID := uuid.New()
	now := time.Now()

	// Oldest first: change is last - first inside the window
	data := []models.FarmMonitoringData{
		createTestMonitoringData(farmID, dataSourceID, models.NDVI, now.AddDate(0, 0, -6).Unix(), 0.8),
		createTestMonitoringData(farmID, dataSourceID, models.NDVI, now.AddDate(0, 0, -3).Unix(), 0.6),
		createTestMonitoringData(farmID, dataSourceID, models.NDVI, now.AddDate(0, 0, -1).Unix(), 0.5),
	}

	result, err := applyAggregation(data, models.AggregationChange, 7, now)

	assert.NoError(t, err)
	assert.InDelta(t, -0.3, result, 0.0001)
}

func TestApplyAggregation_EmptyWindowReturnsDataUnavailable(t *testing.T) {
	// Samples exist but all fall outside the 7-day window
	data := rainSeries(map[int]float64{20: 10.0, 15: 12.0})

	_, err := applyAggregation(data, models.AggregationSum, 7, time.Now())

	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestApplyAggregation_NoSamplesReturnsDataUnavailable(t *testing.T) {
	_, err := applyAggregation(nil, models.AggregationAvg, 7, time.Now())

	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestApplyAggregation_ChangeNeedsTwoSamples(t *testing.T) {
	data := rainSeries(map[int]float64{2: 10.0})

	_, err := applyAggregation(data, models.AggregationChange, 7, time.Now())

	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

// ============================================================================
// TEST SUITE 2: BASELINE
// ============================================================================

func TestCalculateBaseline_AvgOverWindowBeforeAggregation(t *testing.T) {
	// Aggregation window 7 days, baseline 14 days before that (-21..-7)
	data := rainSeries(map[int]float64{
		2:  50.0, // inside aggregation window, excluded from baseline
		10: 20.0,
		14: 30.0,
		18: 10.0,
		25: 99.0, // before the baseline window, excluded
	})

	baseline, err := calculateBaseline(data, 14, models.AggregationAvg, 7, time.Now())

	assert.NoError(t, err)
	assert.InDelta(t, 20.0, baseline, 0.01, "Baseline avg should be (20+30+10)/3")
}

func TestCalculateBaseline_EmptyWindowReturnsDataUnavailable(t *testing.T) {
	data := rainSeries(map[int]float64{2: 50.0})

	_, err := calculateBaseline(data, 14, models.AggregationAvg, 7, time.Now())

	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

// ============================================================================
// TEST SUITE 3: THRESHOLD OPERATORS
// ============================================================================

func TestCheckThreshold_AllOperators(t *testing.T) {
	tests := []struct {
		name      string
		measured  float64
		threshold float64
		operator  models.ThresholdOperator
		expected  bool
	}{
		{"less than satisfied", 32.0, 50.0, models.ThresholdLT, true},
		{"less than not satisfied", 50.0, 50.0, models.ThresholdLT, false},
		{"greater than satisfied", 60.0, 50.0, models.ThresholdGT, true},
		{"greater than not satisfied", 50.0, 50.0, models.ThresholdGT, false},
		{"lte at boundary", 50.0, 50.0, models.ThresholdLTE, true},
		{"gte at boundary", 50.0, 50.0, models.ThresholdGTE, true},
		{"eq satisfied", 50.0, 50.0, models.ThresholdEQ, true},
		{"eq not satisfied", 50.1, 50.0, models.ThresholdEQ, false},
		{"ne satisfied", 50.1, 50.0, models.ThresholdNE, true},
		{"change_gt satisfied", 5.0, 3.0, models.ThresholdChangeGT, true},
		{"change_lt satisfied", -5.0, -3.0, models.ThresholdChangeLT, true},
		{"change_lt not satisfied", -2.0, -3.0, models.ThresholdChangeLT, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkThreshold(tt.measured, tt.threshold, tt.operator)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// ============================================================================
// TEST SUITE 4: OVER-THRESHOLD SEVERITY
// ============================================================================

func TestOverThresholdSeverity_DirectionAdjusted(t *testing.T) {
	tests := []struct {
		name      string
		measured  float64
		threshold float64
		operator  models.ThresholdOperator
		expected  float64
	}{
		{"deficit below threshold", 32.0, 50.0, models.ThresholdLT, 0.36},
		{"excess above threshold", 65.0, 50.0, models.ThresholdGT, 0.3},
		{"gte exactly at threshold", 50.0, 50.0, models.ThresholdGTE, 0.0},
		{"lte exactly at threshold", 50.0, 50.0, models.ThresholdLTE, 0.0},
		{"eq always zero", 50.0, 50.0, models.ThresholdEQ, 0.0},
		{"ne relative distance", 60.0, 50.0, models.ThresholdNE, 0.2},
		{"negative threshold normalizes by magnitude", -0.4, -0.3, models.ThresholdChangeLT, 0.3333},
		{"change_gt over positive threshold", 5.0, 2.0, models.ThresholdChangeGT, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := overThresholdSeverity(tt.measured, tt.threshold, tt.operator)
			assert.InDelta(t, tt.expected, result, 0.001)
		})
	}
}

func TestOverThresholdSeverity_ZeroThresholdUsesRawDifference(t *testing.T) {
	assert.Equal(t, 3.5, overThresholdSeverity(3.5, 0, models.ThresholdGT))
	assert.Equal(t, 2.0, overThresholdSeverity(-2.0, 0, models.ThresholdLT))
}

func TestOverThresholdSeverity_SatisfiedConditionNeverNegative(t *testing.T) {
	operators := []models.ThresholdOperator{
		models.ThresholdLT, models.ThresholdGT, models.ThresholdLTE, models.ThresholdGTE,
		models.ThresholdEQ, models.ThresholdNE, models.ThresholdChangeGT, models.ThresholdChangeLT,
	}
	values := []struct{ measured, threshold float64 }{
		{32.0, 50.0}, {65.0, 50.0}, {50.0, 50.0}, {-0.4, -0.3}, {0.1, -0.3},
	}

	for _, op := range operators {
		for _, v := range values {
			if checkThreshold(v.measured, v.threshold, op) {
				severity := overThresholdSeverity(v.measured, v.threshold, op)
				assert.GreaterOrEqual(t, severity, 0.0,
					"satisfied %s with measured=%v threshold=%v must not be negative", op, v.measured, v.threshold)
			}
		}
	}
}

// ============================================================================
// TEST SUITE 5: LOGICAL OPERATOR WITH UNKNOWN OUTCOMES
// ============================================================================

func TestEvaluateLogicalOperator_AND(t *testing.T) {
	assert.True(t, evaluateLogicalOperator(models.LogicalAND, []conditionOutcome{outcomeMet, outcomeMet}))
	assert.False(t, evaluateLogicalOperator(models.LogicalAND, []conditionOutcome{outcomeMet, outcomeNotMet}))
	assert.False(t, evaluateLogicalOperator(models.LogicalAND, []conditionOutcome{outcomeMet, outcomeUnknown}),
		"unknown outcome must not fire an AND trigger")
}

func TestEvaluateLogicalOperator_OR(t *testing.T) {
	assert.True(t, evaluateLogicalOperator(models.LogicalOR, []conditionOutcome{outcomeNotMet, outcomeMet}))
	assert.True(t, evaluateLogicalOperator(models.LogicalOR, []conditionOutcome{outcomeUnknown, outcomeMet}),
		"a definite met fires OR regardless of unknowns")
	assert.False(t, evaluateLogicalOperator(models.LogicalOR, []conditionOutcome{outcomeUnknown, outcomeNotMet}))
}

func TestEvaluateLogicalOperator_Empty(t *testing.T) {
	assert.False(t, evaluateLogicalOperator(models.LogicalAND, nil))
	assert.False(t, evaluateLogicalOperator(models.LogicalOR, nil))
}

// ============================================================================
// TEST SUITE 6: BLACKOUT PERIODS
// ============================================================================

func TestIsInBlackoutPeriod_NormalRange(t *testing.T) {
	periods := utils.JSONMap{
		"periods": []interface{}{
			map[string]interface{}{"start": "03-01", "end": "05-31"},
		},
	}

	inside := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, isInBlackoutPeriod(periods, inside))
	assert.False(t, isInBlackoutPeriod(periods, outside))
}

func TestIsInBlackoutPeriod_WrappingRange(t *testing.T) {
	periods := utils.JSONMap{
		"periods": []interface{}{
			map[string]interface{}{"start": "11-01", "end": "02-28"},
		},
	}

	december := time.Date(2026, 12, 10, 12, 0, 0, 0, time.UTC)
	january := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	june := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, isInBlackoutPeriod(periods, december))
	assert.True(t, isInBlackoutPeriod(periods, january))
	assert.False(t, isInBlackoutPeriod(periods, june))
}

func TestIsInBlackoutPeriod_NilOrMalformed(t *testing.T) {
	assert.False(t, isInBlackoutPeriod(nil, time.Now()))
	assert.False(t, isInBlackoutPeriod(utils.JSONMap{"periods": "not-a-list"}, time.Now()))
}

// ============================================================================
// TEST SUITE 7: EVIDENCE SUMMARY
// ============================================================================

func TestBuildEvidenceSummary(t *testing.T) {
	baseline := 45.0
	earlyWarning := 40.0
	now := time.Now()
	triggered := []TriggeredCondition{
		{
			ConditionID:     uuid.New(),
			ParameterName:   models.RainFall,
			MeasuredValue:   32.0,
			ThresholdValue:  50.0,
			Operator:        models.ThresholdLT,
			OverThreshold:   0.36,
			BaselineValue:   &baseline,
			ConsecutiveDays: 3,
		},
		{
			ConditionID:           uuid.New(),
			ParameterName:         models.Temperature,
			MeasuredValue:         38.5,
			ThresholdValue:        39.0,
			Operator:              models.ThresholdGT,
			IsEarlyWarning:        true,
			EarlyWarningThreshold: &earlyWarning,
		},
	}

	evidence := buildEvidenceSummary(triggered, now)

	assert.Equal(t, now.Unix(), evidence["triggered_at"])
	assert.Equal(t, 2, evidence["conditions_count"])
	assert.Equal(t, "automatic", evidence["generation_method"])

	conditions, ok := evidence["conditions"].([]map[string]interface{})
	assert.True(t, ok)
	assert.Len(t, conditions, 2)
	assert.Equal(t, 45.0, conditions[0]["baseline_value"])
	assert.Equal(t, 3, conditions[0]["consecutive_days"])
	assert.Equal(t, true, conditions[1]["is_early_warning"])
	assert.Equal(t, 40.0, conditions[1]["early_warning_threshold"])
}
