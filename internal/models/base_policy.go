package models

import (
	"time"

	"policy-engine/internal/utils"

	"github.com/google/uuid"
)

// ============================================================================
// BASE POLICY (TEMPLATE/PRODUCT)
// ============================================================================

// BasePolicy is a reusable insurance product template. Monetary amounts are
// stored in integer minor units (đồng); rates are unitless multipliers.
// Never mutated after a RegisteredPolicy is issued against it.
type BasePolicy struct {
	ID                      uuid.UUID        `json:"id" db:"id"`
	InsuranceProviderID     string           `json:"insurance_provider_id" db:"insurance_provider_id"`
	ProductName             string           `json:"product_name" db:"product_name"`
	ProductCode             *string          `json:"product_code,omitempty" db:"product_code"`
	ProductDescription      *string          `json:"product_description,omitempty" db:"product_description"`
	CropType                string           `json:"crop_type" db:"crop_type"`
	CoverageCurrency        string           `json:"coverage_currency" db:"coverage_currency"`
	CoverageDurationDays    int              `json:"coverage_duration_days" db:"coverage_duration_days"`
	PremiumBaseRate         float64          `json:"premium_base_rate" db:"premium_base_rate"`
	PayoutBaseRate          float64          `json:"payout_base_rate" db:"payout_base_rate"`
	FixPremiumAmount        int64            `json:"fix_premium_amount" db:"fix_premium_amount"`
	FixPayoutAmount         int64            `json:"fix_payout_amount" db:"fix_payout_amount"`
	IsPremiumPerHectare     bool             `json:"is_premium_per_hectare" db:"is_premium_per_hectare"`
	IsPayoutPerHectare      bool             `json:"is_payout_per_hectare" db:"is_payout_per_hectare"`
	OverThresholdMultiplier float64          `json:"over_threshold_multiplier" db:"over_threshold_multiplier"`
	PayoutCap               *int64           `json:"payout_cap,omitempty" db:"payout_cap"`
	CancelPremiumRate       float64          `json:"cancel_premium_rate" db:"cancel_premium_rate"`
	EnrollmentStartDate     int64            `json:"enrollment_start_date" db:"enrollment_start_date"`
	EnrollmentEndDate       int64            `json:"enrollment_end_date" db:"enrollment_end_date"`
	ValidFromDate           int64            `json:"valid_from_date" db:"valid_from_date"`
	ValidToDate             int64            `json:"valid_to_date" db:"valid_to_date"`
	AutoRenewal             bool             `json:"auto_renewal" db:"auto_renewal"`
	ReviewWindowDays        int              `json:"review_window_days" db:"review_window_days"`
	Status                  BasePolicyStatus `json:"status" db:"status"`
	CreatedAt               time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at" db:"updated_at"`
	CreatedBy               *string          `json:"created_by,omitempty" db:"created_by"`
}

// BasePolicyTrigger is the 1:1 trigger definition for a base policy.
// BlackoutPeriods format: {"periods": [{"start": "MM-DD", "end": "MM-DD"}, ...]}
type BasePolicyTrigger struct {
	ID                   uuid.UUID            `json:"id" db:"id"`
	BasePolicyID         uuid.UUID            `json:"base_policy_id" db:"base_policy_id"`
	LogicalOperator      LogicalOperator      `json:"logical_operator" db:"logical_operator"`
	GrowthStage          *string              `json:"growth_stage,omitempty" db:"growth_stage"`
	MonitorInterval      int                  `json:"monitor_interval" db:"monitor_interval"`
	MonitorFrequencyUnit MonitorFrequencyUnit `json:"monitor_frequency_unit" db:"monitor_frequency_unit"`
	BlackoutPeriods      utils.JSONMap        `json:"blackout_periods,omitempty" db:"blackout_periods"`
	CreatedAt            time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at" db:"updated_at"`
}

type BasePolicyTriggerCondition struct {
	ID                    uuid.UUID            `json:"id" db:"id"`
	BasePolicyTriggerID   uuid.UUID            `json:"base_policy_trigger_id" db:"base_policy_trigger_id"`
	DataSourceID          uuid.UUID            `json:"data_source_id" db:"data_source_id"`
	ThresholdOperator     ThresholdOperator    `json:"threshold_operator" db:"threshold_operator"`
	ThresholdValue        float64              `json:"threshold_value" db:"threshold_value"`
	EarlyWarningThreshold *float64             `json:"early_warning_threshold,omitempty" db:"early_warning_threshold"`
	AggregationFunction   AggregationFunction  `json:"aggregation_function" db:"aggregation_function"`
	AggregationWindowDays int                  `json:"aggregation_window_days" db:"aggregation_window_days"`
	ConsecutiveRequired   *int                 `json:"consecutive_required,omitempty" db:"consecutive_required"`
	BaselineWindowDays    *int                 `json:"baseline_window_days,omitempty" db:"baseline_window_days"`
	BaselineFunction      *AggregationFunction `json:"baseline_function,omitempty" db:"baseline_function"`
	ValidationWindowDays  int                  `json:"validation_window_days" db:"validation_window_days"`
	ConditionOrder        int                  `json:"condition_order" db:"condition_order"`
	CreatedAt             time.Time            `json:"created_at" db:"created_at"`
}
