package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// MONITORING DATA (TIME-SERIES)
// ============================================================================

// FarmMonitoringData is one sample of a monitored index parameter for a farm.
// The telemetry ingestion pipeline that writes these rows is external; the
// engine only reads them.
type FarmMonitoringData struct {
	ID                   uuid.UUID               `json:"id" db:"id"`
	FarmID               uuid.UUID               `json:"farm_id" db:"farm_id"`
	DataSourceID         uuid.UUID               `json:"data_source_id" db:"data_source_id"`
	ParameterName        DataSourceParameterName `json:"parameter_name" db:"parameter_name"`
	MeasuredValue        float64                 `json:"measured_value" db:"measured_value"`
	Unit                 *string                 `json:"unit,omitempty" db:"unit"`
	MeasurementTimestamp int64                   `json:"measurement_timestamp" db:"measurement_timestamp"`
	DataQuality          DataQuality             `json:"data_quality" db:"data_quality"`
	MeasurementSource    *string                 `json:"measurement_source,omitempty" db:"measurement_source"`
	CreatedAt            time.Time               `json:"created_at" db:"created_at"`
}

// ConditionBreachRun is the persistent consecutive-breach counter for one
// (policy, condition) pair. Stored in Postgres so runs survive restarts and
// are shared across instances.
type ConditionBreachRun struct {
	RegisteredPolicyID uuid.UUID `json:"registered_policy_id" db:"registered_policy_id"`
	ConditionID        uuid.UUID `json:"condition_id" db:"condition_id"`
	RunLength          int       `json:"run_length" db:"run_length"`
	LastEvaluatedAt    int64     `json:"last_evaluated_at" db:"last_evaluated_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
