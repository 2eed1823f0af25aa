package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// CORE DATA SOURCE
// ============================================================================

type DataSource struct {
	ID              uuid.UUID               `json:"id" db:"id"`
	DataSource      DataSourceType          `json:"data_source" db:"data_source"`
	ParameterName   DataSourceParameterName `json:"parameter_name" db:"parameter_name"`
	Unit            *string                 `json:"unit,omitempty" db:"unit"`
	MinValue        *float64                `json:"min_value,omitempty" db:"min_value"`
	MaxValue        *float64                `json:"max_value,omitempty" db:"max_value"`
	UpdateFrequency *string                 `json:"update_frequency,omitempty" db:"update_frequency"`
	BaseCost        int64                   `json:"base_cost" db:"base_cost"`
	DataProvider    *string                 `json:"data_provider,omitempty" db:"data_provider"`
	IsActive        bool                    `json:"is_active" db:"is_active"`
	CreatedAt       time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at" db:"updated_at"`
}
