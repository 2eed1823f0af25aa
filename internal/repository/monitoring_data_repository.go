package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MonitoringDataRepository struct {
	db *sqlx.DB
}

func NewMonitoringDataRepository(db *sqlx.DB) *MonitoringDataRepository {
	return &MonitoringDataRepository{db: db}
}

// GetSeries retrieves the samples for one (farm, parameter) pair inside
// [from, to], oldest first. Returns ErrDataUnavailable when the farm has no
// samples for the parameter at all, so callers can tell "unmonitored" apart
// from "monitored but quiet window".
func (r *MonitoringDataRepository) GetSeries(ctx context.Context, farmID uuid.UUID, parameterName models.DataSourceParameterName, from, to int64) ([]models.FarmMonitoringData, error) {
	var series []models.FarmMonitoringData
	query := `
		SELECT id, farm_id, data_source_id, parameter_name, measured_value, unit,
		       measurement_timestamp, data_quality, measurement_source, created_at
		FROM farm_monitoring_data
		WHERE farm_id = $1
		  AND parameter_name = $2
		  AND measurement_timestamp >= $3
		  AND measurement_timestamp <= $4
		ORDER BY measurement_timestamp ASC
	`

	err := r.db.SelectContext(ctx, &series, query, farmID, parameterName, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get monitoring series: %w", err)
	}

	if len(series) == 0 {
		monitored, err := r.isMonitored(ctx, farmID, parameterName)
		if err != nil {
			return nil, err
		}
		if !monitored {
			return nil, fmt.Errorf("farm %s has no %s data: %w", farmID, parameterName, models.ErrDataUnavailable)
		}
	}

	return series, nil
}

// GetLatestBefore retrieves the most recent sample at or before the given
// timestamp, used as the comparison point for change detection.
func (r *MonitoringDataRepository) GetLatestBefore(ctx context.Context, farmID uuid.UUID, parameterName models.DataSourceParameterName, before int64) (*models.FarmMonitoringData, error) {
	var sample models.FarmMonitoringData
	query := `
		SELECT id, farm_id, data_source_id, parameter_name, measured_value, unit,
		       measurement_timestamp, data_quality, measurement_source, created_at
		FROM farm_monitoring_data
		WHERE farm_id = $1
		  AND parameter_name = $2
		  AND measurement_timestamp <= $3
		ORDER BY measurement_timestamp DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &sample, query, farmID, parameterName, before)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sample before %d: %w", before, err)
	}

	return &sample, nil
}

func (r *MonitoringDataRepository) isMonitored(ctx context.Context, farmID uuid.UUID, parameterName models.DataSourceParameterName) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM farm_monitoring_data WHERE farm_id = $1 AND parameter_name = $2)`

	err := r.db.GetContext(ctx, &exists, query, farmID, parameterName)
	if err != nil {
		return false, fmt.Errorf("failed to check monitored parameter: %w", err)
	}

	return exists, nil
}
