package repository

import (
	"context"
	"fmt"
	"policy-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DataSourceRepository struct {
	db *sqlx.DB
}

func NewDataSourceRepository(db *sqlx.DB) *DataSourceRepository {
	return &DataSourceRepository{db: db}
}

// GetByID retrieves a data source by its ID
func (r *DataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	var source models.DataSource
	query := `
		SELECT id, data_source, parameter_name, unit, min_value, max_value,
		       update_frequency, base_cost, data_provider, is_active,
		       created_at, updated_at
		FROM data_source
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &source, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get data source by id: %w", err)
	}

	return &source, nil
}

// GetActive retrieves all active data sources
func (r *DataSourceRepository) GetActive(ctx context.Context) ([]models.DataSource, error) {
	var sources []models.DataSource
	query := `
		SELECT id, data_source, parameter_name, unit, min_value, max_value,
		       update_frequency, base_cost, data_provider, is_active,
		       created_at, updated_at
		FROM data_source
		WHERE is_active = true
		ORDER BY parameter_name
	`

	err := r.db.SelectContext(ctx, &sources, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active data sources: %w", err)
	}

	return sources, nil
}
