package repository

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// ThresholdRepository registro de mínimos y niveles par por (stockable, ubicación).
type ThresholdRepository interface {
	Get(ctx context.Context, locationID string, s entity.Stockable) (*entity.Threshold, error)
	Upsert(ctx context.Context, t *entity.Threshold) error
	Delete(ctx context.Context, locationID string, s entity.Stockable) error
	ListByLocation(ctx context.Context, locationID string) ([]*entity.Threshold, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Threshold, error)
}
