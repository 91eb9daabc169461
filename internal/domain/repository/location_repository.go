package repository

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// LocationRepository puerto de lectura de ubicaciones: id → empresa.
type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Location, error)
}
