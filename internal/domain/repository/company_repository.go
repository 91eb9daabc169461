package repository

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// CompanyRepository puerto de lectura de empresas (datos maestros externos).
// El scheduler recorre las empresas activas en cada tick.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}
