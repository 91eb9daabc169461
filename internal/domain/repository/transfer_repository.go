package repository

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// TransferRepository persistencia de traslados con sus líneas.
// Create devuelve domain.ErrDraftExists si ya hay un DRAFT para el mismo par (origen, destino).
type TransferRepository interface {
	Create(ctx context.Context, t *entity.Transfer) error
	Update(ctx context.Context, t *entity.Transfer) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Transfer, error)
	// GetForUpdate bloquea la cabecera hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error)
	FindDraftBetween(ctx context.Context, fromLocationID, toLocationID string) (*entity.Transfer, error)
	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.Transfer, error)
	ListByCompany(ctx context.Context, companyID string, status *entity.TransferStatus, limit, offset int) ([]*entity.Transfer, error)
	// ListOpenByCompany traslados DRAFT, SENT o RECEIVED (stock en tránsito).
	ListOpenByCompany(ctx context.Context, companyID string) ([]*entity.Transfer, error)
}
