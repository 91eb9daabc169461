package repository

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// OrderRepository persistencia de órdenes de compra con sus líneas.
// Create devuelve domain.ErrDraftExists si ya hay un DRAFT para (ubicación, proveedor).
type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
	Update(ctx context.Context, o *entity.Order) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	FindDraft(ctx context.Context, locationID, supplierID string) (*entity.Order, error)
	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.Order, error)
	ListByCompany(ctx context.Context, companyID string, status *entity.OrderStatus, limit, offset int) ([]*entity.Order, error)
	// ListOpenByCompany órdenes cuya mercancía aún no llegó.
	ListOpenByCompany(ctx context.Context, companyID string) ([]*entity.Order, error)
}
