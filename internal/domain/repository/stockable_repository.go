package repository

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

// StockableRepository resuelve insumos y sub-recetas a su unidad base y categoría.
// Devuelve nil, nil si no existe.
type StockableRepository interface {
	GetInfo(ctx context.Context, s entity.Stockable) (*entity.StockableInfo, error)
}

// PurchaseOptionRepository opciones de compra por stockable (proveedor, presentación, precio).
type PurchaseOptionRepository interface {
	ListByStockable(ctx context.Context, companyID string, s entity.Stockable) ([]*entity.PurchaseOption, error)
}
