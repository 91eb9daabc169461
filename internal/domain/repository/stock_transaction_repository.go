package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Balance agregado del libro para (ubicación, stockable) a una fecha.
type Balance struct {
	LocationID string
	Stockable  entity.Stockable
	Quantity   decimal.Decimal
	Value      decimal.Decimal
}

// StockTransactionRepository puerto del libro de inventario (solo inserción).
// No existe Update: el libro nunca se modifica en sitio.
type StockTransactionRepository interface {
	Create(ctx context.Context, tx *entity.StockTransaction) error
	// DeleteBySourceReferenceID elimina el conjunto completo de asientos de un documento origen.
	DeleteBySourceReferenceID(ctx context.Context, sourceReferenceID string) (int64, error)
	// Balance suma con signo de cantidades y valores con date <= asOf.
	Balance(ctx context.Context, locationID string, s entity.Stockable, asOf time.Time) (Balance, error)
	// BalancesByLocation un Balance por stockable con movimientos en la ubicación.
	BalancesByLocation(ctx context.Context, locationID string, asOf time.Time) ([]Balance, error)
	// BalancesByCompany un Balance por (ubicación, stockable) de la empresa.
	BalancesByCompany(ctx context.Context, companyID string, asOf time.Time) ([]Balance, error)
	// ListBetween asientos de la ubicación con from <= date <= to, en orden cronológico.
	ListBetween(ctx context.Context, locationID string, from, to time.Time) ([]*entity.StockTransaction, error)
	ListByLocation(ctx context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error)
	ListBySourceReferenceID(ctx context.Context, sourceReferenceID string) ([]*entity.StockTransaction, error)
}
