package dto

import (
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockableRef elección exclusiva "insumo o sub-receta" en la API.
type StockableRef struct {
	ItemID      *string `json:"item_id,omitempty"`
	SubRecipeID *string `json:"sub_recipe_id,omitempty"`
}

// ToEntity valida que venga exactamente uno de los dos IDs.
func (r StockableRef) ToEntity() (entity.Stockable, error) {
	return entity.NewStockable(r.ItemID, r.SubRecipeID)
}

func StockableRefFrom(s entity.Stockable) StockableRef {
	return StockableRef{ItemID: s.ItemID(), SubRecipeID: s.SubRecipeID()}
}

// UnitDTO unidad de medida. Code vacío significa la unidad base del stockable.
type UnitDTO struct {
	Code     string          `json:"code,omitempty"`
	Category string          `json:"category,omitempty"`
	ToBase   decimal.Decimal `json:"to_base"`
}

func (u UnitDTO) ToEntity() entity.UnitOfMeasure {
	return entity.UnitOfMeasure{Code: u.Code, Category: entity.UnitCategory(u.Category), ToBase: u.ToBase}
}

func UnitFrom(u entity.UnitOfMeasure) UnitDTO {
	return UnitDTO{Code: u.Code, Category: string(u.Category), ToBase: u.ToBase}
}

// BalanceResponse saldo teórico de un stockable en una ubicación.
type BalanceResponse struct {
	LocationID      string          `json:"location_id"`
	Stockable       StockableRef    `json:"stockable"`
	Quantity        decimal.Decimal `json:"quantity"`
	Value           decimal.Decimal `json:"value"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
}

// StockLevelResponse saldo al cierre de un día.
type StockLevelResponse struct {
	Date      string          `json:"date"` // YYYY-MM-DD
	Stockable StockableRef    `json:"stockable"`
	Quantity  decimal.Decimal `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
}

// StockTransactionResponse asiento del libro.
type StockTransactionResponse struct {
	ID                string          `json:"id"`
	LocationID        string          `json:"location_id"`
	Stockable         StockableRef    `json:"stockable"`
	Type              string          `json:"type"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	SourceReferenceID string          `json:"source_reference_id,omitempty"`
	Date              time.Time       `json:"date"`
	CreatedBy         string          `json:"created_by,omitempty"`
}

func StockTransactionFrom(t *entity.StockTransaction) StockTransactionResponse {
	return StockTransactionResponse{
		ID: t.ID, LocationID: t.LocationID, Stockable: StockableRefFrom(t.Stockable),
		Type: string(t.Type), Quantity: t.Quantity, UnitCost: t.UnitCost, TotalCost: t.TotalCost,
		SourceReferenceID: t.SourceReferenceID, Date: t.Date, CreatedBy: t.CreatedBy,
	}
}

// RecordAdjustmentRequest ajuste manual (conteo físico, merma). Quantity lleva su signo.
type RecordAdjustmentRequest struct {
	StockableRef
	Quantity          decimal.Decimal `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	SourceReferenceID string          `json:"source_reference_id"`
	Date              *time.Time      `json:"date,omitempty"`
}

// ThresholdRequest mínimo y nivel par de un stockable en una ubicación.
type ThresholdRequest struct {
	StockableRef
	MinOnHand decimal.Decimal `json:"min_on_hand"`
	ParLevel  decimal.Decimal `json:"par_level"`
}

type ThresholdResponse struct {
	LocationID string          `json:"location_id"`
	Stockable  StockableRef    `json:"stockable"`
	MinOnHand  decimal.Decimal `json:"min_on_hand"`
	ParLevel   decimal.Decimal `json:"par_level"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func ThresholdFrom(t *entity.Threshold) ThresholdResponse {
	return ThresholdResponse{
		LocationID: t.LocationID, Stockable: StockableRefFrom(t.Stockable),
		MinOnHand: t.MinOnHand, ParLevel: t.ParLevel, UpdatedAt: t.UpdatedAt,
	}
}
