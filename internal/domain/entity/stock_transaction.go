package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tipo de asiento del libro de inventario.
type TransactionType string

const (
	TransactionPurchase    TransactionType = "PURCHASE"     // recepción de orden de compra
	TransactionTransferIn  TransactionType = "TRANSFER_IN"  // entrada por traslado
	TransactionTransferOut TransactionType = "TRANSFER_OUT" // salida por traslado
	TransactionUsage       TransactionType = "USAGE"        // consumo
	TransactionAdjustment  TransactionType = "ADJUSTMENT"   // ajuste (conserva su signo)
)

// Valid indica si el tipo es uno de los conocidos.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionTransferIn, TransactionTransferOut, TransactionUsage, TransactionAdjustment:
		return true
	}
	return false
}

// SignedQuantity aplica el signo convencional del tipo a una magnitud.
// TRANSFER_OUT y USAGE restan; PURCHASE y TRANSFER_IN suman; ADJUSTMENT se deja tal cual.
func (t TransactionType) SignedQuantity(qty decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionTransferOut, TransactionUsage:
		return qty.Abs().Neg()
	case TransactionPurchase, TransactionTransferIn:
		return qty.Abs()
	}
	return qty
}

// StockTransaction asiento inmutable del libro. Las correcciones son nuevos ADJUSTMENT.
type StockTransaction struct {
	ID                string
	CompanyID         string
	LocationID        string
	Stockable         Stockable
	Type              TransactionType
	Quantity          decimal.Decimal // en unidad base, con signo
	UnitCost          decimal.Decimal
	TotalCost         decimal.Decimal // Quantity * UnitCost
	SourceReferenceID string          // orden, traslado o sesión de conteo que lo originó
	Date              time.Time
	CreatedAt         time.Time
	CreatedBy         string
}
