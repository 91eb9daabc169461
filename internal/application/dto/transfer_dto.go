package dto

import (
	"fmt"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// TransferLineDTO línea de traslado en la API.
type TransferLineDTO struct {
	StockableRef
	Quantity decimal.Decimal `json:"quantity"`
	Unit     UnitDTO         `json:"unit"`
}

// CreateTransferRequest crea un borrador entre dos ubicaciones.
type CreateTransferRequest struct {
	FromLocationID string            `json:"from_location_id"`
	ToLocationID   string            `json:"to_location_id"`
	Lines          []TransferLineDTO `json:"lines"`
	Comment        string            `json:"comment"`
}

// TransferLinesRequest agrega o reemplaza las líneas de un borrador.
type TransferLinesRequest struct {
	Lines   []TransferLineDTO `json:"lines"`
	Comment string            `json:"comment"`
	Replace bool              `json:"replace"`
}

// TransferLinesToEntity convierte las líneas; el índice de la línea inválida va en el error.
func TransferLinesToEntity(in []TransferLineDTO) ([]entity.TransferLine, error) {
	out := make([]entity.TransferLine, 0, len(in))
	for i, l := range in {
		s, err := l.StockableRef.ToEntity()
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", i, err)
		}
		out = append(out, entity.TransferLine{Stockable: s, Quantity: l.Quantity, Unit: l.Unit.ToEntity()})
	}
	return out, nil
}

type TransferResponse struct {
	ID             string            `json:"id"`
	FromLocationID string            `json:"from_location_id"`
	ToLocationID   string            `json:"to_location_id"`
	Status         string            `json:"status"`
	Lines          []TransferLineDTO `json:"lines"`
	Comment        string            `json:"comment,omitempty"`
	CreatedBy      string            `json:"created_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	SentAt         *time.Time        `json:"sent_at,omitempty"`
	ReceivedAt     *time.Time        `json:"received_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
}

func TransferFrom(t *entity.Transfer) TransferResponse {
	lines := make([]TransferLineDTO, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, TransferLineDTO{StockableRef: StockableRefFrom(l.Stockable), Quantity: l.Quantity, Unit: UnitFrom(l.Unit)})
	}
	return TransferResponse{
		ID: t.ID, FromLocationID: t.FromLocationID, ToLocationID: t.ToLocationID, Status: string(t.Status),
		Lines: lines, Comment: t.Comment, CreatedBy: t.CreatedBy, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
		SentAt: t.SentAt, ReceivedAt: t.ReceivedAt, CompletedAt: t.CompletedAt, CancelledAt: t.CancelledAt,
	}
}

// OrderLineDTO línea de orden de compra en la API.
type OrderLineDTO struct {
	StockableRef
	PurchaseOptionID string          `json:"purchase_option_id,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	Unit             UnitDTO         `json:"unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	LocationID string         `json:"location_id"`
	SupplierID string         `json:"supplier_id"`
	Lines      []OrderLineDTO `json:"lines"`
	Comment    string         `json:"comment"`
}

// OrderTransitionRequest cambio de estado intermedio (CREATED, APPROVED, SENT...).
type OrderTransitionRequest struct {
	Status string `json:"status"`
}

func OrderLinesToEntity(in []OrderLineDTO) ([]entity.OrderLine, error) {
	out := make([]entity.OrderLine, 0, len(in))
	for i, l := range in {
		s, err := l.StockableRef.ToEntity()
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", i, err)
		}
		out = append(out, entity.OrderLine{
			Stockable: s, PurchaseOptionID: l.PurchaseOptionID, Quantity: l.Quantity,
			Unit: l.Unit.ToEntity(), UnitPrice: l.UnitPrice,
		})
	}
	return out, nil
}

type OrderResponse struct {
	ID          string         `json:"id"`
	LocationID  string         `json:"location_id"`
	SupplierID  string         `json:"supplier_id"`
	Status      string         `json:"status"`
	Lines       []OrderLineDTO `json:"lines"`
	Comment     string         `json:"comment,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
}

func OrderFrom(o *entity.Order) OrderResponse {
	lines := make([]OrderLineDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineDTO{
			StockableRef: StockableRefFrom(l.Stockable), PurchaseOptionID: l.PurchaseOptionID,
			Quantity: l.Quantity, Unit: UnitFrom(l.Unit), UnitPrice: l.UnitPrice,
		})
	}
	return OrderResponse{
		ID: o.ID, LocationID: o.LocationID, SupplierID: o.SupplierID, Status: string(o.Status),
		Lines: lines, Comment: o.Comment, CreatedBy: o.CreatedBy, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
		DeliveredAt: o.DeliveredAt, CancelledAt: o.CancelledAt,
	}
}
