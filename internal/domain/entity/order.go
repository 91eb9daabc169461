package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de una orden de compra.
type OrderStatus string

const (
	OrderDraft                OrderStatus = "DRAFT"
	OrderCreated              OrderStatus = "CREATED"
	OrderSubmittedForApproval OrderStatus = "SUBMITTED_FOR_APPROVAL"
	OrderApproved             OrderStatus = "APPROVED"
	OrderSent                 OrderStatus = "SENT"
	OrderViewedBySupplier     OrderStatus = "VIEWED_BY_SUPPLIER"
	OrderDelivered            OrderStatus = "DELIVERED"
	OrderCompleted            OrderStatus = "COMPLETED"
	OrderCancelled            OrderStatus = "CANCELLED"
)

// orderTransitions adyacencia de la orden. CANCELLED se agrega a todo estado no terminal en CanTransitionTo.
// CREATED→APPROVED cubre la aprobación automática y SENT→DELIVERED al proveedor que nunca abrió la orden.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderDraft:                {OrderCreated},
	OrderCreated:              {OrderSubmittedForApproval, OrderApproved},
	OrderSubmittedForApproval: {OrderApproved},
	OrderApproved:             {OrderSent},
	OrderSent:                 {OrderViewedBySupplier, OrderDelivered},
	OrderViewedBySupplier:     {OrderDelivered},
	OrderDelivered:            {OrderCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderDraft, OrderCreated, OrderSubmittedForApproval, OrderApproved, OrderSent,
		OrderViewedBySupplier, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// IsTerminal COMPLETED y CANCELLED no admiten más transiciones.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// IsOpen la mercancía aún no llegó: cuenta como stock entrante.
func (s OrderStatus) IsOpen() bool {
	return !s.IsTerminal() && s != OrderDelivered
}

// CanTransitionTo consulta la tabla de transiciones.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderCancelled {
		return s.Valid() && !s.IsTerminal()
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderLine línea de orden de compra. Quantity está expresada en Unit (unidad de compra).
type OrderLine struct {
	Stockable        Stockable
	PurchaseOptionID string
	Quantity         decimal.Decimal
	Unit             UnitOfMeasure
	UnitPrice        decimal.Decimal // precio por unidad de compra
}

// BaseQuantity cantidad en unidad base.
func (l OrderLine) BaseQuantity() decimal.Decimal {
	return l.Unit.ToBaseQuantity(l.Quantity)
}

// BaseUnitCost costo por unidad base.
func (l OrderLine) BaseUnitCost() decimal.Decimal {
	if l.Unit.ToBase.IsZero() {
		return l.UnitPrice
	}
	return l.UnitPrice.DivRound(l.Unit.ToBase, 12)
}

// Order orden de compra de una ubicación a un proveedor.
type Order struct {
	ID          string
	CompanyID   string
	LocationID  string
	SupplierID  string
	Status      OrderStatus
	Lines       []OrderLine
	Comment     string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = append([]OrderLine(nil), o.Lines...)
	return &c
}

// MergeLines suma cantidades por (stockable, opción de compra, unidad) o agrega la línea.
// UnitPrice es por unidad de compra, así que una unidad distinta queda en su propia línea.
func (o *Order) MergeLines(lines []OrderLine) error {
	if o.Status != OrderDraft {
		return fmt.Errorf("la orden %s no está en borrador (%s)", o.ID, o.Status)
	}
	for _, in := range lines {
		merged := false
		for i := range o.Lines {
			if o.Lines[i].Stockable == in.Stockable && o.Lines[i].PurchaseOptionID == in.PurchaseOptionID &&
				o.Lines[i].Unit.Equal(in.Unit) {
				o.Lines[i].Quantity = o.Lines[i].Quantity.Add(in.Quantity)
				merged = true
				break
			}
		}
		if !merged {
			o.Lines = append(o.Lines, in)
		}
	}
	return nil
}

func (o *Order) AppendComment(comment string) {
	if comment == "" {
		return
	}
	if o.Comment == "" {
		o.Comment = comment
		return
	}
	o.Comment += "\n" + comment
}

// TransitionTo aplica la transición si la tabla lo permite.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("orden %s: %s -> %s", o.ID, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	switch next {
	case OrderDelivered:
		o.DeliveredAt = &now
	case OrderCancelled:
		o.CancelledAt = &now
	}
	return nil
}

// PurchaseOption forma de comprar un stockable a un proveedor (presentación y precio).
type PurchaseOption struct {
	ID         string
	CompanyID  string
	SupplierID string
	Stockable  Stockable
	Unit       UnitOfMeasure
	UnitPrice  decimal.Decimal
	IsMain     bool
	Enabled    bool
}
