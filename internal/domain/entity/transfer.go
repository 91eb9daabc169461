package entity

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estado de un traslado entre ubicaciones.
type TransferStatus string

const (
	TransferDraft     TransferStatus = "DRAFT"
	TransferSent      TransferStatus = "SENT"
	TransferReceived  TransferStatus = "RECEIVED"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// transferTransitions tabla única de transiciones legales.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferDraft:    {TransferSent, TransferCancelled},
	TransferSent:     {TransferReceived, TransferCancelled},
	TransferReceived: {TransferCompleted, TransferCancelled},
}

// Valid indica si el estado es conocido.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferDraft, TransferSent, TransferReceived, TransferCompleted, TransferCancelled:
		return true
	}
	return false
}

// CanTransitionTo consulta la tabla de transiciones.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transferTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen estados previos a COMPLETED que aún no fueron cancelados (stock en tránsito).
func (s TransferStatus) IsOpen() bool {
	return s == TransferDraft || s == TransferSent || s == TransferReceived
}

// TransferLine línea de un traslado. Quantity está expresada en Unit.
type TransferLine struct {
	Stockable Stockable
	Quantity  decimal.Decimal
	Unit      UnitOfMeasure
}

// BaseQuantity cantidad de la línea en la unidad base del stockable.
func (l TransferLine) BaseQuantity() decimal.Decimal {
	return l.Unit.ToBaseQuantity(l.Quantity)
}

// Transfer movimiento de stock entre dos ubicaciones de la misma empresa.
type Transfer struct {
	ID             string
	CompanyID      string
	FromLocationID string
	ToLocationID   string
	Status         TransferStatus
	Lines          []TransferLine
	Comment        string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
	ReceivedAt     *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
}

// Clone copia profunda (líneas incluidas) para que los repositorios no compartan memoria.
func (t *Transfer) Clone() *Transfer {
	if t == nil {
		return nil
	}
	c := *t
	c.Lines = append([]TransferLine(nil), t.Lines...)
	return &c
}

// MergeLines fusiona líneas en el borrador. Las líneas del mismo stockable se suman en una sola,
// expresada en la primera unidad exacta entre la de la línea existente, la entrante y la base de
// baseUnits. Si ninguna es exacta no modifica el traslado y devuelve error.
func (t *Transfer) MergeLines(lines []TransferLine, baseUnits map[Stockable]UnitOfMeasure) error {
	if t.Status != TransferDraft {
		return fmt.Errorf("el traslado %s no está en borrador (%s)", t.ID, t.Status)
	}
	merged := append([]TransferLine(nil), t.Lines...)
	for _, in := range lines {
		i := slices.IndexFunc(merged, func(l TransferLine) bool { return l.Stockable == in.Stockable })
		if i < 0 {
			merged = append(merged, in)
			continue
		}
		total := merged[i].BaseQuantity().Add(in.BaseQuantity())
		units := []UnitOfMeasure{merged[i].Unit, in.Unit}
		if base, ok := baseUnits[in.Stockable]; ok {
			units = append(units, base)
		}
		exact := false
		for _, u := range units {
			if q, ok := u.ExactFromBase(total); ok {
				merged[i].Quantity, merged[i].Unit = q, u
				exact = true
				break
			}
		}
		if !exact {
			return fmt.Errorf("%s: %s en unidad base no se expresa exacto en %s ni %s", in.Stockable, total, merged[i].Unit.Code, in.Unit.Code)
		}
	}
	t.Lines = merged
	return nil
}

// AppendComment agrega un comentario al historial del borrador.
func (t *Transfer) AppendComment(comment string) {
	if comment == "" {
		return
	}
	if t.Comment == "" {
		t.Comment = comment
		return
	}
	t.Comment += "\n" + comment
}

// TransitionTo aplica la transición si la tabla lo permite y sella la fecha correspondiente.
func (t *Transfer) TransitionTo(next TransferStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("traslado %s: %s -> %s", t.ID, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = now
	switch next {
	case TransferSent:
		t.SentAt = &now
	case TransferReceived:
		t.ReceivedAt = &now
	case TransferCompleted:
		t.CompletedAt = &now
	case TransferCancelled:
		t.CancelledAt = &now
	}
	return nil
}
