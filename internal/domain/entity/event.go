package entity

import "time"

// Tipos de evento emitidos por el motor después del commit.
const (
	EventTransferDrafted   = "transfer.drafted"
	EventTransferCompleted = "transfer.completed"
	EventTransferCancelled = "transfer.cancelled"
	EventOrderDrafted      = "order.drafted"
	EventOrderReceived     = "order.received"
	EventOrderCancelled    = "order.cancelled"
)

// Event notificación para consumidores externos (reportes, alertas, integraciones).
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	CompanyID   string         `json:"company_id"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}
