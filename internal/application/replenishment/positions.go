package replenishment

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/shopspring/decimal"
)

type posKey struct {
	locationID string
	stockable  entity.Stockable
}

// Snapshotter arma la foto de posiciones de una empresa: saldo actual, stock en tránsito y umbrales.
// Solo las ubicaciones activas con umbral para el stockable participan (como faltante o donante).
type Snapshotter struct {
	locations  repository.LocationRepository
	thresholds repository.ThresholdRepository
	ledger     repository.StockTransactionRepository
	transfers  repository.TransferRepository
	orders     repository.OrderRepository
}

func NewSnapshotter(
	locations repository.LocationRepository,
	thresholds repository.ThresholdRepository,
	ledger repository.StockTransactionRepository,
	transfers repository.TransferRepository,
	orders repository.OrderRepository,
) *Snapshotter {
	return &Snapshotter{locations: locations, thresholds: thresholds, ledger: ledger, transfers: transfers, orders: orders}
}

// Positions devuelve una posición por umbral de ubicación activa.
// Incoming suma traslados abiertos hacia la ubicación y órdenes abiertas; Outgoing los traslados abiertos desde ella.
func (s *Snapshotter) Positions(ctx context.Context, companyID string, asOf time.Time) ([]inventory.Position, error) {
	locs, err := s.locations.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	active := make(map[string]bool, len(locs))
	for _, l := range locs {
		active[l.ID] = l.Active
	}

	thresholds, err := s.thresholds.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	if len(thresholds) == 0 {
		return nil, nil
	}

	balances, err := s.ledger.BalancesByCompany(ctx, companyID, asOf)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	onHand := make(map[posKey]decimal.Decimal, len(balances))
	for _, b := range balances {
		onHand[posKey{b.LocationID, b.Stockable}] = b.Quantity
	}

	incoming := make(map[posKey]decimal.Decimal)
	outgoing := make(map[posKey]decimal.Decimal)
	transfers, err := s.transfers.ListOpenByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("open transfers: %w", err)
	}
	for _, t := range transfers {
		for _, l := range t.Lines {
			q := l.BaseQuantity()
			in := posKey{t.ToLocationID, l.Stockable}
			out := posKey{t.FromLocationID, l.Stockable}
			incoming[in] = incoming[in].Add(q)
			outgoing[out] = outgoing[out].Add(q)
		}
	}
	orders, err := s.orders.ListOpenByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	for _, o := range orders {
		for _, l := range o.Lines {
			k := posKey{o.LocationID, l.Stockable}
			incoming[k] = incoming[k].Add(l.BaseQuantity())
		}
	}

	positions := make([]inventory.Position, 0, len(thresholds))
	for _, th := range thresholds {
		if !active[th.LocationID] {
			continue
		}
		k := posKey{th.LocationID, th.Stockable}
		positions = append(positions, inventory.Position{
			LocationID: th.LocationID,
			Stockable:  th.Stockable,
			OnHand:     onHand[k],
			Incoming:   incoming[k],
			Outgoing:   outgoing[k],
			MinOnHand:  th.MinOnHand,
			ParLevel:   th.ParLevel,
		})
	}
	return positions, nil
}
