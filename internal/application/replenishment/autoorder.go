package replenishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/application/order"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/jhoicas/stock-replenishment/pkg/keylock"
	"github.com/rs/zerolog"
)

const autoOrderComment = "compra automática"

// AutoOrderJob convierte los faltantes residuales en borradores de orden de compra.
// Cada faltante se revalida contra la foto actual (incluyendo traslados y órdenes abiertas)
// y se pide hasta el nivel par en unidades de compra enteras.
type AutoOrderJob struct {
	snapshots   *Snapshotter
	options     repository.PurchaseOptionRepository
	orders      *order.Service
	residuals   *ResidualBoard
	locks       *keylock.Locker
	lockTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewAutoOrderJob(
	snapshots *Snapshotter,
	options repository.PurchaseOptionRepository,
	orders *order.Service,
	residuals *ResidualBoard,
	locks *keylock.Locker,
	lockTimeout time.Duration,
	log zerolog.Logger,
) *AutoOrderJob {
	if lockTimeout <= 0 {
		lockTimeout = 2 * time.Second
	}
	return &AutoOrderJob{
		snapshots:   snapshots,
		options:     options,
		orders:      orders,
		residuals:   residuals,
		locks:       locks,
		lockTimeout: lockTimeout,
		now:         time.Now,
		log:         log,
	}
}

func (j *AutoOrderJob) WithClock(now func() time.Time) *AutoOrderJob {
	j.now = now
	return j
}

func (j *AutoOrderJob) Name() string { return JobAutoOrder }

type orderGroup struct {
	locationID string
	supplierID string
	lines      []entity.OrderLine
	shortages  []inventory.Shortage
}

// RunCompany procesa los residuales pendientes de la empresa.
func (j *AutoOrderJob) RunCompany(ctx context.Context, companyID string) (CompanyResult, error) {
	res := CompanyResult{CompanyID: companyID}
	unlock, err := lockCompany(ctx, j.locks, companyID, j.lockTimeout)
	if err != nil {
		return res, err
	}
	defer unlock()

	pending := j.residuals.Take(companyID)
	if len(pending) == 0 {
		return res, nil
	}
	positions, err := j.snapshots.Positions(ctx, companyID, j.now())
	if err != nil {
		j.residuals.Put(companyID, pending)
		return res, err
	}
	byKey := make(map[posKey]inventory.Position, len(positions))
	for _, p := range positions {
		byKey[posKey{p.LocationID, p.Stockable}] = p
	}

	var groups []*orderGroup
	index := make(map[[2]string]*orderGroup)
	for _, sh := range pending {
		p, ok := byKey[posKey{sh.LocationID, sh.Stockable}]
		if !ok || !p.Deficit().IsPositive() {
			continue
		}
		res.Shortages++
		need := p.ParLevel.Sub(p.Projected())
		opts, err := j.options.ListByStockable(ctx, companyID, sh.Stockable)
		if err != nil {
			j.residuals.Put(companyID, pending)
			return res, fmt.Errorf("purchase options %s: %w", sh.Stockable, err)
		}
		opt := inventory.SelectPurchaseOption(opts)
		if opt == nil {
			res.Unresolved++
			j.log.Warn().Str("company_id", companyID).Str("location_id", sh.LocationID).
				Str("stockable", sh.Stockable.Key()).Str("need", need.String()).Msg("sin opción de compra habilitada")
			continue
		}
		k := [2]string{sh.LocationID, opt.SupplierID}
		g, ok := index[k]
		if !ok {
			g = &orderGroup{locationID: sh.LocationID, supplierID: opt.SupplierID}
			index[k] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, entity.OrderLine{
			Stockable:        sh.Stockable,
			PurchaseOptionID: opt.ID,
			Quantity:         inventory.PurchaseQuantity(need, opt),
			Unit:             opt.Unit,
			UnitPrice:        opt.UnitPrice,
		})
		g.shortages = append(g.shortages, sh)
	}

	var errs []error
	for _, g := range groups {
		_, created, err := j.orders.MergeOrCreateDraft(ctx, g.locationID, g.supplierID, g.lines, autoOrderComment)
		switch {
		case errors.Is(err, domain.ErrLockTimeout):
			res.SkippedPairs++
			j.residuals.Put(companyID, g.shortages)
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("orden %s/%s: %w", g.locationID, g.supplierID, err))
			continue
		case created:
			res.DraftsNew++
		default:
			res.DraftsMerged++
		}
		res.Lines += len(g.lines)
	}
	j.log.Debug().Str("company_id", companyID).Int("orders", len(groups)).Int("unresolved", res.Unresolved).Msg("compra automática evaluada")
	return res, errors.Join(errs...)
}
