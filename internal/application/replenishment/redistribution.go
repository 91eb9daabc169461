package replenishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/application/transfer"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/pkg/keylock"
	"github.com/rs/zerolog"
)

const (
	JobRedistribution = "redistribution"
	JobAutoOrder      = "auto-order"

	redistributionComment = "redistribución automática"
)

// CompanyResult resumen de una pasada de un job sobre una empresa.
type CompanyResult struct {
	CompanyID    string `json:"company_id"`
	Shortages    int    `json:"shortages"`
	Lines        int    `json:"lines"`
	DraftsNew    int    `json:"drafts_new"`
	DraftsMerged int    `json:"drafts_merged"`
	Residual     int    `json:"residual"`
	Unresolved   int    `json:"unresolved"`
	SkippedPairs int    `json:"skipped_pairs"`
}

// companyLockKey sección crítica compartida por ambos jobs sobre una empresa: la compra automática
// nunca lee un estado a medio escribir por la redistribución.
func companyLockKey(companyID string) string {
	return "replenishment:" + companyID
}

func lockCompany(ctx context.Context, locks *keylock.Locker, companyID string, timeout time.Duration) (func(), error) {
	unlock, err := locks.Lock(ctx, companyLockKey(companyID), timeout)
	if errors.Is(err, keylock.ErrTimeout) {
		return nil, fmt.Errorf("%w: empresa %s", domain.ErrLockTimeout, companyID)
	}
	return unlock, err
}

// RedistributionOptions parámetros de la redistribución.
type RedistributionOptions struct {
	Plan        inventory.PlanOptions
	LockTimeout time.Duration
}

// RedistributionJob cubre faltantes con excedentes de otras ubicaciones de la misma empresa
// mediante borradores de traslado. Lo no cubierto queda en el ResidualBoard para compras.
type RedistributionJob struct {
	snapshots *Snapshotter
	transfers *transfer.Service
	residuals *ResidualBoard
	locks     *keylock.Locker
	opts      RedistributionOptions
	now       func() time.Time
	log       zerolog.Logger
}

func NewRedistributionJob(
	snapshots *Snapshotter,
	transfers *transfer.Service,
	residuals *ResidualBoard,
	locks *keylock.Locker,
	opts RedistributionOptions,
	log zerolog.Logger,
) *RedistributionJob {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 2 * time.Second
	}
	return &RedistributionJob{
		snapshots: snapshots,
		transfers: transfers,
		residuals: residuals,
		locks:     locks,
		opts:      opts,
		now:       time.Now,
		log:       log,
	}
}

func (j *RedistributionJob) WithClock(now func() time.Time) *RedistributionJob {
	j.now = now
	return j
}

func (j *RedistributionJob) Name() string { return JobRedistribution }

// RunCompany una pasada completa sobre la empresa. Un par bloqueado se omite y se reintenta en el
// siguiente tick; los errores de un par no detienen a los demás.
func (j *RedistributionJob) RunCompany(ctx context.Context, companyID string) (CompanyResult, error) {
	res := CompanyResult{CompanyID: companyID}
	unlock, err := lockCompany(ctx, j.locks, companyID, j.opts.LockTimeout)
	if err != nil {
		return res, err
	}
	defer unlock()

	positions, err := j.snapshots.Positions(ctx, companyID, j.now())
	if err != nil {
		return res, err
	}
	plan := inventory.PlanRedistribution(positions, j.opts.Plan)
	res.Shortages = len(inventory.FindShortages(positions))
	res.Residual = len(plan.Residual)

	var errs []error
	for _, group := range inventory.GroupMoves(plan.Moves) {
		from, to := group[0].FromLocationID, group[0].ToLocationID
		lines := make([]entity.TransferLine, 0, len(group))
		for _, m := range group {
			lines = append(lines, entity.TransferLine{Stockable: m.Stockable, Quantity: m.Quantity})
		}
		_, created, err := j.transfers.MergeOrCreateDraft(ctx, from, to, lines, redistributionComment)
		switch {
		case errors.Is(err, domain.ErrLockTimeout):
			res.SkippedPairs++
			j.log.Warn().Str("company_id", companyID).Str("from", from).Str("to", to).Msg("par ocupado, se reintenta en el próximo tick")
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("par %s→%s: %w", from, to, err))
			continue
		case created:
			res.DraftsNew++
		default:
			res.DraftsMerged++
		}
		res.Lines += len(lines)
	}

	j.residuals.Put(companyID, plan.Residual)
	j.log.Debug().Str("company_id", companyID).Int("shortages", res.Shortages).Int("moves", len(plan.Moves)).
		Int("residual", res.Residual).Msg("redistribución evaluada")
	return res, errors.Join(errs...)
}
