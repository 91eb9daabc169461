package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-replenishment/internal/application/ports"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// maxTxAttempts intentos ante deadlock o fallo de serialización. Dos completados que tocan las
// mismas ubicaciones en orden inverso pueden bloquearse mutuamente; Postgres aborta a uno.
const maxTxAttempts = 3

// TxBeginner lo cumple *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con los repos
// transaccionales (ledger, traslados, órdenes) atados a la tx.
type TxRunner struct {
	db TxBeginner
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(db TxBeginner) *TxRunner {
	return &TxRunner{db: db}
}

// Run ejecuta fn en una transacción y hace Commit o Rollback. Si Postgres aborta la tx por
// deadlock o serialización, fn se repite desde cero: no debe tener efectos fuera de r.
func (r *TxRunner) Run(ctx context.Context, fn func(r ports.TxRepos) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", maxTxAttempts, err)
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(r ports.TxRepos) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := ports.TxRepos{
		Ledger:    NewStockTransactionRepository(tx),
		Transfers: NewTransferRepository(tx),
		Orders:    NewOrderRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
