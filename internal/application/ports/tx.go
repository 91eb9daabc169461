package ports

import (
	"context"

	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Ledger    repository.StockTransactionRepository
	Transfers repository.TransferRepository
	Orders    repository.OrderRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso. Garantiza que las contabilizaciones
// de un traslado u orden se escriben todas o ninguna.
type TxRunner interface {
	Run(ctx context.Context, fn func(r TxRepos) error) error
}
