package main

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-replenishment/internal/application/ports"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/memory"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-replenishment/pkg/config"
	"github.com/jhoicas/stock-replenishment/pkg/logger"
)

// storage repositorios de un mismo backend.
type storage struct {
	txRunner        ports.TxRunner
	ledger          repository.StockTransactionRepository
	transfers       repository.TransferRepository
	orders          repository.OrderRepository
	thresholds      repository.ThresholdRepository
	locations       repository.LocationRepository
	stockables      repository.StockableRepository
	purchaseOptions repository.PurchaseOptionRepository
	companies       repository.CompanyRepository
	close           func()
}

func openStorage(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*storage, error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.New()
		return &storage{
			txRunner:        store,
			ledger:          store.Ledger(),
			transfers:       store.Transfers(),
			orders:          store.Orders(),
			thresholds:      store.Thresholds(),
			locations:       store.Locations(),
			stockables:      store.Stockables(),
			purchaseOptions: store.PurchaseOptions(),
			companies:       store.Companies(),
			close:           func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema aplicado")
	}
	return &storage{
		txRunner:        postgres.NewTxRunner(pool),
		ledger:          postgres.NewStockTransactionRepository(pool),
		transfers:       postgres.NewTransferRepository(pool),
		orders:          postgres.NewOrderRepository(pool),
		thresholds:      postgres.NewThresholdRepository(pool),
		locations:       postgres.NewLocationRepository(pool),
		stockables:      postgres.NewStockableRepository(pool),
		purchaseOptions: postgres.NewPurchaseOptionRepository(pool),
		companies:       postgres.NewCompanyRepository(pool),
		close:           pool.Close,
	}, nil
}
