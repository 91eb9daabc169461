package replenishment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-replenishment/internal/application/ledger"
	"github.com/jhoicas/stock-replenishment/internal/application/order"
	"github.com/jhoicas/stock-replenishment/internal/application/replenishment"
	"github.com/jhoicas/stock-replenishment/internal/application/threshold"
	"github.com/jhoicas/stock-replenishment/internal/application/transfer"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/memory"
	"github.com/jhoicas/stock-replenishment/pkg/keylock"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var (
	flour = entity.ItemStockable("flour")
	gram  = entity.UnitOfMeasure{Code: "g", Category: entity.UnitCategoryWeight, ToBase: decimal.NewFromInt(1)}
	now   = time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)
)

type engine struct {
	store          *memory.Store
	ledger         *ledger.Service
	transfers      *transfer.Service
	orders         *order.Service
	thresholds     *threshold.Service
	board          *replenishment.ResidualBoard
	redistribution *replenishment.RedistributionJob
	autoOrder      *replenishment.AutoOrderJob
	scheduler      *replenishment.Scheduler
}

func newEngine(t *testing.T, opts inventory.PlanOptions) *engine {
	t.Helper()
	store := memory.New()
	store.AddCompany(entity.Company{ID: "c1", Status: entity.CompanyStatusActive})
	for _, id := range []string{"A", "B", "C"} {
		store.AddLocation(entity.Location{ID: id, CompanyID: "c1", Active: true})
	}
	store.AddStockable(entity.StockableInfo{Stockable: flour, CompanyID: "c1", BaseUnit: gram})

	clock := func() time.Time { return now }
	log := zerolog.Nop()
	locks := keylock.New()
	events := &memory.EventRecorder{}
	e := &engine{store: store, board: replenishment.NewResidualBoard()}
	e.ledger = ledger.NewService(store, store.Ledger(), store.Locations(), store.Stockables(), log).WithClock(clock)
	e.transfers = transfer.NewService(store, store.Transfers(), store.Locations(), store.Stockables(), e.ledger, locks, events, log).WithClock(clock)
	e.orders = order.NewService(store, store.Orders(), store.Locations(), store.Stockables(), e.ledger, locks, events, log).WithClock(clock)
	e.thresholds = threshold.NewService(store.Thresholds(), store.Locations(), store.Stockables(), log)

	snap := replenishment.NewSnapshotter(store.Locations(), store.Thresholds(), store.Ledger(), store.Transfers(), store.Orders())
	e.redistribution = replenishment.NewRedistributionJob(snap, e.transfers, e.board, locks,
		replenishment.RedistributionOptions{Plan: opts, LockTimeout: time.Second}, log).WithClock(clock)
	e.autoOrder = replenishment.NewAutoOrderJob(snap, store.PurchaseOptions(), e.orders, e.board, locks, time.Second, log).WithClock(clock)

	e.scheduler = replenishment.NewScheduler(store.Companies(), log)
	e.scheduler.Register(e.redistribution, replenishment.JobConfig{Period: time.Minute, Workers: 2, QueueSize: 4})
	e.scheduler.Register(e.autoOrder, replenishment.JobConfig{Period: time.Minute, Workers: 2, QueueSize: 4})
	t.Cleanup(func() { _ = e.scheduler.Shutdown(context.Background()) })
	return e
}

func (e *engine) stock(t *testing.T, loc string, qty, min, par int64) {
	t.Helper()
	ctx := context.Background()
	if qty != 0 {
		_, err := e.ledger.RecordAdjustment(ctx, loc, flour, decimal.NewFromInt(qty), decimal.NewFromInt(1), "init-"+loc, now.Add(-time.Hour))
		require.NoError(t, err)
	}
	_, err := e.thresholds.Set(ctx, loc, flour, decimal.NewFromInt(min), decimal.NewFromInt(par))
	require.NoError(t, err)
}

func (e *engine) onHand(t *testing.T, loc string) decimal.Decimal {
	t.Helper()
	q, err := e.ledger.TheoreticalOnHand(context.Background(), loc, flour, now.Add(time.Hour))
	require.NoError(t, err)
	return q
}

func (e *engine) complete(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.transfers.Send(ctx, id)
	require.NoError(t, err)
	_, err = e.transfers.Receive(ctx, id)
	require.NoError(t, err)
	_, err = e.transfers.CompleteTransfer(ctx, id, "u1")
	require.NoError(t, err)
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// ──────────────────────────────────────────────────────────────────────────────
// Redistribución
// ──────────────────────────────────────────────────────────────────────────────

func TestRedistribucion_EscenarioDosUbicaciones(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.stock(t, "A", 100, 20, 80)
	e.stock(t, "B", 5, 20, 50)
	ctx := context.Background()

	report, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Empty(t, report.Failed)

	draft, err := e.transfers.FindDraftBetween(ctx, "A", "B")
	require.NoError(t, err)
	require.NotNil(t, draft)
	require.Len(t, draft.Lines, 1)
	assert.True(t, draft.Lines[0].Quantity.Equal(d(15)), "got %s", draft.Lines[0].Quantity)

	e.complete(t, draft.ID)
	assert.True(t, e.onHand(t, "A").Equal(d(85)))
	assert.True(t, e.onHand(t, "B").Equal(d(20)))

	last, ok := e.scheduler.LastReport(replenishment.JobRedistribution)
	require.True(t, ok)
	require.Len(t, last.Results, 1)
	assert.Equal(t, 1, last.Results[0].DraftsNew)
}

func TestRedistribucion_SegundaPasadaNoDuplica(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.stock(t, "A", 100, 20, 80)
	e.stock(t, "B", 5, 20, 50)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
		require.NoError(t, err)
	}
	draft, err := e.transfers.FindDraftBetween(ctx, "A", "B")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.True(t, draft.Lines[0].Quantity.Equal(d(15)))
}

func TestRedistribucion_TicksConcurrentesUnSoloBorrador(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.stock(t, "A", 100, 20, 80)
	e.stock(t, "B", 5, 20, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.redistribution.RunCompany(ctx, "c1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	drafts, err := e.transfers.ListOpenByCompany(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.True(t, drafts[0].Lines[0].Quantity.Equal(d(15)))

	e.complete(t, drafts[0].ID)
	assert.True(t, e.onHand(t, "A").Equal(d(85)))
	assert.True(t, e.onHand(t, "B").Equal(d(20)))
}

func TestRedistribucion_DonanteNuncaBajoSuMinimo(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.stock(t, "A", 60, 20, 50)
	e.stock(t, "B", 0, 30, 40)
	ctx := context.Background()

	_, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)

	draft, err := e.transfers.FindDraftBetween(ctx, "A", "B")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.True(t, draft.Lines[0].Quantity.Equal(d(10)))
	e.complete(t, draft.ID)
	assert.True(t, e.onHand(t, "A").GreaterThanOrEqual(d(20)))
	assert.Equal(t, 1, e.board.Len("c1"), "el resto del faltante queda para compras")
}

func TestRedistribucion_SinUmbralNoEsDonante(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.stock(t, "B", 0, 10, 20)
	_, err := e.ledger.RecordPurchase(context.Background(), "C", flour, d(500), d(1), "po", now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = e.scheduler.RunNow(context.Background(), replenishment.JobRedistribution)
	require.NoError(t, err)
	open, err := e.transfers.ListOpenByCompany(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRedistribucion_DivisionEntreDonantes(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{AllowSplit: true})
	e.stock(t, "A", 30, 10, 20)
	e.stock(t, "C", 28, 10, 20)
	e.stock(t, "B", 0, 15, 30)
	ctx := context.Background()

	_, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)

	fromA, err := e.transfers.FindDraftBetween(ctx, "A", "B")
	require.NoError(t, err)
	fromC, err := e.transfers.FindDraftBetween(ctx, "C", "B")
	require.NoError(t, err)
	require.NotNil(t, fromA)
	require.NotNil(t, fromC)
	assert.True(t, fromA.Lines[0].Quantity.Equal(d(10)))
	assert.True(t, fromC.Lines[0].Quantity.Equal(d(5)))
	assert.Zero(t, e.board.Len("c1"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Compra automática
// ──────────────────────────────────────────────────────────────────────────────

func TestCompraAutomatica_PideHastaParEnUnidadesEnteras(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.store.AddPurchaseOption(entity.PurchaseOption{
		ID: "opt-1kg", CompanyID: "c1", SupplierID: "sup-1", Stockable: flour, Enabled: true,
		Unit:      entity.UnitOfMeasure{Code: "bag1kg", Category: entity.UnitCategoryWeight, ToBase: d(1000)},
		UnitPrice: d(3000),
	})
	e.stock(t, "B", 200, 1000, 2500)
	ctx := context.Background()

	_, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)
	require.Equal(t, 1, e.board.Len("c1"))

	report, err := e.scheduler.RunNow(ctx, replenishment.JobAutoOrder)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Results[0].DraftsNew)

	draft, err := e.orders.FindDraft(ctx, "B", "sup-1")
	require.NoError(t, err)
	require.NotNil(t, draft)
	require.Len(t, draft.Lines, 1)
	// par 2500 − 200 = 2300 g → 3 bolsas de 1 kg
	assert.True(t, draft.Lines[0].Quantity.Equal(d(3)), "got %s", draft.Lines[0].Quantity)
	assert.Equal(t, "opt-1kg", draft.Lines[0].PurchaseOptionID)

	// la orden abierta cuenta como entrante: nada más que pedir
	_, err = e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)
	assert.Zero(t, e.board.Len("c1"))
	report, err = e.scheduler.RunNow(ctx, replenishment.JobAutoOrder)
	require.NoError(t, err)
	assert.Zero(t, report.Results[0].DraftsNew+report.Results[0].DraftsMerged)
}

func TestCompraAutomatica_SinOpcionQuedaSinResolver(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.store.AddPurchaseOption(entity.PurchaseOption{ID: "off", CompanyID: "c1", SupplierID: "s", Stockable: flour, Unit: gram, Enabled: false})
	e.stock(t, "B", 0, 10, 20)
	ctx := context.Background()

	_, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)
	report, err := e.scheduler.RunNow(ctx, replenishment.JobAutoOrder)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Results[0].Unresolved)

	open, err := e.orders.ListOpenByCompany(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCompraAutomatica_ResidualYaCubiertoSeDescarta(t *testing.T) {
	e := newEngine(t, inventory.PlanOptions{})
	e.store.AddPurchaseOption(entity.PurchaseOption{ID: "o", CompanyID: "c1", SupplierID: "s", Stockable: flour, Unit: gram, UnitPrice: d(1), Enabled: true})
	e.stock(t, "B", 0, 10, 20)
	ctx := context.Background()

	_, err := e.scheduler.RunNow(ctx, replenishment.JobRedistribution)
	require.NoError(t, err)
	// llega mercancía antes de la compra automática
	_, err = e.ledger.RecordPurchase(ctx, "B", flour, d(15), d(1), "manual", now.Add(-time.Minute))
	require.NoError(t, err)

	report, err := e.scheduler.RunNow(ctx, replenishment.JobAutoOrder)
	require.NoError(t, err)
	assert.Zero(t, report.Results[0].Shortages)
}
