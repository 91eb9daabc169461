package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-replenishment/internal/application/ledger"
	"github.com/jhoicas/stock-replenishment/internal/application/order"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/memory"
)

var (
	flour = entity.ItemStockable("flour")
	gram  = entity.UnitOfMeasure{Code: "g", Category: entity.UnitCategoryWeight, ToBase: decimal.NewFromInt(1)}
	sack  = entity.UnitOfMeasure{Code: "sack25kg", Category: entity.UnitCategoryWeight, ToBase: decimal.NewFromInt(25000)}
	kilo  = entity.UnitOfMeasure{Code: "kg", Category: entity.UnitCategoryWeight, ToBase: decimal.NewFromInt(1000)}
	now   = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
)

type fixture struct {
	store  *memory.Store
	events *memory.EventRecorder
	ledger *ledger.Service
	svc    *order.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	store.AddLocation(entity.Location{ID: "A", CompanyID: "c1", Active: true})
	store.AddStockable(entity.StockableInfo{Stockable: flour, CompanyID: "c1", BaseUnit: gram})
	clock := func() time.Time { return now }
	events := &memory.EventRecorder{}
	ledgerSvc := ledger.NewService(store, store.Ledger(), store.Locations(), store.Stockables(), zerolog.Nop()).WithClock(clock)
	svc := order.NewService(store, store.Orders(), store.Locations(), store.Stockables(), ledgerSvc, nil, events, zerolog.Nop()).
		WithClock(clock)
	return &fixture{store: store, events: events, ledger: ledgerSvc, svc: svc}
}

func sacks(n int64, price int64) entity.OrderLine {
	return entity.OrderLine{
		Stockable:        flour,
		PurchaseOptionID: "opt-sack",
		Quantity:         decimal.NewFromInt(n),
		Unit:             sack,
		UnitPrice:        decimal.NewFromInt(price),
	}
}

func (f *fixture) sentOrder(t *testing.T) *entity.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-1", Lines: []entity.OrderLine{sacks(2, 50000)}})
	require.NoError(t, err)
	for _, st := range []entity.OrderStatus{entity.OrderCreated, entity.OrderApproved, entity.OrderSent} {
		o, err = f.svc.Transition(ctx, o.ID, st)
		require.NoError(t, err)
	}
	return o
}

func TestCreateOrder_UnBorradorPorProveedor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-1", Lines: []entity.OrderLine{sacks(1, 10)}})
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-1", Lines: []entity.OrderLine{sacks(1, 10)}})
	assert.ErrorIs(t, err, domain.ErrDraftExists)

	_, err = f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-2", Lines: []entity.OrderLine{sacks(1, 10)}})
	assert.NoError(t, err)
	assert.Len(t, f.events.OfType(entity.EventOrderDrafted), 2)
}

func TestCreateOrder_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad := sacks(1, 10)
	bad.Unit = entity.UnitOfMeasure{Code: "l", Category: entity.UnitCategoryVolume, ToBase: decimal.NewFromInt(1000)}

	_, err := f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-1", Lines: []entity.OrderLine{bad}})
	assert.ErrorIs(t, err, domain.ErrIncompatibleUnit)
	_, err = f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", Lines: []entity.OrderLine{sacks(1, 1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "Z", SupplierID: "s", Lines: []entity.OrderLine{sacks(1, 1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "s", Lines: []entity.OrderLine{sacks(0, 1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMergeOrCreateDraft_SumaCantidades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, created, err := f.svc.MergeOrCreateDraft(ctx, "A", "sup-1", []entity.OrderLine{sacks(1, 10)}, "auto")
	require.NoError(t, err)
	assert.True(t, created)

	o2, created, err := f.svc.MergeOrCreateDraft(ctx, "A", "sup-1", []entity.OrderLine{sacks(2, 10)}, "auto")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, o.ID, o2.ID)
	require.Len(t, o2.Lines, 1)
	assert.True(t, o2.Lines[0].Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "auto\nauto", o2.Comment)
}

func TestAddLines_UnidadDistintaNoSeSuma(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-1", Lines: []entity.OrderLine{sacks(1, 50000), sacks(1, 50000)}})
	require.NoError(t, err)
	require.Len(t, o.Lines, 1, "líneas repetidas se fusionan al crear")
	assert.True(t, o.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))

	kilos := sacks(1, 2000)
	kilos.Unit = kilo
	o, err = f.svc.AddLines(ctx, o.ID, []entity.OrderLine{kilos}, "")
	require.NoError(t, err)
	require.Len(t, o.Lines, 2)
	assert.True(t, o.Lines[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "kg", o.Lines[1].Unit.Code)

	var base decimal.Decimal
	for _, l := range o.Lines {
		base = base.Add(l.BaseQuantity())
	}
	assert.True(t, base.Equal(decimal.NewFromInt(51000)), "got %s", base)
}

func TestTransition_Tabla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, order.CreateOrderInput{LocationID: "A", SupplierID: "sup-1", Lines: []entity.OrderLine{sacks(1, 10)}})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, o.ID, entity.OrderSent)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Transition(ctx, o.ID, entity.OrderDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	for _, st := range []entity.OrderStatus{entity.OrderCreated, entity.OrderSubmittedForApproval, entity.OrderApproved, entity.OrderSent, entity.OrderViewedBySupplier} {
		o, err = f.svc.Transition(ctx, o.ID, st)
		require.NoError(t, err, "transición a %s", st)
	}
	assert.Equal(t, entity.OrderViewedBySupplier, o.Status)

	_, err = f.svc.AddLines(ctx, o.ID, []entity.OrderLine{sacks(1, 10)}, "")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReceive_ContabilizaCompras(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.sentOrder(t)

	got, err := f.svc.Receive(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderDelivered, got.Status)

	onHand, err := f.ledger.TheoreticalOnHand(ctx, "A", flour, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(50000)))

	rows, err := f.ledger.ListBySourceReferenceID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UnitCost.Equal(decimal.NewFromInt(2)), "50000 por saco de 25000 g")
	assert.Len(t, f.events.OfType(entity.EventOrderReceived), 1)

	_, err = f.svc.Receive(ctx, o.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Transition(ctx, o.ID, entity.OrderCompleted)
	assert.NoError(t, err)
}

func TestReceive_FalloNoContabilizaNiCambiaEstado(t *testing.T) {
	f := newFixture(t)
	o := f.sentOrder(t)
	f.store.SetLedgerWriteHook(func(*entity.StockTransaction) error { return errors.New("boom") })

	_, err := f.svc.Receive(context.Background(), o.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrPostingFailed)
	assert.Zero(t, f.store.Ledger().Count())

	got, err := f.svc.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderSent, got.Status)
}

func TestCancel_DespuesDeRecibirAnulaAsientos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.sentOrder(t)
	_, err := f.svc.Receive(ctx, o.ID, "u1")
	require.NoError(t, err)

	got, err := f.svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, got.Status)
	assert.Zero(t, f.store.Ledger().Count())

	_, err = f.svc.Cancel(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, f.svc.DeleteDraft(ctx, o.ID))
}

func TestListOpenByCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.sentOrder(t)

	open, err := f.svc.ListOpenByCompany(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = f.svc.Receive(ctx, o.ID, "u1")
	require.NoError(t, err)
	open, err = f.svc.ListOpenByCompany(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, open)
}
