package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
)

func TestNewStockable_EleccionExclusiva(t *testing.T) {
	item, sub := "i1", "s1"
	empty := ""

	s, err := entity.NewStockable(&item, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StockableItem, s.Kind())
	assert.Nil(t, s.SubRecipeID())
	require.NotNil(t, s.ItemID())
	assert.Equal(t, "i1", *s.ItemID())

	s, err = entity.NewStockable(&empty, &sub)
	require.NoError(t, err)
	assert.Equal(t, "SUB_RECIPE:s1", s.Key())

	_, err = entity.NewStockable(&item, &sub)
	assert.Error(t, err)
	_, err = entity.NewStockable(nil, nil)
	assert.Error(t, err)

	assert.False(t, entity.Stockable{}.Valid())
	_, err = entity.ParseStockable("WIDGET", "x")
	assert.Error(t, err)
	parsed, err := entity.ParseStockable("ITEM", "i1")
	require.NoError(t, err)
	assert.Equal(t, entity.ItemStockable("i1"), parsed, "comparable como clave de mapa")
}

func TestTransactionType_SignedQuantity(t *testing.T) {
	five := decimal.NewFromInt(5)
	assert.True(t, entity.TransactionPurchase.SignedQuantity(five).Equal(five))
	assert.True(t, entity.TransactionTransferIn.SignedQuantity(five.Neg()).Equal(five))
	assert.True(t, entity.TransactionTransferOut.SignedQuantity(five).Equal(five.Neg()))
	assert.True(t, entity.TransactionUsage.SignedQuantity(five).Equal(five.Neg()))
	assert.True(t, entity.TransactionAdjustment.SignedQuantity(five.Neg()).Equal(five.Neg()))
}

func TestTransferStatus_Tabla(t *testing.T) {
	legal := map[entity.TransferStatus][]entity.TransferStatus{
		entity.TransferDraft:    {entity.TransferSent, entity.TransferCancelled},
		entity.TransferSent:     {entity.TransferReceived, entity.TransferCancelled},
		entity.TransferReceived: {entity.TransferCompleted, entity.TransferCancelled},
	}
	all := []entity.TransferStatus{entity.TransferDraft, entity.TransferSent, entity.TransferReceived, entity.TransferCompleted, entity.TransferCancelled}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range legal[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTransfer_TransitionToSellaFechas(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &entity.Transfer{ID: "t1", Status: entity.TransferDraft}
	require.NoError(t, tr.TransitionTo(entity.TransferSent, now))
	require.NotNil(t, tr.SentAt)
	assert.Error(t, tr.TransitionTo(entity.TransferCompleted, now))
	assert.Equal(t, entity.TransferSent, tr.Status)
}

func TestTransfer_MergeLinesConvierteUnidades(t *testing.T) {
	kg := entity.UnitOfMeasure{Code: "kg", Category: entity.UnitCategoryWeight, ToBase: decimal.NewFromInt(1000)}
	g := entity.UnitOfMeasure{Code: "g", Category: entity.UnitCategoryWeight, ToBase: decimal.NewFromInt(1)}
	flour := entity.ItemStockable("flour")
	tr := &entity.Transfer{Status: entity.TransferDraft, Lines: []entity.TransferLine{{Stockable: flour, Quantity: decimal.NewFromInt(2), Unit: kg}}}

	require.NoError(t, tr.MergeLines([]entity.TransferLine{{Stockable: flour, Quantity: decimal.NewFromInt(500), Unit: g}}, nil))
	require.Len(t, tr.Lines, 1)
	assert.True(t, tr.Lines[0].Quantity.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, tr.Lines[0].BaseQuantity().Equal(decimal.NewFromInt(2500)))

	clone := tr.Clone()
	clone.Lines[0].Quantity = decimal.Zero
	assert.False(t, tr.Lines[0].Quantity.IsZero(), "Clone no comparte líneas")
}

func TestTransfer_MergeLinesNoRedondea(t *testing.T) {
	und := entity.UnitOfMeasure{Code: "und", Category: entity.UnitCategoryCount, ToBase: decimal.NewFromInt(1)}
	caja12 := entity.UnitOfMeasure{Code: "caja12", Category: entity.UnitCategoryCount, ToBase: decimal.NewFromInt(12)}
	caja3 := entity.UnitOfMeasure{Code: "caja3", Category: entity.UnitCategoryCount, ToBase: decimal.NewFromInt(3)}
	caja7 := entity.UnitOfMeasure{Code: "caja7", Category: entity.UnitCategoryCount, ToBase: decimal.NewFromInt(7)}
	eggs := entity.ItemStockable("eggs")

	tr := &entity.Transfer{Status: entity.TransferDraft, Lines: []entity.TransferLine{{Stockable: eggs, Quantity: decimal.NewFromInt(1), Unit: caja12}}}
	require.NoError(t, tr.MergeLines([]entity.TransferLine{{Stockable: eggs, Quantity: decimal.NewFromInt(1), Unit: und}}, nil))
	assert.True(t, tr.Lines[0].BaseQuantity().Equal(decimal.NewFromInt(13)), "got %s", tr.Lines[0].BaseQuantity())

	// sin unidad base conocida la fusión inexacta se rechaza y el borrador queda intacto
	tr = &entity.Transfer{Status: entity.TransferDraft, Lines: []entity.TransferLine{{Stockable: eggs, Quantity: decimal.NewFromInt(1), Unit: caja3}}}
	assert.Error(t, tr.MergeLines([]entity.TransferLine{{Stockable: eggs, Quantity: decimal.NewFromInt(1), Unit: caja7}}, nil))
	assert.True(t, tr.Lines[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "caja3", tr.Lines[0].Unit.Code)

	bases := map[entity.Stockable]entity.UnitOfMeasure{eggs: und}
	require.NoError(t, tr.MergeLines([]entity.TransferLine{{Stockable: eggs, Quantity: decimal.NewFromInt(1), Unit: caja7}}, bases))
	assert.Equal(t, "und", tr.Lines[0].Unit.Code)
	assert.True(t, tr.Lines[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestOrderStatus_CancelarDesdeNoTerminal(t *testing.T) {
	for _, s := range []entity.OrderStatus{entity.OrderDraft, entity.OrderCreated, entity.OrderSent, entity.OrderDelivered} {
		assert.True(t, s.CanTransitionTo(entity.OrderCancelled), string(s))
	}
	assert.False(t, entity.OrderCompleted.CanTransitionTo(entity.OrderCancelled))
	assert.False(t, entity.OrderCancelled.CanTransitionTo(entity.OrderCancelled))
	assert.True(t, entity.OrderCreated.CanTransitionTo(entity.OrderApproved))
	assert.True(t, entity.OrderSent.CanTransitionTo(entity.OrderDelivered))
	assert.False(t, entity.OrderDraft.CanTransitionTo(entity.OrderSent))
	assert.True(t, entity.OrderApproved.IsOpen())
	assert.False(t, entity.OrderDelivered.IsOpen())
}

func TestThreshold_Validate(t *testing.T) {
	th := entity.Threshold{LocationID: "A", Stockable: entity.ItemStockable("x"), MinOnHand: decimal.NewFromInt(5), ParLevel: decimal.NewFromInt(4)}
	assert.Error(t, th.Validate())
	th.ParLevel = decimal.NewFromInt(5)
	assert.NoError(t, th.Validate())
}
