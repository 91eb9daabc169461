package threshold_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-replenishment/internal/application/threshold"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/infrastructure/memory"
)

func TestSet_ValidaYReemplaza(t *testing.T) {
	store := memory.New()
	store.AddLocation(entity.Location{ID: "A", CompanyID: "c1"})
	flour := entity.ItemStockable("flour")
	store.AddStockable(entity.StockableInfo{Stockable: flour, CompanyID: "c1"})
	svc := threshold.NewService(store.Thresholds(), store.Locations(), store.Stockables(), zerolog.Nop())
	ctx := context.Background()

	cases := []struct {
		name     string
		min, par int64
		wantErr  bool
	}{
		{"min negativo", -1, 10, true},
		{"par menor que min", 10, 5, true},
		{"válido", 20, 80, false},
		{"min igual a par", 30, 30, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Set(ctx, "A", flour, decimal.NewFromInt(tc.min), decimal.NewFromInt(tc.par))
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}

	got, err := svc.Get(ctx, "A", flour)
	require.NoError(t, err)
	assert.True(t, got.MinOnHand.Equal(decimal.NewFromInt(30)), "la última escritura gana")
	assert.Equal(t, "c1", got.CompanyID)

	list, err := svc.ListByCompany(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, "A", flour))
	_, err = svc.Get(ctx, "A", flour)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Set(ctx, "Z", flour, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
