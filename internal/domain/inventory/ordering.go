package inventory

import (
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SelectPurchaseOption elige la opción principal habilitada; si no hay, la más barata por unidad base
// (empate por id más bajo). Devuelve nil si no hay opciones habilitadas.
func SelectPurchaseOption(options []*entity.PurchaseOption) *entity.PurchaseOption {
	var main, cheapest *entity.PurchaseOption
	for _, o := range options {
		if o == nil || !o.Enabled {
			continue
		}
		if o.IsMain && (main == nil || o.ID < main.ID) {
			main = o
		}
		if cheapest == nil {
			cheapest = o
			continue
		}
		a, b := baseUnitPrice(o), baseUnitPrice(cheapest)
		if a.LessThan(b) || (a.Equal(b) && o.ID < cheapest.ID) {
			cheapest = o
		}
	}
	if main != nil {
		return main
	}
	return cheapest
}

func baseUnitPrice(o *entity.PurchaseOption) decimal.Decimal {
	if o.Unit.ToBase.IsPositive() {
		return o.UnitPrice.DivRound(o.Unit.ToBase, 12)
	}
	return o.UnitPrice
}

// PurchaseQuantity unidades de compra enteras necesarias para cubrir need (unidad base), redondeando hacia arriba.
func PurchaseQuantity(need decimal.Decimal, opt *entity.PurchaseOption) decimal.Decimal {
	if !need.IsPositive() {
		return decimal.Zero
	}
	if !opt.Unit.ToBase.IsPositive() {
		return need.Ceil()
	}
	return need.Div(opt.Unit.ToBase).Ceil()
}
