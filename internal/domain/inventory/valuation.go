package inventory

import (
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SumSigned suma exacta de cantidades y valores con date <= asOf.
// El orden de los asientos no altera el resultado (la suma decimal es conmutativa y exacta).
func SumSigned(txs []*entity.StockTransaction, asOf time.Time) (qty, value decimal.Decimal) {
	qty, value = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Date.After(asOf) {
			continue
		}
		qty = qty.Add(tx.Quantity)
		value = value.Add(tx.TotalCost)
	}
	return qty, value
}

// AverageUnitCost costo promedio ponderado del saldo: Valor / Cantidad.
// Con saldo no positivo devuelve cero (no hay costo que trasladar).
func AverageUnitCost(qty, value decimal.Decimal) decimal.Decimal {
	if qty.LessThanOrEqual(decimal.Zero) || value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return value.DivRound(qty, 6)
}
