package inventory

import (
	"sort"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// TieBreakPolicy regla de elección de donante.
type TieBreakPolicy string

const (
	// LargestSurplusLowestID mayor excedente primero; empate por id de ubicación más bajo.
	LargestSurplusLowestID TieBreakPolicy = "largest_surplus"
	// LowestID id de ubicación más bajo entre los donantes con excedente.
	LowestID TieBreakPolicy = "lowest_id"
)

// ParseTieBreakPolicy acepta el valor de configuración; vacío o desconocido usa el default.
func ParseTieBreakPolicy(s string) TieBreakPolicy {
	if TieBreakPolicy(s) == LowestID {
		return LowestID
	}
	return LargestSurplusLowestID
}

// Position foto de un stockable en una ubicación al momento del escaneo.
// Incoming y Outgoing son cantidades en traslados abiertos (y órdenes abiertas, para Incoming).
type Position struct {
	LocationID string
	Stockable  entity.Stockable
	OnHand     decimal.Decimal
	Incoming   decimal.Decimal
	Outgoing   decimal.Decimal
	MinOnHand  decimal.Decimal
	ParLevel   decimal.Decimal
}

// Projected stock esperado una vez lleguen y salgan los traslados abiertos.
func (p Position) Projected() decimal.Decimal {
	return p.OnHand.Add(p.Incoming).Sub(p.Outgoing)
}

// Deficit max(0, MinOnHand − (OnHand + Incoming)).
func (p Position) Deficit() decimal.Decimal {
	d := p.MinOnHand.Sub(p.OnHand.Add(p.Incoming))
	if d.IsPositive() {
		return d
	}
	return decimal.Zero
}

// Surplus max(0, (OnHand − Outgoing) − ParLevel). Entregar el excedente deja al donante en su par,
// y por lo tanto nunca por debajo de su mínimo.
func (p Position) Surplus() decimal.Decimal {
	s := p.OnHand.Sub(p.Outgoing).Sub(p.ParLevel)
	if s.IsPositive() {
		return s
	}
	return decimal.Zero
}

// Shortage faltante de un stockable en una ubicación.
type Shortage struct {
	LocationID string
	Stockable  entity.Stockable
	Deficit    decimal.Decimal
}

// Move cantidad a trasladar entre dos ubicaciones (unidad base).
type Move struct {
	FromLocationID string
	ToLocationID   string
	Stockable      entity.Stockable
	Quantity       decimal.Decimal
}

// PlanOptions parámetros del emparejamiento.
type PlanOptions struct {
	TieBreak TieBreakPolicy
	// AllowSplit permite cubrir un faltante con varios donantes en cascada.
	AllowSplit bool
}

// Plan resultado: traslados propuestos y faltantes residuales para compras.
type Plan struct {
	Moves    []Move
	Residual []Shortage
}

// FindShortages devuelve los faltantes con déficit > 0, ordenados por stockable, déficit desc e id.
func FindShortages(positions []Position) []Shortage {
	var out []Shortage
	for _, p := range positions {
		if d := p.Deficit(); d.IsPositive() {
			out = append(out, Shortage{LocationID: p.LocationID, Stockable: p.Stockable, Deficit: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Stockable != b.Stockable {
			return a.Stockable.Key() < b.Stockable.Key()
		}
		if !a.Deficit.Equal(b.Deficit) {
			return a.Deficit.GreaterThan(b.Deficit)
		}
		return a.LocationID < b.LocationID
	})
	return out
}

type donor struct {
	locationID string
	surplus    decimal.Decimal
}

// PlanRedistribution emparejamiento voraz faltante→donante. No es óptimo globalmente;
// se ejecuta en cada tick y las pasadas siguientes corrigen desequilibrios.
// El excedente asignado se descuenta del donante para no comprometerlo dos veces.
func PlanRedistribution(positions []Position, opts PlanOptions) Plan {
	// 1. Excedentes por stockable
	donors := make(map[entity.Stockable][]*donor)
	for _, p := range positions {
		if s := p.Surplus(); s.IsPositive() {
			donors[p.Stockable] = append(donors[p.Stockable], &donor{locationID: p.LocationID, surplus: s})
		}
	}

	// 2. Faltantes en orden determinista
	var plan Plan
	for _, sh := range FindShortages(positions) {
		remaining := sh.Deficit
		for remaining.IsPositive() {
			d := pickDonor(donors[sh.Stockable], sh.LocationID, opts.TieBreak)
			if d == nil {
				break
			}
			qty := decimal.Min(remaining, d.surplus)
			d.surplus = d.surplus.Sub(qty)
			remaining = remaining.Sub(qty)
			plan.Moves = append(plan.Moves, Move{
				FromLocationID: d.locationID,
				ToLocationID:   sh.LocationID,
				Stockable:      sh.Stockable,
				Quantity:       qty,
			})
			if !opts.AllowSplit {
				break
			}
		}
		// 3. Lo no cubierto pasa a compras
		if remaining.IsPositive() {
			plan.Residual = append(plan.Residual, Shortage{
				LocationID: sh.LocationID,
				Stockable:  sh.Stockable,
				Deficit:    remaining,
			})
		}
	}
	return plan
}

func pickDonor(candidates []*donor, exclude string, policy TieBreakPolicy) *donor {
	var best *donor
	for _, d := range candidates {
		if d.locationID == exclude || !d.surplus.IsPositive() {
			continue
		}
		if best == nil || better(d, best, policy) {
			best = d
		}
	}
	return best
}

func better(a, b *donor, policy TieBreakPolicy) bool {
	if policy == LargestSurplusLowestID && !a.surplus.Equal(b.surplus) {
		return a.surplus.GreaterThan(b.surplus)
	}
	return a.locationID < b.locationID
}

// GroupMoves agrupa los movimientos por par ordenado (origen, destino), preservando el orden de aparición.
func GroupMoves(moves []Move) [][]Move {
	type pair struct{ from, to string }
	idx := make(map[pair]int)
	var groups [][]Move
	for _, m := range moves {
		k := pair{m.FromLocationID, m.ToLocationID}
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}
