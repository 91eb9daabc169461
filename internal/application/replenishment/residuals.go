package replenishment

import (
	"sort"
	"sync"

	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
)

// ResidualBoard traspaso en proceso de los faltantes que la redistribución no pudo cubrir
// hacia la compra automática, por empresa. Para una misma (ubicación, stockable) gana el último valor.
type ResidualBoard struct {
	mu        sync.Mutex
	byCompany map[string]map[posKey]inventory.Shortage
}

func NewResidualBoard() *ResidualBoard {
	return &ResidualBoard{byCompany: make(map[string]map[posKey]inventory.Shortage)}
}

// Put publica faltantes residuales de la empresa.
func (b *ResidualBoard) Put(companyID string, shortages []inventory.Shortage) {
	if len(shortages) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.byCompany[companyID]
	if !ok {
		m = make(map[posKey]inventory.Shortage)
		b.byCompany[companyID] = m
	}
	for _, s := range shortages {
		m[posKey{s.LocationID, s.Stockable}] = s
	}
}

// Take retira y devuelve los faltantes de la empresa en orden estable.
func (b *ResidualBoard) Take(companyID string) []inventory.Shortage {
	b.mu.Lock()
	m := b.byCompany[companyID]
	delete(b.byCompany, companyID)
	b.mu.Unlock()

	out := make([]inventory.Shortage, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Stockable.Key() < out[j].Stockable.Key()
	})
	return out
}

// Len cantidad de faltantes pendientes de la empresa.
func (b *ResidualBoard) Len(companyID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byCompany[companyID])
}
