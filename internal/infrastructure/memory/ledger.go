package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/inventory"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var _ repository.StockTransactionRepository = (*LedgerRepo)(nil)

// LedgerRepo libro de inventario en memoria (usable dentro o fuera de transacción).
type LedgerRepo struct {
	store *Store
	st    *txState
}

func (r *LedgerRepo) Create(_ context.Context, tx *entity.StockTransaction) error {
	if err := r.store.runLedgerHook(tx); err != nil {
		return fmt.Errorf("create stock transaction: %w", err)
	}
	c := *tx
	return r.store.write(r.st, func(st *txState) error {
		st.ledger = append(st.ledger, &c)
		return nil
	})
}

func (r *LedgerRepo) DeleteBySourceReferenceID(_ context.Context, sourceReferenceID string) (int64, error) {
	var n int64
	err := r.store.write(r.st, func(st *txState) error {
		kept := st.ledger[:0:0]
		for _, tx := range st.ledger {
			if tx.SourceReferenceID == sourceReferenceID {
				n++
				continue
			}
			kept = append(kept, tx)
		}
		st.ledger = kept
		return nil
	})
	return n, err
}

func (r *LedgerRepo) Balance(_ context.Context, locationID string, s entity.Stockable, asOf time.Time) (repository.Balance, error) {
	b := repository.Balance{LocationID: locationID, Stockable: s}
	err := r.store.read(r.st, func(st *txState) error {
		var rows []*entity.StockTransaction
		for _, tx := range st.ledger {
			if tx.LocationID == locationID && tx.Stockable == s {
				rows = append(rows, tx)
			}
		}
		b.Quantity, b.Value = inventory.SumSigned(rows, asOf)
		return nil
	})
	return b, err
}

func (r *LedgerRepo) BalancesByLocation(_ context.Context, locationID string, asOf time.Time) ([]repository.Balance, error) {
	return r.balances(func(tx *entity.StockTransaction) bool { return tx.LocationID == locationID }, asOf)
}

func (r *LedgerRepo) BalancesByCompany(_ context.Context, companyID string, asOf time.Time) ([]repository.Balance, error) {
	return r.balances(func(tx *entity.StockTransaction) bool { return tx.CompanyID == companyID }, asOf)
}

func (r *LedgerRepo) balances(match func(*entity.StockTransaction) bool, asOf time.Time) ([]repository.Balance, error) {
	type key struct {
		loc string
		st  entity.Stockable
	}
	acc := make(map[key]*repository.Balance)
	err := r.store.read(r.st, func(st *txState) error {
		for _, tx := range st.ledger {
			if !match(tx) || tx.Date.After(asOf) {
				continue
			}
			k := key{tx.LocationID, tx.Stockable}
			b, ok := acc[k]
			if !ok {
				b = &repository.Balance{LocationID: tx.LocationID, Stockable: tx.Stockable}
				acc[k] = b
			}
			b.Quantity = b.Quantity.Add(tx.Quantity)
			b.Value = b.Value.Add(tx.TotalCost)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]repository.Balance, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Stockable.Key() < out[j].Stockable.Key()
	})
	return out, nil
}

func (r *LedgerRepo) ListBetween(_ context.Context, locationID string, from, to time.Time) ([]*entity.StockTransaction, error) {
	list := r.filter(func(tx *entity.StockTransaction) bool {
		return tx.LocationID == locationID && !tx.Date.Before(from) && !tx.Date.After(to)
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	return list, nil
}

func (r *LedgerRepo) ListByLocation(_ context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	list := r.filter(func(tx *entity.StockTransaction) bool {
		if tx.LocationID != locationID {
			return false
		}
		if from != nil && tx.Date.Before(*from) {
			return false
		}
		if to != nil && tx.Date.After(*to) {
			return false
		}
		return true
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return paginate(list, limit, offset), nil
}

func (r *LedgerRepo) ListBySourceReferenceID(_ context.Context, sourceReferenceID string) ([]*entity.StockTransaction, error) {
	return r.filter(func(tx *entity.StockTransaction) bool {
		return tx.SourceReferenceID == sourceReferenceID
	}), nil
}

func (r *LedgerRepo) filter(match func(*entity.StockTransaction) bool) []*entity.StockTransaction {
	var out []*entity.StockTransaction
	_ = r.store.read(r.st, func(st *txState) error {
		for _, tx := range st.ledger {
			if match(tx) {
				c := *tx
				out = append(out, &c)
			}
		}
		return nil
	})
	return out
}

// Count total de asientos confirmados (tests).
func (r *LedgerRepo) Count() int {
	n := 0
	_ = r.store.read(r.st, func(st *txState) error {
		n = len(st.ledger)
		return nil
	})
	return n
}
