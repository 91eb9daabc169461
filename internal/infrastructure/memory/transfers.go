package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo traslados en memoria. Emula el índice único parcial de borradores por par.
type TransferRepo struct {
	store *Store
	st    *txState
}

func (r *TransferRepo) Create(_ context.Context, t *entity.Transfer) error {
	c := t.Clone()
	return r.store.write(r.st, func(st *txState) error {
		if _, ok := st.transfers[c.ID]; ok {
			return fmt.Errorf("create transfer %s: %w", c.ID, domain.ErrConflict)
		}
		if c.Status == entity.TransferDraft {
			for _, other := range st.transfers {
				if other.Status == entity.TransferDraft &&
					other.FromLocationID == c.FromLocationID && other.ToLocationID == c.ToLocationID {
					return domain.ErrDraftExists
				}
			}
		}
		st.transfers[c.ID] = c
		return nil
	})
}

func (r *TransferRepo) Update(_ context.Context, t *entity.Transfer) error {
	c := t.Clone()
	return r.store.write(r.st, func(st *txState) error {
		if _, ok := st.transfers[c.ID]; !ok {
			return fmt.Errorf("update transfer %s: %w", c.ID, domain.ErrNotFound)
		}
		st.transfers[c.ID] = c
		return nil
	})
}

func (r *TransferRepo) Delete(_ context.Context, id string) error {
	return r.store.write(r.st, func(st *txState) error {
		if _, ok := st.transfers[id]; !ok {
			return fmt.Errorf("delete transfer %s: %w", id, domain.ErrNotFound)
		}
		delete(st.transfers, id)
		return nil
	})
}

func (r *TransferRepo) GetByID(_ context.Context, id string) (*entity.Transfer, error) {
	var out *entity.Transfer
	_ = r.store.read(r.st, func(st *txState) error {
		out = st.transfers[id].Clone()
		return nil
	})
	return out, nil
}

// GetForUpdate dentro de Run el escritor ya es exclusivo; equivale a GetByID.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *TransferRepo) FindDraftBetween(_ context.Context, fromLocationID, toLocationID string) (*entity.Transfer, error) {
	list := r.filter(func(t *entity.Transfer) bool {
		return t.Status == entity.TransferDraft && t.FromLocationID == fromLocationID && t.ToLocationID == toLocationID
	})
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *TransferRepo) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.Transfer, error) {
	list := r.filter(func(t *entity.Transfer) bool {
		return t.FromLocationID == locationID || t.ToLocationID == locationID
	})
	return paginate(list, limit, offset), nil
}

func (r *TransferRepo) ListByCompany(_ context.Context, companyID string, status *entity.TransferStatus, limit, offset int) ([]*entity.Transfer, error) {
	list := r.filter(func(t *entity.Transfer) bool {
		return t.CompanyID == companyID && (status == nil || t.Status == *status)
	})
	return paginate(list, limit, offset), nil
}

func (r *TransferRepo) ListOpenByCompany(_ context.Context, companyID string) ([]*entity.Transfer, error) {
	return r.filter(func(t *entity.Transfer) bool {
		return t.CompanyID == companyID && t.Status.IsOpen()
	}), nil
}

// filter devuelve copias ordenadas por fecha de creación descendente, luego id.
func (r *TransferRepo) filter(match func(*entity.Transfer) bool) []*entity.Transfer {
	var out []*entity.Transfer
	_ = r.store.read(r.st, func(st *txState) error {
		for _, t := range st.transfers {
			if match(t) {
				out = append(out, t.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
