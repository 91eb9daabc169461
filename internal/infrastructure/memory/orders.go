package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes de compra en memoria. Un solo borrador por (ubicación, proveedor).
type OrderRepo struct {
	store *Store
	st    *txState
}

func (r *OrderRepo) Create(_ context.Context, o *entity.Order) error {
	c := o.Clone()
	return r.store.write(r.st, func(st *txState) error {
		if _, ok := st.orders[c.ID]; ok {
			return fmt.Errorf("create order %s: %w", c.ID, domain.ErrConflict)
		}
		if c.Status == entity.OrderDraft {
			for _, other := range st.orders {
				if other.Status == entity.OrderDraft &&
					other.LocationID == c.LocationID && other.SupplierID == c.SupplierID {
					return domain.ErrDraftExists
				}
			}
		}
		st.orders[c.ID] = c
		return nil
	})
}

func (r *OrderRepo) Update(_ context.Context, o *entity.Order) error {
	c := o.Clone()
	return r.store.write(r.st, func(st *txState) error {
		if _, ok := st.orders[c.ID]; !ok {
			return fmt.Errorf("update order %s: %w", c.ID, domain.ErrNotFound)
		}
		st.orders[c.ID] = c
		return nil
	})
}

func (r *OrderRepo) Delete(_ context.Context, id string) error {
	return r.store.write(r.st, func(st *txState) error {
		if _, ok := st.orders[id]; !ok {
			return fmt.Errorf("delete order %s: %w", id, domain.ErrNotFound)
		}
		delete(st.orders, id)
		return nil
	})
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	var out *entity.Order
	_ = r.store.read(r.st, func(st *txState) error {
		out = st.orders[id].Clone()
		return nil
	})
	return out, nil
}

// GetForUpdate dentro de Run el escritor ya es exclusivo; equivale a GetByID.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepo) FindDraft(_ context.Context, locationID, supplierID string) (*entity.Order, error) {
	list := r.filter(func(o *entity.Order) bool {
		return o.Status == entity.OrderDraft && o.LocationID == locationID && o.SupplierID == supplierID
	})
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *OrderRepo) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.Order, error) {
	list := r.filter(func(o *entity.Order) bool {
		return o.LocationID == locationID
	})
	return paginate(list, limit, offset), nil
}

func (r *OrderRepo) ListByCompany(_ context.Context, companyID string, status *entity.OrderStatus, limit, offset int) ([]*entity.Order, error) {
	list := r.filter(func(o *entity.Order) bool {
		return o.CompanyID == companyID && (status == nil || o.Status == *status)
	})
	return paginate(list, limit, offset), nil
}

func (r *OrderRepo) ListOpenByCompany(_ context.Context, companyID string) ([]*entity.Order, error) {
	return r.filter(func(o *entity.Order) bool {
		return o.CompanyID == companyID && o.Status.IsOpen()
	}), nil
}

// filter devuelve copias ordenadas por fecha de creación descendente, luego id.
func (r *OrderRepo) filter(match func(*entity.Order) bool) []*entity.Order {
	var out []*entity.Order
	_ = r.store.read(r.st, func(st *txState) error {
		for _, o := range st.orders {
			if match(o) {
				out = append(out, o.Clone())
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
