package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var (
	_ repository.CompanyRepository        = (*CompanyRepo)(nil)
	_ repository.LocationRepository       = (*LocationRepo)(nil)
	_ repository.StockableRepository      = (*StockableRepo)(nil)
	_ repository.PurchaseOptionRepository = (*PurchaseOptionRepo)(nil)
	_ repository.ThresholdRepository      = (*ThresholdRepo)(nil)
)

// AddCompany registra una empresa (datos maestros de prueba).
func (s *Store) AddCompany(c entity.Company) {
	s.masterMu.Lock()
	defer s.masterMu.Unlock()
	s.companies[c.ID] = &c
}

// AddLocation registra una ubicación.
func (s *Store) AddLocation(l entity.Location) {
	s.masterMu.Lock()
	defer s.masterMu.Unlock()
	s.locations[l.ID] = &l
}

// AddStockable registra un insumo o sub-receta con su unidad base.
func (s *Store) AddStockable(info entity.StockableInfo) {
	s.masterMu.Lock()
	defer s.masterMu.Unlock()
	s.stockables[info.Stockable] = &info
}

// AddPurchaseOption registra una opción de compra.
func (s *Store) AddPurchaseOption(o entity.PurchaseOption) {
	s.masterMu.Lock()
	defer s.masterMu.Unlock()
	s.options[o.ID] = &o
}

type CompanyRepo struct{ store *Store }

func (r *CompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	c, ok := r.store.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *CompanyRepo) ListActiveIDs(_ context.Context) ([]string, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	var ids []string
	for id, c := range r.store.companies {
		if c.Status == entity.CompanyStatusActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type LocationRepo struct{ store *Store }

func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	l, ok := r.store.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *LocationRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.Location, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	var out []*entity.Location
	for _, l := range r.store.locations {
		if l.CompanyID == companyID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type StockableRepo struct{ store *Store }

func (r *StockableRepo) GetInfo(_ context.Context, st entity.Stockable) (*entity.StockableInfo, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	info, ok := r.store.stockables[st]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

type PurchaseOptionRepo struct{ store *Store }

func (r *PurchaseOptionRepo) ListByStockable(_ context.Context, companyID string, st entity.Stockable) ([]*entity.PurchaseOption, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	var out []*entity.PurchaseOption
	for _, o := range r.store.options {
		if o.CompanyID == companyID && o.Stockable == st {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ThresholdRepo mínimos y niveles par; Upsert reemplaza (última escritura gana).
type ThresholdRepo struct{ store *Store }

func (r *ThresholdRepo) Get(_ context.Context, locationID string, st entity.Stockable) (*entity.Threshold, error) {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	t, ok := r.store.thresholds[thresholdKey{locationID, st}]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *ThresholdRepo) Upsert(_ context.Context, t *entity.Threshold) error {
	r.store.masterMu.Lock()
	defer r.store.masterMu.Unlock()
	cp := *t
	r.store.thresholds[thresholdKey{t.LocationID, t.Stockable}] = &cp
	return nil
}

func (r *ThresholdRepo) Delete(_ context.Context, locationID string, st entity.Stockable) error {
	r.store.masterMu.Lock()
	defer r.store.masterMu.Unlock()
	delete(r.store.thresholds, thresholdKey{locationID, st})
	return nil
}

func (r *ThresholdRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.Threshold, error) {
	return r.list(func(t *entity.Threshold) bool { return t.LocationID == locationID }), nil
}

func (r *ThresholdRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.Threshold, error) {
	return r.list(func(t *entity.Threshold) bool { return t.CompanyID == companyID }), nil
}

func (r *ThresholdRepo) list(match func(*entity.Threshold) bool) []*entity.Threshold {
	r.store.masterMu.RLock()
	defer r.store.masterMu.RUnlock()
	var out []*entity.Threshold
	for _, t := range r.store.thresholds {
		if match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Stockable.Key() < out[j].Stockable.Key()
	})
	return out
}
