package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var (
	_ repository.StockableRepository      = (*StockableRepo)(nil)
	_ repository.PurchaseOptionRepository = (*PurchaseOptionRepo)(nil)
)

// StockableRepo catálogo de insumos y sub-recetas con su unidad base.
type StockableRepo struct {
	q Querier
}

func NewStockableRepository(q Querier) *StockableRepo {
	return &StockableRepo{q: q}
}

// GetInfo devuelve nil, nil si el stockable no está en el catálogo.
func (r *StockableRepo) GetInfo(ctx context.Context, s entity.Stockable) (*entity.StockableInfo, error) {
	var (
		info entity.StockableInfo
		u    unitColumns
	)
	err := r.q.QueryRow(ctx, `
		SELECT company_id, name, base_unit_code, base_unit_category, base_unit_to_base
		FROM stockables WHERE kind = $1 AND id = $2`, string(s.Kind()), s.ID()).
		Scan(&info.CompanyID, &info.Name, &u.Code, &u.Category, &u.ToBase)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stockable: %w", err)
	}
	info.Stockable = s
	info.BaseUnit = u.unit()
	return &info, nil
}

// PurchaseOptionRepo presentaciones y precios por proveedor.
type PurchaseOptionRepo struct {
	q Querier
}

func NewPurchaseOptionRepository(q Querier) *PurchaseOptionRepo {
	return &PurchaseOptionRepo{q: q}
}

// ListByStockable incluye opciones deshabilitadas; la selección las filtra.
func (r *PurchaseOptionRepo) ListByStockable(ctx context.Context, companyID string, s entity.Stockable) ([]*entity.PurchaseOption, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, company_id, supplier_id, unit_code, unit_category, unit_to_base, unit_price, is_main, enabled
		FROM purchase_options
		WHERE company_id = $1 AND stockable_kind = $2 AND stockable_id = $3
		ORDER BY id`, companyID, string(s.Kind()), s.ID())
	if err != nil {
		return nil, fmt.Errorf("list purchase options: %w", err)
	}
	defer rows.Close()
	var out []*entity.PurchaseOption
	for rows.Next() {
		var (
			po entity.PurchaseOption
			u  unitColumns
		)
		if err := rows.Scan(&po.ID, &po.CompanyID, &po.SupplierID, &u.Code, &u.Category, &u.ToBase,
			&po.UnitPrice, &po.IsMain, &po.Enabled); err != nil {
			return nil, fmt.Errorf("scan purchase option: %w", err)
		}
		po.Stockable = s
		po.Unit = u.unit()
		out = append(out, &po)
	}
	return out, rows.Err()
}
