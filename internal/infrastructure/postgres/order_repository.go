package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id, company_id, location_id, supplier_id, status, comment, created_by,
	created_at, updated_at, delivered_at, cancelled_at`

// openOrderStatuses estados cuya mercancía todavía no llegó.
var openOrderStatuses = []string{
	string(entity.OrderDraft), string(entity.OrderCreated), string(entity.OrderSubmittedForApproval),
	string(entity.OrderApproved), string(entity.OrderSent), string(entity.OrderViewedBySupplier),
}

type OrderRepo struct {
	q Querier
}

func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.CompanyID, o.LocationID, o.SupplierID, string(o.Status), o.Comment, o.CreatedBy,
		o.CreatedAt, o.UpdatedAt, o.DeliveredAt, o.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create order %s: %w", o.ID, domain.ErrDraftExists)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return r.insertLines(ctx, o)
}

func (r *OrderRepo) Update(ctx context.Context, o *entity.Order) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders
		SET status = $2, comment = $3, updated_at = $4, delivered_at = $5, cancelled_at = $6
		WHERE id = $1`,
		o.ID, string(o.Status), o.Comment, o.UpdatedAt, o.DeliveredAt, o.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order %s: %w", o.ID, domain.ErrNotFound)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("replace order lines: %w", err)
	}
	return r.insertLines(ctx, o)
}

func (r *OrderRepo) insertLines(ctx context.Context, o *entity.Order) error {
	for i, l := range o.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO order_lines (order_id, line_no, stockable_kind, stockable_id, purchase_option_id,
			                         quantity, unit_code, unit_category, unit_to_base, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			o.ID, i+1, string(l.Stockable.Kind()), l.Stockable.ID(), l.PurchaseOptionID,
			l.Quantity, l.Unit.Code, string(l.Unit.Category), l.Unit.ToBase, l.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) FindDraft(ctx context.Context, locationID, supplierID string) (*entity.Order, error) {
	return r.getOne(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE location_id = $1 AND supplier_id = $2 AND status = 'DRAFT'`, locationID, supplierID)
}

func (r *OrderRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.attachLines(ctx, []*entity.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE location_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, locationID, limit, offset)
}

func (r *OrderRepo) ListByCompany(ctx context.Context, companyID string, status *entity.OrderStatus, limit, offset int) ([]*entity.Order, error) {
	if status == nil {
		return r.list(ctx, `
			SELECT `+orderColumns+` FROM orders
			WHERE company_id = $1
			ORDER BY created_at DESC, id
			LIMIT $2 OFFSET $3`, companyID, limit, offset)
	}
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE company_id = $1 AND status = $2
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, companyID, string(*status), limit, offset)
}

func (r *OrderRepo) ListOpenByCompany(ctx context.Context, companyID string) ([]*entity.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE company_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC, id`, companyID, openOrderStatuses)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Order, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var out []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := r.attachLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepo) attachLines(ctx context.Context, list []*entity.Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.Order, len(list))
	for i, o := range list {
		ids[i] = o.ID
		byID[o.ID] = o
	}
	rows, err := r.q.Query(ctx, `
		SELECT order_id, stockable_kind, stockable_id, purchase_option_id, quantity,
		       unit_code, unit_category, unit_to_base, unit_price
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID, kind, id string
			l                 entity.OrderLine
			u                 unitColumns
		)
		if err := rows.Scan(&orderID, &kind, &id, &l.PurchaseOptionID, &l.Quantity,
			&u.Code, &u.Category, &u.ToBase, &l.UnitPrice); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		s, err := stockableOf(kind, id)
		if err != nil {
			return err
		}
		l.Stockable, l.Unit = s, u.unit()
		if o := byID[orderID]; o != nil {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o      entity.Order
		status string
	)
	err := row.Scan(&o.ID, &o.CompanyID, &o.LocationID, &o.SupplierID, &status, &o.Comment, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt, &o.CancelledAt)
	if err != nil {
		return nil, err
	}
	o.Status = entity.OrderStatus(status)
	return &o, nil
}
