package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockTransactionRepository = (*StockTransactionRepo)(nil)

const stockTransactionColumns = `id, company_id, location_id, stockable_kind, stockable_id, type,
	quantity, unit_cost, total_cost, source_reference_id, date, created_at, created_by`

// StockTransactionRepo implementación del libro de inventario con PostgreSQL.
type StockTransactionRepo struct {
	q Querier
}

// NewStockTransactionRepository construye el repositorio sobre el pool o sobre una tx.
func NewStockTransactionRepository(q Querier) *StockTransactionRepo {
	return &StockTransactionRepo{q: q}
}

func (r *StockTransactionRepo) Create(ctx context.Context, t *entity.StockTransaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transactions (`+stockTransactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.CompanyID, t.LocationID, string(t.Stockable.Kind()), t.Stockable.ID(), string(t.Type),
		t.Quantity, t.UnitCost, t.TotalCost, t.SourceReferenceID, t.Date, t.CreatedAt, t.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create stock transaction: %w", err)
	}
	return nil
}

func (r *StockTransactionRepo) DeleteBySourceReferenceID(ctx context.Context, sourceReferenceID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_transactions WHERE source_reference_id = $1`, sourceReferenceID)
	if err != nil {
		return 0, fmt.Errorf("delete stock transactions %s: %w", sourceReferenceID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *StockTransactionRepo) Balance(ctx context.Context, locationID string, s entity.Stockable, asOf time.Time) (repository.Balance, error) {
	b := repository.Balance{LocationID: locationID, Stockable: s}
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(total_cost), 0)
		FROM stock_transactions
		WHERE location_id = $1 AND stockable_kind = $2 AND stockable_id = $3 AND date <= $4`,
		locationID, string(s.Kind()), s.ID(), asOf,
	).Scan(&b.Quantity, &b.Value)
	if err != nil {
		return repository.Balance{}, fmt.Errorf("stock balance: %w", err)
	}
	return b, nil
}

func (r *StockTransactionRepo) BalancesByLocation(ctx context.Context, locationID string, asOf time.Time) ([]repository.Balance, error) {
	rows, err := r.q.Query(ctx, `
		SELECT location_id, stockable_kind, stockable_id, SUM(quantity), SUM(total_cost)
		FROM stock_transactions
		WHERE location_id = $1 AND date <= $2
		GROUP BY location_id, stockable_kind, stockable_id
		ORDER BY stockable_kind, stockable_id`, locationID, asOf)
	if err != nil {
		return nil, fmt.Errorf("balances by location: %w", err)
	}
	return collectBalances(rows)
}

func (r *StockTransactionRepo) BalancesByCompany(ctx context.Context, companyID string, asOf time.Time) ([]repository.Balance, error) {
	rows, err := r.q.Query(ctx, `
		SELECT location_id, stockable_kind, stockable_id, SUM(quantity), SUM(total_cost)
		FROM stock_transactions
		WHERE company_id = $1 AND date <= $2
		GROUP BY location_id, stockable_kind, stockable_id
		ORDER BY location_id, stockable_kind, stockable_id`, companyID, asOf)
	if err != nil {
		return nil, fmt.Errorf("balances by company: %w", err)
	}
	return collectBalances(rows)
}

func collectBalances(rows pgx.Rows) ([]repository.Balance, error) {
	defer rows.Close()
	var out []repository.Balance
	for rows.Next() {
		var (
			b        repository.Balance
			kind, id string
		)
		if err := rows.Scan(&b.LocationID, &kind, &id, &b.Quantity, &b.Value); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		s, err := stockableOf(kind, id)
		if err != nil {
			return nil, err
		}
		b.Stockable = s
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *StockTransactionRepo) ListBetween(ctx context.Context, locationID string, from, to time.Time) ([]*entity.StockTransaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stockTransactionColumns+`
		FROM stock_transactions
		WHERE location_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, created_at ASC, id ASC`, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions: %w", err)
	}
	return collectStockTransactions(rows)
}

// ListByLocation lista con filtro opcional de fechas, más recientes primero.
func (r *StockTransactionRepo) ListByLocation(ctx context.Context, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockTransaction, error) {
	var (
		where = []string{"location_id = $1"}
		args  = []any{locationID}
	)
	if from != nil {
		args = append(args, *from)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM stock_transactions
		WHERE %s
		ORDER BY date DESC, created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, stockTransactionColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions by location: %w", err)
	}
	return collectStockTransactions(rows)
}

func (r *StockTransactionRepo) ListBySourceReferenceID(ctx context.Context, sourceReferenceID string) ([]*entity.StockTransaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stockTransactionColumns+`
		FROM stock_transactions
		WHERE source_reference_id = $1
		ORDER BY date ASC, created_at ASC, id ASC`, sourceReferenceID)
	if err != nil {
		return nil, fmt.Errorf("list stock transactions by source: %w", err)
	}
	return collectStockTransactions(rows)
}

func collectStockTransactions(rows pgx.Rows) ([]*entity.StockTransaction, error) {
	defer rows.Close()
	var out []*entity.StockTransaction
	for rows.Next() {
		var (
			t              entity.StockTransaction
			kind, id, typ  string
			qty, unit, tot decimal.Decimal
		)
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.LocationID, &kind, &id, &typ,
			&qty, &unit, &tot, &t.SourceReferenceID, &t.Date, &t.CreatedAt, &t.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan stock transaction: %w", err)
		}
		s, err := stockableOf(kind, id)
		if err != nil {
			return nil, err
		}
		t.Stockable = s
		t.Type = entity.TransactionType(typ)
		t.Quantity, t.UnitCost, t.TotalCost = qty, unit, tot
		out = append(out, &t)
	}
	return out, rows.Err()
}
