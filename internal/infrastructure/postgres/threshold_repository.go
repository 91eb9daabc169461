package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var _ repository.ThresholdRepository = (*ThresholdRepo)(nil)

const thresholdColumns = `company_id, location_id, stockable_kind, stockable_id, min_on_hand, par_level, updated_at`

// ThresholdRepo mínimos y niveles par. Upsert: última escritura gana.
type ThresholdRepo struct {
	q Querier
}

func NewThresholdRepository(q Querier) *ThresholdRepo {
	return &ThresholdRepo{q: q}
}

// Get devuelve nil, nil si la ubicación no tiene umbral para el stockable.
func (r *ThresholdRepo) Get(ctx context.Context, locationID string, s entity.Stockable) (*entity.Threshold, error) {
	t, err := scanThreshold(r.q.QueryRow(ctx, `
		SELECT `+thresholdColumns+` FROM thresholds
		WHERE location_id = $1 AND stockable_kind = $2 AND stockable_id = $3`,
		locationID, string(s.Kind()), s.ID()))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get threshold: %w", err)
	}
	return t, nil
}

func (r *ThresholdRepo) Upsert(ctx context.Context, t *entity.Threshold) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO thresholds (`+thresholdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (location_id, stockable_kind, stockable_id)
		DO UPDATE SET min_on_hand = EXCLUDED.min_on_hand,
		              par_level = EXCLUDED.par_level,
		              updated_at = EXCLUDED.updated_at`,
		t.CompanyID, t.LocationID, string(t.Stockable.Kind()), t.Stockable.ID(), t.MinOnHand, t.ParLevel, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert threshold: %w", err)
	}
	return nil
}

func (r *ThresholdRepo) Delete(ctx context.Context, locationID string, s entity.Stockable) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM thresholds WHERE location_id = $1 AND stockable_kind = $2 AND stockable_id = $3`,
		locationID, string(s.Kind()), s.ID())
	if err != nil {
		return fmt.Errorf("delete threshold: %w", err)
	}
	return nil
}

func (r *ThresholdRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.Threshold, error) {
	return r.list(ctx, `
		SELECT `+thresholdColumns+` FROM thresholds
		WHERE location_id = $1
		ORDER BY stockable_kind, stockable_id`, locationID)
}

func (r *ThresholdRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Threshold, error) {
	return r.list(ctx, `
		SELECT `+thresholdColumns+` FROM thresholds
		WHERE company_id = $1
		ORDER BY location_id, stockable_kind, stockable_id`, companyID)
}

func (r *ThresholdRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Threshold, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()
	var out []*entity.Threshold
	for rows.Next() {
		t, err := scanThreshold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanThreshold(row pgx.Row) (*entity.Threshold, error) {
	var (
		t        entity.Threshold
		kind, id string
	)
	if err := row.Scan(&t.CompanyID, &t.LocationID, &kind, &id, &t.MinOnHand, &t.ParLevel, &t.UpdatedAt); err != nil {
		return nil, err
	}
	s, err := stockableOf(kind, id)
	if err != nil {
		return nil, err
	}
	t.Stockable = s
	return &t, nil
}
