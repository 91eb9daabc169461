package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, company_id, from_location_id, to_location_id, status, comment, created_by,
	created_at, updated_at, sent_at, received_at, completed_at, cancelled_at`

// TransferRepo cabecera en transfers y líneas en transfer_lines.
// El índice único parcial ux_transfers_draft_pair garantiza un solo DRAFT por par.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el repositorio sobre el pool o sobre una tx.
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.CompanyID, t.FromLocationID, t.ToLocationID, string(t.Status), t.Comment, t.CreatedBy,
		t.CreatedAt, t.UpdatedAt, t.SentAt, t.ReceivedAt, t.CompletedAt, t.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create transfer %s: %w", t.ID, domain.ErrDraftExists)
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return r.insertLines(ctx, t)
}

func (r *TransferRepo) Update(ctx context.Context, t *entity.Transfer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transfers
		SET status = $2, comment = $3, updated_at = $4, sent_at = $5, received_at = $6,
		    completed_at = $7, cancelled_at = $8
		WHERE id = $1`,
		t.ID, string(t.Status), t.Comment, t.UpdatedAt, t.SentAt, t.ReceivedAt, t.CompletedAt, t.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update transfer %s: %w", t.ID, domain.ErrNotFound)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM transfer_lines WHERE transfer_id = $1`, t.ID); err != nil {
		return fmt.Errorf("replace transfer lines: %w", err)
	}
	return r.insertLines(ctx, t)
}

func (r *TransferRepo) insertLines(ctx context.Context, t *entity.Transfer) error {
	for i, l := range t.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO transfer_lines (transfer_id, line_no, stockable_kind, stockable_id, quantity,
			                            unit_code, unit_category, unit_to_base)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, i+1, string(l.Stockable.Kind()), l.Stockable.ID(), l.Quantity,
			l.Unit.Code, string(l.Unit.Category), l.Unit.ToBase,
		)
		if err != nil {
			return fmt.Errorf("insert transfer line %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *TransferRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM transfers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete transfer %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID devuelve nil, nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera (SELECT ... FOR UPDATE); solo tiene efecto dentro de una tx.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransferRepo) FindDraftBetween(ctx context.Context, fromLocationID, toLocationID string) (*entity.Transfer, error) {
	return r.getOne(ctx, `
		SELECT `+transferColumns+` FROM transfers
		WHERE from_location_id = $1 AND to_location_id = $2 AND status = 'DRAFT'`,
		fromLocationID, toLocationID)
}

func (r *TransferRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Transfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if err := r.attachLines(ctx, []*entity.Transfer{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TransferRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.Transfer, error) {
	return r.list(ctx, `
		SELECT `+transferColumns+` FROM transfers
		WHERE from_location_id = $1 OR to_location_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, locationID, limit, offset)
}

func (r *TransferRepo) ListByCompany(ctx context.Context, companyID string, status *entity.TransferStatus, limit, offset int) ([]*entity.Transfer, error) {
	if status == nil {
		return r.list(ctx, `
			SELECT `+transferColumns+` FROM transfers
			WHERE company_id = $1
			ORDER BY created_at DESC, id
			LIMIT $2 OFFSET $3`, companyID, limit, offset)
	}
	return r.list(ctx, `
		SELECT `+transferColumns+` FROM transfers
		WHERE company_id = $1 AND status = $2
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, companyID, string(*status), limit, offset)
}

func (r *TransferRepo) ListOpenByCompany(ctx context.Context, companyID string) ([]*entity.Transfer, error) {
	return r.list(ctx, `
		SELECT `+transferColumns+` FROM transfers
		WHERE company_id = $1 AND status IN ('DRAFT', 'SENT', 'RECEIVED')
		ORDER BY created_at DESC, id`, companyID)
}

func (r *TransferRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Transfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	var out []*entity.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	// Las líneas se leen después de cerrar rows: dentro de una tx la conexión es única.
	if err := r.attachLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TransferRepo) attachLines(ctx context.Context, list []*entity.Transfer) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]*entity.Transfer, len(list))
	for i, t := range list {
		ids[i] = t.ID
		byID[t.ID] = t
	}
	rows, err := r.q.Query(ctx, `
		SELECT transfer_id, stockable_kind, stockable_id, quantity, unit_code, unit_category, unit_to_base
		FROM transfer_lines
		WHERE transfer_id = ANY($1)
		ORDER BY transfer_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("get transfer lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			transferID, kind, id string
			l                    entity.TransferLine
			u                    unitColumns
		)
		if err := rows.Scan(&transferID, &kind, &id, &l.Quantity, &u.Code, &u.Category, &u.ToBase); err != nil {
			return fmt.Errorf("scan transfer line: %w", err)
		}
		s, err := stockableOf(kind, id)
		if err != nil {
			return err
		}
		l.Stockable, l.Unit = s, u.unit()
		if t := byID[transferID]; t != nil {
			t.Lines = append(t.Lines, l)
		}
	}
	return rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var (
		t      entity.Transfer
		status string
	)
	err := row.Scan(&t.ID, &t.CompanyID, &t.FromLocationID, &t.ToLocationID, &status, &t.Comment, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.SentAt, &t.ReceivedAt, &t.CompletedAt, &t.CancelledAt)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	return &t, nil
}
