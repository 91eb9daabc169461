package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stock-replenishment/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Querier lo comparten *pgxpool.Pool y pgx.Tx: los repositorios funcionan dentro o fuera de transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isRetryable serialization_failure (40001) o deadlock_detected (40P01): la tx completa puede repetirse.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// unitColumns columnas planas de una unidad de medida (code, category, to_base).
type unitColumns struct {
	Code     string
	Category string
	ToBase   decimal.Decimal
}

func (u unitColumns) unit() entity.UnitOfMeasure {
	return entity.UnitOfMeasure{Code: u.Code, Category: entity.UnitCategory(u.Category), ToBase: u.ToBase}
}

func stockableOf(kind, id string) (entity.Stockable, error) {
	return entity.ParseStockable(kind, id)
}
