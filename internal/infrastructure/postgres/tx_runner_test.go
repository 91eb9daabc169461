package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-replenishment/internal/application/ports"
)

// fakeTx solo implementa Commit y Rollback; el resto de pgx.Tx no se usa en estas pruebas.
type fakeTx struct {
	pgx.Tx
	commits, rollbacks *int
}

func (t fakeTx) Commit(context.Context) error   { *t.commits++; return nil }
func (t fakeTx) Rollback(context.Context) error { *t.rollbacks++; return nil }

type fakeBeginner struct {
	begins, commits, rollbacks int
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	b.begins++
	return fakeTx{commits: &b.commits, rollbacks: &b.rollbacks}, nil
}

func TestTxRunner_ReintentaDeadlock(t *testing.T) {
	db := &fakeBeginner{}
	calls := 0
	err := NewTxRunner(db).Run(context.Background(), func(r ports.TxRepos) error {
		calls++
		require.NotNil(t, r.Ledger)
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, db.begins)
	assert.Equal(t, 1, db.commits)
}

func TestTxRunner_ErrorDeDominioNoSeReintenta(t *testing.T) {
	db := &fakeBeginner{}
	boom := errors.New("boom")
	err := NewTxRunner(db).Run(context.Background(), func(ports.TxRepos) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.begins)
	assert.Zero(t, db.commits)
	assert.Equal(t, 1, db.rollbacks)
}

func TestTxRunner_AgotaIntentos(t *testing.T) {
	db := &fakeBeginner{}
	err := NewTxRunner(db).Run(context.Background(), func(ports.TxRepos) error {
		return &pgconn.PgError{Code: "40001"}
	})
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "40001", pgErr.Code)
	assert.Equal(t, maxTxAttempts, db.begins)
	assert.Zero(t, db.commits)
}
