package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the querier shared by *pgxpool.Pool and pgx.Tx, so the same
// repository code runs standalone or inside a workflow transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx bundles the repositories participating in one atomic case mutation:
// the case row update, the history insert and the area-access grant.
type Tx interface {
	Cases() CaseRepository
	History() HistoryRepository
	Grants() GrantRepository

	// Savepoint runs fn inside a nested transaction. A statement failing
	// in fn aborts only the savepoint, not the enclosing transaction;
	// Postgres would otherwise refuse every later statement including
	// the final commit (SQLSTATE 25P02).
	Savepoint(ctx context.Context, fn func(Tx) error) error
}

// TxRunner executes a function within a single database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type pgxTx struct {
	tx      pgx.Tx
	cases   CaseRepository
	history HistoryRepository
	grants  GrantRepository
}

func newPgxTx(tx pgx.Tx) *pgxTx {
	return &pgxTx{
		tx:      tx,
		cases:   NewCaseRepository(tx),
		history: NewHistoryRepository(tx),
		grants:  NewGrantRepository(tx),
	}
}

func (t *pgxTx) Cases() CaseRepository      { return t.cases }
func (t *pgxTx) History() HistoryRepository { return t.history }
func (t *pgxTx) Grants() GrantRepository    { return t.grants }

// Savepoint relies on pgx mapping nested Begin/Commit/Rollback onto
// SAVEPOINT / RELEASE / ROLLBACK TO SAVEPOINT.
func (t *pgxTx) Savepoint(ctx context.Context, fn func(Tx) error) error {
	nested, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(newPgxTx(nested)); err != nil {
		_ = nested.Rollback(ctx)
		return err
	}
	return nested.Commit(ctx)
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds a TxRunner over the pgx pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

func (r *pgxTxRunner) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	bundle := newPgxTx(tx)
	if err := fn(bundle); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
