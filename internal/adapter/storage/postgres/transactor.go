package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. Every transaction it starts runs
// at SERIALIZABLE isolation.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new serializable database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin serializable tx: %w", classify(err))
	}
	return &serializableTx{Tx: tx}, nil
}

// serializableTx reports serialization failures raised at commit time as
// ports.ErrConcurrencyConflict.
type serializableTx struct {
	pgx.Tx
}

func (t *serializableTx) Commit(ctx context.Context) error {
	if err := t.Tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}
