package invoices

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ternaklink/ternaklink/internal/platform/db"
)

// PoolRepository adds transaction orchestration on top of Repository.
type PoolRepository struct {
	*Repository
	pool *pgxpool.Pool
}

// NewPoolRepository constructs the pool backed repository.
func NewPoolRepository(pool *pgxpool.Pool, loc *time.Location) *PoolRepository {
	return &PoolRepository{Repository: NewRepository(pool, loc), pool: pool}
}

// WithTx runs fn against a transaction bound store. Unique violations and
// serialization failures retry once from scratch.
func (r *PoolRepository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, r.Repository.WithDB(tx))
	})
}

// CustomerExists reports whether the customer is known.
func (r *Repository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
