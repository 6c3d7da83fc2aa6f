package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/tenancy"
)

// defaultTxTimeout bounds how long a transaction may hold row locks.
const defaultTxTimeout = 5 * time.Second

// TxRunner runs fn atomically. Services depend on this rather than on a
// concrete database so the in-memory wiring can pass straight through.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Tx opens transactions on whatever the context is bound to.
type Tx struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTx creates a transaction runner. Unbound contexts open public
// transactions on db.
func NewTx(db *sqlx.DB, timeout time.Duration) *Tx {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &Tx{db: db, timeout: timeout}
}

// RunInTx executes fn inside a transaction, committing on success and
// rolling back on error or panic. Nested calls join the outer transaction.
func (t *Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if b, ok := bindingFrom(ctx); ok && b.tx != nil {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var (
		tx     *sqlx.Tx
		schema = tenancy.PublicSchema
	)
	if b, ok := bindingFrom(ctx); ok && b.conn != nil {
		schema = b.schema
		tx, err = b.conn.BeginTxx(ctx, nil)
	} else {
		tx, err = t.db.BeginTxx(ctx, nil)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	b, _ := bindingFrom(ctx)
	txCtx := withBinding(ctx, &binding{schema: schema, conn: connOf(b), tx: tx})
	if err = fn(txCtx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func connOf(b *binding) *sqlx.Conn {
	if b == nil {
		return nil
	}
	return b.conn
}

type memTxKey struct{}

// MemoryTx serializes units of work against the in-memory stores. Nested
// calls join the outer unit instead of deadlocking on the mutex.
type MemoryTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewMemoryTx() *MemoryTx {
	return &MemoryTx{timeout: defaultTxTimeout}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(context.WithValue(ctx, memTxKey{}, true))
}
