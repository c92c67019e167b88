package repository

import "context"

// Tx is a transaction scope spanning several documents.
// pgx.Tx satisfies it directly.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transaction scopes.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// WithTx runs fn inside a new transaction scope. The scope is committed when fn
// returns nil and rolled back when fn fails or panics.
func WithTx(ctx context.Context, s Store, fn func(tx Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(tx)
}
