package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, item_ids)
VALUES ($1, $2, $3::uuid[])`
	if _, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, idStrings(u.Items)); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, name, item_ids::text[], version
FROM users WHERE id=$1`
	var (
		u   model.User
		raw []string
	)
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Name, &raw, &u.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	items, err := parseIDs(raw)
	if err != nil {
		return nil, err
	}
	u.Items = items
	return &u, nil
}

// Save rewrites the user's name and item references inside tx, provided the
// row still carries u.Version. A concurrent writer that got there first
// yields errs.ErrVersionConflict. On success u.Version is advanced.
func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	t, err := pgxTx(tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE users
SET name=$2, item_ids=$3::uuid[], version=version+1
WHERE id=$1 AND version=$4`
	tag, err := t.Exec(ctx, q, u.ID, u.Name, idStrings(u.Items), u.Version)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := t.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, u.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return errs.ErrNotFound
		}
		return fmt.Errorf("user %s at version %d: %w", u.ID, u.Version, errs.ErrVersionConflict)
	}
	u.Version++
	return nil
}
