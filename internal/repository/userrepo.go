// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/item-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to users and their item reference lists.
//
// Reference list edits are made in memory with model.User.AppendItem and
// model.User.RemoveItem and become durable through Save.
type UserRepository interface {
	// Create inserts a new user with an empty item list.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Save persists the user's current state within tx.
	Save(ctx context.Context, tx Tx, u *model.User) error
}
