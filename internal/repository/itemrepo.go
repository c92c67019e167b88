package repository

import (
	"context"

	"github.com/and161185/item-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ItemRepository provides lifecycle operations for items.
type ItemRepository interface {
	// List returns every stored item.
	List(ctx context.Context) ([]model.Item, error)

	// GetByID returns a single item by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error)

	// ListByOwner resolves the user and returns its referenced items in list order.
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Item, error)

	// Create stores a new, not yet linked item within tx and returns it with its assigned ID.
	Create(ctx context.Context, tx Tx, in model.NewItem) (*model.Item, error)

	// Update overwrites the mutable fields of an existing item.
	Update(ctx context.Context, id uuid.UUID, f model.ItemFields) (*model.Item, error)

	// Delete removes the item within tx.
	Delete(ctx context.Context, tx Tx, id uuid.UUID) error
}
