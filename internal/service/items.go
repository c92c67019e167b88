// Package service contains the application services for items and users.
//
// ItemServiceImpl keeps every item and its owner's reference list consistent:
// creating and deleting an item each run as one transaction over both documents.
package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
)

// ItemService defines operations over items and their ownership links.
type ItemService interface {
	// List returns every item.
	List(ctx context.Context) ([]model.Item, error)
	// Get returns a single item by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// ListByOwner returns the items referenced by a user.
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Item, error)
	// Create stores an item and links it to its creator atomically.
	Create(ctx context.Context, in model.NewItem) (*model.Item, error)
	// Update overwrites an item's mutable fields.
	Update(ctx context.Context, id uuid.UUID, f model.ItemFields) (*model.Item, error)
	// Delete removes an item and unlinks it from its creator atomically.
	Delete(ctx context.Context, id uuid.UUID) error
}

type ItemServiceImpl struct {
	store repository.Store
	items repository.ItemRepository
	users repository.UserRepository
	log   *zap.Logger
}

var _ ItemService = (*ItemServiceImpl)(nil)

// NewItemService constructs ItemService. A nil logger disables logging.
func NewItemService(store repository.Store, items repository.ItemRepository, users repository.UserRepository, log *zap.Logger) *ItemServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ItemServiceImpl{store: store, items: items, users: users, log: log}
}

// List returns all items.
func (s *ItemServiceImpl) List(ctx context.Context) ([]model.Item, error) {
	out, err := s.items.List(ctx)
	if err != nil {
		s.log.Error("list items", zap.Error(err))
		return nil, errs.ErrStoreUnavailable
	}
	return out, nil
}

// Get fetches a single item by id.
func (s *ItemServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	it, err := s.items.GetByID(ctx, id)
	switch {
	case err == nil:
		return it, nil
	case errors.Is(err, errs.ErrNotFound):
		return nil, errs.ErrNotFound
	default:
		s.log.Error("get item", zap.Stringer("item", id), zap.Error(err))
		return nil, errs.ErrStoreUnavailable
	}
}

// ListByOwner returns the user's items. A missing user and a user with no
// items are reported the same way.
func (s *ItemServiceImpl) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Item, error) {
	out, err := s.items.ListByOwner(ctx, userID)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, errs.ErrOwnerItemsNotFound), errors.Is(err, errs.ErrNotFound):
		return nil, errs.ErrOwnerItemsNotFound
	default:
		s.log.Error("list items by owner", zap.Stringer("user", userID), zap.Error(err))
		return nil, errs.ErrStoreUnavailable
	}
}

// Create persists the item and appends it to the creator's list in one transaction.
// The creator must exist before anything is written.
func (s *ItemServiceImpl) Create(ctx context.Context, in model.NewItem) (*model.Item, error) {
	owner, err := s.users.GetByID(ctx, in.Creator)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrOwnerNotFound
		}
		s.log.Error("create item: load creator", zap.Stringer("user", in.Creator), zap.Error(err))
		return nil, errs.ErrCreateFailed
	}

	var created *model.Item
	err = repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		it, err := s.items.Create(ctx, tx, in)
		if err != nil {
			return err
		}
		owner.AppendItem(it.ID)
		if err := s.users.Save(ctx, tx, owner); err != nil {
			return err
		}
		created = it
		return nil
	})
	if err != nil {
		s.log.Error("create item: transaction aborted", zap.Stringer("user", in.Creator), zap.Error(err))
		return nil, errs.ErrCreateFailed
	}

	s.log.Debug("item created", zap.Stringer("item", created.ID), zap.Stringer("user", owner.ID))
	return created, nil
}

// Update overwrites title, category, cost and date. Ownership never changes.
func (s *ItemServiceImpl) Update(ctx context.Context, id uuid.UUID, f model.ItemFields) (*model.Item, error) {
	it, err := s.items.Update(ctx, id, f)
	switch {
	case err == nil:
		return it, nil
	case errors.Is(err, errs.ErrNotFound):
		return nil, errs.ErrNotFound
	default:
		s.log.Error("update item", zap.Stringer("item", id), zap.Error(err))
		return nil, errs.ErrUpdateFailed
	}
}

// Delete removes the item and pulls it from the creator's list in one transaction.
// An item whose creator no longer exists is deleted without the unlink step.
func (s *ItemServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrNotFound
		}
		s.log.Error("delete item: load item", zap.Stringer("item", id), zap.Error(err))
		return errs.ErrDeleteFailed
	}

	owner, err := s.users.GetByID(ctx, it.Creator)
	switch {
	case err == nil:
		if !owner.HasItem(id) {
			s.log.Warn("delete item: creator does not list the item",
				zap.Stringer("item", id), zap.Stringer("user", it.Creator))
		}
	case errors.Is(err, errs.ErrNotFound):
		s.log.Warn("delete item: creator missing, no backlink to remove",
			zap.Stringer("item", id), zap.Stringer("user", it.Creator))
		owner = nil
	default:
		s.log.Error("delete item: load creator", zap.Stringer("item", id), zap.Error(err))
		return errs.ErrDeleteFailed
	}

	err = repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if err := s.items.Delete(ctx, tx, id); err != nil {
			return err
		}
		if owner == nil {
			return nil
		}
		owner.RemoveItem(id)
		return s.users.Save(ctx, tx, owner)
	})
	if err != nil {
		s.log.Error("delete item: transaction aborted", zap.Stringer("item", id), zap.Error(err))
		return errs.ErrDeleteFailed
	}

	s.log.Debug("item deleted", zap.Stringer("item", id))
	return nil
}
