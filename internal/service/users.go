package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/model"
	"github.com/and161185/item-keeper/internal/repository"
)

// UserService registers and looks up item owners.
type UserService interface {
	// Create registers a user with an empty item list.
	Create(ctx context.Context, name string) (*model.User, error)
	// Get returns a user with its item references.
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type UserServiceImpl struct {
	users repository.UserRepository
	log   *zap.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService constructs UserService. A nil logger disables logging.
func NewUserService(users repository.UserRepository, log *zap.Logger) *UserServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserServiceImpl{users: users, log: log}
}

// Create validates the name and inserts a new user.
func (s *UserServiceImpl) Create(ctx context.Context, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	u := &model.User{ID: id, Name: name, Items: []uuid.UUID{}}
	if err := s.users.Create(ctx, u); err != nil {
		s.log.Error("create user", zap.Error(err))
		return nil, errs.ErrStoreUnavailable
	}
	return u, nil
}

// Get fetches a user by id.
func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, errs.ErrNotFound):
		return nil, errs.ErrOwnerNotFound
	default:
		s.log.Error("get user", zap.Stringer("user", id), zap.Error(err))
		return nil, errs.ErrStoreUnavailable
	}
}
