// Package grpcserver exposes the item-keeper gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/item-keeper/internal/convert"
	"github.com/and161185/item-keeper/internal/errs"
	"github.com/and161185/item-keeper/internal/service"
)

const deletedMessage = "Deleted item."

// Server wires services into gRPC handlers.
type Server struct {
	items service.ItemService
	users service.UserService
	log   *zap.Logger
}

var _ ItemKeeperServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(items service.ItemService, users service.UserService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{items: items, users: users, log: log}
}

// --- Items ---

// ListItems returns every item.
func (s *Server) ListItems(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.ItemsResponse(items))
}

// GetItem returns a single item by id.
func (s *Server) GetItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := convert.ID(in, "id")
	if err != nil {
		return nil, toStatus(err)
	}
	it, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.ItemResponse(*it))
}

// ListItemsByUser returns the items referenced by a user.
func (s *Server) ListItemsByUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := convert.ID(in, "user_id")
	if err != nil {
		return nil, toStatus(err)
	}
	items, err := s.items.ListByOwner(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.ItemsResponse(items))
}

// CreateItem creates an item and links it to its creator.
func (s *Server) CreateItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ni, err := convert.NewItem(in)
	if err != nil {
		return nil, toStatus(err)
	}
	it, err := s.items.Create(ctx, ni)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.ItemResponse(*it))
}

// UpdateItem overwrites the mutable fields of an item. A creator in the
// request is ignored.
func (s *Server) UpdateItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := convert.ID(in, "id")
	if err != nil {
		return nil, toStatus(err)
	}
	f, err := convert.ItemFields(in)
	if err != nil {
		return nil, toStatus(err)
	}
	it, err := s.items.Update(ctx, id, f)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.ItemResponse(*it))
}

// DeleteItem removes an item and unlinks it from its creator.
func (s *Server) DeleteItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := convert.ID(in, "id")
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.MessageResponse(deletedMessage))
}

// --- Users ---

// CreateUser registers a user with an empty item list.
func (s *Server) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	usr, err := s.users.Create(ctx, in.GetFields()["name"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.UserResponse(*usr))
}

// GetUser returns a user with its item references.
func (s *Server) GetUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := convert.ID(in, "id")
	if err != nil {
		return nil, toStatus(err)
	}
	usr, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(convert.UserResponse(*usr))
}

func (s *Server) respond(out *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		s.log.Error("encode response", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus maps the error taxonomy onto gRPC codes. Sentinel messages are
// user-safe and passed through; anything else is hidden.
func toStatus(err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrOwnerNotFound),
		errors.Is(err, errs.ErrOwnerItemsNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, errs.ErrCreateFailed),
		errors.Is(err, errs.ErrUpdateFailed),
		errors.Is(err, errs.ErrDeleteFailed):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
