package grpcserver

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/item-keeper/internal/convert"
	"github.com/and161185/item-keeper/internal/model"
)

// Client is a typed wrapper over the ItemKeeper service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Invoke sends a raw request document to method.
func (c *Client) Invoke(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	out, err := c.Invoke(ctx, MethodListItems, nil)
	if err != nil {
		return nil, err
	}
	return convert.ItemsFromResponse(out)
}

func (c *Client) GetItem(ctx context.Context, id uuid.UUID) (model.Item, error) {
	out, err := c.Invoke(ctx, MethodGetItem, map[string]any{"id": id.String()})
	if err != nil {
		return model.Item{}, err
	}
	return convert.ItemFromResponse(out)
}

func (c *Client) ListItemsByUser(ctx context.Context, userID uuid.UUID) ([]model.Item, error) {
	out, err := c.Invoke(ctx, MethodListItemsByUser, map[string]any{"user_id": userID.String()})
	if err != nil {
		return nil, err
	}
	return convert.ItemsFromResponse(out)
}

func (c *Client) CreateItem(ctx context.Context, in model.NewItem) (model.Item, error) {
	req := convert.ItemFieldsRequest(in.ItemFields)
	req["creator"] = in.Creator.String()
	out, err := c.Invoke(ctx, MethodCreateItem, req)
	if err != nil {
		return model.Item{}, err
	}
	return convert.ItemFromResponse(out)
}

func (c *Client) UpdateItem(ctx context.Context, id uuid.UUID, f model.ItemFields) (model.Item, error) {
	req := convert.ItemFieldsRequest(f)
	req["id"] = id.String()
	out, err := c.Invoke(ctx, MethodUpdateItem, req)
	if err != nil {
		return model.Item{}, err
	}
	return convert.ItemFromResponse(out)
}

// DeleteItem returns the server's acknowledgment message.
func (c *Client) DeleteItem(ctx context.Context, id uuid.UUID) (string, error) {
	out, err := c.Invoke(ctx, MethodDeleteItem, map[string]any{"id": id.String()})
	if err != nil {
		return "", err
	}
	return out.GetFields()["message"].GetStringValue(), nil
}

func (c *Client) CreateUser(ctx context.Context, name string) (model.User, error) {
	out, err := c.Invoke(ctx, MethodCreateUser, map[string]any{"name": name})
	if err != nil {
		return model.User{}, err
	}
	return convert.UserFromResponse(out)
}

func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	out, err := c.Invoke(ctx, MethodGetUser, map[string]any{"id": id.String()})
	if err != nil {
		return model.User{}, err
	}
	return convert.UserFromResponse(out)
}
