package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "itemkeeper.v1.ItemKeeper"

// Method names.
const (
	MethodListItems       = "ListItems"
	MethodGetItem         = "GetItem"
	MethodListItemsByUser = "ListItemsByUser"
	MethodCreateItem      = "CreateItem"
	MethodUpdateItem      = "UpdateItem"
	MethodDeleteItem      = "DeleteItem"
	MethodCreateUser      = "CreateUser"
	MethodGetUser         = "GetUser"
)

// ItemKeeperServer is the server API. Every message is a
// google.protobuf.Struct document.
type ItemKeeperServer interface {
	ListItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListItemsByUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(ItemKeeperServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary(name string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ItemKeeperServer)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the ItemKeeper service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ItemKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodListItems, ItemKeeperServer.ListItems),
		unary(MethodGetItem, ItemKeeperServer.GetItem),
		unary(MethodListItemsByUser, ItemKeeperServer.ListItemsByUser),
		unary(MethodCreateItem, ItemKeeperServer.CreateItem),
		unary(MethodUpdateItem, ItemKeeperServer.UpdateItem),
		unary(MethodDeleteItem, ItemKeeperServer.DeleteItem),
		unary(MethodCreateUser, ItemKeeperServer.CreateUser),
		unary(MethodGetUser, ItemKeeperServer.GetUser),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "itemkeeper/v1/itemkeeper.proto",
}

// Register attaches srv to the registrar.
func Register(r grpc.ServiceRegistrar, srv ItemKeeperServer) {
	r.RegisterService(&ServiceDesc, srv)
}
