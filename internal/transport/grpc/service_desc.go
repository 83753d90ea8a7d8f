package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The admin API is small enough to be described with well-known types, so it
// is registered by hand instead of through generated stubs.

const ServiceName = "chat.admin.v1.AdminService"

const (
	methodDeleteRoom = "/" + ServiceName + "/DeleteRoom"
	methodListRooms  = "/" + ServiceName + "/ListRooms"
	methodPresence   = "/" + ServiceName + "/Presence"
)

type AdminServer interface {
	// DeleteRoom deletes the room with the given id. Admin only.
	DeleteRoom(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	// ListRooms returns {id, name, owner_id, online} for every room.
	ListRooms(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// Presence returns the {username, color} snapshot of a room.
	Presence(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DeleteRoom", Handler: deleteRoomHandler},
		{MethodName: "ListRooms", Handler: listRoomsHandler},
		{MethodName: "Presence", Handler: presenceHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/admin/v1/admin.proto",
}

func Register(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

func deleteRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).DeleteRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDeleteRoom}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).DeleteRoom(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listRoomsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).ListRooms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListRooms}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).ListRooms(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func presenceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdminServer).Presence(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPresence}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).Presence(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// AdminClient calls AdminService over an existing connection.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) DeleteRoom(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, methodDeleteRoom, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) ListRooms(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListRooms, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) Presence(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodPresence, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
