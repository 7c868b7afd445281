// Package daemon implements the primary's remote surface.
// It provides a gRPC server and client for inter-process communication over
// Unix Domain Sockets, the lock that elects the primary, and the spawner that
// starts one in the background.
package daemon

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stitch.daemon.v1.DaemonService"

const (
	methodBuild    = "/" + ServiceName + "/Build"
	methodPing     = "/" + ServiceName + "/Ping"
	methodStatus   = "/" + ServiceName + "/Status"
	methodShutdown = "/" + ServiceName + "/Shutdown"
)

// DaemonServiceServer is the server API for the daemon service.
// Messages are protobuf well-known types; see codec.go for their fields.
type DaemonServiceServer interface {
	Build(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	Ping(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Shutdown(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
}

// ServiceDesc describes the daemon service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DaemonServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Build",
			Handler: unaryHandler(methodBuild, func(s DaemonServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
				return s.Build(ctx, in)
			}),
		},
		{
			MethodName: "Ping",
			Handler: unaryHandler(methodPing, func(s DaemonServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "Status",
			Handler: unaryHandler(methodStatus, func(s DaemonServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Status(ctx, in)
			}),
		},
		{
			MethodName: "Shutdown",
			Handler: unaryHandler(methodShutdown, func(s DaemonServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Shutdown(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stitch/daemon/v1/daemon.proto",
}

// RegisterDaemonServiceServer registers srv with s.
func RegisterDaemonServiceServer(s grpc.ServiceRegistrar, srv DaemonServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed call to grpc's untyped method handler.
func unaryHandler[Req any, PReq interface {
	*Req
	proto.Message
}](
	method string,
	call func(DaemonServiceServer, context.Context, PReq) (proto.Message, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DaemonServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DaemonServiceServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}
