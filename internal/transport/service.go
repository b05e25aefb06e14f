// Package transport exposes the alignment engine over gRPC. Messages travel as
// google.protobuf.Struct so the wire stays schema-light for SDK callers; each
// RPC decodes its struct into the typed request in types.go.
package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "neuralbridge.Bridge"

const (
	methodAlign       = "/" + ServiceName + "/Align"
	methodCalibrate   = "/" + ServiceName + "/Calibrate"
	methodFindNearest = "/" + ServiceName + "/FindNearest"
	methodLoss        = "/" + ServiceName + "/Loss"
)

// #region server-api
// BridgeServer is the server API for the Bridge service.
type BridgeServer interface {
	Align(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Calibrate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindNearest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Loss(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterBridgeServer attaches srv to a gRPC server.
func RegisterBridgeServer(s grpc.ServiceRegistrar, srv BridgeServer) {
	s.RegisterService(&bridgeServiceDesc, srv)
}

var bridgeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Align", Handler: unaryHandler(methodAlign, BridgeServer.Align)},
		{MethodName: "Calibrate", Handler: unaryHandler(methodCalibrate, BridgeServer.Calibrate)},
		{MethodName: "FindNearest", Handler: unaryHandler(methodFindNearest, BridgeServer.FindNearest)},
		{MethodName: "Loss", Handler: unaryHandler(methodLoss, BridgeServer.Loss)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "neuralbridge/bridge.proto",
}

type rpcFunc func(BridgeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call rpcFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BridgeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BridgeServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion server-api

// #region client-api
// BridgeClient is the client API for the Bridge service.
type BridgeClient interface {
	Align(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Calibrate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	FindNearest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Loss(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type bridgeClient struct {
	cc grpc.ClientConnInterface
}

// NewBridgeClient returns a client bound to cc.
func NewBridgeClient(cc grpc.ClientConnInterface) BridgeClient {
	return &bridgeClient{cc: cc}
}

func (c *bridgeClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bridgeClient) Align(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodAlign, in, opts)
}

func (c *bridgeClient) Calibrate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCalibrate, in, opts)
}

func (c *bridgeClient) FindNearest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodFindNearest, in, opts)
}

func (c *bridgeClient) Loss(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodLoss, in, opts)
}

// #endregion client-api
