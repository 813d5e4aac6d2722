package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names on the wire.
const (
	ServiceName             = "screener.ScreenerControl"
	FullMethodRunScreen     = "/" + ServiceName + "/RunScreen"
	FullMethodUpdateSymbols = "/" + ServiceName + "/UpdateSymbols"
	FullMethodHealth        = "/" + ServiceName + "/Health"
)

// ScreenerControlServer is the control plane of a running screener.
// Payloads are well-known protobuf types so no generated code is needed.
type ScreenerControlServer interface {
	RunScreen(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSymbols(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterScreenerControlServer(s grpc.ServiceRegistrar, srv ScreenerControlServer) {
	s.RegisterService(&ScreenerControlServiceDesc, srv)
}

// ScreenerControlServiceDesc describes the service for grpc.Server.
var ScreenerControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScreenerControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunScreen", Handler: runScreenHandler},
		{MethodName: "UpdateSymbols", Handler: updateSymbolsHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "screener_control",
}

// -----------------------------------------------------------------------------

func runScreenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScreenerControlServer).RunScreen(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodRunScreen}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScreenerControlServer).RunScreen(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func updateSymbolsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScreenerControlServer).UpdateSymbols(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodUpdateSymbols}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScreenerControlServer).UpdateSymbols(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScreenerControlServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodHealth}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScreenerControlServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ScreenerControlClient struct {
	cc grpc.ClientConnInterface
}

func NewScreenerControlClient(cc grpc.ClientConnInterface) *ScreenerControlClient {
	return &ScreenerControlClient{cc: cc}
}

// -----------------------------------------------------------------------------

func (c *ScreenerControlClient) RunScreen(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodRunScreen, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (c *ScreenerControlClient) UpdateSymbols(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodUpdateSymbols, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (c *ScreenerControlClient) Health(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethodHealth, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
