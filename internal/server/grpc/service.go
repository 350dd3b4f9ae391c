package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wallet.v1.WalletService"

// Method names of WalletService.
const (
	MethodGetBalances       = "GetBalances"
	MethodGetCatalog        = "GetCatalog"
	MethodQuote             = "Quote"
	MethodPlanStake         = "PlanStake"
	MethodSwap              = "Swap"
	MethodStake             = "Stake"
	MethodStartPurchase     = "StartPurchase"
	MethodGetPurchase       = "GetPurchase"
	MethodCancelPurchase    = "CancelPurchase"
	MethodQueryHistory      = "QueryHistory"
	MethodGetVotingPower    = "GetVotingPower"
	MethodGetStakePositions = "GetStakePositions"
	MethodGetReceiptURL     = "GetReceiptURL"
)

// FullMethod returns "/wallet.v1.WalletService/<name>".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// WalletServiceServer is the server API. Requests and responses are
// google.protobuf.Struct documents; amounts travel as decimal strings.
type WalletServiceServer interface {
	GetBalances(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Quote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlanStake(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Swap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stake(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartPurchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPurchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelPurchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetVotingPower(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStakePositions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReceiptURL(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(WalletServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(WalletServiceServer)
			if interceptor == nil {
				return m(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return m(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes WalletService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodGetBalances, WalletServiceServer.GetBalances),
		methodDesc(MethodGetCatalog, WalletServiceServer.GetCatalog),
		methodDesc(MethodQuote, WalletServiceServer.Quote),
		methodDesc(MethodPlanStake, WalletServiceServer.PlanStake),
		methodDesc(MethodSwap, WalletServiceServer.Swap),
		methodDesc(MethodStake, WalletServiceServer.Stake),
		methodDesc(MethodStartPurchase, WalletServiceServer.StartPurchase),
		methodDesc(MethodGetPurchase, WalletServiceServer.GetPurchase),
		methodDesc(MethodCancelPurchase, WalletServiceServer.CancelPurchase),
		methodDesc(MethodQueryHistory, WalletServiceServer.QueryHistory),
		methodDesc(MethodGetVotingPower, WalletServiceServer.GetVotingPower),
		methodDesc(MethodGetStakePositions, WalletServiceServer.GetStakePositions),
		methodDesc(MethodGetReceiptURL, WalletServiceServer.GetReceiptURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wallet/v1/wallet.proto",
}

// RegisterWalletServiceServer registers srv on s.
func RegisterWalletServiceServer(s grpc.ServiceRegistrar, srv WalletServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is a thin WalletService client.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in, a plain map converted to a Struct.
func (c *Client) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
