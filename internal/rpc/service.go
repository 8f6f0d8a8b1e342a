package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// BankerServer is the set of RPCs the master exposes to shadow
// processes and administrative tooling.
type BankerServer interface {
	GetAccount(ctx context.Context, req *GetAccountRequest) (*GetAccountResponse, error)
	ApplyDelta(ctx context.Context, req *ApplyDeltaRequest) (*ApplyDeltaResponse, error)
	SetBudget(ctx context.Context, req *SetBudgetRequest) (*SetBudgetResponse, error)
	SetAvailable(ctx context.Context, req *SetAvailableRequest) (*SetAvailableResponse, error)
	CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error)
	Recuperate(ctx context.Context, req *RecuperateRequest) (*RecuperateResponse, error)
	GetAccountSummary(ctx context.Context, req *GetAccountSummaryRequest) (*GetAccountSummaryResponse, error)
}

func decodeGetAccount(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetAccountRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).GetAccount(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetAccount"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).GetAccount(ctx, req.(*GetAccountRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func decodeApplyDelta(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ApplyDeltaRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).ApplyDelta(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/ApplyDelta"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).ApplyDelta(ctx, req.(*ApplyDeltaRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func decodeSetBudget(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SetBudgetRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).SetBudget(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/SetBudget"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).SetBudget(ctx, req.(*SetBudgetRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func decodeSetAvailable(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SetAvailableRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).SetAvailable(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/SetAvailable"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).SetAvailable(ctx, req.(*SetAvailableRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func decodeCreateAccount(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CreateAccountRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).CreateAccount(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/CreateAccount"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).CreateAccount(ctx, req.(*CreateAccountRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func decodeRecuperate(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RecuperateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).Recuperate(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Recuperate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).Recuperate(ctx, req.(*RecuperateRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func decodeGetAccountSummary(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetAccountSummaryRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BankerServer).GetAccountSummary(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetAccountSummary"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BankerServer).GetAccountSummary(ctx, req.(*GetAccountSummaryRequest))
	}
	return interceptor(ctx, req, info, handler)
}

const serviceName = "banker.rpc.Banker"

// serviceDesc is the hand-built stand-in for what protoc-gen-go-grpc
// would otherwise generate from a .proto file.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BankerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAccount", Handler: decodeGetAccount},
		{MethodName: "ApplyDelta", Handler: decodeApplyDelta},
		{MethodName: "SetBudget", Handler: decodeSetBudget},
		{MethodName: "SetAvailable", Handler: decodeSetAvailable},
		{MethodName: "CreateAccount", Handler: decodeCreateAccount},
		{MethodName: "Recuperate", Handler: decodeRecuperate},
		{MethodName: "GetAccountSummary", Handler: decodeGetAccountSummary},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "banker/internal/rpc/service.go",
}

// RegisterBankerServer registers srv's methods against s using
// serviceDesc, the same call shape grpc.RegisterXxxServer generated
// code makes.
func RegisterBankerServer(s grpc.ServiceRegistrar, srv BankerServer) {
	s.RegisterService(&serviceDesc, srv)
}
