package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務全名
const ServiceName = "account.v1.AccountService"

// 方法名稱
const (
	MethodUse           = "Use"
	MethodCancel        = "Cancel"
	MethodInquire       = "Inquire"
	MethodCreateAccount = "CreateAccount"
	MethodCloseAccount  = "CloseAccount"
	MethodListAccounts  = "ListAccounts"
)

// AccountServiceServer 所有方法的請求與回應都是 google.protobuf.Struct
type AccountServiceServer interface {
	Use(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Inquire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CloseAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv AccountServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryHandler 解碼請求並經過攔截器呼叫 srv 的方法
func unaryHandler(name string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc 手寫的服務描述，等同 protoc 產生的 _ServiceDesc
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodUse, Handler: unaryHandler(MethodUse, AccountServiceServer.Use)},
		{MethodName: MethodCancel, Handler: unaryHandler(MethodCancel, AccountServiceServer.Cancel)},
		{MethodName: MethodInquire, Handler: unaryHandler(MethodInquire, AccountServiceServer.Inquire)},
		{MethodName: MethodCreateAccount, Handler: unaryHandler(MethodCreateAccount, AccountServiceServer.CreateAccount)},
		{MethodName: MethodCloseAccount, Handler: unaryHandler(MethodCloseAccount, AccountServiceServer.CloseAccount)},
		{MethodName: MethodListAccounts, Handler: unaryHandler(MethodListAccounts, AccountServiceServer.ListAccounts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "account/v1/account.proto",
}

// RegisterAccountServiceServer 註冊服務
func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
