package grpc

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
)

// ErrorDomain 放在 ErrorInfo.Domain 的值
const ErrorDomain = "account"

// AccountCore gRPC 入口需要的業務操作 (usecase.CoreUseCase)
type AccountCore interface {
	Use(ctx context.Context, req usecase.UseRequest) (*domain.TransactionRecord, error)
	Cancel(ctx context.Context, req usecase.CancelRequest) (*domain.TransactionRecord, error)
	Inquire(ctx context.Context, transactionID string) (*domain.TransactionRecord, error)
	CreateAccount(ctx context.Context, req usecase.CreateAccountRequest) (*domain.Account, error)
	CloseAccount(ctx context.Context, req usecase.CloseAccountRequest) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]*domain.Account, error)
}

// GrpcServer 把 gRPC 請求轉成 usecase 呼叫
type GrpcServer struct {
	core   AccountCore
	logger *zap.Logger
}

// NewGrpcServer 建立 gRPC 服務
func NewGrpcServer(core AccountCore, logger *zap.Logger) *GrpcServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcServer{core: core, logger: logger}
}

// Use 扣款
func (s *GrpcServer) Use(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	number, err := getString(req, fieldAccountNumber)
	if err != nil {
		return nil, invalidArgument(err)
	}
	userID, err := getInt(req, fieldUserID)
	if err != nil {
		return nil, invalidArgument(err)
	}
	amount, err := getInt(req, fieldAmount)
	if err != nil {
		return nil, invalidArgument(err)
	}

	rec, err := s.core.Use(ctx, usecase.UseRequest{AccountNumber: number, UserID: userID, Amount: amount})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return recordToStruct(rec), nil
}

// Cancel 取消扣款
func (s *GrpcServer) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	number, err := getString(req, fieldAccountNumber)
	if err != nil {
		return nil, invalidArgument(err)
	}
	transactionID, err := getString(req, fieldTransactionID)
	if err != nil {
		return nil, invalidArgument(err)
	}
	amount, err := getInt(req, fieldAmount)
	if err != nil {
		return nil, invalidArgument(err)
	}

	rec, err := s.core.Cancel(ctx, usecase.CancelRequest{AccountNumber: number, TransactionID: transactionID, Amount: amount})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return recordToStruct(rec), nil
}

// Inquire 查詢交易
func (s *GrpcServer) Inquire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	transactionID, err := getString(req, fieldTransactionID)
	if err != nil {
		return nil, invalidArgument(err)
	}
	rec, err := s.core.Inquire(ctx, transactionID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return recordToStruct(rec), nil
}

// CreateAccount 開戶
func (s *GrpcServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := getInt(req, fieldUserID)
	if err != nil {
		return nil, invalidArgument(err)
	}
	var initial int64
	if _, ok := req.GetFields()[fieldInitialBalance]; ok {
		if initial, err = getInt(req, fieldInitialBalance); err != nil {
			return nil, invalidArgument(err)
		}
	}

	account, err := s.core.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: userID, InitialBalance: initial})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return accountToStruct(account), nil
}

// CloseAccount 解約
func (s *GrpcServer) CloseAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := getInt(req, fieldUserID)
	if err != nil {
		return nil, invalidArgument(err)
	}
	number, err := getString(req, fieldAccountNumber)
	if err != nil {
		return nil, invalidArgument(err)
	}

	account, err := s.core.CloseAccount(ctx, usecase.CloseAccountRequest{UserID: userID, AccountNumber: number})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return accountToStruct(account), nil
}

// ListAccounts 列出使用者帳戶
func (s *GrpcServer) ListAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := getInt(req, fieldUserID)
	if err != nil {
		return nil, invalidArgument(err)
	}
	accounts, err := s.core.ListAccounts(ctx, userID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return accountsToStruct(accounts), nil
}

// toStatus 業務錯誤轉成對應的 gRPC code，並附上 ErrorInfo；其他錯誤不外洩細節
func (s *GrpcServer) toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	code := domain.CodeOf(err)
	msg := err.Error()
	if code == domain.CodeInternal {
		s.logger.Error("request failed", zap.Error(err))
		msg = "internal server error"
	}

	st := status.New(grpcCode(code), msg)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{Reason: string(code), Domain: ErrorDomain})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func invalidArgument(err error) error {
	st := status.New(codes.InvalidArgument, err.Error())
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(domain.CodeArgumentNotValid),
		Domain: ErrorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// grpcCode 業務錯誤代碼對應的 gRPC code
func grpcCode(code domain.ErrorCode) codes.Code {
	switch code {
	case domain.CodeArgumentNotValid,
		domain.CodeTooSmallAmount,
		domain.CodeTooBigAmount,
		domain.CodeAmountMismatch,
		domain.CodeAccountNumberMismatch:
		return codes.InvalidArgument
	case domain.CodeUserNotFound,
		domain.CodeAccountNotFound,
		domain.CodeTransactionNotFound:
		return codes.NotFound
	case domain.CodeAccountAlreadyExists:
		return codes.AlreadyExists
	case domain.CodeAccountUserMismatch:
		return codes.PermissionDenied
	case domain.CodeUnregisteredAccount,
		domain.CodeInsufficientBalance,
		domain.CodeRemainedBalance,
		domain.CodeExceedMaxAccountCount,
		domain.CodeExceedDate1Year,
		domain.CodeUnableCancelTransaction:
		return codes.FailedPrecondition
	case domain.CodeLockUnavailable:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// UnaryLoggingInterceptor 記錄每個請求的耗時與結果
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		st := status.Convert(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("grpc_code", st.Code().String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		switch st.Code() {
		case codes.OK:
			logger.Debug("grpc request", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("grpc request", append(fields, zap.String("message", st.Message()))...)
		default:
			logger.Info("grpc request", append(fields, zap.String("message", st.Message()))...)
		}
		return resp, err
	}
}

// UnaryRecoveryInterceptor handler panic 時回傳 Internal，不讓整個服務掛掉
func UnaryRecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

var _ AccountServiceServer = (*GrpcServer)(nil)
