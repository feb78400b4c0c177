package grpc

import (
	"context"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
)

// Client AccountService 的客戶端，回傳 domain 型別
// 伺服器回傳的業務錯誤會還原成 domain 的 sentinel，可直接 errors.Is
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 建立客戶端
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

// Use 扣款
func (c *Client) Use(ctx context.Context, req usecase.UseRequest, opts ...grpc.CallOption) (*domain.TransactionRecord, error) {
	out, err := c.invoke(ctx, MethodUse, newStruct(map[string]*structpb.Value{
		fieldAccountNumber: structpb.NewStringValue(req.AccountNumber),
		fieldUserID:        structpb.NewNumberValue(float64(req.UserID)),
		fieldAmount:        structpb.NewNumberValue(float64(req.Amount)),
	}), opts...)
	if err != nil {
		return nil, err
	}
	return structToRecord(out)
}

// Cancel 取消扣款
func (c *Client) Cancel(ctx context.Context, req usecase.CancelRequest, opts ...grpc.CallOption) (*domain.TransactionRecord, error) {
	out, err := c.invoke(ctx, MethodCancel, newStruct(map[string]*structpb.Value{
		fieldAccountNumber: structpb.NewStringValue(req.AccountNumber),
		fieldTransactionID: structpb.NewStringValue(req.TransactionID),
		fieldAmount:        structpb.NewNumberValue(float64(req.Amount)),
	}), opts...)
	if err != nil {
		return nil, err
	}
	return structToRecord(out)
}

// Inquire 查詢交易
func (c *Client) Inquire(ctx context.Context, transactionID string, opts ...grpc.CallOption) (*domain.TransactionRecord, error) {
	out, err := c.invoke(ctx, MethodInquire, newStruct(map[string]*structpb.Value{
		fieldTransactionID: structpb.NewStringValue(transactionID),
	}), opts...)
	if err != nil {
		return nil, err
	}
	return structToRecord(out)
}

// CreateAccount 開戶
func (c *Client) CreateAccount(ctx context.Context, req usecase.CreateAccountRequest, opts ...grpc.CallOption) (*domain.Account, error) {
	out, err := c.invoke(ctx, MethodCreateAccount, newStruct(map[string]*structpb.Value{
		fieldUserID:         structpb.NewNumberValue(float64(req.UserID)),
		fieldInitialBalance: structpb.NewNumberValue(float64(req.InitialBalance)),
	}), opts...)
	if err != nil {
		return nil, err
	}
	return structToAccount(out)
}

// CloseAccount 解約
func (c *Client) CloseAccount(ctx context.Context, req usecase.CloseAccountRequest, opts ...grpc.CallOption) (*domain.Account, error) {
	out, err := c.invoke(ctx, MethodCloseAccount, newStruct(map[string]*structpb.Value{
		fieldUserID:        structpb.NewNumberValue(float64(req.UserID)),
		fieldAccountNumber: structpb.NewStringValue(req.AccountNumber),
	}), opts...)
	if err != nil {
		return nil, err
	}
	return structToAccount(out)
}

// ListAccounts 列出使用者帳戶
func (c *Client) ListAccounts(ctx context.Context, userID int64, opts ...grpc.CallOption) ([]*domain.Account, error) {
	out, err := c.invoke(ctx, MethodListAccounts, newStruct(map[string]*structpb.Value{
		fieldUserID: structpb.NewNumberValue(float64(userID)),
	}), opts...)
	if err != nil {
		return nil, err
	}
	return structToAccounts(out)
}

// FromStatus 把帶有 ErrorInfo 的 gRPC 錯誤還原成 domain 錯誤，其他錯誤原樣回傳
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		if de := domain.Lookup(domain.ErrorCode(info.GetReason())); de != nil && de.Code != domain.CodeInternal {
			return de
		}
		return fmt.Errorf("%s: %w", info.GetReason(), err)
	}
	return err
}
