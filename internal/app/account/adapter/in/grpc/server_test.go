package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/in/grpc"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/out/memory"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
)

type testEnv struct {
	client *grpcadapter.Client
	conn   *grpc.ClientConn
	user   *domain.AccountUser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := memory.NewStore(nil)
	require.NoError(t, err)

	processor := usecase.NewTransactionProcessor(store, store, store)
	accounts := usecase.NewAccountService(store, store, nil)
	locks := lock.NewManager(memory.NewLockProvider(), lock.Config{Wait: 2 * time.Second, Lease: 5 * time.Second})
	core := usecase.NewCoreUseCase(processor, accounts, locks)

	user, err := core.CreateUser(context.Background(), "Pororo")
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcadapter.UnaryRecoveryInterceptor(nil),
		grpcadapter.UnaryLoggingInterceptor(nil),
	))
	grpcadapter.RegisterAccountServiceServer(srv, grpcadapter.NewGrpcServer(core, nil))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})

	return &testEnv{client: grpcadapter.NewClient(conn), conn: conn, user: user}
}

func TestAccountService_UseCancelInquire(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.client.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: env.user.ID, InitialBalance: 10_000})
	require.NoError(t, err)
	assert.Equal(t, domain.InitialAccountNumber, account.Number)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.Nil(t, account.ClosedAt)

	used, err := env.client.Use(ctx, usecase.UseRequest{AccountNumber: account.Number, UserID: env.user.ID, Amount: 1_000})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeUse, used.Type)
	assert.Equal(t, domain.TransactionResultSuccess, used.Result)
	assert.Equal(t, int64(9_000), used.BalanceSnapshot)
	assert.Len(t, used.TransactionID, 32)

	canceled, err := env.client.Cancel(ctx, usecase.CancelRequest{AccountNumber: account.Number, TransactionID: used.TransactionID, Amount: 1_000})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCancel, canceled.Type)
	assert.Equal(t, int64(10_000), canceled.BalanceSnapshot)

	inquired, err := env.client.Inquire(ctx, used.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionResultCanceled, inquired.Result)
	assert.Equal(t, used.AccountNumber, inquired.AccountNumber)
	assert.True(t, used.TransactedAt.Equal(inquired.TransactedAt))
}

func TestAccountService_AccountLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.client.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: env.user.ID})
	require.NoError(t, err)
	_, err = env.client.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: env.user.ID, InitialBalance: 500})
	require.NoError(t, err)

	list, err := env.client.ListAccounts(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	closed, err := env.client.CloseAccount(ctx, usecase.CloseAccountRequest{UserID: env.user.ID, AccountNumber: first.Number})
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = env.client.ListAccounts(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAccountService_DomainErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.client.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: env.user.ID, InitialBalance: 1_000})
	require.NoError(t, err)

	_, err = env.client.Use(ctx, usecase.UseRequest{AccountNumber: account.Number, UserID: env.user.ID, Amount: 5_000})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = env.client.Use(ctx, usecase.UseRequest{AccountNumber: "1999999999", UserID: env.user.ID, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = env.client.Inquire(ctx, "0123456789abcdef0123456789abcdef")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = env.client.CloseAccount(ctx, usecase.CloseAccountRequest{UserID: env.user.ID, AccountNumber: account.Number})
	assert.ErrorIs(t, err, domain.ErrRemainedBalance)

	_, err = env.client.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: 424242})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAccountService_StatusCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.client.CreateAccount(ctx, usecase.CreateAccountRequest{UserID: env.user.ID, InitialBalance: 1_000})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		req    map[string]any
		code   codes.Code
		reason domain.ErrorCode
	}{
		{
			name:   "too small",
			method: grpcadapter.MethodUse,
			req:    map[string]any{"account_number": account.Number, "user_id": env.user.ID, "amount": 1},
			code:   codes.InvalidArgument,
			reason: domain.CodeTooSmallAmount,
		},
		{
			name:   "unknown user",
			method: grpcadapter.MethodUse,
			req:    map[string]any{"account_number": account.Number, "user_id": 77, "amount": 100},
			code:   codes.NotFound,
			reason: domain.CodeUserNotFound,
		},
		{
			name:   "missing field",
			method: grpcadapter.MethodUse,
			req:    map[string]any{"account_number": account.Number, "amount": 100},
			code:   codes.InvalidArgument,
			reason: domain.CodeArgumentNotValid,
		},
		{
			name:   "fractional amount",
			method: grpcadapter.MethodUse,
			req:    map[string]any{"account_number": account.Number, "user_id": env.user.ID, "amount": 100.5},
			code:   codes.InvalidArgument,
			reason: domain.CodeArgumentNotValid,
		},
		{
			name:   "unknown transaction",
			method: grpcadapter.MethodInquire,
			req:    map[string]any{"transaction_id": "nope"},
			code:   codes.NotFound,
			reason: domain.CodeTransactionNotFound,
		},
		{
			name:   "remained balance",
			method: grpcadapter.MethodCloseAccount,
			req:    map[string]any{"account_number": account.Number, "user_id": env.user.ID},
			code:   codes.FailedPrecondition,
			reason: domain.CodeRemainedBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.req)
			require.NoError(t, err)

			err = env.conn.Invoke(ctx, "/"+grpcadapter.ServiceName+"/"+tt.method, in, new(structpb.Struct))
			require.Error(t, err)

			st := status.Convert(err)
			assert.Equal(t, tt.code, st.Code())

			var info *errdetails.ErrorInfo
			for _, d := range st.Details() {
				if ei, ok := d.(*errdetails.ErrorInfo); ok {
					info = ei
				}
			}
			require.NotNil(t, info)
			assert.Equal(t, string(tt.reason), info.GetReason())
			assert.Equal(t, grpcadapter.ErrorDomain, info.GetDomain())
		})
	}
}

func TestFromStatus(t *testing.T) {
	plain := status.Error(codes.Unavailable, "connection refused")
	assert.Equal(t, plain, grpcadapter.FromStatus(plain))

	st, err := status.New(codes.Aborted, "busy").WithDetails(&errdetails.ErrorInfo{
		Reason: string(domain.CodeLockUnavailable),
		Domain: grpcadapter.ErrorDomain,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, grpcadapter.FromStatus(st.Err()), domain.ErrLockUnavailable)

	st, err = status.New(codes.Internal, "internal server error").WithDetails(&errdetails.ErrorInfo{
		Reason: string(domain.CodeInternal),
		Domain: grpcadapter.ErrorDomain,
	})
	require.NoError(t, err)
	internal := grpcadapter.FromStatus(st.Err())
	assert.Equal(t, codes.Internal, status.Code(internal))
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(internal))
}
