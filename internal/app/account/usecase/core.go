package usecase

import (
	"context"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
)

// CoreUseCase 是核心業務邏輯層，對外的入口 (gRPC / CLI) 只依賴它
//
// 會改動餘額或帳戶狀態的操作都包在帳戶鎖裡
type CoreUseCase struct {
	processor *TransactionProcessor
	accounts  *AccountService

	use          func(context.Context, UseRequest) (*domain.TransactionRecord, error)
	cancel       func(context.Context, CancelRequest) (*domain.TransactionRecord, error)
	closeAccount func(context.Context, CloseAccountRequest) (*domain.Account, error)
}

// NewCoreUseCase 建立 CoreUseCase
func NewCoreUseCase(processor *TransactionProcessor, accounts *AccountService, locker lock.Locker) *CoreUseCase {
	return &CoreUseCase{
		processor:    processor,
		accounts:     accounts,
		use:          lock.WithAccountLock(locker, processor.Use),
		cancel:       lock.WithAccountLock(locker, processor.Cancel),
		closeAccount: lock.WithAccountLock(locker, accounts.CloseAccount),
	}
}

// Use 扣款
func (c *CoreUseCase) Use(ctx context.Context, req UseRequest) (*domain.TransactionRecord, error) {
	return c.use(ctx, req)
}

// Cancel 取消扣款
func (c *CoreUseCase) Cancel(ctx context.Context, req CancelRequest) (*domain.TransactionRecord, error) {
	return c.cancel(ctx, req)
}

// Inquire 查詢交易
func (c *CoreUseCase) Inquire(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	return c.processor.Inquire(ctx, transactionID)
}

// CreateAccount 開戶
func (c *CoreUseCase) CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error) {
	return c.accounts.CreateAccount(ctx, req)
}

// CloseAccount 解約
func (c *CoreUseCase) CloseAccount(ctx context.Context, req CloseAccountRequest) (*domain.Account, error) {
	return c.closeAccount(ctx, req)
}

// ListAccounts 列出使用者的帳戶
func (c *CoreUseCase) ListAccounts(ctx context.Context, userID int64) ([]*domain.Account, error) {
	return c.accounts.ListAccounts(ctx, userID)
}

// CreateUser 新增使用者
func (c *CoreUseCase) CreateUser(ctx context.Context, name string) (*domain.AccountUser, error) {
	return c.accounts.CreateUser(ctx, name)
}

// SeedUsers 補齊預設使用者
func (c *CoreUseCase) SeedUsers(ctx context.Context, names []string) (int, error) {
	return c.accounts.SeedUsers(ctx, names)
}
