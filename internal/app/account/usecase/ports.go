package usecase

import (
	"context"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
)

// UserStore 使用者儲存介面
type UserStore interface {
	// FindUser 找不到時回傳 domain.ErrUserNotFound
	FindUser(ctx context.Context, id int64) (*domain.AccountUser, error)
	// SaveUser ID 為 0 時新增並回填 ID
	SaveUser(ctx context.Context, user *domain.AccountUser) error
	// CountUsers 使用者總數
	CountUsers(ctx context.Context) (int64, error)
}

// AccountStore 帳戶儲存介面
type AccountStore interface {
	// FindByNumber 找不到時回傳 domain.ErrAccountNotFound
	FindByNumber(ctx context.Context, number string) (*domain.Account, error)
	// FindByOwner 依開戶時間排序
	FindByOwner(ctx context.Context, userID int64) ([]*domain.Account, error)
	CountByOwner(ctx context.Context, userID int64) (int64, error)
	// LatestAccountNumber 目前最大的帳號，沒有任何帳戶時回傳空字串
	LatestAccountNumber(ctx context.Context) (string, error)
	// SaveAccount ID 為 0 時新增並回填 ID (帳號重複回傳 domain.ErrAccountAlreadyExists)，否則更新
	SaveAccount(ctx context.Context, account *domain.Account) error
}

// LedgerStore 交易紀錄儲存介面
type LedgerStore interface {
	// FindByTransactionID 找不到時回傳 domain.ErrTransactionNotFound
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.TransactionRecord, error)
	// SaveTransaction 依 TransactionID 新增或更新
	SaveTransaction(ctx context.Context, record *domain.TransactionRecord) error
	// Commit 在同一個交易內更新帳戶並寫入交易紀錄，任何一步失敗則全部不生效
	// 帳戶不存在時回傳 domain.ErrAccountNotFound
	Commit(ctx context.Context, account *domain.Account, records ...*domain.TransactionRecord) error
}

// Store 三種儲存的組合，adapter 通常一次實作全部
type Store interface {
	UserStore
	AccountStore
	LedgerStore
}
