package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
)

// CreateAccountRequest 開戶請求
type CreateAccountRequest struct {
	UserID         int64
	InitialBalance int64
}

// CloseAccountRequest 解約請求
type CloseAccountRequest struct {
	UserID        int64
	AccountNumber string
}

// GetAccountNumber implements lock.AccountKeyed.
func (r CloseAccountRequest) GetAccountNumber() string { return r.AccountNumber }

// AccountService 帳戶開立、解約、查詢，以及使用者管理
type AccountService struct {
	users    UserStore
	accounts AccountStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewAccountService 建立帳戶服務
func NewAccountService(users UserStore, accounts AccountStore, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		users:    users,
		accounts: accounts,
		now:      time.Now,
		logger:   logger,
	}
}

// CreateAccount 開戶，帳號為目前最大帳號 + 1
//
// 開戶不經過帳戶鎖 (帳號尚未存在)，兩個請求同時拿到相同帳號時
// 儲存層的唯一限制會讓其中一個回傳 domain.ErrAccountAlreadyExists
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error) {
	if req.InitialBalance < 0 {
		return nil, domain.ErrArgumentNotValid
	}
	user, err := s.users.FindUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	count, err := s.accounts.CountByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count accounts of user %d: %w", user.ID, err)
	}
	if count >= domain.MaxAccountCount {
		return nil, domain.ErrExceedMaxAccountCount
	}

	latest, err := s.accounts.LatestAccountNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest account number: %w", err)
	}
	number, err := domain.NextAccountNumber(latest)
	if err != nil {
		return nil, err
	}
	account, err := domain.NewAccount(user.ID, number, req.InitialBalance, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("save account %s: %w", number, err)
	}

	s.logger.Info("account created",
		zap.Int64("user_id", user.ID),
		zap.String("account_number", account.Number),
		zap.Int64("balance", account.Balance),
	)
	return account, nil
}

// CloseAccount 解約，需持有帳戶鎖
func (s *AccountService) CloseAccount(ctx context.Context, req CloseAccountRequest) (*domain.Account, error) {
	user, err := s.users.FindUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByNumber(ctx, req.AccountNumber)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(user.ID) {
		return nil, domain.ErrAccountUserMismatch
	}
	if err := account.Close(s.now()); err != nil {
		return nil, err
	}
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save account %s: %w", account.Number, err)
	}

	s.logger.Info("account closed", zap.Int64("user_id", user.ID), zap.String("account_number", account.Number))
	return account, nil
}

// ListAccounts 使用者的所有帳戶
func (s *AccountService) ListAccounts(ctx context.Context, userID int64) ([]*domain.Account, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.accounts.FindByOwner(ctx, user.ID)
}

// CreateUser 新增使用者
func (s *AccountService) CreateUser(ctx context.Context, name string) (*domain.AccountUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrArgumentNotValid
	}
	user := &domain.AccountUser{Name: name, CreatedAt: s.now()}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user %q: %w", name, err)
	}
	return user, nil
}

// SeedUsers 使用者數少於 names 時補齊，已經有足夠使用者時不做事
//
// 回傳:
//
//	int: 新增的使用者數
//	error: 儲存錯誤
func (s *AccountService) SeedUsers(ctx context.Context, names []string) (int, error) {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	created := 0
	for i := int(count); i < len(names); i++ {
		if _, err := s.CreateUser(ctx, names[i]); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.Info("users seeded", zap.Int("created", created))
	}
	return created, nil
}
