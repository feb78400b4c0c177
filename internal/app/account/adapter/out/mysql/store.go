package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
)

// sqlUser 對應資料庫的 account_users 表
type sqlUser struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (*sqlUser) TableName() string {
	return "account_users"
}

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	UserID       int64  `gorm:"index;not null"`
	Number       string `gorm:"size:10;uniqueIndex;not null"`
	Status       string `gorm:"size:16;not null"`
	Balance      int64  `gorm:"not null"`
	RegisteredAt time.Time
	ClosedAt     *time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 account_transactions 表
type sqlTransaction struct {
	TransactionID   string    `gorm:"primaryKey;size:32"`
	AccountID       int64     `gorm:"index"`
	AccountNumber   string    `gorm:"size:10;index"`
	Type            string    `gorm:"size:8;not null"`
	Result          string    `gorm:"size:10;not null"`
	Amount          int64     `gorm:"not null"`
	BalanceSnapshot int64     `gorm:"not null"`
	TransactedAt    time.Time `gorm:"index;not null"`
}

func (*sqlTransaction) TableName() string {
	return "account_transactions"
}

// Store 以 MySQL (GORM) 實作的儲存
type Store struct {
	client *mysql.Client
}

// NewStore 建立 MySQL 儲存
func NewStore(client *mysql.Client) *Store {
	return &Store{client: client}
}

// AutoMigrate 建立或更新資料表
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.db(ctx).AutoMigrate(&sqlUser{}, &sqlAccount{}, &sqlTransaction{})
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

// FindUser implements usecase.UserStore.
func (s *Store) FindUser(ctx context.Context, id int64) (*domain.AccountUser, error) {
	var row sqlUser
	if err := s.db(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user %d: %w", id, err)
	}
	return &domain.AccountUser{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

// SaveUser implements usecase.UserStore.
func (s *Store) SaveUser(ctx context.Context, user *domain.AccountUser) error {
	row := sqlUser{ID: user.ID, Name: user.Name, CreatedAt: user.CreatedAt}
	if err := s.db(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	user.ID = row.ID
	return nil
}

// CountUsers implements usecase.UserStore.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db(ctx).Model(&sqlUser{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// FindByNumber implements usecase.AccountStore.
func (s *Store) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	var row sqlAccount
	if err := s.db(ctx).Where("number = ?", number).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("select account %s: %w", number, err)
	}
	return row.toDomain(), nil
}

// FindByOwner implements usecase.AccountStore.
func (s *Store) FindByOwner(ctx context.Context, userID int64) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := s.db(ctx).Where("user_id = ?", userID).Order("registered_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select accounts of user %d: %w", userID, err)
	}
	out := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// CountByOwner implements usecase.AccountStore.
func (s *Store) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := s.db(ctx).Model(&sqlAccount{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count accounts of user %d: %w", userID, err)
	}
	return n, nil
}

// LatestAccountNumber implements usecase.AccountStore.
func (s *Store) LatestAccountNumber(ctx context.Context) (string, error) {
	var row sqlAccount
	err := s.db(ctx).Select("number").Order("number DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select latest account number: %w", err)
	}
	return row.Number, nil
}

// SaveAccount implements usecase.AccountStore.
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	row := fromDomainAccount(account)

	if row.ID == 0 {
		if err := s.db(ctx).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAccountAlreadyExists
			}
			return fmt.Errorf("insert account %s: %w", row.Number, err)
		}
		account.ID = row.ID
		return nil
	}

	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return updateAccount(tx, row)
	})
}

// updateAccount 先以 SELECT ... FOR UPDATE 鎖住帳戶列再更新
// MySQL 的 RowsAffected 不含內容未變的列，所以用查詢判斷帳戶是否存在
func updateAccount(tx *gorm.DB, row sqlAccount) error {
	var locked sqlAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND number = ?", row.ID, row.Number).
		Take(&locked).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account %s: %w", row.Number, err)
	}

	err = tx.Model(&sqlAccount{}).Where("id = ?", row.ID).Updates(map[string]any{
		"status":    row.Status,
		"balance":   row.Balance,
		"closed_at": row.ClosedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("update account %s: %w", row.Number, err)
	}
	return nil
}

// FindByTransactionID implements usecase.LedgerStore.
func (s *Store) FindByTransactionID(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	var row sqlTransaction
	if err := s.db(ctx).Where("transaction_id = ?", transactionID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("select transaction %s: %w", transactionID, err)
	}
	return row.toDomain(), nil
}

// SaveTransaction implements usecase.LedgerStore.
// 紀錄建立後只有 result 會變動 (USE/SUCCESS -> CANCELED)
func (s *Store) SaveTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	if record.TransactionID == "" {
		return domain.ErrArgumentNotValid
	}
	return upsertTransaction(s.db(ctx), record)
}

func upsertTransaction(tx *gorm.DB, record *domain.TransactionRecord) error {
	row := fromDomainTransaction(record)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"result"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", record.TransactionID, err)
	}
	return nil
}

// Commit implements usecase.LedgerStore.
// 帳戶更新與交易紀錄在同一個資料庫交易內，任一失敗整筆 rollback
func (s *Store) Commit(ctx context.Context, account *domain.Account, records ...*domain.TransactionRecord) error {
	if account == nil || account.ID == 0 {
		return domain.ErrArgumentNotValid
	}
	for _, record := range records {
		if record == nil || record.TransactionID == "" {
			return domain.ErrArgumentNotValid
		}
	}

	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateAccount(tx, fromDomainAccount(account)); err != nil {
			return err
		}
		for _, record := range records {
			if err := upsertTransaction(tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:           r.ID,
		UserID:       r.UserID,
		Number:       r.Number,
		Status:       domain.AccountStatus(r.Status),
		Balance:      r.Balance,
		RegisteredAt: r.RegisteredAt,
		ClosedAt:     r.ClosedAt,
	}
}

func fromDomainAccount(a *domain.Account) sqlAccount {
	return sqlAccount{
		ID:           a.ID,
		UserID:       a.UserID,
		Number:       a.Number,
		Status:       string(a.Status),
		Balance:      a.Balance,
		RegisteredAt: a.RegisteredAt,
		ClosedAt:     a.ClosedAt,
	}
}

func (r *sqlTransaction) toDomain() *domain.TransactionRecord {
	return &domain.TransactionRecord{
		TransactionID:   r.TransactionID,
		AccountID:       r.AccountID,
		AccountNumber:   r.AccountNumber,
		Type:            domain.TransactionType(r.Type),
		Result:          domain.TransactionResult(r.Result),
		Amount:          r.Amount,
		BalanceSnapshot: r.BalanceSnapshot,
		TransactedAt:    r.TransactedAt,
	}
}

func fromDomainTransaction(t *domain.TransactionRecord) sqlTransaction {
	return sqlTransaction{
		TransactionID:   t.TransactionID,
		AccountID:       t.AccountID,
		AccountNumber:   t.AccountNumber,
		Type:            string(t.Type),
		Result:          string(t.Result),
		Amount:          t.Amount,
		BalanceSnapshot: t.BalanceSnapshot,
		TransactedAt:    t.TransactedAt,
	}
}

var _ usecase.Store = (*Store)(nil)
