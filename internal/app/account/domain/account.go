package domain

import "time"

// AccountStatus 帳戶狀態
type AccountStatus string

const (
	// 使用中
	AccountStatusActive AccountStatus = "ACTIVE"
	// 已解約，不可再回到使用中
	AccountStatusClosed AccountStatus = "CLOSED"
)

// AccountUser 帳戶擁有者
type AccountUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Account 帳戶，餘額只能透過 UseBalance / CancelUseBalance 變動
type Account struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	Number       string        `json:"number"`
	Status       AccountStatus `json:"status"`
	Balance      int64         `json:"balance"`
	RegisteredAt time.Time     `json:"registered_at"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
}

// NewAccount 開立新帳戶
//
// 參數:
//
//	userID: 擁有者 ID
//	number: 帳號
//	initialBalance: 初始餘額 (不可為負)
//	now: 開戶時間
//
// 回傳:
//
//	*Account: 使用中的帳戶
//	error: 參數錯誤
func NewAccount(userID int64, number string, initialBalance int64, now time.Time) (*Account, error) {
	if initialBalance < 0 || !IsValidAccountNumber(number) {
		return nil, ErrArgumentNotValid
	}
	return &Account{
		UserID:       userID,
		Number:       number,
		Status:       AccountStatusActive,
		Balance:      initialBalance,
		RegisteredAt: now,
	}, nil
}

// IsActive 帳戶是否使用中
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// OwnedBy 帳戶是否屬於該使用者
func (a *Account) OwnedBy(userID int64) bool {
	return a.UserID == userID
}

// UseBalance 扣款
// 檢查順序: 餘額不足 > 金額過小 > 金額過大，任何檢查失敗都不會變動餘額
func (a *Account) UseBalance(amount int64, limits Limits) error {
	if amount > a.Balance {
		return ErrInsufficientBalance
	}
	if amount < limits.MinTransactionAmount {
		return ErrTooSmallAmount
	}
	if amount > limits.MaxTransactionAmount {
		return ErrTooBigAmount
	}

	a.Balance -= amount
	return nil
}

// CancelUseBalance 取消扣款，把金額加回餘額
func (a *Account) CancelUseBalance(amount int64) error {
	if amount <= 0 {
		return ErrArgumentNotValid
	}

	a.Balance += amount
	return nil
}

// Close 解約，必須是使用中且餘額為 0
func (a *Account) Close(now time.Time) error {
	if !a.IsActive() {
		return ErrUnregisteredAccount
	}
	if a.Balance > 0 {
		return ErrRemainedBalance
	}

	a.Status = AccountStatusClosed
	a.ClosedAt = &now
	return nil
}

// Clone 深複製，避免呼叫端直接改到儲存層的資料
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.ClosedAt != nil {
		closedAt := *a.ClosedAt
		c.ClosedAt = &closedAt
	}
	return &c
}
