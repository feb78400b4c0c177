package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
type TransactionType string

const (
	// 扣款
	TransactionTypeUse TransactionType = "USE"
	// 取消扣款
	TransactionTypeCancel TransactionType = "CANCEL"
)

// TransactionResult 交易結果
type TransactionResult string

const (
	TransactionResultSuccess  TransactionResult = "SUCCESS"
	TransactionResultFail     TransactionResult = "FAIL"
	TransactionResultCanceled TransactionResult = "CANCELED"
)

// TransactionRecord 交易紀錄，建立後只有 USE/SUCCESS -> CANCELED 一種狀態轉換
type TransactionRecord struct {
	// TransactionID: 對外交易號，使用不可猜測的 UUID (去掉 '-')
	TransactionID string `json:"transaction_id"`
	// AccountID, AccountNumber: 找不到帳戶時為零值
	AccountID     int64  `json:"account_id"`
	AccountNumber string `json:"account_number"`

	Type   TransactionType   `json:"type"`
	Result TransactionResult `json:"result"`
	// Amount: 嘗試交易的金額
	Amount int64 `json:"amount"`
	// BalanceSnapshot: 交易後的帳戶餘額，找不到帳戶時為 0
	BalanceSnapshot int64     `json:"balance_snapshot"`
	TransactedAt    time.Time `json:"transacted_at"`
}

// NewTransactionID 產生 32 字元的交易號
func NewTransactionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTransactionRecord 以帳戶當下狀態建立一筆交易紀錄，account 可為 nil
func NewTransactionRecord(account *Account, typ TransactionType, result TransactionResult, amount int64, now time.Time) *TransactionRecord {
	rec := &TransactionRecord{
		TransactionID: NewTransactionID(),
		Type:          typ,
		Result:        result,
		Amount:        amount,
		TransactedAt:  now,
	}
	if account != nil {
		rec.AccountID = account.ID
		rec.AccountNumber = account.Number
		rec.BalanceSnapshot = account.Balance
	}
	return rec
}

// Cancelable 只有成功的扣款可以取消
func (r *TransactionRecord) Cancelable() bool {
	return r.Type == TransactionTypeUse && r.Result == TransactionResultSuccess
}

// MarkCanceled 將成功的扣款標記為已取消，只能發生一次
func (r *TransactionRecord) MarkCanceled() error {
	if !r.Cancelable() {
		return ErrUnableCancelTransaction
	}
	r.Result = TransactionResultCanceled
	return nil
}

// OlderThan 交易時間是否早於 now 往前推 years 年
func (r *TransactionRecord) OlderThan(years int, now time.Time) bool {
	return r.TransactedAt.Before(now.AddDate(-years, 0, 0))
}

// Clone 複製一份紀錄
func (r *TransactionRecord) Clone() *TransactionRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
