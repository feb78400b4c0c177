package domain

import (
	"fmt"
	"strconv"
)

// 帳戶與交易的預設限制，金額單位為最小貨幣單位
const (
	// MaxAccountCount 每位使用者最多可開立的帳戶數
	MaxAccountCount = 10
	// InitialAccountNumber 第一個帳號
	InitialAccountNumber = "1000000000"
	// AccountNumberLength 帳號固定長度
	AccountNumberLength = 10

	DefaultMinTransactionAmount int64 = 100
	DefaultMaxTransactionAmount int64 = 100_000_000

	// DefaultCancelWindowYears 交易可取消的期限 (年)
	DefaultCancelWindowYears = 1
)

// Limits 單筆交易金額上下限
type Limits struct {
	MinTransactionAmount int64
	MaxTransactionAmount int64
}

// DefaultLimits 回傳預設的交易金額限制
func DefaultLimits() Limits {
	return Limits{
		MinTransactionAmount: DefaultMinTransactionAmount,
		MaxTransactionAmount: DefaultMaxTransactionAmount,
	}
}

// Validate 檢查上下限是否合理
func (l Limits) Validate() error {
	if l.MinTransactionAmount <= 0 {
		return fmt.Errorf("min transaction amount must be positive, got %d", l.MinTransactionAmount)
	}
	if l.MaxTransactionAmount < l.MinTransactionAmount {
		return fmt.Errorf("max transaction amount %d is below min %d", l.MaxTransactionAmount, l.MinTransactionAmount)
	}
	return nil
}

// NextAccountNumber 依照目前最大帳號產生下一個帳號，無帳號時回傳 InitialAccountNumber
func NextAccountNumber(latest string) (string, error) {
	if latest == "" {
		return InitialAccountNumber, nil
	}
	n, err := strconv.ParseInt(latest, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse account number %q: %w", latest, err)
	}
	next := strconv.FormatInt(n+1, 10)
	if len(next) != AccountNumberLength {
		return "", fmt.Errorf("account number space exhausted after %s", latest)
	}
	return next, nil
}

// IsValidAccountNumber 帳號必須為固定長度的數字字串
func IsValidAccountNumber(number string) bool {
	if len(number) != AccountNumberLength {
		return false
	}
	for _, c := range number {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
