package domain

import "errors"

// ErrorCode 對外穩定的錯誤代碼
type ErrorCode string

const (
	CodeInternal                ErrorCode = "INTERNAL_SERVER_ERROR"
	CodeArgumentNotValid        ErrorCode = "ARGUMENT_NOT_VALID"
	CodeUserNotFound            ErrorCode = "USER_NOT_FOUND"
	CodeExceedMaxAccountCount   ErrorCode = "EXCEED_MAX_ACCOUNT_COUNT"
	CodeAccountNotFound         ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeAccountAlreadyExists    ErrorCode = "ACCOUNT_ALREADY_EXISTS"
	CodeAccountUserMismatch     ErrorCode = "ACCOUNT_USER_MISMATCH"
	CodeUnregisteredAccount     ErrorCode = "UNREGISTERED_ACCOUNT"
	CodeRemainedBalance         ErrorCode = "REMAINED_BALANCE"
	CodeInsufficientBalance     ErrorCode = "INSUFFICIENT_BALANCE"
	CodeTooSmallAmount          ErrorCode = "TOO_SMALL_AMOUNT"
	CodeTooBigAmount            ErrorCode = "TOO_BIG_AMOUNT"
	CodeTransactionNotFound     ErrorCode = "TRANSACTION_NOT_FOUND"
	CodeAmountMismatch          ErrorCode = "TRANSACTION_AMOUNT_MISMATCH"
	CodeAccountNumberMismatch   ErrorCode = "ACCOUNT_NUMBER_MISMATCH"
	CodeExceedDate1Year         ErrorCode = "EXCEED_DATE_1YEAR"
	CodeUnableCancelTransaction ErrorCode = "UNABLE_CANCEL_TRANSACTION"
	CodeLockUnavailable         ErrorCode = "LOCK_UNAVAILABLE"
)

// Error 業務錯誤，帶有固定代碼與訊息
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// registry 代碼對應的錯誤，讓遠端回傳的代碼可以還原成同一個 sentinel
var registry = make(map[ErrorCode]*Error)

func newError(code ErrorCode, message string) *Error {
	e := &Error{Code: code, Message: message}
	registry[code] = e
	return e
}

// Lookup 依代碼取回錯誤，未知代碼回傳 nil
func Lookup(code ErrorCode) *Error {
	return registry[code]
}

var (
	// ErrArgumentNotValid 輸入參數不正確
	ErrArgumentNotValid = newError(CodeArgumentNotValid, "argument not valid")

	// ErrUserNotFound 找不到使用者
	ErrUserNotFound = newError(CodeUserNotFound, "user not found")

	// ErrExceedMaxAccountCount 帳戶數量已達上限
	ErrExceedMaxAccountCount = newError(CodeExceedMaxAccountCount, "account count per user exceeded")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = newError(CodeAccountNotFound, "account not found")

	// ErrAccountAlreadyExists 帳號已存在
	ErrAccountAlreadyExists = newError(CodeAccountAlreadyExists, "account number already exists")

	// ErrAccountUserMismatch 帳戶擁有者不一致
	ErrAccountUserMismatch = newError(CodeAccountUserMismatch, "account owner does not match user")

	// ErrUnregisteredAccount 帳戶已解約
	ErrUnregisteredAccount = newError(CodeUnregisteredAccount, "account is closed")

	// ErrRemainedBalance 帳戶仍有餘額
	ErrRemainedBalance = newError(CodeRemainedBalance, "account still has balance")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = newError(CodeInsufficientBalance, "insufficient balance")

	// ErrTooSmallAmount 交易金額過小
	ErrTooSmallAmount = newError(CodeTooSmallAmount, "transaction amount too small")

	// ErrTooBigAmount 交易金額過大
	ErrTooBigAmount = newError(CodeTooBigAmount, "transaction amount too big")

	// ErrTransactionNotFound 找不到交易
	ErrTransactionNotFound = newError(CodeTransactionNotFound, "transaction not found")

	// ErrAmountMismatch 取消金額與原交易金額不同
	ErrAmountMismatch = newError(CodeAmountMismatch, "cancel amount does not match transaction amount")

	// ErrAccountNumberMismatch 交易不屬於此帳號
	ErrAccountNumberMismatch = newError(CodeAccountNumberMismatch, "transaction does not belong to account")

	// ErrExceedDate1Year 交易超過可取消期限
	ErrExceedDate1Year = newError(CodeExceedDate1Year, "transaction is older than the cancel window")

	// ErrUnableCancelTransaction 此交易無法取消
	ErrUnableCancelTransaction = newError(CodeUnableCancelTransaction, "transaction cannot be canceled")

	// ErrLockUnavailable 帳戶正在交易中，請稍後再試
	ErrLockUnavailable = newError(CodeLockUnavailable, "account is under another transaction, try again later")
)

// CodeOf 取出錯誤代碼，非業務錯誤一律回傳 CodeInternal
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsDomainError 判斷是否為業務錯誤
func IsDomainError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
