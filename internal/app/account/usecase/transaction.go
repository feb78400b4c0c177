package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/observability"
)

// UseRequest 扣款請求
type UseRequest struct {
	AccountNumber string
	UserID        int64
	Amount        int64
}

// GetAccountNumber implements lock.AccountKeyed.
func (r UseRequest) GetAccountNumber() string { return r.AccountNumber }

// CancelRequest 取消扣款請求
type CancelRequest struct {
	AccountNumber string
	TransactionID string
	Amount        int64
}

// GetAccountNumber implements lock.AccountKeyed.
func (r CancelRequest) GetAccountNumber() string { return r.AccountNumber }

// TransactionProcessor 扣款 / 取消扣款 / 查詢
//
// Use 與 Cancel 假設呼叫端已持有帳戶鎖 (見 lock.WithAccountLock)，
// 每次呼叫都會寫入一筆交易紀錄，不論成功或失敗。
type TransactionProcessor struct {
	users    UserStore
	accounts AccountStore
	ledger   LedgerStore

	limits       domain.Limits
	cancelWindow int
	now          func() time.Time
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// ProcessorOption 設定 TransactionProcessor
type ProcessorOption func(*TransactionProcessor)

// WithLimits 設定單筆金額上下限
func WithLimits(limits domain.Limits) ProcessorOption {
	return func(p *TransactionProcessor) {
		p.limits = limits
	}
}

// WithCancelWindow 設定可取消的年數
func WithCancelWindow(years int) ProcessorOption {
	return func(p *TransactionProcessor) {
		if years > 0 {
			p.cancelWindow = years
		}
	}
}

// WithClock 替換時間來源，測試用
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *TransactionProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) ProcessorOption {
	return func(p *TransactionProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics 設定 Prometheus 指標
func WithMetrics(metrics *observability.Metrics) ProcessorOption {
	return func(p *TransactionProcessor) {
		p.metrics = metrics
	}
}

// NewTransactionProcessor 建立交易處理器
func NewTransactionProcessor(users UserStore, accounts AccountStore, ledger LedgerStore, opts ...ProcessorOption) *TransactionProcessor {
	p := &TransactionProcessor{
		users:        users,
		accounts:     accounts,
		ledger:       ledger,
		limits:       domain.DefaultLimits(),
		cancelWindow: domain.DefaultCancelWindowYears,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Use 扣款
//
// 參數:
//
//	ctx: 上下文
//	req: 帳號、使用者、金額
//
// 回傳:
//
//	*domain.TransactionRecord: 成功的 USE 紀錄
//	error: 業務錯誤 (已寫入 FAIL 紀錄) 或儲存錯誤
func (p *TransactionProcessor) Use(ctx context.Context, req UseRequest) (*domain.TransactionRecord, error) {
	now := p.now()

	user, err := p.users.FindUser(ctx, req.UserID)
	if err != nil {
		return nil, p.fail(ctx, domain.TransactionTypeUse, nil, req.Amount, now, err)
	}
	account, err := p.accounts.FindByNumber(ctx, req.AccountNumber)
	if err != nil {
		return nil, p.fail(ctx, domain.TransactionTypeUse, nil, req.Amount, now, err)
	}
	if !account.OwnedBy(user.ID) {
		return nil, p.fail(ctx, domain.TransactionTypeUse, account, req.Amount, now, domain.ErrAccountUserMismatch)
	}
	if !account.IsActive() {
		return nil, p.fail(ctx, domain.TransactionTypeUse, account, req.Amount, now, domain.ErrUnregisteredAccount)
	}

	before := account.Balance
	if err := account.UseBalance(req.Amount, p.limits); err != nil {
		return nil, p.fail(ctx, domain.TransactionTypeUse, account, req.Amount, now, err)
	}

	// 餘額與 USE 紀錄一起寫入
	record := domain.NewTransactionRecord(account, domain.TransactionTypeUse, domain.TransactionResultSuccess, req.Amount, now)
	if err := p.ledger.Commit(ctx, account, record); err != nil {
		account.Balance = before
		p.recordFailure(ctx, domain.NewTransactionRecord(account, domain.TransactionTypeUse, domain.TransactionResultFail, req.Amount, now))
		p.metrics.ObserveTransaction(domain.TransactionTypeUse, domain.TransactionResultFail, domain.CodeInternal)
		return nil, fmt.Errorf("commit use on account %s: %w", account.Number, err)
	}

	p.metrics.ObserveTransaction(domain.TransactionTypeUse, domain.TransactionResultSuccess, "")
	p.logger.Info("balance used",
		zap.String("account_number", account.Number),
		zap.String("transaction_id", record.TransactionID),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance", account.Balance),
	)
	return record, nil
}

// Cancel 取消一筆成功的扣款
//
// 參數:
//
//	ctx: 上下文
//	req: 帳號、原交易號、金額 (必須與原交易相同)
//
// 回傳:
//
//	*domain.TransactionRecord: 成功的 CANCEL 紀錄
//	error: 業務錯誤 (已寫入 FAIL 紀錄) 或儲存錯誤
func (p *TransactionProcessor) Cancel(ctx context.Context, req CancelRequest) (*domain.TransactionRecord, error) {
	now := p.now()

	original, err := p.ledger.FindByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, p.fail(ctx, domain.TransactionTypeCancel, nil, req.Amount, now, err)
	}
	if !original.Cancelable() {
		return nil, p.failCancel(ctx, original, req.Amount, now, domain.ErrUnableCancelTransaction)
	}
	if req.Amount != original.Amount {
		return nil, p.failCancel(ctx, original, req.Amount, now, domain.ErrAmountMismatch)
	}
	if req.AccountNumber != original.AccountNumber {
		return nil, p.failCancel(ctx, original, req.Amount, now, domain.ErrAccountNumberMismatch)
	}
	account, err := p.accounts.FindByNumber(ctx, req.AccountNumber)
	if err != nil {
		return nil, p.fail(ctx, domain.TransactionTypeCancel, referenceOnly(original), req.Amount, now, err)
	}
	// 帳號被重新使用時 ID 會不同
	if account.ID != original.AccountID {
		return nil, p.fail(ctx, domain.TransactionTypeCancel, referenceOnly(original), req.Amount, now, domain.ErrAccountNumberMismatch)
	}
	if original.OlderThan(p.cancelWindow, now) {
		return nil, p.fail(ctx, domain.TransactionTypeCancel, account, req.Amount, now, domain.ErrExceedDate1Year)
	}

	before := account.Balance
	if err := account.CancelUseBalance(req.Amount); err != nil {
		return nil, p.fail(ctx, domain.TransactionTypeCancel, account, req.Amount, now, err)
	}
	if err := original.MarkCanceled(); err != nil {
		account.Balance = before
		return nil, p.fail(ctx, domain.TransactionTypeCancel, account, req.Amount, now, err)
	}

	// 餘額、原交易的 CANCELED 與 CANCEL 紀錄一起寫入，失敗時原交易仍是 SUCCESS
	record := domain.NewTransactionRecord(account, domain.TransactionTypeCancel, domain.TransactionResultSuccess, req.Amount, now)
	if err := p.ledger.Commit(ctx, account, original, record); err != nil {
		account.Balance = before
		p.recordFailure(ctx, domain.NewTransactionRecord(account, domain.TransactionTypeCancel, domain.TransactionResultFail, req.Amount, now))
		p.metrics.ObserveTransaction(domain.TransactionTypeCancel, domain.TransactionResultFail, domain.CodeInternal)
		return nil, fmt.Errorf("commit cancel of %s: %w", original.TransactionID, err)
	}

	p.metrics.ObserveTransaction(domain.TransactionTypeCancel, domain.TransactionResultSuccess, "")
	p.logger.Info("use canceled",
		zap.String("account_number", account.Number),
		zap.String("transaction_id", record.TransactionID),
		zap.String("canceled_transaction_id", original.TransactionID),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance", account.Balance),
	)
	return record, nil
}

// Inquire 查詢交易，不需要帳戶鎖
func (p *TransactionProcessor) Inquire(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	return p.ledger.FindByTransactionID(ctx, transactionID)
}

// failCancel 取消失敗時，紀錄指向原交易的帳戶，餘額以帳戶目前狀態為準
func (p *TransactionProcessor) failCancel(ctx context.Context, original *domain.TransactionRecord, amount int64, now time.Time, cause error) error {
	account, err := p.accounts.FindByNumber(ctx, original.AccountNumber)
	if err != nil || account.ID != original.AccountID {
		account = referenceOnly(original)
	}
	return p.fail(ctx, domain.TransactionTypeCancel, account, amount, now, cause)
}

// referenceOnly 只帶帳戶參照、餘額為 0 的帳戶，給找不到帳戶時的 FAIL 紀錄使用
func referenceOnly(record *domain.TransactionRecord) *domain.Account {
	if record.AccountNumber == "" {
		return nil
	}
	return &domain.Account{ID: record.AccountID, Number: record.AccountNumber}
}

// fail 寫入 FAIL 紀錄後回傳原本的業務錯誤
// 非業務錯誤 (儲存層故障) 直接回傳，不寫紀錄；FAIL 紀錄寫不進去時回傳儲存錯誤
func (p *TransactionProcessor) fail(ctx context.Context, typ domain.TransactionType, account *domain.Account, amount int64, now time.Time, cause error) error {
	if !domain.IsDomainError(cause) {
		p.metrics.ObserveTransaction(typ, domain.TransactionResultFail, domain.CodeInternal)
		p.logger.Error("transaction lookup failed", zap.String("type", string(typ)), zap.Error(cause))
		return cause
	}

	code := domain.CodeOf(cause)
	record := domain.NewTransactionRecord(account, typ, domain.TransactionResultFail, amount, now)
	if err := p.ledger.SaveTransaction(ctx, record); err != nil {
		p.metrics.ObserveTransaction(typ, domain.TransactionResultFail, domain.CodeInternal)
		p.logger.Error("save failed transaction",
			zap.String("type", string(typ)),
			zap.String("code", string(code)),
			zap.Error(err),
		)
		return fmt.Errorf("save failed %s transaction: %w", typ, err)
	}

	p.metrics.ObserveTransaction(typ, domain.TransactionResultFail, code)
	p.logger.Warn("transaction failed",
		zap.String("type", string(typ)),
		zap.String("account_number", record.AccountNumber),
		zap.String("transaction_id", record.TransactionID),
		zap.String("code", string(code)),
		zap.Int64("amount", amount),
	)
	return cause
}

// recordFailure 儲存已失敗交易的 FAIL 紀錄，只盡力而為
func (p *TransactionProcessor) recordFailure(ctx context.Context, record *domain.TransactionRecord) {
	if err := p.ledger.SaveTransaction(ctx, record); err != nil {
		p.logger.Error("save failed transaction", zap.String("transaction_id", record.TransactionID), zap.Error(err))
	}
}
