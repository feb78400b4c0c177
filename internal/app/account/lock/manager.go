package lock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/observability"
)

// ErrEmptyLockKey 帳號為空時無法當作鎖的命名空間
var ErrEmptyLockKey = fmt.Errorf("lock key cannot be empty: %w", domain.ErrArgumentNotValid)

// Config 帳戶鎖設定
type Config struct {
	// Wait 最長等待時間
	Wait time.Duration `yaml:"wait"`
	// Lease 租約時間，持有者當機時鎖會在此時間後自動釋放
	Lease time.Duration `yaml:"lease"`
	// KeyPrefix 鎖 key 前綴
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultConfig 等待 1 秒，5 秒後自動釋放
func DefaultConfig() Config {
	return Config{
		Wait:      time.Second,
		Lease:     5 * time.Second,
		KeyPrefix: "ACLK:",
	}
}

// Handle 已取得的帳戶鎖
type Handle struct {
	key        string
	lease      Lease
	acquiredAt time.Time
	released   atomic.Bool
}

// Key 回傳實際使用的鎖 key
func (h *Handle) Key() string {
	return h.key
}

// Locker 讓 decorator 不綁死在 Manager 上
type Locker interface {
	Acquire(ctx context.Context, accountNumber string) (*Handle, error)
	Release(ctx context.Context, handle *Handle)
}

// Manager 帳戶鎖管理 (AccountLockManager)
type Manager struct {
	provider Provider
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// Option 設定 Manager 的選項
type Option func(*Manager)

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics 設定 Prometheus 指標
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager 建立帳戶鎖管理器，cfg 的零值欄位使用 DefaultConfig
func NewManager(provider Provider, cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.Wait <= 0 {
		cfg.Wait = def.Wait
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	m := &Manager{
		provider: provider,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire 取得帳號的鎖
//
// 參數:
//
//	ctx: 上下文
//	accountNumber: 帳號，作為互斥的命名空間
//
// 回傳:
//
//	*Handle: 鎖，需以 Release 釋放
//	error: 等待逾時回傳 domain.ErrLockUnavailable，鎖服務錯誤則包裝後回傳
func (m *Manager) Acquire(ctx context.Context, accountNumber string) (*Handle, error) {
	if strings.TrimSpace(accountNumber) == "" {
		return nil, ErrEmptyLockKey
	}
	key := m.cfg.KeyPrefix + accountNumber
	logger := m.logger.With(zap.String("lock_key", key))

	logger.Debug("trying lock")
	start := time.Now()
	lease, ok, err := m.provider.TryAcquire(ctx, key, m.cfg.Wait, m.cfg.Lease)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		m.metrics.ObserveLockAcquire(elapsed, observability.LockError)
		logger.Error("lock provider failed", zap.Error(err))
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	case !ok:
		m.metrics.ObserveLockAcquire(elapsed, observability.LockUnavailable)
		logger.Warn("lock acquisition failed", zap.Duration("waited", elapsed))
		return nil, domain.ErrLockUnavailable
	}

	m.metrics.ObserveLockAcquire(elapsed, observability.LockAcquired)
	logger.Debug("lock acquired", zap.Duration("waited", elapsed))
	return &Handle{key: key, lease: lease, acquiredAt: time.Now()}, nil
}

// Release 釋放鎖，可重複呼叫；錯誤只記錄不回傳，租約到期後鎖服務會自行清除
func (m *Manager) Release(ctx context.Context, handle *Handle) {
	if handle == nil || handle.lease == nil {
		return
	}
	if !handle.released.CompareAndSwap(false, true) {
		return
	}

	// 呼叫端的 ctx 已取消時仍要把鎖還回去
	ctx = context.WithoutCancel(ctx)
	held := time.Since(handle.acquiredAt)
	if err := handle.lease.Release(ctx); err != nil {
		m.metrics.ObserveLockRelease("error")
		m.logger.Warn("lock release failed",
			zap.String("lock_key", handle.key),
			zap.Duration("held", held),
			zap.Error(err),
		)
		return
	}
	m.metrics.ObserveLockRelease("released")
	m.logger.Debug("lock released", zap.String("lock_key", handle.key), zap.Duration("held", held))
}

var _ Locker = (*Manager)(nil)
