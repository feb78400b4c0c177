package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
)

const defaultRetryDelay = 50 * time.Millisecond

// LockProvider 以 Redis (redsync / RedLock) 實作的分散式鎖
type LockProvider struct {
	rs         *redsync.Redsync
	retryDelay time.Duration
}

// Option 設定 LockProvider
type Option func(*LockProvider)

// WithRetryDelay 設定重試間隔，等待時間內會以此間隔重試
func WithRetryDelay(d time.Duration) Option {
	return func(p *LockProvider) {
		if d > 0 {
			p.retryDelay = d
		}
	}
}

// NewLockProvider 建立 Redis 鎖
//
// 參數:
//
//	client: go-redis 連線 (單機、Sentinel 或 Cluster)
//	opts: 選項
//
// 回傳:
//
//	*LockProvider: 可被多個 goroutine 共用
func NewLockProvider(client goredislib.UniversalClient, opts ...Option) *LockProvider {
	p := &LockProvider{
		rs:         redsync.New(goredis.NewPool(client)),
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TryAcquire implements lock.Provider.
func (p *LockProvider) TryAcquire(ctx context.Context, key string, wait, lease time.Duration) (lock.Lease, bool, error) {
	tries := int(wait/p.retryDelay) + 1
	mutex := p.rs.NewMutex(key,
		redsync.WithExpiry(lease),
		redsync.WithTries(tries),
		redsync.WithRetryDelay(p.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		if isContention(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redsync lock %s: %w", key, err)
	}
	return &redisLease{mutex: mutex}, true, nil
}

// isContention 區分「鎖被佔用」與真正的 Redis 錯誤
func isContention(err error) bool {
	return errors.Is(err, redsync.ErrFailed) || isTaken(err)
}

// isTaken 鎖在多數或任一節點上由他人持有
func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.As(err, &taken) || errors.As(err, &nodeTaken)
}

type redisLease struct {
	mutex *redsync.Mutex
}

// Release 解鎖；鎖已到期或已被他人取得時視為已釋放
func (l *redisLease) Release(ctx context.Context) error {
	ok, err := l.mutex.UnlockContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, redsync.ErrLockAlreadyExpired) || (!ok && isTaken(err)) {
		return nil
	}
	return fmt.Errorf("redsync unlock %s: %w", l.mutex.Name(), err)
}

var _ lock.Provider = (*LockProvider)(nil)
