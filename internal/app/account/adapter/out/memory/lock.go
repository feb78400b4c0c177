package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
)

const defaultLockRetryDelay = 10 * time.Millisecond

// LockProvider 單一行程內的租約鎖，給單機模式與測試使用
// 行為與 Redis 版本一致: 有等待上限、租約到期自動釋放、只能由持有者釋放
type LockProvider struct {
	mu         sync.Mutex
	leases     map[string]*leaseEntry
	nextToken  uint64
	retryDelay time.Duration
}

type leaseEntry struct {
	token     uint64
	expiresAt time.Time
}

type memoryLease struct {
	provider *LockProvider
	key      string
	token    uint64
}

// NewLockProvider 建立記憶體鎖
func NewLockProvider() *LockProvider {
	return &LockProvider{
		leases:     make(map[string]*leaseEntry),
		retryDelay: defaultLockRetryDelay,
	}
}

// TryAcquire implements lock.Provider.
func (p *LockProvider) TryAcquire(ctx context.Context, key string, wait, lease time.Duration) (lock.Lease, bool, error) {
	deadline := time.Now().Add(wait)
	var timer *time.Timer
	for {
		if l, ok := p.tryOnce(key, lease); ok {
			return l, true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, nil
		}
		delay := min(p.retryDelay, remaining)
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *LockProvider) tryOnce(key string, lease time.Duration) (*memoryLease, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if cur, ok := p.leases[key]; ok && now.Before(cur.expiresAt) {
		return nil, false
	}
	p.nextToken++
	p.leases[key] = &leaseEntry{token: p.nextToken, expiresAt: now.Add(lease)}
	return &memoryLease{provider: p, key: key, token: p.nextToken}, true
}

// Release 只刪除自己的租約，已到期並被他人取得的鎖不受影響
func (l *memoryLease) Release(ctx context.Context) error {
	p := l.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur, ok := p.leases[l.key]; ok && cur.token == l.token {
		delete(p.leases, l.key)
	}
	return nil
}

var _ lock.Provider = (*LockProvider)(nil)
