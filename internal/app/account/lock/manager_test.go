package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/out/memory"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/observability"
)

// fakeProvider 記錄呼叫次數，並可注入錯誤
type fakeProvider struct {
	mu         sync.Mutex
	acquireErr error
	busy       bool
	releaseErr error
	keys       []string
	waits      []time.Duration
	leases     []time.Duration
	releases   int
}

type fakeLease struct{ p *fakeProvider }

func (l *fakeLease) Release(ctx context.Context) error {
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	l.p.releases++
	return l.p.releaseErr
}

func (p *fakeProvider) TryAcquire(ctx context.Context, key string, wait, lease time.Duration) (lock.Lease, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.waits = append(p.waits, wait)
	p.leases = append(p.leases, lease)
	if p.acquireErr != nil {
		return nil, false, p.acquireErr
	}
	if p.busy {
		return nil, false, nil
	}
	return &fakeLease{p: p}, true, nil
}

func TestManager_Defaults(t *testing.T) {
	p := &fakeProvider{}
	m := lock.NewManager(p, lock.Config{})

	h, err := m.Acquire(context.Background(), "1000000000")
	require.NoError(t, err)
	assert.Equal(t, "ACLK:1000000000", h.Key())
	assert.Equal(t, []time.Duration{time.Second}, p.waits)
	assert.Equal(t, []time.Duration{5 * time.Second}, p.leases)
	m.Release(context.Background(), h)
	assert.Equal(t, 1, p.releases)
}

func TestManager_Unavailable(t *testing.T) {
	p := &fakeProvider{busy: true}
	m := lock.NewManager(p, lock.DefaultConfig(), lock.WithMetrics(observability.NewMetrics(prometheus.NewRegistry())))

	h, err := m.Acquire(context.Background(), "1000000000")
	assert.Nil(t, h)
	assert.ErrorIs(t, err, domain.ErrLockUnavailable)
}

func TestManager_ProviderError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	m := lock.NewManager(&fakeProvider{acquireErr: cause}, lock.DefaultConfig())

	_, err := m.Acquire(context.Background(), "1000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(err))
}

func TestManager_EmptyKey(t *testing.T) {
	p := &fakeProvider{}
	m := lock.NewManager(p, lock.DefaultConfig())

	_, err := m.Acquire(context.Background(), "  ")
	assert.ErrorIs(t, err, lock.ErrEmptyLockKey)
	assert.Empty(t, p.keys)
}

func TestManager_ReleaseIdempotent(t *testing.T) {
	p := &fakeProvider{}
	m := lock.NewManager(p, lock.DefaultConfig())

	h, err := m.Acquire(context.Background(), "1000000000")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.Release(context.Background(), h)
		m.Release(context.Background(), h)
		m.Release(context.Background(), nil)
	})
	assert.Equal(t, 1, p.releases)
}

func TestManager_ReleaseErrorSwallowed(t *testing.T) {
	p := &fakeProvider{releaseErr: errors.New("redis gone")}
	m := lock.NewManager(p, lock.DefaultConfig())

	h, err := m.Acquire(context.Background(), "1000000000")
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.Release(context.Background(), h) })
	assert.Equal(t, 1, p.releases)
}

func TestManager_ReleaseWithCanceledContext(t *testing.T) {
	provider := memory.NewLockProvider()
	m := lock.NewManager(provider, lock.Config{Wait: 50 * time.Millisecond, Lease: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	h, err := m.Acquire(ctx, "1000000000")
	require.NoError(t, err)
	cancel()
	m.Release(ctx, h)

	h2, err := m.Acquire(context.Background(), "1000000000")
	require.NoError(t, err)
	m.Release(context.Background(), h2)
}

func TestManager_WithMemoryProvider(t *testing.T) {
	provider := memory.NewLockProvider()
	m := lock.NewManager(provider, lock.Config{Wait: 50 * time.Millisecond, Lease: 5 * time.Second})
	ctx := context.Background()

	h, err := m.Acquire(ctx, "1000000000")
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "1000000000")
	assert.ErrorIs(t, err, domain.ErrLockUnavailable)

	other, err := m.Acquire(ctx, "1000000001")
	require.NoError(t, err)
	m.Release(ctx, other)

	m.Release(ctx, h)
	h, err = m.Acquire(ctx, "1000000000")
	require.NoError(t, err)
	m.Release(ctx, h)
}

func TestManager_LeaseExpiryAndStaleRelease(t *testing.T) {
	provider := memory.NewLockProvider()
	m := lock.NewManager(provider, lock.Config{Wait: 20 * time.Millisecond, Lease: 30 * time.Millisecond})
	ctx := context.Background()

	stale, err := m.Acquire(ctx, "1000000000")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	fresh, err := m.Acquire(ctx, "1000000000")
	require.NoError(t, err, "expired lease must become acquirable")

	// 過期持有者釋放是 no-op，不會解掉新持有者的鎖
	m.Release(ctx, stale)
	_, err = m.Acquire(ctx, "1000000000")
	assert.ErrorIs(t, err, domain.ErrLockUnavailable)

	m.Release(ctx, fresh)
}
