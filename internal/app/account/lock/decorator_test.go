package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/out/memory"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
)

type keyedReq struct {
	number string
}

func (r keyedReq) GetAccountNumber() string { return r.number }

func newTestManager() *lock.Manager {
	return lock.NewManager(memory.NewLockProvider(), lock.Config{Wait: 20 * time.Millisecond, Lease: 5 * time.Second})
}

// assertFree 確認鎖已釋放
func assertFree(t *testing.T, m *lock.Manager, number string) {
	t.Helper()
	h, err := m.Acquire(context.Background(), number)
	require.NoError(t, err, "lock on %s should be free", number)
	m.Release(context.Background(), h)
}

func TestWithAccountLock_Success(t *testing.T) {
	m := newTestManager()
	var heldDuringOp bool

	op := func(ctx context.Context, req keyedReq) (int, error) {
		_, err := m.Acquire(ctx, req.number)
		heldDuringOp = errors.Is(err, domain.ErrLockUnavailable)
		return 42, nil
	}

	got, err := lock.WithAccountLock(m, op)(context.Background(), keyedReq{number: "1000000000"})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.True(t, heldDuringOp)
	assertFree(t, m, "1000000000")
}

func TestWithAccountLock_OpError(t *testing.T) {
	m := newTestManager()
	opErr := domain.ErrInsufficientBalance

	_, err := lock.WithAccountLock(m, func(ctx context.Context, req keyedReq) (string, error) {
		return "partial", opErr
	})(context.Background(), keyedReq{number: "1000000000"})

	assert.ErrorIs(t, err, opErr)
	assertFree(t, m, "1000000000")
}

func TestWithAccountLock_Panic(t *testing.T) {
	m := newTestManager()

	wrapped := lock.WithAccountLock(m, func(ctx context.Context, req keyedReq) (int, error) {
		panic("boom")
	})
	assert.Panics(t, func() {
		_, _ = wrapped(context.Background(), keyedReq{number: "1000000000"})
	})
	assertFree(t, m, "1000000000")
}

func TestWithAccountLock_Unavailable(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	h, err := m.Acquire(ctx, "1000000000")
	require.NoError(t, err)
	defer m.Release(ctx, h)

	called := false
	_, err = lock.WithAccountLock(m, func(ctx context.Context, req keyedReq) (int, error) {
		called = true
		return 0, nil
	})(ctx, keyedReq{number: "1000000000"})

	assert.ErrorIs(t, err, domain.ErrLockUnavailable)
	assert.False(t, called, "op must not run without the lock")
}

func TestWithAccountLock_EmptyNumber(t *testing.T) {
	m := newTestManager()

	called := false
	_, err := lock.WithAccountLock(m, func(ctx context.Context, req keyedReq) (int, error) {
		called = true
		return 0, nil
	})(context.Background(), keyedReq{})

	assert.ErrorIs(t, err, lock.ErrEmptyLockKey)
	assert.ErrorIs(t, err, domain.ErrArgumentNotValid)
	assert.False(t, called)
}
