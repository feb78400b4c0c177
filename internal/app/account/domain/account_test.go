package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveAccount(t *testing.T, balance int64) *Account {
	t.Helper()
	acc, err := NewAccount(1, "1000000000", balance, time.Now())
	require.NoError(t, err)
	return acc
}

func TestNewAccount(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	acc, err := NewAccount(7, "1000000012", 5000, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), acc.UserID)
	assert.Equal(t, AccountStatusActive, acc.Status)
	assert.Equal(t, int64(5000), acc.Balance)
	assert.Equal(t, now, acc.RegisteredAt)
	assert.Nil(t, acc.ClosedAt)

	_, err = NewAccount(7, "1000000012", -1, now)
	assert.ErrorIs(t, err, ErrArgumentNotValid)

	_, err = NewAccount(7, "12ab", 0, now)
	assert.ErrorIs(t, err, ErrArgumentNotValid)
}

func TestAccount_UseBalance(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name    string
		balance int64
		amount  int64
		wantErr error
		want    int64
	}{
		{name: "normal debit", balance: 200_000_000, amount: 15000, want: 199_985_000},
		{name: "min boundary", balance: 1000, amount: limits.MinTransactionAmount, want: 900},
		{name: "max boundary", balance: 200_000_000, amount: limits.MaxTransactionAmount, want: 100_000_000},
		{name: "whole balance", balance: 1000, amount: 1000, want: 0},
		{name: "insufficient", balance: 1000, amount: 1500, wantErr: ErrInsufficientBalance, want: 1000},
		{name: "too small", balance: 1000, amount: 80, wantErr: ErrTooSmallAmount, want: 1000},
		{name: "too big", balance: 200_000_000, amount: limits.MaxTransactionAmount + 1, wantErr: ErrTooBigAmount, want: 200_000_000},
		{name: "insufficient wins over too big", balance: 10, amount: limits.MaxTransactionAmount + 1, wantErr: ErrInsufficientBalance, want: 10},
		{name: "negative amount", balance: 1000, amount: -5, wantErr: ErrTooSmallAmount, want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := newActiveAccount(t, tt.balance)
			err := acc.UseBalance(tt.amount, limits)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, acc.Balance)
		})
	}
}

func TestAccount_UseBalance_BelowMinAlwaysFails(t *testing.T) {
	limits := DefaultLimits()
	for amount := int64(1); amount < limits.MinTransactionAmount; amount += 7 {
		acc := newActiveAccount(t, 1_000_000)
		assert.ErrorIs(t, acc.UseBalance(amount, limits), ErrTooSmallAmount, fmt.Sprintf("amount %d", amount))
		assert.Equal(t, int64(1_000_000), acc.Balance)
	}
}

func TestAccount_CancelUseBalance(t *testing.T) {
	acc := newActiveAccount(t, 100)
	require.NoError(t, acc.CancelUseBalance(5500))
	assert.Equal(t, int64(5600), acc.Balance)

	assert.ErrorIs(t, acc.CancelUseBalance(0), ErrArgumentNotValid)
	assert.Equal(t, int64(5600), acc.Balance)
}

func TestAccount_Close(t *testing.T) {
	now := time.Now()

	acc := newActiveAccount(t, 10)
	assert.ErrorIs(t, acc.Close(now), ErrRemainedBalance)
	assert.True(t, acc.IsActive())

	acc = newActiveAccount(t, 0)
	require.NoError(t, acc.Close(now))
	assert.Equal(t, AccountStatusClosed, acc.Status)
	require.NotNil(t, acc.ClosedAt)
	assert.Equal(t, now, *acc.ClosedAt)

	assert.ErrorIs(t, acc.Close(now), ErrUnregisteredAccount)
}

func TestAccount_Clone(t *testing.T) {
	acc := newActiveAccount(t, 0)
	require.NoError(t, acc.Close(time.Now()))

	c := acc.Clone()
	c.Balance = 99
	*c.ClosedAt = time.Time{}

	assert.Equal(t, int64(0), acc.Balance)
	assert.False(t, acc.ClosedAt.IsZero())
}

func TestNextAccountNumber(t *testing.T) {
	got, err := NextAccountNumber("")
	require.NoError(t, err)
	assert.Equal(t, InitialAccountNumber, got)

	got, err = NextAccountNumber("1000000009")
	require.NoError(t, err)
	assert.Equal(t, "1000000010", got)

	_, err = NextAccountNumber("9999999999")
	assert.Error(t, err)

	_, err = NextAccountNumber("abc")
	assert.Error(t, err)
}
