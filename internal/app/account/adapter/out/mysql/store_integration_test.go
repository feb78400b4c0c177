//go:build integration

package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
)

// setupMySQLContainer 啟動一次性的 MySQL 容器並建立資料表
func setupMySQLContainer(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("account"),
		tcmysql.WithUsername("ledger"),
		tcmysql.WithPassword("ledger"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("warning: failed to terminate MySQL container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	client, err := mysql.NewClient(ctx, mysql.Config{
		Host:              host,
		Port:              port.Int(),
		User:              "ledger",
		Password:          "ledger",
		DBName:            "account",
		ConnectRetries:    5,
		ConnectRetryDelay: time.Second,
		LogLevel:          "silent",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(client)
	require.NoError(t, store.AutoMigrate(ctx))
	return store
}

func TestIntegration_Store(t *testing.T) {
	s := setupMySQLContainer(t)
	ctx := context.Background()

	user := &domain.AccountUser{Name: "Pororo", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveUser(ctx, user))
	require.NotZero(t, user.ID)

	_, err := s.FindUser(ctx, user.ID+100)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	latest, err := s.LatestAccountNumber(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	account, err := domain.NewAccount(user.ID, domain.InitialAccountNumber, 10_000, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.SaveAccount(ctx, account))
	require.NotZero(t, account.ID)

	dup, err := domain.NewAccount(user.ID, domain.InitialAccountNumber, 0, time.Now().UTC())
	require.NoError(t, err)
	assert.ErrorIs(t, s.SaveAccount(ctx, dup), domain.ErrAccountAlreadyExists)

	require.NoError(t, account.UseBalance(1_000, domain.DefaultLimits()))
	require.NoError(t, s.SaveAccount(ctx, account))

	got, err := s.FindByNumber(ctx, domain.InitialAccountNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), got.Balance)
	assert.Equal(t, domain.AccountStatusActive, got.Status)

	owned, err := s.FindByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	latest, err = s.LatestAccountNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialAccountNumber, latest)

	rec := domain.NewTransactionRecord(account, domain.TransactionTypeUse, domain.TransactionResultSuccess, 1_000, time.Now().UTC())
	require.NoError(t, s.SaveTransaction(ctx, rec))
	require.NoError(t, rec.MarkCanceled())
	require.NoError(t, s.SaveTransaction(ctx, rec))

	gotRec, err := s.FindByTransactionID(ctx, rec.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionResultCanceled, gotRec.Result)
	assert.Equal(t, int64(9_000), gotRec.BalanceSnapshot)

	_, err = s.FindByTransactionID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestIntegration_Commit(t *testing.T) {
	s := setupMySQLContainer(t)
	ctx := context.Background()

	user := &domain.AccountUser{Name: "Pororo", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveUser(ctx, user))
	account, err := domain.NewAccount(user.ID, domain.InitialAccountNumber, 10_000, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.SaveAccount(ctx, account))

	require.NoError(t, account.UseBalance(4_000, domain.DefaultLimits()))
	used := domain.NewTransactionRecord(account, domain.TransactionTypeUse, domain.TransactionResultSuccess, 4_000, time.Now().UTC())
	require.NoError(t, s.Commit(ctx, account, used))

	got, err := s.FindByNumber(ctx, account.Number)
	require.NoError(t, err)
	assert.Equal(t, int64(6_000), got.Balance)
	_, err = s.FindByTransactionID(ctx, used.TransactionID)
	require.NoError(t, err)

	t.Run("rolls back the balance when a record fails", func(t *testing.T) {
		require.NoError(t, account.CancelUseBalance(4_000))
		require.NoError(t, used.MarkCanceled())
		broken := domain.NewTransactionRecord(account, domain.TransactionTypeCancel, domain.TransactionResultSuccess, 4_000, time.Now().UTC())
		broken.AccountNumber = "12345678901" // 超過欄位長度

		require.Error(t, s.Commit(ctx, account, used, broken))

		got, err := s.FindByNumber(ctx, account.Number)
		require.NoError(t, err)
		assert.Equal(t, int64(6_000), got.Balance)
		gotUsed, err := s.FindByTransactionID(ctx, used.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionResultSuccess, gotUsed.Result)
		_, err = s.FindByTransactionID(ctx, broken.TransactionID)
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("unknown account", func(t *testing.T) {
		ghost := account.Clone()
		ghost.ID += 100
		rec := domain.NewTransactionRecord(ghost, domain.TransactionTypeUse, domain.TransactionResultSuccess, 100, time.Now().UTC())

		assert.ErrorIs(t, s.Commit(ctx, ghost, rec), domain.ErrAccountNotFound)
		assert.ErrorIs(t, s.SaveAccount(ctx, ghost), domain.ErrAccountNotFound)
		_, err := s.FindByTransactionID(ctx, rec.TransactionID)
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}
