package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	opshttp "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/in/http"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/out/memory"
	mysqladapter "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/out/mysql"
	redisadapter "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/out/redis"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
	"github.com/JoeShih716/go-account-ledger/internal/config"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
	"github.com/JoeShih716/go-account-ledger/pkg/redis"
	"github.com/JoeShih716/go-account-ledger/pkg/wal"
)

// backend 依設定建立的儲存與鎖，以及對應的健康檢查
type backend struct {
	store   usecase.Store
	locks   lock.Provider
	checks  map[string]opshttp.HealthCheck
	closers []func() error
}

func newBackend() *backend {
	return &backend{checks: make(map[string]opshttp.HealthCheck)}
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openStore 建立儲存層，mysql 會先跑 AutoMigrate
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger, b *backend) error {
	switch cfg.Store.Driver {
	case config.StoreMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, log.Named("mysql"))
		if err != nil {
			return err
		}
		b.closers = append(b.closers, client.Close)

		store := mysqladapter.NewStore(client)
		if err := store.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		b.store = store
		b.checks["mysql"] = client.Ping
		return nil

	default:
		var journal *wal.WAL
		if cfg.Store.WALPath != "" {
			w, err := wal.NewWAL(cfg.Store.WALPath)
			if err != nil {
				return fmt.Errorf("open wal: %w", err)
			}
			journal = w
		}
		store, err := memory.NewStore(journal)
		if err != nil {
			if journal != nil {
				_ = journal.Close()
			}
			return fmt.Errorf("replay wal: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.store = store
		log.Info("memory store ready", zap.String("wal", cfg.Store.WALPath))
		return nil
	}
}

// openLocks 建立帳戶鎖的實作
func openLocks(ctx context.Context, cfg *config.Config, log *zap.Logger, b *backend) error {
	switch cfg.Lock.Provider {
	case config.LockRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, client.Close)
		b.locks = redisadapter.NewLockProvider(client)
		b.checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		log.Info("redis lock provider ready", zap.Strings("addrs", cfg.Redis.Addrs))
	default:
		b.locks = memory.NewLockProvider()
		log.Info("memory lock provider ready")
	}
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	b := newBackend()
	if err := openStore(ctx, cfg, log, b); err != nil {
		_ = b.Close()
		return nil, err
	}
	if err := openLocks(ctx, cfg, log, b); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}
