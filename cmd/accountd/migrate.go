package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
	"github.com/JoeShih716/go-account-ledger/internal/config"
	"github.com/JoeShih716/go-account-ledger/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MySQL schema and seed the default users",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StoreMySQL {
		return errors.New("migrate requires store.driver: mysql")
	}
	log, _, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	b := newBackend()
	if err := openStore(ctx, cfg, log, b); err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	created, err := usecase.NewAccountService(b.store, b.store, log.Named("accounts")).SeedUsers(ctx, cfg.SeedUsers)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	log.Info("migration finished", zap.Int("seeded_users", created))
	return nil
}
