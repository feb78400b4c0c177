package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/in/grpc"
	opshttp "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/in/http"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/observability"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
	"github.com/JoeShih716/go-account-ledger/internal/config"
	"github.com/JoeShih716/go-account-ledger/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC API and the ops HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, _, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 儲存與鎖
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Error("close backend", zap.Error(err))
		}
	}()

	// 2. 指標
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	// 3. UseCase
	core := buildCore(cfg, b, log, metrics)
	if created, err := core.SeedUsers(ctx, cfg.SeedUsers); err != nil {
		return fmt.Errorf("seed users: %w", err)
	} else if created > 0 {
		log.Info("seed users created", zap.Int("count", created))
	}

	// 4. gRPC
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcadapter.UnaryRecoveryInterceptor(log),
		grpcadapter.UnaryLoggingInterceptor(log.Named("grpc")),
	))
	grpcadapter.RegisterAccountServiceServer(grpcServer, grpcadapter.NewGrpcServer(core, log.Named("grpc")))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	// 5. 維運 HTTP
	ops := opshttp.NewOpsServer(reg)
	for name, check := range b.checks {
		ops.AddCheck(name, check)
	}
	opsServer := &http.Server{
		Addr:              cfg.Server.OpsAddr,
		Handler:           ops.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc server listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info("ops server listening", zap.String("addr", cfg.Server.OpsAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server stopped", zap.Error(serveErr))
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	gracefulStop(shutdownCtx, grpcServer)
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops server shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return serveErr
}

// buildCore 組裝 UseCase，gRPC 與 migrate 共用
func buildCore(cfg *config.Config, b *backend, log *zap.Logger, metrics *observability.Metrics) *usecase.CoreUseCase {
	processor := usecase.NewTransactionProcessor(b.store, b.store, b.store,
		usecase.WithLimits(cfg.Transaction.Limits()),
		usecase.WithCancelWindow(cfg.Transaction.CancelWindowYears),
		usecase.WithLogger(log.Named("processor")),
		usecase.WithMetrics(metrics),
	)
	accounts := usecase.NewAccountService(b.store, b.store, log.Named("accounts"))
	locks := lock.NewManager(b.locks, cfg.Lock.Config,
		lock.WithLogger(log.Named("lock")),
		lock.WithMetrics(metrics),
	)
	return usecase.NewCoreUseCase(processor, accounts, locks)
}

// gracefulStop 等待進行中的請求完成，逾時後強制關閉
func gracefulStop(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}
