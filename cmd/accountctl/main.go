package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	grpcadapter "github.com/JoeShih716/go-account-ledger/internal/app/account/adapter/in/grpc"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/pkg/grpc"
)

var (
	serverAddr  string
	callTimeout time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "accountctl",
	Short:         "Command line client for the account ledger service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "addr", "a", "localhost:50051", "accountd gRPC address")
	rootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 5*time.Second, "Per-call timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every gRPC call")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if code := domain.CodeOf(err); code != domain.CodeInternal {
			fmt.Fprintf(os.Stderr, "accountctl: %s: %v\n", code, err)
		} else {
			fmt.Fprintln(os.Stderr, "accountctl:", err)
		}
		os.Exit(1)
	}
}

// dial 建立連線池與 AccountService client，回傳的 close 要在結束時呼叫
func dial() (*grpcadapter.Client, func(), error) {
	log := zap.NewNop()
	if verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		log = dev
	}

	pool := grpc.NewPool(grpc.WithInterceptors(
		grpc.LoggingInterceptor(log),
		grpc.TimeoutInterceptor(callTimeout),
	))
	conn, err := pool.GetConnection(serverAddr)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		_ = pool.Close()
		_ = log.Sync()
	}
	return grpcadapter.NewClient(conn), closeFn, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
