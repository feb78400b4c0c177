package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
)

var (
	benchReq         usecase.UseRequest
	benchCount       int
	benchConcurrency int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Fire concurrent uses against one account and report the outcome",
	Long: `Sends --count use requests for the same account with at most --concurrency
in flight. Every request contends for the same account lock, so the report shows
how many succeeded, how many were rejected by business rules and how many gave
up waiting for the lock.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVar(&benchReq.AccountNumber, "account", "", "Account number")
	benchCmd.Flags().Int64Var(&benchReq.UserID, "user", 0, "Account owner id")
	benchCmd.Flags().Int64Var(&benchReq.Amount, "amount", 100, "Amount per use")
	benchCmd.Flags().IntVar(&benchCount, "count", 1000, "Total number of requests")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 50, "Requests in flight")
	_ = benchCmd.MarkFlagRequired("account")
	_ = benchCmd.MarkFlagRequired("user")
}

func runBench(cmd *cobra.Command, _ []string) error {
	if benchCount <= 0 || benchConcurrency <= 0 {
		return fmt.Errorf("count and concurrency must be positive")
	}
	client, closeFn, err := dial()
	if err != nil {
		return err
	}
	defer closeFn()

	var (
		mu      sync.Mutex
		results = make(map[domain.ErrorCode]int)
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, benchConcurrency)
	ctx := cmd.Context()
	start := time.Now()

	for i := 0; i < benchCount; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			code := domain.ErrorCode("OK")
			if _, err := client.Use(ctx, benchReq); err != nil {
				code = domain.CodeOf(err)
			}
			mu.Lock()
			results[code]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Completed %d requests in %v\n", benchCount, elapsed)
	fmt.Fprintf(out, "TPS: %.2f\n", float64(benchCount)/elapsed.Seconds())
	for _, code := range codes {
		fmt.Fprintf(out, "  %-28s %d\n", code, results[domain.ErrorCode(code)])
	}
	return nil
}
