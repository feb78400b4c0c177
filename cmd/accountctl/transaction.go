package main

import (
	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
)

var useReq usecase.UseRequest

var useCmd = &cobra.Command{
	Use:   "use",
	Short: "Deduct an amount from an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := client.Use(cmd.Context(), useReq)
		if err != nil {
			return err
		}
		return printJSON(cmd, rec)
	},
}

var cancelReq usecase.CancelRequest

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a successful use within the cancel window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := client.Cancel(cmd.Context(), cancelReq)
		if err != nil {
			return err
		}
		return printJSON(cmd, rec)
	},
}

var inquireCmd = &cobra.Command{
	Use:   "inquire TRANSACTION_ID",
	Short: "Show a transaction record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := client.Inquire(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, rec)
	},
}

func init() {
	rootCmd.AddCommand(useCmd, cancelCmd, inquireCmd)

	useCmd.Flags().StringVar(&useReq.AccountNumber, "account", "", "Account number")
	useCmd.Flags().Int64Var(&useReq.UserID, "user", 0, "Account owner id")
	useCmd.Flags().Int64Var(&useReq.Amount, "amount", 0, "Amount to deduct")
	_ = useCmd.MarkFlagRequired("account")
	_ = useCmd.MarkFlagRequired("user")
	_ = useCmd.MarkFlagRequired("amount")

	cancelCmd.Flags().StringVar(&cancelReq.AccountNumber, "account", "", "Account number of the original use")
	cancelCmd.Flags().StringVar(&cancelReq.TransactionID, "transaction", "", "Transaction id of the original use")
	cancelCmd.Flags().Int64Var(&cancelReq.Amount, "amount", 0, "Amount of the original use")
	_ = cancelCmd.MarkFlagRequired("account")
	_ = cancelCmd.MarkFlagRequired("transaction")
	_ = cancelCmd.MarkFlagRequired("amount")
}
