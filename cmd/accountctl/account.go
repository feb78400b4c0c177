package main

import (
	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
)

var createReq usecase.CreateAccountRequest

var createAccountCmd = &cobra.Command{
	Use:   "create-account",
	Short: "Open a new account for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()

		account, err := client.CreateAccount(cmd.Context(), createReq)
		if err != nil {
			return err
		}
		return printJSON(cmd, account)
	},
}

var closeReq usecase.CloseAccountRequest

var closeAccountCmd = &cobra.Command{
	Use:   "close-account",
	Short: "Close an account with zero balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()

		account, err := client.CloseAccount(cmd.Context(), closeReq)
		if err != nil {
			return err
		}
		return printJSON(cmd, account)
	},
}

var listUserID int64

var listAccountsCmd = &cobra.Command{
	Use:   "list-accounts",
	Short: "List the accounts of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, closeFn, err := dial()
		if err != nil {
			return err
		}
		defer closeFn()

		accounts, err := client.ListAccounts(cmd.Context(), listUserID)
		if err != nil {
			return err
		}
		return printJSON(cmd, accounts)
	},
}

func init() {
	rootCmd.AddCommand(createAccountCmd, closeAccountCmd, listAccountsCmd)

	createAccountCmd.Flags().Int64Var(&createReq.UserID, "user", 0, "Owner id")
	createAccountCmd.Flags().Int64Var(&createReq.InitialBalance, "balance", 0, "Initial balance")
	_ = createAccountCmd.MarkFlagRequired("user")

	closeAccountCmd.Flags().Int64Var(&closeReq.UserID, "user", 0, "Owner id")
	closeAccountCmd.Flags().StringVar(&closeReq.AccountNumber, "account", "", "Account number")
	_ = closeAccountCmd.MarkFlagRequired("user")
	_ = closeAccountCmd.MarkFlagRequired("account")

	listAccountsCmd.Flags().Int64Var(&listUserID, "user", 0, "Owner id")
	_ = listAccountsCmd.MarkFlagRequired("user")
}
