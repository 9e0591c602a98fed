package main

import (
	"math/big"

	"github.com/spf13/cobra"

	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/tx"
)

// accountCmd 查询账户状态
var accountCmd = &cobra.Command{
	Use:   "account [account-id]",
	Short: "查询账户余额与存储占用",
	Long:  "查询账户状态，不指定账户时使用签名账户。",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.client.Close()

		accountID := s.accountID
		if len(args) > 0 {
			accountID = args[0]
		}
		if accountID == "" {
			return errs.New(errs.KindConfig, "account", "account id is required")
		}

		acct, err := s.client.ResolveAccount(cmd.Context(), accountID)
		if err != nil {
			return err
		}
		state := acct.CachedState()
		if accountRefresh {
			if state, err = acct.State(cmd.Context()); err != nil {
				return err
			}
		}

		out := map[string]interface{}{
			"account_id":    accountID,
			"amount":        state.Amount,
			"locked":        state.Locked,
			"storage_usage": state.StorageUsage,
			"code_hash":     state.CodeHash,
			"block_height":  state.BlockHeight,
		}
		if amount, ok := new(big.Int).SetString(state.Amount, 10); ok {
			out["amount_near"] = tx.FormatNearAmount(amount)
		}
		return formatter.Print(out)
	},
}

var accountRefresh bool

func init() {
	accountCmd.Flags().BoolVar(&accountRefresh, "refresh", false, "解析后再查询一次最新状态")
}
