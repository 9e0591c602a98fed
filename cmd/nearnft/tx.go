package main

import (
	"github.com/spf13/cobra"

	"github.com/weisyn/nearnft/client/core/contract"
	"github.com/weisyn/nearnft/client/core/errs"
)

var txSender string

// txCmd 查询交易结果
var txCmd = &cobra.Command{
	Use:   "tx <tx-hash>",
	Short: "查询交易的最终执行结果",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.client.Close()

		sender := firstNonEmpty(txSender, s.accountID)
		if sender == "" {
			return errs.New(errs.KindConfig, "tx", "--sender is required")
		}

		outcome, err := s.client.Connection().TxStatus(cmd.Context(), args[0], sender)
		if err != nil {
			return err
		}
		_, value, err := contract.LastResult(outcome)
		if err != nil {
			return errs.Wrap(errs.KindQuery, "tx", err)
		}

		out := map[string]interface{}{
			"transaction_hash": outcome.TransactionHash(),
			"value":            value,
			"logs":             outcome.Logs(),
			"gas_burnt":        outcome.GasBurnt(),
		}
		if outcome.Status.IsFailure() {
			out["failure"] = outcome.Status.Failure
		}
		return formatter.Print(out)
	},
}

func init() {
	txCmd.Flags().StringVar(&txSender, "sender", "", "交易签名账户 (默认签名账户)")
}
