package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/weisyn/nearnft/client"
	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/contract"
)

var (
	callGas         string
	callDeposit     string
	callDepositNear string
	runOpFile       string
)

// callCmd 调用变更方法
var callCmd = &cobra.Command{
	Use:   "call <method> [args-json]",
	Short: "签名并调用合约变更方法",
	Long: `签名并广播一次合约变更调用，等待最终结果后输出返回值。

示例：
  nearnft call nft_mint '{"token_series_id":"1","receiver_id":"viernear.testnet"}' \
      --gas 300000000000000 --deposit 7000000000000000000000`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd, config.Operation{
			Kind:        config.OperationCall,
			Method:      args[0],
			Args:        argsJSON(args),
			Gas:         callGas,
			Deposit:     callDeposit,
			DepositNear: callDepositNear,
		})
	},
}

// viewCmd 调用只读方法
var viewCmd = &cobra.Command{
	Use:   "view <method> [args-json]",
	Short: "调用合约只读方法",
	Long: `调用合约只读方法，无需签名。未指定账户时以合约账户身份查询。

示例：
  nearnft view nft_tokens_for_owner '{"account_id":"viernear.testnet"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(cmd, config.Operation{
			Kind:   config.OperationView,
			Method: args[0],
			Args:   argsJSON(args),
		})
	},
}

// runCmd 执行操作文件
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行 JSON 操作文件中描述的一次调用",
	Long: `从文件（"-" 表示标准输入）读取一次操作并执行。

操作文件示例：
  {"kind":"call","method":"nft_mint",
   "args":{"token_series_id":"1","receiver_id":"viernear.testnet"},
   "gas":"300000000000000","deposit":"7000000000000000000000"}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := config.LoadOperation(runOpFile)
		if err != nil {
			return err
		}
		return invoke(cmd, op)
	},
}

func init() {
	callCmd.Flags().StringVar(&callGas, "gas", "", "附加 gas (默认 30000000000000)")
	callCmd.Flags().StringVar(&callDeposit, "deposit", "", "附加押金 (yoctoNEAR)")
	callCmd.Flags().StringVar(&callDepositNear, "deposit-near", "", "附加押金 (NEAR，如 0.1)")
	runCmd.Flags().StringVar(&runOpFile, "op-file", "", "操作文件路径，- 为标准输入")
	_ = runCmd.MarkFlagRequired("op-file")
}

func argsJSON(args []string) json.RawMessage {
	if len(args) < 2 {
		return nil
	}
	return json.RawMessage(args[1])
}

func invoke(cmd *cobra.Command, op config.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.client.Close()

	// 未声明的方法在解析账户之前拒绝
	if err := s.client.Methods().CheckMethod(op.Method, op.Kind == config.OperationCall); err != nil {
		return err
	}
	ct, err := s.openContract(cmd.Context(), op.Kind == config.OperationView)
	if err != nil {
		return err
	}
	res, err := client.Invoke(cmd.Context(), ct, op)
	if err != nil {
		return err
	}
	return printResult(res)
}

// printResult 默认只输出合约返回值；交易哈希、日志与 gas 已写入日志，--full-result 时一并输出
func printResult(res interface{}) error {
	if globalFlags.FullResult {
		return formatter.Print(res)
	}
	switch r := res.(type) {
	case *contract.CallResult:
		return formatter.Print(r.Value)
	case *contract.ViewResult:
		return formatter.Print(r.Value)
	default:
		return formatter.Print(res)
	}
}
