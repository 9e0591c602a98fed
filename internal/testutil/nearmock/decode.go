package nearmock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/weisyn/nearnft/client/core/tx"
)

// FunctionCall 从广播交易中解出的合约调用
type FunctionCall struct {
	SignerID   string
	ReceiverID string
	Nonce      uint64
	MethodName string
	Args       json.RawMessage
	Gas        uint64
	Deposit    *big.Int
	Signed     *tx.SignedTransaction
}

// DecodeBroadcast 解析 broadcast_tx_commit 的参数，仅支持单个 FunctionCall 动作
func DecodeBroadcast(params json.RawMessage) (*FunctionCall, error) {
	var p []string
	if err := json.Unmarshal(params, &p); err != nil || len(p) != 1 {
		return nil, fmt.Errorf("unexpected broadcast params %s", params)
	}
	raw, err := base64.StdEncoding.DecodeString(p[0])
	if err != nil {
		return nil, err
	}

	signed, err := tx.DecodeSignedTransaction(raw)
	if err != nil {
		return nil, err
	}
	t := signed.Transaction
	if len(t.Actions) != 1 {
		return nil, fmt.Errorf("want 1 action, got %d", len(t.Actions))
	}
	call, ok := t.Actions[0].(*tx.FunctionCall)
	if !ok {
		return nil, fmt.Errorf("want FunctionCall action, got %s", t.Actions[0].Name())
	}
	return &FunctionCall{
		SignerID:   t.SignerID,
		ReceiverID: t.ReceiverID,
		Nonce:      t.Nonce,
		MethodName: call.MethodName,
		Args:       json.RawMessage(call.Args),
		Gas:        call.Gas,
		Deposit:    call.Deposit,
		Signed:     signed,
	}, nil
}
