// Package transport 提供 NEAR 节点 JSON-RPC 访问
package transport

import (
	"context"
)

// Finality 查询使用的最终性级别
type Finality string

const (
	FinalityFinal      Finality = "final"
	FinalityOptimistic Finality = "optimistic"
)

// BlockReference 指定查询所基于的区块，BlockID 非空时优先于 Finality
type BlockReference struct {
	Finality Finality
	BlockID  interface{} // 高度(uint64) 或 base58 哈希(string)
}

// FinalBlock 引用最新最终区块
var FinalBlock = BlockReference{Finality: FinalityFinal}

func (r BlockReference) apply(params map[string]interface{}) {
	if r.BlockID != nil {
		params["block_id"] = r.BlockID
		return
	}
	f := r.Finality
	if f == "" {
		f = FinalityFinal
	}
	params["finality"] = string(f)
}

// Client NEAR 节点客户端接口
type Client interface {
	// ===== 节点信息 =====

	Status(ctx context.Context) (*NodeStatus, error)
	Ping(ctx context.Context) error

	// ===== 区块 =====

	Block(ctx context.Context, ref BlockReference) (*Block, error)

	// ===== 状态查询 =====

	ViewAccount(ctx context.Context, accountID string, ref BlockReference) (*AccountView, error)
	ViewAccessKey(ctx context.Context, accountID, publicKey string, ref BlockReference) (*AccessKeyView, error)
	CallFunction(ctx context.Context, contractID, method string, args []byte, ref BlockReference) (*CallFunctionResult, error)

	// ===== 交易 =====

	// SendTransactionCommit 广播已签名交易并等待执行完成，调用方不得重试
	SendTransactionCommit(ctx context.Context, signedTxBase64 string) (*FinalExecutionOutcome, error)
	TxStatus(ctx context.Context, txHash, senderID string) (*FinalExecutionOutcome, error)
}
