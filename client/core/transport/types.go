package transport

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// NodeStatus status 方法返回
type NodeStatus struct {
	ChainID         string `json:"chain_id"`
	ProtocolVersion uint32 `json:"protocol_version"`
	Version         struct {
		Version string `json:"version"`
		Build   string `json:"build"`
	} `json:"version"`
	SyncInfo struct {
		LatestBlockHash   string `json:"latest_block_hash"`
		LatestBlockHeight uint64 `json:"latest_block_height"`
		LatestBlockTime   string `json:"latest_block_time"`
		Syncing           bool   `json:"syncing"`
	} `json:"sync_info"`
}

// Block block 方法返回（仅保留用到的字段）
type Block struct {
	Author string      `json:"author"`
	Header BlockHeader `json:"header"`
}

// BlockHeader 区块头
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
	Timestamp uint64 `json:"timestamp"`
	EpochID   string `json:"epoch_id"`
	GasPrice  string `json:"gas_price"`
}

// AccountView view_account 查询结果
type AccountView struct {
	Amount        string `json:"amount"`
	Locked        string `json:"locked"`
	CodeHash      string `json:"code_hash"`
	StorageUsage  uint64 `json:"storage_usage"`
	StoragePaidAt uint64 `json:"storage_paid_at"`
	BlockHeight   uint64 `json:"block_height"`
	BlockHash     string `json:"block_hash"`
}

// AccessKeyView view_access_key 查询结果
type AccessKeyView struct {
	Nonce       uint64          `json:"nonce"`
	Permission  json.RawMessage `json:"permission"`
	BlockHeight uint64          `json:"block_height"`
	BlockHash   string          `json:"block_hash"`
}

// IsFullAccess 是否为完全访问权限密钥
func (v *AccessKeyView) IsFullAccess() bool {
	var s string
	return json.Unmarshal(v.Permission, &s) == nil && s == "FullAccess"
}

// CallFunctionResult call_function 查询结果
type CallFunctionResult struct {
	Result      ByteArray `json:"result"`
	Logs        []string  `json:"logs"`
	BlockHeight uint64    `json:"block_height"`
	BlockHash   string    `json:"block_hash"`
	// Error 旧版节点把合约执行错误放在结果里而不是 RPC 错误
	Error string `json:"error,omitempty"`
}

// ByteArray 以 JSON 数字数组编码的字节串
type ByteArray []byte

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("decode byte array: %w", err)
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte array value out of range at %d: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// ExecutionStatus 交易或回执的执行状态
//
// 节点返回字符串 ("Unknown"/"Started") 或对象 ({"SuccessValue": ...} / {"Failure": ...})。
type ExecutionStatus struct {
	State            string          `json:"-"`
	SuccessValue     *string         `json:"SuccessValue,omitempty"`
	SuccessReceiptID *string         `json:"SuccessReceiptId,omitempty"`
	Failure          json.RawMessage `json:"Failure,omitempty"`
}

func (s *ExecutionStatus) UnmarshalJSON(data []byte) error {
	var state string
	if err := json.Unmarshal(data, &state); err == nil {
		*s = ExecutionStatus{State: state}
		return nil
	}
	type plain ExecutionStatus
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode execution status: %w", err)
	}
	*s = ExecutionStatus(p)
	return nil
}

// IsFailure 是否执行失败
func (s ExecutionStatus) IsFailure() bool {
	return len(s.Failure) > 0 && string(s.Failure) != "null"
}

// DecodeSuccessValue 解码 base64 的 SuccessValue，没有时返回 nil
func (s ExecutionStatus) DecodeSuccessValue() ([]byte, error) {
	if s.SuccessValue == nil {
		return nil, nil
	}
	v, err := base64.StdEncoding.DecodeString(*s.SuccessValue)
	if err != nil {
		return nil, fmt.Errorf("decode SuccessValue: %w", err)
	}
	return v, nil
}

// ExecutionOutcome 单个交易或回执的执行结果
type ExecutionOutcome struct {
	Logs        []string        `json:"logs"`
	ReceiptIDs  []string        `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt string          `json:"tokens_burnt"`
	ExecutorID  string          `json:"executor_id"`
	Status      ExecutionStatus `json:"status"`
}

// ExecutionOutcomeWithID 带 ID 的执行结果
type ExecutionOutcomeWithID struct {
	ID        string           `json:"id"`
	BlockHash string           `json:"block_hash"`
	Outcome   ExecutionOutcome `json:"outcome"`
}

// FinalExecutionOutcome broadcast_tx_commit / tx 返回
type FinalExecutionOutcome struct {
	Status             ExecutionStatus          `json:"status"`
	Transaction        json.RawMessage          `json:"transaction"`
	TransactionOutcome ExecutionOutcomeWithID   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithID `json:"receipts_outcome"`
}

// TransactionHash 返回交易哈希
func (o *FinalExecutionOutcome) TransactionHash() string {
	return o.TransactionOutcome.ID
}

// Logs 汇总交易与所有回执的日志
func (o *FinalExecutionOutcome) Logs() []string {
	logs := append([]string{}, o.TransactionOutcome.Outcome.Logs...)
	for _, r := range o.ReceiptsOutcome {
		logs = append(logs, r.Outcome.Logs...)
	}
	return logs
}

// GasBurnt 汇总消耗的 gas
func (o *FinalExecutionOutcome) GasBurnt() uint64 {
	total := o.TransactionOutcome.Outcome.GasBurnt
	for _, r := range o.ReceiptsOutcome {
		total += r.Outcome.GasBurnt
	}
	return total
}
