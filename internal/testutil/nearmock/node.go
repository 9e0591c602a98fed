// Package nearmock 提供基于 httptest 的 NEAR JSON-RPC 模拟节点，仅供测试使用
package nearmock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
)

// BlockHash 模拟节点返回的最终区块哈希
var BlockHash = base58.Encode(make32(9))

// TxHash 模拟节点返回的交易哈希
var TxHash = base58.Encode(make32(5))

func make32(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

// Call 一次收到的调用
type Call struct {
	Method      string
	RequestType string // 仅 query 方法
	Params      json.RawMessage
}

// Error JSON-RPC 错误体
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorCause 错误原因
type ErrorCause struct {
	Name string `json:"name"`
}

// HandlerError 构造 HANDLER_ERROR 形态的错误
func HandlerError(cause string, data interface{}) *Error {
	raw, _ := json.Marshal(data)
	return &Error{Code: -32000, Message: "Server error", Name: "HANDLER_ERROR", Cause: &ErrorCause{Name: cause}, Data: raw}
}

// Handler 处理一个方法，返回 result 或 rpc 错误
type Handler func(params json.RawMessage) (interface{}, *Error)

// Node 模拟节点
type Node struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

// New 启动模拟节点，测试结束自动关闭
//
// 默认已处理 status、block、view_account（账户存在）、view_access_key（nonce=10）。
func New(t testing.TB) *Node {
	n := &Node{handlers: make(map[string]Handler)}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)

	n.Handle("status", func(json.RawMessage) (interface{}, *Error) {
		return map[string]interface{}{
			"chain_id":  "testnet",
			"sync_info": map[string]interface{}{"latest_block_hash": BlockHash, "latest_block_height": 100},
		}, nil
	})
	n.Handle("block", func(json.RawMessage) (interface{}, *Error) {
		return map[string]interface{}{
			"author": "node0",
			"header": map[string]interface{}{"height": 100, "hash": BlockHash},
		}, nil
	})
	n.Handle("query:view_account", func(json.RawMessage) (interface{}, *Error) {
		return map[string]interface{}{
			"amount":        "100000000000000000000000000",
			"locked":        "0",
			"code_hash":     "11111111111111111111111111111111",
			"storage_usage": 182,
			"block_height":  100,
			"block_hash":    BlockHash,
		}, nil
	})
	n.Handle("query:view_access_key", func(json.RawMessage) (interface{}, *Error) {
		return map[string]interface{}{
			"nonce":        10,
			"permission":   "FullAccess",
			"block_height": 100,
			"block_hash":   BlockHash,
		}, nil
	})
	return n
}

// Handle 注册处理器；query 方法按 "query:<request_type>" 注册
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// Calls 返回收到的全部调用
func (n *Node) Calls() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Call(nil), n.calls...)
}

// CallCount 返回指定方法（或 "query:<type>"）被调用的次数
func (n *Node) CallCount(method string) int {
	count := 0
	for _, c := range n.Calls() {
		if c.Method == method || "query:"+c.RequestType == method {
			count++
		}
	}
	return count
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		ID     uint64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	key := req.Method
	call := Call{Method: req.Method, Params: req.Params}
	if req.Method == "query" {
		var p struct {
			RequestType string `json:"request_type"`
		}
		_ = json.Unmarshal(req.Params, &p)
		call.RequestType = p.RequestType
		key = "query:" + p.RequestType
	}

	n.mu.Lock()
	n.calls = append(n.calls, call)
	h := n.handlers[key]
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if h == nil {
		resp["error"] = &Error{Code: -32601, Message: fmt.Sprintf("method %s not found", key), Name: "REQUEST_VALIDATION_ERROR"}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// CallResult 构造 call_function 的结果，value 以 JSON 编码成字节数组
func CallResult(value interface{}, logs ...string) map[string]interface{} {
	raw, _ := json.Marshal(value)
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	if logs == nil {
		logs = []string{}
	}
	return map[string]interface{}{
		"result":       ints,
		"logs":         logs,
		"block_height": 100,
		"block_hash":   BlockHash,
	}
}

// SuccessOutcome 构造成功的 FinalExecutionOutcome，value 为合约返回值
func SuccessOutcome(value interface{}, logs ...string) map[string]interface{} {
	raw, _ := json.Marshal(value)
	return outcome(map[string]interface{}{"SuccessValue": base64.StdEncoding.EncodeToString(raw)}, logs)
}

// FailureOutcome 构造失败的 FinalExecutionOutcome
func FailureOutcome(failure interface{}) map[string]interface{} {
	return outcome(map[string]interface{}{"Failure": failure}, nil)
}

func outcome(status map[string]interface{}, logs []string) map[string]interface{} {
	if logs == nil {
		logs = []string{}
	}
	return map[string]interface{}{
		"status":      status,
		"transaction": map[string]interface{}{"hash": TxHash},
		"transaction_outcome": map[string]interface{}{
			"id":         TxHash,
			"block_hash": BlockHash,
			"outcome": map[string]interface{}{
				"logs": []string{}, "receipt_ids": []string{"r1"}, "gas_burnt": 2428000000000,
				"tokens_burnt": "0", "executor_id": "signer", "status": map[string]interface{}{"SuccessReceiptId": "r1"},
			},
		},
		"receipts_outcome": []interface{}{
			map[string]interface{}{
				"id":         "r1",
				"block_hash": BlockHash,
				"outcome": map[string]interface{}{
					"logs": logs, "receipt_ids": []string{}, "gas_burnt": 5000000000000,
					"tokens_burnt": "0", "executor_id": "contract", "status": status,
				},
			},
		},
	}
}
