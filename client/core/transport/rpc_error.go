package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// 常见错误名
const (
	ErrNameUnknownAccount   = "UNKNOWN_ACCOUNT"
	ErrNameUnknownAccessKey = "UNKNOWN_ACCESS_KEY"
	ErrNameTimeout          = "TIMEOUT_ERROR"
	ErrNameQuery            = "QUERY_ERROR"
)

// RPCError 节点返回的结构化错误
//
// 新版节点格式：{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_ACCOUNT","info":{...}},"code":-32000,"message":"Server error","data":...}
type RPCError struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Name      string          `json:"name,omitempty"`
	Cause     *RPCErrorCause  `json:"cause,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Method    string          `json:"-"`
	HTTPCode  int             `json:"-"`
	retryable bool
}

// RPCErrorCause 错误原因
type RPCErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *RPCError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rpc %s", e.Method)
	if name := e.ErrorName(); name != "" {
		fmt.Fprintf(&b, " %s", name)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if detail := e.detail(); detail != "" && detail != e.Message {
		fmt.Fprintf(&b, ": %s", detail)
	}
	return b.String()
}

// ErrorName 返回最具体的错误名：data 中的执行错误名优先，其次 cause.name，最后 name
func (e *RPCError) ErrorName() string {
	if inner := innermostName(e.Data); inner != "" {
		return inner
	}
	if e.Cause != nil && e.Cause.Name != "" {
		return e.Cause.Name
	}
	return e.Name
}

// Retryable 是否可在其他节点上重试（仅用于只读调用）
func (e *RPCError) Retryable() bool { return e.retryable }

func (e *RPCError) detail() string {
	if len(e.Data) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(e.Data, &s) == nil {
		return s
	}
	return string(e.Data)
}

// innermostName 沿单键对象逐层下探，返回最深一层的键名
//
// {"TxExecutionError":{"InvalidTxError":{"NotEnoughBalance":{...}}}} → "NotEnoughBalance"
func innermostName(raw json.RawMessage) string {
	name := ""
	for depth := 0; depth < 8 && len(raw) > 0; depth++ {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || len(obj) == 0 {
			break
		}
		if len(obj) != 1 {
			// ActionError 形态 {"index":0,"kind":{...}}
			if kind, ok := obj["kind"]; ok {
				raw = kind
				continue
			}
			break
		}
		for k, v := range obj {
			name = k
			raw = v
		}
	}
	return name
}

// FailureName 解析执行失败对象中的错误名
func FailureName(failure json.RawMessage) string {
	return innermostName(failure)
}

// IsUnknownAccount 判断账户不存在
func IsUnknownAccount(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Cause != nil && rpcErr.Cause.Name == ErrNameUnknownAccount {
		return true
	}
	msg := rpcErr.Message + " " + rpcErr.detail()
	return strings.Contains(msg, "does not exist while viewing") || strings.Contains(msg, "AccountDoesNotExist")
}

// IsUnknownAccessKey 判断访问密钥不存在
func IsUnknownAccessKey(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Cause != nil && rpcErr.Cause.Name == ErrNameUnknownAccessKey {
		return true
	}
	msg := rpcErr.Message + " " + rpcErr.detail()
	return strings.Contains(msg, "access key") && strings.Contains(msg, "does not exist")
}

// IsTimeout 判断节点等待交易执行超时
func IsTimeout(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.ErrorName() == ErrNameTimeout
}
