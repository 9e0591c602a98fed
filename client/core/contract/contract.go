// Package contract 把链上合约绑定为只接受已声明方法的代理
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/weisyn/nearnft/client/core/account"
	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/tx"
	"github.com/weisyn/nearnft/internal/log"
)

// Options 合约方法声明
type Options struct {
	ChangeMethods []string // 需签名的变更方法
	ViewMethods   []string // 只读方法
}

// CheckMethod 确认方法已按调用类型声明，无需网络
func (o Options) CheckMethod(method string, change bool) error {
	entry, other := "view", "change"
	declared, elsewhere := o.ViewMethods, o.ChangeMethods
	if change {
		entry, other = other, entry
		declared, elsewhere = elsewhere, declared
	}
	if containsName(declared, method) {
		return nil
	}
	hint := ""
	if containsName(elsewhere, method) {
		hint = fmt.Sprintf(" (declared as %s method)", other)
	}
	return errs.New(errs.KindUnknownMethod, method, "%s is not a declared %s method%s", method, entry, hint)
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Contract 合约代理
type Contract struct {
	account    *account.Account
	contractID string
	change     map[string]struct{}
	view       map[string]struct{}
	logger     log.Logger
}

// CallOptions 变更调用附加的 gas 与押金
type CallOptions struct {
	Gas     uint64   // 0 表示默认 30 Tgas
	Deposit *big.Int // yoctoNEAR，nil 表示 0
}

// CallResult 变更调用结果
type CallResult struct {
	Value           interface{} `json:"value"`
	Raw             []byte      `json:"-"`
	TransactionHash string      `json:"transaction_hash"`
	Logs            []string    `json:"logs"`
	GasBurnt        uint64      `json:"gas_burnt"`
}

// ViewResult 只读调用结果
type ViewResult struct {
	Value       interface{} `json:"value"`
	Raw         []byte      `json:"-"`
	Logs        []string    `json:"logs"`
	BlockHeight uint64      `json:"block_height"`
}

// Decode 把原始返回值解码到 out
func (r *CallResult) Decode(out interface{}) error { return decodeInto(r.Raw, out) }

// Decode 把原始返回值解码到 out
func (r *ViewResult) Decode(out interface{}) error { return decodeInto(r.Raw, out) }

// New 绑定合约，两组方法不得重名
func New(acct *account.Account, contractID string, opts Options) (*Contract, error) {
	if acct == nil {
		return nil, errs.New(errs.KindConfig, "bind_contract", "account is required")
	}
	if err := config.ValidateAccountID(contractID); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "bind_contract", err)
	}

	c := &Contract{
		account:    acct,
		contractID: contractID,
		change:     make(map[string]struct{}, len(opts.ChangeMethods)),
		view:       make(map[string]struct{}, len(opts.ViewMethods)),
		logger:     log.Named("contract").With("contract", contractID),
	}
	for _, m := range opts.ChangeMethods {
		if strings.TrimSpace(m) == "" {
			return nil, errs.New(errs.KindConfig, "bind_contract", "empty change method name")
		}
		c.change[m] = struct{}{}
	}
	for _, m := range opts.ViewMethods {
		if strings.TrimSpace(m) == "" {
			return nil, errs.New(errs.KindConfig, "bind_contract", "empty view method name")
		}
		if _, dup := c.change[m]; dup {
			return nil, errs.New(errs.KindConfig, "bind_contract", "method %s declared as both change and view", m)
		}
		c.view[m] = struct{}{}
	}
	return c, nil
}

// ContractID 合约账户名
func (c *Contract) ContractID() string { return c.contractID }

// Account 签名账户
func (c *Contract) Account() *account.Account { return c.account }

// ChangeMethods 已声明的变更方法（排序后）
func (c *Contract) ChangeMethods() []string { return sortedNames(c.change) }

// ViewMethods 已声明的只读方法（排序后）
func (c *Contract) ViewMethods() []string { return sortedNames(c.view) }

// IsChangeMethod 是否声明为变更方法
func (c *Contract) IsChangeMethod(method string) bool {
	_, ok := c.change[method]
	return ok
}

// IsViewMethod 是否声明为只读方法
func (c *Contract) IsViewMethod(method string) bool {
	_, ok := c.view[method]
	return ok
}

// Call 调用变更方法：签名、广播并等待最终结果
//
// 未声明的方法在访问网络前即返回 UnknownMethod。
func (c *Contract) Call(ctx context.Context, method string, args interface{}, opts CallOptions) (*CallResult, error) {
	if !c.IsChangeMethod(method) {
		return nil, c.unknownMethod(method, "change")
	}
	argBytes, err := MarshalArgs(method, args)
	if err != nil {
		return nil, err
	}
	if opts.Gas > tx.MaxFunctionCallGas {
		return nil, errs.New(errs.KindConfig, method, "gas %d exceeds maximum %d", opts.Gas, tx.MaxFunctionCallGas)
	}
	if opts.Deposit != nil && opts.Deposit.Sign() < 0 {
		return nil, errs.New(errs.KindConfig, method, "deposit must not be negative")
	}

	c.logger.Debugf("call %s args=%s gas=%d deposit=%s", method, argBytes, opts.Gas, opts.Deposit)
	outcome, err := c.account.FunctionCall(ctx, account.FunctionCallRequest{
		ContractID: c.contractID,
		MethodName: method,
		Args:       argBytes,
		Gas:        opts.Gas,
		Deposit:    opts.Deposit,
	})
	if err != nil {
		return nil, err
	}

	raw, value, err := LastResult(outcome)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransaction, method, err)
	}
	return &CallResult{
		Value:           value,
		Raw:             raw,
		TransactionHash: outcome.TransactionHash(),
		Logs:            outcome.Logs(),
		GasBurnt:        outcome.GasBurnt(),
	}, nil
}

// View 调用只读方法
func (c *Contract) View(ctx context.Context, method string, args interface{}) (*ViewResult, error) {
	if !c.IsViewMethod(method) {
		return nil, c.unknownMethod(method, "view")
	}
	argBytes, err := MarshalArgs(method, args)
	if err != nil {
		return nil, err
	}

	res, err := c.account.ViewFunction(ctx, c.contractID, method, argBytes)
	if err != nil {
		return nil, err
	}
	value, err := DecodeValue(res.Result)
	if err != nil {
		return nil, errs.Wrap(errs.KindQuery, method, err)
	}
	return &ViewResult{
		Value:       value,
		Raw:         []byte(res.Result),
		Logs:        res.Logs,
		BlockHeight: res.BlockHeight,
	}, nil
}

func (c *Contract) unknownMethod(method, entry string) error {
	hint := ""
	switch {
	case entry == "change" && c.IsViewMethod(method):
		hint = " (declared as view method)"
	case entry == "view" && c.IsChangeMethod(method):
		hint = " (declared as change method)"
	}
	return errs.New(errs.KindUnknownMethod, method, "%s is not a declared %s method of %s%s", method, entry, c.contractID, hint)
}

// MarshalArgs 把参数编码为 JSON 对象，nil 视为 {}
func MarshalArgs(method string, args interface{}) ([]byte, error) {
	var raw []byte
	switch v := args.(type) {
	case nil:
		return []byte(`{}`), nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, method, fmt.Errorf("marshal args: %w", err))
		}
		raw = b
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []byte(`{}`), nil
	}
	var obj map[string]json.RawMessage
	if raw[0] != '{' || json.Unmarshal(raw, &obj) != nil {
		return nil, errs.New(errs.KindConfig, method, "contract method args must be a JSON object")
	}
	return raw, nil
}

func sortedNames(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
