package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/tx"
)

// OperationKind 操作类别
type OperationKind string

const (
	OperationCall OperationKind = "call" // 变更调用，需签名
	OperationView OperationKind = "view" // 只读调用
)

// Operation 一次待执行的合约调用
//
// 示例：
//
//	{"kind":"call","method":"nft_mint","args":{"token_series_id":"1","receiver_id":"viernear.testnet"},
//	 "gas":"300000000000000","deposit":"7000000000000000000000"}
type Operation struct {
	Kind   OperationKind   `json:"kind"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`

	Gas         string `json:"gas,omitempty"`          // 十进制 gas，空为默认 30 Tgas
	Deposit     string `json:"deposit,omitempty"`      // yoctoNEAR
	DepositNear string `json:"deposit_near,omitempty"` // NEAR，如 "1.5"，与 Deposit 互斥
}

// Validate 校验操作
func (o Operation) Validate() error {
	switch o.Kind {
	case OperationCall, OperationView:
	default:
		return errs.New(errs.KindConfig, "operation", "unknown operation kind %q (want call or view)", o.Kind)
	}
	if strings.TrimSpace(o.Method) == "" {
		return errs.New(errs.KindConfig, "operation", "method is required")
	}
	if _, err := o.ArgsObject(); err != nil {
		return err
	}
	if o.Kind == OperationView {
		if o.Gas != "" || o.Deposit != "" || o.DepositNear != "" {
			return errs.New(errs.KindConfig, "operation", "view operation %s cannot carry gas or deposit", o.Method)
		}
		return nil
	}
	if _, err := o.ParsedGas(); err != nil {
		return err
	}
	if _, err := o.ParsedDeposit(); err != nil {
		return err
	}
	return nil
}

// ArgsObject 返回参数的 JSON 对象编码，空参数视为 {}
func (o Operation) ArgsObject() (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(o.Args)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return json.RawMessage(`{}`), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, errs.New(errs.KindConfig, "operation", "args of %s must be a JSON object: %v", o.Method, err)
	}
	return json.RawMessage(trimmed), nil
}

// ParsedGas 解析 gas，空为默认值
func (o Operation) ParsedGas() (uint64, error) {
	if strings.TrimSpace(o.Gas) == "" {
		return tx.DefaultFunctionCallGas, nil
	}
	gas, err := strconv.ParseUint(strings.TrimSpace(o.Gas), 10, 64)
	if err != nil {
		return 0, errs.New(errs.KindConfig, "operation", "invalid gas %q", o.Gas)
	}
	if gas == 0 || gas > tx.MaxFunctionCallGas {
		return 0, errs.New(errs.KindConfig, "operation", "gas %d out of range (1..%d)", gas, tx.MaxFunctionCallGas)
	}
	return gas, nil
}

// ParsedDeposit 解析押金（yoctoNEAR），空为 0
func (o Operation) ParsedDeposit() (*big.Int, error) {
	if o.Deposit != "" && o.DepositNear != "" {
		return nil, errs.New(errs.KindConfig, "operation", "deposit and deposit_near are mutually exclusive")
	}
	if o.DepositNear != "" {
		v, err := tx.ParseNearAmount(o.DepositNear)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, "operation", err)
		}
		return v, nil
	}
	v, err := tx.ParseYocto(o.Deposit)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "operation", err)
	}
	return v, nil
}

// ReadOperation 从 r 解码一个操作并校验
func ReadOperation(r io.Reader) (Operation, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var op Operation
	if err := dec.Decode(&op); err != nil {
		return Operation{}, errs.Wrap(errs.KindConfig, "operation", fmt.Errorf("decode operation: %w", err))
	}
	if err := op.Validate(); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// LoadOperation 读取操作文件，path 为 "-" 时读标准输入
func LoadOperation(path string) (Operation, error) {
	if path == "-" {
		return ReadOperation(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return Operation{}, errs.Wrap(errs.KindConfig, "operation", fmt.Errorf("open operation file: %w", err))
	}
	defer f.Close()
	return ReadOperation(f)
}
