package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/weisyn/nearnft/client/core/transport"
)

// LastResult 取最终执行结果的返回值
//
// 顶层 status 带 SuccessValue 时直接使用；否则取最后一个带 SuccessValue 的回执。
func LastResult(outcome *transport.FinalExecutionOutcome) ([]byte, interface{}, error) {
	if outcome == nil {
		return nil, nil, nil
	}
	status := outcome.Status
	if status.SuccessValue == nil {
		for i := len(outcome.ReceiptsOutcome) - 1; i >= 0; i-- {
			if s := outcome.ReceiptsOutcome[i].Outcome.Status; s.SuccessValue != nil {
				status = s
				break
			}
		}
	}
	raw, err := status.DecodeSuccessValue()
	if err != nil {
		return nil, nil, err
	}
	value, err := DecodeValue(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, value, nil
}

// DecodeValue 按 JSON 解码合约返回值，空返回 nil，非 JSON 按字符串返回
func DecodeValue(raw []byte) (interface{}, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(raw), nil
	}
	if dec.More() {
		return string(raw), nil
	}
	return v, nil
}

func decodeInto(raw []byte, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode contract result: %w", err)
	}
	return nil
}
