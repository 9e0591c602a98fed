package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/weisyn/nearnft/internal/log"
)

// JSONRPCClient NEAR JSON-RPC 2.0 客户端实现
type JSONRPCClient struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
	logger     log.Logger
	metrics    *Metrics
}

// NewJSONRPCClient 创建JSON-RPC客户端
func NewJSONRPCClient(endpoint string, timeout time.Duration) *JSONRPCClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &JSONRPCClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: log.Named("transport"),
	}
}

// WithMetrics 记录每次调用的指标
func (c *JSONRPCClient) WithMetrics(m *Metrics) *JSONRPCClient {
	c.metrics = m
	return c
}

// Endpoint 返回节点地址
func (c *JSONRPCClient) Endpoint() string { return c.endpoint }

type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// call 统一的JSON-RPC调用方法
func (c *JSONRPCClient) call(ctx context.Context, method string, params interface{}, result interface{}) (err error) {
	defer func(start time.Time) { c.metrics.observe(method, start, err) }(time.Now())

	req := &jsonrpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &RPCError{Method: method, Message: err.Error(), retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RPCError{Method: method, Message: fmt.Sprintf("read response: %v", err), retryable: true}
	}
	c.logger.Debugf("rpc %s id=%d status=%d took=%s", method, req.ID, resp.StatusCode, time.Since(start))

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		// 非 JSON 响应（网关错误页等）
		return &RPCError{
			Method:    method,
			HTTPCode:  resp.StatusCode,
			Message:   fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(body, 256)),
			retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	if rpcResp.Error != nil {
		rpcResp.Error.Method = method
		rpcResp.Error.HTTPCode = resp.StatusCode
		rpcResp.Error.retryable = rpcResp.Error.ErrorName() == "INTERNAL_ERROR"
		return rpcResp.Error
	}

	if result != nil {
		if len(rpcResp.Result) == 0 {
			return fmt.Errorf("rpc %s: empty result", method)
		}
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ===== 节点信息 =====

func (c *JSONRPCClient) Status(ctx context.Context) (*NodeStatus, error) {
	var status NodeStatus
	if err := c.call(ctx, "status", []interface{}{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *JSONRPCClient) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}

// ===== 区块 =====

func (c *JSONRPCClient) Block(ctx context.Context, ref BlockReference) (*Block, error) {
	params := map[string]interface{}{}
	ref.apply(params)

	var block Block
	if err := c.call(ctx, "block", params, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// ===== 状态查询 =====

// query 执行 query 方法，结果里带 error 字段时转为 RPCError
func (c *JSONRPCClient) query(ctx context.Context, params map[string]interface{}, ref BlockReference, result interface{}) error {
	ref.apply(params)

	var raw json.RawMessage
	if err := c.call(ctx, "query", params, &raw); err != nil {
		return err
	}

	var queryErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &queryErr); err == nil && queryErr.Error != "" {
		return &RPCError{Method: "query", Name: ErrNameQuery, Message: queryErr.Error}
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("unmarshal query result: %w", err)
	}
	return nil
}

func (c *JSONRPCClient) ViewAccount(ctx context.Context, accountID string, ref BlockReference) (*AccountView, error) {
	var view AccountView
	err := c.query(ctx, map[string]interface{}{
		"request_type": "view_account",
		"account_id":   accountID,
	}, ref, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *JSONRPCClient) ViewAccessKey(ctx context.Context, accountID, publicKey string, ref BlockReference) (*AccessKeyView, error) {
	var view AccessKeyView
	err := c.query(ctx, map[string]interface{}{
		"request_type": "view_access_key",
		"account_id":   accountID,
		"public_key":   publicKey,
	}, ref, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *JSONRPCClient) CallFunction(ctx context.Context, contractID, method string, args []byte, ref BlockReference) (*CallFunctionResult, error) {
	var result CallFunctionResult
	err := c.query(ctx, map[string]interface{}{
		"request_type": "call_function",
		"account_id":   contractID,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(args),
	}, ref, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ===== 交易 =====

func (c *JSONRPCClient) SendTransactionCommit(ctx context.Context, signedTxBase64 string) (*FinalExecutionOutcome, error) {
	var outcome FinalExecutionOutcome
	if err := c.call(ctx, "broadcast_tx_commit", []interface{}{signedTxBase64}, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (c *JSONRPCClient) TxStatus(ctx context.Context, txHash, senderID string) (*FinalExecutionOutcome, error) {
	var outcome FinalExecutionOutcome
	if err := c.call(ctx, "tx", []interface{}{txHash, senderID}, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

var _ Client = (*JSONRPCClient)(nil)
