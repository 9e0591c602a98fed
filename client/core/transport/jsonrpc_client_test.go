package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nearnft/internal/testutil/nearmock"
)

func TestJSONRPCClientQueries(t *testing.T) {
	node := nearmock.New(t)
	node.Handle("query:call_function", func(params json.RawMessage) (interface{}, *nearmock.Error) {
		var p map[string]interface{}
		_ = json.Unmarshal(params, &p)
		assert.Equal(t, "final", p["finality"])
		assert.Equal(t, "nft_token", p["method_name"])
		assert.Equal(t, "eyJ0b2tlbl9pZCI6IjE6MSJ9", p["args_base64"])
		return nearmock.CallResult(map[string]string{"token_id": "1:1"}, "viewed"), nil
	})

	c := NewJSONRPCClient(node.URL, time.Second)
	ctx := context.Background()

	t.Run("status", func(t *testing.T) {
		status, err := c.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "testnet", status.ChainID)
		require.NoError(t, c.Ping(ctx))
	})

	t.Run("block", func(t *testing.T) {
		block, err := c.Block(ctx, FinalBlock)
		require.NoError(t, err)
		assert.Equal(t, nearmock.BlockHash, block.Header.Hash)
		assert.Equal(t, uint64(100), block.Header.Height)
	})

	t.Run("view_account", func(t *testing.T) {
		view, err := c.ViewAccount(ctx, "viernear.testnet", FinalBlock)
		require.NoError(t, err)
		assert.Equal(t, "100000000000000000000000000", view.Amount)
		assert.Equal(t, uint64(182), view.StorageUsage)
	})

	t.Run("view_access_key", func(t *testing.T) {
		view, err := c.ViewAccessKey(ctx, "viernear.testnet", "ed25519:abc", FinalBlock)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), view.Nonce)
		assert.True(t, view.IsFullAccess())
	})

	t.Run("call_function", func(t *testing.T) {
		res, err := c.CallFunction(ctx, "nft.testnet", "nft_token", []byte(`{"token_id":"1:1"}`), FinalBlock)
		require.NoError(t, err)
		assert.JSONEq(t, `{"token_id":"1:1"}`, string(res.Result))
		assert.Equal(t, []string{"viewed"}, res.Logs)
	})

	t.Run("按区块高度查询", func(t *testing.T) {
		_, err := c.ViewAccount(ctx, "viernear.testnet", BlockReference{BlockID: uint64(42)})
		require.NoError(t, err)
		calls := node.Calls()
		var p map[string]interface{}
		require.NoError(t, json.Unmarshal(calls[len(calls)-1].Params, &p))
		assert.Equal(t, float64(42), p["block_id"])
		assert.NotContains(t, p, "finality")
	})
}

func TestJSONRPCClientErrors(t *testing.T) {
	node := nearmock.New(t)
	node.Handle("query:view_account", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return nil, nearmock.HandlerError("UNKNOWN_ACCOUNT", "account ghost.testnet does not exist while viewing")
	})
	node.Handle("query:call_function", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return map[string]interface{}{
			"error":        "wasm execution failed with error: MethodNotFound",
			"logs":         []string{},
			"block_height": 1,
			"block_hash":   nearmock.BlockHash,
		}, nil
	})
	node.Handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return nil, nearmock.HandlerError("TIMEOUT_ERROR", "Timeout")
	})
	node.Handle("tx", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return nil, nearmock.HandlerError("INVALID_TRANSACTION", map[string]interface{}{
			"TxExecutionError": map[string]interface{}{
				"InvalidTxError": map[string]interface{}{
					"NotEnoughBalance": map[string]interface{}{"signer_id": "a", "balance": "1", "cost": "2"},
				},
			},
		})
	})

	c := NewJSONRPCClient(node.URL, time.Second)
	ctx := context.Background()

	t.Run("账户不存在", func(t *testing.T) {
		_, err := c.ViewAccount(ctx, "ghost.testnet", FinalBlock)
		require.Error(t, err)
		assert.True(t, IsUnknownAccount(err))
		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, "UNKNOWN_ACCOUNT", rpcErr.ErrorName())
		assert.False(t, rpcErr.Retryable())
	})

	t.Run("查询结果中的错误", func(t *testing.T) {
		_, err := c.CallFunction(ctx, "nft.testnet", "nope", []byte(`{}`), FinalBlock)
		require.Error(t, err)
		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, ErrNameQuery, rpcErr.ErrorName())
		assert.Contains(t, err.Error(), "MethodNotFound")
	})

	t.Run("广播超时", func(t *testing.T) {
		_, err := c.SendTransactionCommit(ctx, "AAAA")
		require.Error(t, err)
		assert.True(t, IsTimeout(err))
	})

	t.Run("嵌套执行错误名", func(t *testing.T) {
		_, err := c.TxStatus(ctx, nearmock.TxHash, "a")
		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, "NotEnoughBalance", rpcErr.ErrorName())
	})

	t.Run("未知方法", func(t *testing.T) {
		_, err := c.ViewAccessKey(ctx, "a", "b", FinalBlock)
		require.NoError(t, err)
		node.Handle("query:view_access_key", nil)
		_, err = c.ViewAccessKey(ctx, "a", "b", FinalBlock)
		assert.Error(t, err)
	})
}

func TestJSONRPCClientHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewJSONRPCClient(srv.URL, time.Second).Status(context.Background())
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, http.StatusBadGateway, rpcErr.HTTPCode)
	assert.True(t, rpcErr.Retryable())
}

func TestExecutionStatus(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		failure bool
		value   string
	}{
		{"字符串状态", `"Started"`, false, ""},
		{"成功值", `{"SuccessValue":"IjE6MSI="}`, false, `"1:1"`},
		{"空成功值", `{"SuccessValue":""}`, false, ""},
		{"失败", `{"Failure":{"ActionError":{"index":0,"kind":{"FunctionCallError":{"ExecutionError":"panicked"}}}}}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s ExecutionStatus
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &s))
			assert.Equal(t, tt.failure, s.IsFailure())
			v, err := s.DecodeSuccessValue()
			require.NoError(t, err)
			assert.Equal(t, tt.value, string(v))
		})
	}

	var s ExecutionStatus
	require.NoError(t, json.Unmarshal([]byte(`{"Failure":{"ActionError":{"index":0,"kind":{"FunctionCallError":{"ExecutionError":"panicked"}}}}}`), &s))
	assert.Equal(t, "ExecutionError", FailureName(s.Failure))
}
