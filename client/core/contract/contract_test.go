package contract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nearnft/client/core/account"
	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
	"github.com/weisyn/nearnft/client/core/transport"
	"github.com/weisyn/nearnft/internal/testutil/nearmock"
)

const contractID = "viernear.testnet"

var marbleMethods = Options{
	ChangeMethods: []string{"nft_create_series", "nft_mint", "nft_set_series_price", "nft_buy", "nft_change_metadata"},
	ViewMethods:   []string{"nft_get_series", "nft_token", "nft_tokens_by_series", "nft_tokens_for_owner"},
}

func bind(t *testing.T) (*nearmock.Node, *Contract) {
	t.Helper()
	node := nearmock.New(t)
	ks := keystore.NewInMemoryKeyStore()
	kp, err := keystore.GenerateKeyPair(keystore.KeyTypeED25519)
	require.NoError(t, err)
	require.NoError(t, ks.SetKey("testnet", contractID, kp))

	conn, err := account.Connect(config.Testnet().WithNodeURL(node.URL), ks)
	require.NoError(t, err)
	acct, err := conn.Account(context.Background(), contractID)
	require.NoError(t, err)
	c, err := New(acct, contractID, marbleMethods)
	require.NoError(t, err)
	return node, c
}

func TestNewValidation(t *testing.T) {
	_, c := bind(t)

	_, err := New(nil, contractID, marbleMethods)
	assert.True(t, errors.Is(err, errs.ErrConfig))

	_, err = New(c.Account(), "Bad Contract", marbleMethods)
	assert.True(t, errors.Is(err, errs.ErrConfig))

	_, err = New(c.Account(), contractID, Options{ChangeMethods: []string{"a"}, ViewMethods: []string{"a"}})
	assert.True(t, errors.Is(err, errs.ErrConfig))

	_, err = New(c.Account(), contractID, Options{ViewMethods: []string{" "}})
	assert.True(t, errors.Is(err, errs.ErrConfig))

	assert.Equal(t, []string{"nft_get_series", "nft_token", "nft_tokens_by_series", "nft_tokens_for_owner"}, c.ViewMethods())
	assert.Len(t, c.ChangeMethods(), 5)
}

func TestUndeclaredMethodFailsBeforeNetwork(t *testing.T) {
	node, c := bind(t)
	before := len(node.Calls())

	tests := []struct {
		name   string
		invoke func() error
	}{
		{"未声明的变更方法", func() error {
			_, err := c.Call(context.Background(), "nft_burn", map[string]string{"token_id": "1:1"}, CallOptions{})
			return err
		}},
		{"未声明的只读方法", func() error {
			_, err := c.View(context.Background(), "nft_total_supply", nil)
			return err
		}},
		{"只读方法走变更入口", func() error {
			_, err := c.Call(context.Background(), "nft_token", nil, CallOptions{})
			return err
		}},
		{"变更方法走只读入口", func() error {
			_, err := c.View(context.Background(), "nft_mint", nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.invoke()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrUnknownMethod))
		})
	}
	assert.Equal(t, before, len(node.Calls()))
}

func TestCallMintReturnsResultUnmodified(t *testing.T) {
	node, c := bind(t)

	node.Handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return nearmock.SuccessOutcome("1:7", "EVENT_JSON:{\"event\":\"nft_mint\"}"), nil
	})

	deposit, _ := new(big.Int).SetString("7000000000000000000000", 10)
	args := map[string]string{"token_series_id": "1", "receiver_id": "viernear.testnet"}
	res, err := c.Call(context.Background(), "nft_mint", args, CallOptions{Gas: 300000000000000, Deposit: deposit})
	require.NoError(t, err)

	assert.Equal(t, "1:7", res.Value)
	assert.Equal(t, `"1:7"`, string(res.Raw))
	assert.Equal(t, nearmock.TxHash, res.TransactionHash)
	assert.Equal(t, []string{"EVENT_JSON:{\"event\":\"nft_mint\"}"}, res.Logs)
	assert.Equal(t, uint64(7428000000000), res.GasBurnt)
	assert.Equal(t, 1, node.CallCount("broadcast_tx_commit"))

	var tokenID string
	require.NoError(t, res.Decode(&tokenID))
	assert.Equal(t, "1:7", tokenID)
}

func TestViewTokensForOwnerEmpty(t *testing.T) {
	node, c := bind(t)
	node.Handle("query:call_function", func(params json.RawMessage) (interface{}, *nearmock.Error) {
		var p map[string]string
		_ = json.Unmarshal(params, &p)
		args, _ := base64.StdEncoding.DecodeString(p["args_base64"])
		assert.JSONEq(t, `{"account_id":"viernear.testnet"}`, string(args))
		assert.Equal(t, "nft_tokens_for_owner", p["method_name"])
		return nearmock.CallResult([]interface{}{}), nil
	})

	res, err := c.View(context.Background(), "nft_tokens_for_owner", map[string]string{"account_id": "viernear.testnet"})
	require.NoError(t, err)
	list, ok := res.Value.([]interface{})
	require.True(t, ok)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestErrorKindsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*nearmock.Node)
		invoke  func(*Contract) error
		kind    errs.Kind
	}{
		{
			name: "只读失败为QueryError",
			prepare: func(n *nearmock.Node) {
				n.Handle("query:call_function", func(json.RawMessage) (interface{}, *nearmock.Error) {
					return nil, nearmock.HandlerError("CONTRACT_EXECUTION_ERROR", "wasm execution failed")
				})
			},
			invoke: func(c *Contract) error {
				_, err := c.View(context.Background(), "nft_token", map[string]string{"token_id": "9:9"})
				return err
			},
			kind: errs.KindQuery,
		},
		{
			name: "变更失败为TransactionError",
			prepare: func(n *nearmock.Node) {
				n.Handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *nearmock.Error) {
					return nil, nearmock.HandlerError("TIMEOUT_ERROR", "Timeout")
				})
			},
			invoke: func(c *Contract) error {
				_, err := c.Call(context.Background(), "nft_buy", map[string]string{"token_series_id": "1"}, CallOptions{})
				return err
			},
			kind: errs.KindTransaction,
		},
		{
			name:    "缺少密钥为AccountResolutionError",
			prepare: func(*nearmock.Node) {},
			invoke: func(c *Contract) error {
				require.NoError(t, c.Account().Connection().KeyStore().Clear())
				_, err := c.Call(context.Background(), "nft_mint", nil, CallOptions{})
				return err
			},
			kind: errs.KindAccountResolution,
		},
		{
			name:    "参数不是对象为ConfigError",
			prepare: func(*nearmock.Node) {},
			invoke: func(c *Contract) error {
				_, err := c.Call(context.Background(), "nft_mint", []string{"1"}, CallOptions{})
				return err
			},
			kind: errs.KindConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, c := bind(t)
			tt.prepare(node)
			err := tt.invoke(c)
			require.Error(t, err)

			wrapped := fmt.Errorf("invoke: %w", err)
			assert.Equal(t, tt.kind, errs.KindOf(wrapped))
			var e *errs.Error
			assert.True(t, errors.As(wrapped, &e))
		})
	}
}

func TestMarshalArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    interface{}
		want    string
		wantErr bool
	}{
		{"nil", nil, `{}`, false},
		{"map", map[string]int{"limit": 5}, `{"limit":5}`, false},
		{"struct", struct {
			TokenID string `json:"token_id"`
		}{"1:1"}, `{"token_id":"1:1"}`, false},
		{"raw", json.RawMessage(` {"a":1} `), `{"a":1}`, false},
		{"string", `{"b":2}`, `{"b":2}`, false},
		{"空串", "", `{}`, false},
		{"数组", []int{1}, "", true},
		{"标量", 5, "", true},
		{"坏JSON", `{"a":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalArgs("m", tt.args)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errs.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDecodeValue(t *testing.T) {
	v, err := DecodeValue(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, _ = DecodeValue([]byte(`12345678901234567890`))
	assert.Equal(t, json.Number("12345678901234567890"), v)

	v, _ = DecodeValue([]byte(`not json`))
	assert.Equal(t, "not json", v)

	raw, value, err := LastResult(&transport.FinalExecutionOutcome{})
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Nil(t, value)
}

func TestOptionsCheckMethod(t *testing.T) {
	opts := Options{ChangeMethods: []string{"nft_mint"}, ViewMethods: []string{"nft_token"}}
	tests := []struct {
		name    string
		method  string
		change  bool
		wantErr string
	}{
		{"已声明变更方法", "nft_mint", true, ""},
		{"已声明只读方法", "nft_token", false, ""},
		{"未声明", "nft_burn", true, "not a declared change method"},
		{"只读方法按变更调用", "nft_token", true, "declared as view method"},
		{"变更方法按只读调用", "nft_mint", false, "declared as change method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := opts.CheckMethod(tt.method, tt.change)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrUnknownMethod))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
