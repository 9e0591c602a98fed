package nft

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nearnft/client/core/account"
	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/contract"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
	"github.com/weisyn/nearnft/internal/testutil/nearmock"
)

const contractID = "viernear.testnet"

func newService(t *testing.T) (*nearmock.Node, *Service) {
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
	c, err := contract.New(acct, contractID, contract.Options{ChangeMethods: ChangeMethods(), ViewMethods: ViewMethods()})
	require.NoError(t, err)
	return node, NewService(c)
}

// captureCall 记录广播交易中的合约调用并返回 value
func captureCall(t *testing.T, node *nearmock.Node, value interface{}) *nearmock.FunctionCall {
	got := &nearmock.FunctionCall{}
	node.Handle("broadcast_tx_commit", func(params json.RawMessage) (interface{}, *nearmock.Error) {
		fc, err := nearmock.DecodeBroadcast(params)
		if !assert.NoError(t, err) {
			return nil, &nearmock.Error{Code: -32700, Message: err.Error()}
		}
		*got = *fc
		return nearmock.SuccessOutcome(value), nil
	})
	return got
}

// viewReturning 校验只读调用的方法与参数并返回 value
func viewReturning(t *testing.T, node *nearmock.Node, method, wantArgs string, value interface{}) {
	node.Handle("query:call_function", func(params json.RawMessage) (interface{}, *nearmock.Error) {
		var p map[string]string
		_ = json.Unmarshal(params, &p)
		args, _ := base64.StdEncoding.DecodeString(p["args_base64"])
		assert.Equal(t, method, p["method_name"])
		assert.JSONEq(t, wantArgs, string(args))
		return nearmock.CallResult(value), nil
	})
}

func TestSplitTokenID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		series  string
		edition string
		wantErr bool
	}{
		{"正常", "2:1", "2", "1", false},
		{"缺少分隔符", "21", "", "", true},
		{"多个分隔符", "2:1:3", "", "", true},
		{"空版本", "2:", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, err := SplitTokenID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.series, s)
			assert.Equal(t, tt.edition, e)
		})
	}

	tok := Token{TokenID: "12:3"}
	assert.Equal(t, "12", tok.SeriesID())
}

func TestCreateSeries(t *testing.T) {
	node, svc := newService(t)
	got := captureCall(t, node, map[string]interface{}{
		"token_series_id": "3",
		"metadata":        map[string]interface{}{"title": "Tsundere land", "copies": 100},
		"creator_id":      contractID,
		"royalty":         map[string]uint32{contractID: 1000},
	})

	series, err := svc.CreateSeries(context.Background(), CreateSeriesRequest{
		Metadata: TokenMetadata{Title: String("Tsundere land"), Media: String("bafybei"), Copies: uint64Ptr(100)},
		Royalty:  map[string]uint32{contractID: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, "3", series.TokenSeriesID)
	assert.Equal(t, "Tsundere land", *series.Metadata.Title)
	assert.Equal(t, uint32(1000), series.Royalty[contractID])

	assert.Equal(t, MethodCreateSeries, got.MethodName)
	assert.Equal(t, 0, got.Deposit.Cmp(StorageForCreateSeries))
	var args map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Args, &args))
	assert.Nil(t, args["price"])
	assert.Contains(t, args, "price")
	assert.Equal(t, contractID, args["creator_id"])
	meta := args["token_metadata"].(map[string]interface{})
	assert.Equal(t, "bafybei", meta["media"])
	assert.Nil(t, meta["description"])

	_, err = svc.CreateSeries(context.Background(), CreateSeriesRequest{})
	assert.True(t, errors.Is(err, errs.ErrConfig))
}

func TestMintAndBuy(t *testing.T) {
	node, svc := newService(t)
	got := captureCall(t, node, "1:7")

	tokenID, err := svc.WithGas(300000000000000).Mint(context.Background(), "1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "1:7", tokenID)
	assert.Equal(t, MethodMint, got.MethodName)
	assert.Equal(t, uint64(300000000000000), got.Gas)
	assert.Equal(t, 0, got.Deposit.Cmp(StorageForMint))
	assert.JSONEq(t, `{"token_series_id":"1","receiver_id":"viernear.testnet"}`, string(got.Args))

	price, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	tokenID, err = svc.Buy(context.Background(), "1", "buyer.testnet", price, nil)
	require.NoError(t, err)
	assert.Equal(t, "1:7", tokenID)
	assert.Equal(t, MethodBuy, got.MethodName)
	assert.Equal(t, 0, got.Deposit.Cmp(price))
	assert.JSONEq(t, `{"token_series_id":"1","receiver_id":"buyer.testnet"}`, string(got.Args))

	_, err = svc.Buy(context.Background(), "1", "buyer.testnet", price, &TokenMetadata{Title: String("Tsundere #7")})
	require.NoError(t, err)
	var args map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Args, &args))
	meta, ok := args["nft_metadata"].(map[string]interface{})
	require.True(t, ok, "购买时应携带 nft_metadata")
	assert.Equal(t, "Tsundere #7", meta["title"])

	_, err = svc.Buy(context.Background(), "1", "", nil, nil)
	assert.True(t, errors.Is(err, errs.ErrConfig))
	_, err = svc.Mint(context.Background(), "", "", nil)
	assert.True(t, errors.Is(err, errs.ErrConfig))
}

func TestOneYoctoMethods(t *testing.T) {
	node, svc := newService(t)
	got := captureCall(t, node, "5000")

	price, err := svc.SetSeriesPrice(context.Background(), "1", big.NewInt(5000))
	require.NoError(t, err)
	assert.Equal(t, "5000", price.String())
	assert.Equal(t, MethodSetSeriesPrice, got.MethodName)
	assert.Equal(t, int64(1), got.Deposit.Int64())
	assert.JSONEq(t, `{"token_series_id":"1","price":"5000"}`, string(got.Args))

	got = captureCall(t, node, nil)
	price, err = svc.SetSeriesPrice(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.Nil(t, price)
	assert.JSONEq(t, `{"token_series_id":"1","price":null}`, string(got.Args))

	require.NoError(t, svc.ChangeMetadata(context.Background(), "1:1", TokenMetadata{Title: String("renamed")}))
	assert.Equal(t, MethodChangeMetadata, got.MethodName)
	assert.Equal(t, int64(1), got.Deposit.Int64())

	err = svc.ChangeMetadata(context.Background(), "bad", TokenMetadata{})
	assert.True(t, errors.Is(err, errs.ErrConfig))
}

func TestViews(t *testing.T) {
	t.Run("持有者无代币返回空切片", func(t *testing.T) {
		node, svc := newService(t)
		viewReturning(t, node, MethodTokensForOwner, `{"account_id":"nobody.testnet"}`, []interface{}{})

		tokens, err := svc.TokensForOwner(context.Background(), "nobody.testnet", Page{})
		require.NoError(t, err)
		assert.NotNil(t, tokens)
		assert.Empty(t, tokens)
	})

	t.Run("分页参数", func(t *testing.T) {
		node, svc := newService(t)
		viewReturning(t, node, MethodTokensBySeries, `{"token_series_id":"1","from_index":"2","limit":1}`,
			[]interface{}{map[string]interface{}{"token_id": "1:3", "owner_id": "a.testnet"}})

		tokens, err := svc.TokensBySeries(context.Background(), "1", Page{FromIndex: "2", Limit: 1})
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "a.testnet", tokens[0].OwnerID)
	})

	t.Run("代币不存在", func(t *testing.T) {
		node, svc := newService(t)
		viewReturning(t, node, MethodToken, `{"token_id":"9:9"}`, nil)

		tok, err := svc.Token(context.Background(), "9:9")
		require.NoError(t, err)
		assert.Nil(t, tok)
	})

	t.Run("系列列表", func(t *testing.T) {
		node, svc := newService(t)
		viewReturning(t, node, MethodGetSeries, `{}`, []interface{}{
			map[string]interface{}{"token_series_id": "1", "creator_id": contractID, "metadata": map[string]interface{}{"title": "A"}, "royalty": map[string]uint32{}},
		})

		series, err := svc.GetSeries(context.Background(), Page{})
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, "A", *series[0].Metadata.Title)
	})
}

func uint64Ptr(v uint64) *uint64 { return &v }
