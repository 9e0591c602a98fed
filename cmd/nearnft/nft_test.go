package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/internal/testutil/nearmock"
)

func TestParseOptionalAmount(t *testing.T) {
	tests := []struct {
		name    string
		yocto   string
		near    string
		want    string
		wantErr bool
	}{
		{"都不给", "", "", "", false},
		{"yocto", "8540000000000000000000", "", "8540000000000000000000", false},
		{"NEAR", "", "1.5", "1500000000000000000000000", false},
		{"互斥", "1", "1", "", true},
		{"非法数值", "abc", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOptionalAmount("price", tt.yocto, tt.near)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errs.KindConfig, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseRoyalty(t *testing.T) {
	got, err := parseRoyalty([]string{"viernear.testnet=1000", "alice.testnet=250"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint32{"viernear.testnet": 1000, "alice.testnet": 250}, got)

	got, err = parseRoyalty(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"viernear.testnet", "=10", "viernear.testnet=-1"} {
		_, err := parseRoyalty([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestNFTTokenNotFound(t *testing.T) {
	node := nearmock.New(t)
	node.Handle("query:call_function", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return nearmock.CallResult(nil), nil
	})

	code, out, errOut := execute(t, node, "nft", "token", "1:9")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, `"kind":"query"`)
}

func TestNFTMintPrintsTokenID(t *testing.T) {
	withSigner(t)
	node := nearmock.New(t)
	node.Handle("broadcast_tx_commit", func(params json.RawMessage) (interface{}, *nearmock.Error) {
		fc, err := nearmock.DecodeBroadcast(params)
		if !assert.NoError(t, err) {
			return nil, &nearmock.Error{Code: -32700, Message: err.Error()}
		}
		assert.Equal(t, "nft_mint", fc.MethodName)
		assert.JSONEq(t, `{"token_series_id":"12","receiver_id":"viernear.testnet"}`, string(fc.Args))
		return nearmock.SuccessOutcome("12:3"), nil
	})

	code, out, errOut := execute(t, node, "nft", "mint", "12")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, `"12:3"`, strings.TrimSpace(out))
}

func TestNFTBuyWithMetadata(t *testing.T) {
	withSigner(t)
	node := nearmock.New(t)
	node.Handle("broadcast_tx_commit", func(params json.RawMessage) (interface{}, *nearmock.Error) {
		fc, err := nearmock.DecodeBroadcast(params)
		if !assert.NoError(t, err) {
			return nil, &nearmock.Error{Code: -32700, Message: err.Error()}
		}
		assert.Equal(t, "nft_buy", fc.MethodName)
		assert.Equal(t, "1000000000000000000000000", fc.Deposit.String())
		var args map[string]interface{}
		assert.NoError(t, json.Unmarshal(fc.Args, &args))
		meta, _ := args["nft_metadata"].(map[string]interface{})
		assert.Equal(t, "Tsundere #3", meta["title"])
		assert.Nil(t, meta["media"])
		return nearmock.SuccessOutcome("12:3"), nil
	})

	code, out, errOut := execute(t, node, "nft", "buy", "12", "--deposit-near", "1", "--title", "Tsundere #3")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, `"12:3"`, strings.TrimSpace(out))
}
