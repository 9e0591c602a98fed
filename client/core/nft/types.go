// Package nft 在合约代理之上提供 NFT 系列合约的类型化操作
package nft

import (
	"fmt"
	"math/big"
	"strings"
)

// 合约常量
var (
	// StorageForCreateSeries 创建系列时附加的存储押金（yoctoNEAR）
	StorageForCreateSeries, _ = new(big.Int).SetString("8540000000000000000000", 10)

	// StorageForMint 铸造时附加的存储押金（yoctoNEAR）
	StorageForMint, _ = new(big.Int).SetString("11280000000000000000000", 10)

	// OneYocto 需要显式授权的方法附加 1 yoctoNEAR
	OneYocto = big.NewInt(1)
)

// TokenDelimiter 代币 ID 由 "<series>:<edition>" 组成
const TokenDelimiter = ":"

// 方法名
const (
	MethodCreateSeries   = "nft_create_series"
	MethodMint           = "nft_mint"
	MethodSetSeriesPrice = "nft_set_series_price"
	MethodBuy            = "nft_buy"
	MethodChangeMetadata = "nft_change_metadata"

	MethodGetSeries      = "nft_get_series"
	MethodToken          = "nft_token"
	MethodTokensBySeries = "nft_tokens_by_series"
	MethodTokensForOwner = "nft_tokens_for_owner"
)

// ChangeMethods 合约的变更方法
func ChangeMethods() []string {
	return []string{MethodCreateSeries, MethodMint, MethodSetSeriesPrice, MethodBuy, MethodChangeMetadata}
}

// ViewMethods 合约的只读方法
func ViewMethods() []string {
	return []string{MethodGetSeries, MethodToken, MethodTokensBySeries, MethodTokensForOwner}
}

// TokenMetadata NEP-177 代币元数据，未设置的字段编码为 null
type TokenMetadata struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Media         *string `json:"media"`
	MediaHash     *string `json:"media_hash"`
	Copies        *uint64 `json:"copies"`
	IssuedAt      *string `json:"issued_at"`
	ExpiresAt     *string `json:"expires_at"`
	StartsAt      *string `json:"starts_at"`
	UpdatedAt     *string `json:"updated_at"`
	Extra         *string `json:"extra"`
	Reference     *string `json:"reference"`
	ReferenceHash *string `json:"reference_hash"`
}

// Token 合约返回的代币
type Token struct {
	TokenID            string            `json:"token_id"`
	OwnerID            string            `json:"owner_id"`
	Metadata           *TokenMetadata    `json:"metadata,omitempty"`
	ApprovedAccountIDs map[string]uint64 `json:"approved_account_ids,omitempty"`
}

// SeriesID 代币所属系列
func (t *Token) SeriesID() string {
	series, _, _ := SplitTokenID(t.TokenID)
	return series
}

// TokenSeries 合约返回的系列
type TokenSeries struct {
	TokenSeriesID string            `json:"token_series_id"`
	Metadata      TokenMetadata     `json:"metadata"`
	CreatorID     string            `json:"creator_id"`
	Royalty       map[string]uint32 `json:"royalty"`
}

// SplitTokenID 拆分 "<series>:<edition>"
func SplitTokenID(tokenID string) (series, edition string, err error) {
	parts := strings.Split(tokenID, TokenDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid token id %q: want <series>%s<edition>", tokenID, TokenDelimiter)
	}
	return parts[0], parts[1], nil
}

// Page 分页参数，零值表示从头取全部
type Page struct {
	FromIndex string // U128 十进制串
	Limit     uint64
}

func (p Page) apply(args map[string]interface{}) {
	if p.FromIndex != "" {
		args["from_index"] = p.FromIndex
	}
	if p.Limit > 0 {
		args["limit"] = p.Limit
	}
}

// String 返回指针，便于构造元数据
func String(s string) *string { return &s }
