package nft

import (
	"context"
	"math/big"

	"github.com/weisyn/nearnft/client/core/contract"
	"github.com/weisyn/nearnft/client/core/errs"
)

// Service NFT 系列合约的类型化入口
type Service struct {
	contract *contract.Contract
	gas      uint64
}

// NewService 基于已绑定的合约代理创建服务
//
// 合约须声明本包用到的全部方法，否则对应操作返回 UnknownMethod。
func NewService(c *contract.Contract) *Service {
	return &Service{contract: c}
}

// WithGas 设置变更调用附加的 gas，0 表示默认
func (s *Service) WithGas(gas uint64) *Service {
	s.gas = gas
	return s
}

// Contract 底层合约代理
func (s *Service) Contract() *contract.Contract { return s.contract }

// CreateSeriesRequest 创建系列参数
type CreateSeriesRequest struct {
	Metadata  TokenMetadata
	Price     *big.Int          // nil 表示不出售
	Royalty   map[string]uint32 // 万分比
	CreatorID string            // 空则取签名账户
	Deposit   *big.Int          // nil 取 StorageForCreateSeries
}

// CreateSeries 创建 NFT 系列
func (s *Service) CreateSeries(ctx context.Context, req CreateSeriesRequest) (*TokenSeries, error) {
	if req.Metadata.Title == nil || *req.Metadata.Title == "" {
		return nil, errs.New(errs.KindConfig, MethodCreateSeries, "token_metadata.title is required")
	}
	creator := req.CreatorID
	if creator == "" {
		creator = s.contract.Account().AccountID()
	}
	args := map[string]interface{}{
		"token_metadata": req.Metadata,
		"price":          yoctoOrNil(req.Price),
		"creator_id":     creator,
	}
	if len(req.Royalty) > 0 {
		args["royalty"] = req.Royalty
	}

	var series TokenSeries
	if err := s.call(ctx, MethodCreateSeries, args, orDefault(req.Deposit, StorageForCreateSeries), &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// Mint 由系列创建者铸造一枚代币，返回代币 ID
func (s *Service) Mint(ctx context.Context, seriesID, receiverID string, metadata *TokenMetadata) (string, error) {
	return s.mintLike(ctx, MethodMint, seriesID, receiverID, metadata, StorageForMint)
}

// Buy 按系列价格购买一枚代币，deposit 须不低于价格加存储费用
func (s *Service) Buy(ctx context.Context, seriesID, receiverID string, deposit *big.Int, metadata *TokenMetadata) (string, error) {
	if deposit == nil || deposit.Sign() <= 0 {
		return "", errs.New(errs.KindConfig, MethodBuy, "deposit is required")
	}
	return s.mintLike(ctx, MethodBuy, seriesID, receiverID, metadata, deposit)
}

func (s *Service) mintLike(ctx context.Context, method, seriesID, receiverID string, metadata *TokenMetadata, deposit *big.Int) (string, error) {
	if seriesID == "" {
		return "", errs.New(errs.KindConfig, method, "token_series_id is required")
	}
	if receiverID == "" {
		receiverID = s.contract.Account().AccountID()
	}
	args := map[string]interface{}{
		"token_series_id": seriesID,
		"receiver_id":     receiverID,
	}
	if metadata != nil {
		args["nft_metadata"] = metadata
	}

	var tokenID string
	if err := s.call(ctx, method, args, deposit, &tokenID); err != nil {
		return "", err
	}
	return tokenID, nil
}

// SetSeriesPrice 设置或清除（price 为 nil）系列价格，返回合约确认的价格
func (s *Service) SetSeriesPrice(ctx context.Context, seriesID string, price *big.Int) (*big.Int, error) {
	if seriesID == "" {
		return nil, errs.New(errs.KindConfig, MethodSetSeriesPrice, "token_series_id is required")
	}
	args := map[string]interface{}{
		"token_series_id": seriesID,
		"price":           yoctoOrNil(price),
	}

	var got *string
	if err := s.call(ctx, MethodSetSeriesPrice, args, OneYocto, &got); err != nil {
		return nil, err
	}
	if got == nil {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(*got, 10)
	if !ok {
		return nil, errs.New(errs.KindTransaction, MethodSetSeriesPrice, "unexpected price %q", *got)
	}
	return v, nil
}

// ChangeMetadata 由代币持有者替换代币元数据
func (s *Service) ChangeMetadata(ctx context.Context, tokenID string, metadata TokenMetadata) error {
	if _, _, err := SplitTokenID(tokenID); err != nil {
		return errs.Wrap(errs.KindConfig, MethodChangeMetadata, err)
	}
	args := map[string]interface{}{
		"token_id": tokenID,
		"metadata": metadata,
	}
	return s.call(ctx, MethodChangeMetadata, args, OneYocto, nil)
}

// GetSeries 分页列出系列
func (s *Service) GetSeries(ctx context.Context, page Page) ([]TokenSeries, error) {
	args := map[string]interface{}{}
	page.apply(args)

	series := []TokenSeries{}
	if err := s.view(ctx, MethodGetSeries, args, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// Token 查询单个代币，不存在时返回 nil
func (s *Service) Token(ctx context.Context, tokenID string) (*Token, error) {
	var token *Token
	if err := s.view(ctx, MethodToken, map[string]interface{}{"token_id": tokenID}, &token); err != nil {
		return nil, err
	}
	return token, nil
}

// TokensBySeries 分页列出系列下的代币
func (s *Service) TokensBySeries(ctx context.Context, seriesID string, page Page) ([]Token, error) {
	args := map[string]interface{}{"token_series_id": seriesID}
	page.apply(args)
	return s.tokens(ctx, MethodTokensBySeries, args)
}

// TokensForOwner 分页列出账户持有的代币，无代币时返回空切片
func (s *Service) TokensForOwner(ctx context.Context, ownerID string, page Page) ([]Token, error) {
	args := map[string]interface{}{"account_id": ownerID}
	page.apply(args)
	return s.tokens(ctx, MethodTokensForOwner, args)
}

func (s *Service) tokens(ctx context.Context, method string, args map[string]interface{}) ([]Token, error) {
	tokens := []Token{}
	if err := s.view(ctx, method, args, &tokens); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []Token{}
	}
	return tokens, nil
}

func (s *Service) call(ctx context.Context, method string, args interface{}, deposit *big.Int, out interface{}) error {
	res, err := s.contract.Call(ctx, method, args, contract.CallOptions{Gas: s.gas, Deposit: deposit})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := res.Decode(out); err != nil {
		return errs.Wrap(errs.KindTransaction, method, err)
	}
	return nil
}

func (s *Service) view(ctx context.Context, method string, args interface{}, out interface{}) error {
	res, err := s.contract.View(ctx, method, args)
	if err != nil {
		return err
	}
	if err := res.Decode(out); err != nil {
		return errs.Wrap(errs.KindQuery, method, err)
	}
	return nil
}

// yoctoOrNil U128 以十进制串编码，nil 编码为 JSON null
func yoctoOrNil(v *big.Int) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func orDefault(v, def *big.Int) *big.Int {
	if v != nil {
		return v
	}
	return new(big.Int).Set(def)
}
