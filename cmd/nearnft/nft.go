package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/nft"
	"github.com/weisyn/nearnft/client/core/tx"
)

var (
	nftGas         string
	nftReceiver    string
	nftPrice       string
	nftPriceNear   string
	nftDeposit     string
	nftDepositNear string
	nftRoyalty     []string
	nftFromIndex   string
	nftLimit       uint64
	nftMeta        metadataFlags
)

// metadataFlags 命令行给出的代币元数据，未给出的字段保持 null
type metadataFlags struct {
	title, description, media, mediaHash, extra, reference, referenceHash string
	issuedAt, expiresAt, startsAt, updatedAt                              string
	copies                                                                uint64
}

func (m metadataFlags) build(cmd *cobra.Command) nft.TokenMetadata {
	set := func(name, value string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return nft.String(value)
	}
	md := nft.TokenMetadata{
		Title:         set("title", m.title),
		Description:   set("description", m.description),
		Media:         set("media", m.media),
		MediaHash:     set("media-hash", m.mediaHash),
		IssuedAt:      set("issued-at", m.issuedAt),
		ExpiresAt:     set("expires-at", m.expiresAt),
		StartsAt:      set("starts-at", m.startsAt),
		UpdatedAt:     set("updated-at", m.updatedAt),
		Extra:         set("extra", m.extra),
		Reference:     set("reference", m.reference),
		ReferenceHash: set("reference-hash", m.referenceHash),
	}
	if cmd.Flags().Changed("copies") {
		copies := m.copies
		md.Copies = &copies
	}
	return md
}

var metadataFlagNames = []string{"title", "description", "media", "media-hash", "copies",
	"issued-at", "expires-at", "starts-at", "updated-at", "extra", "reference", "reference-hash"}

// optional 未给出任何元数据参数时返回 nil，合约将沿用系列元数据
func (m metadataFlags) optional(cmd *cobra.Command) *nft.TokenMetadata {
	for _, name := range metadataFlagNames {
		if cmd.Flags().Changed(name) {
			md := m.build(cmd)
			return &md
		}
	}
	return nil
}

func addMetadataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&nftMeta.title, "title", "", "标题")
	f.StringVar(&nftMeta.description, "description", "", "描述")
	f.StringVar(&nftMeta.media, "media", "", "媒体地址（如 IPFS CID）")
	f.StringVar(&nftMeta.mediaHash, "media-hash", "", "媒体内容的 base64 sha256")
	f.Uint64Var(&nftMeta.copies, "copies", 0, "发行份数")
	f.StringVar(&nftMeta.issuedAt, "issued-at", "", "发行时间")
	f.StringVar(&nftMeta.expiresAt, "expires-at", "", "过期时间")
	f.StringVar(&nftMeta.startsAt, "starts-at", "", "生效时间")
	f.StringVar(&nftMeta.updatedAt, "updated-at", "", "更新时间")
	f.StringVar(&nftMeta.extra, "extra", "", "附加数据")
	f.StringVar(&nftMeta.reference, "reference", "", "链下 JSON 地址")
	f.StringVar(&nftMeta.referenceHash, "reference-hash", "", "链下 JSON 的 base64 sha256")
}

// nftCmd NFT 系列合约命令
var nftCmd = &cobra.Command{
	Use:   "nft",
	Short: "NFT 系列合约的类型化操作",
	Long:  "创建系列、铸造、购买、定价、修改元数据与查询代币",
}

var nftCreateSeriesCmd = &cobra.Command{
	Use:   "create-series",
	Short: "创建 NFT 系列",
	Long: `创建 NFT 系列，默认附加 0.00854 NEAR 存储押金。

示例：
  nearnft nft create-series --title "Tsundere land" --media bafybei... --copies 100 \
      --price-near 1 --royalty viernear.testnet=1000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		royalty, err := parseRoyalty(nftRoyalty)
		if err != nil {
			return err
		}
		price, err := parseOptionalAmount("price", nftPrice, nftPriceNear)
		if err != nil {
			return err
		}
		deposit, err := parseOptionalAmount("deposit", nftDeposit, nftDepositNear)
		if err != nil {
			return err
		}
		return withNFT(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return svc.CreateSeries(ctx, nft.CreateSeriesRequest{
				Metadata:  nftMeta.build(cmd),
				Price:     price,
				Royalty:   royalty,
				CreatorID: nftReceiver,
				Deposit:   deposit,
			})
		})
	},
}

var nftMintCmd = &cobra.Command{
	Use:   "mint <series-id>",
	Short: "系列创建者铸造一枚代币",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNFT(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return svc.Mint(ctx, args[0], nftReceiver, nftMeta.optional(cmd))
		})
	},
}

var nftBuyCmd = &cobra.Command{
	Use:   "buy <series-id>",
	Short: "按系列价格购买一枚代币",
	Long:  "押金须覆盖系列价格与存储费用，多余部分由合约退回。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deposit, err := parseOptionalAmount("deposit", nftDeposit, nftDepositNear)
		if err != nil {
			return err
		}
		return withNFT(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return svc.Buy(ctx, args[0], nftReceiver, deposit, nftMeta.optional(cmd))
		})
	},
}

var nftSetPriceCmd = &cobra.Command{
	Use:   "set-price <series-id>",
	Short: "设置系列价格，不给价格则下架",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := parseOptionalAmount("price", nftPrice, nftPriceNear)
		if err != nil {
			return err
		}
		return withNFT(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			got, err := svc.SetSeriesPrice(ctx, args[0], price)
			if err != nil || got == nil {
				return nil, err
			}
			return got.String(), nil
		})
	},
}

var nftChangeMetadataCmd = &cobra.Command{
	Use:   "change-metadata <token-id>",
	Short: "代币持有者替换代币元数据",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNFT(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return nil, svc.ChangeMetadata(ctx, args[0], nftMeta.build(cmd))
		})
	},
}

var nftSeriesCmd = &cobra.Command{
	Use:   "series",
	Short: "列出系列",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNFTView(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return svc.GetSeries(ctx, page())
		})
	},
}

var nftTokenCmd = &cobra.Command{
	Use:   "token <token-id>",
	Short: "查询单个代币",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNFTView(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			tok, err := svc.Token(ctx, args[0])
			if err != nil {
				return nil, err
			}
			if tok == nil {
				return nil, errs.New(errs.KindQuery, nft.MethodToken, "token %s not found", args[0])
			}
			return tok, nil
		})
	},
}

var nftTokensBySeriesCmd = &cobra.Command{
	Use:   "tokens-by-series <series-id>",
	Short: "列出系列下的代币",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNFTView(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return svc.TokensBySeries(ctx, args[0], page())
		})
	},
}

var nftTokensForOwnerCmd = &cobra.Command{
	Use:   "tokens-for-owner <account-id>",
	Short: "列出账户持有的代币",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNFTView(cmd, func(ctx context.Context, svc *nft.Service) (interface{}, error) {
			return svc.TokensForOwner(ctx, args[0], page())
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{nftCreateSeriesCmd, nftMintCmd, nftBuyCmd, nftSetPriceCmd, nftChangeMetadataCmd} {
		c.Flags().StringVar(&nftGas, "gas", "", "附加 gas (默认 30000000000000)")
	}
	for _, c := range []*cobra.Command{nftCreateSeriesCmd, nftMintCmd, nftBuyCmd, nftChangeMetadataCmd} {
		addMetadataFlags(c)
	}
	for _, c := range []*cobra.Command{nftCreateSeriesCmd, nftSetPriceCmd} {
		c.Flags().StringVar(&nftPrice, "price", "", "价格 (yoctoNEAR)")
		c.Flags().StringVar(&nftPriceNear, "price-near", "", "价格 (NEAR)")
	}
	for _, c := range []*cobra.Command{nftCreateSeriesCmd, nftBuyCmd} {
		c.Flags().StringVar(&nftDeposit, "deposit", "", "附加押金 (yoctoNEAR)")
		c.Flags().StringVar(&nftDepositNear, "deposit-near", "", "附加押金 (NEAR)")
	}
	nftCreateSeriesCmd.Flags().StringVar(&nftReceiver, "creator", "", "系列创建者 (默认签名账户)")
	nftCreateSeriesCmd.Flags().StringSliceVar(&nftRoyalty, "royalty", nil, "版税 <account>=<万分比>，可重复")
	nftMintCmd.Flags().StringVar(&nftReceiver, "receiver", "", "接收账户 (默认签名账户)")
	nftBuyCmd.Flags().StringVar(&nftReceiver, "receiver", "", "接收账户 (默认签名账户)")
	for _, c := range []*cobra.Command{nftSeriesCmd, nftTokensBySeriesCmd, nftTokensForOwnerCmd} {
		c.Flags().StringVar(&nftFromIndex, "from-index", "", "起始序号")
		c.Flags().Uint64Var(&nftLimit, "limit", 0, "最多返回条数")
	}

	nftCmd.AddCommand(nftCreateSeriesCmd, nftMintCmd, nftBuyCmd, nftSetPriceCmd, nftChangeMetadataCmd,
		nftSeriesCmd, nftTokenCmd, nftTokensBySeriesCmd, nftTokensForOwnerCmd)
}

type nftAction func(ctx context.Context, svc *nft.Service) (interface{}, error)

func withNFT(cmd *cobra.Command, action nftAction) error     { return runNFT(cmd, false, action) }
func withNFTView(cmd *cobra.Command, action nftAction) error { return runNFT(cmd, true, action) }

func runNFT(cmd *cobra.Command, readonly bool, action nftAction) error {
	var gas uint64
	if !readonly && nftGas != "" {
		v, err := strconv.ParseUint(nftGas, 10, 64)
		if err != nil || v == 0 || v > tx.MaxFunctionCallGas {
			return errs.New(errs.KindConfig, "gas", "invalid gas %q", nftGas)
		}
		gas = v
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.client.Close()

	ct, err := s.openContract(cmd.Context(), readonly)
	if err != nil {
		return err
	}
	res, err := action(cmd.Context(), nft.NewService(ct).WithGas(gas))
	if err != nil {
		return err
	}
	return formatter.Print(res)
}

func page() nft.Page {
	return nft.Page{FromIndex: nftFromIndex, Limit: nftLimit}
}

// parseOptionalAmount 两种单位至多给一个，都不给返回 nil
func parseOptionalAmount(name, yocto, near string) (*big.Int, error) {
	switch {
	case yocto != "" && near != "":
		return nil, errs.New(errs.KindConfig, name, "--%s and --%s-near are mutually exclusive", name, name)
	case yocto != "":
		v, err := tx.ParseYocto(yocto)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, name, err)
		}
		return v, nil
	case near != "":
		v, err := tx.ParseNearAmount(near)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, name, err)
		}
		return v, nil
	}
	return nil, nil
}

func parseRoyalty(entries []string) (map[string]uint32, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]uint32, len(entries))
	for _, e := range entries {
		acct, bps, ok := strings.Cut(e, "=")
		if !ok || acct == "" {
			return nil, errs.New(errs.KindConfig, "royalty", "invalid royalty %q, want <account>=<bps>", e)
		}
		v, err := strconv.ParseUint(bps, 10, 32)
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, "royalty", fmt.Errorf("invalid royalty %q: %w", e, err))
		}
		out[acct] = uint32(v)
	}
	return out, nil
}
