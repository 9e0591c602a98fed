// Package config 描述调用器连接的网络、配置文件、环境变量凭据与待执行的操作
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/weisyn/nearnft/client/core/errs"
)

const (
	NetworkMainnet  = "mainnet"
	NetworkTestnet  = "testnet"
	NetworkLocalnet = "localnet"
)

// DefaultContractName 默认绑定的 NFT 系列合约
const DefaultContractName = "viernear.testnet"

// NetworkConfig 网络连接配置，构造后不再修改
type NetworkConfig struct {
	NetworkID    string `json:"network_id"`
	NodeURL      string `json:"node_url"`
	WalletURL    string `json:"wallet_url,omitempty"`
	HelperURL    string `json:"helper_url,omitempty"`
	ExplorerURL  string `json:"explorer_url,omitempty"`
	AppName      string `json:"app_name,omitempty"`
	ContractName string `json:"contract_name"`
}

var presets = map[string]NetworkConfig{
	NetworkTestnet: {
		NetworkID:    NetworkTestnet,
		NodeURL:      "https://rpc.testnet.near.org",
		WalletURL:    "https://wallet.testnet.near.org",
		HelperURL:    "https://helper.testnet.near.org",
		ExplorerURL:  "https://explorer.testnet.near.org",
		AppName:      "Testnet",
		ContractName: DefaultContractName,
	},
	NetworkMainnet: {
		NetworkID:   NetworkMainnet,
		NodeURL:     "https://rpc.mainnet.near.org",
		WalletURL:   "https://wallet.near.org",
		HelperURL:   "https://helper.mainnet.near.org",
		ExplorerURL: "https://explorer.near.org",
		AppName:     "Mainnet",
	},
	NetworkLocalnet: {
		NetworkID: NetworkLocalnet,
		NodeURL:   "http://127.0.0.1:3030",
		AppName:   "Localnet",
	},
}

// NormalizeNetwork 规范化网络名，空串视为 testnet
func NormalizeNetwork(network string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(network))
	if normalized == "" {
		return NetworkTestnet, nil
	}
	if _, ok := presets[normalized]; ok {
		return normalized, nil
	}
	return "", errs.New(errs.KindConfig, "normalize_network", "unsupported network %q", network)
}

// ForNetwork 返回预置网络配置
func ForNetwork(network string) (NetworkConfig, error) {
	normalized, err := NormalizeNetwork(network)
	if err != nil {
		return NetworkConfig{}, err
	}
	return presets[normalized], nil
}

// Testnet 返回 testnet 预置配置
func Testnet() NetworkConfig {
	return presets[NetworkTestnet]
}

// WithContract 返回替换了合约名的副本
func (c NetworkConfig) WithContract(contract string) NetworkConfig {
	c.ContractName = contract
	return c
}

// WithNodeURL 返回替换了节点地址的副本
func (c NetworkConfig) WithNodeURL(nodeURL string) NetworkConfig {
	c.NodeURL = nodeURL
	return c
}

// Validate 校验必填字段与 URL 格式
func (c NetworkConfig) Validate() error {
	if strings.TrimSpace(c.NetworkID) == "" {
		return errs.New(errs.KindConfig, "validate", "network_id is required")
	}
	if strings.TrimSpace(c.NodeURL) == "" {
		return errs.New(errs.KindConfig, "validate", "node_url is required")
	}
	if err := validateURL("node_url", c.NodeURL); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"wallet_url":   c.WalletURL,
		"helper_url":   c.HelperURL,
		"explorer_url": c.ExplorerURL,
	} {
		if v == "" {
			continue
		}
		if err := validateURL(name, v); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.ContractName) == "" {
		return errs.New(errs.KindConfig, "validate", "contract_name is required")
	}
	if err := ValidateAccountID(c.ContractName); err != nil {
		return errs.Wrap(errs.KindConfig, "validate", fmt.Errorf("contract_name: %w", err))
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errs.Wrap(errs.KindConfig, "validate", fmt.Errorf("%s: %w", field, err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.New(errs.KindConfig, "validate", "%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

// ValidateAccountID 校验账户名：2-64 位，小写字母数字，以 . _ - 分隔
func ValidateAccountID(id string) error {
	if len(id) < 2 || len(id) > 64 {
		return fmt.Errorf("account id %q must be 2-64 characters", id)
	}
	prevSep := true
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSep = false
		case c == '.' || c == '_' || c == '-':
			if prevSep {
				return fmt.Errorf("account id %q has misplaced separator", id)
			}
			prevSep = true
		default:
			return fmt.Errorf("account id %q contains invalid character %q", id, c)
		}
	}
	if prevSep {
		return fmt.Errorf("account id %q ends with a separator", id)
	}
	return nil
}
