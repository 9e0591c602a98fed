// Package account 建立到网络的连接并以某个账户身份签名、发送交易
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
	"github.com/weisyn/nearnft/client/core/transport"
	"github.com/weisyn/nearnft/internal/log"
)

// Connection 网络连接句柄：网络配置 + 节点客户端 + 密钥仓库
type Connection struct {
	config   config.NetworkConfig
	provider transport.Client
	keyStore keystore.KeyStore
	logger   log.Logger
	timeout  time.Duration
	metrics  *transport.Metrics
}

// Option 连接选项
type Option func(*Connection)

// WithProvider 使用指定的节点客户端（例如 FallbackClient）
func WithProvider(p transport.Client) Option {
	return func(c *Connection) { c.provider = p }
}

// WithLogger 指定日志记录器
func WithLogger(l log.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout 默认节点客户端的 HTTP 超时
func WithTimeout(d time.Duration) Option {
	return func(c *Connection) { c.timeout = d }
}

// WithMetrics 默认节点客户端记录调用指标
func WithMetrics(m *transport.Metrics) Option {
	return func(c *Connection) { c.metrics = m }
}

// Connect 按网络配置建立连接，不访问网络
func Connect(cfg config.NetworkConfig, ks keystore.KeyStore, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ks == nil {
		return nil, errs.New(errs.KindConfig, "connect", "key store is required")
	}

	c := &Connection{
		config:   cfg,
		keyStore: ks,
		logger:   log.Named("account"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.provider == nil {
		c.provider = transport.NewJSONRPCClient(cfg.NodeURL, c.timeout).WithMetrics(c.metrics)
	}
	c.logger = c.logger.With("network", cfg.NetworkID)
	return c, nil
}

// NetworkID 网络名
func (c *Connection) NetworkID() string { return c.config.NetworkID }

// Config 网络配置
func (c *Connection) Config() config.NetworkConfig { return c.config }

// Provider 节点客户端
func (c *Connection) Provider() transport.Client { return c.provider }

// KeyStore 密钥仓库
func (c *Connection) KeyStore() keystore.KeyStore { return c.keyStore }

// Account 解析账户：确认账户在链上存在
//
// 不检查密钥是否已登记，缺少密钥在签名时才报错。
func (c *Connection) Account(ctx context.Context, accountID string) (*Account, error) {
	if err := config.ValidateAccountID(accountID); err != nil {
		return nil, errs.Wrap(errs.KindAccountResolution, "resolve_account", err)
	}

	view, err := c.provider.ViewAccount(ctx, accountID, transport.FinalBlock)
	if err != nil {
		if transport.IsUnknownAccount(err) {
			e := errs.New(errs.KindAccountResolution, "view_account", "account %s does not exist on %s", accountID, c.config.NetworkID)
			e.Name = transport.ErrNameUnknownAccount
			e.Cause = err
			return nil, e
		}
		return nil, errs.Wrap(errs.KindAccountResolution, "view_account", fmt.Errorf("resolve %s: %w", accountID, err))
	}

	c.logger.Debugf("resolved account %s at block %d", accountID, view.BlockHeight)
	return &Account{conn: c, accountID: accountID, state: view}, nil
}

// TxStatus 查询已提交交易的最终结果
func (c *Connection) TxStatus(ctx context.Context, txHash, senderID string) (*transport.FinalExecutionOutcome, error) {
	outcome, err := c.provider.TxStatus(ctx, txHash, senderID)
	if err != nil {
		return nil, errs.Wrap(errs.KindQuery, "tx", err)
	}
	return outcome, nil
}
