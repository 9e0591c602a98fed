// Package client 把连接、密钥登记、账户解析与合约绑定串成一个入口
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weisyn/nearnft/client/core/account"
	"github.com/weisyn/nearnft/client/core/config"
	"github.com/weisyn/nearnft/client/core/contract"
	"github.com/weisyn/nearnft/client/core/errs"
	"github.com/weisyn/nearnft/client/core/keystore"
	"github.com/weisyn/nearnft/client/core/nft"
	"github.com/weisyn/nearnft/client/core/transport"
	"github.com/weisyn/nearnft/internal/log"
)

// Client NFT 合约调用客户端
type Client struct {
	conn     *account.Connection
	fallback *transport.FallbackClient
	methods  contract.Options
	logger   log.Logger
}

type settings struct {
	keyStore keystore.KeyStore
	provider transport.Client
	timeout  time.Duration
	methods  contract.Options
	registry prometheus.Registerer
}

// Option 客户端选项
type Option func(*settings)

// WithKeyStore 使用指定密钥库，默认为内存密钥库
func WithKeyStore(ks keystore.KeyStore) Option {
	return func(s *settings) { s.keyStore = ks }
}

// WithProvider 使用自定义节点客户端
func WithProvider(p transport.Client) Option {
	return func(s *settings) { s.provider = p }
}

// WithTimeout 节点 HTTP 超时
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithMetrics 把节点调用指标注册到 reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registry = reg }
}

// WithMethods 在内置 NFT 方法之外追加声明
func WithMethods(extra contract.Options) Option {
	return func(s *settings) {
		s.methods.ChangeMethods = append(s.methods.ChangeMethods, extra.ChangeMethods...)
		s.methods.ViewMethods = append(s.methods.ViewMethods, extra.ViewMethods...)
	}
}

// Configure 按网络配置创建客户端，不访问网络
func Configure(cfg config.NetworkConfig, opts ...Option) (*Client, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return configure(cfg, s, nil)
}

// FromProfile 按配置文件创建客户端
//
// 配置了备用节点时，只读调用在主节点不可用时切换；交易仍只广播一次。
func FromProfile(p *config.Profile, opts ...Option) (*Client, error) {
	if p == nil {
		return nil, errs.New(errs.KindConfig, "configure", "profile is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &settings{timeout: p.Timeout.Std()}
	WithMethods(contract.Options{ChangeMethods: p.ChangeMethods, ViewMethods: p.ViewMethods})(s)
	for _, opt := range opts {
		opt(s)
	}

	metrics, err := s.newMetrics()
	if err != nil {
		return nil, err
	}

	var fallback *transport.FallbackClient
	if s.provider == nil && len(p.FallbackNodeURLs) > 0 {
		endpoints := []transport.EndpointConfig{{Name: "primary", Priority: 0, URL: p.Network.NodeURL}}
		for i, u := range p.FallbackNodeURLs {
			endpoints = append(endpoints, transport.EndpointConfig{Name: fmt.Sprintf("fallback-%d", i+1), Priority: i + 1, URL: u})
		}
		fc, err := transport.NewFallbackClient(transport.ClientConfig{
			Endpoints:     endpoints,
			Timeout:       p.Timeout.Std(),
			RetryAttempts: p.RetryAttempts,
			RetryBackoff:  p.RetryBackoff.Std(),
			Metrics:       metrics,
		})
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, "configure", err)
		}
		fallback = fc
		s.provider = fc
	}
	return configure(p.Network, s, fallback)
}

func (s *settings) newMetrics() (*transport.Metrics, error) {
	if s.registry == nil {
		return nil, nil
	}
	m, err := transport.NewMetrics(s.registry)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "configure", err)
	}
	return m, nil
}

func configure(cfg config.NetworkConfig, s *settings, fallback *transport.FallbackClient) (*Client, error) {
	if s.keyStore == nil {
		s.keyStore = keystore.NewInMemoryKeyStore()
	}
	metrics, err := s.newMetrics()
	if err != nil {
		return nil, err
	}
	connOpts := []account.Option{account.WithTimeout(s.timeout), account.WithMetrics(metrics)}
	if s.provider != nil {
		connOpts = append(connOpts, account.WithProvider(s.provider))
	}
	conn, err := account.Connect(cfg, s.keyStore, connOpts...)
	if err != nil {
		if fallback != nil {
			fallback.Close()
		}
		return nil, err
	}

	methods := contract.Options{
		ChangeMethods: dedupe(append(nft.ChangeMethods(), s.methods.ChangeMethods...)),
		ViewMethods:   dedupe(append(nft.ViewMethods(), s.methods.ViewMethods...)),
	}
	return &Client{
		conn:     conn,
		fallback: fallback,
		methods:  methods,
		logger:   log.Named("client").With("network", cfg.NetworkID),
	}, nil
}

// Close 释放备用节点的后台资源
func (c *Client) Close() {
	if c.fallback != nil {
		c.fallback.Close()
	}
}

// Connection 底层连接
func (c *Client) Connection() *account.Connection { return c.conn }

// KeyStore 密钥库
func (c *Client) KeyStore() keystore.KeyStore { return c.conn.KeyStore() }

// Methods 绑定合约时声明的方法
func (c *Client) Methods() contract.Options { return c.methods }

// RegisterKey 为账户登记签名密钥，重复登记覆盖旧值
func (c *Client) RegisterKey(accountID string, key keystore.KeyPair) error {
	if err := config.ValidateAccountID(accountID); err != nil {
		return errs.Wrap(errs.KindConfig, "register_key", err)
	}
	if key == nil {
		return errs.New(errs.KindConfig, "register_key", "key is required")
	}
	if err := c.conn.KeyStore().SetKey(c.conn.NetworkID(), accountID, key); err != nil {
		return errs.Wrap(errs.KindConfig, "register_key", err)
	}
	c.logger.Debugf("registered key %s for %s", key.PublicKey(), accountID)
	return nil
}

// RegisterOperator 登记环境变量提供的签名账户
func (c *Client) RegisterOperator(op config.Operator) error {
	return c.RegisterKey(op.AccountID, op.Key)
}

// ResolveAccount 确认账户存在
func (c *Client) ResolveAccount(ctx context.Context, accountID string) (*account.Account, error) {
	return c.conn.Account(ctx, accountID)
}

// BindContract 绑定合约，contractID 为空时使用网络配置中的合约
func (c *Client) BindContract(acct *account.Account, contractID string) (*contract.Contract, error) {
	if contractID == "" {
		contractID = c.conn.Config().ContractName
	}
	return contract.New(acct, contractID, c.methods)
}

// Open 解析账户并绑定合约
func (c *Client) Open(ctx context.Context, accountID, contractID string) (*contract.Contract, error) {
	acct, err := c.ResolveAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return c.BindContract(acct, contractID)
}

// NFT 解析账户、绑定合约并返回类型化的 NFT 服务
func (c *Client) NFT(ctx context.Context, accountID, contractID string) (*nft.Service, error) {
	ct, err := c.Open(ctx, accountID, contractID)
	if err != nil {
		return nil, err
	}
	return nft.NewService(ct), nil
}

// Invoke 执行一次操作，按 Kind 分派到变更或只读入口
func Invoke(ctx context.Context, ct *contract.Contract, op config.Operation) (interface{}, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	args, err := op.ArgsObject()
	if err != nil {
		return nil, err
	}

	if op.Kind == config.OperationView {
		res, err := ct.View(ctx, op.Method, args)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	gas, err := op.ParsedGas()
	if err != nil {
		return nil, err
	}
	deposit, err := op.ParsedDeposit()
	if err != nil {
		return nil, err
	}
	res, err := ct.Call(ctx, op.Method, args, contract.CallOptions{Gas: gas, Deposit: deposit})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
