package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	// 节点端点(按优先级排序)
	Endpoints []EndpointConfig `json:"endpoints"`

	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryBackoff  time.Duration `json:"retry_backoff"`

	// 为 0 时不启动后台健康检查
	HealthCheckInterval time.Duration `json:"health_check_interval"`

	Metrics *Metrics `json:"-"`
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"` // 数字越小越优先
	URL      string `json:"url"`
}

// FallbackClient 支持故障转移的客户端
//
// 只读调用在节点不可用时切换到下一个端点；交易广播只发往当前端点一次。
type FallbackClient struct {
	config    ClientConfig
	clients   []clientWithPriority
	current   int
	mu        sync.RWMutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

type clientWithPriority struct {
	name     string
	priority int
	client   Client
	healthy  bool
}

// NewFallbackClient 创建支持故障转移的客户端
func NewFallbackClient(config ClientConfig) (*FallbackClient, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}

	clients := make([]Client, 0, len(config.Endpoints))
	for _, ep := range config.Endpoints {
		if ep.URL == "" {
			continue
		}
		clients = append(clients, NewJSONRPCClient(ep.URL, config.Timeout).WithMetrics(config.Metrics))
	}
	return newFallbackClient(config, clients)
}

// newFallbackClient 使用现成的 Client 组装，clients 与 config.Endpoints 中非空 URL 一一对应
func newFallbackClient(config ClientConfig, clients []Client) (*FallbackClient, error) {
	fc := &FallbackClient{
		config:  config,
		clients: make([]clientWithPriority, 0, len(clients)),
		closeCh: make(chan struct{}),
	}

	i := 0
	for _, ep := range config.Endpoints {
		if ep.URL == "" {
			continue
		}
		if i >= len(clients) {
			break
		}
		fc.clients = append(fc.clients, clientWithPriority{
			name:     ep.Name,
			priority: ep.Priority,
			client:   clients[i],
			healthy:  true,
		})
		i++
	}

	if len(fc.clients) == 0 {
		return nil, fmt.Errorf("no valid clients created")
	}

	sort.SliceStable(fc.clients, func(a, b int) bool {
		return fc.clients[a].priority < fc.clients[b].priority
	})
	// 默认每个端点尝试一次，单端点不重试
	if fc.config.RetryAttempts <= 0 {
		fc.config.RetryAttempts = len(fc.clients)
	}

	if config.HealthCheckInterval > 0 {
		go fc.healthCheckLoop()
	}

	return fc, nil
}

// Close 停止健康检查
func (fc *FallbackClient) Close() {
	fc.closeOnce.Do(func() { close(fc.closeCh) })
}

func (fc *FallbackClient) healthCheckLoop() {
	ticker := time.NewTicker(fc.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fc.checkAllClients()
		case <-fc.closeCh:
			return
		}
	}
}

func (fc *FallbackClient) checkAllClients() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	for i := range fc.clients {
		err := fc.clients[i].client.Ping(ctx)
		fc.clients[i].healthy = (err == nil)
	}
}

// getClient 获取当前可用客户端
func (fc *FallbackClient) getClient() Client {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.current < len(fc.clients) && fc.clients[fc.current].healthy {
		return fc.clients[fc.current].client
	}

	for i, c := range fc.clients {
		if c.healthy {
			fc.current = i
			return c.client
		}
	}

	// 所有客户端都不健康,重置并返回第一个
	for i := range fc.clients {
		fc.clients[i].healthy = true
	}
	fc.current = 0
	return fc.clients[0].client
}

// shouldFailover 只有连接层失败或节点内部错误才切换端点
func shouldFailover(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Retryable()
	}
	return false
}

// tryWithFallback 尝试执行只读操作,失败时降级
func (fc *FallbackClient) tryWithFallback(ctx context.Context, op func(Client) error) error {
	var lastErr error

	for attempt := 0; attempt < fc.config.RetryAttempts; attempt++ {
		client := fc.getClient()

		err := op(client)
		if err == nil {
			return nil
		}
		if !shouldFailover(err) {
			return err
		}
		lastErr = err

		if !fc.markUnhealthy() {
			break
		}
		if attempt < fc.config.RetryAttempts-1 {
			select {
			case <-time.After(fc.config.RetryBackoff * time.Duration(attempt+1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("all endpoints failed: %w", lastErr)
}

// markUnhealthy 标记当前端点不可用，返回是否还有其他可用端点
func (fc *FallbackClient) markUnhealthy() bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.current < len(fc.clients) {
		fc.clients[fc.current].healthy = false
	}
	for _, c := range fc.clients {
		if c.healthy {
			return true
		}
	}
	return false
}

// ===== Client接口实现 =====

func (fc *FallbackClient) Status(ctx context.Context) (*NodeStatus, error) {
	var result *NodeStatus
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.Status(ctx)
		return e
	})
	return result, err
}

func (fc *FallbackClient) Ping(ctx context.Context) error {
	return fc.tryWithFallback(ctx, func(c Client) error { return c.Ping(ctx) })
}

func (fc *FallbackClient) Block(ctx context.Context, ref BlockReference) (*Block, error) {
	var result *Block
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.Block(ctx, ref)
		return e
	})
	return result, err
}

func (fc *FallbackClient) ViewAccount(ctx context.Context, accountID string, ref BlockReference) (*AccountView, error) {
	var result *AccountView
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.ViewAccount(ctx, accountID, ref)
		return e
	})
	return result, err
}

func (fc *FallbackClient) ViewAccessKey(ctx context.Context, accountID, publicKey string, ref BlockReference) (*AccessKeyView, error) {
	var result *AccessKeyView
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.ViewAccessKey(ctx, accountID, publicKey, ref)
		return e
	})
	return result, err
}

func (fc *FallbackClient) CallFunction(ctx context.Context, contractID, method string, args []byte, ref BlockReference) (*CallFunctionResult, error) {
	var result *CallFunctionResult
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.CallFunction(ctx, contractID, method, args, ref)
		return e
	})
	return result, err
}

// SendTransactionCommit 不做重试与切换
func (fc *FallbackClient) SendTransactionCommit(ctx context.Context, signedTxBase64 string) (*FinalExecutionOutcome, error) {
	return fc.getClient().SendTransactionCommit(ctx, signedTxBase64)
}

func (fc *FallbackClient) TxStatus(ctx context.Context, txHash, senderID string) (*FinalExecutionOutcome, error) {
	var result *FinalExecutionOutcome
	err := fc.tryWithFallback(ctx, func(c Client) error {
		var e error
		result, e = c.TxStatus(ctx, txHash, senderID)
		return e
	})
	return result, err
}

var _ Client = (*FallbackClient)(nil)
