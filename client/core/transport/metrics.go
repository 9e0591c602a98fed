package transport

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 节点调用指标
//
// nil *Metrics 可直接使用，所有记录都是空操作。
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics 创建指标并注册到 reg；同名指标已注册时复用已有的收集器
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nearnft",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of JSON-RPC requests sent to the node",
		},
		[]string{"method", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nearnft",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method"},
	)

	if reg == nil {
		return &Metrics{requests: requests, duration: duration}, nil
	}
	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return &Metrics{requests: requests, duration: duration}, nil
}

// observe 记录一次调用
func (m *Metrics) observe(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcomeOf(err)).Inc()
	m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// outcomeOf ok、rpc_error（节点返回了错误体）或 unreachable（连接、网关层失败）
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && (rpcErr.Name != "" || !rpcErr.Retryable()) {
		return "rpc_error"
	}
	return "unreachable"
}
