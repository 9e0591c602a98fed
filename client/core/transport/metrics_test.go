package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nearnft/internal/testutil/nearmock"
)

func TestMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	node := nearmock.New(t)
	node.Handle("query:view_account", func(json.RawMessage) (interface{}, *nearmock.Error) {
		return nil, nearmock.HandlerError("UNKNOWN_ACCOUNT", map[string]string{"requested_account_id": "ghost.testnet"})
	})
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	ctx := context.Background()
	c := NewJSONRPCClient(node.URL, time.Second).WithMetrics(m)
	_, err = c.Status(ctx)
	require.NoError(t, err)
	_, err = c.ViewAccount(ctx, "ghost.testnet", FinalBlock)
	require.Error(t, err)
	_, err = NewJSONRPCClient(down.URL, time.Second).WithMetrics(m).Status(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("status", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("query", "rpc_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("status", "unreachable")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestMetricsRegistration(t *testing.T) {
	t.Run("重复注册复用收集器", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first, err := NewMetrics(reg)
		require.NoError(t, err)
		second, err := NewMetrics(reg)
		require.NoError(t, err)

		first.observe("block", time.Now(), nil)
		assert.Equal(t, 1.0, testutil.ToFloat64(second.requests.WithLabelValues("block", "ok")))
	})

	t.Run("nil 指标不记录", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() { m.observe("status", time.Now(), nil) })
	})
}
