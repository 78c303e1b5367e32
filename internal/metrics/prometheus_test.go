package metrics

import (
	"testing"

	"github.com/arloliu/subflow/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)
}

func TestPrometheusCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordDelivered(types.ModeSync)
	p.RecordDelivered(types.ModeSync)
	p.RecordDelivered(types.ModeAsync)
	p.RecordDropped(types.ModeAsync)
	p.RecordSlowConsumer()
	p.RecordHandlerFailure()
	p.RecordSubscriptionClosed("auto_unsubscribe")
	p.SetActiveSubscriptions(3)
	p.ObserveFlushLatency(0.002)
	p.RecordAsyncError()

	require.InDelta(t, 2, testutil.ToFloat64(p.delivered.WithLabelValues("sync")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.delivered.WithLabelValues("async")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.dropped.WithLabelValues("async")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.slowConsumers), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.handlerFailures), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.closed.WithLabelValues("auto_unsubscribe")), 0)
	require.InDelta(t, 3, testutil.ToFloat64(p.active), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.asyncErrors), 0)

	count, err := testutil.GatherAndCount(reg, "test_connection_flush_latency_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPrometheusCollector_DefaultNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "")
	p.RecordSlowConsumer()

	count, err := testutil.GatherAndCount(reg, "subflow_subscription_slow_consumer_episodes_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
