package subflow

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/subflow/internal/logger"
	"github.com/arloliu/subflow/internal/metrics"
	"github.com/stretchr/testify/require"
)

// newTestRegistry creates a registry that is closed and waited for on cleanup.
func newTestRegistry(t *testing.T, cfg Config, opts ...Option) *Registry {
	t.Helper()

	opts = append([]Option{WithLogger(logger.NewTest(t))}, opts...)
	reg, err := NewRegistry(cfg, opts...)
	require.NoError(t, err)

	t.Cleanup(func() { shutdownRegistry(t, reg) })

	return reg
}

func shutdownRegistry(t *testing.T, reg *Registry) {
	t.Helper()

	reg.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, reg.Wait(ctx))
}

// routeN routes n messages with payloads "0".."n-1" and returns how many
// were buffered by at least one subscription.
func routeN(reg *Registry, subject string, n int) int {
	queued := 0
	for i := range n {
		if reg.Route(subject, NewMsg(subject, []byte(strconv.Itoa(i)))) > 0 {
			queued++
		}
	}

	return queued
}

// errorRecorder collects calls to the error handler.
type errorRecorder struct {
	mu    sync.Mutex
	calls []recordedError
}

type recordedError struct {
	conn *Conn
	sub  *Subscription
	err  error
}

func (r *errorRecorder) handle(conn *Conn, sub *Subscription, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedError{conn: conn, sub: sub, err: err})
}

func (r *errorRecorder) snapshot() []recordedError {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]recordedError(nil), r.calls...)
}

func (r *errorRecorder) count() int {
	return len(r.snapshot())
}

// recordingMetrics counts the metrics the core records.
type recordingMetrics struct {
	*metrics.NopMetrics

	mu              sync.Mutex
	delivered       map[Mode]int
	dropped         map[Mode]int
	slowConsumers   int
	handlerFailures int
	closed          map[string]int
	active          int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		NopMetrics: metrics.NewNop(),
		delivered:  make(map[Mode]int),
		dropped:    make(map[Mode]int),
		closed:     make(map[string]int),
	}
}

func (m *recordingMetrics) RecordDelivered(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered[mode]++
}

func (m *recordingMetrics) RecordDropped(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[mode]++
}

func (m *recordingMetrics) RecordSlowConsumer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowConsumers++
}

func (m *recordingMetrics) RecordHandlerFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlerFailures++
}

func (m *recordingMetrics) RecordSubscriptionClosed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[reason]++
}

func (m *recordingMetrics) SetActiveSubscriptions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
}

func (m *recordingMetrics) get(f func(m *recordingMetrics) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return f(m)
}
