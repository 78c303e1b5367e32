package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestStartEmbeddedNATS(t *testing.T) {
	ns, nc := StartEmbeddedNATS(t)

	require.NotNil(t, ns)
	require.NotNil(t, nc)
	require.True(t, nc.IsConnected())
	require.True(t, ns.ReadyForConnections(1*time.Second))
}

// TestStartEmbeddedNATS_ParallelTests verifies parallel test execution.
func TestStartEmbeddedNATS_ParallelTests(t *testing.T) {
	t.Parallel()

	// Run multiple tests in parallel to verify no port conflicts
	for range 5 {
		t.Run("parallel", func(t *testing.T) {
			t.Parallel()

			_, nc := StartEmbeddedNATS(t)
			require.NotNil(t, nc)
			require.True(t, nc.IsConnected())
		})
	}
}

func TestConnect_SecondClientReceives(t *testing.T) {
	ns, sub := StartEmbeddedNATS(t)
	pub := Connect(t, ns)

	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("probe", ch)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	require.NoError(t, pub.Publish("probe", []byte("hello")))
	require.NoError(t, pub.Flush())

	select {
	case m := <-ch:
		require.Equal(t, "hello", string(m.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestNewTestLogger(t *testing.T) {
	l := NewTestLogger(t)
	require.NotPanics(t, func() {
		l.Info("hello", "key", "value")
		l.Debug("debug")
	})
}
