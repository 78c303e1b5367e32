package flow

import (
	"testing"

	"github.com/arloliu/subflow/internal/pending"
	"github.com/stretchr/testify/require"
)

func TestController_Admit(t *testing.T) {
	tests := []struct {
		name         string
		maxMsgs      int
		maxBytes     int
		pendingMsgs  int
		pendingBytes int
		size         int
		want         Decision
	}{
		{"empty buffer", 10, 100, 0, 0, 10, Admit},
		{"reaches message limit exactly", 10, 100, 9, 50, 10, Admit},
		{"exceeds message limit", 10, 100, 10, 50, 1, DropSlowConsumer},
		{"reaches byte limit exactly", 10, 100, 1, 90, 10, Admit},
		{"exceeds byte limit", 10, 100, 1, 95, 10, DropSlowConsumer},
		{"single message larger than byte limit", 10, 100, 0, 0, 101, DropSlowConsumer},
		{"unlimited messages with zero", 0, 100, 1 << 20, 0, 1, Admit},
		{"unlimited messages with negative", -1, 100, 1 << 20, 0, 1, Admit},
		{"unlimited bytes with zero", 10, 0, 0, 1 << 30, 1 << 20, Admit},
		{"unlimited bytes with negative", 10, -1, 0, 1 << 30, 1 << 20, Admit},
		{"both unlimited", -1, -1, 1 << 20, 1 << 30, 1 << 20, Admit},
		{"empty payload still counts as a message", 1, 100, 1, 0, 0, DropSlowConsumer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.maxMsgs, tt.maxBytes)
			require.Equal(t, tt.want, c.Admit(tt.pendingMsgs, tt.pendingBytes, tt.size))
			require.Equal(t, tt.want == Admit, c.Admits(tt.pendingMsgs, tt.pendingBytes, tt.size))
		})
	}
}

func TestController_SetLimits(t *testing.T) {
	c := New(10, 100)
	msgs, bytes := c.Limits()
	require.Equal(t, 10, msgs)
	require.Equal(t, 100, bytes)

	c.SetLimits(2, -1)
	msgs, bytes = c.Limits()
	require.Equal(t, 2, msgs)
	require.Equal(t, -1, bytes)
	require.Equal(t, DropSlowConsumer, c.Admit(2, 0, 1))
}

func TestController_Capacity(t *testing.T) {
	tests := []struct {
		name        string
		maxMsgs     int
		capacity    int
		pendingMsgs int
		want        Decision
	}{
		{"below capacity", -1, 10, 9, Admit},
		{"at capacity with unlimited limit", -1, 10, 10, DropSlowConsumer},
		{"limit above capacity", 100, 10, 10, DropSlowConsumer},
		{"limit below capacity", 5, 10, 5, DropSlowConsumer},
		{"uncapped", -1, 0, 1 << 20, Admit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithCapacity(tt.maxMsgs, -1, tt.capacity)
			require.Equal(t, tt.want, c.Admit(tt.pendingMsgs, 0, 1))

			msgs, _ := c.Limits()
			require.Equal(t, tt.maxMsgs, msgs, "capacity is not reported as a limit")
			require.Equal(t, tt.capacity, c.Capacity())
		})
	}
}

func TestController_LoweringLimitDoesNotEvict(t *testing.T) {
	c := New(10, 0)
	buf := pending.New(func(b []byte) int { return len(b) })

	for range 5 {
		ok, err := buf.Push([]byte("x"), c.Admits)
		require.NoError(t, err)
		require.True(t, ok)
	}

	c.SetLimits(2, 0)
	require.Equal(t, 5, buf.Len(), "already buffered messages stay")

	ok, err := buf.Push([]byte("y"), c.Admits)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5, buf.Len())
	require.Equal(t, 1, buf.Snapshot().Dropped)

	for range 4 {
		_, _, _ = buf.TryPop()
	}
	ok, _ = buf.Push([]byte("z"), c.Admits)
	require.True(t, ok, "admission resumes once occupancy is below the new limit")
}

func TestDecision_String(t *testing.T) {
	require.Equal(t, "admit", Admit.String())
	require.Equal(t, "drop_slow_consumer", DropSlowConsumer.String())
	require.Equal(t, "unknown", Decision(42).String())
}
