package subflow

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextMsg_FIFO(t *testing.T) {
	reg := newTestRegistry(t, TestConfig())

	sub, err := reg.SubscribeSync("foo")
	require.NoError(t, err)
	routeN(reg, "foo", 100)

	for i := range 100 {
		msg, err := sub.NextMsg(time.Second)
		require.NoError(t, err)
		require.Equal(t, strconv.Itoa(i), string(msg.Data))
		require.Equal(t, "foo", msg.Subject)
		require.Same(t, sub, msg.Sub)
	}
}

func TestNextMsg_Timeouts(t *testing.T) {
	reg := newTestRegistry(t, TestConfig())

	sub, err := reg.SubscribeSync("foo")
	require.NoError(t, err)

	t.Run("positive timeout waits", func(t *testing.T) {
		start := time.Now()
		_, err := sub.NextMsg(50 * time.Millisecond)
		require.ErrorIs(t, err, ErrTimeout)
		require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("negative timeout polls", func(t *testing.T) {
		start := time.Now()
		_, err := sub.NextMsg(-1)
		require.ErrorIs(t, err, ErrTimeout)
		require.Less(t, time.Since(start), 50*time.Millisecond)

		routeN(reg, "foo", 1)
		msg, err := sub.NextMsg(-1)
		require.NoError(t, err)
		require.Equal(t, "0", string(msg.Data))
	})

	t.Run("zero timeout blocks until a message arrives", func(t *testing.T) {
		got := make(chan *Msg, 1)
		go func() {
			msg, err := sub.NextMsg(0)
			if err == nil {
				got <- msg
			}
			close(got)
		}()

		select {
		case <-got:
			t.Fatal("NextMsg(0) returned without a message")
		case <-time.After(50 * time.Millisecond):
		}

		reg.Route("foo", NewMsg("foo", []byte("late")))

		select {
		case msg := <-got:
			require.NotNil(t, msg)
			require.Equal(t, "late", string(msg.Data))
		case <-time.After(2 * time.Second):
			t.Fatal("NextMsg(0) not woken by the message")
		}
	})
}

func TestNextMsg_DeliveredWithDequeue(t *testing.T) {
	reg := newTestRegistry(t, TestConfig())

	sub, err := reg.SubscribeSync("foo")
	require.NoError(t, err)
	routeN(reg, "foo", 5)

	for i := 1; i <= 5; i++ {
		_, err := sub.NextMsg(time.Second)
		require.NoError(t, err)

		stats, err := sub.Stats()
		require.NoError(t, err)
		require.Equal(t, int64(i), stats.Delivered)
		require.Equal(t, 5-i, stats.PendingMsgs)
	}
}

func TestNextMsg_WakeOnClose(t *testing.T) {
	tests := []struct {
		name      string
		close     func(reg *Registry, sub *Subscription)
		wantCause error
	}{
		{
			name:  "unsubscribe",
			close: func(_ *Registry, sub *Subscription) { _ = sub.Unsubscribe() },
		},
		{
			name:      "connection close",
			close:     func(reg *Registry, _ *Subscription) { reg.CloseAll(ErrConnectionClosed) },
			wantCause: ErrConnectionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTestRegistry(t, TestConfig())
			sub, err := reg.SubscribeSync("foo")
			require.NoError(t, err)

			errs := make(chan error, 1)
			go func() {
				_, err := sub.NextMsg(10 * time.Second)
				errs <- err
			}()
			time.Sleep(20 * time.Millisecond)

			start := time.Now()
			tt.close(reg, sub)

			select {
			case err := <-errs:
				require.ErrorIs(t, err, ErrBadSubscription)
				if tt.wantCause != nil {
					require.ErrorIs(t, err, tt.wantCause)
				}
				require.Less(t, time.Since(start), time.Second)
			case <-time.After(2 * time.Second):
				t.Fatal("blocked NextMsg not released by close")
			}
		})
	}
}

func TestNextMsg_NeverReportsSlowConsumer(t *testing.T) {
	reg := newTestRegistry(t, TestConfig())

	sub, err := reg.SubscribeSync("foo")
	require.NoError(t, err)
	require.NoError(t, sub.SetPendingLimits(10, -1))
	routeN(reg, "foo", 110)

	received := 0
	for {
		_, err := sub.NextMsg(-1)
		if err != nil {
			require.ErrorIs(t, err, ErrTimeout)
			break
		}
		received++
	}
	require.Equal(t, 10, received)
}

func TestNextMsg_AsyncSubscription(t *testing.T) {
	reg := newTestRegistry(t, TestConfig())

	sub, err := reg.SubscribeAsync("foo", MessageHandlerFunc(func(context.Context, *Msg) error { return nil }))
	require.NoError(t, err)

	_, err = sub.NextMsg(time.Second)
	require.ErrorIs(t, err, ErrSyncSubRequired)

	_, err = sub.NextMsgWithContext(t.Context())
	require.ErrorIs(t, err, ErrSyncSubRequired)
}

func TestNextMsgWithContext(t *testing.T) {
	reg := newTestRegistry(t, TestConfig())

	sub, err := reg.SubscribeSync("foo")
	require.NoError(t, err)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := sub.NextMsgWithContext(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()

		_, err := sub.NextMsgWithContext(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("message", func(t *testing.T) {
		routeN(reg, "foo", 1)

		msg, err := sub.NextMsgWithContext(t.Context())
		require.NoError(t, err)
		require.Equal(t, "0", string(msg.Data))
	})
}
