package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("errors.Is works correctly", func(t *testing.T) {
		require.True(t, errors.Is(ErrBadSubscription, ErrBadSubscription))
		require.False(t, errors.Is(ErrBadSubscription, ErrMaxMessages))

		wrapped := fmt.Errorf("next message: %w", ErrMaxMessages)
		require.True(t, errors.Is(wrapped, ErrMaxMessages))
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			ErrBadSubscription,
			ErrTimeout,
			ErrSlowConsumer,
			ErrMaxMessages,
			ErrSyncSubRequired,
			ErrAsyncSubRequired,
			ErrAlreadyStarted,
			ErrHandlerRequired,
			ErrHandlerFailed,
			ErrInvalidArg,
			ErrBadSubject,
			ErrNoReply,
			ErrInvalidConfig,
			ErrNATSConnectionRequired,
			ErrConnectionClosed,
		}

		for i, a := range allErrors {
			for j, b := range allErrors {
				if i != j {
					require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
				}
			}
		}
	})
}

func TestSlowConsumerError(t *testing.T) {
	err := &SlowConsumerError{SID: 7, Subject: "foo", Dropped: 3}

	require.ErrorIs(t, err, ErrSlowConsumer)
	require.Contains(t, err.Error(), "slow consumer")
	require.Contains(t, err.Error(), `"foo"`)

	var sce *SlowConsumerError
	wrapped := fmt.Errorf("flush: %w", err)
	require.ErrorAs(t, wrapped, &sce)
	require.Equal(t, int64(7), sce.SID)
	require.False(t, errors.Is(err, ErrTimeout))
}

func TestStatsMatched(t *testing.T) {
	s := Stats{PendingMsgs: 4, Delivered: 10, Dropped: 2}
	require.Equal(t, int64(16), s.Matched())
}
