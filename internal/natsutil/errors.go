package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arloliu/subflow/types"
	"github.com/nats-io/nats.go"
)

// MapError translates nats.go errors into subflow sentinels.
//
// The original error stays in the chain, so callers can match either the
// subflow sentinel or the nats.go error with errors.Is.
//
// Parameters:
//   - err: Error returned by nats.go, may be nil
//
// Returns:
//   - error: Wrapped error, or err unchanged when no sentinel applies
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, nats.ErrTimeout):
		return fmt.Errorf("%w: %w", types.ErrTimeout, err)
	case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrConnectionDraining):
		return fmt.Errorf("%w: %w", types.ErrConnectionClosed, err)
	case errors.Is(err, nats.ErrBadSubject):
		return fmt.Errorf("%w: %w", types.ErrBadSubject, err)
	default:
		return err
	}
}

// IsConnectivityError checks if an error is caused by connectivity issues.
//
// This includes NATS timeouts, disconnections and closed connections.
// Kept in internal/natsutil to avoid importing NATS dependencies in types/.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if error indicates connectivity issue
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}
