package testing

import (
	"testing"

	"github.com/arloliu/subflow/internal/logger"
	"github.com/arloliu/subflow/types"
)

// NewTestLogger creates a logger that writes to the test log.
//
// Records logged after the test finished, for example by a dispatcher that is
// still shutting down, are discarded instead of failing the test.
func NewTestLogger(t testing.TB) types.Logger {
	return logger.NewTest(t)
}
