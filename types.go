package subflow

import "github.com/arloliu/subflow/types"

// Re-export types from the internal types package.
//
// This file provides a stable public API for the library's core types and
// interfaces. It uses type aliases to re-export definitions from the `types`
// subpackage so internal packages can depend on `types` without importing the
// root `subflow` package, while users still write `subflow.Stats`,
// `subflow.Logger`, etc.
type (
	State             = types.State
	Mode              = types.Mode
	Stats             = types.Stats
	SlowConsumerError = types.SlowConsumerError
)

// Re-export interfaces from the internal types package for convenience.
type (
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
)

// Re-export State constants from the internal types package.
const (
	StateActive = types.StateActive
	StateClosed = types.StateClosed
)

// Re-export Mode constants from the internal types package.
const (
	ModeSync  = types.ModeSync
	ModeAsync = types.ModeAsync
)
