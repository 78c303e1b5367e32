// Package types provides core type definitions and interfaces for the subflow library.
//
// This package contains shared types that are used across multiple packages in the
// subflow library. Keeping them here lets internal packages depend on the shared
// vocabulary without importing the root subflow package.
//
// Key types:
//   - State: Subscription lifecycle state
//   - Mode: Synchronous or asynchronous delivery
//   - Stats: Point-in-time subscription statistics
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
