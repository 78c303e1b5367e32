// Package testing provides test utilities for the subflow library.
//
// This package offers helpers for setting up test environments, particularly
// embedded NATS servers for integration testing. It follows Go's convention
// of providing testing utilities in a dedicated package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server plus a connected client
//   - StartServer / Connect: Server and additional clients, e.g. a separate publisher
//   - NewTestLogger: Logger writing to the test log
//
// Example usage:
//
//	import (
//	    "testing"
//	    subflowtest "github.com/arloliu/subflow/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := subflowtest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
