package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// StartEmbeddedNATS starts an embedded NATS server for testing.
//
// The server runs in-process on a random available port, so parallel tests
// never conflict. Server and client are shut down automatically via t.Cleanup().
//
// Benefits over testcontainers:
//   - Zero external dependencies (no Docker required)
//   - Fast startup (milliseconds vs seconds)
//   - Works everywhere Go works (CI/CD friendly)
//
// Parameters:
//   - t: Testing context for logging and cleanup
//
// Returns:
//   - *server.Server: The embedded NATS server instance
//   - *nats.Conn: Connected NATS client (closed automatically on test completion)
//
// Example:
//
//	func TestMyComponent(t *testing.T) {
//	    ns, nc := subflowtest.StartEmbeddedNATS(t)
//	    conn, _ := subflow.NewConn(nc, subflow.TestConfig())
//	    defer conn.Close()
//	}
func StartEmbeddedNATS(t testing.TB) (*server.Server, *nats.Conn) {
	t.Helper()

	ns := StartServer(t)
	nc := Connect(t, ns)

	return ns, nc
}

// StartServer starts an embedded NATS server without connecting a client.
func StartServer(t testing.TB) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Use random available port
		Debug:  false,
		Trace:  false,
		NoLog:  true, // Suppress all server logs in tests
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create embedded NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("Embedded NATS server not ready within timeout")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns
}

// Connect opens an additional client connection to ns, closed on cleanup.
//
// Tests use a second connection as an independent publisher so that
// publishing never shares the subscriber's outbound buffer.
func Connect(t testing.TB, ns *server.Server, opts ...nats.Option) *nats.Conn {
	t.Helper()

	base := []nats.Option{
		nats.Timeout(2 * time.Second),
		nats.MaxReconnects(3),
	}

	nc, err := nats.Connect(ns.ClientURL(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}

	t.Cleanup(nc.Close)

	return nc
}
