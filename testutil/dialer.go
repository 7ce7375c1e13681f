package testutil

import (
	"context"
	"net"
	"sync/atomic"
)

// StubDialer counts dial attempts and returns either the configured error
// or one end of a closed in-memory pipe, so tests can assert that an
// interceptor fell through to real networking without actually reaching
// the network.
type StubDialer struct {
	// Err, when set, is returned from every dial attempt.
	Err error

	calls atomic.Int32
}

// DialContext satisfies the intercept.Dialer strategy.
func (d *StubDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	d.calls.Add(1)
	if d.Err != nil {
		return nil, d.Err
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

// Calls returns the number of dial attempts observed.
func (d *StubDialer) Calls() int {
	return int(d.calls.Load())
}
