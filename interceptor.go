package intercept

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"cdr.dev/slog"
)

// Dialer establishes a real network connection. It is the fallback
// strategy an [Interceptor] uses for destinations with no registered
// application; both [net.Dialer.DialContext] and [tls.Dialer.DialContext]
// satisfy it.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

// InterceptorOptions configures an [Interceptor]. The zero value is
// usable: the [Default] registry, a plain [net.Dialer] and a [tls.Dialer]
// are substituted for unset fields.
type InterceptorOptions struct {
	// Registry consulted on each connection attempt.
	Registry *Registry
	// Dial is the real-connect strategy for plain connections.
	Dial Dialer
	// DialTLS is the real-connect strategy for TLS connections.
	DialTLS Dialer
	Logger  slog.Logger
	// Metrics, when set, counts intercepted and passthrough connections.
	Metrics *Metrics
}

// Interceptor decides, per connection attempt, whether to substitute a
// fake in-process transport or dial for real. A single
// lookup-and-substitute path serves both the plain and the TLS-labeled
// variants; they differ only in their fallback strategy. Intercepted
// connections never perform a TLS handshake: "secure" is purely nominal
// there.
type Interceptor struct {
	registry *Registry
	dial     Dialer
	dialTLS  Dialer
	logger   slog.Logger
	metrics  *Metrics
}

func NewInterceptor(opts InterceptorOptions) *Interceptor {
	if opts.Registry == nil {
		opts.Registry = Default
	}
	if opts.Dial == nil {
		var d net.Dialer
		opts.Dial = d.DialContext
	}
	if opts.DialTLS == nil {
		var d tls.Dialer
		opts.DialTLS = d.DialContext
	}
	return &Interceptor{
		registry: opts.Registry,
		dial:     opts.Dial,
		dialTLS:  opts.DialTLS,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Intercept returns a fake connection bound to a freshly constructed
// application when addr ("host:port") is registered. ok reports whether
// the address was intercepted; callers fall back to a real connection
// otherwise.
func (i *Interceptor) Intercept(addr string) (conn net.Conn, ok bool) {
	host, port, err := splitAddr(addr)
	if err != nil {
		return nil, false
	}
	factory, scriptName, ok := i.registry.Lookup(host, port)
	if !ok {
		if i.metrics != nil {
			i.metrics.PassthroughConns.WithLabelValues(host).Inc()
		}
		return nil, false
	}

	i.logger.Debug(context.Background(), "intercepting connection",
		slog.F("host", host), slog.F("port", port), slog.F("script_name", scriptName))
	if i.metrics != nil {
		i.metrics.InterceptedConns.WithLabelValues(host).Inc()
	}
	return newSocket(factory(), host, port, scriptName, i.logger, i.metrics), true
}

// Connect dials addr, substituting the fake transport when addr is
// registered.
func (i *Interceptor) Connect(ctx context.Context, network, addr string) (net.Conn, error) {
	if conn, ok := i.Intercept(addr); ok {
		return conn, nil
	}
	return i.dial(ctx, network, addr)
}

// ConnectTLS is Connect for TLS-labeled connections. Intercepted
// connections skip the handshake entirely.
func (i *Interceptor) ConnectTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	if conn, ok := i.Intercept(addr); ok {
		return conn, nil
	}
	return i.dialTLS(ctx, network, addr)
}

// splitAddr splits "host:port", coercing the port to an integer so that
// numeric-looking strings like "080" still match their registration.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("split address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	return host, port, nil
}
