// Package nethttp wires an [intercept.Interceptor] into net/http clients.
//
// The RoundTripper sits where http.Transport normally would: requests for
// registered destinations are served by the in-process application over a
// fake socket, everything else is delegated to a real transport. Install
// swaps http.DefaultTransport so that clients which were never told about
// interception (http.Get and friends) are redirected too.
package nethttp

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/url"

	intercept "github.com/concordusapps/wsgi-intercept"
)

// RoundTripper is an [http.RoundTripper] that redirects registered
// destinations into in-process applications.
type RoundTripper struct {
	Interceptor *intercept.Interceptor
	// Fallback handles requests for unregistered destinations. Defaults
	// to http.DefaultTransport.
	Fallback http.RoundTripper
}

var _ http.RoundTripper = (*RoundTripper)(nil)

// RoundTrip implements http.RoundTripper. For intercepted destinations the
// request is serialized with [http.Request.Write] and the synthesized
// response parsed with [http.ReadResponse], so the standard library's own
// wire encoding and parsing run on both sides of the fake socket. An
// https URL is intercepted the same way; no handshake takes place.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	conn, ok := t.Interceptor.Intercept(canonicalAddr(req.URL))
	if !ok {
		fallback := t.Fallback
		if fallback == nil {
			fallback = http.DefaultTransport
		}
		return fallback.RoundTrip(req)
	}
	defer conn.Close()

	if err := req.Write(conn); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Client returns an http.Client whose transport intercepts registered
// destinations.
func Client(i *intercept.Interceptor) *http.Client {
	return &http.Client{Transport: &RoundTripper{Interceptor: i}}
}

var originalDefaultTransport http.RoundTripper

// Install replaces http.DefaultTransport so every client relying on it is
// intercepted; unregistered destinations still reach the original
// transport. Calling Install again without an intervening Uninstall is a
// no-op.
func Install(i *intercept.Interceptor) {
	if originalDefaultTransport != nil {
		return
	}
	originalDefaultTransport = http.DefaultTransport
	http.DefaultTransport = &RoundTripper{Interceptor: i, Fallback: originalDefaultTransport}
}

// Uninstall restores the transport that Install replaced.
func Uninstall() {
	if originalDefaultTransport == nil {
		return
	}
	http.DefaultTransport = originalDefaultTransport
	originalDefaultTransport = nil
}

// canonicalAddr returns url's host:port, applying the scheme's default
// port when the URL does not carry one.
func canonicalAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}
