// Package intercept installs an in-process application in place of a real
// host/port for testing.
//
// Testing an HTTP-speaking application normally involves starting a server
// on a local port and pointing test code at that address. This package
// instead intercepts connections to specific host/port combinations and
// redirects them into an application running inside the test process,
// emulating the server side of the exchange on a fake socket. Connections
// to unregistered host/port pairs are dialed for real.
//
// Register an application factory for an address, wire an Interceptor into
// your HTTP client (see the nethttp subpackage), and issue requests as
// usual:
//
//	intercept.Register("app.test", 80, testutil.SuccessApp, "")
//	defer intercept.Unregister("app.test", 80)
//
//	client := nethttp.Client(intercept.NewInterceptor(intercept.InterceptorOptions{}))
//	resp, err := client.Get("http://app.test/")
//
// Every intercepted connection constructs a fresh application from the
// registered factory, parses the bytes written by the client into a
// CGI-style environ, invokes the application, and synthesizes an HTTP/1.0
// response stream for the client's own parser to consume. The client code
// under test runs its full request-encoding and response-decoding path and
// cannot tell the difference.
//
// The package assumes single-threaded test usage: the registry is not
// synchronized, and each fake connection carries exactly one
// non-persistent request/response exchange.
package intercept
