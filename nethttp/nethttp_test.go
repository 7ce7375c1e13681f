package nethttp_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"cdr.dev/slog/sloggers/slogtest"
	intercept "github.com/concordusapps/wsgi-intercept"
	"github.com/concordusapps/wsgi-intercept/nethttp"
	"github.com/concordusapps/wsgi-intercept/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newInterceptor(t *testing.T, registry *intercept.Registry) *intercept.Interceptor {
	t.Helper()
	dialer := &testutil.StubDialer{}
	return intercept.NewInterceptor(intercept.InterceptorOptions{
		Registry: registry,
		Dial:     dialer.DialContext,
		DialTLS:  dialer.DialContext,
		Logger:   slogtest.Make(t, nil),
	})
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	registry := intercept.NewRegistry()
	registry.Register("example.test", 80, testutil.SuccessApp, "")
	client := nethttp.Client(newInterceptor(t, registry))

	resp, err := client.Get("http://example.test/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testutil.SuccessBody, string(body))
}

func TestRoundTripHTTPS(t *testing.T) {
	t.Parallel()

	// The https scheme maps to port 443 and is intercepted without any
	// handshake.
	registry := intercept.NewRegistry()
	registry.Register("secure.test", 443, testutil.SuccessApp, "")
	client := nethttp.Client(newInterceptor(t, registry))

	resp, err := client.Get("https://secure.test/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testutil.SuccessBody, string(body))
}

func TestRoundTripExplicitPort(t *testing.T) {
	t.Parallel()

	registry := intercept.NewRegistry()
	registry.Register("example.test", 8080, testutil.SuccessApp, "")
	client := nethttp.Client(newInterceptor(t, registry))

	resp, err := client.Get("http://example.test:8080/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoundTripDecodedRequest(t *testing.T) {
	t.Parallel()

	var envs []intercept.Environ
	registry := intercept.NewRegistry()
	registry.Register("example.test", 80, testutil.RecordingApp(&envs, "200 OK", []byte("ok")), "/app")
	client := nethttp.Client(newInterceptor(t, registry))

	resp, err := client.Post("http://example.test/app/foo?x=1", "text/plain", strings.NewReader("ping"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Len(t, envs, 1)
	env := envs[0]

	// Mount path stripped, query preserved.
	assert.Equal(t, "/foo", env["PATH_INFO"])
	assert.Equal(t, "x=1", env["QUERY_STRING"])
	assert.Equal(t, "/app", env["SCRIPT_NAME"])

	assert.Equal(t, "POST", env["REQUEST_METHOD"])
	assert.Equal(t, "text/plain", env["CONTENT_TYPE"])
	assert.Equal(t, "4", env["CONTENT_LENGTH"])
	assert.Equal(t, "example.test", env["SERVER_NAME"])
	assert.Equal(t, "80", env["SERVER_PORT"])

	body, err := io.ReadAll(env["wsgi.input"].(io.Reader))
	require.NoError(t, err)
	assert.Equal(t, "ping", string(body))
}

type stubRoundTripper struct {
	calls int
	resp  *http.Response
}

func (s *stubRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	return s.resp, nil
}

func TestRoundTripFallback(t *testing.T) {
	t.Parallel()

	fallback := &stubRoundTripper{resp: &http.Response{
		StatusCode: http.StatusTeapot,
		Body:       io.NopCloser(strings.NewReader("from upstream")),
	}}
	client := &http.Client{Transport: &nethttp.RoundTripper{
		Interceptor: newInterceptor(t, intercept.NewRegistry()),
		Fallback:    fallback,
	}}

	resp, err := client.Get("http://unregistered.test/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	// Exactly one delegation to the real transport.
	assert.Equal(t, 1, fallback.calls)
}

// Not parallel: swaps the process-wide http.DefaultTransport.
func TestInstallUninstall(t *testing.T) {
	original := http.DefaultTransport

	registry := intercept.NewRegistry()
	registry.Register("installed.test", 80, testutil.SuccessApp, "")
	nethttp.Install(newInterceptor(t, registry))
	t.Cleanup(nethttp.Uninstall)

	require.NotEqual(t, original, http.DefaultTransport)

	// Double install keeps the first installation.
	installed := http.DefaultTransport
	nethttp.Install(newInterceptor(t, registry))
	require.Equal(t, installed, http.DefaultTransport)

	resp, err := http.Get("http://installed.test/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testutil.SuccessBody, string(body))

	nethttp.Uninstall()
	require.Equal(t, original, http.DefaultTransport)
	// Uninstall without a matching Install is a no-op.
	nethttp.Uninstall()
	require.Equal(t, original, http.DefaultTransport)
}
