package intercept

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

// HandlerApp adapts an [http.Handler] into an AppFactory, so ordinary Go
// handlers can be mounted behind an intercept without speaking the environ
// convention themselves. The handler's response is buffered and emitted as
// a single body chunk.
func HandlerApp(h http.Handler) AppFactory {
	return func() App {
		return func(env Environ, start StartResponse) (Body, error) {
			req, err := requestFromEnviron(env)
			if err != nil {
				return nil, err
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			res := rec.Result()

			headers := make([]Header, 0, len(res.Header))
			for _, name := range sortedHeaderNames(res.Header) {
				for _, v := range res.Header[name] {
					headers = append(headers, Header{Name: name, Value: v})
				}
			}
			start(res.Status, headers, nil)
			return BodyChunks(rec.Body.Bytes()), nil
		}
	}
}

// requestFromEnviron rebuilds an *http.Request from the decoded environ,
// inverting the header-key transformation applied by MakeEnviron.
func requestFromEnviron(env Environ) (*http.Request, error) {
	method, _ := env["REQUEST_METHOD"].(string)
	script, _ := env["SCRIPT_NAME"].(string)
	path, _ := env["PATH_INFO"].(string)

	target := script + path
	if target == "" {
		target = "/"
	}
	if qs, ok := env["QUERY_STRING"].(string); ok {
		target += "?" + qs
	}

	var body io.Reader
	if in, ok := env["wsgi.input"].(io.Reader); ok {
		body = in
	}

	req := httptest.NewRequest(method, target, body)
	if host, ok := env["SERVER_NAME"].(string); ok {
		port, _ := env["SERVER_PORT"].(string)
		req.Host = net.JoinHostPort(host, port)
	}

	for k, v := range env {
		val, ok := v.(string)
		if !ok {
			continue
		}
		switch {
		case k == "CONTENT_TYPE":
			req.Header.Set("Content-Type", val)
		case k == "CONTENT_LENGTH":
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				req.ContentLength = n
			}
		case strings.HasPrefix(k, "HTTP_"):
			name := textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(strings.TrimPrefix(k, "HTTP_"), "_", "-"))
			req.Header.Set(name, val)
		}
	}

	return req, nil
}

func sortedHeaderNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
