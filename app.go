package intercept

import "io"

// Environ is the decoded request context handed to an App. Keys follow the
// CGI convention: REQUEST_METHOD, PATH_INFO, QUERY_STRING, SCRIPT_NAME,
// SERVER_NAME, SERVER_PORT, SERVER_PROTOCOL, REMOTE_ADDR, CONTENT_TYPE,
// CONTENT_LENGTH, plus an HTTP_-prefixed entry for every remaining request
// header. The request body is available under "wsgi.input" as an
// [io.Reader].
//
// QUERY_STRING, CONTENT_TYPE, CONTENT_LENGTH and HTTP_COOKIE are absent
// from the map, rather than empty, when the request carries no
// corresponding data.
type Environ map[string]any

// Header is a single response header. Order is preserved on the wire.
type Header struct {
	Name  string
	Value string
}

// WriteFunc appends bytes directly to the response body.
type WriteFunc func(p []byte)

// StartResponse begins the response: it records the status line (e.g.
// "200 OK") and headers immediately, and returns a WriteFunc for direct
// body writes. errInfo is accepted for interface parity with the
// application convention and is unused.
type StartResponse func(status string, headers []Header, errInfo error) WriteFunc

// App is the application under test. It receives the decoded request
// environ, must call start exactly once before producing body data, and
// returns the response body as a lazy chunk source.
type App func(env Environ, start StartResponse) (Body, error)

// AppFactory constructs an App. A fresh App is constructed for every
// intercepted connection, so application state never leaks between
// exchanges.
type AppFactory func() App

// Body is a lazy sequence of response body chunks. Next returns the next
// chunk, [io.EOF] once the sequence is exhausted, or any other error to
// abort the exchange. A Body that also implements [io.Closer] is closed
// after consumption, on all paths.
type Body interface {
	Next() ([]byte, error)
}

// BodyFunc adapts a function to the Body interface.
type BodyFunc func() ([]byte, error)

func (f BodyFunc) Next() ([]byte, error) { return f() }

// BodyChunks returns a Body yielding the given chunks in order.
func BodyChunks(chunks ...[]byte) Body {
	b := chunkBody(chunks)
	return &b
}

type chunkBody [][]byte

func (b *chunkBody) Next() ([]byte, error) {
	if len(*b) == 0 {
		return nil, io.EOF
	}
	chunk := (*b)[0]
	*b = (*b)[1:]
	return chunk, nil
}
