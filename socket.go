package intercept

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"cdr.dev/slog"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// socket emulates the server side of a TCP connection. Bytes written by the
// client accumulate until the first Read, which parses them as an HTTP
// request, runs the application, and synthesizes the response stream that
// subsequent reads serve.
//
// This assumes the client writes the entire request before reading the
// response, and that the connection carries exactly one non-persistent
// exchange. Both hold for the adapters in this module.
type socket struct {
	app        App
	host       string
	port       int
	scriptName string
	logger     slog.Logger
	metrics    *Metrics
	id         uuid.UUID

	inp       bytes.Buffer
	out       *bytes.Reader
	finalized bool
	ferr      error
}

var _ net.Conn = (*socket)(nil)

func newSocket(app App, host string, port int, scriptName string, logger slog.Logger, metrics *Metrics) *socket {
	return &socket{
		app:        app,
		host:       host,
		port:       port,
		scriptName: scriptName,
		logger:     logger,
		metrics:    metrics,
		id:         uuid.New(),
	}
}

// Write saves all client traffic for the finalize step.
func (s *socket) Write(p []byte) (int, error) {
	return s.inp.Write(p)
}

// Read finalizes the exchange on first use, then serves the synthesized
// response bytes.
func (s *socket) Read(p []byte) (int, error) {
	if !s.finalized {
		s.finalized = true
		ctx := context.Background()
		started := time.Now()
		s.ferr = s.finalize()
		if s.metrics != nil {
			s.metrics.ExchangeDuration.WithLabelValues(s.host).Observe(time.Since(started).Seconds())
		}
		if s.ferr != nil {
			s.logger.Warn(ctx, "exchange failed",
				slog.Error(s.ferr),
				slog.F("exchange_id", s.id),
				slog.F("host", s.host),
				slog.F("port", s.port))
		} else {
			s.logger.Debug(ctx, "exchange complete",
				slog.F("exchange_id", s.id),
				slog.F("host", s.host),
				slog.F("port", s.port),
				slog.F("response_bytes", s.out.Len()))
		}
	}
	if s.ferr != nil {
		return 0, s.ferr
	}
	return s.out.Read(p)
}

// finalize runs the decode -> handle -> encode pipeline: it builds the
// environ from the accumulated request bytes, invokes the application, and
// assembles the HTTP/1.0 response stream.
func (s *socket) finalize() error {
	env, err := MakeEnviron(bytes.NewReader(s.inp.Bytes()), s.host, s.port, s.scriptName)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ParseFailures.Inc()
		}
		return fmt.Errorf("parse request: %w", err)
	}

	var (
		out     bytes.Buffer
		pending [][]byte
	)
	start := func(status string, headers []Header, _ error) WriteFunc {
		// Status line and headers are recorded immediately, not deferred.
		out.WriteString("HTTP/1.0 " + status + "\n")
		for _, h := range headers {
			out.WriteString(h.Name + ":" + h.Value + "\n")
		}
		out.WriteByte('\n')
		return func(p []byte) {
			pending = append(pending, p)
		}
	}

	body, err := s.app(env, start)
	if err != nil {
		return fmt.Errorf("application: %w", err)
	}
	if err := consumeBody(&out, body, &pending); err != nil {
		return err
	}

	s.out = bytes.NewReader(out.Bytes())
	return nil
}

// consumeBody drains the application's chunk sequence into out. The first
// chunk must be pulled before the pending direct writes are flushed:
// producing it may itself trigger writes, and those land ahead of it in
// the stream. An empty first chunk ends the body. The source's Close, when
// present, runs on every path.
func consumeBody(out *bytes.Buffer, body Body, pending *[][]byte) (err error) {
	defer func() {
		c, ok := body.(io.Closer)
		if !ok {
			return
		}
		if cerr := c.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close response body: %w", cerr)).ErrorOrNil()
		}
	}()

	first, nerr := body.Next()
	for _, p := range *pending {
		out.Write(p)
	}
	if nerr != nil {
		if errors.Is(nerr, io.EOF) {
			return nil
		}
		return fmt.Errorf("read response chunk: %w", nerr)
	}
	if len(first) == 0 {
		return nil
	}
	out.Write(first)

	for {
		chunk, nerr := body.Next()
		if nerr != nil {
			if errors.Is(nerr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read response chunk: %w", nerr)
		}
		out.Write(chunk)
	}
}

// Close implements net.Conn. The socket holds no OS resource.
func (s *socket) Close() error { return nil }

func (s *socket) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func (s *socket) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: s.port}
}

// Deadlines are accepted and ignored so clients that insist on configuring
// timeouts keep working against the fake socket.
func (s *socket) SetDeadline(time.Time) error      { return nil }
func (s *socket) SetReadDeadline(time.Time) error  { return nil }
func (s *socket) SetWriteDeadline(time.Time) error { return nil }
