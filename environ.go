package intercept

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MakeEnviron parses input as the raw bytes of a single HTTP request
// received on host:port and builds the environ handed to the application:
// request line, headers up to a blank line, then body.
//
// scriptName is set as SCRIPT_NAME and stripped from the front of the
// request path. If the path does not start with scriptName, SCRIPT_NAME is
// set to "" for this request instead of rejecting it; serving something
// beats failing here, at the cost of a minor inconsistency.
//
// Parsing is deliberately strict: the input is produced by an HTTP client
// library, never by a human, so a malformed request line or header is a
// bug worth surfacing rather than recovering from.
func MakeEnviron(input io.Reader, host string, port int, scriptName string) (Environ, error) {
	br := bufio.NewReader(input)

	methodLine, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("read request line: %w", err)
	}
	parts := strings.Split(methodLine, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed request line %q: want 3 space-separated fields, got %d", methodLine, len(parts))
	}
	method, rawURL, proto := parts[0], parts[1], parts[2]

	env := Environ{}
	var (
		contentType   string
		contentLength string
		cookies       []string
	)

	// Headers up to a blank line or the end of input. Special-cased
	// headers get dedicated fields; the rest land in the environ under
	// transformed HTTP_ keys.
	for {
		line, err := readLine(br)
		if err != nil || strings.TrimSpace(line) == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q: missing colon", line)
		}
		v = strings.TrimLeft(v, " \t")

		switch strings.ToLower(k) {
		case "content-type":
			contentType = v
		case "content-length":
			contentLength = v
		case "cookie", "cookie2":
			cookies = append(cookies, v)
		default:
			env["HTTP_"+strings.ReplaceAll(strings.ToUpper(k), "-", "_")] = v
		}
	}

	if !strings.HasPrefix(rawURL, scriptName) {
		// Mount-point mismatch: drop the script name for this request
		// rather than rejecting it.
		scriptName = ""
	} else {
		rawURL = rawURL[len(scriptName):]
	}
	pathInfo, queryString, _ := strings.Cut(rawURL, "?")

	// Whatever remains is the body. Rewrap it so the application sees a
	// fresh reader with no parsing state behind it.
	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	for k, v := range map[string]any{
		"wsgi.version":      [2]int{1, 0},
		"wsgi.url_scheme":   "http",
		"wsgi.input":        bytes.NewReader(rest),
		"wsgi.errors":       &bytes.Buffer{},
		"wsgi.multithread":  false,
		"wsgi.multiprocess": false,
		"wsgi.run_once":     false,

		"PATH_INFO":       pathInfo,
		"REMOTE_ADDR":     "127.0.0.1",
		"REQUEST_METHOD":  method,
		"SCRIPT_NAME":     scriptName,
		"SERVER_NAME":     host,
		"SERVER_PORT":     strconv.Itoa(port),
		"SERVER_PROTOCOL": proto,
	} {
		env[k] = v
	}

	// Optional fields are omitted entirely rather than set empty.
	if queryString != "" {
		env["QUERY_STRING"] = queryString
	}
	if contentType != "" {
		env["CONTENT_TYPE"] = contentType
	}
	if contentLength != "" {
		env["CONTENT_LENGTH"] = contentLength
	}
	if len(cookies) > 0 {
		env["HTTP_COOKIE"] = strings.Join(cookies, "; ")
	}

	return env, nil
}

// readLine reads up to the next newline and strips the line ending. A final
// line without a terminator is returned as-is; the error is only surfaced
// when no bytes were read at all.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
