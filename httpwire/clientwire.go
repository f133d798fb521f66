package httpwire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SerializeRequest renders a client-originated request line, headers, and
// body as wire bytes, the outbound counterpart to ParseRequest.
func SerializeRequest(method, uri string, headers Header, body []byte) []byte {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(uri)
	b.WriteString(" HTTP/1.1\r\n")
	h := headers
	if h == nil {
		h = make(Header)
	}
	if len(body) > 0 && !h.Has("Content-Length") {
		h = cloneHeader(h)
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}
	writeHeaderBlock(&b, h)
	out := make([]byte, 0, b.Len()+len(body))
	out = append(out, []byte(b.String())...)
	out = append(out, body...)
	return out
}

func cloneHeader(h Header) Header {
	out := make(Header, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// ParseResponseHead reads a status line and headers from r (blocking,
// synchronous reads — the client side of this library dials a real TCP
// connection and reads it directly, unlike the server engine's
// non-blocking re-entrant parse). The body is left unread; callers
// dispatch it via Content-Length/chunked/EOF per spec.md §4.G.
func ParseResponseHead(r *bufio.Reader) (*Response, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("httpwire: reading status line: %w", err)
	}
	protocol, status, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	headers := make(Header)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("httpwire: reading header line: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, fmt.Errorf("httpwire: malformed header line %q", line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if existing, ok := headers[CanonicalHeaderKey(name)]; ok {
			headers.Set(name, existing+", "+value)
		} else {
			headers.Set(name, value)
		}
	}

	return &Response{Protocol: protocol, StatusCode: status, Headers: headers}, nil
}

func parseStatusLine(line string) (protocol string, status int, err error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("httpwire: malformed status line %q", line)
	}
	status, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("httpwire: malformed status code %q", parts[1])
	}
	return parts[0], status, nil
}

// ReadResponseBody dispatches the body of a parsed response per spec.md
// §4.G: chunked transfer-encoding, a Content-Length count, or read-until-EOF.
func ReadResponseBody(r *bufio.Reader, headers Header, maxSize int64) ([]byte, error) {
	if IsChunked(headers) {
		return ReadChunkedBody(r, maxSize)
	}
	if cl := headers.Get("Content-Length"); cl != "" {
		n, err := parseContentLength(cl)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("httpwire: reading body: %w", err)
		}
		return buf, nil
	}
	return io.ReadAll(r)
}
