package httpwire

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Response is the serializer-facing counterpart to Request: a status line,
// headers, and (for non-streaming responses) a fully-buffered body.
type Response struct {
	Protocol   string
	StatusCode int
	Headers    Header
	Body       []byte
}

// NewResponse builds a Response with the reason phrase looked up from
// status and a Date header set to the current time in RFC 1123 GMT, the
// format every pack HTTP server relies on net/http to supply for free —
// here it's produced by hand since the engine writes its own status line.
func NewResponse(statusCode int, headers Header, body []byte) *Response {
	if headers == nil {
		headers = make(Header)
	}
	h := make(Header, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	if !h.Has("Date") {
		h.Set("Date", time.Now().UTC().Format(time.RFC1123))
	}
	return &Response{
		Protocol:   "HTTP/1.1",
		StatusCode: statusCode,
		Headers:    h,
		Body:       body,
	}
}

// StatusLine serializes the status line, e.g. "HTTP/1.1 200 OK\r\n".
func (r *Response) StatusLine() string {
	return fmt.Sprintf("%s %d %s\r\n", r.Protocol, r.StatusCode, ReasonPhrase(r.StatusCode))
}

// Serialize renders the full response (status line, headers, blank line,
// body) as wire bytes. Callers that stream a body (SSE, chunked) write the
// head via Head() and the body separately instead.
func (r *Response) Serialize() []byte {
	var b strings.Builder
	b.WriteString(r.StatusLine())
	if !r.Headers.Has("Content-Length") && r.Body != nil {
		r.Headers.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	writeHeaderBlock(&b, r.Headers)
	out := make([]byte, 0, b.Len()+len(r.Body))
	out = append(out, []byte(b.String())...)
	out = append(out, r.Body...)
	return out
}

// Head renders the status line + headers + terminating blank line, without
// a body, for streaming responses (SSE, chunked transfer).
func (r *Response) Head() []byte {
	var b strings.Builder
	b.WriteString(r.StatusLine())
	writeHeaderBlock(&b, r.Headers)
	return []byte(b.String())
}

func writeHeaderBlock(b *strings.Builder, h Header) {
	for k, v := range h {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
}

// NegotiateKeepAlive decides whether the connection should stay open after
// this response, applying the request's negotiated preference and setting
// the corresponding Connection header on resp.
func NegotiateKeepAlive(req *Request, resp *Response) bool {
	keep := KeepAlive(req)
	if keep {
		resp.Headers.Set("Connection", "keep-alive")
	} else {
		resp.Headers.Set("Connection", "close")
	}
	return keep
}
