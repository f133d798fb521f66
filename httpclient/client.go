// Package httpclient implements the synchronous HTTP/1.1 client of
// spec.md §4.G: dial, write request, read status line + headers, dispatch
// the body by Transfer-Encoding/Content-Length/EOF, and optionally follow
// redirects — built directly on the reactor module's own httpwire codec
// rather than net/http, so the client and server share one wire
// implementation.
package httpclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/fenwicklabs/reactor/httpwire"
)

// Request is a client-originated HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers httpwire.Header
	Body    []byte
}

// Response is a fully-buffered client response (body dispatched per
// spec.md §4.G; streaming responses are consumed via sse.Reader instead,
// see sse_client.go).
type Response struct {
	Protocol   string
	StatusCode int
	Headers    httpwire.Header
	Body       []byte
}

// Config bundles Client construction-time settings. Tags validate with
// config.Validate.
type Config struct {
	UserAgent      string        `validate:"omitempty"`
	MaxRedirects   int           `validate:"gte=0"` // 0 = use the spec default of 10
	ConnectTimeout time.Duration `validate:"gte=0"`
	ReadTimeout    time.Duration `validate:"gte=0"`
	Limits         httpwire.Limits
}

// Client issues synchronous HTTP/1.1 requests over freshly dialed TCP
// connections — no connection pooling, matching spec.md §4.G's literal
// per-call dial/write/read description.
type Client struct {
	cfg Config
}

// New constructs a Client, filling in spec.md §6 defaults for zero fields.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "reactor-httpclient/1.0"
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.Limits == (httpwire.Limits{}) {
		cfg.Limits = httpwire.DefaultLimits()
	}
	return &Client{cfg: cfg}
}

// Do sends req and returns the fully-buffered response, following
// redirects up to cfg.MaxRedirects. Per the Open Question decision in
// DESIGN.md, a redirect response whose Content-Type is text/event-stream
// is returned as-is rather than followed, since following would discard
// an already-open stream.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	current := req
	for redirects := 0; ; redirects++ {
		resp, err := c.do(ctx, current)
		if err != nil {
			return nil, err
		}
		if !isRedirect(resp.StatusCode) || resp.Headers.Get("Content-Type") == "text/event-stream" {
			return resp, nil
		}
		loc := resp.Headers.Get("Location")
		if loc == "" || redirects >= c.cfg.MaxRedirects {
			return resp, nil
		}
		next, err := resolveRedirect(current.URL, loc)
		if err != nil {
			return resp, nil
		}
		current = &Request{Method: redirectMethod(current.Method, resp.StatusCode), URL: next, Headers: current.Headers}
	}
}

func isRedirect(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

// redirectMethod mirrors the common browser/curl convention: 303 always
// downgrades to GET; 301/302 downgrade POST to GET (legacy behavior most
// clients still follow); 307/308 preserve the method.
func redirectMethod(method string, status int) string {
	if status == 303 {
		return "GET"
	}
	if (status == 301 || status == 302) && method == "POST" {
		return "GET"
	}
	return method
}

func resolveRedirect(base, loc string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(loc)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid URL %q: %w", req.URL, err)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("httpclient: dial %s: %w", req.URL, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	} else if c.cfg.ReadTimeout > 0 {
		conn.SetDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}

	headers := defaultHeaders(req.Headers, host, port, c.cfg.UserAgent)
	requestPath := u.RequestURI()
	if _, err := conn.Write(httpwire.SerializeRequest(req.Method, requestPath, headers, req.Body)); err != nil {
		return nil, fmt.Errorf("httpclient: write request: %w", err)
	}

	br := bufio.NewReader(conn)
	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		return nil, err
	}
	if req.Method == "HEAD" || head.StatusCode == 204 || head.StatusCode == 304 {
		return &Response{Protocol: head.Protocol, StatusCode: head.StatusCode, Headers: head.Headers}, nil
	}
	body, err := httpwire.ReadResponseBody(br, head.Headers, c.cfg.Limits.MaxRequestContentSize)
	if err != nil {
		return nil, err
	}
	return &Response{Protocol: head.Protocol, StatusCode: head.StatusCode, Headers: head.Headers, Body: body}, nil
}

func defaultHeaders(h httpwire.Header, host, port, userAgent string) httpwire.Header {
	out := make(httpwire.Header, len(h)+4)
	for k, v := range h {
		out[k] = v
	}
	if !out.Has("Host") {
		hostHeader := host
		if port != "" && port != "80" && port != "443" {
			hostHeader = host + ":" + port
		}
		out.Set("Host", hostHeader)
	}
	if !out.Has("User-Agent") {
		out.Set("User-Agent", userAgent)
	}
	if !out.Has("Accept") {
		out.Set("Accept", "*/*")
	}
	if !out.Has("Connection") {
		out.Set("Connection", "close")
	}
	return out
}

