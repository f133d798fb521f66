package httpwire

import (
	"strings"
	"testing"
)

func TestResponseSerialize(t *testing.T) {
	h := make(Header)
	h.Set("Content-Type", "text/plain")
	resp := NewResponse(200, h, []byte("hello"))
	out := string(resp.Serialize())

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line in: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Errorf("expected Content-Length: 5, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Errorf("expected body after blank line, got %q", out)
	}
}

func TestResponseHead(t *testing.T) {
	resp := NewResponse(204, nil, nil)
	head := string(resp.Head())
	if !strings.HasPrefix(head, "HTTP/1.1 204 No Content\r\n") {
		t.Fatalf("unexpected head: %q", head)
	}
	if !strings.HasSuffix(head, "\r\n\r\n") {
		t.Errorf("expected head to end with blank line, got %q", head)
	}
}

func TestNegotiateKeepAlive(t *testing.T) {
	req := &Request{Protocol: "HTTP/1.1", Headers: make(Header)}
	resp := NewResponse(200, nil, nil)
	if !NegotiateKeepAlive(req, resp) {
		t.Error("expected HTTP/1.1 default keep-alive")
	}
	if resp.Headers.Get("Connection") != "keep-alive" {
		t.Errorf("expected Connection: keep-alive, got %q", resp.Headers.Get("Connection"))
	}
}
