package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fenwicklabs/reactor/engine"
	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/reactor"
)

func startTestEngine(t *testing.T, d *Dispatcher) string {
	t.Helper()
	e, err := engine.New(reactor.Addr{Family: reactor.FamilyIPv4, Host: "127.0.0.1", Port: 0}, engine.Config{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	d.Register(e)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	return e.Addr().String()
}

func dialAndSend(t *testing.T, addr, raw string) *bufio.Reader {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return bufio.NewReader(conn)
}

func TestInitializeCreatesSession(t *testing.T) {
	d := New(Config{})
	d.HandleMethod("initialize", func(sessionID string, params json.RawMessage) (any, error) {
		return map[string]string{"protocolVersion": "2025-06-18"}, nil
	})
	addr := startTestEngine(t, d)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	req := fmt.Sprintf("POST /mcp HTTP/1.1\r\nHost: x\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	br := dialAndSend(t, addr, req)

	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	if head.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", head.StatusCode)
	}
	if head.Headers.Get("Mcp-Session-Id") == "" {
		t.Fatal("expected Mcp-Session-Id header")
	}
	respBody, err := httpwire.ReadResponseBody(br, head.Headers, 1<<20)
	if err != nil {
		t.Fatalf("ReadResponseBody: %v", err)
	}
	if !strings.Contains(string(respBody), `"protocolVersion"`) {
		t.Errorf("body = %s", respBody)
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	d := New(Config{})
	d.HandleMethod("initialize", func(sessionID string, params json.RawMessage) (any, error) {
		return map[string]string{}, nil
	})
	addr := startTestEngine(t, d)

	body := `{"jsonrpc":"2.0","id":2,"method":"nope","params":{}}`
	req := fmt.Sprintf("POST /mcp HTTP/1.1\r\nHost: x\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	br := dialAndSend(t, addr, req)

	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	respBody, _ := httpwire.ReadResponseBody(br, head.Headers, 1<<20)
	if !strings.Contains(string(respBody), "-32601") {
		t.Errorf("body = %s, want -32601", respBody)
	}
}

func TestBadContentTypeReturns400(t *testing.T) {
	d := New(Config{})
	addr := startTestEngine(t, d)

	req := "POST /mcp HTTP/1.1\r\nHost: x\r\nContent-Type: text/plain\r\nContent-Length: 2\r\nConnection: close\r\n\r\n{}"
	br := dialAndSend(t, addr, req)

	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	if head.StatusCode != 400 {
		t.Errorf("status = %d, want 400", head.StatusCode)
	}
}

func TestDeleteDisabledReturns403(t *testing.T) {
	d := New(Config{AllowClientTermination: false})
	addr := startTestEngine(t, d)

	req := "DELETE /mcp HTTP/1.1\r\nHost: x\r\nMcp-Session-Id: whatever\r\nConnection: close\r\n\r\n"
	br := dialAndSend(t, addr, req)

	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	if head.StatusCode != 403 {
		t.Errorf("status = %d, want 403", head.StatusCode)
	}
}

func TestDeleteEnabledTerminatesSession(t *testing.T) {
	d := New(Config{AllowClientTermination: true})
	d.HandleMethod("initialize", func(sessionID string, params json.RawMessage) (any, error) {
		return map[string]string{}, nil
	})
	addr := startTestEngine(t, d)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	req := fmt.Sprintf("POST /mcp HTTP/1.1\r\nHost: x\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	br := dialAndSend(t, addr, req)
	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	sessionID := head.Headers.Get("Mcp-Session-Id")
	httpwire.ReadResponseBody(br, head.Headers, 1<<20)

	delReq := fmt.Sprintf("DELETE /mcp HTTP/1.1\r\nHost: x\r\nMcp-Session-Id: %s\r\nConnection: close\r\n\r\n", sessionID)
	br2 := dialAndSend(t, addr, delReq)
	head2, err := httpwire.ParseResponseHead(br2)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	if head2.StatusCode != 204 {
		t.Errorf("status = %d, want 204", head2.StatusCode)
	}

	if d.sessions.Validate(sessionID) {
		t.Error("expected session to be invalid after termination")
	}
}

func TestGetWithoutSessionReturns400(t *testing.T) {
	d := New(Config{})
	addr := startTestEngine(t, d)

	req := "GET /mcp HTTP/1.1\r\nHost: x\r\nAccept: text/event-stream\r\n\r\n"
	br := dialAndSend(t, addr, req)
	head, err := httpwire.ParseResponseHead(br)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	if head.StatusCode != 400 {
		t.Errorf("status = %d, want 400", head.StatusCode)
	}
}

func TestGetReplaysHistoryThenDeliversLiveEvent(t *testing.T) {
	d := New(Config{Session: DefaultSessionConfig()})
	d.HandleMethod("initialize", func(sessionID string, params json.RawMessage) (any, error) {
		return map[string]string{}, nil
	})
	addr := startTestEngine(t, d)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	req := fmt.Sprintf("POST /mcp HTTP/1.1\r\nHost: x\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	br := dialAndSend(t, addr, req)
	head, _ := httpwire.ParseResponseHead(br)
	sessionID := head.Headers.Get("Mcp-Session-Id")
	httpwire.ReadResponseBody(br, head.Headers, 1<<20)

	d.sessions.AddEvent(sessionID, "0", string(sseEvent("0", "hist-0")))
	d.sessions.AddEvent(sessionID, "1", string(sseEvent("1", "hist-1")))

	getReq := fmt.Sprintf("GET /mcp?session=%s HTTP/1.1\r\nHost: x\r\nAccept: text/event-stream\r\nLast-Event-ID: 0\r\n\r\n", sessionID)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.Write([]byte(getReq))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	br2 := bufio.NewReader(conn)

	head2, err := httpwire.ParseResponseHead(br2)
	if err != nil {
		t.Fatalf("ParseResponseHead: %v", err)
	}
	if head2.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", head2.StatusCode)
	}

	line, err := readChunkLine(br2)
	if err != nil {
		t.Fatalf("read replay chunk: %v", err)
	}
	if !strings.Contains(line, "hist-1") {
		t.Errorf("replay chunk = %q, want to contain hist-1", line)
	}

	time.Sleep(20 * time.Millisecond)
	d.PushEvent(sessionID, "2", "live-1")

	line2, err := readChunkLine(br2)
	if err != nil {
		t.Fatalf("read live chunk: %v", err)
	}
	if !strings.Contains(line2, "live-1") {
		t.Errorf("live chunk = %q, want to contain live-1", line2)
	}
}

// readChunkLine reads one chunked-transfer-encoded frame's payload,
// skipping the size line and trailing CRLF.
func readChunkLine(br *bufio.Reader) (string, error) {
	sizeLine, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	sizeLine = strings.TrimSpace(sizeLine)
	var size int
	if _, err := fmt.Sscanf(sizeLine, "%x", &size); err != nil {
		return "", fmt.Errorf("bad chunk size %q: %w", sizeLine, err)
	}
	buf := make([]byte, size+2)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf[:size]), nil
}
