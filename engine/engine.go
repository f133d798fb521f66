// Package engine implements the HTTP/1.1 connection state machine that
// drives spec.md §4.F: it binds reactor.Sink to accepted sockets, parses
// requests via httpwire, dispatches them through an ordered handler table,
// and serializes responses — optionally offloading handler execution to a
// fixed worker pool while the reactor thread continues to own all I/O.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/reactor"
	"github.com/fenwicklabs/reactor/sse"
	"github.com/fenwicklabs/reactor/telemetry"
)

// Config bundles the engine's construction-time settings. Tags follow
// spec.md §6's enumerated surface; validate with config.Validate.
type Config struct {
	Limits         httpwire.Limits
	CORS           CORSConfig
	ThreadPoolSize int `validate:"gte=0"`
	Logger         *slog.Logger    `validate:"-"`
	// Metrics, if set, receives per-connection and per-request Prometheus
	// observations. A nil Metrics (the default) costs nothing.
	Metrics *telemetry.Metrics `validate:"-"`
}

// Engine owns a listening socket, a reactor, and the connection table. It
// implements reactor.Sink.
type Engine struct {
	cfg     Config
	react   *reactor.Reactor
	sock    *reactor.Socket
	logger  *slog.Logger
	pool    *workerPool

	routeMu sync.RWMutex
	routes  []Route

	sessionHeaderName string
	terminateSession  TerminateSession

	mu    sync.Mutex
	conns map[*reactor.Socket]*connection
}

// New creates an Engine bound to addr. Call Run to start serving.
func New(addr reactor.Addr, cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Limits == (httpwire.Limits{}) {
		cfg.Limits = httpwire.DefaultLimits()
	}

	sock := reactor.NewSocket(addr.Family)
	sock.SetNonBlocking(true)
	sock.SetReuseAddr(true)
	if err := sock.Bind(addr); err != nil {
		return nil, err
	}
	if err := sock.Listen(128); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		sock:   sock,
		logger: cfg.Logger,
		conns:  make(map[*reactor.Socket]*connection),
	}
	if cfg.ThreadPoolSize > 0 {
		e.pool = newWorkerPool(cfg.ThreadPoolSize)
	}
	e.react = reactor.New(e, cfg.Logger)
	return e, nil
}

// Handle registers a route. Routes are matched in registration order; per
// spec.md §4.F, mutating the handler list after Run has started is not
// safe for concurrent use.
func (e *Engine) Handle(prefix string, h Handler) {
	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	e.routes = append(e.routes, Route{Prefix: prefix, Handler: h})
}

// Run starts accepting connections and blocks until ctx is canceled or
// Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.react.Register(e.sock, reactor.InterestAcceptable)
	e.react.Run(ctx)
	if e.pool != nil {
		e.pool.Close()
	}
	e.mu.Lock()
	open := make([]*reactor.Socket, 0, len(e.conns))
	for s := range e.conns {
		open = append(open, s)
	}
	e.mu.Unlock()
	for _, s := range open {
		e.closeConn(s, nil)
	}
}

// Stop halts the reactor loop; in-flight connections are closed as Run
// returns.
func (e *Engine) Stop() {
	e.react.Stop()
}

// Addr returns the listening socket's local address, e.g. for a caller
// that bound port 0 and needs to know which port was actually assigned.
func (e *Engine) Addr() reactor.Addr {
	return e.sock.LocalAddr()
}

// OnAcceptable implements reactor.Sink: a new connection arrived on the
// listening socket.
func (e *Engine) OnAcceptable(s *reactor.Socket) {
	c := newConnection(s)
	e.mu.Lock()
	e.conns[s] = c
	e.mu.Unlock()
	e.cfg.Metrics.ConnOpened()
	e.react.Register(s, reactor.InterestReadable)
}

// OnReadable implements reactor.Sink: bytes are available on s.
func (e *Engine) OnReadable(s *reactor.Socket) {
	e.mu.Lock()
	c, ok := e.conns[s]
	e.mu.Unlock()
	if !ok {
		return
	}

	buf := make([]byte, 64*1024)
	n, kind := s.Recv(buf)
	if n > 0 {
		if err := c.feed(buf[:n], e.cfg.Limits); err != nil {
			e.respondError(s, c, err)
			return
		}
	}
	if kind == reactor.KindClosed || kind == reactor.KindReset {
		e.closeConn(s, nil)
		return
	}

	if c.req == nil {
		return // still accumulating header bytes; stay registered Readable
	}

	if c.req.ExpectUnsupported {
		e.respondStatus(s, c, 417)
		return
	}
	if c.req.Expect100Continue {
		s.Send(httpwire.NewResponse(100, nil, nil).Head())
		c.req.Expect100Continue = false
	}

	ready, err := c.bodyReady(e.cfg.Limits)
	if err != nil {
		e.respondError(s, c, err)
		return
	}
	if !ready {
		return
	}

	c.state = StateProcessing
	c.keepAlive = httpwire.KeepAlive(c.req)
	e.dispatch(s, c)
}

// OnWritable implements reactor.Sink: either draining a buffered response
// (possibly built by a worker-pool task) or pumping the next chunk of a
// streaming response, per spec.md §4.F's back-pressure rule: send returns
// bytes accepted, a partial write keeps the remainder buffered and
// re-arms Writable.
func (e *Engine) OnWritable(s *reactor.Socket) {
	e.mu.Lock()
	c, ok := e.conns[s]
	e.mu.Unlock()
	if !ok {
		return
	}

	if c.pendingSend() {
		n, kind := s.Send(c.sendBuf[c.sendOffset:])
		c.sendOffset += n
		if kind == reactor.KindClosed || kind == reactor.KindReset {
			e.closeConn(s, nil)
			return
		}
		if c.pendingSend() {
			e.react.Register(s, reactor.InterestWritable)
			return
		}
	}

	if c.streaming {
		c.state = StateStreamingChunked
		e.pumpStream(s, c)
		return
	}
	e.afterSend(s, c)
}

// pumpStream calls stream_pull once (spec.md §4.F: "the engine calls
// stream_pull once per write opportunity"), frames the result as a chunk,
// and sends it. A done result frames the terminal zero-length chunk and
// ends the stream once it drains. A not-done, empty result means the
// stream has nothing to send right now (a long-lived MCP GET SSE
// subscription waiting on the next event) — the connection parks until
// streamWake fires instead of spinning Writable.
func (e *Engine) pumpStream(s *reactor.Socket, c *connection) {
	if c.streamTerminal {
		e.afterSend(s, c)
		return
	}
	c.waitingOnWake = false

	data, done := c.streamPull()
	if len(data) == 0 {
		if !done {
			e.armStreamWake(s, c)
			return
		}
		c.sendBuf = httpwire.ChunkFrame(nil)
		c.streamTerminal = true
	} else {
		c.sendBuf = httpwire.ChunkFrame(data)
		c.streamTerminal = done
	}
	c.sendOffset = 0

	n, kind := s.Send(c.sendBuf)
	c.sendOffset = n
	if kind == reactor.KindClosed || kind == reactor.KindReset {
		e.closeConn(s, nil)
		return
	}
	if c.pendingSend() {
		e.react.Register(s, reactor.InterestWritable)
		return
	}
	if c.streamTerminal {
		e.afterSend(s, c)
		return
	}
	e.react.Register(s, reactor.InterestWritable)
}

// armStreamWake parks a streaming connection that has nothing to send: a
// one-shot goroutine waits on streamWake (or closeSig, if the connection
// is torn down first) and re-registers Writable when it fires. A stream
// with no wake channel has no way to be woken, so it ends immediately —
// this preserves the original contract for callers that never adopted
// wake.
func (e *Engine) armStreamWake(s *reactor.Socket, c *connection) {
	if c.streamWake == nil {
		c.sendBuf = httpwire.ChunkFrame(nil)
		c.sendOffset = 0
		c.streamTerminal = true
		e.react.Register(s, reactor.InterestWritable)
		return
	}
	if c.waitingOnWake {
		return
	}
	c.waitingOnWake = true
	wake := c.streamWake
	closeSig := c.closeSig
	go func() {
		select {
		case <-wake:
			e.react.Register(s, reactor.InterestWritable)
		case <-closeSig:
		}
	}()
}

// afterSend applies the keep-alive decision once a response (streaming or
// not) has fully drained: back to Idle and re-armed Readable, or Closing.
func (e *Engine) afterSend(s *reactor.Socket, c *connection) {
	if c.keepAlive {
		c.reset()
		e.react.Register(s, reactor.InterestReadable)
	} else {
		e.closeConn(s, nil)
	}
}

// OnClosed implements reactor.Sink.
func (e *Engine) OnClosed(s *reactor.Socket, err error) {
	e.closeConn(s, err)
}

func (e *Engine) closeConn(s *reactor.Socket, _ error) {
	e.react.Unregister(s)
	e.mu.Lock()
	c, ok := e.conns[s]
	delete(e.conns, s)
	e.mu.Unlock()
	if ok {
		c.signalClosed()
		e.cfg.Metrics.ConnClosed()
	}
	s.Close()
}

// respondError maps a parse/limit error to its status per spec.md §7 and
// sends a best-effort response before closing.
func (e *Engine) respondError(s *reactor.Socket, c *connection, err error) {
	status := httpwire.StatusFor(err)
	e.respondStatus(s, c, status)
}

func (e *Engine) respondStatus(s *reactor.Socket, c *connection, status int) {
	resp := httpwire.NewResponse(status, nil, nil)
	resp.Headers.Set("Connection", "close")
	s.Send(resp.Serialize())
	e.closeConn(s, nil)
}

// finishExchange takes the ResponseWriter a handler populated (possibly on
// a worker-pool goroutine) and queues its serialized form as the
// connection's send buffer, then re-arms the socket for Writable — the
// reactor thread performs the actual write per spec.md §4.F's
// thread-pool-offload contract. Re-checks that the connection entry is
// still live, since a worker task may finish after the reactor has torn
// the connection down.
func (e *Engine) finishExchange(s *reactor.Socket, c *connection, w *exchange) {
	e.mu.Lock()
	current, stillOpen := e.conns[s]
	e.mu.Unlock()
	if !stillOpen || current != c {
		return
	}

	if w.status == -1 {
		e.closeConn(s, nil)
		return
	}

	if w.streaming {
		head := httpwire.NewResponse(w.status, w.header, nil)
		head.Headers.Set("Transfer-Encoding", "chunked")
		head.Headers.Del("Content-Length")
		if w.contentType != "" {
			head.Headers.Set("Content-Type", w.contentType)
		}
		if w.contentType == "text/event-stream" {
			for k, v := range sse.Headers() {
				head.Headers.Set(k, v)
			}
			c.keepAlive = true
		}
		head.Headers.Set("Connection", "keep-alive")
		c.streaming = true
		c.streamPull = w.pull
		c.streamWake = w.wake
		c.sendBuf = head.Head()
		c.sendOffset = 0
		c.state = StateSendingHeaders
	} else {
		resp := httpwire.NewResponse(w.status, w.header, w.body)
		c.keepAlive = httpwire.NegotiateKeepAlive(c.req, resp)
		c.sendBuf = resp.Serialize()
		c.sendOffset = 0
		c.state = StateSendingHeaders
	}

	e.react.Register(s, reactor.InterestWritable)
}
