package engine

import (
	"strconv"
	"time"

	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/reactor"
)

// TerminateSession is the optional hook the engine calls for centrally
// handled DELETE requests that carry the configured session header, per
// spec.md §4.F. A nil hook means DELETE falls through to the route table
// like any other method.
type TerminateSession func(sessionID string) bool

// SetSessionHooks configures the engine's centralized DELETE-session
// handling: requests carrying headerName are intercepted before the route
// table and answered directly from terminate's result.
func (e *Engine) SetSessionHooks(headerName string, terminate TerminateSession) {
	e.sessionHeaderName = headerName
	e.terminateSession = terminate
}

// exchange is the concrete ResponseWriter passed to handlers.
type exchange struct {
	status int
	header httpwire.Header
	body   []byte

	streaming   bool
	contentType string
	pull        func() ([]byte, bool)
	wake        <-chan struct{}
}

func newExchange() *exchange {
	return &exchange{status: 200, header: make(httpwire.Header)}
}

func (w *exchange) SetStatus(code int)      { w.status = code }
func (w *exchange) Header() httpwire.Header { return w.header }

func (w *exchange) Write(p []byte) (int, error) {
	w.body = append(w.body, p...)
	return len(p), nil
}

func (w *exchange) Stream(contentType string, pull func() ([]byte, bool), wake <-chan struct{}) {
	w.streaming = true
	w.contentType = contentType
	w.pull = pull
	w.wake = wake
	w.body = nil
}

// dispatch runs method pre-processing then the route table against c's
// parsed request, synchronously on the reactor thread or offloaded to the
// worker pool, per spec.md §4.F.
func (e *Engine) dispatch(s *reactor.Socket, c *connection) {
	method := c.req.Method
	start := time.Now()
	run := func() {
		w := e.runRequest(c.req)
		e.cfg.Metrics.ObserveRequest(method, strconv.Itoa(w.status), time.Since(start).Seconds())
		e.finishExchange(s, c, w)
	}
	if e.pool != nil {
		c.state = StateProcessingAsync
		e.pool.Submit(run)
		return
	}
	run()
}

// runRequest executes method pre-processing (OPTIONS/DELETE centrally,
// HEAD aliasing to GET) and the route table, returning the populated
// exchange.
func (e *Engine) runRequest(req *httpwire.Request) *exchange {
	w := newExchange()

	if req.Method == "OPTIONS" {
		if e.cfg.CORS.Enabled {
			e.cfg.CORS.applyHeaders(w.header, true)
			w.status = 204
		} else {
			w.status = 405
		}
		return w
	}

	if req.Method == "DELETE" && e.terminateSession != nil {
		id := req.Headers.Get(e.sessionHeaderName)
		if id == "" {
			w.status = 400
		} else if e.terminateSession(id) {
			w.status = 204
		} else {
			w.status = 404
		}
		e.cfg.CORS.applyHeaders(w.header, false)
		return w
	}

	dispatchReq := req
	if req.Method == "HEAD" {
		aliased := *req
		aliased.Method = "GET"
		dispatchReq = &aliased
	}

	status := e.runHandlers(dispatchReq, w)
	if status == -1 {
		w.status = -1 // signals finishExchange to close without responding
	} else if w.status == 200 {
		w.status = status
	}

	// A HEAD aliased to GET may have landed on a streaming route (e.g. an
	// SSE subscription); HEAD never gets a body, streaming or otherwise,
	// so reject it instead of opening a live stream the client can't
	// consume, per spec.md §9's streaming-HEAD resolution.
	if req.Method == "HEAD" && w.streaming {
		w.streaming = false
		w.pull = nil
		w.wake = nil
		w.body = nil
		w.status = 405
	}

	e.cfg.CORS.applyHeaders(w.header, false)

	if req.Method == "HEAD" && !w.streaming {
		w.header.Set("Content-Length", contentLength(w.body))
		w.body = nil
	}
	return w
}

func (e *Engine) runHandlers(req *httpwire.Request, w *exchange) int {
	e.routeMu.RLock()
	routes := e.routes
	e.routeMu.RUnlock()

	for _, r := range routes {
		if !isPrefix(r.Prefix, req.URI) {
			continue
		}
		res := r.Handler(req, w)
		switch res.Kind {
		case KindFallThrough:
			continue
		case KindClose:
			return -1
		case KindStatus:
			return res.Status
		}
	}
	return 404
}

func isPrefix(prefix, uri string) bool {
	if len(prefix) > len(uri) {
		return false
	}
	return uri[:len(prefix)] == prefix
}

func contentLength(body []byte) string {
	return strconv.Itoa(len(body))
}
