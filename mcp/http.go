package mcp

import (
	"context"
	"strings"

	"github.com/fenwicklabs/reactor/engine"
	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/jsonrpc"
)

// handlePost implements spec.md §4.I's POST branch.
func (d *Dispatcher) handlePost(req *httpwire.Request, w engine.ResponseWriter) {
	auth, ok := d.authenticate(req, w)
	if !ok {
		return
	}

	if !strings.Contains(req.Headers.Get("Content-Type"), "application/json") {
		d.writeRPCError(w, 400, jsonrpc.ID{}, jsonrpc.NewInvalidRequest("Content-Type must be application/json"))
		return
	}

	msg, perr := jsonrpc.Parse(req.Body)
	if perr != nil {
		d.writeRPCError(w, 400, jsonrpc.ID{}, perr)
		return
	}
	call, isReq := msg.(*jsonrpc.Request)
	if !isReq {
		d.writeRPCError(w, 400, jsonrpc.ID{}, jsonrpc.NewInvalidRequest("POST body must be a request or notification"))
		return
	}

	if call.Method == "initialize" {
		d.handleInitialize(req, w, call)
		return
	}

	sessionID := req.Headers.Get(d.cfg.sessionHeader())
	if sessionID != "" && !d.sessions.Validate(sessionID) {
		d.writeRPCError(w, 404, call.ID, jsonrpc.NewInvalidSession())
		return
	}

	if d.cfg.Auth.PostAuth != nil && auth != nil {
		d.cfg.Auth.PostAuth(*auth)
	}

	_, span := d.cfg.Tracer.Start(context.Background(), call.Method, sessionID)
	resp := d.dispatchMethod(sessionID, call)
	if resp != nil && resp.Error != nil {
		span.Fail(resp.Error)
	}
	span.End()

	if !call.IsCall() {
		w.SetStatus(204)
		return
	}
	d.writeRPC(w, resp)
}

// handleInitialize creates a session and returns the handler's result,
// either as a plain JSON body or — when the client asked for
// text/event-stream and the dispatcher is configured for STREAM mode — as
// a single SSE event before the stream closes.
func (d *Dispatcher) handleInitialize(req *httpwire.Request, w engine.ResponseWriter, call *jsonrpc.Request) {
	sessionID, err := d.sessions.Create()
	if err != nil {
		d.writeRPCError(w, 500, call.ID, jsonrpc.NewInternalError(err.Error()))
		return
	}
	d.cfg.Metrics.SessionCreated()
	w.Header().Set(d.cfg.sessionHeader(), sessionID)

	resp := d.dispatchMethod(sessionID, call)

	if d.cfg.ResponseMode == ModeStream && acceptsEventStream(req.Headers.Get("Accept")) {
		frame, err := jsonrpc.EncodeMessage(resp)
		if err != nil {
			d.writeRPCError(w, 500, call.ID, jsonrpc.NewInternalError(err.Error()))
			return
		}
		eventID := "1"
		formatted := sseEvent(eventID, string(frame))
		d.sessions.AddEvent(sessionID, eventID, string(formatted))
		sent := false
		w.Stream("text/event-stream", func() ([]byte, bool) {
			if sent {
				return nil, true
			}
			sent = true
			return formatted, true
		}, nil)
		return
	}

	d.writeRPC(w, resp)
}

// handleGet implements spec.md §4.I's GET branch: a long-lived SSE stream
// scoped to ?session=<id>, optionally replaying history recorded after
// Last-Event-ID first.
func (d *Dispatcher) handleGet(req *httpwire.Request, w engine.ResponseWriter) {
	if _, ok := d.authenticate(req, w); !ok {
		return
	}

	sessionID := queryParam(req.URI, "session")
	if sessionID == "" {
		w.SetStatus(400)
		return
	}
	if !d.sessions.Validate(sessionID) {
		d.writeRPCError(w, 404, jsonrpc.ID{}, jsonrpc.NewInvalidSession())
		return
	}

	var backlog []string
	if d.cfg.Session.ResumabilityEnabled {
		if lastID := req.Headers.Get("Last-Event-ID"); lastID != "" {
			backlog = d.sessions.EventsSince(sessionID, lastID)
		}
	}

	sub := d.bcast.subscribe(sessionID)
	i := 0
	w.Stream("text/event-stream", func() ([]byte, bool) {
		if i < len(backlog) {
			frame := []byte(backlog[i])
			i++
			d.cfg.Metrics.EventEmitted("replay")
			return frame, false
		}
		return sub.pull()
	}, sub.wake)
}

// dispatchMethod looks up and invokes the named method, mapping its
// outcome to a JSON-RPC response per spec.md §7: a *jsonrpc.Error
// propagates as-is, anything else becomes internal_error, and an unknown
// method is method_not_found.
func (d *Dispatcher) dispatchMethod(sessionID string, call *jsonrpc.Request) *jsonrpc.Response {
	h, ok := d.methods[call.Method]
	if !ok {
		return jsonrpc.Failure(call.ID, jsonrpc.NewMethodNotFound(call.Method))
	}
	result, err := h(sessionID, call.Params)
	if err != nil {
		return jsonrpc.Failure(call.ID, err)
	}
	resp, err := jsonrpc.Success(call.ID, result)
	if err != nil {
		return jsonrpc.Failure(call.ID, jsonrpc.NewInternalError(err.Error()))
	}
	return resp
}

func (d *Dispatcher) writeRPC(w engine.ResponseWriter, resp *jsonrpc.Response) {
	body, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		w.SetStatus(500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (d *Dispatcher) writeRPCError(w engine.ResponseWriter, status int, id jsonrpc.ID, rpcErr error) {
	resp := jsonrpc.Failure(id, rpcErr)
	body, err := jsonrpc.EncodeMessage(resp)
	w.SetStatus(status)
	if err != nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func acceptsEventStream(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		if strings.HasPrefix(strings.TrimSpace(part), "text/event-stream") {
			return true
		}
	}
	return false
}

// authenticate runs the configured Validator, if any, writing a 401 +
// WWW-Authenticate response on failure. ok is false iff the response was
// already finalized and the caller must return immediately.
func (d *Dispatcher) authenticate(req *httpwire.Request, w engine.ResponseWriter) (*AuthResult, bool) {
	if !d.cfg.Auth.Enabled || d.cfg.Auth.Validator == nil {
		return nil, true
	}
	result, err := d.cfg.Auth.Validator(AuthRequest{Method: req.Method, URI: req.URI, Headers: req.Headers})
	if err != nil || !result.Authenticated {
		w.Header().Set("WWW-Authenticate", d.cfg.Auth.challengeHeader())
		w.SetStatus(401)
		return nil, false
	}
	return &result, true
}
