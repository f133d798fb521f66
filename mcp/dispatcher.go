package mcp

import (
	"encoding/json"

	"github.com/fenwicklabs/reactor/engine"
	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/jsonrpc"
	"github.com/fenwicklabs/reactor/session"
)

// MethodHandler implements one JSON-RPC method. Returning a *jsonrpc.Error
// propagates it as-is; any other error becomes an internal_error per
// spec.md §7.
type MethodHandler func(sessionID string, params json.RawMessage) (any, error)

// Dispatcher implements spec.md §4.I atop an engine.Engine and a
// session.Manager.
type Dispatcher struct {
	cfg      Config
	sessions *session.Manager
	bcast    *broadcaster

	methods map[string]MethodHandler
}

// New constructs a Dispatcher. Call Register to mount it on an
// engine.Engine.
func New(cfg Config) *Dispatcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/mcp"
	}
	if cfg.Session == (session.Config{}) {
		cfg.Session = DefaultSessionConfig()
	}
	return &Dispatcher{
		cfg:      cfg,
		sessions: session.New(cfg.Session),
		bcast:    newBroadcaster(),
		methods:  make(map[string]MethodHandler),
	}
}

// HandleMethod registers a JSON-RPC method handler.
func (d *Dispatcher) HandleMethod(name string, h MethodHandler) {
	d.methods[name] = h
}

// Sessions exposes the underlying session.Manager, e.g. for a background
// CleanupExpired ticker.
func (d *Dispatcher) Sessions() *session.Manager { return d.sessions }

// CleanupExpired purges expired sessions and any orphaned SSE subscriber
// left behind by a client that disconnected without a clean DELETE.
// Intended to be called periodically by a background goroutine, mirroring
// session.Manager.CleanupExpired's own contract.
func (d *Dispatcher) CleanupExpired() {
	d.sessions.CleanupExpired()
	d.bcast.prune(d.sessions.Alive)
}

// Register mounts the dispatcher on e at its configured endpoint, and
// wires centralized DELETE handling when client termination is allowed.
func (d *Dispatcher) Register(e *engine.Engine) {
	if d.cfg.AllowClientTermination {
		e.SetSessionHooks(d.cfg.sessionHeader(), func(id string) bool {
			ok := d.sessions.Terminate(id)
			if ok {
				d.cfg.Metrics.SessionEnded()
			}
			return ok
		})
	}
	e.Handle(d.cfg.Endpoint, d.Handle)
}

// PushEvent records eventID/payload in sessionID's resumable history (if
// resumability is on) and forwards it to that session's live GET SSE
// stream, if one is open. Method handlers call this to emit
// out-of-band/async notifications after an initial response has already
// been sent.
func (d *Dispatcher) PushEvent(sessionID, eventID string, evt any) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg, err := jsonrpc.NewNotification("message", json.RawMessage(payload))
	if err != nil {
		return err
	}
	frame, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	formatted := sseEvent(eventID, string(frame))
	d.sessions.AddEvent(sessionID, eventID, string(formatted))
	d.bcast.publish(sessionID, formatted)
	d.cfg.Metrics.EventEmitted("live")
	return nil
}

// Handle implements engine.Handler: the (req, w) entry point routed by
// method per spec.md §4.I. DELETE is only reached here when client
// termination is disabled (Register leaves the engine's centralized DELETE
// hook unset in that case).
func (d *Dispatcher) Handle(req *httpwire.Request, w engine.ResponseWriter) engine.Result {
	switch req.Method {
	case "POST":
		d.handlePost(req, w)
	case "GET":
		d.handleGet(req, w)
	case "DELETE":
		w.SetStatus(403)
	default:
		w.SetStatus(405)
	}
	// Every branch above finalizes the status via w.SetStatus; the
	// engine only falls back to this Result's status when the handler
	// left it at the default 200, so 200 here is a harmless placeholder.
	return engine.StatusResult(200)
}
