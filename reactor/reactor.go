package reactor

import (
	"context"
	"log/slog"
	"sync"
)

// Interest is a bitmask of readiness conditions a registration cares about.
type Interest uint8

const (
	InterestReadable Interest = 1 << iota
	InterestWritable
	InterestAcceptable
	InterestClosed
)

func (i Interest) has(bit Interest) bool { return i&bit != 0 }

// Sink receives readiness events from a Reactor. Callbacks run on the
// reactor's own goroutine unless the caller explicitly offloads work (see
// engine's thread-pool path). A callback MAY re-register its socket with a
// new interest set; if it does not, the socket receives no further events
// until re-registered — this is the reactor's explicit re-arm contract.
type Sink interface {
	OnAcceptable(s *Socket)
	OnReadable(s *Socket)
	OnWritable(s *Socket)
	OnClosed(s *Socket, err error)
}

// registration tracks one socket's current interest and watcher
// goroutine generation, so that re-registering (or unregistering) old
// watchers can notice they're stale and exit.
type registration struct {
	sock     *Socket
	interest Interest
	gen      uint64
}

// Reactor is a single-threaded readiness-event loop. It owns a
// registration table of Socket -> interest mask, and drives watcher
// goroutines (one per registered socket) that detect readiness using
// portable, non-consuming polling (see Socket.Peek) and deliver events to
// the loop over a single channel — preserving the single-threaded-callback
// contract of spec.md §4.B even though detection itself is spread across
// goroutines the way Go's own runtime netpoller is.
type Reactor struct {
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	regs  map[*Socket]*registration
	nextG uint64

	events chan readyEvent
	stop   chan struct{}
	done   chan struct{}
}

type readyEvent struct {
	sock *Socket
	kind Interest
	err  error
}

// New returns a Reactor dispatching readiness events to sink. A nil logger
// is replaced with one that discards output.
func New(sink Sink, logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reactor{
		sink:   sink,
		logger: logger,
		regs:   make(map[*Socket]*registration),
		events: make(chan readyEvent, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register starts watching sock for the given interest set, replacing any
// prior registration. Each call bumps a generation counter that any
// in-flight watcher for the previous registration checks before posting an
// event, so stale watchers are silently dropped instead of re-arming.
func (r *Reactor) Register(sock *Socket, interest Interest) {
	r.mu.Lock()
	r.nextG++
	gen := r.nextG
	reg := &registration{sock: sock, interest: interest, gen: gen}
	r.regs[sock] = reg
	r.mu.Unlock()

	if interest.has(InterestAcceptable) {
		go r.watchAcceptable(sock, gen)
	}
	if interest.has(InterestReadable) {
		go r.watchReadable(sock, gen)
	}
	if interest.has(InterestWritable) {
		r.postNow(sock, InterestWritable, gen)
	}
}

// Unregister stops delivering events for sock. Any watcher already in
// flight will observe the generation mismatch and exit quietly.
func (r *Reactor) Unregister(sock *Socket) {
	r.mu.Lock()
	delete(r.regs, sock)
	r.mu.Unlock()
}

func (r *Reactor) currentGen(sock *Socket) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[sock]
	if !ok {
		return 0, false
	}
	return reg.gen, true
}

func (r *Reactor) watchAcceptable(sock *Socket, gen uint64) {
	for {
		if cur, ok := r.currentGen(sock); !ok || cur != gen {
			return
		}
		select {
		case <-r.stop:
			return
		default:
		}
		conn, _, ek := sock.Accept()
		if ek == KindWouldBlock {
			continue
		}
		if ek != KindNone {
			r.events <- readyEvent{sock: sock, kind: InterestClosed, err: errForKind(ek)}
			return
		}
		// The watcher has already accepted one connection; hand it off as
		// an Acceptable event carrying the new connection socket (not the
		// listener) so the sink can register it for Readable directly.
		r.events <- readyEvent{sock: conn, kind: InterestAcceptable}
		if cur, ok := r.currentGen(sock); !ok || cur != gen {
			return
		}
	}
}

func (r *Reactor) watchReadable(sock *Socket, gen uint64) {
	for {
		if cur, ok := r.currentGen(sock); !ok || cur != gen {
			return
		}
		select {
		case <-r.stop:
			return
		default:
		}
		ready, ek := sock.Peek()
		if ek == KindWouldBlock {
			continue
		}
		if ek != KindNone {
			r.events <- readyEvent{sock: sock, kind: InterestClosed, err: errForKind(ek)}
			return
		}
		if ready {
			r.events <- readyEvent{sock: sock, kind: InterestReadable}
			return
		}
	}
}

func (r *Reactor) postNow(sock *Socket, kind Interest, gen uint64) {
	if cur, ok := r.currentGen(sock); !ok || cur != gen {
		return
	}
	r.events <- readyEvent{sock: sock, kind: kind}
}

// Run blocks, dispatching readiness events to the Sink until Stop is
// called or ctx is cancelled.
func (r *Reactor) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case ev := <-r.events:
			r.dispatch(ev)
		}
	}
}

func (r *Reactor) dispatch(ev readyEvent) {
	switch {
	case ev.kind.has(InterestClosed):
		r.sink.OnClosed(ev.sock, ev.err)
	case ev.kind.has(InterestAcceptable):
		r.sink.OnAcceptable(ev.sock)
	case ev.kind.has(InterestReadable):
		r.sink.OnReadable(ev.sock)
	case ev.kind.has(InterestWritable):
		r.sink.OnWritable(ev.sock)
	}
}

// Stop ends the event loop. In-flight watcher goroutines observe it and
// exit on their next poll iteration.
func (r *Reactor) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

func errForKind(k ErrorKind) error {
	return &socketError{kind: k}
}

type socketError struct{ kind ErrorKind }

func (e *socketError) Error() string { return "reactor: socket error: " + e.kind.String() }
