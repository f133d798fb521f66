package mcp

import "sync"

// subscriber is one open GET SSE stream's mailbox: formatted SSE frames
// queued for it, plus a wake channel the engine's stream pump parks on
// between pulls.
type subscriber struct {
	mu     sync.Mutex
	queue  [][]byte
	wake   chan struct{}
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{wake: make(chan struct{}, 1)}
}

func (s *subscriber) push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, frame)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pull drains the next queued frame, if any. done is true once the
// subscriber has been closed and its queue drained.
func (s *subscriber) pull() (data []byte, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, s.closed
	}
	data = s.queue[0]
	s.queue = s.queue[1:]
	return data, false
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// broadcaster fans formatted events out to whichever GET SSE stream is
// currently open for a session — at most one at a time, since spec.md's
// ordering guarantee (§5) is scoped per session, not per connection.
type broadcaster struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[string]*subscriber)}
}

// subscribe replaces any existing subscriber for sessionID (a
// reconnecting client supersedes its own prior stream) and returns the new
// one.
func (b *broadcaster) subscribe(sessionID string) *subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[sessionID]; ok {
		old.close()
	}
	sub := newSubscriber()
	b.subs[sessionID] = sub
	return sub
}

func (b *broadcaster) unsubscribe(sessionID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[sessionID] == sub {
		delete(b.subs, sessionID)
	}
	sub.close()
}

// publish pushes frame to sessionID's live subscriber, if one is open. A
// session with no open GET stream simply drops the push — resumability's
// history ring (session.Manager.AddEvent/EventsSince), not this
// broadcaster, is what a later reconnect replays from.
func (b *broadcaster) publish(sessionID string, frame []byte) {
	b.mu.Lock()
	sub, ok := b.subs[sessionID]
	b.mu.Unlock()
	if ok {
		sub.push(frame)
	}
}

// prune closes and drops subscriber entries whose session no longer
// validates. A disconnecting GET client doesn't unsubscribe itself (the
// engine has no connection-teardown hook reaching this package), so this
// is the broadcaster's bound on otherwise-unbounded growth; callers should
// run it alongside session.Manager.CleanupExpired (see
// Dispatcher.CleanupExpired).
func (b *broadcaster) prune(isLive func(string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		if !isLive(id) {
			sub.close()
			delete(b.subs, id)
		}
	}
}
