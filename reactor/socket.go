package reactor

import (
	"bufio"
	"context"
	"net"
	"sync"
	"syscall"
	"time"
)

// ShutdownHow selects which half of a full-duplex connection to shut down.
type ShutdownHow uint8

const (
	ShutdownRecv ShutdownHow = iota
	ShutdownSend
	ShutdownBoth
)

// pollInterval bounds how long a single non-blocking Recv/Accept attempt
// waits before reporting WouldBlock. It is the portable stand-in for an
// OS readiness primitive: short enough that callers see timely WouldBlock
// results, long enough to avoid busy-spinning the reactor's watcher
// goroutines.
const pollInterval = 20 * time.Millisecond

// Socket is an exclusively-owned, non-blocking handle over an OS socket.
// It wraps either a net.Listener (bound/listening) or a net.Conn
// (connected), never both.
//
// A Socket is not safe for concurrent Send/Recv from multiple goroutines,
// matching the single-owner contract of spec.md's data model.
type Socket struct {
	family Family

	mu          sync.Mutex
	listener    net.Listener
	conn        net.Conn
	reader      *bufio.Reader
	nonBlocking bool
	reuseAddr   bool
	bindAddr    Addr
	closed      bool
}

// NewSocket returns an unconnected, unbound Socket for the given family.
func NewSocket(family Family) *Socket {
	return &Socket{family: family, nonBlocking: true}
}

// SetNonBlocking toggles non-blocking semantics. Sockets are non-blocking
// by default.
func (s *Socket) SetNonBlocking(nb bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonBlocking = nb
}

// SetReuseAddr requests SO_REUSEADDR on the listening socket created by a
// subsequent call to Listen.
func (s *Socket) SetReuseAddr(reuse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reuseAddr = reuse
}

// Bind records the address a subsequent Listen call should bind to.
func (s *Socket) Bind(addr Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindAddr = addr
	return nil
}

// Listen binds (if not already bound via Bind) and starts listening with
// the given backlog hint.
func (s *Socket) Listen(backlog int) error {
	s.mu.Lock()
	addr := s.bindAddr
	reuse := s.reuseAddr
	s.mu.Unlock()

	lc := net.ListenConfig{}
	if reuse {
		lc.Control = reuseAddrControl
	}
	ln, err := lc.Listen(context.Background(), netNetwork(s.family), addr.String())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

func netNetwork(f Family) string {
	if f == FamilyUnix {
		return "unix"
	}
	return "tcp"
}

// reuseAddrControl sets SO_REUSEADDR on the raw file descriptor before
// bind, the standard way to allow quick restart of a listening socket.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var ctlErr error
	err := c.Control(func(fd uintptr) {
		ctlErr = setReuseAddr(fd)
	})
	if err != nil {
		return err
	}
	return ctlErr
}

// Accept blocks (subject to pollInterval when non-blocking) for a single
// incoming connection.
func (s *Socket) Accept() (*Socket, Addr, ErrorKind) {
	s.mu.Lock()
	ln := s.listener
	nb := s.nonBlocking
	s.mu.Unlock()
	if ln == nil {
		return nil, Addr{}, KindOther
	}

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	if !nb {
		conn, err := ln.Accept()
		if err != nil {
			return nil, Addr{}, classify(err)
		}
		return wrapConn(s.family, conn), peerAddr(conn), KindNone
	}

	// Non-blocking: bound the Accept call to pollInterval using a deadline
	// if the listener supports it (*net.TCPListener does); otherwise race
	// it against a timer in a throwaway goroutine.
	if dl, ok := ln.(interface{ SetDeadline(time.Time) error }); ok {
		_ = dl.SetDeadline(time.Now().Add(pollInterval))
		conn, err := ln.Accept()
		if err != nil {
			return nil, Addr{}, classify(err)
		}
		return wrapConn(s.family, conn), peerAddr(conn), KindNone
	}

	ch := make(chan acceptResult, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- acceptResult{conn, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, Addr{}, classify(r.err)
		}
		return wrapConn(s.family, r.conn), peerAddr(r.conn), KindNone
	case <-time.After(pollInterval):
		return nil, Addr{}, KindWouldBlock
	}
}

func peerAddr(conn net.Conn) Addr {
	a, err := ParseAddr(conn.RemoteAddr().String())
	if err != nil {
		return Addr{Host: conn.RemoteAddr().String()}
	}
	return a
}

func wrapConn(family Family, conn net.Conn) *Socket {
	return &Socket{
		family:      family,
		conn:        conn,
		reader:      bufio.NewReader(conn),
		nonBlocking: true,
	}
}

// Connect opens an outbound connection to addr.
func (s *Socket) Connect(addr Addr) ErrorKind {
	conn, err := net.Dial(netNetwork(s.family), addr.String())
	if err != nil {
		return classify(err)
	}
	s.mu.Lock()
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.mu.Unlock()
	return KindNone
}

// Recv reads up to len(buf) bytes. It returns (0, KindWouldBlock) rather
// than blocking indefinitely when the socket is non-blocking and no data
// has arrived within pollInterval.
func (s *Socket) Recv(buf []byte) (int, ErrorKind) {
	s.mu.Lock()
	conn, reader, nb, closed := s.conn, s.reader, s.nonBlocking, s.closed
	s.mu.Unlock()
	if closed {
		return 0, KindClosed
	}
	if conn == nil {
		return 0, KindOther
	}
	if nb {
		_ = conn.SetReadDeadline(time.Now().Add(pollInterval))
		defer conn.SetReadDeadline(time.Time{})
	}
	n, err := reader.Read(buf)
	if err != nil {
		return n, classify(err)
	}
	return n, KindNone
}

// Peek reports whether at least one byte is currently available to read,
// without consuming it. Used by the reactor to detect readability.
func (s *Socket) Peek() (bool, ErrorKind) {
	s.mu.Lock()
	conn, reader, closed := s.conn, s.reader, s.closed
	s.mu.Unlock()
	if closed {
		return false, KindClosed
	}
	if conn == nil {
		return false, KindOther
	}
	_ = conn.SetReadDeadline(time.Now().Add(pollInterval))
	defer conn.SetReadDeadline(time.Time{})
	_, err := reader.Peek(1)
	if err != nil {
		return false, classify(err)
	}
	return true, KindNone
}

// Send writes buf, returning the number of bytes accepted. A short write
// (n < len(buf)) means the caller should retry the remainder once the
// socket is next writable.
func (s *Socket) Send(buf []byte) (int, ErrorKind) {
	s.mu.Lock()
	conn, nb, closed := s.conn, s.nonBlocking, s.closed
	s.mu.Unlock()
	if closed {
		return 0, KindClosed
	}
	if conn == nil {
		return 0, KindOther
	}
	if nb {
		_ = conn.SetWriteDeadline(time.Now().Add(pollInterval))
		defer conn.SetWriteDeadline(time.Time{})
	}
	n, err := conn.Write(buf)
	if err != nil {
		return n, classify(err)
	}
	return n, KindNone
}

// Shutdown half- or fully-closes the connection.
func (s *Socket) Shutdown(how ShutdownHow) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	type closeWriter interface{ CloseWrite() error }
	type closeReader interface{ CloseRead() error }
	switch how {
	case ShutdownSend:
		if cw, ok := conn.(closeWriter); ok {
			return cw.CloseWrite()
		}
	case ShutdownRecv:
		if cr, ok := conn.(closeReader); ok {
			return cr.CloseRead()
		}
	case ShutdownBoth:
		return s.Close()
	}
	return nil
}

// Close releases the socket. Safe to call multiple times.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// LocalAddr returns the socket's local address, if bound/connected.
func (s *Socket) LocalAddr() Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	var na net.Addr
	if s.listener != nil {
		na = s.listener.Addr()
	} else if s.conn != nil {
		na = s.conn.LocalAddr()
	}
	if na == nil {
		return Addr{}
	}
	a, err := ParseAddr(na.String())
	if err != nil {
		return Addr{Host: na.String()}
	}
	return a
}

// RemoteAddr returns the peer address of a connected socket.
func (s *Socket) RemoteAddr() Addr {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return Addr{}
	}
	return peerAddr(conn)
}
