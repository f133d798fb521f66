package engine

import (
	"github.com/fenwicklabs/reactor/httpwire"
	"github.com/fenwicklabs/reactor/reactor"
)

// State names the per-connection state machine positions of spec.md
// §4.F. Most transitions happen synchronously within a single
// OnReadable/OnWritable callback; the names are kept for diagnostics and
// to make the state machine's shape traceable in code.
type State int

const (
	StateIdle State = iota
	StateReceivingHeaders
	StateSending100Continue
	StateReceivingBody
	StateProcessing
	StateProcessingAsync
	StateSendingHeaders
	StateStreamingChunked
	StateSendingBody
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReceivingHeaders:
		return "ReceivingHeaders"
	case StateSending100Continue:
		return "Sending100Continue"
	case StateReceivingBody:
		return "ReceivingBody"
	case StateProcessing:
		return "Processing"
	case StateProcessingAsync:
		return "ProcessingAsync"
	case StateSendingHeaders:
		return "SendingHeaders"
	case StateStreamingChunked:
		return "StreamingChunked"
	case StateSendingBody:
		return "SendingBody"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// connection tracks per-socket engine state: the receive buffer, parsed
// request, pending send buffer, and streaming callback if any.
type connection struct {
	sock  *reactor.Socket
	state State

	recvBuf []byte
	req     *httpwire.Request
	bodyBuf []byte

	sendBuf    []byte
	sendOffset int

	keepAlive bool

	streaming      bool
	streamPull     func() ([]byte, bool)
	streamWake     <-chan struct{}
	streamTerminal bool
	waitingOnWake  bool

	closeSig chan struct{}
	closed   bool
}

func newConnection(sock *reactor.Socket) *connection {
	return &connection{sock: sock, state: StateIdle, closeSig: make(chan struct{})}
}

// signalClosed marks the connection torn down, releasing any goroutine
// parked in armStreamWake waiting on streamWake. Idempotent.
func (c *connection) signalClosed() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.closeSig)
}

// feed appends newly received bytes to the receive buffer and attempts to
// parse a complete request line + headers.
func (c *connection) feed(data []byte, limits httpwire.Limits) error {
	c.recvBuf = append(c.recvBuf, data...)
	if c.req == nil {
		req, err := httpwire.ParseRequest(c.recvBuf, limits, c.sock.RemoteAddr().String())
		if err == httpwire.ErrIncomplete {
			c.state = StateReceivingHeaders
			return nil
		}
		if err != nil {
			return err
		}
		end := httpwire.HeaderBlockEnd(c.recvBuf)
		c.recvBuf = c.recvBuf[end:]
		c.req = req
		c.state = StateReceivingBody
	}
	return nil
}

// bodyReady reports whether the full request body has been accumulated —
// per Content-Length, or by decoding a chunked body per spec.md §8 when
// Transfer-Encoding: chunked is set instead — and strips it from recvBuf
// into bodyBuf when so. A malformed or over-limit chunked body is
// reported as an error; the caller should respond and close.
func (c *connection) bodyReady(limits httpwire.Limits) (bool, error) {
	if c.req == nil {
		return false, nil
	}
	if httpwire.IsChunked(c.req.Headers) {
		body, consumed, err := httpwire.ParseChunkedBody(c.recvBuf, limits.MaxRequestContentSize)
		if err == httpwire.ErrIncomplete {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		c.bodyBuf = body
		c.recvBuf = c.recvBuf[consumed:]
		c.req.Body = c.bodyBuf
		return true, nil
	}
	want := c.req.ContentLength
	if want < 0 {
		want = 0
	}
	if int64(len(c.recvBuf)) < want {
		return false, nil
	}
	c.bodyBuf = c.recvBuf[:want]
	c.recvBuf = c.recvBuf[want:]
	c.req.Body = c.bodyBuf
	return true, nil
}

// reset prepares the connection for the next request on a kept-alive
// socket.
func (c *connection) reset() {
	c.req = nil
	c.bodyBuf = nil
	c.sendBuf = nil
	c.sendOffset = 0
	c.streaming = false
	c.streamPull = nil
	c.streamWake = nil
	c.streamTerminal = false
	c.waitingOnWake = false
	c.state = StateIdle
}

// queueResponse serializes resp into the send buffer and transitions to
// SendingBody (queueStreamHead queues only the head, for chunked streaming).
func (c *connection) queueResponse(resp *httpwire.Response) {
	c.sendBuf = resp.Serialize()
	c.sendOffset = 0
	c.state = StateSendingBody
}

func (c *connection) queueStreamHead(resp *httpwire.Response) {
	c.sendBuf = resp.Head()
	c.sendOffset = 0
	c.state = StateSendingHeaders
}

// pendingSend reports whether there are still unsent bytes buffered.
func (c *connection) pendingSend() bool {
	return c.sendOffset < len(c.sendBuf)
}
