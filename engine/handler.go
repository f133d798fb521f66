package engine

import "github.com/fenwicklabs/reactor/httpwire"

// ResultKind discriminates the outcomes a Handler may return, per spec.md
// §4.F's "0 / positive / −1" handler-dispatch protocol.
type ResultKind int

const (
	// KindFallThrough asks the engine to try the next registered handler.
	KindFallThrough ResultKind = iota
	// KindStatus finalizes the response with Status.
	KindStatus
	// KindClose terminates the connection immediately, without a response.
	KindClose
)

// Result is the tagged union a Handler returns. Use the constructors
// below rather than building one directly.
type Result struct {
	Kind   ResultKind
	Status int
}

// Fallthrough asks the engine to try the next handler in registration
// order.
func Fallthrough() Result { return Result{Kind: KindFallThrough} }

// StatusResult finalizes the response with the given HTTP status code.
func StatusResult(code int) Result { return Result{Kind: KindStatus, Status: code} }

// CloseNow terminates the connection immediately without sending a
// response.
func CloseNow() Result { return Result{Kind: KindClose} }

// ResponseWriter is the interface handlers use to build a response. It is
// implemented by *exchange (unexported) and passed to Handler by pointer.
type ResponseWriter interface {
	// SetStatus sets the response status code (default 200 if never called).
	SetStatus(code int)
	// Header returns the mutable response header map.
	Header() httpwire.Header
	// Write appends to the buffered response body.
	Write(p []byte) (int, error)
	// Stream marks the response as a pull-based stream: pull is called
	// once per write opportunity and returns the next chunk plus whether
	// the stream is now finished. An empty, not-done return means "nothing
	// to send yet" — the engine parks the connection until wake fires
	// rather than spinning, so a long-lived idle stream (an MCP GET SSE
	// subscription with no pending events) doesn't busy-loop. wake may be
	// nil for streams that have no further data once they first go empty
	// (matches plain chunked-response streaming, which never needs to
	// park). Setting this clears any buffered body written via Write.
	Stream(contentType string, pull func() (data []byte, done bool), wake <-chan struct{})
}

// Handler is a registered (prefix, callback) entry, per spec.md §4.F.
// The callback returns a Result describing whether it finalized the
// response, fell through, or wants the connection torn down.
type Handler func(req *httpwire.Request, w ResponseWriter) Result

// Route pairs a URI prefix with its Handler. Handlers are tried in
// registration order; the first whose Prefix is a character-wise prefix
// of the request URI that does not return Fallthrough wins.
type Route struct {
	Prefix  string
	Handler Handler
}
