// Package sse implements Server-Sent Events framing: a server-side
// formatter that emits the wire format defined by the WHATWG HTML
// standard's "event stream" section, and a client-side incremental parser
// that reconstructs events from a byte stream as it arrives.
package sse

// Event is a single server-sent event. Name and ID are optional; Data may
// span multiple logical lines (joined with "\n" per the WHATWG field
// concatenation rule). Retry, when non-zero, carries a reconnection-time
// hint in milliseconds.
type Event struct {
	Name  string
	ID    string
	Data  string
	Retry int
}
