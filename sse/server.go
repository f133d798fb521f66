package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Format renders evt as an SSE wire frame: zero or more "field: value"
// lines followed by the blank-line terminator. A Data value containing
// newlines is split into one "data:" line per line, per the WHATWG
// multi-line data rule.
func Format(evt Event) []byte {
	var b bytes.Buffer
	if evt.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", evt.Name)
	}
	if evt.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", evt.ID)
	}
	if evt.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", evt.Retry)
	}
	for _, line := range strings.Split(evt.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// WriteEvent formats evt and writes it to w, flushing immediately if w
// implements http.Flusher — the hanging-GET response writer always does.
func WriteEvent(w io.Writer, evt Event) (int, error) {
	n, err := w.Write(Format(evt))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}

// Comment formats an SSE comment line (a keep-alive ping with no event
// payload), e.g. ": keep-alive\n\n".
func Comment(text string) []byte {
	return []byte(": " + text + "\n\n")
}

// Headers returns the response headers a server must set before streaming
// SSE: Content-Type, and the caching/proxy-buffering directives that keep
// intermediaries from holding the response open in a buffer.
func Headers() map[string]string {
	return map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	}
}

// FormatEventID builds a composite event ID combining a logical stream
// identifier with a per-stream sequence index, so a client's Last-Event-ID
// on reconnect can be split back into (stream, index) by ParseEventID.
func FormatEventID(streamID string, index int) string {
	return streamID + "_" + strconv.Itoa(index)
}

// ParseEventID reverses FormatEventID. ok is false if id is not in the
// expected "<stream>_<index>" form.
func ParseEventID(id string) (streamID string, index int, ok bool) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, false
	}
	return id[:i], idx, true
}
