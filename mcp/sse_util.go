package mcp

import (
	"net/url"
	"strings"

	"github.com/fenwicklabs/reactor/sse"
)

// sseEvent formats a JSON-RPC wire frame as a single SSE event carrying
// id (for Last-Event-ID replay).
func sseEvent(eventID, data string) []byte {
	return sse.Format(sse.Event{ID: eventID, Data: data})
}

// queryParam extracts a single query-string value from a request URI
// (already percent-decoded by httpwire.ParseRequest), per spec.md §4.I's
// "?session=<id>" GET convention.
func queryParam(uri, key string) string {
	_, query, found := strings.Cut(uri, "?")
	if !found {
		return ""
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	return values.Get(key)
}
