// Package httpwire implements the byte-level HTTP/1.1 request parser and
// response serializer used by the connection engine: a pragmatic subset of
// RFC 7230 sufficient for MCP and mock services, with the strict
// validation spec.md requires (method whitelist, length caps, control-char
// rejection, URL decoding).
package httpwire

import (
	"net/textproto"
	"strings"
)

// Header is a case-insensitive, Title-Case-normalized, single-value header
// map (spec.md's data model treats headers as a single-value mapping, not
// a multi-value list).
type Header map[string]string

// CanonicalHeaderKey normalizes a header name to Title-Case form
// ("X-Forwarded-For"), the same algorithm net/textproto uses for MIME
// headers — there is no pack repo that reimplements this differently, and
// spec.md's own example ("X-Forwarded-For style") is exactly textproto's
// behavior.
func CanonicalHeaderKey(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Set stores value under the canonical form of name, overwriting any
// previous value (single-value map per spec.md).
func (h Header) Set(name, value string) {
	h[CanonicalHeaderKey(name)] = value
}

// Get returns the value stored under the canonical form of name.
func (h Header) Get(name string) string {
	return h[CanonicalHeaderKey(name)]
}

// Has reports whether name (any case) is present.
func (h Header) Has(name string) bool {
	_, ok := h[CanonicalHeaderKey(name)]
	return ok
}

// Del removes name (any case).
func (h Header) Del(name string) {
	delete(h, CanonicalHeaderKey(name))
}

// connectionTokens splits a Connection header value on commas, trimming
// whitespace, for keep-alive negotiation.
func connectionTokens(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}
