// Package jsonrpc implements the JSON-RPC 2.0 message types, error
// taxonomy, and wire codec used by the MCP dispatcher (see mcp/).
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ID is a request identifier. Per spec.md §4.H the wire representation is
// restricted to a JSON string, integer, or null — unlike the wider JSON-RPC
// spec this library does not accept fractional numbers as ids.
//
// The zero value ID{} means absent (no "id" field at all, i.e. a
// notification), which is distinct from an explicit "id": null. present
// carries that distinction, since value alone is nil in both cases.
type ID struct {
	value   any // nil, string, or int64
	present bool
}

// StringID constructs a string identifier.
func StringID(s string) ID { return ID{value: s, present: true} }

// Int64ID constructs an integer identifier.
func Int64ID(i int64) ID { return ID{value: i, present: true} }

// NullID constructs an explicit "id": null, distinct from the zero value
// ID{} which means the id field is absent entirely.
func NullID() ID { return ID{present: true} }

// IsValid reports whether id is present (a request, as opposed to a
// notification, carries a valid id — even a null one).
func (id ID) IsValid() bool { return id.present }

// Raw returns the underlying string, int64, or nil value.
func (id ID) Raw() any { return id.value }

func (id ID) String() string {
	switch v := id.value.(type) {
	case nil:
		return "<null>"
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MakeID coerces a decoded JSON value (nil, float64, or string — the shapes
// encoding/json produces for an `any`) into an ID, rejecting any other type
// and rejecting non-integral numbers per spec.md's restricted id type set.
// A nil value always means an explicit null was present — callers that need
// to represent "no id field" construct the zero ID{} directly rather than
// calling MakeID.
func MakeID(v any) (ID, error) {
	switch v := v.(type) {
	case nil:
		return NullID(), nil
	case string:
		return StringID(v), nil
	case float64:
		if v != float64(int64(v)) {
			return ID{}, fmt.Errorf("%w: non-integer id %v", ErrParse, v)
		}
		return Int64ID(int64(v)), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return ID{}, fmt.Errorf("%w: invalid numeric id %q", ErrParse, v)
		}
		return Int64ID(i), nil
	}
	return ID{}, fmt.Errorf("%w: invalid id type %T", ErrParse, v)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	coerced, err := MakeID(v)
	if err != nil {
		return err
	}
	*id = coerced
	return nil
}
