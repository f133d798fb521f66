package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeMessage serializes msg to its JSON-RPC 2.0 wire form.
func EncodeMessage(msg Message) ([]byte, error) {
	wire := wireEnvelope{VersionTag: version}
	msg.marshal(&wire)
	data, err := json.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: marshal: %w", err)
	}
	return data, nil
}

// DecodeMessage parses data as either a *Request (call or notification) or
// a *Response, per the presence of a method field. This is a strict parse:
// an unrecognized top-level field is rejected, following the teacher's
// anti-smuggling convention of disallowing unknown JSON fields on wire
// envelopes.
func DecodeMessage(data []byte) (Message, error) {
	wire, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	return fromEnvelope(wire)
}

// Parse implements spec.md §4.H's parse entry point directly against raw
// bytes: it requires jsonrpc=="2.0" and a well-shaped envelope, returning a
// *jsonrpc.Error classifying the failure (ParseError for malformed JSON,
// InvalidRequest for a shape violation) instead of a generic error, so
// callers can serialize it straight into a Response per the spec's error
// taxonomy.
func Parse(data []byte) (Message, *Error) {
	wire, err := decodeEnvelope(data)
	if err != nil {
		return nil, NewParseError(err.Error())
	}
	msg, err := fromEnvelope(wire)
	if err != nil {
		return nil, NewInvalidRequest(err.Error())
	}
	return msg, nil
}

func decodeEnvelope(data []byte) (wireEnvelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var wire wireEnvelope
	if err := dec.Decode(&wire); err != nil {
		return wireEnvelope{}, fmt.Errorf("jsonrpc: unmarshal: %w", err)
	}
	return wire, nil
}

func fromEnvelope(wire wireEnvelope) (Message, error) {
	if wire.VersionTag != version {
		return nil, fmt.Errorf("%w: jsonrpc field must be %q, got %q", ErrInvalidRequest, version, wire.VersionTag)
	}
	idPresent := len(wire.ID) > 0
	var id ID
	if idPresent {
		var raw any
		if err := json.Unmarshal(wire.ID, &raw); err != nil {
			return nil, fmt.Errorf("%w: id: %v", ErrInvalidRequest, err)
		}
		coerced, err := MakeID(raw)
		if err != nil {
			return nil, err
		}
		id = coerced
	}
	if wire.Method != "" {
		return &Request{ID: id, Method: wire.Method, Params: wire.Params}, nil
	}
	if !idPresent {
		return nil, fmt.Errorf("%w: neither method nor id present", ErrInvalidRequest)
	}
	return &Response{ID: id, Result: wire.Result, Error: wire.Error}, nil
}
