package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		evt, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		out = append(out, evt)
	}
}

func TestReaderBasic(t *testing.T) {
	raw := "event: message\ndata: hello\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Name != "message" || events[0].Data != "hello" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestReaderMultilineData(t *testing.T) {
	raw := "data: line1\ndata: line2\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 || events[0].Data != "line1\nline2" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReaderCommentIgnored(t *testing.T) {
	raw := ": keep-alive\ndata: hi\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 || events[0].Data != "hi" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReaderLastEventIDPersists(t *testing.T) {
	raw := "id: 1\ndata: a\n\ndata: b\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "1" || events[1].ID != "1" {
		t.Errorf("expected id to persist across events: %+v", events)
	}
	if r.LastEventID() != "1" {
		t.Errorf("LastEventID() = %q, want 1", r.LastEventID())
	}
}

func TestReaderCRLF(t *testing.T) {
	raw := "data: hello\r\n\r\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 || events[0].Data != "hello" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReaderRetryField(t *testing.T) {
	raw := "retry: 3000\ndata: x\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 || events[0].Retry != 3000 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReaderIDOnlyDispatches(t *testing.T) {
	raw := "id: 42\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 || events[0].ID != "42" || events[0].Data != "" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReaderRetryOnlyDispatches(t *testing.T) {
	raw := "retry: 500\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 || events[0].Retry != 500 || events[0].Data != "" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReaderEventNameOnlyDoesNotDispatch(t *testing.T) {
	raw := "event: ping\n\ndata: real\n\n"
	r := NewReader(strings.NewReader(raw))
	events := readAll(t, r)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (event-name-only block should be dropped): %+v", len(events), events)
	}
	if events[0].Data != "real" {
		t.Errorf("unexpected event: %+v", events[0])
	}
	if events[0].Name != "" {
		t.Errorf("event name leaked from the dropped block: %+v", events[0])
	}
}
