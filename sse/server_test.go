package sse

import (
	"strings"
	"testing"
)

func TestFormatSimple(t *testing.T) {
	got := string(Format(Event{Name: "message", ID: "1", Data: "hello"}))
	want := "event: message\nid: 1\ndata: hello\n\n"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatMultilineData(t *testing.T) {
	got := string(Format(Event{Data: "line1\nline2"}))
	want := "data: line1\ndata: line2\n\n"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatRetry(t *testing.T) {
	got := string(Format(Event{Retry: 5000, Data: ""}))
	if !strings.HasPrefix(got, "retry: 5000\n") {
		t.Errorf("expected retry field first, got %q", got)
	}
}

func TestFormatEventIDRoundTrip(t *testing.T) {
	id := FormatEventID("stream-a", 42)
	sid, idx, ok := ParseEventID(id)
	if !ok || sid != "stream-a" || idx != 42 {
		t.Errorf("ParseEventID(%q) = %q, %d, %v", id, sid, idx, ok)
	}
}

func TestParseEventIDMalformed(t *testing.T) {
	if _, _, ok := ParseEventID("no-underscore-digits"); ok {
		t.Error("expected ok=false for malformed id")
	}
}
