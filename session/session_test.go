package session

import (
	"strings"
	"testing"
	"time"
)

func TestCreateAndValidate(t *testing.T) {
	m := New(Config{Timeout: time.Hour, MaxSessions: 10})
	id, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(id, "session-") {
		t.Errorf("id = %q, want session- prefix", id)
	}
	if !m.Validate(id) {
		t.Error("expected freshly created session to validate")
	}
}

func TestValidateUnknown(t *testing.T) {
	m := New(Config{Timeout: time.Hour})
	if m.Validate("session-does-not-exist") {
		t.Error("expected unknown id to fail validation")
	}
}

func TestTerminate(t *testing.T) {
	m := New(Config{Timeout: time.Hour})
	id, _ := m.Create()
	if !m.Terminate(id) {
		t.Error("expected Terminate to report existing session")
	}
	if m.Validate(id) {
		t.Error("expected terminated session to no longer validate")
	}
	if m.Terminate(id) {
		t.Error("expected second Terminate to report false")
	}
}

func TestExpiry(t *testing.T) {
	m := New(Config{Timeout: time.Millisecond})
	id, _ := m.Create()
	time.Sleep(5 * time.Millisecond)
	if m.Validate(id) {
		t.Error("expected expired session to fail validation")
	}
}

func TestCapacityExceeded(t *testing.T) {
	m := New(Config{Timeout: time.Hour, MaxSessions: 1})
	if _, err := m.Create(); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := m.Create(); err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestCapacityFreedByExpiry(t *testing.T) {
	m := New(Config{Timeout: time.Millisecond, MaxSessions: 1})
	if _, err := m.Create(); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Create(); err != nil {
		t.Fatalf("expected expired session to be purged, freeing capacity: %v", err)
	}
}

func TestAddEventAndEventsSince(t *testing.T) {
	m := New(Config{Timeout: time.Hour, ResumabilityEnabled: true, MaxHistorySize: 10})
	id, _ := m.Create()
	m.AddEvent(id, "1", "data: a\n\n")
	m.AddEvent(id, "2", "data: b\n\n")
	m.AddEvent(id, "3", "data: c\n\n")

	all := m.EventsSince(id, "")
	if len(all) != 3 {
		t.Fatalf("EventsSince(\"\") = %d events, want 3", len(all))
	}

	suffix := m.EventsSince(id, "1")
	if len(suffix) != 2 || suffix[0] != "data: b\n\n" {
		t.Fatalf("EventsSince(1) = %v, want [data: b.., data: c..]", suffix)
	}

	none := m.EventsSince(id, "unknown-id")
	if len(none) != 0 {
		t.Fatalf("EventsSince(unknown) = %v, want empty", none)
	}
}

func TestAddEventNoopWhenResumabilityDisabled(t *testing.T) {
	m := New(Config{Timeout: time.Hour, ResumabilityEnabled: false})
	id, _ := m.Create()
	m.AddEvent(id, "1", "data: a\n\n")
	if got := m.EventsSince(id, ""); len(got) != 0 {
		t.Errorf("expected no history recorded, got %v", got)
	}
}

func TestHistoryEviction(t *testing.T) {
	m := New(Config{Timeout: time.Hour, ResumabilityEnabled: true, MaxHistorySize: 2})
	id, _ := m.Create()
	m.AddEvent(id, "1", "a")
	m.AddEvent(id, "2", "b")
	m.AddEvent(id, "3", "c")

	all := m.EventsSince(id, "")
	if len(all) != 2 || all[0] != "b" || all[1] != "c" {
		t.Fatalf("expected oldest entry evicted, got %v", all)
	}
}

func TestCleanupExpired(t *testing.T) {
	m := New(Config{Timeout: time.Millisecond})
	m.Create()
	m.Create()
	time.Sleep(5 * time.Millisecond)
	m.CleanupExpired()
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after cleanup", m.Count())
	}
}

func TestSessionIDsUnique(t *testing.T) {
	m := New(Config{Timeout: time.Hour, MaxSessions: 1000})
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := m.Create()
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session id generated: %q", id)
		}
		seen[id] = true
	}
}
