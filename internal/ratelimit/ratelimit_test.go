package ratelimit

import (
	"os"
	"testing"
	"time"
)

// fixedClock lets tests advance time without sleeping.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 14, 18, 0, 0, 0, time.UTC)}
	l := NewLimiter()
	l.now = clock.now
	return l, clock
}

func TestAllowUnderLimit(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		if !l.Allow("comment:conn1", 3, 5*time.Second) {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}
}

func TestDenyAtLimit(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		l.Allow("comment:conn1", 3, 5*time.Second)
	}
	if l.Allow("comment:conn1", 3, 5*time.Second) {
		t.Fatal("4th event within the window should be denied")
	}
}

func TestWindowResetAllowsAgain(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		l.Allow("comment:conn1", 3, 5*time.Second)
	}
	if l.Allow("comment:conn1", 3, 5*time.Second) {
		t.Fatal("should be denied before the window expires")
	}

	clock.advance(5*time.Second + time.Millisecond)

	if !l.Allow("comment:conn1", 3, 5*time.Second) {
		t.Fatal("should be allowed after the window expires")
	}
	// Fresh window: count restarted at 1, so two more fit.
	if !l.Allow("comment:conn1", 3, 5*time.Second) || !l.Allow("comment:conn1", 3, 5*time.Second) {
		t.Fatal("fresh window should admit up to the ceiling again")
	}
	if l.Allow("comment:conn1", 3, 5*time.Second) {
		t.Fatal("fresh window should still enforce the ceiling")
	}
}

func TestRejectionDoesNotIncrement(t *testing.T) {
	l, clock := newTestLimiter()

	l.Allow("like-reaction:conn1", 1, time.Second)
	// Hammering while throttled must not extend or inflate the counter.
	for i := 0; i < 10; i++ {
		l.Allow("like-reaction:conn1", 1, time.Second)
	}

	clock.advance(time.Second + time.Millisecond)
	if !l.Allow("like-reaction:conn1", 1, time.Second) {
		t.Fatal("should be allowed once the original window expires")
	}
}

func TestKeysIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	l.Allow("room-join:conn1", 1, time.Minute)
	if l.Allow("room-join:conn1", 1, time.Minute) {
		t.Fatal("conn1 should be throttled")
	}
	if !l.Allow("room-join:conn2", 1, time.Minute) {
		t.Fatal("conn2 should not share conn1's counter")
	}
	if !l.Allow("comment:conn1", 1, time.Minute) {
		t.Fatal("a different message type should not share the counter")
	}
}

func TestForgetDropsConnectionCounters(t *testing.T) {
	l, _ := newTestLimiter()

	l.Allow("room-join:conn1", 5, time.Minute)
	l.Allow("comment:conn1", 5, time.Minute)
	l.Allow("comment:conn2", 5, time.Minute)

	l.Forget(":conn1")

	if l.Size() != 1 {
		t.Fatalf("expected 1 counter to survive, got %d", l.Size())
	}
	if l.Allow("comment:conn2", 1, time.Minute) {
		t.Fatal("conn2's counter should be untouched")
	}
}

func TestDefaultPolicyCeilings(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		msgType string
		max     int
		window  time.Duration
	}{
		{"room-join", 5, 10 * time.Second},
		{"like-reaction", 10, time.Second},
		{"comment", 3, 5 * time.Second},
	}
	for _, tt := range tests {
		r, ok := p.Rule(tt.msgType)
		if !ok {
			t.Fatalf("expected a rule for %q", tt.msgType)
		}
		if r.MaxEvents != tt.max || r.Window != tt.window {
			t.Errorf("%s: got %d/%s, want %d/%s", tt.msgType, r.MaxEvents, r.Window, tt.max, tt.window)
		}
	}

	if _, ok := p.Rule("upload-progress"); ok {
		t.Error("upload-progress should not be rate limited")
	}
}

func TestLoadPolicyMergesOverDefaults(t *testing.T) {
	path := t.TempDir() + "/policy.yaml"
	data := "comment:\n  max_events: 1\n  window: 30s\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	r, _ := p.Rule("comment")
	if r.MaxEvents != 1 || r.Window != 30*time.Second {
		t.Errorf("override not applied: got %d/%s", r.MaxEvents, r.Window)
	}
	r, _ = p.Rule("room-join")
	if r.MaxEvents != 5 {
		t.Errorf("default room-join rule should survive, got %d", r.MaxEvents)
	}
}

func TestLoadPolicyRejectsInvalidRule(t *testing.T) {
	path := t.TempDir() + "/policy.yaml"
	if err := os.WriteFile(path, []byte("comment:\n  max_events: 0\n  window: 5s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected an error for a zero ceiling")
	}
}
