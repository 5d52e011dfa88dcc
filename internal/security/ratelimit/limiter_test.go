package ratelimit

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestAllowSlidingWindow(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	l.SetClock(func() time.Time { return now })

	if !l.Allow("user-1") || !l.Allow("user-1") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("user-1") {
		t.Fatal("third request inside window should be limited")
	}
	if !l.Allow("user-2") {
		t.Fatal("buckets are per key")
	}
	if !l.Allow("") {
		t.Fatal("empty key is never limited")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("user-1") {
		t.Fatal("window should have slid")
	}
}

func TestAllowStrictUsesSeparateBucket(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	if !l.AllowStrict("203.0.113.9", 1, time.Minute) {
		t.Fatal("first strict request should pass")
	}
	if l.AllowStrict("203.0.113.9", 1, time.Minute) {
		t.Fatal("second strict request should be limited")
	}
	if !l.Allow("203.0.113.9") {
		t.Fatal("strict bucket must not consume the default bucket")
	}
}
