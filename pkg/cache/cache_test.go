package cache

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestSetAndGet(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[bool]().WithClock(clock.now)
	c.Set("table:notifications", true, 10*time.Minute)

	clock.t = clock.t.Add(9 * time.Minute)
	if _, ok := c.Get("table:notifications"); !ok {
		t.Fatalf("expected entry before ttl")
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("table:notifications"); ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New[string]()
	c.Set("key1", "value1", time.Second)
	c.Delete("key1")
	if _, ok := c.Get("key1"); ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string]()
	c.Set("table:notifications", "n", time.Second)
	c.Set("table:addon_purchases", "a", time.Second)
	c.Set("flag:search", "s", time.Second)
	c.Invalidate("table:")
	_, ok1 := c.Get("table:notifications")
	_, ok2 := c.Get("table:addon_purchases")
	_, ok3 := c.Get("flag:search")
	if ok1 || ok2 {
		t.Fatalf("expected table keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected flag:search to still exist")
	}
}

func TestGetOrLoadCachesSuccessOnly(t *testing.T) {
	c := New[int]()
	calls := 0
	failing := func() (int, error) {
		calls++
		return 0, errors.New("db down")
	}
	if _, err := c.GetOrLoad("k", time.Minute, failing); err == nil {
		t.Fatalf("expected load error")
	}
	if _, err := c.GetOrLoad("k", time.Minute, failing); err == nil {
		t.Fatalf("expected load error on retry")
	}
	if calls != 2 {
		t.Fatalf("expected errors not to be cached, load called %d times", calls)
	}

	loads := 0
	ok := func() (int, error) {
		loads++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", time.Minute, ok)
		if err != nil || v != 42 {
			t.Fatalf("expected 42, got %v (%v)", v, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}
}
