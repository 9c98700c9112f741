package cache

import (
	"testing"
	"time"
)

func newClocked[T any](size int, ttl time.Duration) (*LRUCache[T], *time.Time) {
	c := NewLRUCache[T](size, ttl)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUEviction(t *testing.T) {
	c, _ := newClocked[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used key should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatal("recently used key evicted")
	}
	if c.Stats().Evictions != 1 {
		t.Fatalf("stats = %+v", c.Stats())
	}
}

func TestTTLExpiry(t *testing.T) {
	c, now := newClocked[string](10, time.Minute)
	c.Set("k", "v")
	*now = now.Add(61 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	c.Set("x", "1")
	c.Set("y", "2")
	*now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
	st := c.Stats()
	if st.Misses != 1 || st.Hits != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDeletePrefixAndClear(t *testing.T) {
	c, _ := newClocked[int](10, time.Minute)
	for _, k := range []string{"/solution", "/solution/1", "/solution/1/expenses", "/users"} {
		c.Set(k, 1)
	}
	if n := c.DeletePrefix("/solution/1"); n != 2 {
		t.Fatalf("DeletePrefix removed %d, want 2", n)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatal("Clear left entries")
	}
	c.Set("again", 1)
	if _, ok := c.Get("again"); !ok {
		t.Fatal("cache unusable after Clear")
	}
}

func TestManagerCleanNow(t *testing.T) {
	c, now := newClocked[int](10, time.Second)
	c.Set("a", 1)
	*now = now.Add(time.Hour)

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d", n)
	}
	m.Stop()
}
