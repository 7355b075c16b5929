package respcache

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	c := New(ttl)
	current := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return current }
	return c, &current
}

func TestPutThenGetWithinTTL(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Put("prompt", "how are you?", "Doing great!")
	*clock = clock.Add(4 * time.Minute)

	got, ok := c.Get("prompt", "how are you?")
	if !ok || got != "Doing great!" {
		t.Fatalf("Get() = (%q, %v), want hit with exact response", got, ok)
	}
}

func TestExpiredEntryIsMissWithoutEviction(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Put("prompt", "how are you?", "Doing great!")
	*clock = clock.Add(5 * time.Minute)

	if _, ok := c.Get("prompt", "how are you?"); ok {
		t.Fatalf("Get() hit after TTL elapsed")
	}
	// Get never sweeps; the stale entry is still physically present.
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (expired entry not yet swept)", c.Len())
	}
}

func TestPutSweepsExpiredEntries(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Put("prompt", "q1", "a1")
	c.Put("prompt", "q2", "a2")
	*clock = clock.Add(6 * time.Minute)
	c.Put("prompt", "q3", "a3")

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want only the fresh entry after sweep", c.Len())
	}
	if _, ok := c.Get("prompt", "q3"); !ok {
		t.Fatalf("fresh entry missing after sweep")
	}
}

func TestKeyUsesPromptPrefixOnly(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	base := strings.Repeat("p", 100)
	c.Put(base+" tail one", "question", "answer")

	// Same first 100 chars, different tail: same entry.
	if got, ok := c.Get(base+" tail two", "question"); !ok || got != "answer" {
		t.Fatalf("Get() with same prefix = (%q, %v), want hit", got, ok)
	}
	// Different prefix: different entry.
	if _, ok := c.Get("other prompt", "question"); ok {
		t.Fatalf("Get() with different prefix should miss")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put("prompt", "msg", "resp")
				c.Get("prompt", "msg")
			}
		}()
	}
	wg.Wait()

	if got, ok := c.Get("prompt", "msg"); !ok || got != "resp" {
		t.Fatalf("Get() after concurrent churn = (%q, %v)", got, ok)
	}
}
