// Package respcache memoizes completions for repeated identical questions
// within a short window (page reloads, double taps). It is a latency and
// cost optimization, not a correctness mechanism: a stale-but-unexpired
// answer is an accepted tradeoff.
package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultTTL is how long a cached completion stays servable.
const DefaultTTL = 5 * time.Minute

// keyPrefixChars is how much of the system prompt participates in the key.
// The prompt tail varies with conversation history, so hashing the whole
// prompt would make every turn a miss.
const keyPrefixChars = 100

type entry struct {
	response  string
	createdAt time.Time
}

// Cache maps a digest of (prompt prefix, message) to a completion with a
// fixed time-to-live. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached response for (promptPrefix, message) when a live
// entry exists. An entry past its TTL behaves as a miss even if it has not
// been swept yet.
func (c *Cache) Get(systemPrompt, message string) (string, bool) {
	k := key(systemPrompt, message)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		return "", false
	}
	return e.response, true
}

// Put stores a response and synchronously sweeps every expired entry.
// The sweep is a full scan; the cache stays small enough at family-chat
// request volume that a background eviction task is not worth having.
func (c *Cache) Put(systemPrompt, message, response string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(systemPrompt, message)] = entry{response: response, createdAt: now}
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of physically stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func key(systemPrompt, message string) string {
	prefix := systemPrompt
	if len(prefix) > keyPrefixChars {
		prefix = prefix[:keyPrefixChars]
	}
	sum := sha256.Sum256([]byte(prefix + "_" + message))
	return hex.EncodeToString(sum[:])
}
