package fx

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL keeps a fetched rate for an hour.
	DefaultTTL = time.Hour
	// FallbackRate is returned when the endpoint fails and nothing is
	// cached yet.
	FallbackRate = 34.5
)

// Cache wraps a RateSource with a TTL. It is an explicit injected object,
// not module-level state: the owner passes it to whichever flow needs a
// rate, and the clock is injectable so TTL behavior is testable.
//
// The fetch on a cold or expired cache is synchronous. Two callers missing
// the cache at once produce two redundant fetches, not corruption; that is
// acceptable at a 1-hour TTL.
type Cache struct {
	source   RateSource
	ttl      time.Duration
	fallback float64
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.Mutex
	rate      float64
	fetchedAt time.Time
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

func WithFallback(rate float64) CacheOption {
	return func(c *Cache) { c.fallback = rate }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(source RateSource, logger *slog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		source:   source,
		ttl:      DefaultTTL,
		fallback: FallbackRate,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate returns the cached rate while fresh, fetching otherwise. On fetch
// failure it degrades to the last cached value, then to the fallback
// constant; it never returns an error because the promotion flow prefers an
// approximate rate over no quote.
func (c *Cache) Rate(ctx context.Context) float64 {
	c.mu.Lock()
	rate := c.rate
	fresh := rate > 0 && c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.Unlock()
	if fresh {
		return rate
	}

	fetched, err := c.source.FetchRate(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("fx fetch failed", "error", err)
		}
		if rate > 0 {
			return rate
		}
		return c.fallback
	}

	c.mu.Lock()
	c.rate = fetched
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return fetched
}
