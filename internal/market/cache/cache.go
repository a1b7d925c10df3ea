package cache

import (
	"context"
	"sync"
	"time"

	"marketengine/internal/market"
)

// entry stores cached items for a single ticker with expiry.
type entry struct {
	expiresAt time.Time
	items     []market.Item
}

// Provider caches results per ticker for a TTL. It requests only missing
// tickers from the underlying provider and combines cached + fresh results.
// When the upstream degrades, valid cached items still serve.
type Provider struct {
	P        market.Provider
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry // key: ticker
}

func (c *Provider) Name() string { return c.P.Name() }

// Fetch returns items for requested tickers using cache when valid.
func (c *Provider) Fetch(ctx context.Context, tickers []string) ([]market.Item, error) {
	if c.P == nil || c.TTL <= 0 || len(tickers) == 0 {
		return c.P.Fetch(ctx, tickers)
	}

	now := time.Now()

	// Split into cached and missing tickers
	cached := make([]market.Item, 0, len(tickers))
	missingSet := make(map[string]struct{}, len(tickers))

	c.mu.RLock()
	for _, s := range tickers {
		if e, ok := c.items[s]; ok && now.Before(e.expiresAt) {
			cached = append(cached, e.items...)
			continue
		}
		missingSet[s] = struct{}{}
	}
	c.mu.RUnlock()

	if len(missingSet) == 0 {
		return cached, nil
	}

	// Unique missing tickers, preserving request order
	missing := make([]string, 0, len(missingSet))
	seen := make(map[string]struct{}, len(missingSet))
	for _, s := range tickers {
		if _, ok := missingSet[s]; ok {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				missing = append(missing, s)
			}
		}
	}

	fresh, err := c.P.Fetch(ctx, missing)
	if err != nil {
		// Serve whatever cached data remains rather than failing entirely
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, err
	}

	byTicker := make(map[string][]market.Item, len(missing))
	for _, it := range fresh {
		byTicker[it.Ticker] = append(byTicker[it.Ticker], it)
	}

	expiry := now.Add(c.TTL)
	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[string]entry, len(byTicker))
	}
	for tk, its := range byTicker {
		c.items[tk] = entry{expiresAt: expiry, items: its}
	}
	// best-effort cap: expired entries first, then arbitrary
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
			if len(c.items) <= c.MaxItems {
				break
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	// Merge cached and fresh preserving request order
	out := make([]market.Item, 0, len(cached)+len(fresh))
	for _, s := range tickers {
		if its, ok := byTicker[s]; ok {
			out = append(out, its...)
			continue
		}
		c.mu.RLock()
		if e, ok := c.items[s]; ok && now.Before(e.expiresAt) {
			out = append(out, e.items...)
		}
		c.mu.RUnlock()
	}
	return out, nil
}
