// Package aggregate fans out to every quote provider concurrently and merges
// whatever succeeded into one ordered overview.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketengine/internal/market"
)

// SourceStatus reports how one provider contributed to an overview, so
// callers can surface "market data partially unavailable" instead of
// silently showing fewer rows.
type SourceStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Items int    `json:"items"`
	Error string `json:"error,omitempty"`
}

// Overview is the merged result of one aggregation call. Items keeps the
// provider registration order (macro, currency/crypto, equity/fund); length
// and composition vary with which sources were reachable.
type Overview struct {
	Items   []market.Item  `json:"items"`
	Sources []SourceStatus `json:"sources"`
}

// Aggregator runs its providers concurrently and always settles: a provider
// error or panic costs only that provider's contribution, never the call.
type Aggregator struct {
	providers []market.Provider
	timeout   time.Duration
	log       *slog.Logger
}

// New builds an aggregator over providers in contribution order. timeout
// bounds each provider call independently; <= 0 falls back to 10s so a slow
// source can never hang the overview.
func New(log *slog.Logger, timeout time.Duration, providers ...market.Provider) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{providers: providers, timeout: timeout, log: log}
}

// Overview fetches from all providers concurrently and concatenates the
// successful results in registration order. It never returns an error.
func (a *Aggregator) Overview(ctx context.Context, tickers []string) Overview {
	type result struct {
		items []market.Item
		err   error
	}
	results := make([]result, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p market.Provider) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = result{err: fmt.Errorf("panic: %v", rec)}
				}
			}()
			pctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			items, err := p.Fetch(pctx, tickers)
			results[i] = result{items: items, err: err}
		}(i, p)
	}
	wg.Wait()

	out := Overview{Sources: make([]SourceStatus, 0, len(a.providers))}
	for i, p := range a.providers {
		r := results[i]
		st := SourceStatus{Name: p.Name(), OK: r.err == nil, Items: len(r.items)}
		if r.err != nil {
			st.Error = r.err.Error()
			a.log.Warn("provider dropped from overview", "provider", p.Name(), "err", r.err)
		} else {
			out.Items = append(out.Items, r.items...)
		}
		out.Sources = append(out.Sources, st)
	}
	return out
}
