// Package bcb fetches macro indicators (Selic, IPCA) from the central bank
// SGS time-series API and derives the CDI reference yield from them.
package bcb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"marketengine/internal/httpx"
	"marketengine/internal/market"
)

// CDI trades a fixed hair under the Selic target; the spread subtraction is a
// business rule, not a configuration knob.
const cdiSpread = 0.10

// Last-known values served when the SGS API is unreachable or returns
// garbage. Stale/synthetic macro data is an accepted trade-off: the overview
// must never stall on this source.
const (
	fallbackSelic = 10.75
	fallbackIPCA  = 4.50
)

type Config struct {
	Name        string
	BaseURL     string // default: https://api.bcb.gov.br/dados/serie
	SelicSeries int    // SGS series code for the Selic target, default 432
	IPCASeries  int    // SGS series code for 12-month IPCA, default 13522
	// RatesCacheTTLSeconds caches the fetched series for this long.
	// If <= 0 a short default applies; the SGS values change at most daily.
	RatesCacheTTLSeconds int
}

// Provider serves the macro INDEX items and the Rates consumed by the
// projection path. Fetch never returns an error: every failure mode degrades
// to the hardcoded fallback values.
type Provider struct {
	cfg    Config
	client *httpx.Client
	log    *slog.Logger

	mu    sync.RWMutex
	rates market.Rates
	until time.Time

	// coalesce concurrent refreshes
	sf singleflight.Group
}

func New(cfg Config, hc *httpx.Client, log *slog.Logger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "BCB"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.bcb.gov.br/dados/serie"
	}
	if cfg.SelicSeries == 0 {
		cfg.SelicSeries = 432
	}
	if cfg.IPCASeries == 0 {
		cfg.IPCASeries = 13522
	}
	if log == nil {
		log = slog.Default()
	}
	return &Provider{cfg: cfg, client: hc, log: log}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch returns the macro indicator items. The tickers argument is ignored:
// this source serves a fixed universe.
func (p *Provider) Fetch(ctx context.Context, _ []string) ([]market.Item, error) {
	r := p.Rates(ctx)
	items := []market.Item{
		{
			Ticker:       "CDI",
			Name:         "CDI",
			Value:        r.CDI,
			Type:         market.TypeIndex,
			DisplayValue: market.FormatPercent(r.CDI),
		},
		{
			Ticker:       "SELIC",
			Name:         "Taxa Selic",
			Value:        r.Selic,
			Type:         market.TypeIndex,
			DisplayValue: market.FormatPercent(r.Selic),
		},
		{
			Ticker:       "IPCA",
			Name:         "IPCA (12 meses)",
			Value:        r.IPCA,
			Type:         market.TypeIndex,
			DisplayValue: market.FormatPercent(r.IPCA),
		},
	}
	return items, nil
}

// Rates returns the current macro rates, refreshing from the SGS API when the
// cached snapshot expired. Per-series failures substitute the fallback value;
// the method never fails.
func (p *Provider) Rates(ctx context.Context) market.Rates {
	p.mu.RLock()
	if !p.until.IsZero() && time.Now().Before(p.until) {
		r := p.rates
		p.mu.RUnlock()
		return r
	}
	p.mu.RUnlock()

	v, _, _ := p.sf.Do("rates", func() (any, error) {
		r := p.refresh(ctx)
		ttl := time.Duration(p.cfg.RatesCacheTTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = time.Minute
		}
		p.mu.Lock()
		p.rates = r
		p.until = time.Now().Add(ttl)
		p.mu.Unlock()
		return r, nil
	})
	return v.(market.Rates)
}

func (p *Provider) refresh(ctx context.Context) market.Rates {
	selic, err := p.fetchSeries(ctx, p.cfg.SelicSeries)
	if err != nil {
		p.log.Warn("macro series degraded to fallback", "series", p.cfg.SelicSeries, "err", err)
		selic = fallbackSelic
	}
	ipca, err := p.fetchSeries(ctx, p.cfg.IPCASeries)
	if err != nil {
		p.log.Warn("macro series degraded to fallback", "series", p.cfg.IPCASeries, "err", err)
		ipca = fallbackIPCA
	}
	return market.Rates{CDI: selic - cdiSpread, Selic: selic, IPCA: ipca}
}

// observation is one SGS reading; valor comes over the wire as a numeric
// string.
type observation struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// fetchSeries retrieves the most recent value of one SGS series.
func (p *Provider) fetchSeries(ctx context.Context, series int) (float64, error) {
	url := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/1?formato=json", p.cfg.BaseURL, series)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("GET %s -> %d", url, resp.StatusCode)
	}
	var obs []observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if len(obs) == 0 {
		return 0, fmt.Errorf("series %d: empty response", series)
	}
	v, err := strconv.ParseFloat(obs[len(obs)-1].Valor, 64)
	if err != nil {
		return 0, fmt.Errorf("series %d: parse %q: %w", series, obs[len(obs)-1].Valor, err)
	}
	return v, nil
}
