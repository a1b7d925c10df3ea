// Package brapiadapter maps brapi quote results into the normalized market
// item shape, classifying each ticker into STOCK, FII or ETF.
package brapiadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"marketengine/internal/market"
	"marketengine/internal/market/brapi"
)

// DefaultTickers is the fixed list used when the caller supplies none.
var DefaultTickers = []string{
	"PETR4", "VALE3", "ITUB4", "BBDC4", "WEGE3",
	"MXRF11", "HGLG11", "KNRI11",
	"BOVA11", "IVVB11",
}

// etfAllowList overrides the "11"-suffix rule: these symbols end in 11 but
// are exchange-traded funds, not real-estate funds. Any 11-suffixed ticker
// outside this list classifies as FII, which is a known misclassification
// source for exotic symbols.
var etfAllowList = map[string]struct{}{
	"BOVA11": {},
	"IVVB11": {},
	"SMAL11": {},
	"SPXI11": {},
	"HASH11": {},
	"GOLD11": {},
}

// corporateSuffixes are stripped from display names, longest first.
var corporateSuffixes = []string{
	" S.A. - PETROBRAS",
	" S.A.", " S/A", " SA",
	" ON", " PN", " UNT",
	" N1", " N2", " NM", " MA",
}

type Config struct {
	Name string
	// ETFOverrides replaces the built-in ETF allow-list when non-empty.
	ETFOverrides []string
	// Defaults replaces DefaultTickers as the empty-request watchlist.
	Defaults []string
}

// Adapter turns the raw brapi client into a market.Provider. Client errors
// are swallowed at this boundary: the adapter contributes an empty list and
// no error, so one broken source never fails the aggregation.
type Adapter struct {
	cfg    Config
	client *brapi.Client
	log    *slog.Logger
	etfs   map[string]struct{}
}

func New(cfg Config, client *brapi.Client, log *slog.Logger) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Brapi"
	}
	if log == nil {
		log = slog.Default()
	}
	etfs := etfAllowList
	if len(cfg.ETFOverrides) > 0 {
		etfs = make(map[string]struct{}, len(cfg.ETFOverrides))
		for _, s := range cfg.ETFOverrides {
			etfs[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
		}
	}
	return &Adapter{cfg: cfg, client: client, log: log, etfs: etfs}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Fetch(ctx context.Context, tickers []string) ([]market.Item, error) {
	if len(tickers) == 0 {
		tickers = a.cfg.Defaults
	}
	if len(tickers) == 0 {
		tickers = DefaultTickers
	}
	quotes, err := a.client.GetQuote(ctx, tickers)
	if err != nil {
		a.log.Warn("equity source degraded to empty", "err", err)
		return []market.Item{}, nil
	}

	out := make([]market.Item, 0, len(quotes))
	for _, q := range quotes {
		if q.Symbol == "" {
			continue
		}
		item := market.Item{
			Ticker:    q.Symbol,
			Name:      CleanName(q),
			Value:     q.RegularMarketPrice,
			Variation: q.RegularMarketChangePercent,
			Type:      a.Classify(q.Symbol),
			DayHigh:   q.RegularMarketDayHigh,
			DayLow:    q.RegularMarketDayLow,
			Volume:    q.RegularMarketVolume,
			MarketCap: q.MarketCap,
			LogoURL:   q.LogoURL,
		}
		item.DisplayValue = market.Display(item.Type, item.Value)
		if item.LogoURL == "" {
			item.LogoURL = placeholderLogo(q.Symbol)
		}
		out = append(out, item)
	}
	return out, nil
}

// Classify applies the ticker-suffix heuristic: symbols ending in "11" are
// real-estate funds unless they appear in the ETF allow-list; everything else
// is a common stock.
func (a *Adapter) Classify(symbol string) market.Type {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := a.etfs[s]; ok {
		return market.TypeETF
	}
	if strings.HasSuffix(s, "11") {
		return market.TypeFII
	}
	return market.TypeStock
}

// CleanName prefers the long name and strips corporate suffixes from it.
func CleanName(q brapi.Quote) string {
	name := q.LongName
	if name == "" {
		name = q.ShortName
	}
	if name == "" {
		return q.Symbol
	}
	upper := strings.ToUpper(name)
	for _, suf := range corporateSuffixes {
		if strings.HasSuffix(upper, suf) {
			name = strings.TrimSpace(name[:len(name)-len(suf)])
			upper = strings.ToUpper(name)
		}
	}
	// collapse internal runs of spaces left by padded short names
	return strings.Join(strings.Fields(name), " ")
}

// placeholderLogo builds a deterministic placeholder image URL for tickers
// the source has no logo for.
func placeholderLogo(symbol string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=random", strings.ToUpper(symbol))
}
