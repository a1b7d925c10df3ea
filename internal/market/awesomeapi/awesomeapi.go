// Package awesomeapi fetches BRL currency and crypto quotes from the
// AwesomeAPI batched endpoint.
package awesomeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"marketengine/internal/httpx"
	"marketengine/internal/market"
)

// pair is one requested conversion; the wire key is the pair code with the
// dash collapsed ("USD-BRL" -> "USDBRL").
type pair struct {
	code   string
	ticker string
	typ    market.Type
}

// The fixed universe: BRL equivalents of the two major foreign currencies
// plus one cryptocurrency, fetched in a single comma-joined request.
var pairs = []pair{
	{code: "USD-BRL", ticker: "USD", typ: market.TypeCurrency},
	{code: "EUR-BRL", ticker: "EUR", typ: market.TypeCurrency},
	{code: "BTC-BRL", ticker: "BTC", typ: market.TypeCrypto},
}

type Config struct {
	Name    string
	BaseURL string // default: https://economia.awesomeapi.com.br/json/last
}

// Provider fetches the fixed currency/crypto set. On any upstream failure it
// returns an empty list and no error: this source degrades silently rather
// than fabricating data.
type Provider struct {
	cfg    Config
	client *httpx.Client
	log    *slog.Logger
}

func New(cfg Config, hc *httpx.Client, log *slog.Logger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "AwesomeAPI"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://economia.awesomeapi.com.br/json/last"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Provider{cfg: cfg, client: hc, log: log}
}

func (p *Provider) Name() string { return p.cfg.Name }

// quote is the per-pair payload. Every numeric field arrives as a string.
type quote struct {
	Bid       string `json:"bid"`
	PctChange string `json:"pctChange"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Name      string `json:"name"`
}

// Fetch returns the normalized currency/crypto items. The tickers argument is
// ignored: the pair set is fixed.
func (p *Provider) Fetch(ctx context.Context, _ []string) ([]market.Item, error) {
	codes := make([]string, 0, len(pairs))
	for _, pr := range pairs {
		codes = append(codes, pr.code)
	}
	url := fmt.Sprintf("%s/%s", p.cfg.BaseURL, strings.Join(codes, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		p.log.Warn("currency source degraded to empty", "err", err)
		return []market.Item{}, nil
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		p.log.Warn("currency source degraded to empty", "err", err)
		return []market.Item{}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Warn("currency source degraded to empty", "status", resp.StatusCode)
		return []market.Item{}, nil
	}
	var body map[string]quote
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		p.log.Warn("currency source degraded to empty", "err", err)
		return []market.Item{}, nil
	}

	out := make([]market.Item, 0, len(pairs))
	for _, pr := range pairs {
		q, ok := body[strings.ReplaceAll(pr.code, "-", "")]
		if !ok {
			continue
		}
		bid, err := strconv.ParseFloat(q.Bid, 64)
		if err != nil {
			continue
		}
		variation, _ := strconv.ParseFloat(q.PctChange, 64)
		item := market.Item{
			Ticker:       pr.ticker,
			Name:         cleanName(q.Name, pr.ticker),
			Value:        bid,
			Variation:    variation,
			Type:         pr.typ,
			DisplayValue: market.FormatBRL(bid),
		}
		if high, err := strconv.ParseFloat(q.High, 64); err == nil {
			item.DayHigh = &high
		}
		if low, err := strconv.ParseFloat(q.Low, 64); err == nil {
			item.DayLow = &low
		}
		out = append(out, item)
	}
	return out, nil
}

// cleanName keeps the base asset name from pair descriptions such as
// "Dólar Americano/Real Brasileiro".
func cleanName(name, fallback string) string {
	if i := strings.Index(name, "/"); i > 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}
