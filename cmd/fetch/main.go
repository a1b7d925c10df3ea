package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"marketengine/internal/config"
	"marketengine/internal/httpx"
	"marketengine/internal/market"
	"marketengine/internal/market/aggregate"
	"marketengine/internal/market/awesomeapi"
	"marketengine/internal/market/bcb"
	brapipkg "marketengine/internal/market/brapi"
	"marketengine/internal/market/brapiadapter"
	"marketengine/internal/simulation"
	"marketengine/internal/slogx"
)

func main() {
	var tickersCSV string
	var timeout int
	var configPath string
	var simulate bool
	var initial float64
	var monthly float64
	var years int
	var profile string
	var target float64
	var inflation bool
	var compareSavings bool

	flag.StringVar(&tickersCSV, "tickers", getenv("TICKERS", ""), "comma-separated B3 tickers (empty = default watchlist)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.BoolVar(&simulate, "simulate", false, "run an investment projection instead of the market overview")
	flag.Float64Var(&initial, "initial", 0, "initial amount (BRL)")
	flag.Float64Var(&monthly, "monthly", 0, "monthly contribution (BRL)")
	flag.IntVar(&years, "years", 10, "projection horizon in years")
	flag.StringVar(&profile, "profile", string(simulation.Moderate), "risk profile: CONSERVATIVE, MODERATE or AGGRESSIVE")
	flag.Float64Var(&target, "target", 0, "goal amount; > 0 enables the required-monthly solver")
	flag.BoolVar(&inflation, "inflation", false, "discount projections by IPCA")
	flag.BoolVar(&compareSavings, "compare-savings", false, "flag the savings benchmark for rendering")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	logger := slogx.New(cfg.Server.LogLevel)
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	var macro *bcb.Provider
	if cfg.BCB.Enabled {
		macro = bcb.New(bcb.Config{
			BaseURL:              cfg.BCB.Endpoint,
			SelicSeries:          cfg.BCB.SelicSeries,
			IPCASeries:           cfg.BCB.IPCASeries,
			RatesCacheTTLSeconds: cfg.BCB.RatesCacheTTLSeconds,
		}, httpClient, logger)
	}

	if simulate {
		if macro == nil {
			log.Fatal("simulation needs the BCB source enabled for live rates")
		}
		simCfg := simulation.Config{
			InitialAmount:       initial,
			MonthlyContribution: monthly,
			Years:               years,
			Profile:             simulation.Profile(strings.ToUpper(profile)),
			TargetAmount:        target,
			IncludeInflation:    inflation,
			CompareWithSavings:  compareSavings,
		}
		if err := simCfg.Validate(); err != nil {
			log.Fatalf("simulation config: %v", err)
		}
		rates := macro.Rates(ctx)
		printJSON(simulation.Run(simCfg, rates))
		return
	}

	var providers []market.Provider
	if macro != nil {
		providers = append(providers, macro)
	}
	if cfg.AwesomeAPI.Enabled {
		providers = append(providers, awesomeapi.New(awesomeapi.Config{
			BaseURL: cfg.AwesomeAPI.Endpoint,
		}, httpClient, logger))
	}
	if cfg.Brapi.Enabled {
		opts := []brapipkg.ClientOption{brapipkg.WithHTTPClient(httpClient.HTTP)}
		if cfg.Brapi.Endpoint != "" {
			opts = append(opts, brapipkg.WithBaseURL(cfg.Brapi.Endpoint))
		}
		client, err := brapipkg.NewClient(cfg.Brapi.Token, opts...)
		if err != nil {
			log.Fatalf("brapi client: %v", err)
		}
		providers = append(providers, brapiadapter.New(brapiadapter.Config{
			ETFOverrides: cfg.Brapi.ETFOverrides,
			Defaults:     cfg.Brapi.DefaultTickers,
		}, client, logger))
	}
	if len(providers) == 0 {
		log.Fatal("no data sources enabled; check config.json or env overrides")
	}

	agg := aggregate.New(logger, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second, providers...)
	overview := agg.Overview(ctx, splitCSV(tickersCSV))
	for _, s := range overview.Sources {
		if s.OK {
			log.Printf("%s: %d items", s.Name, s.Items)
		} else {
			log.Printf("%s error: %s", s.Name, s.Error)
		}
	}
	if len(overview.Items) == 0 {
		log.Fatal("no market data received")
	}
	printJSON(overview)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
