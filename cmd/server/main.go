package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"marketengine/internal/config"
	"marketengine/internal/httpx"
	"marketengine/internal/market"
	"marketengine/internal/market/aggregate"
	"marketengine/internal/market/awesomeapi"
	"marketengine/internal/market/bcb"
	brapipkg "marketengine/internal/market/brapi"
	"marketengine/internal/market/brapiadapter"
	"marketengine/internal/market/cache"
	"marketengine/internal/market/ratelimit"
	"marketengine/internal/simulation"
	"marketengine/internal/slogx"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slogx.Default.Error("config", "err", err)
		os.Exit(1)
	}
	log := slogx.New(cfg.Server.LogLevel)

	if cfg.Brapi.Enabled && cfg.Brapi.Token == "" {
		log.Warn("brapi.enabled=true but BRAPI_TOKEN not set; requests may be rejected upstream")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	// Provider order fixes the overview ordering: macro, currency, equity.
	var providers []market.Provider
	var macro *bcb.Provider
	if cfg.BCB.Enabled {
		macro = bcb.New(bcb.Config{
			BaseURL:              cfg.BCB.Endpoint,
			SelicSeries:          cfg.BCB.SelicSeries,
			IPCASeries:           cfg.BCB.IPCASeries,
			RatesCacheTTLSeconds: cfg.BCB.RatesCacheTTLSeconds,
		}, httpClient, log)
		providers = append(providers, macro)
	}
	if cfg.AwesomeAPI.Enabled {
		providers = append(providers, awesomeapi.New(awesomeapi.Config{
			BaseURL: cfg.AwesomeAPI.Endpoint,
		}, httpClient, log))
	}
	if cfg.Brapi.Enabled {
		opts := []brapipkg.ClientOption{brapipkg.WithHTTPClient(httpClient.HTTP)}
		if cfg.Brapi.Endpoint != "" {
			opts = append(opts, brapipkg.WithBaseURL(cfg.Brapi.Endpoint))
		}
		client, err := brapipkg.NewClient(cfg.Brapi.Token, opts...)
		if err != nil {
			log.Error("brapi client", "err", err)
			os.Exit(1)
		}
		var p market.Provider = brapiadapter.New(brapiadapter.Config{
			ETFOverrides: cfg.Brapi.ETFOverrides,
			Defaults:     cfg.Brapi.DefaultTickers,
		}, client, log)
		// Prefer token bucket with burst if RPM is set, otherwise min-interval
		if cfg.Brapi.MaxRequestsPerMinute > 0 {
			rate := float64(cfg.Brapi.MaxRequestsPerMinute) / 60.0
			burst := cfg.Brapi.Burst
			if burst <= 0 {
				burst = 1
			}
			p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(rate, burst)}
		} else if cfg.Brapi.MinRequestIntervalSec > 0 {
			p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.Brapi.MinRequestIntervalSec) * time.Second}
		}
		if cfg.Brapi.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: time.Duration(cfg.Brapi.CacheTTLSeconds) * time.Second, MaxItems: cfg.Brapi.CacheMaxItems}
		}
		providers = append(providers, p)
	}

	agg := aggregate.New(log, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second, providers...)

	var ratesFn func(context.Context) market.Rates
	if macro != nil {
		ratesFn = macro.Rates
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/overview", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleOverview(w, r, agg)
	})
	mux.HandleFunc("/api/rates", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleRates(w, r, ratesFn)
	})
	mux.HandleFunc("/api/simulate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleSimulate(w, r, ratesFn)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func handleOverview(w http.ResponseWriter, r *http.Request, agg *aggregate.Aggregator) {
	var tickers []string
	if q := strings.TrimSpace(r.URL.Query().Get("tickers")); q != "" {
		tickers = splitCSV(q)
	}
	if len(tickers) > 50 {
		http.Error(w, "too many tickers (max 50)", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	writeJSON(w, agg.Overview(ctx, tickers))
}

func handleRates(w http.ResponseWriter, r *http.Request, ratesFn func(context.Context) market.Rates) {
	if ratesFn == nil {
		http.Error(w, "macro source disabled", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	writeJSON(w, ratesFn(ctx))
}

type simulateRequest struct {
	Config      simulation.Config `json:"config"`
	MarketRates *market.Rates     `json:"marketRates"`
}

func handleSimulate(w http.ResponseWriter, r *http.Request, ratesFn func(context.Context) market.Rates) {
	var req simulateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := req.Config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var rates market.Rates
	switch {
	case req.MarketRates != nil:
		rates = *req.MarketRates
	case ratesFn != nil:
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()
		rates = ratesFn(ctx)
	default:
		http.Error(w, "marketRates required when the macro source is disabled", http.StatusBadRequest)
		return
	}

	writeJSON(w, simulation.Run(req.Config, rates))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
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
