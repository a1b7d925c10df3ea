package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	LogLevel          string `json:"log_level"`
}

type BCB struct {
	Enabled              bool   `json:"enabled"`
	Endpoint             string `json:"endpoint"`
	SelicSeries          int    `json:"selic_series"`
	IPCASeries           int    `json:"ipca_series"`
	RatesCacheTTLSeconds int    `json:"rates_cache_ttl_sec"`
}

type AwesomeAPI struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

type Brapi struct {
	Enabled               bool     `json:"enabled"`
	Token                 string   `json:"token"`
	Endpoint              string   `json:"endpoint"`
	DefaultTickers        []string `json:"default_tickers"`
	ETFOverrides          []string `json:"etf_overrides"`
	MaxRequestsPerMinute  int      `json:"max_requests_per_minute"`
	MinRequestIntervalSec int      `json:"min_request_interval_sec"`
	Burst                 int      `json:"burst"`
	CacheTTLSeconds       int      `json:"cache_ttl_sec"`
	CacheMaxItems         int      `json:"cache_max_items"`
}

type Config struct {
	Server     Server     `json:"server"`
	BCB        BCB        `json:"bcb"`
	AwesomeAPI AwesomeAPI `json:"awesomeapi"`
	Brapi      Brapi      `json:"brapi"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, LogLevel: "info"},
		BCB: BCB{
			Enabled:              true,
			SelicSeries:          432,
			IPCASeries:           13522,
			RatesCacheTTLSeconds: 300,
		},
		AwesomeAPI: AwesomeAPI{
			Enabled: true,
		},
		Brapi: Brapi{
			Enabled:              true,
			MaxRequestsPerMinute: 10,
			Burst:                2,
			CacheTTLSeconds:      30,
			CacheMaxItems:        500,
		},
	}
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}

	if v := os.Getenv("BCB_ENABLED"); v != "" {
		cfg.BCB.Enabled = parseBool(v, cfg.BCB.Enabled)
	}
	if v := os.Getenv("BCB_ENDPOINT"); v != "" {
		cfg.BCB.Endpoint = v
	}
	if v := os.Getenv("BCB_SELIC_SERIES"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.BCB.SelicSeries = x
		}
	}
	if v := os.Getenv("BCB_IPCA_SERIES"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.BCB.IPCASeries = x
		}
	}
	if v := os.Getenv("BCB_RATES_CACHE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.BCB.RatesCacheTTLSeconds = x
		}
	}

	if v := os.Getenv("AWESOMEAPI_ENABLED"); v != "" {
		cfg.AwesomeAPI.Enabled = parseBool(v, cfg.AwesomeAPI.Enabled)
	}
	if v := os.Getenv("AWESOMEAPI_ENDPOINT"); v != "" {
		cfg.AwesomeAPI.Endpoint = v
	}

	if v := os.Getenv("BRAPI_ENABLED"); v != "" {
		cfg.Brapi.Enabled = parseBool(v, cfg.Brapi.Enabled)
	}
	if v := os.Getenv("BRAPI_TOKEN"); v != "" {
		cfg.Brapi.Token = v
	}
	if v := os.Getenv("BRAPI_ENDPOINT"); v != "" {
		cfg.Brapi.Endpoint = v
	}
	if v := os.Getenv("BRAPI_DEFAULT_TICKERS"); v != "" {
		cfg.Brapi.DefaultTickers = splitCSV(v)
	}
	if v := os.Getenv("BRAPI_ETF_OVERRIDES"); v != "" {
		cfg.Brapi.ETFOverrides = splitCSV(v)
	}
	if v := os.Getenv("BRAPI_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Brapi.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("BRAPI_MIN_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Brapi.MinRequestIntervalSec = x
		}
	}
	if v := os.Getenv("BRAPI_BURST"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Brapi.Burst = x
		}
	}
	if v := os.Getenv("BRAPI_CACHE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Brapi.CacheTTLSeconds = x
		}
	}
	if v := os.Getenv("BRAPI_CACHE_MAX_ITEMS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Brapi.CacheMaxItems = x
		}
	}
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
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
