package market

import "context"

// Type classifies a normalized quote. The set is closed: adapters must map
// every upstream asset into one of these values.
type Type string

const (
	TypeIndex    Type = "INDEX"
	TypeCurrency Type = "CURRENCY"
	TypeStock    Type = "STOCK"
	TypeFII      Type = "FII"
	TypeCrypto   Type = "CRYPTO"
	TypeETF      Type = "ETF"
)

// Item is the normalized shape returned by all providers.
// Optional numeric fields stay nil when the upstream source does not carry
// them; no synthetic defaults.
type Item struct {
	Ticker       string   `json:"ticker"`
	Name         string   `json:"name"`
	Value        float64  `json:"value"`
	Variation    float64  `json:"variation"`
	Type         Type     `json:"type"`
	DisplayValue string   `json:"displayValue"`
	DayHigh      *float64 `json:"dayHigh,omitempty"`
	DayLow       *float64 `json:"dayLow,omitempty"`
	Volume       *int64   `json:"volume,omitempty"`
	MarketCap    *float64 `json:"marketCap,omitempty"`
	LogoURL      string   `json:"logoUrl,omitempty"`
}

// Rates carries the macro scalars consumed by the projection path.
// Values are annual percentages (10.5 means 10.5% a.a.).
type Rates struct {
	CDI   float64 `json:"cdi"`
	Selic float64 `json:"selic"`
	IPCA  float64 `json:"ipca"`
}

// Provider fetches quotes from one external source. Providers that serve a
// fixed universe (macro indicators, currency pairs) ignore tickers.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, tickers []string) ([]Item, error)
}
