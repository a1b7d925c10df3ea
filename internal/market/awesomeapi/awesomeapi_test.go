package awesomeapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketengine/internal/httpx"
	"marketengine/internal/market"
)

const sampleBody = `{
  "USDBRL": {"code":"USD","name":"Dólar Americano/Real Brasileiro","bid":"5.4212","pctChange":"0.35","high":"5.4601","low":"5.3987"},
  "EURBRL": {"code":"EUR","name":"Euro/Real Brasileiro","bid":"5.8901","pctChange":"-0.12","high":"5.9205","low":"5.8711"},
  "BTCBRL": {"code":"BTC","name":"Bitcoin/Real Brasileiro","bid":"348750.10","pctChange":"2.81","high":"352001.00","low":"341200.55"}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, httpx.New(2*time.Second), nil)
}

func TestFetch_NormalizesPairs(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "USD-BRL,EUR-BRL,BTC-BRL")
		w.Write([]byte(sampleBody))
	})

	items, err := p.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Len(t, items, 3)

	usd := items[0]
	require.Equal(t, "USD", usd.Ticker)
	require.Equal(t, "Dólar Americano", usd.Name) // pair suffix stripped
	require.Equal(t, market.TypeCurrency, usd.Type)
	require.InDelta(t, 5.4212, usd.Value, 1e-9)
	require.InDelta(t, 0.35, usd.Variation, 1e-9)
	require.Equal(t, "R$5,42", usd.DisplayValue)
	require.NotNil(t, usd.DayHigh)
	require.NotNil(t, usd.DayLow)
	require.InDelta(t, 5.4601, *usd.DayHigh, 1e-9)

	require.Equal(t, market.TypeCrypto, items[2].Type)
	require.Equal(t, "Bitcoin", items[2].Name)
}

func TestFetch_EmptyOnServerError(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	items, err := p.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestFetch_EmptyOnMalformedBody(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[`))
	})

	items, err := p.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestFetch_SkipsUnparsablePair(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"USDBRL":{"name":"Dólar Americano/Real Brasileiro","bid":"not-a-number"},"EURBRL":{"name":"Euro/Real Brasileiro","bid":"5.89","pctChange":"0.10"}}`))
	})

	items, err := p.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "EUR", items[0].Ticker)
	require.Nil(t, items[0].DayHigh) // absent upstream stays absent
}
