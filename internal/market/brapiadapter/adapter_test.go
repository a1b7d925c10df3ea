package brapiadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"marketengine/internal/market"
	"marketengine/internal/market/brapi"
)

const quoteBody = `{
  "results": [
    {
      "symbol": "PETR4",
      "shortName": "PETROBRAS   PN",
      "longName": "Petróleo Brasileiro S.A. - Petrobras",
      "regularMarketPrice": 36.81,
      "regularMarketChangePercent": 1.25,
      "regularMarketDayHigh": 37.02,
      "regularMarketDayLow": 36.4,
      "regularMarketVolume": 45812000,
      "marketCap": 480000000000,
      "logourl": "https://icons.brapi.dev/icons/PETR4.svg"
    },
    {
      "symbol": "MXRF11",
      "shortName": "FII MAXI REN",
      "regularMarketPrice": 10.42,
      "regularMarketChangePercent": -0.19
    },
    {
      "symbol": "BOVA11",
      "shortName": "ISHARES BOVA",
      "regularMarketPrice": 112.3,
      "regularMarketChangePercent": 0.44
    }
  ]
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := brapi.NewClient("test", brapi.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return New(Config{}, client, nil)
}

func TestFetch_NormalizesQuotes(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(quoteBody))
	})

	items, err := a.Fetch(t.Context(), []string{"PETR4", "MXRF11", "BOVA11"})
	require.NoError(t, err)
	require.Len(t, items, 3)

	petr := items[0]
	require.Equal(t, "PETR4", petr.Ticker)
	require.Equal(t, "Petróleo Brasileiro", petr.Name)
	require.Equal(t, market.TypeStock, petr.Type)
	require.Equal(t, "R$36,81", petr.DisplayValue)
	require.Equal(t, "https://icons.brapi.dev/icons/PETR4.svg", petr.LogoURL)
	require.NotNil(t, petr.DayHigh)
	require.NotNil(t, petr.Volume)

	mxrf := items[1]
	require.Equal(t, market.TypeFII, mxrf.Type)
	require.Nil(t, mxrf.DayHigh) // absent upstream stays absent
	require.Nil(t, mxrf.Volume)
	require.Nil(t, mxrf.MarketCap)
	require.Contains(t, mxrf.LogoURL, "MXRF11") // placeholder built from ticker

	require.Equal(t, market.TypeETF, items[2].Type)
}

func TestFetch_DefaultTickersWhenNoneGiven(t *testing.T) {
	t.Parallel()

	var requested string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write([]byte(`{"results":[]}`))
	})

	_, err := a.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Contains(t, requested, "PETR4")
	require.Contains(t, requested, "BOVA11")
}

func TestFetch_ConfiguredWatchlistWinsOverBuiltin(t *testing.T) {
	t.Parallel()

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write([]byte(`{"results":[]}`))
	}))
	t.Cleanup(srv.Close)
	client, err := brapi.NewClient("test", brapi.WithBaseURL(srv.URL))
	require.NoError(t, err)
	a := New(Config{Defaults: []string{"TAEE11", "SAPR4"}}, client, nil)

	_, err = a.Fetch(t.Context(), nil)
	require.NoError(t, err)
	require.Contains(t, requested, "TAEE11")
	require.NotContains(t, requested, "PETR4")
}

func TestFetch_EmptyOnClientError(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})

	items, err := a.Fetch(t.Context(), []string{"PETR4"})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestClassify_SuffixHeuristic(t *testing.T) {
	t.Parallel()

	a := New(Config{}, nil, nil)

	require.Equal(t, market.TypeStock, a.Classify("PETR4"))
	require.Equal(t, market.TypeStock, a.Classify("VALE3"))
	require.Equal(t, market.TypeFII, a.Classify("MXRF11"))
	require.Equal(t, market.TypeFII, a.Classify("hglg11")) // case-insensitive
	require.Equal(t, market.TypeETF, a.Classify("BOVA11"))
	require.Equal(t, market.TypeETF, a.Classify("HASH11"))
	// taee11 is a unit, not a fund: the heuristic misclassifies it and that
	// behavior is part of the contract.
	require.Equal(t, market.TypeFII, a.Classify("TAEE11"))
}

func TestClassify_ETFOverrides(t *testing.T) {
	t.Parallel()

	a := New(Config{ETFOverrides: []string{"taee11"}}, nil, nil)

	require.Equal(t, market.TypeETF, a.Classify("TAEE11"))
	// the built-in list is replaced, not extended
	require.Equal(t, market.TypeFII, a.Classify("BOVA11"))
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   brapi.Quote
		want string
	}{
		{brapi.Quote{Symbol: "PETR4", LongName: "Petróleo Brasileiro S.A. - Petrobras"}, "Petróleo Brasileiro"},
		{brapi.Quote{Symbol: "VALE3", LongName: "Vale S.A."}, "Vale"},
		{brapi.Quote{Symbol: "ITUB4", ShortName: "ITAUUNIBANCO PN"}, "ITAUUNIBANCO"},
		{brapi.Quote{Symbol: "WEGE3", ShortName: "WEG         ON"}, "WEG"},
		{brapi.Quote{Symbol: "XXXX3"}, "XXXX3"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CleanName(tc.in))
	}
}
