package brapi_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	brapi "marketengine/internal/market/brapi"
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
    }
  ]
}`

func TestGetQuote_DecodesResults(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "PETR4,MXRF11")
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       readCloser(quoteBody),
			}, nil
		}).
		Times(1)

	client, err := brapi.NewClient("test", brapi.WithHTTPClient(httpClient))
	require.NoError(t, err)

	quotes, err := client.GetQuote(t.Context(), []string{"PETR4", "MXRF11"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	petr := quotes[0]
	require.Equal(t, "PETR4", petr.Symbol)
	require.InDelta(t, 36.81, petr.RegularMarketPrice, 1e-9)
	require.NotNil(t, petr.RegularMarketDayHigh)
	require.InDelta(t, 37.02, *petr.RegularMarketDayHigh, 1e-9)
	require.NotNil(t, petr.RegularMarketVolume)
	require.EqualValues(t, 45812000, *petr.RegularMarketVolume)

	// Optional fields absent upstream must stay nil.
	mxrf := quotes[1]
	require.Nil(t, mxrf.RegularMarketDayHigh)
	require.Nil(t, mxrf.RegularMarketVolume)
	require.Nil(t, mxrf.MarketCap)
	require.Empty(t, mxrf.LogoURL)
}

func TestGetQuote_ErrorStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"not found", http.StatusNotFound},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(&http.Response{StatusCode: tc.status, Body: readCloser("")}, nil).
				Times(1)

			client, err := brapi.NewClient("test", brapi.WithHTTPClient(httpClient))
			require.NoError(t, err)

			_, err = client.GetQuote(t.Context(), []string{"PETR4"})
			require.Error(t, err)
		})
	}
}

func TestGetQuote_NoTickers(t *testing.T) {
	t.Parallel()

	client, err := brapi.NewClient("test")
	require.NoError(t, err)

	_, err = client.GetQuote(t.Context(), nil)
	require.Error(t, err)
}

func readCloser(s string) *nopCloser {
	return &nopCloser{bytes.NewBufferString(s)}
}

type nopCloser struct{ *bytes.Buffer }

func (n *nopCloser) Close() error { return nil }
