package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"regularMarketPrice":3521.4,"regularMarketTime":1709697600},
  "timestamp":[1709610300,1709524000,1709696700],
  "indicators":{"quote":[{
    "open":[101,100,null],
    "high":[102,101,null],
    "low":[99,98,null],
    "close":[101.5,100.5,null],
    "volume":[1000,2000,null]
  }]}
}],"error":null}}`

func TestYahooFetchHistorical(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "")
	bars, err := f.FetchHistorical(context.Background(), "TCS.NS", time.Now().AddDate(-1, 0, 0), IntervalDaily)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/TCS.NS", gotPath)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2, "null bar must be skipped")
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 101.5, bars[1].Close)
}

func TestYahooFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	q, err := NewYahooFetcher(srv.URL, "").FetchQuote(context.Background(), "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", q.Symbol)
	assert.Equal(t, 3521.4, q.Price)
}

func TestYahooAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahooFetcher(srv.URL, "").FetchHistorical(context.Background(), "NOPE.NS", time.Now(), IntervalDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}
