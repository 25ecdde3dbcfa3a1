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

func TestVsTraderFetchHistorical(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		q := r.URL.Query()
		gotQuery = map[string]string{"symbol": q.Get("symbol"), "interval": q.Get("interval"), "from": q.Get("from")}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
  {"timestamp":1709610300,"open":101,"high":102,"low":99,"close":101.5,"volume":1000},
  {"timestamp":1709524000,"open":100,"high":101,"low":98,"close":100.5,"volume":2000}
]`))
	}))
	defer srv.Close()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := NewVsTraderFetcher(srv.URL, "secret", "")
	bars, err := f.FetchHistorical(context.Background(), "TCS", start, IntervalDaily)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/bars", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, map[string]string{"symbol": "TCS", "interval": "1d", "from": "1709251200"}, gotQuery)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time), "bars come back oldest first")
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 2000.0, bars[0].Volume)
	assert.Equal(t, time.UTC, bars[1].Time.Location())
}

func TestVsTraderFetchQuote(t *testing.T) {
	var gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price":3521.4,"timestamp":1709697600}`))
	}))
	defer srv.Close()

	q, err := NewVsTraderFetcher(srv.URL, "", "").FetchQuote(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "TCS", gotSymbol)
	assert.Equal(t, "TCS", q.Symbol)
	assert.Equal(t, 3521.4, q.Price)
	assert.Equal(t, time.Unix(1709697600, 0).UTC(), q.Timestamp)
}

func TestVsTraderQuoteWithoutTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price":10}`))
	}))
	defer srv.Close()

	before := time.Now().UTC().Add(-time.Second)
	q, err := NewVsTraderFetcher(srv.URL, "", "").FetchQuote(context.Background(), "INFY")
	require.NoError(t, err)
	assert.True(t, q.Timestamp.After(before), "missing timestamp falls back to now")
}

func TestVsTraderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`unknown symbol`))
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "", "")
	_, err := f.FetchHistorical(context.Background(), "NOPE", time.Now(), IntervalDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "unknown symbol")

	_, err = f.FetchQuote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
