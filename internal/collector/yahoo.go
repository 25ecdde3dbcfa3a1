package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"PairSentinel/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public chart API.
type YahooFetcher struct {
	client    *resty.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. An empty baseURL uses
// the public endpoint.
func NewYahooFetcher(baseURL, proxyURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooFetcher{
		client: client,
		SymbolMap: map[string]string{
			"NIFTY50": "^NSEI",
			"SENSEX":  "^BSESN",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vs []*float64, i int) (float64, bool) {
	if i >= len(vs) || vs[i] == nil {
		return 0, false
	}
	return *vs[i], true
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, params map[string]string) (*yahooChart, error) {
	var chart yahooChart
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("symbol", f.yahooSymbol(symbol)).
		SetQueryParams(params).
		SetResult(&chart).
		SetError(&chart).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, errors.Wrapf(err, "yahoo fetch %s", symbol)
	}
	if chart.Chart.Error != nil {
		return nil, errors.Errorf("yahoo api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if resp.IsError() {
		return nil, errors.Errorf("yahoo %s: status %d", symbol, resp.StatusCode())
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.Errorf("yahoo %s: no data returned", symbol)
	}
	return &chart, nil
}

func (f *YahooFetcher) FetchHistorical(ctx context.Context, symbol string, start time.Time, interval string) ([]model.OHLCV, error) {
	chart, err := f.fetchChart(ctx, symbol, map[string]string{
		"interval": interval,
		"period1":  fmt.Sprint(start.Unix()),
		"period2":  fmt.Sprint(time.Now().Unix()),
	})
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.Errorf("yahoo %s: no quote indicators", symbol)
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c, ok := at(quote.Close, i)
		if !ok {
			continue // null bars (holidays etc.)
		}
		o, _ := at(quote.Open, i)
		h, _ := at(quote.High, i)
		l, _ := at(quote.Low, i)
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (*model.LiveQuote, error) {
	chart, err := f.fetchChart(ctx, symbol, map[string]string{"interval": "1d", "range": "1d"})
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if p := result.Meta.RegularMarketPrice; p != nil {
		return &model.LiveQuote{
			Symbol:    symbol,
			Price:     *p,
			Timestamp: time.Unix(result.Meta.RegularMarketTime, 0).UTC(),
		}, nil
	}
	// Fall back to the last non-null close of the day.
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if c, ok := at(closes, i); ok {
				ts := time.Now().UTC()
				if i < len(result.Timestamp) {
					ts = time.Unix(result.Timestamp[i], 0).UTC()
				}
				return &model.LiveQuote{Symbol: symbol, Price: c, Timestamp: ts}, nil
			}
		}
	}
	return nil, errors.Errorf("yahoo %s: no price data", symbol)
}
