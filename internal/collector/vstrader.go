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

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	client *resty.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string) *VsTraderFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &VsTraderFetcher{client: client}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *VsTraderFetcher) FetchHistorical(ctx context.Context, symbol string, start time.Time, interval string) ([]model.OHLCV, error) {
	var vsBars []vsBar
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"from":     fmt.Sprint(start.Unix()),
		}).
		SetResult(&vsBars).
		Get("/api/v1/bars")
	if err != nil {
		return nil, errors.Wrapf(err, "fetch bars %s", symbol)
	}
	if resp.IsError() {
		return nil, errors.Errorf("fetch bars %s: status %d, body: %s", symbol, resp.StatusCode(), resp.String())
	}

	bars := make([]model.OHLCV, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.OHLCV{
			Time:   time.Unix(vb.Timestamp, 0).UTC(),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *VsTraderFetcher) FetchQuote(ctx context.Context, symbol string) (*model.LiveQuote, error) {
	var result struct {
		Price     float64 `json:"price"`
		Timestamp int64   `json:"timestamp"`
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get("/api/v1/quote")
	if err != nil {
		return nil, errors.Wrapf(err, "fetch quote %s", symbol)
	}
	if resp.IsError() {
		return nil, errors.Errorf("fetch quote %s: status %d", symbol, resp.StatusCode())
	}
	ts := time.Now().UTC()
	if result.Timestamp > 0 {
		ts = time.Unix(result.Timestamp, 0).UTC()
	}
	return &model.LiveQuote{Symbol: symbol, Price: result.Price, Timestamp: ts}, nil
}
