// Package marketdata loads OHLC candles for a chart from an upstream quote
// provider and keeps tracked charts refreshed on a schedule.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

// Source fetches candles for a symbol at a chart interval.
type Source interface {
	Candles(ctx context.Context, symbol, interval string) ([]viewport.Candle, error)
}

var ErrNoData = errors.New("no candle data")

// Chart intervals mapped to the upstream bar size and lookback.
var (
	yahooIntervals = map[string]string{
		"1m": "1m", "5m": "5m", "15m": "15m",
		"1H": "60m", "4H": "60m",
		"1D": "1d", "1W": "1wk", "1M": "1mo", "1Y": "1mo",
	}
	yahooRanges = map[string]string{
		"1m": "1d", "5m": "5d", "15m": "5d",
		"1H": "1mo", "4H": "1mo",
		"1D": "1y", "1W": "2y", "1M": "5y", "1Y": "10y",
	}
)

// Intervals are the chart intervals YahooSource accepts.
var Intervals = []string{"1m", "5m", "15m", "1H", "4H", "1D", "1W", "1M", "1Y"}

// YahooSource reads the Yahoo Finance v8 chart endpoint.
type YahooSource struct {
	baseURL string
	client  *http.Client
}

// NewYahooSource returns a source rooted at baseURL. A nil client gets an
// 8 second timeout.
func NewYahooSource(baseURL string, client *http.Client) *YahooSource {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &YahooSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// YahooSymbol normalizes share-class dots (BRK.B becomes BRK-B).
func YahooSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), ".", "-")
}

type chartResponse struct {
	Chart struct {
		Result []struct {
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

func (s *YahooSource) Candles(ctx context.Context, symbol, interval string) ([]viewport.Candle, error) {
	yInterval, ok := yahooIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval %q", interval)
	}
	sym := YahooSymbol(symbol)
	if sym == "" {
		return nil, errors.New("symbol is required")
	}

	q := url.Values{}
	q.Set("interval", yInterval)
	q.Set("range", yahooRanges[interval])
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.baseURL, url.PathEscape(sym), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sym, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("yahoo response close failed", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", sym, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", sym, err)
	}
	if e := parsed.Chart.Error; e != nil {
		return nil, fmt.Errorf("fetch %s: %s: %s", sym, e.Code, e.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, sym)
	}

	res := parsed.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	candles := make([]viewport.Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		open, high, low, cl := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if open == nil || high == nil || low == nil || cl == nil {
			continue
		}
		vol := 0.0
		if v := at(quote.Volume, i); v != nil {
			vol = *v
		}
		candles = append(candles, viewport.Candle{
			Time:   float64(ts * 1000),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *cl,
			Volume: finiteOrZero(vol),
		})
	}
	candles = viewport.Sanitize(candles)
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, sym)
	}
	return candles, nil
}

func at(vs []*float64, i int) *float64 {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
