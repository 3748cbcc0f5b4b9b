package marketdata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubClient(status int, body string, seen *http.Request) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if seen != nil {
			*seen = *r
		}
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}
}

const chartBody = `{"chart":{"result":[{"timestamp":[1700000000,1700000060,1700000120],
"indicators":{"quote":[{"open":[10,null,11],"high":[12,13,12.5],"low":[9,9,10],"close":[11,12,12],"volume":[100,200,null]}]}}],"error":null}}`

func TestYahooCandlesSkipsNullBars(t *testing.T) {
	var req http.Request
	src := NewYahooSource("https://example.test/", stubClient(http.StatusOK, chartBody, &req))

	got, err := src.Candles(context.Background(), "brk.b", "1H")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BRK-B", req.URL.Path)
	assert.Equal(t, "60m", req.URL.Query().Get("interval"))
	assert.Equal(t, "1mo", req.URL.Query().Get("range"))

	require.Len(t, got, 2)
	assert.Equal(t, viewport.Candle{Time: 1700000000000, Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}, got[0])
	assert.Equal(t, 1700000120000.0, got[1].Time)
	assert.Zero(t, got[1].Volume)
}

func TestYahooCandlesErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewYahooSource("https://x", stubClient(200, chartBody, nil)).Candles(ctx, "AAPL", "2D")
	assert.ErrorContains(t, err, "unsupported interval")

	_, err = NewYahooSource("https://x", stubClient(500, "boom", nil)).Candles(ctx, "AAPL", "1D")
	assert.ErrorContains(t, err, "status 500")

	_, err = NewYahooSource("https://x", stubClient(200, `{"chart":{"result":[]}}`, nil)).Candles(ctx, "AAPL", "1D")
	assert.True(t, errors.Is(err, ErrNoData))

	_, err = NewYahooSource("https://x", stubClient(200, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, nil)).Candles(ctx, "ZZZZ", "1D")
	assert.ErrorContains(t, err, "No data found")
}

func TestIntervalMapsCoverEveryInterval(t *testing.T) {
	for _, iv := range Intervals {
		assert.NotEmpty(t, yahooIntervals[iv], iv)
		assert.NotEmpty(t, yahooRanges[iv], iv)
	}
}

type fakeSource struct {
	fail map[string]bool
}

func (s fakeSource) Candles(_ context.Context, symbol, _ string) ([]viewport.Candle, error) {
	if s.fail[symbol] {
		return nil, errors.New("upstream down")
	}
	return []viewport.Candle{{Time: 1, Open: 1, High: 2, Low: 1, Close: 2}}, nil
}

type fakeTracker struct {
	mu    sync.Mutex
	feeds []Feed
	got   map[string]int
}

func (t *fakeTracker) Feeds() []Feed { return t.feeds }
func (t *fakeTracker) SetCandles(id string, cs []viewport.Candle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.got[id] += len(cs)
	return nil
}

func TestPollerRefreshAll(t *testing.T) {
	tr := &fakeTracker{
		feeds: []Feed{
			{ChartID: "a", Symbol: "AAPL", Interval: "1D"},
			{ChartID: "b", Symbol: "DOWN", Interval: "1D"},
			{ChartID: "c"},
		},
		got: map[string]int{},
	}
	p := NewPoller(fakeSource{fail: map[string]bool{"DOWN": true}}, tr, time.Second)

	assert.Equal(t, 1, p.RefreshAll(context.Background()))
	assert.Equal(t, map[string]int{"a": 1}, tr.got)
}

func TestPollerStartStop(t *testing.T) {
	tr := &fakeTracker{got: map[string]int{}}
	p := NewPoller(fakeSource{}, tr, 0)
	require.NoError(t, p.Start(time.Minute))
	require.NoError(t, p.Start(time.Minute))
	p.Stop()
	p.Stop()
}
