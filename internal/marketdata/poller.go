package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

// Feed is a chart the poller keeps current.
type Feed struct {
	ChartID  string
	Symbol   string
	Interval string
}

// Tracker lists the charts to refresh and accepts their new candles.
type Tracker interface {
	Feeds() []Feed
	SetCandles(chartID string, candles []viewport.Candle) error
}

// Poller refreshes every tracked feed on a fixed cron schedule. Fetch and
// store failures are logged and the feed is retried on the next tick.
type Poller struct {
	cron    *cron.Cron
	source  Source
	tracker Tracker
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

func NewPoller(source Source, tracker Tracker, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Poller{
		cron:    cron.New(),
		source:  source,
		tracker: tracker,
		timeout: timeout,
	}
}

// Start schedules a refresh every interval and starts the cron runner.
func (p *Poller) Start(interval time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	schedule := fmt.Sprintf("@every %s", interval)
	if _, err := p.cron.AddFunc(schedule, func() { p.RefreshAll(context.Background()) }); err != nil {
		return fmt.Errorf("register candle poll %q: %w", schedule, err)
	}
	p.cron.Start()
	p.running = true
	slog.Info("candle poller started", "interval", interval.String())
	return nil
}

// Stop waits for a running refresh to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	<-p.cron.Stop().Done()
	p.running = false
	slog.Info("candle poller stopped")
}

// RefreshAll fetches each feed once and returns how many charts were updated.
func (p *Poller) RefreshAll(ctx context.Context) int {
	updated := 0
	for _, f := range p.tracker.Feeds() {
		if f.Symbol == "" || f.Interval == "" {
			continue
		}
		fctx, cancel := context.WithTimeout(ctx, p.timeout)
		candles, err := p.source.Candles(fctx, f.Symbol, f.Interval)
		cancel()
		if err != nil {
			slog.Warn("candle refresh failed", "chart_id", f.ChartID, "symbol", f.Symbol, "interval", f.Interval, "error", err)
			continue
		}
		if err := p.tracker.SetCandles(f.ChartID, candles); err != nil {
			slog.Warn("candle store failed", "chart_id", f.ChartID, "error", err)
			continue
		}
		updated++
	}
	slog.Debug("candle refresh complete", "updated", updated)
	return updated
}
