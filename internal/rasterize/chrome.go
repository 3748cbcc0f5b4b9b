// Package rasterize turns rendered SVG frames into PNG bytes using a remote
// Chromium reached over the DevTools protocol.
package rasterize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

var ErrClosed = errors.New("rasterizer closed")

// Chrome rasterizes through one remote allocator shared by all calls. Each
// call opens and closes its own tab.
type Chrome struct {
	cdpURL  string
	timeout time.Duration

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	closed      bool
}

func NewChrome(cdpURL string, timeout time.Duration) *Chrome {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Chrome{cdpURL: cdpURL, timeout: timeout}
}

func (c *Chrome) allocator() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.allocCtx == nil {
		slog.Info("connecting rasterizer to Chromium", "url", c.cdpURL)
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.cdpURL)
	}
	return c.allocCtx, nil
}

// Rasterize renders svg into a width x height PNG.
func (c *Chrome) Rasterize(ctx context.Context, svg string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	allocCtx, err := c.allocator()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()
	runCtx, cancel := context.WithTimeout(tabCtx, c.timeout)
	defer cancel()

	doc := Document(svg)
	var buf []byte
	err = chromedp.Run(runCtx,
		emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("rasterize: %w", ctxErr)
		}
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	return buf, nil
}

// Close releases the allocator. Later calls fail with ErrClosed.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
		c.allocCtx = nil
	}
	return nil
}

// Document wraps svg in a margin-free page so the screenshot starts at the
// frame origin.
func Document(svg string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>chartdraw</title><style>html,body{margin:0;padding:0;overflow:hidden;background:transparent}svg{display:block}</style></head><body>`)
	sb.WriteString(svg)
	sb.WriteString(`</body></html>`)
	return sb.String()
}
