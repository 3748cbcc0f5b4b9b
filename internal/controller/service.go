package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/chartdraw/internal/assistant"
	"github.com/dgnsrekt/chartdraw/internal/defaults"
	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/marketdata"
	"github.com/dgnsrekt/chartdraw/internal/relay"
	"github.com/dgnsrekt/chartdraw/internal/render"
	"github.com/dgnsrekt/chartdraw/internal/snapshot"
	"github.com/dgnsrekt/chartdraw/internal/trace"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

// Rasterizer converts a rendered SVG document into PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, svg string, width, height int) ([]byte, error)
}

// Tracer records interaction events.
type Tracer interface {
	Write(rec trace.Record) error
}

// Notifier announces saved snapshots to an outside channel.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type Option func(*Service)

func WithSource(src marketdata.Source) Option {
	return func(s *Service) { s.source = src }
}

func WithRasterizer(r Rasterizer) Option {
	return func(s *Service) { s.raster = r }
}

func WithTracer(t Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithDefaults(d defaults.Settings) Option {
	return func(s *Service) { s.defaults = d.Clone() }
}

// WithIDFunc overrides drawing id generation for gestures and tool calls.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) { s.idFunc = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// Service owns the chart registry and the collaborators shared by charts.
type Service struct {
	broker   *relay.Broker
	snaps    *snapshot.Store
	source   marketdata.Source
	raster   Rasterizer
	tracer   Tracer
	notifier Notifier
	assist   *assistant.Dispatcher
	idFunc   func() string
	now      func() time.Time

	mu     sync.RWMutex
	charts map[string]*Chart

	defMu    sync.RWMutex
	defaults defaults.Settings
}

func NewService(broker *relay.Broker, snaps *snapshot.Store, opts ...Option) *Service {
	s := &Service{
		broker:   broker,
		snaps:    snaps,
		now:      time.Now,
		charts:   make(map[string]*Chart),
		defaults: defaults.Builtin(),
	}
	s.idFunc = func() string { return strconv.FormatInt(s.now().UnixNano(), 10) }
	for _, opt := range opts {
		opt(s)
	}
	s.assist = assistant.New(assistant.WithIDFunc(s.idFunc), assistant.WithClock(s.now))
	return s
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &CodedError{Code: CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) publish(chartID, kind string, payload any) {
	if s.broker == nil {
		return
	}
	if err := s.broker.PublishJSON(chartID, kind, payload); err != nil {
		slog.Debug("relay publish failed", "chart_id", chartID, "kind", kind, "error", err)
	}
}

// lookup returns an existing chart.
func (s *Service) lookup(id string) (*Chart, error) {
	id = strings.TrimSpace(id)
	if err := s.requireNonEmpty(id, "chart_id"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	c, ok := s.charts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &CodedError{Code: CodeChartNotFound, Message: fmt.Sprintf("chart %q not found", id)}
	}
	return c, nil
}

// ensure returns the chart for id, creating it on first use.
func (s *Service) ensure(id string) (*Chart, error) {
	id = strings.TrimSpace(id)
	if err := s.requireNonEmpty(id, "chart_id"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charts[id]
	if !ok {
		c = newChart(id, s)
		s.charts[id] = c
		slog.Info("chart session created", "chart_id", id)
	}
	return c, nil
}

// withChart runs fn under the chart's event lock.
func (s *Service) withChart(id string, create bool, fn func(c *Chart) error) error {
	var c *Chart
	var err error
	if create {
		c, err = s.ensure(id)
	} else {
		c, err = s.lookup(id)
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c)
}

// --- Chart registry ---

func (s *Service) ListCharts() []ChartState {
	s.mu.RLock()
	charts := make([]*Chart, 0, len(s.charts))
	for _, c := range s.charts {
		charts = append(charts, c)
	}
	s.mu.RUnlock()

	out := make([]ChartState, 0, len(charts))
	for _, c := range charts {
		c.mu.Lock()
		out = append(out, c.state())
		c.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenChart creates or updates a chart's symbol and interval.
func (s *Service) OpenChart(id, symbol, interval string) (ChartState, error) {
	var st ChartState
	err := s.withChart(id, true, func(c *Chart) error {
		if v := strings.TrimSpace(symbol); v != "" {
			c.symbol = v
		}
		if v := strings.TrimSpace(interval); v != "" {
			c.interval = v
		}
		st = c.state()
		return nil
	})
	return st, err
}

func (s *Service) GetChart(id string) (ChartState, error) {
	var st ChartState
	err := s.withChart(id, false, func(c *Chart) error {
		st = c.state()
		return nil
	})
	return st, err
}

func (s *Service) DeleteChart(id string) error {
	c, err := s.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.charts, c.id)
	s.mu.Unlock()
	s.publish(c.id, EventChartDeleted, map[string]string{"id": c.id})
	slog.Info("chart session deleted", "chart_id", c.id)
	return nil
}

// SetBounds replaces the chart's viewport. Identical frames change nothing.
func (s *Service) SetBounds(id string, b viewport.Bounds) (ChartState, error) {
	var st ChartState
	err := s.withChart(id, true, func(c *Chart) error {
		if b.GridWidth <= 0 || b.GridHeight <= 0 {
			return newError(CodeValidation, "grid_width and grid_height must be positive", nil)
		}
		var check viewport.Mapper
		if !check.Set(b) {
			return newError(CodeValidation, "bounds must be finite", nil)
		}
		if c.mapper.Set(b) {
			c.publish(EventBoundsChanged, b)
		}
		st = c.state()
		return nil
	})
	return st, err
}

// SetCandles replaces the chart's series. Unusable candles are dropped.
func (s *Service) SetCandles(id string, candles []viewport.Candle) error {
	return s.withChart(id, true, func(c *Chart) error {
		c.candles = viewport.Sanitize(candles)
		c.publish(EventCandlesChanged, map[string]int{"count": len(c.candles)})
		return nil
	})
}

// Candles returns a copy of the chart's series.
func (s *Service) Candles(id string) ([]viewport.Candle, error) {
	var out []viewport.Candle
	err := s.withChart(id, false, func(c *Chart) error {
		out = append([]viewport.Candle(nil), c.candles...)
		return nil
	})
	return out, err
}

// LoadCandles fetches the chart's series from the market data source. Empty
// symbol or interval fall back to the chart's current ones.
func (s *Service) LoadCandles(ctx context.Context, id, symbol, interval string) (ChartState, error) {
	if s.source == nil {
		return ChartState{}, newError(CodeDataUnavailable, "no market data source configured", nil)
	}
	c, err := s.ensure(id)
	if err != nil {
		return ChartState{}, err
	}
	c.mu.Lock()
	if symbol = strings.TrimSpace(symbol); symbol == "" {
		symbol = c.symbol
	}
	if interval = strings.TrimSpace(interval); interval == "" {
		interval = c.interval
	}
	c.mu.Unlock()
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return ChartState{}, err
	}
	if err := s.requireNonEmpty(interval, "interval"); err != nil {
		return ChartState{}, err
	}

	candles, err := s.source.Candles(ctx, symbol, interval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ChartState{}, newError(CodeDataUnavailable, "market data request timed out", err)
		}
		return ChartState{}, newError(CodeDataUnavailable, fmt.Sprintf("load %s %s", symbol, interval), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbol, c.interval = symbol, interval
	c.candles = candles
	c.publish(EventCandlesChanged, map[string]any{"count": len(candles), "symbol": symbol, "interval": interval})
	return c.state(), nil
}

// Feeds lists charts with a symbol and interval, for the candle poller.
func (s *Service) Feeds() []marketdata.Feed {
	var out []marketdata.Feed
	for _, st := range s.ListCharts() {
		if st.Symbol != "" && st.Interval != "" {
			out = append(out, marketdata.Feed{ChartID: st.ID, Symbol: st.Symbol, Interval: st.Interval})
		}
	}
	return out
}

// ZoomResult is the visible time range the caller should apply.
type ZoomResult struct {
	Direction viewport.ZoomDirection `json:"direction"`
	MinTime   float64                `json:"min_time"`
	MaxTime   float64                `json:"max_time"`
}

// Zoom computes the requested range. It does not change bounds; the chart
// surface answers with a new frame through SetBounds.
func (s *Service) Zoom(id, direction string) (ZoomResult, error) {
	dir, err := viewport.ParseZoomDirection(strings.TrimSpace(direction))
	if err != nil {
		return ZoomResult{}, newError(CodeValidation, err.Error(), nil)
	}
	var res ZoomResult
	err = s.withChart(id, false, func(c *Chart) error {
		b, _ := c.mapper.Current()
		lo, hi, ok := viewport.ZoomRange(b, dir, c.candles)
		if !ok {
			return newError(CodeValidation, "zoom needs viewport bounds or candles", nil)
		}
		res = ZoomResult{Direction: dir, MinTime: lo, MaxTime: hi}
		return nil
	})
	return res, err
}

// Flags are the chart-wide lock, hide and theme settings. Nil fields are kept.
type Flags struct {
	Locked *bool         `json:"locked,omitempty"`
	Hidden *bool         `json:"hidden,omitempty"`
	Theme  *render.Theme `json:"theme,omitempty"`
}

func (s *Service) SetFlags(id string, f Flags) (ChartState, error) {
	if f.Theme != nil && *f.Theme != render.ThemeDark && *f.Theme != render.ThemeLight {
		return ChartState{}, newError(CodeValidation, fmt.Sprintf("unknown theme %q", *f.Theme), nil)
	}
	var st ChartState
	err := s.withChart(id, true, func(c *Chart) error {
		if f.Locked != nil {
			c.locked = *f.Locked
			if c.locked {
				c.ctrl.Reset()
				c.setSelected("")
			}
		}
		if f.Hidden != nil {
			c.hidden = *f.Hidden
		}
		if f.Theme != nil {
			c.theme = *f.Theme
		}
		c.publish(EventFlagsChanged, map[string]any{"locked": c.locked, "hidden": c.hidden, "theme": c.theme})
		st = c.state()
		return nil
	})
	return st, err
}

// --- Drawings ---

func (s *Service) ListDrawings(id, typ string) ([]drawing.Drawing, error) {
	var t drawing.Type
	if typ = strings.TrimSpace(typ); typ != "" {
		parsed, err := drawing.ParseType(typ)
		if err != nil {
			return nil, newError(CodeValidation, err.Error(), nil)
		}
		t = parsed
	}
	var out []drawing.Drawing
	err := s.withChart(id, false, func(c *Chart) error {
		if t != "" {
			out = c.store.ListByType(t)
		} else {
			out = c.store.List()
		}
		return nil
	})
	return out, err
}

func (s *Service) GetDrawing(id, drawingID string) (drawing.Drawing, error) {
	var out drawing.Drawing
	err := s.withChart(id, false, func(c *Chart) error {
		d, ok := c.store.Get(drawingID)
		if !ok {
			return drawingNotFound(drawingID)
		}
		out = d
		return nil
	})
	return out, err
}

func drawingNotFound(id string) error {
	return &CodedError{Code: CodeDrawingNotFound, Message: fmt.Sprintf("drawing %q not found", id)}
}

// CreateDrawing stores a placement-only drawing after merging defaults. An
// empty id is generated.
func (s *Service) CreateDrawing(id string, d drawing.Drawing) (drawing.Drawing, error) {
	if d.ID == "" {
		d.ID = s.idFunc()
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = s.now().UnixMilli()
	}
	if !d.Wellformed() {
		return drawing.Drawing{}, newError(CodeValidation, fmt.Sprintf("malformed %s drawing", d.Type), nil)
	}
	var out drawing.Drawing
	err := s.withChart(id, true, func(c *Chart) error {
		if _, exists := c.store.Get(d.ID); exists {
			return newError(CodeValidation, fmt.Sprintf("drawing %q already exists", d.ID), nil)
		}
		out = c.add(d)
		return nil
	})
	return out, err
}

func (s *Service) UpdateDrawing(id, drawingID string, p drawing.Patch) (drawing.Drawing, error) {
	if p.Empty() {
		return drawing.Drawing{}, newError(CodeValidation, "patch is empty", nil)
	}
	if err := validatePatch(p); err != nil {
		return drawing.Drawing{}, err
	}
	var out drawing.Drawing
	err := s.withChart(id, false, func(c *Chart) error {
		cur, ok := c.store.Get(drawingID)
		if !ok {
			return drawingNotFound(drawingID)
		}
		if err := p.Check(cur.Type); err != nil {
			return newError(CodeValidation, "invalid patch", err)
		}
		if !c.update(drawingID, p) {
			return drawingNotFound(drawingID)
		}
		out, _ = c.store.Get(drawingID)
		return nil
	})
	return out, err
}

func validatePatch(p drawing.Patch) error {
	switch {
	case p.Style != nil && !p.Style.Valid():
		return newError(CodeValidation, fmt.Sprintf("unknown style %q", *p.Style), nil)
	case p.Subtype != nil && !p.Subtype.Valid():
		return newError(CodeValidation, fmt.Sprintf("unknown subtype %q", *p.Subtype), nil)
	case p.LabelType != nil && !p.LabelType.Valid():
		return newError(CodeValidation, fmt.Sprintf("unknown label_type %q", *p.LabelType), nil)
	case p.LabelAlignment != nil && !p.LabelAlignment.Valid():
		return newError(CodeValidation, fmt.Sprintf("unknown label_alignment %q", *p.LabelAlignment), nil)
	}
	return nil
}

func (s *Service) DeleteDrawing(id, drawingID string) error {
	return s.withChart(id, false, func(c *Chart) error {
		if !c.remove(drawingID) {
			return drawingNotFound(drawingID)
		}
		return nil
	})
}

func (s *Service) ClearDrawings(id string) (int, error) {
	var n int
	err := s.withChart(id, false, func(c *Chart) error {
		n = c.clear()
		return nil
	})
	return n, err
}

func (s *Service) SetDrawingVisible(id, drawingID string, visible bool) (drawing.Drawing, error) {
	var out drawing.Drawing
	err := s.withChart(id, false, func(c *Chart) error {
		if !c.store.SetVisible(drawingID, visible) {
			return drawingNotFound(drawingID)
		}
		out, _ = c.store.Get(drawingID)
		c.publish(EventDrawingUpdated, out)
		return nil
	})
	return out, err
}

// TypeToggle reports the state a bulk toggle settled on.
type TypeToggle struct {
	Type    drawing.Type `json:"type"`
	Changed bool         `json:"changed"`
	Visible *bool        `json:"visible,omitempty"`
	Locked  *bool        `json:"locked,omitempty"`
}

// ToggleType flips visibility or lock for every drawing of typ. No drawings
// of that type is not an error; Changed is false.
func (s *Service) ToggleType(id, typ string, lock bool) (TypeToggle, error) {
	t, err := drawing.ParseType(strings.TrimSpace(typ))
	if err != nil {
		return TypeToggle{}, newError(CodeValidation, err.Error(), nil)
	}
	res := TypeToggle{Type: t}
	err = s.withChart(id, false, func(c *Chart) error {
		on, ok := c.toggleType(t, lock)
		res.Changed = ok
		if ok && lock {
			res.Locked = &on
		} else if ok {
			res.Visible = &on
		}
		return nil
	})
	return res, err
}

// Reorder moves a drawing in z-order and returns the new order.
func (s *Service) Reorder(id, drawingID, action string) ([]drawing.Drawing, error) {
	switch action {
	case drawing.BringForward, drawing.BringToFront, drawing.SendBackward, drawing.SendToBack:
	default:
		return nil, newError(CodeValidation, fmt.Sprintf("unknown reorder action %q", action), nil)
	}
	var out []drawing.Drawing
	err := s.withChart(id, false, func(c *Chart) error {
		if _, ok := c.store.Get(drawingID); !ok {
			return drawingNotFound(drawingID)
		}
		if c.store.Reorder(drawingID, action) {
			c.publish(EventDrawingsReorder, map[string]string{"id": drawingID, "action": action})
		}
		out = c.store.List()
		return nil
	})
	return out, err
}

// --- Defaults ---

func (s *Service) Defaults() defaults.Settings {
	s.defMu.RLock()
	defer s.defMu.RUnlock()
	return s.defaults.Clone()
}

// UpdateDefaults validates and installs new defaults, then restyles every
// existing drawing on every chart with them.
func (s *Service) UpdateDefaults(d defaults.Settings) (defaults.Settings, error) {
	if err := d.Validate(); err != nil {
		return defaults.Settings{}, newError(CodeValidation, "invalid defaults", err)
	}
	s.defMu.Lock()
	s.defaults = d.Clone()
	s.defMu.Unlock()

	s.mu.RLock()
	charts := make([]*Chart, 0, len(s.charts))
	for _, c := range s.charts {
		charts = append(charts, c)
	}
	s.mu.RUnlock()

	for _, c := range charts {
		c.mu.Lock()
		n := 0
		for _, existing := range c.store.List() {
			if c.store.Replace(d.Apply(existing)) {
				n++
			}
		}
		c.publish(EventDefaultsChanged, map[string]int{"restyled": n})
		c.mu.Unlock()
	}
	slog.Info("drawing defaults updated", "charts", len(charts))
	return d.Clone(), nil
}

// --- Render ---

// Render returns the current frame including in-progress preview geometry.
func (s *Service) Render(id string) (render.Frame, error) {
	var f render.Frame
	err := s.withChart(id, false, func(c *Chart) error {
		f = c.frame(true)
		return nil
	})
	return f, err
}

func (s *Service) SVG(id string) (string, error) {
	f, err := s.Render(id)
	if err != nil {
		return "", err
	}
	return render.SVG(f), nil
}

// --- Assistant ---

func (s *Service) ToolDefinitions() []assistant.Definition {
	return assistant.Definitions()
}

// CallTool runs an assistant tool call against the chart.
func (s *Service) CallTool(id, name string, args json.RawMessage) (assistant.Result, error) {
	if err := s.requireNonEmpty(name, "name"); err != nil {
		return assistant.Result{}, err
	}
	var res assistant.Result
	err := s.withChart(id, true, func(c *Chart) error {
		r, err := s.assist.Call(session{c}, strings.TrimSpace(name), args)
		if err != nil {
			return newError(CodeValidation, "tool call rejected", err)
		}
		res = r
		return nil
	})
	if err == nil {
		slog.Debug("assistant tool call", "chart_id", id, "name", name, "ok", res.OK)
	}
	return res, err
}

// PivotContext returns recent swing points for model prompts.
func (s *Service) PivotContext(id string) (assistant.Pivots, error) {
	var p assistant.Pivots
	err := s.withChart(id, false, func(c *Chart) error {
		pv, ok := assistant.PivotContext(c.candles)
		if !ok {
			return newError(CodeDataUnavailable, "not enough candles for pivot context", nil)
		}
		p = pv
		return nil
	})
	return p, err
}
