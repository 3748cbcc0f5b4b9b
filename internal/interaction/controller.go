// Package interaction is the pointer-driven tool state machine. It turns
// pointer, drag and text events into placement-only drawings and patches,
// emitted through a Sink; it never touches a store directly.
//
// A Controller is not safe for concurrent use. Callers serialize events per
// chart and pass the current bounds with every call.
package interaction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

type Tool string

const (
	ToolCursor    Tool = "cursor"
	ToolTrendline Tool = "trendline"
	ToolFibonacci Tool = "fibonacci"
	ToolBrush     Tool = "brush"
	ToolText      Tool = "text"
	ToolEraser    Tool = "eraser"
)

var Tools = []Tool{ToolCursor, ToolTrendline, ToolFibonacci, ToolBrush, ToolText, ToolEraser}

func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAnchoring Phase = "anchoring"
	PhaseDragging  Phase = "dragging"
	PhasePathing   Phase = "pathing"
	PhaseTexting   Phase = "texting"
)

// Keys understood by TextKey.
const (
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
)

// Env is the per-event view of the chart the controller may read.
type Env struct {
	Bounds     viewport.Bounds
	Ready      bool
	Candles    []viewport.Candle
	GlobalLock bool
}

// Target identifies a drawing, and optionally one of its points, under the pointer.
type Target struct {
	DrawingID  string `json:"drawing_id"`
	PointIndex *int   `json:"point_index,omitempty"`
}

// Sink receives everything the controller emits. Lookup must return the
// entity as currently stored.
type Sink interface {
	Lookup(id string) (drawing.Drawing, bool)
	Create(d drawing.Drawing)
	Update(id string, p drawing.Patch)
	Delete(id string)
	// Select marks id as selected; "" clears the selection.
	Select(id string)
}

// TextEntry is an open inline text editor.
type TextEntry struct {
	Point drawing.Point `json:"point"`
	Value string        `json:"value"`
}

// State is a snapshot of the controller for callers and the API.
type State struct {
	Tool        Tool            `json:"tool"`
	Phase       Phase           `json:"phase"`
	Anchor      *drawing.Point  `json:"anchor,omitempty"`
	Path        []drawing.Point `json:"path,omitempty"`
	Text        *TextEntry      `json:"text,omitempty"`
	Drag        *Target         `json:"drag,omitempty"`
	Pointer     *viewport.Pixel `json:"pointer,omitempty"`
	ActiveIndex int             `json:"active_index" doc:"Candle under the crosshair, -1 when unknown"`
}

// Preview is the transient in-progress geometry in pixel space.
type Preview struct {
	Segment []viewport.Pixel `json:"segment,omitempty" doc:"Rubber band from anchor to pointer"`
	Path    []viewport.Pixel `json:"path,omitempty" doc:"Live brush path"`
}

type Option func(*Controller)

// WithIDFunc overrides drawing id generation.
func WithIDFunc(fn func() string) Option {
	return func(c *Controller) { c.idFunc = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

type Controller struct {
	sink   Sink
	idFunc func() string
	now    func() time.Time

	tool        Tool
	phase       Phase
	anchor      *drawing.Point
	path        []drawing.Point
	entry       *TextEntry
	drag        *Target
	pointer     *viewport.Pixel
	activeIndex int
}

func New(sink Sink, opts ...Option) *Controller {
	c := &Controller{
		sink:        sink,
		now:         time.Now,
		tool:        ToolCursor,
		phase:       PhaseIdle,
		activeIndex: -1,
	}
	c.idFunc = func() string { return strconv.FormatInt(c.now().UnixNano(), 10) }
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Tool() Tool   { return c.tool }
func (c *Controller) Phase() Phase { return c.phase }

// SetTool switches the active tool. Any in-progress gesture is discarded.
// Selecting the current tool again is a no-op.
func (c *Controller) SetTool(t Tool) {
	if t == c.tool {
		return
	}
	c.clear()
	c.tool = t
}

// Reset discards in-progress state and returns to the cursor tool.
func (c *Controller) Reset() {
	c.clear()
	c.tool = ToolCursor
}

func (c *Controller) clear() {
	c.phase = PhaseIdle
	c.anchor = nil
	c.path = nil
	c.entry = nil
	c.drag = nil
}

// PointerDown handles a press on empty chart space at pixel (x, y).
func (c *Controller) PointerDown(env Env, x, y float64) {
	if !env.Ready || env.GlobalLock {
		return
	}
	c.pointer = &viewport.Pixel{X: x, Y: y}
	raw := viewport.Raw(x, y, env.Bounds)

	switch c.tool {
	case ToolText:
		c.phase = PhaseTexting
		c.entry = &TextEntry{Point: raw}
	case ToolBrush:
		c.phase = PhasePathing
		c.path = []drawing.Point{raw}
	case ToolTrendline, ToolFibonacci:
		pt := raw
		if c.tool == ToolFibonacci {
			pt = viewport.Snap(x, y, env.Candles, env.Bounds)
		}
		if c.phase != PhaseAnchoring || c.anchor == nil {
			c.phase = PhaseAnchoring
			c.anchor = &pt
			return
		}
		c.placeTwoPoint(*c.anchor, pt)
	case ToolCursor:
		c.sink.Select("")
	}
}

func (c *Controller) placeTwoPoint(start, end drawing.Point) {
	id, at := c.idFunc(), c.now().UnixMilli()
	var d drawing.Drawing
	if c.tool == ToolFibonacci {
		d = drawing.NewFibonacci(id, at, start, end, "")
	} else {
		d = drawing.NewTrendline(id, at, start, end)
	}
	c.Reset()
	c.sink.Create(d)
	c.sink.Select(id)
}

// BeginDrag handles a press on a rendered drawing or one of its handles.
// The target is selected even when locked; only unlocked targets drag.
// With the eraser tool the target is deleted instead.
func (c *Controller) BeginDrag(env Env, target Target) {
	if env.GlobalLock || c.phase != PhaseIdle {
		return
	}
	d, ok := c.sink.Lookup(target.DrawingID)
	if !ok {
		return
	}
	if c.tool == ToolEraser {
		if !d.Locked {
			c.sink.Delete(d.ID)
		}
		return
	}
	c.sink.Select(d.ID)
	if d.Locked || !draggable(d, target.PointIndex) {
		return
	}
	t := Target{DrawingID: d.ID}
	if target.PointIndex != nil {
		i := *target.PointIndex
		t.PointIndex = &i
	}
	c.drag = &t
	c.phase = PhaseDragging
}

func draggable(d drawing.Drawing, idx *int) bool {
	switch d.Type {
	case drawing.TypeText:
		return true
	case drawing.TypeTrendline, drawing.TypeFibonacci:
		return idx != nil && *idx >= 0 && *idx < len(d.Points())
	}
	return false
}

// PointerMove tracks the pointer, extends a brush path and applies drags.
// Drags re-read the entity each time and commit immediately.
func (c *Controller) PointerMove(env Env, x, y float64) {
	if !env.Ready {
		return
	}
	c.pointer = &viewport.Pixel{X: x, Y: y}
	raw := viewport.Raw(x, y, env.Bounds)
	c.activeIndex = viewport.NearestIndex(raw.Time, env.Candles)

	switch c.phase {
	case PhasePathing:
		c.path = append(c.path, raw)
	case PhaseDragging:
		if env.GlobalLock {
			return
		}
		c.applyDrag(env, x, y, raw)
	}
}

func (c *Controller) applyDrag(env Env, x, y float64, raw drawing.Point) {
	if c.drag == nil {
		c.phase = PhaseIdle
		return
	}
	d, ok := c.sink.Lookup(c.drag.DrawingID)
	if !ok {
		c.drag = nil
		c.phase = PhaseIdle
		return
	}
	if d.Locked {
		return
	}
	switch d.Type {
	case drawing.TypeText:
		c.sink.Update(d.ID, drawing.Patch{Point: &raw})
	case drawing.TypeTrendline, drawing.TypeFibonacci:
		if c.drag.PointIndex == nil {
			return
		}
		points := d.Points()
		i := *c.drag.PointIndex
		if i < 0 || i >= len(points) {
			return
		}
		target := raw
		if d.Type == drawing.TypeFibonacci {
			target = viewport.Snap(x, y, env.Candles, env.Bounds)
		}
		points[i] = target
		c.sink.Update(d.ID, drawing.Patch{Points: points})
	}
}

// PointerUp finishes a brush path or a drag. A path of fewer than two points
// is dropped; the buffer is cleared either way.
func (c *Controller) PointerUp(env Env) {
	switch c.phase {
	case PhasePathing:
		path := c.path
		c.path = nil
		c.phase = PhaseIdle
		if len(path) >= 2 {
			d := drawing.NewBrush(c.idFunc(), c.now().UnixMilli(), path)
			c.Reset()
			c.sink.Create(d)
		}
	case PhaseDragging:
		c.drag = nil
		c.phase = PhaseIdle
	}
}

// PointerLeave drops the pointer and finishes any brush path.
func (c *Controller) PointerLeave(env Env) {
	c.pointer = nil
	c.activeIndex = len(env.Candles) - 1
	if c.phase == PhasePathing {
		c.PointerUp(env)
	}
}

// TextInput replaces the open entry's value.
func (c *Controller) TextInput(value string) {
	if c.phase != PhaseTexting || c.entry == nil {
		return
	}
	c.entry.Value = value
}

// TextKey handles Enter and Escape inside the open entry. Enter with blank
// text keeps the entry open. The stored text is kept as typed.
func (c *Controller) TextKey(key string) {
	if c.phase != PhaseTexting || c.entry == nil {
		return
	}
	switch key {
	case KeyEnter:
		if strings.TrimSpace(c.entry.Value) == "" {
			return
		}
		d := drawing.NewText(c.idFunc(), c.now().UnixMilli(), c.entry.Point, c.entry.Value)
		c.Reset()
		c.sink.Create(d)
	case KeyEscape:
		c.entry = nil
		c.phase = PhaseIdle
	}
}

// TextBlur discards the open entry.
func (c *Controller) TextBlur() {
	if c.phase != PhaseTexting {
		return
	}
	c.entry = nil
	c.phase = PhaseIdle
}

func (c *Controller) State() State {
	s := State{Tool: c.tool, Phase: c.phase, ActiveIndex: c.activeIndex}
	if c.anchor != nil {
		a := *c.anchor
		s.Anchor = &a
	}
	if len(c.path) > 0 {
		s.Path = append([]drawing.Point(nil), c.path...)
	}
	if c.entry != nil {
		e := *c.entry
		s.Text = &e
	}
	if c.drag != nil {
		d := Target{DrawingID: c.drag.DrawingID}
		if c.drag.PointIndex != nil {
			i := *c.drag.PointIndex
			d.PointIndex = &i
		}
		s.Drag = &d
	}
	if c.pointer != nil {
		p := *c.pointer
		s.Pointer = &p
	}
	return s
}

// Preview projects in-progress geometry with the current bounds. It returns
// nil when nothing is in progress.
func (c *Controller) Preview(env Env) *Preview {
	if !env.Ready {
		return nil
	}
	b := env.Bounds
	switch c.phase {
	case PhaseAnchoring:
		if c.anchor == nil || c.pointer == nil {
			return nil
		}
		return &Preview{Segment: []viewport.Pixel{
			{X: b.TimeToPixel(c.anchor.Time), Y: b.PriceToPixel(c.anchor.Price)},
			*c.pointer,
		}}
	case PhasePathing:
		if len(c.path) == 0 {
			return nil
		}
		px := make([]viewport.Pixel, len(c.path))
		for i, p := range c.path {
			px[i] = viewport.Pixel{X: b.TimeToPixel(p.Time), Y: b.PriceToPixel(p.Price)}
		}
		return &Preview{Path: px}
	}
	return nil
}
