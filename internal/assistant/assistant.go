// Package assistant exposes drawing operations as tool calls for a
// conversational model. Calls resolve candle offsets into domain points and
// produce the same placement-only drawings a pointer gesture would.
package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

// Tool names.
const (
	ToolAddDrawing    = "add_technical_drawing"
	ToolManageElement = "manage_chart_elements"
	ToolListDrawings  = "list_drawings"
)

// Drawing kinds accepted by add_technical_drawing.
const (
	KindTrendline        = "trendline"
	KindFibonacci        = "fibonacci"
	KindFibonacciCircles = "fibonacci_circles"
	KindHorizontalLine   = "horizontal_line"
)

// Actions accepted by manage_chart_elements.
const (
	ActionClear  = "clear_drawings"
	ActionHide   = "hide_type"
	ActionLock   = "lock_type"
	ActionDelete = "delete_drawing"
	ActionUpdate = "update_drawing"
)

// ErrUnknownTool is returned for tool names the dispatcher does not serve.
var ErrUnknownTool = errors.New("unknown tool")

// Chart is the mutation surface a call operates on. AddDrawing is expected
// to merge defaults and return the stored entity.
type Chart interface {
	Candles() []viewport.Candle
	Drawings() []drawing.Drawing
	AddDrawing(d drawing.Drawing) drawing.Drawing
	UpdateDrawing(id string, p drawing.Patch) bool
	DeleteDrawing(id string) bool
	ClearDrawings() int
	ToggleVisibilityByType(t drawing.Type) (visible bool, ok bool)
	ToggleLockByType(t drawing.Type) (locked bool, ok bool)
}

// Result is what gets handed back to the model. Failures the model should
// read, like missing data, are reported in Text rather than as errors.
type Result struct {
	Text      string            `json:"text"`
	OK        bool              `json:"ok"`
	DrawingID string            `json:"drawing_id,omitempty"`
	Drawings  []drawing.Drawing `json:"drawings,omitempty"`
}

type AddDrawingArgs struct {
	ToolType         string   `json:"tool_type"`
	StartIndexOffset int      `json:"start_index_offset"`
	EndIndexOffset   int      `json:"end_index_offset"`
	StartPrice       float64  `json:"start_price"`
	EndPrice         *float64 `json:"end_price,omitempty"`
}

type ManageArgs struct {
	Action     string         `json:"action"`
	TargetID   string         `json:"target_id,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	Patch      *drawing.Patch `json:"patch,omitempty"`
}

type Option func(*Dispatcher)

func WithIDFunc(fn func() string) Option {
	return func(d *Dispatcher) { d.idFunc = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(d *Dispatcher) { d.now = fn }
}

type Dispatcher struct {
	idFunc func() string
	now    func() time.Time
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{now: time.Now}
	d.idFunc = func() string { return strconv.FormatInt(d.now().UnixNano(), 10) }
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Call runs one tool call against chart. An error means the call itself was
// malformed: an unknown tool or undecodable arguments.
func (d *Dispatcher) Call(chart Chart, name string, args json.RawMessage) (Result, error) {
	switch name {
	case ToolAddDrawing:
		var a AddDrawingArgs
		if err := decode(args, &a); err != nil {
			return Result{}, err
		}
		return d.addDrawing(chart, a), nil
	case ToolManageElement:
		var a ManageArgs
		if err := decode(args, &a); err != nil {
			return Result{}, err
		}
		return d.manage(chart, a), nil
	case ToolListDrawings:
		ds := chart.Drawings()
		return Result{OK: true, Text: fmt.Sprintf("%d drawings on chart.", len(ds)), Drawings: ds}, nil
	}
	return Result{}, fmt.Errorf("%w %q", ErrUnknownTool, name)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode tool arguments: %w", err)
	}
	return nil
}

// Resolve converts an offset from the most recent candle into an index.
// Offsets past the first candle clamp to 0.
func Resolve(offset, n int) int {
	return max(0, n-1-offset)
}

func (d *Dispatcher) point(candles []viewport.Candle, offset int, price float64) drawing.Point {
	i := Resolve(offset, len(candles))
	t := float64(d.now().UnixMilli())
	if i < len(candles) && candles[i].Time != 0 {
		t = candles[i].Time
	}
	return drawing.Point{Time: t, Price: price}
}

func (d *Dispatcher) addDrawing(chart Chart, a AddDrawingArgs) Result {
	candles := chart.Candles()
	if len(candles) == 0 {
		return Result{Text: "Error: Chart data not ready."}
	}
	endPrice := a.StartPrice
	if a.EndPrice != nil && *a.EndPrice != 0 {
		endPrice = *a.EndPrice
	}
	start := d.point(candles, a.StartIndexOffset, a.StartPrice)
	end := d.point(candles, a.EndIndexOffset, endPrice)
	id, at := d.idFunc(), d.now().UnixMilli()

	var text string
	var placed drawing.Drawing
	switch a.ToolType {
	case KindFibonacci, KindFibonacciCircles:
		sub, label := drawing.SubtypeLines, "Fibonacci Retracement"
		if a.ToolType == KindFibonacciCircles {
			sub, label = drawing.SubtypeCircles, "Fibonacci Circles"
		}
		placed = drawing.NewFibonacci(id, at, start, end, sub)
		text = fmt.Sprintf("%s drawn from %s to %s.", label, num(a.StartPrice), num(endPrice))
	case KindTrendline, KindHorizontalLine:
		placed = drawing.NewTrendline(id, at, start, end)
		label := "Trendline"
		if a.ToolType == KindHorizontalLine {
			label = "Support/Resistance line"
		}
		text = fmt.Sprintf("%s drawn at %s.", label, num(a.StartPrice))
	default:
		return Result{Text: fmt.Sprintf("Error: unsupported tool_type %q.", a.ToolType)}
	}
	stored := chart.AddDrawing(placed)
	return Result{OK: true, Text: text, DrawingID: stored.ID}
}

func (d *Dispatcher) manage(chart Chart, a ManageArgs) Result {
	switch a.Action {
	case ActionClear:
		n := chart.ClearDrawings()
		return Result{OK: true, Text: fmt.Sprintf("Cleared %d drawings.", n)}
	case ActionHide, ActionLock:
		t, err := drawing.ParseType(a.TargetType)
		if err != nil {
			return Result{Text: "Error: " + err.Error() + "."}
		}
		if a.Action == ActionHide {
			visible, ok := chart.ToggleVisibilityByType(t)
			if !ok {
				return Result{Text: fmt.Sprintf("No %s drawings on chart.", t)}
			}
			if visible {
				return Result{OK: true, Text: fmt.Sprintf("Showing all %ss.", t)}
			}
			return Result{OK: true, Text: fmt.Sprintf("Hidden all %ss.", t)}
		}
		locked, ok := chart.ToggleLockByType(t)
		if !ok {
			return Result{Text: fmt.Sprintf("No %s drawings on chart.", t)}
		}
		if locked {
			return Result{OK: true, Text: fmt.Sprintf("All %ss locked.", t)}
		}
		return Result{OK: true, Text: fmt.Sprintf("All %ss unlocked.", t)}
	case ActionDelete:
		if !chart.DeleteDrawing(a.TargetID) {
			return Result{Text: fmt.Sprintf("Drawing %q not found.", a.TargetID)}
		}
		return Result{OK: true, Text: "Drawing removed.", DrawingID: a.TargetID}
	case ActionUpdate:
		if a.Patch == nil || a.Patch.Empty() {
			return Result{Text: "Error: update_drawing needs a patch."}
		}
		for _, d := range chart.Drawings() {
			if d.ID != a.TargetID {
				continue
			}
			if err := a.Patch.Check(d.Type); err != nil {
				return Result{Text: "Error: " + err.Error() + "."}
			}
		}
		if !chart.UpdateDrawing(a.TargetID, *a.Patch) {
			return Result{Text: fmt.Sprintf("Drawing %q not found.", a.TargetID)}
		}
		return Result{OK: true, Text: "Drawing updated.", DrawingID: a.TargetID}
	}
	return Result{Text: fmt.Sprintf("Error: unsupported action %q.", a.Action)}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
