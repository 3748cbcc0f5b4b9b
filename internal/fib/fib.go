// Package fib computes Fibonacci retracement and circle geometry: level
// prices, pixel placement, dash patterns and label text.
//
// Everything here is a pure function of the drawing and the current bounds.
package fib

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

// Dash patterns in SVG stroke-dasharray form.
const (
	DashSolid     = ""
	DashDashed    = "6 4"
	DashDotted    = "2 2"
	DashConnector = "4 4"
)

// LabelPad is the horizontal gap between a label and the edge it hugs.
const LabelPad = 5

// Text anchors as used by SVG text-anchor.
const (
	AnchorStart  = "start"
	AnchorMiddle = "middle"
	AnchorEnd    = "end"
)

// Label is a positioned level label.
type Label struct {
	Text     string                 `json:"text"`
	Side     drawing.LabelAlignment `json:"side"`
	Anchor   string                 `json:"anchor"`
	Baseline string                 `json:"baseline,omitempty"`
	X        float64                `json:"x"`
	Y        float64                `json:"y"`
}

// LineLevel is one horizontal retracement line.
type LineLevel struct {
	Level     drawing.Level `json:"level"`
	Price     float64       `json:"price"`
	StartTime float64       `json:"start_time"`
	EndTime   float64       `json:"end_time"`
	X1        float64       `json:"x1"`
	X2        float64       `json:"x2"`
	Y         float64       `json:"y"`
	Solid     bool          `json:"solid"`
	Dash      string        `json:"dash"`
	Label     Label         `json:"label"`
}

// CircleLevel is one concentric circle centered on the start anchor.
// Radius is in pixels and may be negative for negative ratios.
type CircleLevel struct {
	Level  drawing.Level `json:"level"`
	Price  float64       `json:"price"`
	CX     float64       `json:"cx"`
	CY     float64       `json:"cy"`
	Radius float64       `json:"radius"`
	Dash   string        `json:"dash"`
	Label  Label         `json:"label"`
}

// Geometry is the computed layout of one fibonacci drawing.
type Geometry struct {
	Subtype drawing.Subtype `json:"subtype"`
	Start   viewport.Pixel  `json:"start"`
	End     viewport.Pixel  `json:"end"`
	Lines   []LineLevel     `json:"lines,omitempty"`
	Circles []CircleLevel   `json:"circles,omitempty"`
}

// LevelPrice is start + (end - start) * value.
func LevelPrice(start, end drawing.Point, value float64) float64 {
	return start.Price + (end.Price-start.Price)*value
}

// DashArray maps a style to its dash pattern.
func DashArray(s drawing.Style) string {
	switch s {
	case drawing.StyleDashed:
		return DashDashed
	case drawing.StyleDotted:
		return DashDotted
	}
	return DashSolid
}

// Compute lays out f against b. It returns false when f lacks its two points.
// Any subtype other than circles lays out as lines.
func Compute(f *drawing.Fibonacci, b viewport.Bounds) (Geometry, bool) {
	if f == nil || len(f.Points) < 2 {
		return Geometry{}, false
	}
	start, end := f.Points[0], f.Points[1]
	g := Geometry{
		Subtype: f.Subtype,
		Start:   viewport.Pixel{X: b.TimeToPixel(start.Time), Y: b.PriceToPixel(start.Price)},
		End:     viewport.Pixel{X: b.TimeToPixel(end.Time), Y: b.PriceToPixel(end.Price)},
	}
	if f.Subtype == drawing.SubtypeCircles {
		g.Circles = circles(f, b, g.Start, g.End)
		return g, true
	}
	g.Subtype = drawing.SubtypeLines
	g.Lines = lines(f, b, g.Start, g.End)
	return g, true
}

func lines(f *drawing.Fibonacci, b viewport.Bounds, p1, p2 viewport.Pixel) []LineLevel {
	start, end := f.Points[0], f.Points[1]

	leftX, rightX := math.Min(p1.X, p2.X), math.Max(p1.X, p2.X)
	startTime, endTime := math.Min(start.Time, end.Time), math.Max(start.Time, end.Time)
	if f.ExtendLeft {
		leftX, startTime = 0, b.MinTime
	}
	if f.ExtendRight {
		rightX, endTime = b.GridWidth, b.MaxTime
	}

	side, anchor, labelX := lineLabelPlacement(f.LabelAlignment, leftX, rightX)
	dash := DashArray(f.Style)

	var out []LineLevel
	for _, lv := range f.Levels {
		if !lv.Visible {
			continue
		}
		price := LevelPrice(start, end, lv.Value)
		y := b.PriceToPixel(price)
		solid := lv.Value == 0 || lv.Value == 1
		l := LineLevel{
			Level:     lv,
			Price:     price,
			StartTime: startTime,
			EndTime:   endTime,
			X1:        leftX,
			X2:        rightX,
			Y:         y,
			Solid:     solid,
			Dash:      dash,
			Label: Label{
				Text:   FormatLabel(f.LabelType, lv.Value, price, drawing.SubtypeLines),
				Side:   side,
				Anchor: anchor,
				X:      labelX,
				Y:      y,
			},
		}
		if solid {
			l.Dash = DashSolid
		}
		out = append(out, l)
	}
	return out
}

func lineLabelPlacement(a drawing.LabelAlignment, leftX, rightX float64) (drawing.LabelAlignment, string, float64) {
	switch a {
	case drawing.AlignCenter:
		return drawing.AlignCenter, AnchorMiddle, leftX + (rightX-leftX)/2
	case drawing.AlignRight:
		return drawing.AlignRight, AnchorEnd, rightX - LabelPad
	}
	return drawing.AlignLeft, AnchorStart, leftX + LabelPad
}

func circles(f *drawing.Fibonacci, b viewport.Bounds, p1, p2 viewport.Pixel) []CircleLevel {
	start, end := f.Points[0], f.Points[1]
	dist := math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
	dash := DashArray(f.Style)

	var out []CircleLevel
	for _, lv := range f.Levels {
		if !lv.Visible {
			continue
		}
		r := dist * lv.Value
		price := LevelPrice(start, end, lv.Value)
		lbl := Label{
			Text:   FormatLabel(f.LabelType, lv.Value, price, drawing.SubtypeCircles),
			Side:   drawing.AlignCenter,
			Anchor: AnchorMiddle,
			X:      p1.X,
			Y:      p1.Y - r - 2,
		}
		switch f.LabelAlignment {
		case drawing.AlignLeft:
			lbl.Side, lbl.Anchor, lbl.Baseline = drawing.AlignLeft, AnchorEnd, "middle"
			lbl.X, lbl.Y = p1.X-r-LabelPad, p1.Y
		case drawing.AlignRight:
			lbl.Side, lbl.Anchor, lbl.Baseline = drawing.AlignRight, AnchorStart, "middle"
			lbl.X, lbl.Y = p1.X+r+LabelPad, p1.Y
		}
		out = append(out, CircleLevel{
			Level:  lv,
			Price:  price,
			CX:     p1.X,
			CY:     p1.Y,
			Radius: r,
			Dash:   dash,
			Label:  lbl,
		})
	}
	return out
}

// FormatLabel renders a level label. Value labels use three decimals on
// lines and the shortest representation on circles; percent uses one decimal
// and price two.
func FormatLabel(t drawing.LabelType, value, price float64, subtype drawing.Subtype) string {
	switch t {
	case drawing.LabelPercent:
		return toFixed(value*100, 1) + "%"
	case drawing.LabelPrice:
		return toFixed(price, 2)
	}
	if subtype == drawing.SubtypeCircles {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return toFixed(value, 3)
}

// toFixed rounds the exact binary value of v half away from zero, so 1.005
// (stored just below) gives "1.00".
func toFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloatWithExponent(v, -places).StringFixed(places)
}

// DefaultLevels is the stock retracement set. Extensions start hidden.
func DefaultLevels() []drawing.Level {
	return []drawing.Level{
		{Value: 0, Color: "#787b86", Visible: true},
		{Value: 0.236, Color: "#f23645", Visible: true},
		{Value: 0.382, Color: "#ff9800", Visible: true},
		{Value: 0.5, Color: "#4caf50", Visible: true},
		{Value: 0.618, Color: "#089981", Visible: true},
		{Value: 0.786, Color: "#2962ff", Visible: true},
		{Value: 1, Color: "#787b86", Visible: true},
		{Value: 1.618, Color: "#2962ff", Visible: false},
		{Value: 2.618, Color: "#f23645", Visible: false},
	}
}
