// Package render projects stored drawings through the current bounds into
// pixel-space primitives with drag handles, and serializes frames to SVG.
package render

import (
	"encoding/json"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/fib"
	"github.com/dgnsrekt/chartdraw/internal/interaction"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

type Kind string

const (
	KindLine     Kind = "line"
	KindCircle   Kind = "circle"
	KindPolyline Kind = "polyline"
	KindText     Kind = "text"
	KindRect     Kind = "rect"
)

// HandleRadius is the pixel radius of a drag handle.
const HandleRadius = 5

// Primitive is one drawable shape. Only the fields relevant to Kind are set.
type Primitive struct {
	Kind Kind `json:"kind"`

	X1 float64 `json:"x1,omitempty"`
	Y1 float64 `json:"y1,omitempty"`
	X2 float64 `json:"x2,omitempty"`
	Y2 float64 `json:"y2,omitempty"`

	CX float64 `json:"cx,omitempty"`
	CY float64 `json:"cy,omitempty"`
	R  float64 `json:"r,omitempty"`

	Points []viewport.Pixel `json:"points,omitempty"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	RX     float64 `json:"rx,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
	FontWeight string  `json:"font_weight,omitempty"`
	Anchor     string  `json:"anchor,omitempty"`
	Baseline   string  `json:"baseline,omitempty"`

	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Dash        string  `json:"dash,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// MarshalJSON writes every geometric field of Kind, zeros included, so a
// shape on the left or top edge keeps its coordinates. Style fields are
// written only when set.
func (p Primitive) MarshalJSON() ([]byte, error) {
	out := map[string]any{"kind": p.Kind}
	switch p.Kind {
	case KindLine:
		out["x1"], out["y1"], out["x2"], out["y2"] = p.X1, p.Y1, p.X2, p.Y2
	case KindCircle:
		out["cx"], out["cy"], out["r"] = p.CX, p.CY, p.R
	case KindPolyline:
		pts := p.Points
		if pts == nil {
			pts = []viewport.Pixel{}
		}
		out["points"] = pts
	case KindRect:
		out["x"], out["y"], out["width"], out["height"], out["rx"] = p.X, p.Y, p.Width, p.Height, p.RX
	case KindText:
		out["x"], out["y"], out["text"] = p.X, p.Y, p.Text
	}
	optString(out, "text", p.Text)
	optFloat(out, "font_size", p.FontSize)
	optString(out, "font_weight", p.FontWeight)
	optString(out, "anchor", p.Anchor)
	optString(out, "baseline", p.Baseline)
	optString(out, "stroke", p.Stroke)
	optFloat(out, "stroke_width", p.StrokeWidth)
	optString(out, "fill", p.Fill)
	optString(out, "dash", p.Dash)
	optFloat(out, "opacity", p.Opacity)
	return json.Marshal(out)
}

func optString(m map[string]any, key, v string) {
	if _, set := m[key]; !set && v != "" {
		m[key] = v
	}
}

func optFloat(m map[string]any, key string, v float64) {
	if v != 0 {
		m[key] = v
	}
}

// Handle is a draggable point. Index addresses the drawing's points.
type Handle struct {
	Index  int     `json:"index"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Stroke string  `json:"stroke"`
}

type Item struct {
	DrawingID  string       `json:"drawing_id"`
	Type       drawing.Type `json:"type"`
	Selected   bool         `json:"selected,omitempty"`
	Locked     bool         `json:"locked,omitempty"`
	Primitives []Primitive  `json:"primitives"`
	Handles    []Handle     `json:"handles,omitempty"`
}

type Frame struct {
	Width      float64              `json:"width"`
	Height     float64              `json:"height"`
	Background string               `json:"background"`
	Items      []Item               `json:"items"`
	Preview    *interaction.Preview `json:"preview,omitempty"`
}

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Background() string {
	if t == ThemeLight {
		return "#ffffff"
	}
	return "#131722"
}

type Options struct {
	GlobalHidden bool
	GlobalLocked bool
	SelectedID   string
	Preview      *interaction.Preview
	Theme        Theme
}

// Render builds a frame from ds in z-order. Without bounds the frame is
// empty. Hidden and malformed drawings produce no item.
func Render(ds []drawing.Drawing, m *viewport.Mapper, opts Options) Frame {
	f := Frame{Background: opts.Theme.Background(), Items: []Item{}}
	b, ok := m.Current()
	if !ok {
		return f
	}
	f.Width, f.Height = b.GridWidth, b.GridHeight
	f.Preview = opts.Preview
	if opts.GlobalHidden {
		return f
	}
	for _, d := range ds {
		if !d.Visible || !d.Wellformed() {
			continue
		}
		it, ok := renderOne(d, b, opts)
		if !ok {
			continue
		}
		it.Selected = d.ID == opts.SelectedID
		it.Locked = d.Locked
		if opts.GlobalLocked {
			it.Handles = nil
		}
		f.Items = append(f.Items, it)
	}
	return f
}

func renderOne(d drawing.Drawing, b viewport.Bounds, opts Options) (Item, bool) {
	it := Item{DrawingID: d.ID, Type: d.Type}
	switch d.Type {
	case drawing.TypeTrendline:
		t := d.Trendline
		p1, p2 := project(b, t.Points[0]), project(b, t.Points[1])
		it.Primitives = []Primitive{{
			Kind: KindLine, X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y,
			Stroke: t.Color, StrokeWidth: t.Width, Dash: fib.DashArray(t.Style),
		}}
		it.Handles = []Handle{{0, p1.X, p1.Y, t.Color}, {1, p2.X, p2.Y, t.Color}}
	case drawing.TypeFibonacci:
		return renderFib(d, b, opts)
	case drawing.TypeBrush:
		br := d.Brush
		pts := make([]viewport.Pixel, len(br.Points))
		for i, p := range br.Points {
			pts[i] = project(b, p)
		}
		it.Primitives = []Primitive{{
			Kind: KindPolyline, Points: pts, Stroke: br.Color, StrokeWidth: br.Width,
			Fill: "none", Opacity: 0.8,
		}}
	case drawing.TypeText:
		t := d.Text
		p := project(b, *t.Point)
		it.Primitives = []Primitive{{
			Kind: KindText, X: p.X, Y: p.Y, Text: t.Text, FontSize: t.FontSize, Fill: t.Color,
		}}
		it.Handles = []Handle{{0, p.X, p.Y, t.Color}}
	default:
		return Item{}, false
	}
	return it, true
}

func renderFib(d drawing.Drawing, b viewport.Bounds, opts Options) (Item, bool) {
	f := d.Fibonacci
	g, ok := fib.Compute(f, b)
	if !ok {
		return Item{}, false
	}
	it := Item{DrawingID: d.ID, Type: d.Type}
	it.Primitives = append(it.Primitives, Primitive{
		Kind: KindLine, X1: g.Start.X, Y1: g.Start.Y, X2: g.End.X, Y2: g.End.Y,
		Stroke: f.Color, StrokeWidth: 1, Dash: fib.DashConnector, Opacity: 0.5,
	})
	for _, l := range g.Lines {
		it.Primitives = append(it.Primitives, Primitive{
			Kind: KindLine, X1: l.X1, Y1: l.Y, X2: l.X2, Y2: l.Y,
			Stroke: l.Level.Color, StrokeWidth: f.Width, Dash: l.Dash, Opacity: 0.9,
		})
		if f.ShowLabels {
			it.Primitives = append(it.Primitives, labelBackground(l.Label, l.Y, opts.Theme), Primitive{
				Kind: KindText, X: l.Label.X, Y: l.Y + 3, Text: l.Label.Text,
				FontSize: 10, FontWeight: "bold", Anchor: l.Label.Anchor, Baseline: "middle",
				Fill: l.Level.Color,
			})
		}
	}
	for _, c := range g.Circles {
		if c.Radius >= 0 {
			it.Primitives = append(it.Primitives, Primitive{
				Kind: KindCircle, CX: c.CX, CY: c.CY, R: c.Radius,
				Stroke: c.Level.Color, StrokeWidth: f.Width, Fill: "none", Dash: c.Dash,
			})
		}
		if f.ShowLabels {
			it.Primitives = append(it.Primitives, Primitive{
				Kind: KindText, X: c.Label.X, Y: c.Label.Y, Text: c.Label.Text,
				FontSize: 10, Anchor: c.Label.Anchor, Baseline: c.Label.Baseline,
				Fill: c.Level.Color,
			})
		}
	}
	it.Handles = []Handle{{0, g.Start.X, g.Start.Y, f.Color}, {1, g.End.X, g.End.Y, f.Color}}
	return it, true
}

// labelBackground is the translucent plate behind a retracement label.
func labelBackground(l fib.Label, y float64, theme Theme) Primitive {
	r := Primitive{Kind: KindRect, Y: y - 9, Width: 45, Height: 14, RX: 3, Fill: theme.Background(), Opacity: 0.7}
	switch l.Anchor {
	case fib.AnchorMiddle:
		r.X, r.Width = l.X-20, 40
	case fib.AnchorEnd:
		r.X = l.X - 40
	default:
		r.X = l.X - 2
	}
	return r
}

func project(b viewport.Bounds, p drawing.Point) viewport.Pixel {
	return viewport.Pixel{X: b.TimeToPixel(p.Time), Y: b.PriceToPixel(p.Price)}
}
