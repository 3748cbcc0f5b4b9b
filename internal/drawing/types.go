// Package drawing holds the chart annotation model and its ordered store.
//
// A Drawing is a closed tagged union: Type names the variant and exactly one of
// the variant pointers is set. Consumers switch on Type; geometry and rendering
// live outside this package.
package drawing

import (
	"fmt"
	"strings"
)

// Type discriminates the Drawing variants.
type Type string

const (
	TypeTrendline Type = "trendline"
	TypeFibonacci Type = "fibonacci"
	TypeBrush     Type = "brush"
	TypeText      Type = "text"
)

// Types lists every variant in a stable order.
var Types = []Type{TypeTrendline, TypeFibonacci, TypeBrush, TypeText}

// ParseType validates a variant name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown drawing type %q", s)
}

// Style is the stroke pattern of a line.
type Style string

const (
	StyleSolid  Style = "solid"
	StyleDashed Style = "dashed"
	StyleDotted Style = "dotted"
)

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	return s == StyleSolid || s == StyleDashed || s == StyleDotted
}

// Subtype selects how a fibonacci drawing renders.
type Subtype string

const (
	SubtypeLines   Subtype = "lines"
	SubtypeCircles Subtype = "circles"
)

func (s Subtype) Valid() bool { return s == SubtypeLines || s == SubtypeCircles }

// LabelType selects fibonacci label content.
type LabelType string

const (
	LabelValue   LabelType = "value"
	LabelPercent LabelType = "percent"
	LabelPrice   LabelType = "price"
)

func (l LabelType) Valid() bool { return l == LabelValue || l == LabelPercent || l == LabelPrice }

// LabelAlignment selects the side fibonacci labels are placed on.
type LabelAlignment string

const (
	AlignLeft   LabelAlignment = "left"
	AlignCenter LabelAlignment = "center"
	AlignRight  LabelAlignment = "right"
)

func (a LabelAlignment) Valid() bool { return a == AlignLeft || a == AlignCenter || a == AlignRight }

// Point is a location in domain space. Time is unix milliseconds.
type Point struct {
	Time  float64 `json:"time"`
	Price float64 `json:"price"`
}

// Level is one fibonacci ratio. Values are not bounded to [0,1].
type Level struct {
	Value   float64 `json:"value"`
	Color   string  `json:"color"`
	Visible bool    `json:"visible"`
}

type Trendline struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Style  Style   `json:"style"`
}

type Fibonacci struct {
	Points         []Point        `json:"points"`
	Subtype        Subtype        `json:"subtype"`
	Levels         []Level        `json:"levels"`
	ExtendLeft     bool           `json:"extend_left"`
	ExtendRight    bool           `json:"extend_right"`
	Color          string         `json:"color"`
	Width          float64        `json:"width"`
	Style          Style          `json:"style"`
	ShowLabels     bool           `json:"show_labels"`
	LabelType      LabelType      `json:"label_type"`
	LabelAlignment LabelAlignment `json:"label_alignment"`
}

type Brush struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

type Text struct {
	Point    *Point  `json:"point"`
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"`
}

// Drawing is a persisted annotation. ID never changes once assigned.
type Drawing struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	CreatedAt int64  `json:"created_at" doc:"Unix milliseconds"`
	Visible   bool   `json:"visible"`
	Locked    bool   `json:"locked"`

	Trendline *Trendline `json:"trendline,omitempty"`
	Fibonacci *Fibonacci `json:"fibonacci,omitempty"`
	Brush     *Brush     `json:"brush,omitempty"`
	Text      *Text      `json:"text,omitempty"`
}

// NewTrendline returns a placement-only trendline between two points.
func NewTrendline(id string, createdAt int64, start, end Point) Drawing {
	return Drawing{
		ID: id, Type: TypeTrendline, CreatedAt: createdAt, Visible: true,
		Trendline: &Trendline{Points: []Point{start, end}},
	}
}

// NewFibonacci returns a placement-only fibonacci with an empty level list.
// An empty subtype lets the defaults layer pick one.
func NewFibonacci(id string, createdAt int64, start, end Point, subtype Subtype) Drawing {
	return Drawing{
		ID: id, Type: TypeFibonacci, CreatedAt: createdAt, Visible: true,
		Fibonacci: &Fibonacci{Points: []Point{start, end}, Subtype: subtype, Levels: []Level{}},
	}
}

// NewBrush returns a placement-only freehand path. The points are copied.
func NewBrush(id string, createdAt int64, points []Point) Drawing {
	return Drawing{
		ID: id, Type: TypeBrush, CreatedAt: createdAt, Visible: true,
		Brush: &Brush{Points: clonePoints(points)},
	}
}

// NewText returns a placement-only text label.
func NewText(id string, createdAt int64, at Point, text string) Drawing {
	p := at
	return Drawing{
		ID: id, Type: TypeText, CreatedAt: createdAt, Visible: true,
		Text: &Text{Point: &p, Text: text},
	}
}

// Points returns a copy of the drawing's mutable points. Text yields its anchor.
func (d Drawing) Points() []Point {
	switch d.Type {
	case TypeTrendline:
		if d.Trendline != nil {
			return clonePoints(d.Trendline.Points)
		}
	case TypeFibonacci:
		if d.Fibonacci != nil {
			return clonePoints(d.Fibonacci.Points)
		}
	case TypeBrush:
		if d.Brush != nil {
			return clonePoints(d.Brush.Points)
		}
	case TypeText:
		if d.Text != nil && d.Text.Point != nil {
			return []Point{*d.Text.Point}
		}
	}
	return nil
}

// Wellformed reports whether the variant payload matches Type and carries the
// points the variant needs. Text must be non-blank.
func (d Drawing) Wellformed() bool {
	switch d.Type {
	case TypeTrendline:
		return d.Trendline != nil && len(d.Trendline.Points) == 2
	case TypeFibonacci:
		return d.Fibonacci != nil && len(d.Fibonacci.Points) == 2
	case TypeBrush:
		return d.Brush != nil && len(d.Brush.Points) >= 2
	case TypeText:
		return d.Text != nil && d.Text.Point != nil && strings.TrimSpace(d.Text.Text) != ""
	}
	return false
}

// Clone returns a deep copy so callers never share slices with the store.
func (d Drawing) Clone() Drawing {
	out := d
	if d.Trendline != nil {
		t := *d.Trendline
		t.Points = clonePoints(t.Points)
		out.Trendline = &t
	}
	if d.Fibonacci != nil {
		f := *d.Fibonacci
		f.Points = clonePoints(f.Points)
		f.Levels = CloneLevels(f.Levels)
		out.Fibonacci = &f
	}
	if d.Brush != nil {
		b := *d.Brush
		b.Points = clonePoints(b.Points)
		out.Brush = &b
	}
	if d.Text != nil {
		t := *d.Text
		if t.Point != nil {
			p := *t.Point
			t.Point = &p
		}
		out.Text = &t
	}
	return out
}

// CloneLevels copies a level list. A nil list stays nil.
func CloneLevels(levels []Level) []Level {
	if levels == nil {
		return nil
	}
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

func clonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
