// Package defaults merges per-type style settings into placement-only drawings.
package defaults

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/fib"
)

type Trendline struct {
	Color string        `yaml:"color" json:"color"`
	Width float64       `yaml:"width" json:"width"`
	Style drawing.Style `yaml:"style" json:"style" enum:"solid,dashed,dotted"`
}

type Fibonacci struct {
	Color          string                 `yaml:"color" json:"color"`
	Width          float64                `yaml:"width" json:"width"`
	Style          drawing.Style          `yaml:"style" json:"style" enum:"solid,dashed,dotted"`
	Subtype        drawing.Subtype        `yaml:"subtype" json:"subtype" enum:"lines,circles"`
	Levels         []drawing.Level        `yaml:"levels" json:"levels"`
	ExtendLeft     bool                   `yaml:"extend_left" json:"extend_left"`
	ExtendRight    bool                   `yaml:"extend_right" json:"extend_right"`
	ShowLabels     bool                   `yaml:"show_labels" json:"show_labels"`
	LabelType      drawing.LabelType      `yaml:"label_type" json:"label_type" enum:"value,percent,price"`
	LabelAlignment drawing.LabelAlignment `yaml:"label_alignment" json:"label_alignment" enum:"left,center,right"`
}

type Brush struct {
	Color string  `yaml:"color" json:"color"`
	Width float64 `yaml:"width" json:"width"`
}

type Text struct {
	Color    string  `yaml:"color" json:"color"`
	FontSize float64 `yaml:"font_size" json:"font_size"`
}

// Settings holds the style applied to each drawing type on creation.
type Settings struct {
	Trendline Trendline `yaml:"trendline" json:"trendline"`
	Fibonacci Fibonacci `yaml:"fibonacci" json:"fibonacci"`
	Brush     Brush     `yaml:"brush" json:"brush"`
	Text      Text      `yaml:"text" json:"text"`
}

func Builtin() Settings {
	return Settings{
		Trendline: Trendline{Color: "#2962ff", Width: 2, Style: drawing.StyleSolid},
		Fibonacci: Fibonacci{
			Color:          "#2962ff",
			Width:          2,
			Style:          drawing.StyleDashed,
			Subtype:        drawing.SubtypeLines,
			Levels:         fib.DefaultLevels(),
			ShowLabels:     true,
			LabelType:      drawing.LabelValue,
			LabelAlignment: drawing.AlignLeft,
		},
		Brush: Brush{Color: "#2962ff", Width: 2},
		Text:  Text{Color: "#d1d4dc", FontSize: 14},
	}
}

// Load reads YAML settings from path over the builtins. An empty path
// returns the builtins.
func Load(path string) (Settings, error) {
	s := Builtin()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("parse defaults file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	var errs []error
	if !s.Trendline.Style.Valid() {
		errs = append(errs, fmt.Errorf("trendline.style %q is invalid", s.Trendline.Style))
	}
	f := s.Fibonacci
	if !f.Style.Valid() {
		errs = append(errs, fmt.Errorf("fibonacci.style %q is invalid", f.Style))
	}
	if !f.Subtype.Valid() {
		errs = append(errs, fmt.Errorf("fibonacci.subtype %q is invalid", f.Subtype))
	}
	if !f.LabelType.Valid() {
		errs = append(errs, fmt.Errorf("fibonacci.label_type %q is invalid", f.LabelType))
	}
	if !f.LabelAlignment.Valid() {
		errs = append(errs, fmt.Errorf("fibonacci.label_alignment %q is invalid", f.LabelAlignment))
	}
	for name, w := range map[string]float64{
		"trendline.width": s.Trendline.Width,
		"fibonacci.width": f.Width,
		"brush.width":     s.Brush.Width,
		"text.font_size":  s.Text.FontSize,
	} {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// Apply merges the style for d's type into a copy of d. Identity, geometry,
// visibility, lock state and text are kept; a fibonacci keeps a subtype it
// already has and always receives a fresh copy of the default levels.
func (s Settings) Apply(d drawing.Drawing) drawing.Drawing {
	out := d.Clone()
	switch out.Type {
	case drawing.TypeTrendline:
		if t := out.Trendline; t != nil {
			t.Color, t.Width, t.Style = s.Trendline.Color, s.Trendline.Width, s.Trendline.Style
		}
	case drawing.TypeFibonacci:
		if f := out.Fibonacci; f != nil {
			df := s.Fibonacci
			f.Color, f.Width, f.Style = df.Color, df.Width, df.Style
			if f.Subtype == "" {
				f.Subtype = df.Subtype
			}
			f.Levels = drawing.CloneLevels(df.Levels)
			if f.Levels == nil {
				f.Levels = []drawing.Level{}
			}
			f.ExtendLeft, f.ExtendRight = df.ExtendLeft, df.ExtendRight
			f.ShowLabels, f.LabelType, f.LabelAlignment = df.ShowLabels, df.LabelType, df.LabelAlignment
		}
	case drawing.TypeBrush:
		if b := out.Brush; b != nil {
			b.Color, b.Width = s.Brush.Color, s.Brush.Width
		}
	case drawing.TypeText:
		if t := out.Text; t != nil {
			t.Color, t.FontSize = s.Text.Color, s.Text.FontSize
		}
	}
	return out
}

// Clone deep-copies the settings.
func (s Settings) Clone() Settings {
	s.Fibonacci.Levels = drawing.CloneLevels(s.Fibonacci.Levels)
	return s
}
