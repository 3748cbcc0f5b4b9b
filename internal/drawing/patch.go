package drawing

import (
	"errors"
	"fmt"
	"strings"
)

// Patch is a partial update. Nil fields are left untouched; fields that do not
// apply to the target variant are ignored. Slices replace the whole list.
type Patch struct {
	Visible *bool `json:"visible,omitempty"`
	Locked  *bool `json:"locked,omitempty"`

	Points []Point `json:"points,omitempty" doc:"Replaces all points (trendline, fibonacci, brush)"`
	Point  *Point  `json:"point,omitempty" doc:"Text anchor"`

	Color *string  `json:"color,omitempty"`
	Width *float64 `json:"width,omitempty"`
	Style *Style   `json:"style,omitempty" enum:"solid,dashed,dotted"`

	Subtype        *Subtype        `json:"subtype,omitempty" enum:"lines,circles"`
	Levels         []Level         `json:"levels,omitempty" doc:"Replaces the whole level list"`
	ExtendLeft     *bool           `json:"extend_left,omitempty"`
	ExtendRight    *bool           `json:"extend_right,omitempty"`
	ShowLabels     *bool           `json:"show_labels,omitempty"`
	LabelType      *LabelType      `json:"label_type,omitempty" enum:"value,percent,price"`
	LabelAlignment *LabelAlignment `json:"label_alignment,omitempty" enum:"left,center,right"`

	Text     *string  `json:"text,omitempty"`
	FontSize *float64 `json:"font_size,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.Visible == nil && p.Locked == nil && p.Points == nil && p.Point == nil &&
		p.Color == nil && p.Width == nil && p.Style == nil && p.Subtype == nil &&
		p.Levels == nil && p.ExtendLeft == nil && p.ExtendRight == nil &&
		p.ShowLabels == nil && p.LabelType == nil && p.LabelAlignment == nil &&
		p.Text == nil && p.FontSize == nil
}

// Check reports the first field that would leave a drawing of type t
// malformed once applied.
func (p Patch) Check(t Type) error {
	if p.Points != nil {
		switch t {
		case TypeTrendline, TypeFibonacci:
			if len(p.Points) != 2 {
				return fmt.Errorf("%s needs exactly 2 points, got %d", t, len(p.Points))
			}
		case TypeBrush:
			if len(p.Points) < 2 {
				return fmt.Errorf("brush needs at least 2 points, got %d", len(p.Points))
			}
		}
	}
	if t == TypeText && p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return errors.New("text must not be blank")
	}
	return nil
}

// Apply returns a merged copy of d. ID, Type and CreatedAt are always kept.
// Fields that fail Check for d's type are skipped, so a stored entity never
// loses its geometry or its label.
func (p Patch) Apply(d Drawing) Drawing {
	out := d.Clone()
	if p.Visible != nil {
		out.Visible = *p.Visible
	}
	if p.Locked != nil {
		out.Locked = *p.Locked
	}

	switch out.Type {
	case TypeTrendline:
		t := out.Trendline
		if t == nil {
			break
		}
		if len(p.Points) == 2 {
			t.Points = clonePoints(p.Points)
		}
		setString(&t.Color, p.Color)
		setFloat(&t.Width, p.Width)
		if p.Style != nil {
			t.Style = *p.Style
		}
	case TypeFibonacci:
		f := out.Fibonacci
		if f == nil {
			break
		}
		if len(p.Points) == 2 {
			f.Points = clonePoints(p.Points)
		}
		setString(&f.Color, p.Color)
		setFloat(&f.Width, p.Width)
		if p.Style != nil {
			f.Style = *p.Style
		}
		if p.Subtype != nil {
			f.Subtype = *p.Subtype
		}
		if p.Levels != nil {
			f.Levels = CloneLevels(p.Levels)
		}
		setBool(&f.ExtendLeft, p.ExtendLeft)
		setBool(&f.ExtendRight, p.ExtendRight)
		setBool(&f.ShowLabels, p.ShowLabels)
		if p.LabelType != nil {
			f.LabelType = *p.LabelType
		}
		if p.LabelAlignment != nil {
			f.LabelAlignment = *p.LabelAlignment
		}
	case TypeBrush:
		b := out.Brush
		if b == nil {
			break
		}
		if len(p.Points) >= 2 {
			b.Points = clonePoints(p.Points)
		}
		setString(&b.Color, p.Color)
		setFloat(&b.Width, p.Width)
	case TypeText:
		t := out.Text
		if t == nil {
			break
		}
		if p.Point != nil {
			pt := *p.Point
			t.Point = &pt
		}
		if p.Text != nil && strings.TrimSpace(*p.Text) != "" {
			t.Text = *p.Text
		}
		setString(&t.Color, p.Color)
		setFloat(&t.FontSize, p.FontSize)
	}
	return out
}

// WithLevel returns a new level list with index i replaced by fn's result.
// Out-of-range indices return an unchanged copy.
func WithLevel(levels []Level, i int, fn func(Level) Level) []Level {
	out := CloneLevels(levels)
	if i >= 0 && i < len(out) {
		out[i] = fn(out[i])
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
