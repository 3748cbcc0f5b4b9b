package render

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

const previewStroke = "#2962ff"

// SVG serializes f as a standalone document sized to the frame grid.
func SVG(f Frame) string {
	var sb strings.Builder
	w, h := num(f.Width), num(f.Height)
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`, w, h, w, h)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%s" height="%s" fill="%s"/>`, w, h, attr(f.Background))
	sb.WriteString("\n")

	for _, it := range f.Items {
		fmt.Fprintf(&sb, `<g data-id="%s" data-type="%s">`, attr(it.DrawingID), it.Type)
		for _, p := range it.Primitives {
			writePrimitive(&sb, p)
		}
		for _, hd := range it.Handles {
			fmt.Fprintf(&sb, `<circle cx="%s" cy="%s" r="%d" fill="#fff" stroke="%s" data-index="%d"/>`,
				num(hd.X), num(hd.Y), HandleRadius, attr(hd.Stroke), hd.Index)
		}
		sb.WriteString("</g>\n")
	}

	if p := f.Preview; p != nil {
		if len(p.Segment) == 2 {
			a, b := p.Segment[0], p.Segment[1]
			fmt.Fprintf(&sb, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1" stroke-dasharray="4 4"/>`,
				num(a.X), num(a.Y), num(b.X), num(b.Y), previewStroke)
			sb.WriteString("\n")
		}
		if len(p.Path) > 0 {
			fmt.Fprintf(&sb, `<polyline points="%s" stroke="%s" stroke-width="2" fill="none" stroke-linecap="round" stroke-linejoin="round"/>`,
				points(p.Path), previewStroke)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

func writePrimitive(sb *strings.Builder, p Primitive) {
	switch p.Kind {
	case KindLine:
		fmt.Fprintf(sb, `<line x1="%s" y1="%s" x2="%s" y2="%s"`, num(p.X1), num(p.Y1), num(p.X2), num(p.Y2))
		stroke(sb, p)
		sb.WriteString("/>")
	case KindCircle:
		fmt.Fprintf(sb, `<circle cx="%s" cy="%s" r="%s" fill="none"`, num(p.CX), num(p.CY), num(p.R))
		stroke(sb, p)
		sb.WriteString("/>")
	case KindPolyline:
		fmt.Fprintf(sb, `<polyline points="%s" fill="none"`, points(p.Points))
		stroke(sb, p)
		sb.WriteString("/>")
	case KindRect:
		fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s"`,
			num(p.X), num(p.Y), num(p.Width), num(p.Height), num(p.RX), attr(p.Fill))
		opacity(sb, p.Opacity)
		sb.WriteString("/>")
	case KindText:
		fmt.Fprintf(sb, `<text x="%s" y="%s" fill="%s" font-size="%s"`, num(p.X), num(p.Y), attr(p.Fill), num(p.FontSize))
		if p.FontWeight != "" {
			fmt.Fprintf(sb, ` font-weight="%s"`, attr(p.FontWeight))
		}
		if p.Anchor != "" {
			fmt.Fprintf(sb, ` text-anchor="%s"`, attr(p.Anchor))
		}
		if p.Baseline != "" {
			fmt.Fprintf(sb, ` dominant-baseline="%s"`, attr(p.Baseline))
		}
		sb.WriteString(">")
		_ = xml.EscapeText(sb, []byte(p.Text))
		sb.WriteString("</text>")
	}
}

func stroke(sb *strings.Builder, p Primitive) {
	fmt.Fprintf(sb, ` stroke="%s" stroke-width="%s"`, attr(p.Stroke), num(p.StrokeWidth))
	if p.Dash != "" {
		fmt.Fprintf(sb, ` stroke-dasharray="%s"`, p.Dash)
	}
	opacity(sb, p.Opacity)
}

func opacity(sb *strings.Builder, o float64) {
	if o > 0 && o < 1 {
		fmt.Fprintf(sb, ` opacity="%s"`, num(o))
	}
}

func points(ps []viewport.Pixel) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func attr(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
