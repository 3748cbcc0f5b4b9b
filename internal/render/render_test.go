package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/fib"
	"github.com/dgnsrekt/chartdraw/internal/interaction"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

func mapper(t *testing.T) *viewport.Mapper {
	t.Helper()
	var m viewport.Mapper
	require.True(t, m.Set(viewport.Bounds{MinTime: 0, MaxTime: 4000, MinPrice: 50, MaxPrice: 250, GridWidth: 800, GridHeight: 400}))
	return &m
}

func styledTrendline(id string) drawing.Drawing {
	d := drawing.NewTrendline(id, 1, drawing.Point{Time: 1000, Price: 100}, drawing.Point{Time: 2000, Price: 200})
	d.Trendline.Color, d.Trendline.Width, d.Trendline.Style = "#2962ff", 2, drawing.StyleDotted
	return d
}

func placedFib() drawing.Drawing {
	d := drawing.NewFibonacci("f", 1, drawing.Point{Time: 1000, Price: 100}, drawing.Point{Time: 2000, Price: 200}, drawing.SubtypeLines)
	f := d.Fibonacci
	f.Color, f.Width, f.Style = "#2962ff", 2, drawing.StyleDashed
	f.ShowLabels, f.LabelType, f.LabelAlignment = true, drawing.LabelPercent, drawing.AlignLeft
	f.Levels = []drawing.Level{
		{Value: 0, Color: "#787b86", Visible: true},
		{Value: 0.5, Color: "#4caf50", Visible: true},
		{Value: 1, Color: "#787b86", Visible: true},
	}
	return d
}

func kinds(ps []Primitive, k Kind) []Primitive {
	var out []Primitive
	for _, p := range ps {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}

func TestRenderWithoutBoundsIsEmpty(t *testing.T) {
	var m viewport.Mapper
	f := Render([]drawing.Drawing{styledTrendline("a")}, &m, Options{})
	assert.Empty(t, f.Items)
}

func TestRenderTrendline(t *testing.T) {
	f := Render([]drawing.Drawing{styledTrendline("a")}, mapper(t), Options{SelectedID: "a"})
	require.Len(t, f.Items, 1)
	it := f.Items[0]
	assert.True(t, it.Selected)
	require.Len(t, it.Primitives, 1)
	line := it.Primitives[0]
	assert.Equal(t, KindLine, line.Kind)
	assert.Equal(t, fib.DashDotted, line.Dash)
	assert.InDelta(t, 200, line.X1, 1e-9)
	assert.InDelta(t, 300, line.Y1, 1e-9)
	require.Len(t, it.Handles, 2)
	assert.Equal(t, 1, it.Handles[1].Index)
}

func TestRenderSkipsHiddenAndMalformed(t *testing.T) {
	hidden := styledTrendline("h")
	hidden.Visible = false
	broken := drawing.Drawing{ID: "x", Type: drawing.TypeTrendline, Visible: true, Trendline: &drawing.Trendline{}}

	f := Render([]drawing.Drawing{hidden, broken, styledTrendline("ok")}, mapper(t), Options{})
	require.Len(t, f.Items, 1)
	assert.Equal(t, "ok", f.Items[0].DrawingID)
}

func TestRenderGlobalFlags(t *testing.T) {
	ds := []drawing.Drawing{styledTrendline("a")}
	assert.Empty(t, Render(ds, mapper(t), Options{GlobalHidden: true}).Items)

	f := Render(ds, mapper(t), Options{GlobalLocked: true})
	require.Len(t, f.Items, 1)
	assert.Empty(t, f.Items[0].Handles)
}

func TestRenderFibonacciScenario(t *testing.T) {
	f := Render([]drawing.Drawing{placedFib()}, mapper(t), Options{})
	require.Len(t, f.Items, 1)
	ps := f.Items[0].Primitives

	lines := kinds(ps, KindLine)
	require.Len(t, lines, 4, "connector plus three levels")
	assert.Equal(t, fib.DashConnector, lines[0].Dash)
	assert.Equal(t, 0.5, lines[0].Opacity)
	assert.Equal(t, "", lines[1].Dash)
	assert.Equal(t, fib.DashDashed, lines[2].Dash)
	assert.Equal(t, "", lines[3].Dash)

	var texts []string
	for _, p := range kinds(ps, KindText) {
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{"0.0%", "50.0%", "100.0%"}, texts)
	assert.Len(t, kinds(ps, KindRect), 3)
	assert.Len(t, f.Items[0].Handles, 2)
}

func TestRenderFibonacciCircles(t *testing.T) {
	d := placedFib()
	d.Fibonacci.Subtype = drawing.SubtypeCircles
	d.Fibonacci.Levels = append(d.Fibonacci.Levels, drawing.Level{Value: -0.5, Color: "#f00", Visible: true})

	f := Render([]drawing.Drawing{d}, mapper(t), Options{})
	ps := f.Items[0].Primitives
	assert.Len(t, kinds(ps, KindCircle), 3, "negative radius is not drawn")
	assert.Len(t, kinds(ps, KindText), 4)
	assert.Empty(t, kinds(ps, KindRect))
}

func TestRenderBrushAndText(t *testing.T) {
	br := drawing.NewBrush("b", 1, []drawing.Point{{Time: 0, Price: 250}, {Time: 4000, Price: 50}})
	br.Brush.Color, br.Brush.Width = "#2962ff", 2
	tx := drawing.NewText("t", 1, drawing.Point{Time: 2000, Price: 150}, "a < b")
	tx.Text.Color, tx.Text.FontSize = "#d1d4dc", 14

	f := Render([]drawing.Drawing{br, tx}, mapper(t), Options{})
	require.Len(t, f.Items, 2)
	assert.Empty(t, f.Items[0].Handles)
	assert.Equal(t, []viewport.Pixel{{X: 0, Y: 0}, {X: 800, Y: 400}}, f.Items[0].Primitives[0].Points)
	require.Len(t, f.Items[1].Handles, 1)
	assert.Equal(t, 0, f.Items[1].Handles[0].Index)
}

func TestPrimitiveJSONKeepsZeroCoordinates(t *testing.T) {
	// starts at MinTime/MaxPrice, which projects to pixel (0, 0)
	d := drawing.NewTrendline("edge", 1, drawing.Point{Time: 0, Price: 250}, drawing.Point{Time: 2000, Price: 150})
	d.Trendline.Color, d.Trendline.Width = "#2962ff", 2
	f := Render([]drawing.Drawing{d}, mapper(t), Options{})
	require.Len(t, f.Items, 1)

	raw, err := json.Marshal(f.Items[0].Primitives[0])
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "line", got["kind"])
	assert.Equal(t, 0.0, got["x1"])
	assert.Equal(t, 0.0, got["y1"])
	assert.Equal(t, 400.0, got["x2"])
	assert.Equal(t, 200.0, got["y2"])
	assert.NotContains(t, got, "cx")
	assert.NotContains(t, got, "fill")

	circle, err := json.Marshal(Primitive{Kind: KindCircle, Stroke: "#fff"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"circle","cx":0,"cy":0,"r":0,"stroke":"#fff"}`, string(circle))
}

func TestSVG(t *testing.T) {
	tx := drawing.NewText("t", 1, drawing.Point{Time: 2000, Price: 150}, "a < b")
	tx.Text.Color, tx.Text.FontSize = "#d1d4dc", 14
	preview := &interaction.Preview{Segment: []viewport.Pixel{{X: 1, Y: 2}, {X: 3, Y: 4}}}

	out := SVG(Render([]drawing.Drawing{placedFib(), tx}, mapper(t), Options{Preview: preview, Theme: ThemeLight}))
	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="400"`))
	assert.Contains(t, out, `fill="#ffffff"`)
	assert.Contains(t, out, `>50.0%</text>`)
	assert.Contains(t, out, `a &lt; b`)
	assert.Contains(t, out, `stroke-dasharray="6 4"`)
	assert.Contains(t, out, `<line x1="1" y1="2" x2="3" y2="4"`)
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
}
