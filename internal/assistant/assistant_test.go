package assistant

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

type fakeChart struct {
	candles []viewport.Candle
	store   *drawing.Store
	added   []drawing.Drawing
}

func newFakeChart(candles []viewport.Candle) *fakeChart {
	return &fakeChart{candles: candles, store: drawing.NewStore()}
}

func (c *fakeChart) Candles() []viewport.Candle  { return c.candles }
func (c *fakeChart) Drawings() []drawing.Drawing { return c.store.List() }
func (c *fakeChart) AddDrawing(d drawing.Drawing) drawing.Drawing {
	c.added = append(c.added, d)
	c.store.Add(d)
	return d
}
func (c *fakeChart) UpdateDrawing(id string, p drawing.Patch) bool { return c.store.Update(id, p) }
func (c *fakeChart) DeleteDrawing(id string) bool                  { return c.store.Remove(id) }
func (c *fakeChart) ClearDrawings() int                            { return c.store.Clear() }
func (c *fakeChart) ToggleVisibilityByType(t drawing.Type) (bool, bool) {
	return c.store.SetVisibilityByType(t)
}
func (c *fakeChart) ToggleLockByType(t drawing.Type) (bool, bool) { return c.store.SetLockByType(t) }

var fixedNow = time.UnixMilli(1_700_000_000_000)

func dispatcher() *Dispatcher {
	return New(WithIDFunc(func() string { return "ai1" }), WithClock(func() time.Time { return fixedNow }))
}

func series(n int) []viewport.Candle {
	out := make([]viewport.Candle, n)
	for i := range out {
		out[i] = viewport.Candle{Time: float64((i + 1) * 1000), Open: 10, High: 11, Low: 9, Close: 10}
	}
	return out
}

func call(t *testing.T, c Chart, name string, args any) Result {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := dispatcher().Call(c, name, raw)
	require.NoError(t, err)
	return res
}

func TestAddFibonacciFromOffsets(t *testing.T) {
	c := newFakeChart(series(10))
	res := call(t, c, ToolAddDrawing, map[string]any{
		"tool_type": "fibonacci_circles", "start_index_offset": 9, "end_index_offset": 0,
		"start_price": 100, "end_price": 200,
	})
	require.True(t, res.OK, res.Text)
	assert.Equal(t, "Fibonacci Circles drawn from 100 to 200.", res.Text)
	require.Len(t, c.added, 1)

	d := c.added[0]
	assert.Equal(t, "ai1", d.ID)
	assert.Equal(t, drawing.SubtypeCircles, d.Fibonacci.Subtype)
	assert.Empty(t, d.Fibonacci.Levels)
	assert.Equal(t, drawing.Point{Time: 1000, Price: 100}, d.Fibonacci.Points[0])
	assert.Equal(t, drawing.Point{Time: 10000, Price: 200}, d.Fibonacci.Points[1])
}

func TestHorizontalLineDefaultsEndPrice(t *testing.T) {
	c := newFakeChart(series(5))
	res := call(t, c, ToolAddDrawing, map[string]any{
		"tool_type": "horizontal_line", "start_index_offset": 50, "start_price": 42.5,
	})
	require.True(t, res.OK)
	assert.Equal(t, "Support/Resistance line drawn at 42.5.", res.Text)

	d := c.added[0]
	assert.Equal(t, drawing.TypeTrendline, d.Type)
	assert.Equal(t, 1000.0, d.Trendline.Points[0].Time, "offset clamps to the first candle")
	assert.Equal(t, 5000.0, d.Trendline.Points[1].Time)
	assert.Equal(t, 42.5, d.Trendline.Points[1].Price)
}

func TestAddDrawingWithoutData(t *testing.T) {
	c := newFakeChart(nil)
	res := call(t, c, ToolAddDrawing, map[string]any{"tool_type": "trendline", "start_price": 1})
	assert.False(t, res.OK)
	assert.Equal(t, "Error: Chart data not ready.", res.Text)
	assert.Empty(t, c.added)
}

func TestAddDrawingUnsupportedKind(t *testing.T) {
	res := call(t, newFakeChart(series(3)), ToolAddDrawing, map[string]any{"tool_type": "pitchfork", "start_price": 1})
	assert.False(t, res.OK)
}

func TestManageElements(t *testing.T) {
	c := newFakeChart(series(3))
	c.store.Add(drawing.NewTrendline("a", 1, drawing.Point{}, drawing.Point{Time: 1}))
	c.store.Add(drawing.NewTrendline("b", 1, drawing.Point{}, drawing.Point{Time: 1}))

	res := call(t, c, ToolManageElement, map[string]any{"action": "hide_type", "target_type": "trendline"})
	assert.Equal(t, "Hidden all trendlines.", res.Text)
	res = call(t, c, ToolManageElement, map[string]any{"action": "lock_type", "target_type": "trendline"})
	assert.Equal(t, "All trendlines locked.", res.Text)

	res = call(t, c, ToolManageElement, map[string]any{"action": "update_drawing", "target_id": "a", "patch": map[string]any{"color": "#fff"}})
	require.True(t, res.OK)
	got, _ := c.store.Get("a")
	assert.Equal(t, "#fff", got.Trendline.Color)

	res = call(t, c, ToolManageElement, map[string]any{"action": "update_drawing", "target_id": "a", "patch": map[string]any{"points": []map[string]float64{{"time": 5, "price": 5}}}})
	assert.False(t, res.OK)
	assert.Equal(t, "Error: trendline needs exactly 2 points, got 1.", res.Text)
	got, _ = c.store.Get("a")
	assert.True(t, got.Wellformed())

	res = call(t, c, ToolManageElement, map[string]any{"action": "delete_drawing", "target_id": "a"})
	assert.True(t, res.OK)
	res = call(t, c, ToolManageElement, map[string]any{"action": "delete_drawing", "target_id": "a"})
	assert.False(t, res.OK)

	res = call(t, c, ToolManageElement, map[string]any{"action": "clear_drawings"})
	assert.Equal(t, "Cleared 1 drawings.", res.Text)

	res = call(t, c, ToolManageElement, map[string]any{"action": "hide_type", "target_type": "text"})
	assert.False(t, res.OK)
}

func TestCallRejectsUnknownToolAndBadArgs(t *testing.T) {
	_, err := dispatcher().Call(newFakeChart(nil), "add_market_overlay", nil)
	assert.True(t, errors.Is(err, ErrUnknownTool))

	_, err = dispatcher().Call(newFakeChart(nil), ToolAddDrawing, json.RawMessage(`{"tool_type": 7}`))
	assert.Error(t, err)
}

func TestListDrawings(t *testing.T) {
	c := newFakeChart(nil)
	c.store.Add(drawing.NewText("t", 1, drawing.Point{}, "x"))
	res := call(t, c, ToolListDrawings, nil)
	assert.Len(t, res.Drawings, 1)
}

func TestPivotContext(t *testing.T) {
	_, ok := PivotContext(series(19))
	assert.False(t, ok)

	cs := series(30)
	// swing highs at index 27 (offset 2) and 10 (offset 19), swing low at 20 (offset 9)
	cs[27].High = 15.456
	cs[20].Low = 5.001
	cs[10].High = 20

	p, ok := PivotContext(cs)
	require.True(t, ok)
	require.Len(t, p.Highs, 2)
	assert.Equal(t, Pivot{Offset: 2, Price: 15.46}, p.Highs[0])
	assert.Equal(t, Pivot{Offset: 19, Price: 20}, p.Highs[1])
	require.Len(t, p.Lows, 1)
	assert.Equal(t, Pivot{Offset: 9, Price: 5}, p.Lows[0])
	assert.Contains(t, p.Prompt(), "(Offset: 2, Price: 15.46)")
}

func TestDefinitionsNames(t *testing.T) {
	var names []string
	for _, d := range Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{ToolAddDrawing, ToolManageElement, ToolListDrawings}, names)
}
