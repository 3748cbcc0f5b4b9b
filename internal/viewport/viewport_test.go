package viewport

import (
	"math"
	"testing"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{MinTime: 1000, MaxTime: 2000, MinPrice: 100, MaxPrice: 200, GridWidth: 800, GridHeight: 400}

func TestPixelRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 1, 123.5, 400, 799.99, 800} {
		assert.InDelta(t, x, testBounds.TimeToPixel(testBounds.PixelToTime(x)), 1e-9, "x=%v", x)
	}
	for _, y := range []float64{0, 0.5, 200, 333.3, 400} {
		assert.InDelta(t, y, testBounds.PriceToPixel(testBounds.PixelToPrice(y)), 1e-9, "y=%v", y)
	}
}

func TestPriceAxisInverted(t *testing.T) {
	assert.Equal(t, 200.0, testBounds.PixelToPrice(0))
	assert.Equal(t, 100.0, testBounds.PixelToPrice(400))
	assert.Equal(t, 0.0, testBounds.PriceToPixel(200))
}

func TestDegenerateBoundsReturnZero(t *testing.T) {
	b := Bounds{MinTime: 5, MaxTime: 5, MinPrice: 7, MaxPrice: 7}
	assert.Zero(t, b.PixelToTime(10))
	assert.Zero(t, b.PixelToPrice(10))
	assert.Zero(t, b.TimeToPixel(10))
	assert.Zero(t, b.PriceToPixel(10))
	assert.False(t, b.Valid())
}

func TestMapperGuardsBeforeFirstFrame(t *testing.T) {
	var m Mapper
	assert.False(t, m.Ready())
	assert.Zero(t, m.PixelToTime(100))
	assert.Zero(t, m.PriceToPixel(150))

	require.True(t, m.Set(testBounds))
	assert.True(t, m.Ready())
	assert.Equal(t, 1500.0, m.PixelToTime(400))

	assert.False(t, m.Set(testBounds), "identical frame")
	assert.False(t, m.Set(Bounds{MinTime: 0, MaxTime: 1, GridWidth: 0, GridHeight: 10}))
	assert.False(t, m.Set(Bounds{MinTime: math.NaN(), MaxTime: 1, GridWidth: 1, GridHeight: 1}))

	got, ok := m.Current()
	assert.True(t, ok)
	assert.Equal(t, testBounds, got)
}

func candles() []Candle {
	return []Candle{
		{Time: 1000, Open: 120, High: 150, Low: 110, Close: 140},
		{Time: 1500, Open: 140, High: 190, Low: 130, Close: 180},
		{Time: 2000, Open: 180, High: 185, Low: 160, Close: 170},
	}
}

func TestSnapExactOHLCIsUnchanged(t *testing.T) {
	cs := candles()
	c := cs[1]
	for _, p := range []float64{c.High, c.Low, c.Open, c.Close} {
		got := Snap(testBounds.TimeToPixel(c.Time), testBounds.PriceToPixel(p), cs, testBounds)
		assert.Equal(t, c.Time, got.Time)
		assert.InDelta(t, p, got.Price, 1e-9)
	}
}

func TestSnapOutsideThresholdKeepsRawPrice(t *testing.T) {
	cs := candles()
	// Candle at 1500 spans 130..190; 160 is 20 away from every OHLC value,
	// far beyond 3 (0.03 * 100).
	got := Snap(testBounds.TimeToPixel(1520), testBounds.PriceToPixel(160), cs, testBounds)
	assert.Equal(t, 1500.0, got.Time)
	assert.InDelta(t, 160, got.Price, 1e-9)
}

func TestSnapWithinThreshold(t *testing.T) {
	got := SnapPoint(pt(1490, 188), candles(), testBounds)
	assert.Equal(t, 1500.0, got.Time)
	assert.Equal(t, 190.0, got.Price)
}

func TestSnapJustBeyondThreshold(t *testing.T) {
	got := SnapPoint(pt(1500, 193.5), candles(), testBounds)
	assert.Equal(t, 193.5, got.Price)
}

func pt(t, p float64) drawing.Point {
	return drawing.Point{Time: t, Price: p}
}

func TestSnapEmptySeriesIsRaw(t *testing.T) {
	got := Snap(400, 200, nil, testBounds)
	assert.Equal(t, 1500.0, got.Time)
	assert.Equal(t, 150.0, got.Price)
}

func TestNearestIndexTiesKeepFirst(t *testing.T) {
	assert.Equal(t, 0, NearestIndex(1250, candles()))
	assert.Equal(t, 2, NearestIndex(9999, candles()))
	assert.Equal(t, -1, NearestIndex(1, nil))
}

func TestSanitize(t *testing.T) {
	in := []Candle{
		{Time: 1, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: 2, Open: 0, High: 1, Low: 1, Close: 1},
		{Time: 3, Open: 1, High: math.Inf(1), Low: 1, Close: 1},
		{Time: math.NaN(), Open: 1, High: 1, Low: 1, Close: 1},
	}
	got := Sanitize(in)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Time)
}

func TestZoomRange(t *testing.T) {
	lo, hi, ok := ZoomRange(testBounds, ZoomIn, nil)
	require.True(t, ok)
	assert.InDelta(t, 1200.0, lo, 1e-9)
	assert.InDelta(t, 1800.0, hi, 1e-9)

	lo, hi, ok = ZoomRange(testBounds, ZoomOut, nil)
	require.True(t, ok)
	assert.InDelta(t, 800.0, lo, 1e-9)
	assert.InDelta(t, 2200.0, hi, 1e-9)

	lo, hi, ok = ZoomRange(testBounds, ZoomReset, candles())
	require.True(t, ok)
	assert.Equal(t, 1000.0, lo)
	assert.Equal(t, 2000.0, hi)

	_, _, ok = ZoomRange(testBounds, ZoomReset, nil)
	assert.False(t, ok)
	_, _, ok = ZoomRange(Bounds{}, ZoomIn, nil)
	assert.False(t, ok)
}
