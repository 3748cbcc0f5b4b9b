// Package viewport maps between chart pixel space and the (time, price)
// domain, and resolves magnet snapping against a candle series.
package viewport

import "math"

// Bounds is the visible domain and plot grid reported by the chart surface.
// Times are unix milliseconds. A frame is replaced whole, never edited.
type Bounds struct {
	MinTime    float64 `json:"min_time"`
	MaxTime    float64 `json:"max_time"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	GridWidth  float64 `json:"grid_width" doc:"Plot area width in pixels"`
	GridHeight float64 `json:"grid_height" doc:"Plot area height in pixels"`
}

// Valid reports whether b supports conversions in both directions.
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.MinTime, b.MaxTime, b.MinPrice, b.MaxPrice, b.GridWidth, b.GridHeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MaxTime > b.MinTime && b.MaxPrice > b.MinPrice && b.GridWidth > 0 && b.GridHeight > 0
}

// PriceRange is MaxPrice - MinPrice.
func (b Bounds) PriceRange() float64 { return b.MaxPrice - b.MinPrice }

// PixelToTime returns 0 on a zero-width grid.
func (b Bounds) PixelToTime(x float64) float64 {
	if b.GridWidth == 0 {
		return 0
	}
	return b.MinTime + (x/b.GridWidth)*(b.MaxTime-b.MinTime)
}

// PixelToPrice inverts the y axis: y=0 is MaxPrice. Returns 0 on a zero-height grid.
func (b Bounds) PixelToPrice(y float64) float64 {
	if b.GridHeight == 0 {
		return 0
	}
	return b.MinPrice + ((b.GridHeight-y)/b.GridHeight)*(b.MaxPrice-b.MinPrice)
}

// TimeToPixel returns 0 when the time range is degenerate.
func (b Bounds) TimeToPixel(t float64) float64 {
	if b.MaxTime == b.MinTime {
		return 0
	}
	return ((t - b.MinTime) / (b.MaxTime - b.MinTime)) * b.GridWidth
}

// PriceToPixel returns 0 when the price range is degenerate.
func (b Bounds) PriceToPixel(p float64) float64 {
	if b.MaxPrice == b.MinPrice {
		return 0
	}
	return b.GridHeight - ((p-b.MinPrice)/(b.MaxPrice-b.MinPrice))*b.GridHeight
}

// Pixel is a position inside the plot grid.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mapper is the single current-bounds cell. It is not safe for concurrent use;
// the owning chart serializes access.
type Mapper struct {
	bounds Bounds
	set    bool
}

// Set replaces the current bounds. Frames with a non-positive grid or
// non-finite values are ignored, as are frames identical to the current one.
// It reports whether the cell changed.
func (m *Mapper) Set(b Bounds) bool {
	if !usable(b) {
		return false
	}
	if m.set && m.bounds == b {
		return false
	}
	m.bounds = b
	m.set = true
	return true
}

// Current returns the held bounds and whether any have been set.
func (m *Mapper) Current() (Bounds, bool) {
	return m.bounds, m.set
}

func (m *Mapper) Ready() bool { return m.set }

// Reset forgets the held bounds.
func (m *Mapper) Reset() {
	m.bounds = Bounds{}
	m.set = false
}

func (m *Mapper) PixelToTime(x float64) float64 {
	if !m.set {
		return 0
	}
	return m.bounds.PixelToTime(x)
}

func (m *Mapper) PixelToPrice(y float64) float64 {
	if !m.set {
		return 0
	}
	return m.bounds.PixelToPrice(y)
}

func (m *Mapper) TimeToPixel(t float64) float64 {
	if !m.set {
		return 0
	}
	return m.bounds.TimeToPixel(t)
}

func (m *Mapper) PriceToPixel(p float64) float64 {
	if !m.set {
		return 0
	}
	return m.bounds.PriceToPixel(p)
}

// usable mirrors what the chart surface will accept: a positive grid and
// finite values. Equal min/max ranges pass and degrade conversions to 0.
func usable(b Bounds) bool {
	for _, v := range []float64{b.MinTime, b.MaxTime, b.MinPrice, b.MaxPrice, b.GridWidth, b.GridHeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.GridWidth > 0 && b.GridHeight > 0
}
