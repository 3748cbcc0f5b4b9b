package viewport

import (
	"math"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
)

// MagnetThreshold is the snap tolerance as a fraction of the visible price range.
const MagnetThreshold = 0.03

// Candle is one OHLCV bar. Time is unix milliseconds.
type Candle struct {
	Time   float64 `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// Sanitize drops candles with non-finite fields or a non-positive open.
// The input is not modified.
func Sanitize(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if !finite(c.Time, c.Open, c.High, c.Low, c.Close) || c.Open <= 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NearestIndex scans for the candle closest in time. Ties keep the lowest
// index. It returns -1 for an empty series.
func NearestIndex(t float64, candles []Candle) int {
	if len(candles) == 0 {
		return -1
	}
	best := 0
	bestDiff := math.Abs(candles[0].Time - t)
	for i := 1; i < len(candles); i++ {
		if d := math.Abs(candles[i].Time - t); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

// Raw converts a pixel to a domain point without snapping.
func Raw(x, y float64, b Bounds) drawing.Point {
	return drawing.Point{Time: b.PixelToTime(x), Price: b.PixelToPrice(y)}
}

// Snap converts a pixel to a domain point pinned to the nearest candle's time,
// and to its closest OHLC value when one lies strictly within
// MagnetThreshold of the price range. Otherwise the raw price is kept.
func Snap(x, y float64, candles []Candle, b Bounds) drawing.Point {
	raw := Raw(x, y, b)
	if len(candles) == 0 {
		return raw
	}
	return SnapPoint(raw, candles, b)
}

// SnapPoint applies the magnet rule to an already converted domain point.
func SnapPoint(raw drawing.Point, candles []Candle, b Bounds) drawing.Point {
	i := NearestIndex(raw.Time, candles)
	if i < 0 {
		return raw
	}
	c := candles[i]
	threshold := b.PriceRange() * MagnetThreshold
	out := drawing.Point{Time: c.Time, Price: raw.Price}
	minDiff := math.Inf(1)
	for _, p := range [...]float64{c.High, c.Low, c.Open, c.Close} {
		d := math.Abs(p - raw.Price)
		if d < minDiff && d < threshold {
			minDiff = d
			out.Price = p
		}
	}
	return out
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
