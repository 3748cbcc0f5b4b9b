package viewport

import "fmt"

// ZoomFactor is the fraction of the visible time range added or removed per step.
const ZoomFactor = 0.2

type ZoomDirection string

const (
	ZoomIn    ZoomDirection = "in"
	ZoomOut   ZoomDirection = "out"
	ZoomReset ZoomDirection = "reset"
)

func ParseZoomDirection(s string) (ZoomDirection, error) {
	switch d := ZoomDirection(s); d {
	case ZoomIn, ZoomOut, ZoomReset:
		return d, nil
	}
	return "", fmt.Errorf("unknown zoom direction %q", s)
}

// ZoomRange computes the visible time range to request from the chart
// surface. Reset spans the first to last candle. ok is false when there is
// nothing sensible to request.
func ZoomRange(b Bounds, dir ZoomDirection, candles []Candle) (minTime, maxTime float64, ok bool) {
	if dir == ZoomReset {
		if len(candles) == 0 {
			return 0, 0, false
		}
		return candles[0].Time, candles[len(candles)-1].Time, true
	}
	r := b.MaxTime - b.MinTime
	if r <= 0 {
		return 0, 0, false
	}
	delta := r * ZoomFactor
	switch dir {
	case ZoomIn:
		minTime, maxTime = b.MinTime+delta, b.MaxTime-delta
	case ZoomOut:
		minTime, maxTime = b.MinTime-delta, b.MaxTime+delta
	default:
		return 0, 0, false
	}
	if maxTime <= minTime {
		return 0, 0, false
	}
	return minTime, maxTime, true
}
