package assistant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

const (
	pivotMinCandles = 20
	pivotLookback   = 60
	pivotTop        = 3
)

// Pivot is a swing point addressed by offset from the latest candle.
type Pivot struct {
	Offset int     `json:"offset"`
	Price  float64 `json:"price"`
}

type Pivots struct {
	Highs []Pivot `json:"highs"`
	Lows  []Pivot `json:"lows"`
}

// PivotContext finds 3-candle swing highs and lows over the most recent
// candles, newest first. It needs at least 20 candles.
func PivotContext(candles []viewport.Candle) (Pivots, bool) {
	n := len(candles)
	if n < pivotMinCandles {
		return Pivots{}, false
	}
	lookback := min(n, pivotLookback)
	p := Pivots{Highs: []Pivot{}, Lows: []Pivot{}}
	for i := n - 2; i > n-lookback; i-- {
		cur, prev, next := candles[i], candles[i-1], candles[i+1]
		if cur.High > prev.High && cur.High > next.High && len(p.Highs) < pivotTop {
			p.Highs = append(p.Highs, Pivot{Offset: n - 1 - i, Price: round2(cur.High)})
		}
		if cur.Low < prev.Low && cur.Low < next.Low && len(p.Lows) < pivotTop {
			p.Lows = append(p.Lows, Pivot{Offset: n - 1 - i, Price: round2(cur.Low)})
		}
	}
	return p, true
}

// Prompt renders pivots as model context.
func (p Pivots) Prompt() string {
	var sb strings.Builder
	sb.WriteString("KEY PIVOT POINTS (Use these coordinates for drawings):\n")
	fmt.Fprintf(&sb, "- Recent Swing Highs: %s\n", joinPivots(p.Highs))
	fmt.Fprintf(&sb, "- Recent Swing Lows: %s\n", joinPivots(p.Lows))
	sb.WriteString("(Offset 0 is the current live candle. Offset 10 is 10 candles ago).\n")
	return sb.String()
}

func joinPivots(ps []Pivot) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("(Offset: %d, Price: %s)", p.Offset, num(p.Price))
	}
	return strings.Join(parts, ", ")
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloatWithExponent(v, -2).Float64()
	return f
}
