package defaults

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
)

func TestApplyTrendline(t *testing.T) {
	d := drawing.NewTrendline("a", 5, drawing.Point{Time: 1, Price: 1}, drawing.Point{Time: 2, Price: 2})
	d.Locked = true

	got := Builtin().Apply(d)
	assert.Equal(t, "#2962ff", got.Trendline.Color)
	assert.Equal(t, 2.0, got.Trendline.Width)
	assert.Equal(t, drawing.StyleSolid, got.Trendline.Style)
	assert.Equal(t, d.Trendline.Points, got.Trendline.Points)
	assert.True(t, got.Locked)
	assert.Equal(t, int64(5), got.CreatedAt)
	assert.Empty(t, d.Trendline.Color, "input untouched")
}

func TestApplyFibonacciKeepsSubtypeAndCopiesLevels(t *testing.T) {
	s := Builtin()
	circles := drawing.NewFibonacci("f", 1, drawing.Point{}, drawing.Point{Time: 1}, drawing.SubtypeCircles)
	got := s.Apply(circles)
	assert.Equal(t, drawing.SubtypeCircles, got.Fibonacci.Subtype)
	require.Len(t, got.Fibonacci.Levels, 9)

	got.Fibonacci.Levels[0].Color = "#000000"
	assert.Equal(t, "#787b86", s.Fibonacci.Levels[0].Color)

	plain := drawing.NewFibonacci("g", 1, drawing.Point{}, drawing.Point{Time: 1}, "")
	assert.Equal(t, drawing.SubtypeLines, s.Apply(plain).Fibonacci.Subtype)
	assert.Equal(t, drawing.StyleDashed, s.Apply(plain).Fibonacci.Style)
	assert.True(t, s.Apply(plain).Fibonacci.ShowLabels)
}

func TestApplyTextKeepsContent(t *testing.T) {
	got := Builtin().Apply(drawing.NewText("t", 1, drawing.Point{}, "hello"))
	assert.Equal(t, "hello", got.Text.Text)
	assert.Equal(t, "#d1d4dc", got.Text.Color)
	assert.Equal(t, 14.0, got.Text.FontSize)
}

func TestLoadMergesOverBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	yml := `
trendline:
  color: "#ff0000"
  width: 3
  style: dotted
fibonacci:
  levels:
    - {value: 0, color: "#111111", visible: true}
    - {value: 1, color: "#222222", visible: true}
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", s.Trendline.Color)
	assert.Equal(t, drawing.StyleDotted, s.Trendline.Style)
	assert.Len(t, s.Fibonacci.Levels, 2)
	assert.Equal(t, drawing.StyleDashed, s.Fibonacci.Style, "unset fields keep builtins")
	assert.Equal(t, 14.0, s.Text.FontSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fibonacci:\n  subtype: spiral\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fibonacci.subtype")
}

func TestLoadEmptyPath(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Builtin(), s)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
