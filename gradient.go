package flowplot

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

// A single anchor of a color gradient. Pos is in [0, 1].
type GradientStop struct {
	Color colorful.Color
	Pos   float64
}

// A continuous color scale over [0, 1], defined by sorted stops. Colors in
// between stops are blended in CIE L*a*b* so the scale stays perceptually
// uniform if the stops are.
type Gradient []GradientStop

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Viridis, sampled at eleven evenly spaced positions.
var Viridis = Gradient{
	{mustHex("#440154"), 0.0},
	{mustHex("#482576"), 0.1},
	{mustHex("#414487"), 0.2},
	{mustHex("#35608d"), 0.3},
	{mustHex("#2a788e"), 0.4},
	{mustHex("#21908c"), 0.5},
	{mustHex("#22a884"), 0.6},
	{mustHex("#43bf71"), 0.7},
	{mustHex("#7ad151"), 0.8},
	{mustHex("#bbdf27"), 0.9},
	{mustHex("#fde725"), 1.0},
}

// Returns the color at position t. t is clamped to [0, 1].
func (g Gradient) At(t float64) colorful.Color {
	if len(g) == 0 {
		return colorful.Color{}
	}

	if t <= g[0].Pos {
		return g[0].Color
	}

	for i := 0; i < len(g)-1; i++ {
		c1 := g[i]
		c2 := g[i+1]
		if t == c2.Pos {
			return c2.Color
		}
		if c1.Pos < t && t < c2.Pos {
			// Blend relative to the segment.
			t := (t - c1.Pos) / (c2.Pos - c1.Pos)
			return c1.Color.BlendLab(c2.Color, t).Clamped()
		}
	}

	return g[len(g)-1].Color
}

// Returns n colors at evenly spaced positions across the gradient, including
// both ends. A single sample is taken from the start of the gradient.
func (g Gradient) Sample(n int) []colorful.Color {
	if n <= 0 {
		return nil
	}

	positions := []float64{0.0}
	if n > 1 {
		positions = floats.Span(make([]float64, n), 0.0, 1.0)
	}

	colors := make([]colorful.Color, n)
	for i, pos := range positions {
		colors[i] = g.At(pos)
	}

	return colors
}

func toDrawingColor(c colorful.Color) drawing.Color {
	r, g, b := c.RGB255()
	return drawing.Color{R: r, G: g, B: b, A: 255}
}
