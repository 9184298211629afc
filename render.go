package flowplot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	titleHeight = 24
	strokeWidth = 1.5
)

// Height in pixels available to each panel.
func (f *Figure) panelHeight() int {
	height := f.Height
	if f.Title != "" {
		height -= titleHeight
	}

	if len(f.Panels) == 0 {
		return height
	}
	return height / len(f.Panels)
}

// Converts a panel into a go-chart chart sized to its slot in the figure.
func (f *Figure) Chart(i int) chart.Chart {
	p := f.Panels[i]

	xMin, xMax := chart.TimeToFloat64(p.XMin), chart.TimeToFloat64(p.XMax)

	xTicks := make([]chart.Tick, len(p.XTicks))
	for j, tick := range p.XTicks {
		xTicks[j] = chart.Tick{Value: chart.TimeToFloat64(tick.Time), Label: tick.Label}
	}

	yTicks := make([]chart.Tick, len(p.YTicks))
	for j, tick := range p.YTicks {
		yTicks[j] = chart.Tick{Value: tick.Value, Label: tick.Label}
	}

	var series []chart.Series
	for _, s := range p.Series {
		series = append(series, seriesSegments(s)...)
	}
	if len(series) == 0 {
		// go-chart refuses a chart without a visible series.
		series = append(series, chart.ContinuousSeries{
			XValues: []float64{xMin, xMax},
			YValues: []float64{p.YMin, p.YMin},
			Style:   chart.Style{StrokeWidth: chart.Disabled},
		})
	}

	tickStyle := chart.Style{FontSize: p.TickFontSize}

	ch := chart.Chart{
		Width:  f.Width,
		Height: f.panelHeight(),
		Background: chart.Style{
			Padding: chart.Box{Top: 12, Left: 16 + p.TickPad, Right: 16, Bottom: 12 + p.TickPad},
		},
		XAxis: chart.XAxis{
			Style: tickStyle,
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: boundedTicks(xTicks, xMin, xMax),
		},
		YAxis: chart.YAxis{
			Name:      p.YLabel,
			NameStyle: chart.Style{FontSize: p.LabelFontSize},
			Style:     tickStyle,
			Range:     &chart.ContinuousRange{Min: p.YMin, Max: p.YMax},
			Ticks:     boundedTicks(yTicks, p.YMin, p.YMax),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch, chart.Style{FontSize: p.LegendFontSize})}

	return ch
}

// Splits a series at every non-finite value. Runs of two or more points are
// stroked, isolated points are drawn as dots. Only the first stroked run
// carries the name, so the legend lists the series once.
func seriesSegments(s Series) []chart.Series {
	var segments []chart.Series
	named := false

	flush := func(times []time.Time, values []float64) {
		switch len(values) {
		case 0:
			return
		case 1:
			segments = append(segments, chart.TimeSeries{
				XValues: times,
				YValues: values,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotColor:    toDrawingColor(s.Color),
					DotWidth:    2 * strokeWidth,
				},
			})
		default:
			segment := chart.TimeSeries{
				XValues: times,
				YValues: values,
				Style: chart.Style{
					StrokeColor: toDrawingColor(s.Color),
					StrokeWidth: strokeWidth,
				},
			}
			if !named {
				segment.Name = s.Name
				named = true
			}
			segments = append(segments, segment)
		}
	}

	start := 0
	for i, v := range s.Values {
		if isFinite(v) {
			continue
		}
		flush(s.Times[start:i], s.Values[start:i])
		start = i + 1
	}
	flush(s.Times[start:], s.Values[start:])

	return segments
}

// go-chart takes the axis range from the tick list when one is given, so the
// range ends are added as unlabeled ticks unless a tick already sits there.
func boundedTicks(ticks []chart.Tick, min, max float64) []chart.Tick {
	eps := math.Abs(max-min) * 1e-9

	bounded := make([]chart.Tick, 0, len(ticks)+2)
	if len(ticks) == 0 || ticks[0].Value > min+eps {
		bounded = append(bounded, chart.Tick{Value: min})
	}
	bounded = append(bounded, ticks...)
	if len(ticks) == 0 || ticks[len(ticks)-1].Value < max-eps {
		bounded = append(bounded, chart.Tick{Value: max})
	}
	return bounded
}

// Rasterizes every panel and stacks them, top to bottom, into a single image.
func (f *Figure) Image() (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	top := 0
	if f.Title != "" {
		drawTitle(canvas, f.Title)
		top = titleHeight
	}

	logger := logrus.WithField("tag", "Figure")

	for i := range f.Panels {
		ch := f.Chart(i)

		var buf bytes.Buffer
		if err := ch.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render panel %d: %w", i, err)
		}

		img, err := png.Decode(&buf)
		if err != nil {
			return nil, fmt.Errorf("decode panel %d: %w", i, err)
		}

		draw.Copy(canvas, image.Pt(0, top), img, img.Bounds(), draw.Over, nil)
		logger.WithFields(logrus.Fields{
			"panel":  i,
			"top":    top,
			"height": img.Bounds().Dy(),
		}).Debug("rendered panel")

		top += img.Bounds().Dy()
	}

	return canvas, nil
}

// Writes the figure as a PNG. Nothing is written if any panel fails to render.
func (f *Figure) Render(w io.Writer) error {
	img, err := f.Image()
	if err != nil {
		return err
	}

	return png.Encode(w, img)
}

// Draws text centered at the top of the image with a small bitmap font.
func drawTitle(dst *image.RGBA, title string) {
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(color.Black), Face: face}

	width := dr.MeasureString(title).Ceil()
	x := (dst.Bounds().Dx() - width) / 2
	if x < 0 {
		x = 0
	}
	// Baseline sits so the glyphs are vertically centered in the title band.
	y := (titleHeight + face.Ascent - face.Descent) / 2

	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(title)
}
