package flowplot

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
)

const (
	// Number of stacked panels in a station figure. The input frame must have
	// exactly this many columns.
	PanelCount = 3

	// Default y-axis label shared by all panels.
	DefaultYLabel = "flow (m³/s)"

	// Maximum number of y-axis ticks per panel.
	YTickCount = 4

	TickFontSize   = 15.0
	TickPad        = 8
	LabelFontSize  = 15.0
	LegendFontSize = 15.0

	DefaultWidth  = 1600
	DefaultHeight = 800
)

var (
	ErrColumnCount = errors.New("unexpected number of columns")
	ErrEmptyFrame  = errors.New("frame has no data")
)

// A single plotted line.
type Series struct {
	Name   string
	Color  colorful.Color
	Times  []time.Time
	Values []float64
}

// One subplot of a Figure, showing a single column of the input frame. A
// Panel holds everything needed to draw it and does not refer back to the
// frame it was built from.
type Panel struct {
	Row    int
	Series []Series
	Legend []string

	YLabel string
	YMin   float64
	YMax   float64
	YTicks []Tick

	XMin   time.Time
	XMax   time.Time
	XTicks []TimeTick

	// False for every panel except the bottom one. The ticks are still
	// placed, but their labels are empty.
	ShowXTickLabels bool

	TickFontSize   float64
	TickPad        int
	LabelFontSize  float64
	LegendFontSize float64
}

// Vertically stacked panels sharing the same time axis.
type Figure struct {
	Title  string
	Width  int
	Height int
	Panels []*Panel
}

type plotOptions struct {
	yLabel string
	title  string
	width  int
	height int
}

type Option func(*plotOptions)

func WithYLabel(label string) Option {
	return func(o *plotOptions) {
		o.yLabel = label
	}
}

// Title drawn above the panels. No title is drawn by default.
func WithTitle(title string) Option {
	return func(o *plotOptions) {
		o.title = title
	}
}

// Figure size in pixels. Non-positive values keep the default.
func WithSize(width, height int) Option {
	return func(o *plotOptions) {
		if width > 0 {
			o.width = width
		}
		if height > 0 {
			o.height = height
		}
	}
}

// Builds a figure with one panel per station column of frame, top to bottom
// in column order. The frame must have exactly PanelCount columns and at least
// one row.
//
// Each panel is colored by sampling the Viridis gradient at evenly spaced
// positions, has its y-axis limited to YTickCount ticks and its x-axis ticked
// at every year. Only the bottom panel labels its x ticks, with the year.
//
// The returned panels are the same values as Figure.Panels.
func PlotStations(frame *FlowFrame, opts ...Option) (*Figure, []*Panel, error) {
	options := plotOptions{
		yLabel: DefaultYLabel,
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if frame == nil || len(frame.Columns) == 0 || frame.Len() == 0 {
		return nil, nil, ErrEmptyFrame
	}

	if len(frame.Columns) != PanelCount {
		return nil, nil, fmt.Errorf("%w: expected %d station columns, got %d (%v)", ErrColumnCount, PanelCount, len(frame.Columns), frame.Columns)
	}

	if len(frame.Values) != len(frame.Columns) {
		return nil, nil, fmt.Errorf("%w: %d column names for %d value series", ErrMisaligned, len(frame.Columns), len(frame.Values))
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":     "PlotStations",
		"columns": frame.Columns,
		"rows":    frame.Len(),
	})

	xMin, xMax := timeExtent(frame.Index)
	years := YearLocator(xMin, xMax)
	colors := Viridis.Sample(len(frame.Columns))

	figure := &Figure{
		Title:  options.title,
		Width:  options.width,
		Height: options.height,
		Panels: make([]*Panel, 0, len(frame.Columns)),
	}

	for i, column := range frame.Columns {
		values := frame.Values[i]
		if len(values) != frame.Len() {
			return nil, nil, fmt.Errorf("%w: column %q has %d values, index has %d", ErrMisaligned, column, len(values), frame.Len())
		}

		panel := &Panel{
			Row: i,
			Series: []Series{{
				Name:   column,
				Color:  colors[i],
				Times:  frame.Index,
				Values: values,
			}},
			Legend: []string{column},

			YLabel: options.yLabel,

			XMin: xMin,
			XMax: xMax,

			TickFontSize:   TickFontSize,
			TickPad:        TickPad,
			LabelFontSize:  LabelFontSize,
			LegendFontSize: LegendFontSize,
		}

		yMin, yMax, ok := Extent(values)
		if !ok {
			logger.WithField("column", column).Warn("column has no finite values")
			yMin, yMax = 0, 0
		}
		panel.YTicks, panel.YMin, panel.YMax = MaxNLocator{Bins: YTickCount}.Ticks(yMin, yMax)

		figure.Panels = append(figure.Panels, panel)
	}

	for i, panel := range figure.Panels {
		panel.ShowXTickLabels = i == len(figure.Panels)-1
		panel.XTicks = make([]TimeTick, len(years))
		for j, year := range years {
			panel.XTicks[j].Time = year
			if panel.ShowXTickLabels {
				panel.XTicks[j].Label = year.Format(YearFormat)
			}
		}
	}

	logger.WithField("yearTicks", len(years)).Debug("built station figure")

	return figure, figure.Panels, nil
}

// Returns the earliest and latest timestamps. The index is not required to be
// sorted. A single-instant index is widened to one year so the time axis is
// never empty.
func timeExtent(index []time.Time) (time.Time, time.Time) {
	min, max := index[0], index[0]
	for _, t := range index[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}

	if !max.After(min) {
		max = min.AddDate(1, 0, 0)
	}

	return min, max
}
