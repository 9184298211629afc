package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cactusdynamics/flowplot"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type options struct {
	Input      string `short:"i" long:"input" description:"CSV with a date column followed by one column per station (default: stdin)"`
	Output     string `short:"o" long:"output" default:"vmm_stations.png" description:"PNG file to write the figure to"`
	YLabel     string `long:"ylabel" description:"Label of the y-axes (default: flow (m³/s))"`
	Title      string `short:"t" long:"title" description:"Title drawn above the panels"`
	Width      int    `long:"width" default:"1600" description:"Figure width in pixels"`
	Height     int    `long:"height" default:"800" description:"Figure height in pixels"`
	DateLayout string `long:"date-layout" default:"2006-01-02" description:"Go time layout of the date column"`
	Relaxed    bool   `long:"relaxed" description:"Split rows on commas or whitespace instead of parsing strict CSV"`
	NoHeader   bool   `long:"no-header" description:"The input has no header row with station names"`

	Serve bool   `short:"s" long:"serve" description:"Serve the figure over HTTP instead of writing a file"`
	Host  string `long:"host" default:"localhost" description:"Host to serve on"`
	Port  uint16 `short:"p" long:"port" default:"5274" description:"Port to serve on"`
	Open  bool   `long:"open" description:"Open the served figure in a browser"`

	Debug bool `long:"debug" description:"Enable debug logging"`
}

func readFrame(ctx context.Context, opts options, input io.Reader) (*flowplot.FlowFrame, error) {
	var stringReader flowplot.StringReader = flowplot.NewCsvStringReader(input)
	if opts.Relaxed {
		stringReader = flowplot.NewRelaxedStringReader(input)
	}

	return flowplot.ReadFlowFrame(ctx, &flowplot.FlowRowReader{
		Input:      stringReader,
		DateLayout: opts.DateLayout,
		HasHeader:  !opts.NoHeader,
	})
}

func buildFigure(ctx context.Context, opts options, input io.Reader) (*flowplot.Figure, error) {
	frame, err := readFrame(ctx, opts, input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	plotOptions := []flowplot.Option{
		flowplot.WithTitle(opts.Title),
		flowplot.WithSize(opts.Width, opts.Height),
	}
	if opts.YLabel != "" {
		plotOptions = append(plotOptions, flowplot.WithYLabel(opts.YLabel))
	}

	figure, _, err := flowplot.PlotStations(frame, plotOptions...)
	if err != nil {
		return nil, err
	}

	return figure, nil
}

// Renders to a temporary file next to the output first, so a failed render
// never leaves a truncated PNG behind.
func writeFigure(figure *flowplot.Figure, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".flowplot-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := figure.Render(tmp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func run(ctx context.Context, opts options, stdin io.Reader) error {
	input := stdin
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	figure, err := buildFigure(ctx, opts, input)
	if err != nil {
		return err
	}

	if opts.Serve {
		server := flowplot.NewHttpServer(figure, opts.Host, opts.Port)
		server.OpenBrowser = opts.Open
		return server.Run()
	}

	if err := writeFigure(figure, opts.Output); err != nil {
		return fmt.Errorf("write %s: %w", opts.Output, err)
	}

	logrus.WithField("output", opts.Output).Info("wrote figure")
	return nil
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(context.Background(), opts, os.Stdin); err != nil {
		logrus.WithError(err).Fatal("flowplot failed")
	}
}
