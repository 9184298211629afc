package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/cactusdynamics/flowplot"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// Config holds the configuration for the WS reader
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    logrus.FieldLogger
}

// WSReader reads a figure from the flowplot /ws endpoint and outputs its
// series as CSV.
type WSReader struct {
	config    Config
	csvWriter *csv.Writer
	columns   []string
}

func NewWSReader(config Config) *WSReader {
	return &WSReader{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
	}
}

// Connect establishes the websocket connection and processes messages until
// the stream ends.
func (w *WSReader) Connect(ctx context.Context) error {
	u, err := url.Parse(w.config.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	w.config.Logger.WithField("url", u.String()).Info("connecting to websocket")

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := w.csvWriter.Write([]string{"series_id", "x", "y"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for {
		_, messageData, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.Info("connection closed normally")
				break
			}
			w.csvWriter.Flush()
			return fmt.Errorf("failed to read message: %w", err)
		}

		if err := w.processMessage(messageData); err != nil {
			if err == io.EOF {
				w.config.Logger.Info("stream ended")
				break
			}
			w.config.Logger.WithError(err).Error("error processing message")
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

// Columns of the figure, known once the METADATA message was received.
func (w *WSReader) Columns() []string {
	return w.columns
}

func (w *WSReader) processMessage(messageData []byte) error {
	msg, err := flowplot.DecodeWSMessage(messageData)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch payload := msg.Payload.(type) {
	case flowplot.DataMessage:
		return w.processDataMessage(payload)

	case flowplot.Metadata:
		w.columns = w.columns[:0]
		for _, panel := range payload.Panels {
			w.columns = append(w.columns, panel.Column)
		}
		w.config.Logger.WithField("columns", w.columns).Debug("received metadata")

	case flowplot.StreamEndMessage:
		if payload.Error {
			w.config.Logger.WithField("message", payload.Msg).Error("stream ended with error")
		} else {
			w.config.Logger.WithField("message", payload.Msg).Info("stream ended successfully")
		}
		return io.EOF

	default:
		w.config.Logger.WithField("type", fmt.Sprintf("0x%02x", msg.Header.Type)).Warn("unknown message type")
	}

	return nil
}

func (w *WSReader) processDataMessage(dataMsg flowplot.DataMessage) error {
	seriesID := strconv.FormatUint(uint64(dataMsg.SeriesID), 10)

	for i := 0; i < len(dataMsg.X); i++ {
		row := []string{
			seriesID,
			strconv.FormatFloat(dataMsg.X[i], 'f', -1, 64),
			strconv.FormatFloat(dataMsg.Y[i], 'g', -1, 64),
		}
		if err := w.csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.csvWriter.Flush()
	return w.csvWriter.Error()
}

type options struct {
	URL   string `long:"url" default:"http://localhost:5274" description:"URL of the flowplot server"`
	Debug bool   `long:"debug" description:"Enable debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if opts.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	config := Config{
		ServerURL: opts.URL,
		Output:    os.Stdout,
		Logger:    logger,
	}

	reader := NewWSReader(config)
	if err := reader.Connect(context.Background()); err != nil {
		logger.WithError(err).Error("failed to read figure")
		os.Exit(1)
	}
}
