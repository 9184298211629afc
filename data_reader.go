package flowplot

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// The pipeline starts with an io.Reader (a file or stdin), which a
// StringReader splits into fields. A FlowRowReader turns the fields into a
// FlowRow, and ReadFlowFrame collects all rows into a FlowFrame that can be
// handed to PlotStations.

var errIgnoreThisRow = errors.New("ignore this row")

// Date layout of the first column, unless FlowRowReader.DateLayout is set.
const DefaultDateLayout = "2006-01-02"

// When Read is called, return an array of strings which are the columns.
type StringReader interface {
	Read(context.Context) ([]string, error)
}

type FlowRow struct {
	Time   time.Time
	Values []float64
}

// This implements a StringReader and reads an io.Reader using the Golang
// csv module.  This means the input data must strictly conform to CSV data. If
// the input data is not exactly CSV (for example separated by one or more
// spaces), use the RelaxedStringReader.
type CsvStringReader struct {
	input     io.Reader
	csvReader *csv.Reader

	lineCount int
}

func NewCsvStringReader(input io.Reader) *CsvStringReader {
	csvReader := csv.NewReader(input)
	// Station exports are not always rectangular, FlowRowReader checks the
	// field count instead.
	csvReader.FieldsPerRecord = -1

	return &CsvStringReader{
		input:     input,
		csvReader: csvReader,
		lineCount: 0,
	}
}

func (r *CsvStringReader) Read(ctx context.Context) ([]string, error) {
	line, err := r.csvReader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	r.lineCount++

	if err != nil {
		logger := logrus.WithFields(logrus.Fields{
			"tag":     "CsvString",
			"line":    line,
			"lineNum": r.lineCount,
		})

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.WithError(err).Debug("unable to parse CSV, ignoring...")
			return nil, errIgnoreThisRow
		}

		logger.WithError(err).Error("unable to read CSV")
		return nil, err
	}

	return line, nil
}

// This is a more relaxed reader that can split on spaces or commas. However, it does not
// follow string CSV formatting.
type RelaxedStringReader struct {
	input   io.Reader
	scanner *bufio.Scanner

	lineCount int
}

func NewRelaxedStringReader(input io.Reader) *RelaxedStringReader {
	return &RelaxedStringReader{
		input:   input,
		scanner: bufio.NewScanner(input),

		lineCount: 0,
	}
}

// Split on either comma or any number of spaces or tabs
var relaxedSplitter = regexp.MustCompile("[ \t]+|,")

func (r *RelaxedStringReader) Read(ctx context.Context) ([]string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			logrus.WithField("tag", "RelaxedString").WithError(err).Error("unable to read line")
			return nil, err
		}
		return nil, io.EOF
	}

	r.lineCount++

	// Return only non-empty fields
	splittedLine := Filter(relaxedSplitter.Split(r.scanner.Text(), -1), func(value string) bool {
		return len(value) > 0
	})

	return splittedLine, nil
}

// Reads station flows from text input. The first field of every row is the
// date, the remaining fields are the flows of each station. Unparsable rows
// are ignored and logged via warnings.
type FlowRowReader struct {
	// The input reader object (either CsvStringReader or RelaxedStringReader)
	Input StringReader

	// Layout of the date field. Defaults to DefaultDateLayout.
	DateLayout string

	// Location the dates are in. Defaults to UTC.
	Location *time.Location

	// The station names. If empty and HasHeader is set, they are taken from
	// the header row.
	Columns []string

	// If the first row holds column names instead of data.
	HasHeader bool

	headerRead bool
}

func (r *FlowRowReader) Read(ctx context.Context) (FlowRow, error) {
	if err := ctx.Err(); err != nil {
		return FlowRow{}, err
	}

	line, err := r.Input.Read(ctx)
	if err != nil {
		return FlowRow{}, err
	}

	if r.HasHeader && !r.headerRead {
		r.headerRead = true
		if len(r.Columns) == 0 && len(line) > 1 {
			r.Columns = make([]string, 0, len(line)-1)
			for _, name := range line[1:] {
				r.Columns = append(r.Columns, strings.TrimSpace(name))
			}
		}
		return FlowRow{}, errIgnoreThisRow
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":  "FlowRow",
		"line": line,
	})

	if len(line) < 2 {
		logger.Warn("expected a date and at least one value, ignoring...")
		return FlowRow{}, errIgnoreThisRow
	}

	layout := r.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	location := r.Location
	if location == nil {
		location = time.UTC
	}

	date, err := time.ParseInLocation(layout, strings.TrimSpace(line[0]), location)
	if err != nil {
		logger.WithError(err).Warn("cannot parse date, ignoring...")
		return FlowRow{}, errIgnoreThisRow
	}

	row := FlowRow{
		Time:   date,
		Values: make([]float64, 0, len(line)-1),
	}

	for _, value := range line[1:] {
		value = strings.TrimSpace(value)
		if value == "" {
			// Gaps in a station record.
			row.Values = append(row.Values, math.NaN())
			continue
		}

		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			logger.Warn("cannot parse float, ignoring...")
			return FlowRow{}, errIgnoreThisRow
		}

		row.Values = append(row.Values, floatValue)
	}

	if len(r.Columns) > 0 && len(r.Columns) != len(row.Values) {
		logger.Warnf("expected column count (%d) is not observed (%d)", len(r.Columns), len(row.Values))
		return FlowRow{}, errIgnoreThisRow
	}

	return row, nil
}

func (r *FlowRowReader) ColumnNames() []string {
	return r.Columns
}

// Reads rows until the input ends and collects them into a frame. Columns
// without a name are called "column N". The first row fixes the number of
// columns if no names are known.
func ReadFlowFrame(ctx context.Context, r *FlowRowReader) (*FlowFrame, error) {
	var index []time.Time
	var values [][]float64
	ignored := 0

	for {
		row, err := r.Read(ctx)
		if err == errIgnoreThisRow {
			ignored++
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		if values == nil {
			if len(r.Columns) == 0 {
				r.Columns = make([]string, len(row.Values))
				for i := range r.Columns {
					r.Columns[i] = fmt.Sprintf("column %d", i+1)
				}
			}
			values = make([][]float64, len(r.Columns))
		}

		if len(row.Values) != len(values) {
			logrus.WithFields(logrus.Fields{
				"tag":  "ReadFlowFrame",
				"time": row.Time,
			}).Warnf("expected column count (%d) is not observed (%d)", len(values), len(row.Values))
			ignored++
			continue
		}

		index = append(index, row.Time)
		for i, v := range row.Values {
			values[i] = append(values[i], v)
		}
	}

	if values == nil {
		values = make([][]float64, len(r.Columns))
	}

	logrus.WithFields(logrus.Fields{
		"tag":     "ReadFlowFrame",
		"rows":    len(index),
		"ignored": ignored,
		"columns": r.Columns,
	}).Debug("read flow frame")

	return NewFlowFrame(index, r.Columns, values)
}
