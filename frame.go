package flowplot

import (
	"errors"
	"fmt"
	"time"
)

var ErrMisaligned = errors.New("column values are not aligned with the index")

// A time-indexed table of station flows. Values[i] holds the samples for
// Columns[i], aligned to Index. The index is expected to be increasing, but
// this is not enforced.
type FlowFrame struct {
	Index   []time.Time
	Columns []string
	Values  [][]float64
}

func NewFlowFrame(index []time.Time, columns []string, values [][]float64) (*FlowFrame, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d column names for %d value series", ErrMisaligned, len(columns), len(values))
	}

	for i, series := range values {
		if len(series) != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d values, index has %d", ErrMisaligned, columns[i], len(series), len(index))
		}
	}

	return &FlowFrame{
		Index:   index,
		Columns: columns,
		Values:  values,
	}, nil
}

// Number of rows in the frame.
func (f *FlowFrame) Len() int {
	return len(f.Index)
}

// Returns the values of the named column, or false if no such column exists.
func (f *FlowFrame) Column(name string) ([]float64, bool) {
	for i, column := range f.Columns {
		if column == name {
			return f.Values[i], true
		}
	}

	return nil, false
}
