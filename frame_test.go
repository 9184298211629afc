package flowplot

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewFlowFrame(t *testing.T) {
	index := yearlyIndex(2000, 2002)

	t.Run("aligned", func(t *testing.T) {
		frame, err := NewFlowFrame(index, []string{"A", "B"}, [][]float64{{1, 2, 3}, {4, 5, 6}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if frame.Len() != 3 {
			t.Fatalf("Len() = %d, want 3", frame.Len())
		}

		values, ok := frame.Column("B")
		if !ok || !reflect.DeepEqual(values, []float64{4, 5, 6}) {
			t.Fatalf("Column(B) = %v, %v", values, ok)
		}

		if _, ok := frame.Column("missing"); ok {
			t.Fatalf("Column(missing) should not be found")
		}
	})

	t.Run("names and series differ", func(t *testing.T) {
		_, err := NewFlowFrame(index, []string{"A", "B"}, [][]float64{{1, 2, 3}})
		if !errors.Is(err, ErrMisaligned) {
			t.Fatalf("expected ErrMisaligned, got %v", err)
		}
	})

	t.Run("short column", func(t *testing.T) {
		_, err := NewFlowFrame(index, []string{"A"}, [][]float64{{1, 2}})
		if !errors.Is(err, ErrMisaligned) {
			t.Fatalf("expected ErrMisaligned, got %v", err)
		}
	})
}
