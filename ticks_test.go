package flowplot

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestYearLocator(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	years := func(ticks []time.Time) []int {
		out := []int{}
		for _, tick := range ticks {
			out = append(out, tick.Year())
		}
		return out
	}

	tests := []struct {
		name     string
		min, max time.Time
		want     []int
	}{
		{"boundaries inclusive", date(2000, 1, 1), date(2003, 1, 1), []int{2000, 2001, 2002, 2003}},
		{"mid year start", date(2000, 6, 15), date(2002, 3, 1), []int{2001, 2002}},
		{"within one year", date(2001, 2, 1), date(2001, 11, 30), []int{}},
		{"reversed", date(2003, 1, 1), date(2001, 1, 1), []int{2001, 2002, 2003}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearLocator(tt.min, tt.max)
			if !reflect.DeepEqual(years(got), tt.want) {
				t.Fatalf("YearLocator(%v, %v) = %v, want %v", tt.min, tt.max, years(got), tt.want)
			}
			for _, tick := range got {
				if tick.Month() != time.January || tick.Day() != 1 || tick.Hour() != 0 {
					t.Fatalf("tick %v is not 1 January", tick)
				}
			}
		})
	}

	t.Run("keeps location", func(t *testing.T) {
		loc := time.FixedZone("CET", 3600)
		got := YearLocator(time.Date(2000, 1, 1, 0, 0, 0, 0, loc), time.Date(2001, 6, 1, 0, 0, 0, 0, loc))
		if len(got) != 2 || got[0].Location() != loc {
			t.Fatalf("unexpected ticks %v", got)
		}
		if got[0].Format(YearFormat) != "2000" {
			t.Fatalf("first tick label = %q", got[0].Format(YearFormat))
		}
	})
}

func TestMaxNLocator(t *testing.T) {
	tests := []struct {
		name       string
		bins       int
		min, max   float64
		wantLabels []string
	}{
		{"unit range", 4, 0, 1, []string{"0.0", "0.5", "1.0"}},
		{"flow range", 4, 3.2, 97.5, []string{"20", "40", "60", "80"}},
		{"constant", 4, 1, 1, []string{"0.95", "1.00", "1.05"}},
		{"zero constant", 4, 0, 0, []string{"-1", "0", "1"}},
		{"negative", 4, -10, 10, []string{"-10", "0", "10"}},
		{"reversed", 4, 10, -10, []string{"-10", "0", "10"}},
		{"large", 4, 0, 12000, []string{"0", "5000", "10000"}},
		{"just below zero", 4, -0.3, 10, []string{"0", "5", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks, lo, hi := MaxNLocator{Bins: tt.bins}.Ticks(tt.min, tt.max)
			if len(ticks) > tt.bins {
				t.Fatalf("got %d ticks, want at most %d", len(ticks), tt.bins)
			}

			labels := []string{}
			for _, tick := range ticks {
				if tick.Value < lo-1e-9 || tick.Value > hi+1e-9 {
					t.Errorf("tick %v outside range [%v, %v]", tick.Value, lo, hi)
				}
				labels = append(labels, tick.Label)
			}

			if !reflect.DeepEqual(labels, tt.wantLabels) {
				t.Fatalf("labels = %v, want %v", labels, tt.wantLabels)
			}
		})
	}

	t.Run("zero tick is positive", func(t *testing.T) {
		ticks, _, _ := MaxNLocator{Bins: 4}.Ticks(-0.3, 10)
		if len(ticks) == 0 || math.Signbit(ticks[0].Value) {
			t.Fatalf("ticks = %v, want a first tick of +0", ticks)
		}
	})

	t.Run("never exceeds bins", func(t *testing.T) {
		for _, span := range []float64{0.001, 0.37, 1, 3, 7.7, 42, 123.4, 999, 1e6} {
			for bins := 2; bins <= 6; bins++ {
				ticks, _, _ := MaxNLocator{Bins: bins}.Ticks(1.3, 1.3+span)
				if len(ticks) == 0 || len(ticks) > bins {
					t.Errorf("span=%v bins=%d: got %d ticks", span, bins, len(ticks))
				}
			}
		}
	})

	t.Run("non-finite", func(t *testing.T) {
		ticks, _, _ := MaxNLocator{Bins: 4}.Ticks(math.NaN(), 1)
		if ticks != nil {
			t.Fatalf("expected no ticks for NaN, got %v", ticks)
		}
	})
}
