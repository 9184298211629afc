package flowplot

import (
	"math"
	"strconv"
	"time"
)

// Layout used to label yearly ticks.
const YearFormat = "2006"

type Tick struct {
	Value float64
	Label string
}

type TimeTick struct {
	Time  time.Time
	Label string
}

// Returns 1 January of every year within [min, max], in the location of min.
func YearLocator(min, max time.Time) []time.Time {
	if max.Before(min) {
		min, max = max, min
	}

	loc := min.Location()
	max = max.In(loc)

	year := min.Year()
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	if first.Before(min) {
		year++
	}

	ticks := make([]time.Time, 0, max.Year()-year+1)
	for ; year <= max.Year(); year++ {
		ticks = append(ticks, time.Date(year, time.January, 1, 0, 0, 0, 0, loc))
	}

	return ticks
}

// Places at most Bins ticks on round numbers (1, 2, 2.5 and 5 times a power
// of ten) inside a value range.
type MaxNLocator struct {
	Bins int
}

var niceSteps = []float64{1, 2, 2.5, 5}

// Returns the ticks for [min, max] and the range they were placed in. A
// degenerate range is widened around its value first, so the returned range
// may be larger than the input.
func (l MaxNLocator) Ticks(min, max float64) ([]Tick, float64, float64) {
	if l.Bins <= 0 || !isFinite(min) || !isFinite(max) {
		return nil, min, max
	}

	if min > max {
		min, max = max, min
	}

	if min == max {
		margin := math.Abs(min) * 0.05
		if margin == 0 {
			margin = 1
		}
		min -= margin
		max += margin
	}

	exponent := int(math.Floor(math.Log10((max - min) / float64(l.Bins))))

	for ; ; exponent++ {
		magnitude := math.Pow(10, float64(exponent))
		for _, nice := range niceSteps {
			step := nice * magnitude
			first := math.Ceil(min/step - 1e-9)
			last := math.Floor(max/step + 1e-9)
			if int(last-first)+1 > l.Bins {
				continue
			}

			decimals := stepDecimals(nice, exponent)
			ticks := make([]Tick, 0, l.Bins)
			for k := first; k <= last; k++ {
				value := k * step
				if value == 0 {
					value = math.Abs(value) // no "-0" labels
				}
				ticks = append(ticks, Tick{
					Value: value,
					Label: strconv.FormatFloat(value, 'f', decimals, 64),
				})
			}
			return ticks, min, max
		}
	}
}

// Number of decimals needed to print every multiple of nice*10^exponent.
func stepDecimals(nice float64, exponent int) int {
	decimals := -exponent
	if nice == 2.5 {
		decimals++
	}
	if decimals < 0 {
		return 0
	}
	return decimals
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
