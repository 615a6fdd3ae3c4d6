package dataset

import (
	"math"

	"github.com/govalues/decimal"
)

// Value is a single observation cell. Observed values are kept as exact
// decimals so that vintage comparison can distinguish a genuine revision
// from floating-point noise introduced by storage round-trips.
type Value struct {
	dec      decimal.Decimal
	observed bool
}

// Missing returns the explicit missing-value marker.
func Missing() Value {
	return Value{}
}

// FromFloat converts f into an observed Value. NaN maps to Missing.
func FromFloat(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	d, err := decimal.NewFromFloat64(f)
	if err != nil {
		return Missing()
	}
	return Value{dec: d, observed: true}
}

func (v Value) Observed() bool { return v.observed }

// Float64 returns the observation, NaN when missing.
func (v Value) Float64() float64 {
	if !v.observed {
		return math.NaN()
	}
	f, _ := v.dec.Float64()
	return f
}

// Equal compares exactly. Two missing cells are equal.
func (v Value) Equal(o Value) bool {
	if v.observed != o.observed {
		return false
	}
	if !v.observed {
		return true
	}
	return v.dec.Cmp(o.dec) == 0
}

func (v Value) String() string {
	if !v.observed {
		return "NA"
	}
	return v.dec.String()
}
