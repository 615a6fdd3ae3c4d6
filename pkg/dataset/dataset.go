// Package dataset holds ordered, time-indexed observation vectors with
// explicit missing-value markers, and the vintage comparison used by news
// decomposition.
package dataset

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrVariableCount = errors.New("value count does not match variable count")
	ErrOutOfOrder    = errors.New("observation timestamp not after the previous one")
	ErrIrregular     = errors.New("time index is not evenly spaced")
	ErrTooShort      = errors.New("dataset has fewer than two observations")
)

type Dataset struct {
	names []string
	times []time.Time
	rows  [][]Value
}

func New(names ...string) *Dataset {
	if len(names) == 0 {
		panic("dataset needs at least one variable")
	}
	return &Dataset{names: append([]string(nil), names...)}
}

// FromFloats builds a regularly spaced dataset from raw rows, NaN marking
// missing entries.
func FromFloats(names []string, start time.Time, step time.Duration, rows [][]float64) (*Dataset, error) {
	d := New(names...)
	ts := start
	for _, row := range rows {
		vals := make([]Value, len(row))
		for i, f := range row {
			vals[i] = FromFloat(f)
		}
		if err := d.Append(ts, vals...); err != nil {
			return nil, err
		}
		ts = ts.Add(step)
	}
	return d, nil
}

func (d *Dataset) Append(ts time.Time, values ...Value) error {
	if len(values) != len(d.names) {
		return fmt.Errorf("%w: got %d, want %d", ErrVariableCount, len(values), len(d.names))
	}
	if n := len(d.times); n > 0 && !ts.After(d.times[n-1]) {
		return fmt.Errorf("%w: %s", ErrOutOfOrder, ts)
	}
	d.times = append(d.times, ts)
	d.rows = append(d.rows, append([]Value(nil), values...))
	return nil
}

func (d *Dataset) AppendFloats(ts time.Time, values ...float64) error {
	vals := make([]Value, len(values))
	for i, f := range values {
		vals[i] = FromFloat(f)
	}
	return d.Append(ts, vals...)
}

func (d *Dataset) NumObs() int          { return len(d.rows) }
func (d *Dataset) NumVars() int         { return len(d.names) }
func (d *Dataset) Names() []string      { return append([]string(nil), d.names...) }
func (d *Dataset) Time(t int) time.Time { return d.times[t] }
func (d *Dataset) At(t, i int) Value    { return d.rows[t][i] }

// VarIndex returns the position of a named variable.
func (d *Dataset) VarIndex(name string) (int, bool) {
	for i, n := range d.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// TimeIndex returns the row position of ts, or the position it would occupy
// past the end for a regularly spaced dataset.
func (d *Dataset) TimeIndex(ts time.Time) (int, error) {
	for i, t := range d.times {
		if t.Equal(ts) {
			return i, nil
		}
	}
	step, err := d.Step()
	if err != nil {
		return 0, err
	}
	last := d.times[len(d.times)-1]
	if !ts.After(last) {
		return 0, fmt.Errorf("time %s not on the dataset index", ts)
	}
	offset := ts.Sub(last)
	if offset%step != 0 {
		return 0, fmt.Errorf("%w: %s is off the grid", ErrIrregular, ts)
	}
	return len(d.times) - 1 + int(offset/step), nil
}

// TimeAt returns the timestamp of row i, extrapolating past the end of a
// regularly spaced dataset.
func (d *Dataset) TimeAt(i int) (time.Time, error) {
	if i < len(d.times) {
		return d.times[i], nil
	}
	step, err := d.Step()
	if err != nil {
		return time.Time{}, err
	}
	last := len(d.times) - 1
	return d.times[last].Add(step * time.Duration(i-last)), nil
}

// Step returns the uniform spacing of the time index.
func (d *Dataset) Step() (time.Duration, error) {
	if len(d.times) < 2 {
		return 0, ErrTooShort
	}
	step := d.times[1].Sub(d.times[0])
	for i := 2; i < len(d.times); i++ {
		if d.times[i].Sub(d.times[i-1]) != step {
			return 0, ErrIrregular
		}
	}
	return step, nil
}

func (d *Dataset) Clone() *Dataset {
	c := New(d.names...)
	c.times = append([]time.Time(nil), d.times...)
	c.rows = make([][]Value, len(d.rows))
	for i, row := range d.rows {
		c.rows[i] = append([]Value(nil), row...)
	}
	return c
}

// ExtendTo pads the dataset with missing rows up to and including ts.
func (d *Dataset) ExtendTo(ts time.Time) (*Dataset, error) {
	step, err := d.Step()
	if err != nil {
		return nil, err
	}
	c := d.Clone()
	blank := make([]Value, len(d.names))
	for next := c.times[len(c.times)-1].Add(step); !next.After(ts); next = next.Add(step) {
		if err := c.Append(next, blank...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Matrix renders the observations as an nobs x k float matrix with NaN at
// missing entries, the form the filter consumes.
func (d *Dataset) Matrix() *mat.Dense {
	m := mat.NewDense(len(d.rows), len(d.names), nil)
	for t, row := range d.rows {
		for i, v := range row {
			m.Set(t, i, v.Float64())
		}
	}
	return m
}
