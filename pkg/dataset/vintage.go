package dataset

import (
	"errors"
	"fmt"
)

var ErrVintageMismatch = errors.New("updated dataset is not a vintage of the previous one")

// Addition is an observation present in the updated vintage but not in the
// previous one: either a newly released period or a backfilled gap.
type Addition struct {
	TimeIndex int
	VarIndex  int
	Value     float64
}

// Revision is a previously observed value whose updated vintage differs.
type Revision struct {
	TimeIndex int
	VarIndex  int
	Previous  float64
	Revised   float64
}

// Diff compares two vintages of the same dataset. The updated vintage must
// cover the previous one: same variables, same time index on the overlap,
// and no observation may disappear.
func Diff(previous, updated *Dataset) ([]Addition, []Revision, error) {
	if len(previous.names) != len(updated.names) {
		return nil, nil, fmt.Errorf("%w: variable count changed", ErrVintageMismatch)
	}
	for i := range previous.names {
		if previous.names[i] != updated.names[i] {
			return nil, nil, fmt.Errorf("%w: variable %q became %q",
				ErrVintageMismatch, previous.names[i], updated.names[i])
		}
	}
	if updated.NumObs() < previous.NumObs() {
		return nil, nil, fmt.Errorf("%w: updated vintage is shorter", ErrVintageMismatch)
	}
	for t := 0; t < previous.NumObs(); t++ {
		if !previous.times[t].Equal(updated.times[t]) {
			return nil, nil, fmt.Errorf("%w: time index diverges at %s",
				ErrVintageMismatch, previous.times[t])
		}
	}

	var adds []Addition
	var revs []Revision
	for t := 0; t < updated.NumObs(); t++ {
		for i := range updated.names {
			upd := updated.rows[t][i]
			if t >= previous.NumObs() {
				if upd.Observed() {
					adds = append(adds, Addition{TimeIndex: t, VarIndex: i, Value: upd.Float64()})
				}
				continue
			}
			prev := previous.rows[t][i]
			switch {
			case prev.Observed() && !upd.Observed():
				return nil, nil, fmt.Errorf("%w: observation at t=%d var=%q disappeared",
					ErrVintageMismatch, t, updated.names[i])
			case !prev.Observed() && upd.Observed():
				adds = append(adds, Addition{TimeIndex: t, VarIndex: i, Value: upd.Float64()})
			case prev.Observed() && !prev.Equal(upd):
				revs = append(revs, Revision{
					TimeIndex: t,
					VarIndex:  i,
					Previous:  prev.Float64(),
					Revised:   upd.Float64(),
				})
			}
		}
	}
	return adds, revs, nil
}
