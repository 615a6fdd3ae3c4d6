// Package news attributes forecast revisions between two vintages of a
// dataset to the individual observations that caused them.
//
// The decomposition is filter-based and strictly forward-looking: per-item
// attribution covers observations released after the end of the previous
// vintage, while revisions and backfills inside the previous sample span
// are aggregated into a single revision impact per impact date. Estimates
// at dates before an update are unaffected by it.
package news

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/peter-kozarec/kestrel/pkg/dataset"
	"github.com/peter-kozarec/kestrel/pkg/estimate"
	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

var (
	ErrImpactRange  = errors.New("invalid impact date range")
	ErrNonDiagonalH = errors.New("news decomposition requires a diagonal observation covariance")
)

// Decompose explains how estimates move between the previous and updated
// vintages, with model parameters fixed at the previously estimated values.
// Impact rows cover the inclusive date range [start, end], which may extend
// past the updated sample into pure forecast territory.
func Decompose(m estimate.Model, params []float64, previous, updated *dataset.Dataset, start, end time.Time) (*Report, error) {
	adds, revs, err := dataset.Diff(previous, updated)
	if err != nil {
		return nil, err
	}
	if err := m.Update(params); err != nil {
		return nil, err
	}
	spec := m.Spec()
	if err := checkDiagonalH(spec); err != nil {
		return nil, err
	}

	startIdx, err := updated.TimeIndex(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImpactRange, err)
	}
	endIdx, err := updated.TimeIndex(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImpactRange, err)
	}
	if endIdx < startIdx {
		return nil, fmt.Errorf("%w: end before start", ErrImpactRange)
	}

	// The baseline carries everything except the end-of-sample releases:
	// the previous vintage with revisions and backfills applied.
	prevSpan := previous.NumObs()
	baseline := truncate(updated, prevSpan)

	horizon, err := updated.TimeAt(endIdx)
	if err != nil {
		return nil, err
	}
	prevPad, err := extendTo(previous, horizon)
	if err != nil {
		return nil, err
	}
	basePad, err := extendTo(baseline, horizon)
	if err != nil {
		return nil, err
	}
	updPad, err := extendTo(updated, horizon)
	if err != nil {
		return nil, err
	}

	tracked := make(map[[2]int]bool, len(adds))
	for _, add := range adds {
		if add.TimeIndex >= prevSpan {
			tracked[[2]int{add.TimeIndex, add.VarIndex}] = true
		}
	}

	init := m.Initialization()
	prevPass, err := sequentialPass(spec, init, prevPad.Matrix(), nil)
	if err != nil {
		return nil, err
	}
	basePass, err := sequentialPass(spec, init, basePad.Matrix(), nil)
	if err != nil {
		return nil, err
	}
	updPass, err := sequentialPass(spec, init, updPad.Matrix(), func(t, i int) bool {
		return tracked[[2]int{t, i}]
	})
	if err != nil {
		return nil, err
	}

	names := updated.Names()
	report := &Report{Revisions: revs}
	for _, u := range updPass.updates {
		ts, err := updated.TimeAt(u.t)
		if err != nil {
			return nil, err
		}
		report.Updates = append(report.Updates, UpdateRow{
			Time:     ts,
			Variable: names[u.i],
			Forecast: u.forecast,
			Observed: u.observed,
			News:     u.news,
		})
	}

	for s := startIdx; s <= endIdx; s++ {
		ts, err := updated.TimeAt(s)
		if err != nil {
			return nil, err
		}
		for i := range names {
			weights := make([]float64, len(updPass.updates))
			newsImpact := 0.0
			for j := range updPass.updates {
				w := updPass.weights[j].At(s, i)
				weights[j] = w
				newsImpact += w * updPass.updates[j].news
			}
			report.Impacts = append(report.Impacts, ImpactRow{
				Time:            ts,
				Variable:        names[i],
				PrevEstimate:    prevPass.signals.At(s, i),
				RevisionImpact:  basePass.signals.At(s, i) - prevPass.signals.At(s, i),
				NewsImpact:      newsImpact,
				UpdatedEstimate: updPass.signals.At(s, i),
				Weights:         weights,
			})
		}
	}
	return report, nil
}

func checkDiagonalH(spec *statespace.Spec) error {
	k := spec.KEndog()
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i != j && math.Abs(spec.H.At(i, j)) > 0 {
				return ErrNonDiagonalH
			}
		}
	}
	return nil
}

// truncate keeps the first n rows of d.
func truncate(d *dataset.Dataset, n int) *dataset.Dataset {
	out := dataset.New(d.Names()...)
	for t := 0; t < n && t < d.NumObs(); t++ {
		vals := make([]dataset.Value, d.NumVars())
		for i := range vals {
			vals[i] = d.At(t, i)
		}
		if err := out.Append(d.Time(t), vals...); err != nil {
			panic(err) // rows come from a valid dataset
		}
	}
	return out
}

// extendTo pads d with missing rows through ts when needed.
func extendTo(d *dataset.Dataset, ts time.Time) (*dataset.Dataset, error) {
	if d.NumObs() > 0 && !d.Time(d.NumObs()-1).Before(ts) {
		return d, nil
	}
	return d.ExtendTo(ts)
}
