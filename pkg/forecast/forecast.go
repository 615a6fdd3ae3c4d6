// Package forecast produces out-of-sample point forecasts with confidence
// bands from a completed filter pass.
package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

type Result struct {
	PointForecast      float64
	StandardError      float64
	ConfidenceInterval struct {
		Lower95 float64
		Upper95 float64
		Lower80 float64
		Upper80 float64
	}
}

// HSteps forecasts h periods past the end of the filtered sample. The outer
// index is the horizon (1-based step h+1), the inner index the observed
// variable. Concentrated passes have their covariances rescaled by the
// recovered scale.
func HSteps(res *statespace.Results, h int) ([][]Result, error) {
	if h < 1 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", h)
	}

	spec := res.Spec()
	k := spec.KEndog()
	n := spec.KStates()

	a, p0 := res.FinalState()
	a = mat.VecDenseCopyOf(a)
	p := mat.DenseCopyOf(p0)

	rq := mat.NewDense(n, spec.KPosdef(), nil)
	rq.Mul(spec.R, spec.Q)
	rqr := mat.NewDense(n, n, nil)
	rqr.Mul(rq, spec.R.T())

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	z80 := norm.Quantile(0.9)
	z95 := norm.Quantile(0.975)

	out := make([][]Result, h)
	for step := 0; step < h; step++ {
		yhat := mat.NewVecDense(k, nil)
		yhat.MulVec(spec.Z, a)

		zp := mat.NewDense(k, n, nil)
		zp.Mul(spec.Z, p)
		s := mat.NewDense(k, k, nil)
		s.Mul(zp, spec.Z.T())
		s.Add(s, spec.H)

		row := make([]Result, k)
		for i := 0; i < k; i++ {
			se := math.Sqrt(res.Scale * s.At(i, i))
			r := Result{PointForecast: yhat.AtVec(i), StandardError: se}
			r.ConfidenceInterval.Lower95 = r.PointForecast - z95*se
			r.ConfidenceInterval.Upper95 = r.PointForecast + z95*se
			r.ConfidenceInterval.Lower80 = r.PointForecast - z80*se
			r.ConfidenceInterval.Upper80 = r.PointForecast + z80*se
			row[i] = r
		}
		out[step] = row

		// advance one period
		an := mat.NewVecDense(n, nil)
		an.MulVec(spec.T, a)
		a = an

		tp := mat.NewDense(n, n, nil)
		tp.Mul(spec.T, p)
		pn := mat.NewDense(n, n, nil)
		pn.Mul(tp, spec.T.T())
		pn.Add(pn, rqr)
		p = pn
	}
	return out, nil
}
