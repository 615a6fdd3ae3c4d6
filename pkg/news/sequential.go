package news

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

// scalarUpdate records one tracked scalar observation processed by the
// sequential pass.
type scalarUpdate struct {
	t        int
	i        int
	forecast float64
	observed float64
	news     float64
}

// passResult holds per-period filtered signals and, for tracked updates,
// the weight trajectories linking each update to every period's signal.
type passResult struct {
	// signals is nobs x kEndog: Z a_{t|t}.
	signals *mat.Dense
	updates []scalarUpdate
	// weights[j] is nobs x kEndog: the response of the period-t signal of
	// each variable to a unit of news j. Zero before the update occurs.
	weights []*mat.Dense
}

// sequentialPass filters y one scalar observation at a time, in time order
// and variable order within a period. The univariate treatment is mean- and
// covariance-equivalent to the joint update when H is diagonal, and makes
// every observation's contribution to later estimates an explicit linear
// term: a unit of news at update j moves the filtered state by the gain at
// that update, propagated by T across periods. News is recorded against the
// running state of this pass, so each update's news already nets out the
// effect of earlier tracked updates; against a pass over the same in-sample
// data without the tracked observations, the state difference is exactly
// Σ c_j v_j.
func sequentialPass(spec *statespace.Spec, init statespace.Initialization, y *mat.Dense, track func(t, i int) bool) (*passResult, error) {
	nobs, k := y.Dims()
	n := spec.KStates()

	a, p, err := init.State(spec)
	if err != nil {
		return nil, err
	}

	rq := mat.NewDense(n, spec.KPosdef(), nil)
	rq.Mul(spec.R, spec.Q)
	rqr := mat.NewDense(n, n, nil)
	rqr.Mul(rq, spec.R.T())

	res := &passResult{signals: mat.NewDense(nobs, k, nil)}
	var contribs []*mat.VecDense

	zRow := func(i int) *mat.VecDense {
		z := mat.NewVecDense(n, nil)
		for j := 0; j < n; j++ {
			z.SetVec(j, spec.Z.At(i, j))
		}
		return z
	}

	for t := 0; t < nobs; t++ {
		for i := 0; i < k; i++ {
			obs := y.At(t, i)
			if math.IsNaN(obs) {
				continue
			}
			z := zRow(i)

			// f = z'Pz + H_ii, k = Pz / f
			pz := mat.NewVecDense(n, nil)
			pz.MulVec(p, z)
			f := mat.Dot(z, pz) + spec.H.At(i, i)
			if f <= 0 {
				return nil, &statespace.SingularityError{Time: t}
			}
			gain := mat.NewVecDense(n, nil)
			gain.ScaleVec(1/f, pz)

			forecast := mat.Dot(z, a)
			v := obs - forecast

			if track != nil && track(t, i) {
				res.updates = append(res.updates, scalarUpdate{
					t: t, i: i, forecast: forecast, observed: obs, news: v,
				})
				contribs = append(contribs, mat.VecDenseCopyOf(gain))
				res.weights = append(res.weights, mat.NewDense(nobs, k, nil))
			}

			// a += k v, P -= f k k'
			kv := mat.NewVecDense(n, nil)
			kv.ScaleVec(v, gain)
			a.AddVec(a, kv)

			kk := mat.NewDense(n, n, nil)
			kk.Outer(f, gain, gain)
			p.Sub(p, kk)
		}

		for i := 0; i < k; i++ {
			z := zRow(i)
			res.signals.Set(t, i, mat.Dot(z, a))
			for j, c := range contribs {
				res.weights[j].Set(t, i, mat.Dot(z, c))
			}
		}

		// time update
		an := mat.NewVecDense(n, nil)
		an.MulVec(spec.T, a)
		a = an

		tp := mat.NewDense(n, n, nil)
		tp.Mul(spec.T, p)
		pn := mat.NewDense(n, n, nil)
		pn.Mul(tp, spec.T.T())
		pn.Add(pn, rqr)
		p = pn

		for j, c := range contribs {
			cn := mat.NewVecDense(n, nil)
			cn.MulVec(spec.T, c)
			contribs[j] = cn
		}
	}
	return res, nil
}
