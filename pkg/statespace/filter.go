package statespace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Filter runs the forward Kalman recursion for a Spec. A Filter is cheap to
// construct and holds no state between runs; each Run produces its own
// Results.
type Filter struct {
	spec         *Spec
	init         Initialization
	concentrated bool
}

type Option func(*Filter)

// ConcentratedScale switches the filter to the concentrated-likelihood
// branch. The model must supply H and Q with the concentrated variance
// fixed to one; the filter recovers the scale in closed form. The initial
// state covariance is interpreted in the same units, so an approximate
// diffuse kappa stands for kappa times the recovered scale.
func ConcentratedScale() Option {
	return func(f *Filter) {
		f.concentrated = true
	}
}

func NewFilter(spec *Spec, init Initialization, opts ...Option) *Filter {
	f := &Filter{spec: spec, init: init}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run executes one forward pass over y (nobs x kEndog, NaN marks a missing
// entry) and returns the recorded Results. A fully missing period is a pure
// prediction step and contributes nothing to the likelihood.
func (f *Filter) Run(y *mat.Dense) (*Results, error) {
	nobs, k := y.Dims()
	if nobs == 0 {
		return nil, ErrNoData
	}
	if k != f.spec.KEndog() {
		return nil, fmt.Errorf("%w: data has %d variables, spec has %d",
			ErrDimension, k, f.spec.KEndog())
	}

	n := f.spec.KStates()
	a, p, err := f.init.State(f.spec)
	if err != nil {
		return nil, err
	}
	burn := f.init.Burn()
	rqr := f.spec.selectedCov()

	res := &Results{
		NObs:           nobs,
		Burn:           burn,
		Concentrated:   f.concentrated,
		Scale:          1,
		PredictedState: make([]*mat.VecDense, 0, nobs+1),
		PredictedCov:   make([]*mat.Dense, 0, nobs+1),
		FilteredState:  make([]*mat.VecDense, 0, nobs),
		FilteredCov:    make([]*mat.Dense, 0, nobs),
		Innovations:    make([]*mat.VecDense, 0, nobs),
		InnovationCov:  make([]*mat.Dense, 0, nobs),
		Gains:          make([]*mat.Dense, 0, nobs),
		Observed:       make([][]bool, 0, nobs),
		spec:           f.spec,
	}

	var (
		loglike   float64 // plain accumulation
		ssq       float64 // Σ v'F⁻¹v, concentrated accumulation
		sumLogDet float64 // Σ log|F|, concentrated accumulation
		nEff      int     // observed scalar count past the burn periods
	)

	for t := 0; t < nobs; t++ {
		res.PredictedState = append(res.PredictedState, mat.VecDenseCopyOf(a))
		res.PredictedCov = append(res.PredictedCov, mat.DenseCopyOf(p))

		observed := make([]bool, k)
		m := 0
		for i := 0; i < k; i++ {
			if !math.IsNaN(y.At(t, i)) {
				observed[i] = true
				m++
			}
		}
		res.Observed = append(res.Observed, observed)

		innov := mat.NewVecDense(k, nil)
		for i := 0; i < k; i++ {
			innov.SetVec(i, math.NaN())
		}
		gain := mat.NewDense(n, k, nil)

		if m == 0 {
			// pure prediction step
			res.FilteredState = append(res.FilteredState, mat.VecDenseCopyOf(a))
			res.FilteredCov = append(res.FilteredCov, mat.DenseCopyOf(p))
			res.Innovations = append(res.Innovations, innov)
			res.InnovationCov = append(res.InnovationCov, nil)
			res.Gains = append(res.Gains, gain)
			a, p = f.predict(a, p, rqr)
			continue
		}

		zm, hm, ym := maskSystem(f.spec, y, t, observed, m)

		// v = y - Z a, F = Z P Z' + H
		v := mat.NewVecDense(m, nil)
		v.MulVec(zm, a)
		v.SubVec(ym, v)

		pzt := mat.NewDense(n, m, nil)
		pzt.Mul(p, zm.T())
		fm := mat.NewDense(m, m, nil)
		fm.Mul(zm, pzt)
		fm.Add(fm, hm)

		var chol mat.Cholesky
		if ok := chol.Factorize(denseToSym(fm)); !ok {
			return nil, &SingularityError{Time: t}
		}

		// K = P Z' F⁻¹, solved as F K' = (P Z')'
		kt := mat.NewDense(m, n, nil)
		if err := chol.SolveTo(kt, pzt.T()); err != nil {
			return nil, &SingularityError{Time: t}
		}
		km := mat.NewDense(n, m, nil)
		km.Copy(kt.T())

		finv := mat.NewVecDense(m, nil)
		if err := chol.SolveVecTo(finv, v); err != nil {
			return nil, &SingularityError{Time: t}
		}
		quad := mat.Dot(v, finv)
		logDet := chol.LogDet()

		if t >= burn {
			nEff += m
			if f.concentrated {
				ssq += quad
				sumLogDet += logDet
			} else {
				loglike -= 0.5 * (float64(m)*math.Log(2*math.Pi) + logDet + quad)
			}
		}

		// a_{t|t} = a + K v, P_{t|t} = P - K F K'
		af := mat.VecDenseCopyOf(a)
		kv := mat.NewVecDense(n, nil)
		kv.MulVec(km, v)
		af.AddVec(af, kv)

		pf := mat.DenseCopyOf(p)
		kf := mat.NewDense(n, m, nil)
		kf.Mul(km, fm)
		kfk := mat.NewDense(n, n, nil)
		kfk.Mul(kf, km.T())
		pf.Sub(pf, kfk)

		scatterInnovation(innov, gain, v, km, observed)

		res.FilteredState = append(res.FilteredState, af)
		res.FilteredCov = append(res.FilteredCov, pf)
		res.Innovations = append(res.Innovations, innov)
		res.InnovationCov = append(res.InnovationCov, fm)
		res.Gains = append(res.Gains, gain)

		a, p = f.predict(af, pf, rqr)
	}

	res.PredictedState = append(res.PredictedState, mat.VecDenseCopyOf(a))
	res.PredictedCov = append(res.PredictedCov, mat.DenseCopyOf(p))

	res.NObserved = nEff
	if f.concentrated {
		if nEff == 0 {
			return nil, ErrNoData
		}
		scale := ssq / float64(nEff)
		en := float64(nEff)
		res.Scale = scale
		res.LogLikelihood = -0.5 * (en*math.Log(2*math.Pi) + en + en*math.Log(scale) + sumLogDet)
	} else {
		res.LogLikelihood = loglike
	}
	return res, nil
}

// predict applies the time update a <- T a_f, P <- T P_f T' + R Q R'.
func (f *Filter) predict(af *mat.VecDense, pf *mat.Dense, rqr *mat.Dense) (*mat.VecDense, *mat.Dense) {
	n := f.spec.KStates()
	a := mat.NewVecDense(n, nil)
	a.MulVec(f.spec.T, af)

	tp := mat.NewDense(n, n, nil)
	tp.Mul(f.spec.T, pf)
	p := mat.NewDense(n, n, nil)
	p.Mul(tp, f.spec.T.T())
	p.Add(p, rqr)
	return a, p
}

// maskSystem extracts the rows of Z, H and y_t for the observed components.
func maskSystem(spec *Spec, y *mat.Dense, t int, observed []bool, m int) (zm, hm *mat.Dense, ym *mat.VecDense) {
	k := spec.KEndog()
	n := spec.KStates()
	zm = mat.NewDense(m, n, nil)
	hm = mat.NewDense(m, m, nil)
	ym = mat.NewVecDense(m, nil)

	rows := make([]int, 0, m)
	for i := 0; i < k; i++ {
		if observed[i] {
			rows = append(rows, i)
		}
	}
	for ri, i := range rows {
		ym.SetVec(ri, y.At(t, i))
		for j := 0; j < n; j++ {
			zm.Set(ri, j, spec.Z.At(i, j))
		}
		for rj, j := range rows {
			hm.Set(ri, rj, spec.H.At(i, j))
		}
	}
	return zm, hm, ym
}

// scatterInnovation writes the masked innovation and gain back into
// full-dimension storage.
func scatterInnovation(innov *mat.VecDense, gain *mat.Dense, v *mat.VecDense, km *mat.Dense, observed []bool) {
	n, _ := km.Dims()
	ri := 0
	for i, ok := range observed {
		if !ok {
			continue
		}
		innov.SetVec(i, v.AtVec(ri))
		for j := 0; j < n; j++ {
			gain.Set(j, i, km.At(j, ri))
		}
		ri++
	}
}

func denseToSym(d *mat.Dense) *mat.SymDense {
	n, _ := d.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return s
}
