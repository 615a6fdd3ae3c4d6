package statespace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultDiffuseVariance = 1e6

	// unit root tolerance for the stationarity check
	stationaryTol = 1e-8
)

type initializationKind int

const (
	initKnown initializationKind = iota
	initStationary
	initDiffuse
)

// Initialization selects the prior distribution of the initial state.
// Stationary models should use Stationary, integrated ones must ask for
// ApproximateDiffuse explicitly.
type Initialization struct {
	kind  initializationKind
	a0    []float64
	p0    *mat.Dense
	kappa float64
	burn  int
}

// Known fixes the initial state mean and covariance.
func Known(a0 []float64, p0 *mat.Dense) Initialization {
	return Initialization{kind: initKnown, a0: a0, p0: p0}
}

// Stationary initializes from the stationary distribution of the state,
// obtained by solving the discrete Lyapunov equation P = T P T' + R Q R'.
func Stationary() Initialization {
	return Initialization{kind: initStationary}
}

// ApproximateDiffuse initializes with zero mean and kappa on the covariance
// diagonal. burn initial periods are excluded from the likelihood so the
// diffuse periods do not distort it.
func ApproximateDiffuse(kappa float64, burn int) Initialization {
	if kappa <= 0 {
		kappa = DefaultDiffuseVariance
	}
	return Initialization{kind: initDiffuse, kappa: kappa, burn: burn}
}

// Burn is the number of initial periods excluded from the likelihood.
func (ini Initialization) Burn() int { return ini.burn }

// State resolves the initialization against a spec, returning the initial
// predicted state mean and covariance.
func (ini Initialization) State(spec *Spec) (*mat.VecDense, *mat.Dense, error) {
	n := spec.KStates()
	switch ini.kind {
	case initKnown:
		if len(ini.a0) != n {
			return nil, nil, fmt.Errorf("%w: initial mean has %d entries, want %d",
				ErrDimension, len(ini.a0), n)
		}
		r, c := ini.p0.Dims()
		if r != n || c != n {
			return nil, nil, fmt.Errorf("%w: initial covariance is %dx%d, want %dx%d",
				ErrDimension, r, c, n, n)
		}
		a := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			a.SetVec(i, ini.a0[i])
		}
		p := mat.NewDense(n, n, nil)
		p.Copy(ini.p0)
		return a, p, nil

	case initDiffuse:
		a := mat.NewVecDense(n, nil)
		p := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			p.Set(i, i, ini.kappa)
		}
		return a, p, nil

	case initStationary:
		p, err := solveDiscreteLyapunov(spec.T, spec.selectedCov())
		if err != nil {
			return nil, nil, err
		}
		return mat.NewVecDense(n, nil), p, nil
	}
	return nil, nil, fmt.Errorf("unknown initialization kind %d", ini.kind)
}

// solveDiscreteLyapunov solves P = T P T' + V by vectorization:
// (I - T⊗T) vec(P) = vec(V). Suitable for the small state dimensions
// this package targets.
func solveDiscreteLyapunov(t, v *mat.Dense) (*mat.Dense, error) {
	n, _ := t.Dims()
	if err := checkStationary(t); err != nil {
		return nil, err
	}

	nn := n * n
	lhs := mat.NewDense(nn, nn, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				for l := 0; l < n; l++ {
					val := -t.At(i, k) * t.At(j, l)
					if i == k && j == l {
						val += 1
					}
					lhs.Set(i*n+j, k*n+l, val)
				}
			}
		}
	}

	rhs := mat.NewVecDense(nn, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rhs.SetVec(i*n+j, v.At(i, j))
		}
	}

	var vecP mat.VecDense
	if err := vecP.SolveVec(lhs, rhs); err != nil {
		return nil, fmt.Errorf("discrete lyapunov solve: %w", err)
	}

	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p.Set(i, j, vecP.AtVec(i*n+j))
		}
	}
	// enforce symmetry lost to round-off
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := 0.5 * (p.At(i, j) + p.At(j, i))
			p.Set(i, j, s)
			p.Set(j, i, s)
		}
	}
	return p, nil
}

func checkStationary(t *mat.Dense) error {
	var eig mat.Eigen
	if ok := eig.Factorize(t, mat.EigenNone); !ok {
		return fmt.Errorf("%w: eigendecomposition failed", ErrNonStationary)
	}
	values := eig.Values(nil)
	for _, v := range values {
		if math.Hypot(real(v), imag(v)) >= 1-stationaryTol {
			return ErrNonStationary
		}
	}
	return nil
}
