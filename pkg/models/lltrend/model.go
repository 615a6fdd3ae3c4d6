// Package lltrend implements the local linear trend model: a random-walk
// level with a random-walk slope, observed with irregular noise. Both state
// components are integrated, so initialization is approximately diffuse
// with two burn periods.
package lltrend

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/peter-kozarec/kestrel/pkg/estimate"
	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

type Model struct {
	spec  *statespace.Spec
	kappa float64
}

type Option func(*Model)

func WithDiffuseVariance(kappa float64) Option {
	return func(m *Model) {
		m.kappa = kappa
	}
}

func New(opts ...Option) *Model {
	spec := statespace.MustSpec(1, 2, 2)
	spec.Z.Set(0, 0, 1)
	// [[1 1] [0 1]] level picks up the slope each period
	spec.T.Set(0, 0, 1)
	spec.T.Set(0, 1, 1)
	spec.T.Set(1, 1, 1)
	spec.R.Set(0, 0, 1)
	spec.R.Set(1, 1, 1)

	m := &Model{
		spec:  spec,
		kappa: statespace.DefaultDiffuseVariance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Spec() *statespace.Spec { return m.spec }

func (m *Model) Initialization() statespace.Initialization {
	return statespace.ApproximateDiffuse(m.kappa, 2)
}

func (m *Model) Concentrated() bool { return false }

func (m *Model) ParamNames() []string {
	return []string{"sigma2.irregular", "sigma2.level", "sigma2.trend"}
}

func (m *Model) domains() []estimate.Domain {
	return []estimate.Domain{estimate.Positive, estimate.Positive, estimate.Positive}
}

func (m *Model) Transform(unconstrained []float64) []float64 {
	return estimate.Transform(m.domains(), unconstrained)
}

func (m *Model) Untransform(constrained []float64) []float64 {
	return estimate.Untransform(m.domains(), constrained)
}

func (m *Model) StartParams(y *mat.Dense) []float64 {
	nobs, _ := y.Dims()
	vals := make([]float64, 0, nobs)
	for t := 0; t < nobs; t++ {
		if v := y.At(t, 0); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	v := 1.0
	if len(vals) >= 2 {
		v = stat.Variance(vals, nil)
	}
	return []float64{0.5 * v, 0.25 * v, 0.05 * v}
}

func (m *Model) Update(params []float64) error {
	if len(params) != 3 {
		return fmt.Errorf("%w: got %d params, want 3", statespace.ErrDimension, len(params))
	}
	m.spec.H.Set(0, 0, params[0])
	m.spec.Q.Set(0, 0, params[1])
	m.spec.Q.Set(1, 1, params[2])
	return nil
}
