// Package locallevel implements the local level model: a random-walk level
// observed with irregular noise,
//
//	y_t = mu_t + e_t,        e_t ~ N(0, sigma2.irregular)
//	mu_{t+1} = mu_t + u_t,   u_t ~ N(0, sigma2.level)
//
// The level is integrated, so the model always initializes approximately
// diffuse with one burn period.
package locallevel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/peter-kozarec/kestrel/pkg/estimate"
	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

type Model struct {
	spec         *statespace.Spec
	concentrated bool
	kappa        float64
}

func New(opts ...Option) *Model {
	spec := statespace.MustSpec(1, 1, 1)
	spec.Z.Set(0, 0, 1)
	spec.T.Set(0, 0, 1)
	spec.R.Set(0, 0, 1)

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
	return statespace.ApproximateDiffuse(m.kappa, 1)
}

func (m *Model) Concentrated() bool { return m.concentrated }

func (m *Model) ParamNames() []string {
	if m.concentrated {
		return []string{"ratio.irregular"}
	}
	return []string{"sigma2.irregular", "sigma2.level"}
}

func (m *Model) domains() []estimate.Domain {
	if m.concentrated {
		return []estimate.Domain{estimate.Positive}
	}
	return []estimate.Domain{estimate.Positive, estimate.Positive}
}

func (m *Model) Transform(unconstrained []float64) []float64 {
	return estimate.Transform(m.domains(), unconstrained)
}

func (m *Model) Untransform(constrained []float64) []float64 {
	return estimate.Untransform(m.domains(), constrained)
}

func (m *Model) StartParams(y *mat.Dense) []float64 {
	v := sampleVariance(y)
	if m.concentrated {
		return []float64{1}
	}
	return []float64{0.5 * v, 0.5 * v}
}

// Update writes the variances. In concentrated mode the level variance is
// the unit placeholder and the single parameter is the irregular-to-level
// variance ratio; the filter recovers the level variance as the scale.
func (m *Model) Update(params []float64) error {
	want := len(m.ParamNames())
	if len(params) != want {
		return fmt.Errorf("%w: got %d params, want %d", statespace.ErrDimension, len(params), want)
	}
	if m.concentrated {
		m.spec.H.Set(0, 0, params[0])
		m.spec.Q.Set(0, 0, 1)
		return nil
	}
	m.spec.H.Set(0, 0, params[0])
	m.spec.Q.Set(0, 0, params[1])
	return nil
}
