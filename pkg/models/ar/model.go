// Package ar implements a first-order autoregressive state observed either
// exactly or through measurement noise,
//
//	y_t = alpha_t + e_t,           e_t ~ N(0, sigma2.obs), optional
//	alpha_{t+1} = phi alpha_t + u_t,  u_t ~ N(0, sigma2.state)
//
// The state is stationary for |phi| < 1 and initializes from the stationary
// distribution.
package ar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/peter-kozarec/kestrel/pkg/estimate"
	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

type Model struct {
	spec      *statespace.Spec
	measNoise bool
}

type Option func(*Model)

// WithMeasurementNoise adds an observation variance parameter. Without it
// the state is observed exactly and the filter gain is one.
func WithMeasurementNoise() Option {
	return func(m *Model) {
		m.measNoise = true
	}
}

func New(opts ...Option) *Model {
	spec := statespace.MustSpec(1, 1, 1)
	spec.Z.Set(0, 0, 1)
	spec.R.Set(0, 0, 1)

	m := &Model{spec: spec}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Spec() *statespace.Spec { return m.spec }

func (m *Model) Initialization() statespace.Initialization {
	return statespace.Stationary()
}

func (m *Model) Concentrated() bool { return false }

func (m *Model) ParamNames() []string {
	if m.measNoise {
		return []string{"ar.phi", "sigma2.state", "sigma2.obs"}
	}
	return []string{"ar.phi", "sigma2.state"}
}

func (m *Model) domains() []estimate.Domain {
	d := []estimate.Domain{estimate.UnitInterval, estimate.Positive}
	if m.measNoise {
		d = append(d, estimate.Positive)
	}
	return d
}

func (m *Model) Transform(unconstrained []float64) []float64 {
	return estimate.Transform(m.domains(), unconstrained)
}

func (m *Model) Untransform(constrained []float64) []float64 {
	return estimate.Untransform(m.domains(), constrained)
}

func (m *Model) StartParams(y *mat.Dense) []float64 {
	phi, variance := lag1Moments(y)
	s2 := variance * (1 - phi*phi)
	if s2 <= 0 {
		s2 = variance
	}
	if m.measNoise {
		return []float64{phi, 0.5 * s2, 0.5 * s2}
	}
	return []float64{phi, s2}
}

func (m *Model) Update(params []float64) error {
	want := len(m.ParamNames())
	if len(params) != want {
		return fmt.Errorf("%w: got %d params, want %d", statespace.ErrDimension, len(params), want)
	}
	m.spec.T.Set(0, 0, params[0])
	m.spec.Q.Set(0, 0, params[1])
	if m.measNoise {
		m.spec.H.Set(0, 0, params[2])
	} else {
		m.spec.H.Set(0, 0, 0)
	}
	return nil
}

// lag1Moments estimates the lag-1 autocorrelation and sample variance from
// the contiguous observed pairs of the series.
func lag1Moments(y *mat.Dense) (phi, variance float64) {
	nobs, _ := y.Dims()
	var cur, prev []float64
	vals := make([]float64, 0, nobs)
	for t := 0; t < nobs; t++ {
		v := y.At(t, 0)
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
		if t > 0 {
			if p := y.At(t-1, 0); !math.IsNaN(p) {
				cur = append(cur, v)
				prev = append(prev, p)
			}
		}
	}
	variance = 1
	if len(vals) >= 2 {
		variance = stat.Variance(vals, nil)
	}
	phi = 0.5
	if len(cur) >= 2 {
		phi = stat.Correlation(prev, cur, nil)
	}
	// keep the start strictly inside the stationary region
	if math.IsNaN(phi) {
		phi = 0.5
	} else if math.Abs(phi) > 0.95 {
		phi = math.Copysign(0.95, phi)
	}
	return phi, variance
}
