package estimate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

// Model is the capability interface a concrete state-space model implements
// to be driven by the generic Fit loop. Implementations own a
// statespace.Spec and write parameter-dependent matrix entries in Update.
type Model interface {
	// Spec returns the system matrices Update writes into.
	Spec() *statespace.Spec

	// Initialization returns the initial state policy of the model.
	Initialization() statespace.Initialization

	// ParamNames returns the names of the estimated parameters, in order.
	ParamNames() []string

	// StartParams proposes constrained starting values for the data at
	// hand. Variance parameters should start from data moments, not zero.
	StartParams(y *mat.Dense) []float64

	// Transform maps unconstrained optimizer values into the constrained
	// parameter space, Untransform inverts it.
	Transform(unconstrained []float64) []float64
	Untransform(constrained []float64) []float64

	// Update writes the constrained parameters into the system matrices.
	Update(constrained []float64) error

	// Concentrated reports whether the model fixes one variance to unity so
	// the filter can recover the scale in closed form.
	Concentrated() bool
}
