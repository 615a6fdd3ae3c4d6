package estimate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrInvalidTransform = errors.New("parameter transform round-trip failed")

// Domain describes the constrained range of a single parameter. The
// optimizer always works on the unconstrained side; Transform maps an
// unconstrained value into the domain and Untransform inverts it.
type Domain int

const (
	// Unrestricted leaves the parameter as-is.
	Unrestricted Domain = iota
	// Positive squares the unconstrained value, keeping variances
	// non-negative.
	Positive
	// UnitInterval maps onto (-1, 1), used for autoregressive coefficients
	// that must stay stationary.
	UnitInterval
)

// Transform maps unconstrained optimizer parameters into the model domain.
func Transform(domains []Domain, unconstrained []float64) []float64 {
	out := make([]float64, len(unconstrained))
	for i, u := range unconstrained {
		switch domains[i] {
		case Positive:
			out[i] = u * u
		case UnitInterval:
			out[i] = u / math.Sqrt(1+u*u)
		default:
			out[i] = u
		}
	}
	return out
}

// Untransform inverts Transform on the valid domain.
func Untransform(domains []Domain, constrained []float64) []float64 {
	out := make([]float64, len(constrained))
	for i, c := range constrained {
		switch domains[i] {
		case Positive:
			out[i] = math.Sqrt(c)
		case UnitInterval:
			out[i] = c / math.Sqrt(1-c*c)
		default:
			out[i] = c
		}
	}
	return out
}

// CheckTransform verifies the round-trip invariant at the given constrained
// parameter vector. A failure indicates a model-authoring bug and should be
// treated as fatal at model-definition time.
func CheckTransform(m Model, constrained []float64) error {
	back := m.Transform(m.Untransform(constrained))
	if !floats.EqualApprox(back, constrained, 1e-10) {
		return ErrInvalidTransform
	}
	return nil
}
