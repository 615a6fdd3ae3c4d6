package statespace

import "gonum.org/v1/gonum/mat"

// Results is the immutable record of one filter pass. Covariance-type
// quantities are stored as computed by the recursion; in concentrated mode
// they are expressed in units of the concentrated scale and must be
// multiplied by Scale to be read as absolute covariances.
type Results struct {
	NObs         int
	Burn         int
	Concentrated bool

	// LogLikelihood is the Gaussian log-likelihood, concentrated over the
	// scale when Concentrated is set, excluding the first Burn periods.
	LogLikelihood float64

	// Scale is the closed-form variance estimate in concentrated mode, 1
	// otherwise.
	Scale float64

	// NObserved counts the observed scalar entries past the burn periods,
	// the effective sample size behind LogLikelihood and Scale.
	NObserved int

	// PredictedState[t] is a_t, the state mean given data through t-1.
	// It has NObs+1 entries; the last is the one-step-ahead state forecast
	// beyond the sample. PredictedCov matches.
	PredictedState []*mat.VecDense
	PredictedCov   []*mat.Dense

	// FilteredState[t] is a_{t|t}; equal to PredictedState[t] when y_t is
	// entirely missing.
	FilteredState []*mat.VecDense
	FilteredCov   []*mat.Dense

	// Innovations[t] is v_t with NaN at missing components. InnovationCov[t]
	// holds F_t for the observed components only (mt x mt, nil when mt=0).
	Innovations   []*mat.VecDense
	InnovationCov []*mat.Dense

	// Gains[t] is the kStates x kEndog Kalman gain with zero columns at
	// missing components.
	Gains []*mat.Dense

	// Observed[t][i] reports whether component i of y_t was observed.
	Observed [][]bool

	spec *Spec
}

// Spec returns the system matrices the pass was run with. The caller must
// treat them as read-only.
func (r *Results) Spec() *Spec { return r.spec }

// FinalState returns the one-step-ahead state forecast and its covariance
// after the last observation.
func (r *Results) FinalState() (*mat.VecDense, *mat.Dense) {
	return r.PredictedState[r.NObs], r.PredictedCov[r.NObs]
}
