package estimate

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

// Method selects the numerical optimizer.
type Method int

const (
	// NelderMead is the derivative-free default. Variance likelihoods are
	// flat near zero and the simplex handles that better than line searches.
	NelderMead Method = iota
	// BFGS uses finite-difference gradients supplied by the optimizer.
	BFGS
)

type Option func(*config)

type config struct {
	method      Method
	maxIter     int
	budget      time.Duration
	startParams []float64
	logger      *zap.Logger
}

func WithMethod(m Method) Option {
	return func(c *config) { c.method = m }
}

// WithMaxIterations bounds the outer optimization loop. Exhausting the
// budget yields a flagged, not failed, result.
func WithMaxIterations(n int) Option {
	return func(c *config) { c.maxIter = n }
}

// WithRuntimeBudget bounds the wall-clock time of the fit.
func WithRuntimeBudget(d time.Duration) Option {
	return func(c *config) { c.budget = d }
}

// WithStartParams overrides the model's start-parameter heuristic with
// explicit constrained values.
func WithStartParams(params []float64) Option {
	return func(c *config) { c.startParams = append([]float64(nil), params...) }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Diagnostics summarizes the quality of a fit, in the shape the reporting
// layer expects.
type Diagnostics struct {
	LogLikelihood float64
	AIC           float64
	BIC           float64
	GradientNorm  float64
	Iterations    int
	FuncEvals     int
}

// Result is the outcome of one maximum-likelihood fit.
type Result struct {
	RunID  uuid.UUID
	Params []float64 // constrained, in ParamNames order
	Scale  float64   // closed-form scale for concentrated models, 1 otherwise

	Converged   bool
	Filter      *statespace.Results
	Diagnostics Diagnostics
}

// Fit maximizes the (possibly concentrated) log-likelihood of m over its
// unconstrained parameter space and returns the fitted result. A
// non-converged optimization is returned with Converged=false and a warning,
// estimates intact.
func Fit(ctx context.Context, m Model, y *mat.Dense, opts ...Option) (*Result, error) {
	cfg := config{
		method:  NelderMead,
		maxIter: 1000,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := cfg.startParams
	if start == nil {
		start = m.StartParams(y)
	}
	if err := CheckTransform(m, start); err != nil {
		return nil, err
	}

	filter := newFilter(m)
	objective := func(unconstrained []float64) float64 {
		params := m.Transform(unconstrained)
		if err := m.Update(params); err != nil {
			return math.Inf(1)
		}
		fr, err := filter.Run(y)
		if err != nil {
			return math.Inf(1)
		}
		ll := fr.LogLikelihood
		if math.IsNaN(ll) {
			return math.Inf(1)
		}
		return -ll
	}

	cfg.logger.Debug("starting fit",
		zap.Strings("params", m.ParamNames()),
		zap.Float64s("start", start),
		zap.Bool("concentrated", m.Concentrated()))

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: cfg.maxIter,
		Runtime:         cfg.budget,
	}

	var method optimize.Method
	switch cfg.method {
	case BFGS:
		method = &optimize.BFGS{}
	default:
		method = &optimize.NelderMead{}
	}

	optResult, optErr := optimize.Minimize(problem, m.Untransform(start), settings, method)
	if optResult == nil {
		return nil, optErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	converged := optErr == nil
	switch optResult.Status {
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit:
		converged = false
	}

	params := m.Transform(optResult.X)
	if err := m.Update(params); err != nil {
		return nil, err
	}
	fr, err := filter.Run(y)
	if err != nil {
		return nil, err
	}

	gradNorm := math.NaN()
	if optResult.Gradient != nil {
		gradNorm = floats.Norm(optResult.Gradient, 2)
	}

	nParams := len(params)
	if m.Concentrated() {
		nParams++ // the analytic scale still counts as a fitted parameter
	}
	nEff := float64(fr.NObserved)
	result := &Result{
		RunID:     uuid.Must(uuid.NewV7()),
		Params:    params,
		Scale:     fr.Scale,
		Converged: converged,
		Filter:    fr,
		Diagnostics: Diagnostics{
			LogLikelihood: fr.LogLikelihood,
			AIC:           -2*fr.LogLikelihood + 2*float64(nParams),
			BIC:           -2*fr.LogLikelihood + float64(nParams)*math.Log(nEff),
			GradientNorm:  gradNorm,
			Iterations:    optResult.Stats.MajorIterations,
			FuncEvals:     optResult.Stats.FuncEvaluations,
		},
	}

	if !converged {
		cfg.logger.Warn("optimizer did not converge",
			zap.Stringer("run_id", result.RunID),
			zap.Int("iterations", result.Diagnostics.Iterations),
			zap.Float64("loglike", fr.LogLikelihood))
	} else {
		cfg.logger.Info("fit converged",
			zap.Stringer("run_id", result.RunID),
			zap.Int("iterations", result.Diagnostics.Iterations),
			zap.Float64("loglike", fr.LogLikelihood),
			zap.Float64s("params", params))
	}
	return result, nil
}

// Loglike evaluates the log-likelihood of m at the given constrained
// parameters without optimizing.
func Loglike(m Model, y *mat.Dense, params []float64) (float64, error) {
	if err := m.Update(params); err != nil {
		return 0, err
	}
	fr, err := newFilter(m).Run(y)
	if err != nil {
		return 0, err
	}
	return fr.LogLikelihood, nil
}

// Run filters y at the given constrained parameters, returning the full
// pass for forecasting or news decomposition.
func Run(m Model, y *mat.Dense, params []float64) (*statespace.Results, error) {
	if err := m.Update(params); err != nil {
		return nil, err
	}
	return newFilter(m).Run(y)
}

func newFilter(m Model) *statespace.Filter {
	if m.Concentrated() {
		return statespace.NewFilter(m.Spec(), m.Initialization(), statespace.ConcentratedScale())
	}
	return statespace.NewFilter(m.Spec(), m.Initialization())
}
