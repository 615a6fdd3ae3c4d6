package locallevel

type Option func(*Model)

// WithConcentratedScale reparameterizes the model so the level variance is
// concentrated out of the likelihood, leaving a single ratio parameter for
// the optimizer.
func WithConcentratedScale() Option {
	return func(m *Model) {
		m.concentrated = true
	}
}

// WithDiffuseVariance overrides the approximate-diffuse prior variance.
func WithDiffuseVariance(kappa float64) Option {
	return func(m *Model) {
		m.kappa = kappa
	}
}
