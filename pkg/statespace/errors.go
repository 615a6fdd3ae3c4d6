package statespace

import (
	"errors"
	"fmt"
)

var (
	ErrDimension     = errors.New("inconsistent state space dimensions")
	ErrNonStationary = errors.New("transition matrix has a root on or outside the unit circle")
	ErrNoData        = errors.New("no observations")
)

// SingularityError reports a non-invertible innovation covariance at a
// concrete filter step. Callers may retry with a different initialization
// or regularize the model.
type SingularityError struct {
	Time int
}

func (e *SingularityError) Error() string {
	return fmt.Sprintf("innovation covariance singular at t=%d", e.Time)
}
