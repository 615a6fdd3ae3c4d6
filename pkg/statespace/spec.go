package statespace

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Spec holds the time-invariant system matrices of a linear-Gaussian
// state-space model:
//
//	y_t = Z a_t + e_t,        e_t ~ N(0, H)
//	a_{t+1} = T a_t + R u_t,  u_t ~ N(0, Q)
//
// Fixed entries are written once at construction, parameter-dependent
// entries are written by the owning model's Update.
type Spec struct {
	kEndog  int
	kStates int
	kPosdef int

	Z *mat.Dense // design, kEndog x kStates
	H *mat.Dense // observation covariance, kEndog x kEndog
	T *mat.Dense // transition, kStates x kStates
	R *mat.Dense // selection, kStates x kPosdef
	Q *mat.Dense // state covariance, kPosdef x kPosdef
}

func NewSpec(kEndog, kStates, kPosdef int) (*Spec, error) {
	if kEndog < 1 || kStates < 1 || kPosdef < 1 || kPosdef > kStates {
		return nil, fmt.Errorf("%w: kEndog=%d kStates=%d kPosdef=%d",
			ErrDimension, kEndog, kStates, kPosdef)
	}
	return &Spec{
		kEndog:  kEndog,
		kStates: kStates,
		kPosdef: kPosdef,
		Z:       mat.NewDense(kEndog, kStates, nil),
		H:       mat.NewDense(kEndog, kEndog, nil),
		T:       mat.NewDense(kStates, kStates, nil),
		R:       mat.NewDense(kStates, kPosdef, nil),
		Q:       mat.NewDense(kPosdef, kPosdef, nil),
	}, nil
}

func MustSpec(kEndog, kStates, kPosdef int) *Spec {
	s, err := NewSpec(kEndog, kStates, kPosdef)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Spec) KEndog() int  { return s.kEndog }
func (s *Spec) KStates() int { return s.kStates }
func (s *Spec) KPosdef() int { return s.kPosdef }

// selectedCov returns R Q R', the state disturbance covariance expressed
// in the full state dimension.
func (s *Spec) selectedCov() *mat.Dense {
	rq := mat.NewDense(s.kStates, s.kPosdef, nil)
	rq.Mul(s.R, s.Q)
	rqr := mat.NewDense(s.kStates, s.kStates, nil)
	rqr.Mul(rq, s.R.T())
	return rqr
}
