package locallevel

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func sampleVariance(y *mat.Dense) float64 {
	nobs, _ := y.Dims()
	vals := make([]float64, 0, nobs)
	for t := 0; t < nobs; t++ {
		if v := y.At(t, 0); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) < 2 {
		return 1
	}
	return stat.Variance(vals, nil)
}
