package news_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/peter-kozarec/kestrel/pkg/dataset"
	"github.com/peter-kozarec/kestrel/pkg/models/ar"
	"github.com/peter-kozarec/kestrel/pkg/models/locallevel"
	"github.com/peter-kozarec/kestrel/pkg/news"
	"github.com/peter-kozarec/kestrel/pkg/statespace"
)

var (
	testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testStep  = 24 * time.Hour
)

func at(idx int) time.Time { return testStart.Add(time.Duration(idx) * testStep) }

func singleSeries(t *testing.T, name string, obs []float64) *dataset.Dataset {
	t.Helper()
	rows := make([][]float64, len(obs))
	for i, v := range obs {
		rows[i] = []float64{v}
	}
	d, err := dataset.FromFloats([]string{name}, testStart, testStep, rows)
	if err != nil {
		t.Fatalf("FromFloats() error = %v", err)
	}
	return d
}

func TestNewsDecompose_Ar1Weights(t *testing.T) {
	// For an exactly observed AR(1), one end-of-sample release has weight 1
	// at its own date and phi^h at impact horizon h.
	const phi = 0.8
	prevObs := []float64{1.0, 1.2, 0.9, 1.1, 1.05}
	prev := singleSeries(t, "gdp", prevObs)
	upd := singleSeries(t, "gdp", append(append([]float64(nil), prevObs...), 1.3))

	m := ar.New()
	rep, err := news.Decompose(m, []float64{phi, 1.0}, prev, upd, at(5), at(9))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	if len(rep.Updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(rep.Updates))
	}
	u := rep.Updates[0]
	wantForecast := phi * prevObs[len(prevObs)-1]
	if math.Abs(u.Forecast-wantForecast) > 1e-10 {
		t.Errorf("forecast = %v, want %v", u.Forecast, wantForecast)
	}
	if wantNews := 1.3 - wantForecast; math.Abs(u.News-wantNews) > 1e-10 {
		t.Errorf("news = %v, want %v", u.News, wantNews)
	}

	if len(rep.Impacts) != 5 {
		t.Fatalf("impacts = %d, want 5", len(rep.Impacts))
	}
	for h, row := range rep.Impacts {
		want := math.Pow(phi, float64(h))
		if math.Abs(row.Weights[0]-want) > 1e-10 {
			t.Errorf("weight at h=%d is %v, want %v", h, row.Weights[0], want)
		}
		if row.RevisionImpact != 0 {
			t.Errorf("revision impact at h=%d is %v, want 0", h, row.RevisionImpact)
		}
	}
	if got := rep.Impacts[0].UpdatedEstimate; math.Abs(got-1.3) > 1e-10 {
		t.Errorf("updated estimate at the release date = %v, want the observation 1.3", got)
	}
}

func TestNewsDecompose_Ar1TwoReleases(t *testing.T) {
	// Two releases at once. News is recorded sequentially, so the second
	// release's news nets out the first, and the contribution vectors
	// propagate through the transition only: at the second release date the
	// first release weighs phi and the second weighs one, and the estimate
	// there is the observation itself.
	const phi = 0.8
	prevObs := []float64{1.0, 1.2, 0.9, 1.1, 1.05}
	prev := singleSeries(t, "gdp", prevObs)
	upd := singleSeries(t, "gdp", append(append([]float64(nil), prevObs...), 1.3, 1.15))

	rep, err := news.Decompose(ar.New(), []float64{phi, 1.0}, prev, upd, at(5), at(8))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(rep.Updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(rep.Updates))
	}
	if wantNews := 1.15 - phi*1.3; math.Abs(rep.Updates[1].News-wantNews) > 1e-10 {
		t.Errorf("second news = %v, want %v", rep.Updates[1].News, wantNews)
	}

	second := rep.Impacts[1] // at(6), the second release date
	if math.Abs(second.Weights[0]-phi) > 1e-10 {
		t.Errorf("first-release weight = %v, want %v", second.Weights[0], phi)
	}
	if math.Abs(second.Weights[1]-1) > 1e-10 {
		t.Errorf("second-release weight = %v, want 1", second.Weights[1])
	}
	if math.Abs(second.UpdatedEstimate-1.15) > 1e-10 {
		t.Errorf("updated estimate = %v, want the observation 1.15", second.UpdatedEstimate)
	}

	for _, row := range rep.Impacts {
		sum := row.PrevEstimate + row.RevisionImpact + row.NewsImpact
		if math.Abs(sum-row.UpdatedEstimate) > 1e-10 {
			t.Errorf("impact at %s: prev %v + revision %v + news %v = %v, want %v",
				row.Time, row.PrevEstimate, row.RevisionImpact, row.NewsImpact,
				sum, row.UpdatedEstimate)
		}
	}
}

func TestNewsDecompose_IdenticalVintages(t *testing.T) {
	obs := []float64{2.0, 2.1, 1.9, 2.05, 2.2, 2.1}
	prev := singleSeries(t, "cpi", obs)

	rep, err := news.Decompose(locallevel.New(), []float64{1.0, 0.5}, prev, prev.Clone(), at(3), at(7))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(rep.Updates) != 0 {
		t.Errorf("updates = %d, want 0", len(rep.Updates))
	}
	if len(rep.Revisions) != 0 {
		t.Errorf("revisions = %d, want 0", len(rep.Revisions))
	}
	for _, row := range rep.Impacts {
		if row.RevisionImpact != 0 || row.NewsImpact != 0 {
			t.Errorf("impact at %s: revision = %v, news = %v, want both 0",
				row.Time, row.RevisionImpact, row.NewsImpact)
		}
		if math.Abs(row.UpdatedEstimate-row.PrevEstimate) > 1e-12 {
			t.Errorf("impact at %s: estimates moved from %v to %v with no data change",
				row.Time, row.PrevEstimate, row.UpdatedEstimate)
		}
	}
}

func TestNewsDecompose_Additivity(t *testing.T) {
	// Revision, backfill, and two releases at once: updated estimate must
	// equal previous estimate plus revision impact plus weighted news at
	// every impact date.
	prev := singleSeries(t, "sales", []float64{5.0, 5.2, math.NaN(), 5.4, 5.3, 5.5})
	upd := singleSeries(t, "sales", []float64{5.0, 5.25, 5.1, 5.4, 5.3, 5.5, 5.6, 5.45})

	rep, err := news.Decompose(locallevel.New(), []float64{1.0, 0.4}, prev, upd, at(0), at(9))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	// in-span backfill and revision are aggregated, only the two
	// end-of-sample releases are attributed per item
	if len(rep.Updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(rep.Updates))
	}
	if len(rep.Revisions) != 1 {
		t.Fatalf("revisions = %d, want 1", len(rep.Revisions))
	}
	if rep.Revisions[0].TimeIndex != 1 {
		t.Errorf("revision at t=%d, want t=1", rep.Revisions[0].TimeIndex)
	}

	for _, row := range rep.Impacts {
		sum := row.PrevEstimate + row.RevisionImpact + row.NewsImpact
		if math.Abs(sum-row.UpdatedEstimate) > 1e-8 {
			t.Errorf("impact at %s: prev %v + revision %v + news %v = %v, want %v",
				row.Time, row.PrevEstimate, row.RevisionImpact, row.NewsImpact,
				sum, row.UpdatedEstimate)
		}
	}
}

func TestNewsDecompose_ForwardLooking(t *testing.T) {
	// A release only moves estimates from its own date on: weights at
	// earlier impact dates are zero.
	prevObs := []float64{1.0, 1.1, 0.95, 1.05}
	prev := singleSeries(t, "ip", prevObs)
	upd := singleSeries(t, "ip", append(append([]float64(nil), prevObs...), 1.2))

	rep, err := news.Decompose(ar.New(), []float64{0.7, 1.0}, prev, upd, at(0), at(6))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	for _, row := range rep.Impacts {
		if row.Time.Before(at(4)) {
			if row.Weights[0] != 0 {
				t.Errorf("weight at %s is %v, want 0 before the release", row.Time, row.Weights[0])
			}
			if row.NewsImpact != 0 {
				t.Errorf("news impact at %s is %v, want 0 before the release", row.Time, row.NewsImpact)
			}
		}
	}
}

func TestNewsDecompose_ImpactRange(t *testing.T) {
	obs := []float64{1.0, 1.1, 1.2, 1.3}
	prev := singleSeries(t, "x", obs)
	upd := singleSeries(t, "x", append(append([]float64(nil), obs...), 1.4))

	_, err := news.Decompose(ar.New(), []float64{0.5, 1.0}, prev, upd, at(3), at(1))
	if !errors.Is(err, news.ErrImpactRange) {
		t.Errorf("Decompose() error = %v, want ErrImpactRange", err)
	}
}

// crossModel carries observation noise that is correlated across variables,
// which the sequential univariate treatment cannot represent.
type crossModel struct {
	spec *statespace.Spec
}

func newCrossModel() *crossModel {
	spec := statespace.MustSpec(2, 1, 1)
	spec.Z.Set(0, 0, 1)
	spec.Z.Set(1, 0, 1)
	spec.T.Set(0, 0, 0.5)
	spec.R.Set(0, 0, 1)
	spec.Q.Set(0, 0, 1)
	spec.H.Set(0, 0, 1)
	spec.H.Set(1, 1, 1)
	spec.H.Set(0, 1, 0.5)
	spec.H.Set(1, 0, 0.5)
	return &crossModel{spec: spec}
}

func (m *crossModel) Spec() *statespace.Spec                    { return m.spec }
func (m *crossModel) Initialization() statespace.Initialization { return statespace.Stationary() }
func (m *crossModel) ParamNames() []string                      { return nil }
func (m *crossModel) StartParams(*mat.Dense) []float64          { return nil }
func (m *crossModel) Transform(u []float64) []float64           { return u }
func (m *crossModel) Untransform(c []float64) []float64         { return c }
func (m *crossModel) Update([]float64) error                    { return nil }
func (m *crossModel) Concentrated() bool                        { return false }

func TestNewsDecompose_NonDiagonalH(t *testing.T) {
	rows := [][]float64{{1, 1.1}, {0.9, 1.0}, {1.05, 1.15}}
	prev, err := dataset.FromFloats([]string{"a", "b"}, testStart, testStep, rows)
	if err != nil {
		t.Fatalf("FromFloats() error = %v", err)
	}
	upd := prev.Clone()
	if err := upd.AppendFloats(at(3), 1.1, 1.2); err != nil {
		t.Fatalf("AppendFloats() error = %v", err)
	}

	_, err = news.Decompose(newCrossModel(), nil, prev, upd, at(3), at(4))
	if !errors.Is(err, news.ErrNonDiagonalH) {
		t.Errorf("Decompose() error = %v, want ErrNonDiagonalH", err)
	}
}
