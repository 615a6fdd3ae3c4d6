package dataset

import (
	"errors"
	"math"
	"testing"
	"time"
)

var (
	testStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	testStep  = 24 * time.Hour
)

func at(idx int) time.Time { return testStart.Add(time.Duration(idx) * testStep) }

func regular(t *testing.T, rows [][]float64, names ...string) *Dataset {
	t.Helper()
	d, err := FromFloats(names, testStart, testStep, rows)
	if err != nil {
		t.Fatalf("FromFloats() error = %v", err)
	}
	return d
}

func TestDatasetAppend_Errors(t *testing.T) {
	d := New("a", "b")
	if err := d.AppendFloats(at(0), 1, 2); err != nil {
		t.Fatalf("AppendFloats() error = %v", err)
	}
	if err := d.AppendFloats(at(1), 1); !errors.Is(err, ErrVariableCount) {
		t.Errorf("short row error = %v, want ErrVariableCount", err)
	}
	if err := d.AppendFloats(at(0), 3, 4); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("repeated timestamp error = %v, want ErrOutOfOrder", err)
	}
	if err := d.AppendFloats(at(0).Add(-testStep), 3, 4); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("earlier timestamp error = %v, want ErrOutOfOrder", err)
	}
}

func TestDatasetStep(t *testing.T) {
	d := regular(t, [][]float64{{1}, {2}, {3}}, "x")
	step, err := d.Step()
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if step != testStep {
		t.Errorf("step = %v, want %v", step, testStep)
	}

	short := New("x")
	if _, err := short.Step(); !errors.Is(err, ErrTooShort) {
		t.Errorf("short Step() error = %v, want ErrTooShort", err)
	}

	irregular := New("x")
	for _, ts := range []time.Time{at(0), at(1), at(3)} {
		if err := irregular.AppendFloats(ts, 1); err != nil {
			t.Fatalf("AppendFloats() error = %v", err)
		}
	}
	if _, err := irregular.Step(); !errors.Is(err, ErrIrregular) {
		t.Errorf("irregular Step() error = %v, want ErrIrregular", err)
	}
}

func TestDatasetTimeIndex(t *testing.T) {
	d := regular(t, [][]float64{{1}, {2}, {3}}, "x")

	idx, err := d.TimeIndex(at(1))
	if err != nil || idx != 1 {
		t.Errorf("TimeIndex(at(1)) = %d, %v, want 1, nil", idx, err)
	}

	// extrapolation past the end of a regular grid
	idx, err = d.TimeIndex(at(5))
	if err != nil || idx != 5 {
		t.Errorf("TimeIndex(at(5)) = %d, %v, want 5, nil", idx, err)
	}

	if _, err := d.TimeIndex(at(0).Add(time.Hour)); err == nil {
		t.Error("off-grid TimeIndex() expected an error")
	}

	ts, err := d.TimeAt(7)
	if err != nil || !ts.Equal(at(7)) {
		t.Errorf("TimeAt(7) = %v, %v, want %v, nil", ts, err, at(7))
	}
}

func TestDatasetExtendTo(t *testing.T) {
	d := regular(t, [][]float64{{1}, {2}}, "x")
	ext, err := d.ExtendTo(at(4))
	if err != nil {
		t.Fatalf("ExtendTo() error = %v", err)
	}
	if ext.NumObs() != 5 {
		t.Fatalf("extended NumObs() = %d, want 5", ext.NumObs())
	}
	for i := 2; i < 5; i++ {
		if ext.At(i, 0).Observed() {
			t.Errorf("padded row %d is observed, want missing", i)
		}
	}
	if d.NumObs() != 2 {
		t.Errorf("original NumObs() = %d after ExtendTo, want 2", d.NumObs())
	}
}

func TestDatasetMatrix(t *testing.T) {
	d := regular(t, [][]float64{{1, math.NaN()}, {2, 5}}, "a", "b")
	m := d.Matrix()
	if got := m.At(0, 0); got != 1 {
		t.Errorf("m[0,0] = %v, want 1", got)
	}
	if got := m.At(0, 1); !math.IsNaN(got) {
		t.Errorf("m[0,1] = %v, want NaN", got)
	}
	if got := m.At(1, 1); got != 5 {
		t.Errorf("m[1,1] = %v, want 5", got)
	}
}

func TestDatasetValue_Equal(t *testing.T) {
	if !FromFloat(1.25).Equal(FromFloat(1.25)) {
		t.Error("equal observations compare unequal")
	}
	if FromFloat(1.25).Equal(FromFloat(1.250001)) {
		t.Error("revised observation compares equal")
	}
	if !Missing().Equal(FromFloat(math.NaN())) {
		t.Error("two missing values compare unequal")
	}
	if Missing().Equal(FromFloat(0)) {
		t.Error("missing compares equal to an observed zero")
	}
	if got := Missing().String(); got != "NA" {
		t.Errorf("missing String() = %q, want NA", got)
	}
}

func TestDatasetDiff(t *testing.T) {
	prev := regular(t, [][]float64{{1, 10}, {2, math.NaN()}, {3, 30}}, "a", "b")
	upd := regular(t, [][]float64{{1, 10}, {2, 20}, {3.5, 30}, {4, 40}}, "a", "b")

	adds, revs, err := Diff(prev, upd)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	// one in-span backfill plus the two entries of the new period
	if len(adds) != 3 {
		t.Fatalf("additions = %d, want 3", len(adds))
	}
	if adds[0].TimeIndex != 1 || adds[0].VarIndex != 1 || adds[0].Value != 20 {
		t.Errorf("backfill = %+v, want t=1 var=1 value=20", adds[0])
	}
	if len(revs) != 1 {
		t.Fatalf("revisions = %d, want 1", len(revs))
	}
	if revs[0].TimeIndex != 2 || revs[0].Previous != 3 || revs[0].Revised != 3.5 {
		t.Errorf("revision = %+v, want t=2 3->3.5", revs[0])
	}
}

func TestDatasetDiff_Mismatch(t *testing.T) {
	base := regular(t, [][]float64{{1}, {2}}, "x")

	tests := []struct {
		name    string
		updated *Dataset
	}{
		{name: "shorter vintage", updated: regular(t, [][]float64{{1}}, "x")},
		{name: "renamed variable", updated: regular(t, [][]float64{{1}, {2}}, "y")},
		{name: "disappeared observation", updated: regular(t, [][]float64{{1}, {math.NaN()}, {3}}, "x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Diff(base, tt.updated); !errors.Is(err, ErrVintageMismatch) {
				t.Errorf("Diff() error = %v, want ErrVintageMismatch", err)
			}
		})
	}
}
