package news

import (
	"time"

	"github.com/peter-kozarec/kestrel/pkg/dataset"
)

// UpdateRow describes one newly released observation and its news: the
// realized value minus the model forecast immediately before the release.
type UpdateRow struct {
	Time     time.Time
	Variable string
	Forecast float64
	Observed float64
	News     float64
}

// ImpactRow decomposes the estimate revision of one variable at one impact
// date. Weights line up with Report.Updates: the estimate moves by
// Weights[j] per unit of news j.
type ImpactRow struct {
	Time            time.Time
	Variable        string
	PrevEstimate    float64
	RevisionImpact  float64
	NewsImpact      float64
	UpdatedEstimate float64
	Weights         []float64
}

// Report is the read-only outcome of one decomposition. Revisions to
// previously observed values are aggregated into RevisionImpact rather than
// attributed per item.
type Report struct {
	Updates   []UpdateRow
	Revisions []dataset.Revision
	Impacts   []ImpactRow
}
