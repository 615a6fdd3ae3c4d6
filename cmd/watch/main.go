// Command watch fits a model on a historical snapshot, then listens for
// live observation releases and logs the news decomposition of each one.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peter-kozarec/kestrel/internal/dbg"
	"github.com/peter-kozarec/kestrel/pkg/datasource/historical"
	"github.com/peter-kozarec/kestrel/pkg/datasource/stream"
	"github.com/peter-kozarec/kestrel/pkg/estimate"
	"github.com/peter-kozarec/kestrel/pkg/models/ar"
	"github.com/peter-kozarec/kestrel/pkg/news"
)

func main() {
	logger := dbg.NewLogger(false)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source := historical.NewSource(SnapshotSource)
	if err := source.Open(); err != nil {
		logger.Fatal("unable to open snapshot", zap.Error(err))
	}
	defer source.Close()

	previous, err := source.LoadVintage(SnapshotName, 0, source.Len())
	if err != nil {
		logger.Fatal("unable to load snapshot", zap.Error(err))
	}
	logger.Info("snapshot loaded", zap.Int("obs", previous.NumObs()))

	model := ar.New(ar.WithMeasurementNoise())
	fit, err := estimate.Fit(ctx, model, previous.Matrix(),
		estimate.WithLogger(logger),
		estimate.WithRuntimeBudget(FitBudget))
	if err != nil {
		logger.Fatal("fit failed", zap.Error(err))
	}
	logger.Info("model fitted",
		zap.Stringer("run_id", fit.RunID),
		zap.Float64s("params", fit.Params),
		zap.Bool("converged", fit.Converged))

	client, err := stream.Dial(ctx, StreamURL, logger)
	if err != nil {
		logger.Fatal("unable to dial stream", zap.Error(err))
	}
	defer client.Close()

	updated := previous.Clone()
	for {
		select {
		case <-ctx.Done():
			return
		case release, ok := <-client.Releases():
			if !ok {
				logger.Info("stream closed")
				return
			}
			value, ok := release.Values[SnapshotName]
			if !ok {
				continue
			}
			if err := updated.AppendFloats(release.Time, value); err != nil {
				logger.Warn("release rejected", zap.Time("ts", release.Time), zap.Error(err))
				continue
			}

			impactEnd, err := updated.TimeAt(updated.NumObs() - 1 + ImpactHorizon)
			if err != nil {
				logger.Warn("irregular grid, skipping decomposition", zap.Error(err))
				continue
			}
			report, err := news.Decompose(model, fit.Params, previous, updated, release.Time, impactEnd)
			if err != nil {
				logger.Warn("news decomposition failed", zap.Error(err))
				continue
			}
			for _, u := range report.Updates {
				logger.Info("news",
					zap.Time("release", u.Time),
					zap.Float64("observed", u.Observed),
					zap.Float64("news", u.News))
			}
			for _, row := range report.Impacts {
				logger.Info("impact",
					zap.Time("date", row.Time),
					zap.Float64("news_impact", row.NewsImpact),
					zap.Float64("updated", row.UpdatedEstimate))
			}
		}
	}
}
