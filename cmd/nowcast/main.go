package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peter-kozarec/kestrel/internal/dbg"
	"github.com/peter-kozarec/kestrel/pkg/data/duckdb"
	"github.com/peter-kozarec/kestrel/pkg/estimate"
	"github.com/peter-kozarec/kestrel/pkg/forecast"
	"github.com/peter-kozarec/kestrel/pkg/models/locallevel"
	"github.com/peter-kozarec/kestrel/pkg/news"
)

func main() {
	logger := dbg.NewLogger(false)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := duckdb.NewReader(DataSource)
	if err := reader.Connect(); err != nil {
		logger.Fatal("unable to connect", zap.Error(err))
	}
	defer reader.Close()

	previous, err := reader.LoadVintage(ctx, PreviousTable, []string{Variable}, VintageFrom, VintageTo)
	if err != nil {
		logger.Fatal("unable to load previous vintage", zap.Error(err))
	}
	updated, err := reader.LoadVintage(ctx, UpdatedTable, []string{Variable}, VintageFrom, VintageTo)
	if err != nil {
		logger.Fatal("unable to load updated vintage", zap.Error(err))
	}
	logger.Info("vintages loaded",
		zap.Int("previous_obs", previous.NumObs()),
		zap.Int("updated_obs", updated.NumObs()))

	model := locallevel.New(locallevel.WithConcentratedScale())
	fit, err := estimate.Fit(ctx, model, previous.Matrix(),
		estimate.WithLogger(logger),
		estimate.WithRuntimeBudget(FitBudget))
	if err != nil {
		logger.Fatal("fit failed", zap.Error(err))
	}
	logger.Info("model fitted",
		zap.Stringer("run_id", fit.RunID),
		zap.Float64s("params", fit.Params),
		zap.Float64("scale", fit.Scale),
		zap.Float64("aic", fit.Diagnostics.AIC),
		zap.Bool("converged", fit.Converged))

	forecasts, err := forecast.HSteps(fit.Filter, ForecastHorizon)
	if err != nil {
		logger.Fatal("forecast failed", zap.Error(err))
	}
	for h, row := range forecasts {
		logger.Info("forecast",
			zap.Int("horizon", h+1),
			zap.Float64("point", row[0].PointForecast),
			zap.Float64("lower95", row[0].ConfidenceInterval.Lower95),
			zap.Float64("upper95", row[0].ConfidenceInterval.Upper95))
	}

	impactStart, err := updated.TimeAt(previous.NumObs())
	if err != nil {
		logger.Fatal("unable to resolve impact range", zap.Error(err))
	}
	impactEnd, err := updated.TimeAt(updated.NumObs() - 1 + ForecastHorizon)
	if err != nil {
		logger.Fatal("unable to resolve impact range", zap.Error(err))
	}

	report, err := news.Decompose(model, fit.Params, previous, updated, impactStart, impactEnd)
	if err != nil {
		logger.Fatal("news decomposition failed", zap.Error(err))
	}
	for _, u := range report.Updates {
		logger.Info("news",
			zap.Time("release", u.Time),
			zap.String("variable", u.Variable),
			zap.Float64("forecast", u.Forecast),
			zap.Float64("observed", u.Observed),
			zap.Float64("news", u.News))
	}
	for _, row := range report.Impacts {
		logger.Info("impact",
			zap.Time("date", row.Time),
			zap.String("variable", row.Variable),
			zap.Float64("previous", row.PrevEstimate),
			zap.Float64("revision_impact", row.RevisionImpact),
			zap.Float64("news_impact", row.NewsImpact),
			zap.Float64("updated", row.UpdatedEstimate))
	}
}
