package main

import "time"

var VintageFrom = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
var VintageTo = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	DataSource      = "data/vintages.duckdb"
	PreviousTable   = "vintage_previous"
	UpdatedTable    = "vintage_updated"
	Variable        = "gdp_growth"
	ForecastHorizon = 4
	FitBudget       = 30 * time.Second
)
