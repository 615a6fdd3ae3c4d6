package main

import "time"

const (
	SnapshotSource = "data/observations.bin"
	SnapshotName   = "gdp_growth"
	StreamURL      = "ws://localhost:8080/releases"
	ImpactHorizon  = 4
	FitBudget      = 30 * time.Second
)
