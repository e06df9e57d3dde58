package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsCurator/internal/ports"
)

// PeriodicRunner wires a ticking driver with the pipeline.
type PeriodicRunner struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
	// OnResult, when set, observes every finished run.
	OnResult func(RunResult)
}

// NewPeriodicRunner returns a helper to start/stop recurring pipeline runs.
func NewPeriodicRunner(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *PeriodicRunner {
	return &PeriodicRunner{driver: driver, pipeline: pipeline, logger: orDiscard(logger)}
}

// Start registers the pipeline with the driver.
func (s *PeriodicRunner) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Debug("scheduled run triggered", "at", trigger)
		result := s.pipeline.Run(ctx)
		if s.OnResult != nil {
			s.OnResult(result)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *PeriodicRunner) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
