package usecase

import (
	"context"
	"log/slog"
	"time"

	"SEOPilot/internal/domain"
	"SEOPilot/internal/ports"
)

// Generator runs one generation for a parameter set.
type Generator interface {
	RunGeneration(ctx context.Context, params domain.GenerationParams) (int64, error)
}

// Scheduler wires the cron driver with the generation pipeline.
type Scheduler struct {
	driver    ports.Scheduler
	generator Generator
	topics    *Topics
	list      []string
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring generation for list.
func NewScheduler(driver ports.Scheduler, generator Generator, topics *Topics, list []string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, generator: generator, topics: topics, list: list, logger: logger}
}

// Start registers the generation job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.generator == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	})
}

// RunOnce generates one article per scheduled topic, one after another.
// It returns how many runs succeeded.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) int {
	s.logger.Info("scheduled generation triggered", "at", trigger.Format(time.RFC3339), "topics", len(s.list))

	succeeded := 0
	for _, topic := range s.list {
		if ctx.Err() != nil {
			return succeeded
		}
		params, err := s.topics.Get(ctx, topic)
		if err != nil {
			s.logger.Error("load scheduled topic config", "topic", topic, "error", err)
			continue
		}
		id, err := s.generator.RunGeneration(ctx, params)
		if err != nil {
			s.logger.Warn("scheduled generation failed", "topic", topic, "error", err)
			continue
		}
		s.logger.Info("scheduled generation succeeded", "topic", topic, "article_id", id)
		succeeded++
	}
	return succeeded
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
