// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a scheduled job.
type JobFunc func(ctx context.Context) error

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

// Scheduler handles scheduled jobs like the inbox digest.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		timeout: DefaultJobTimeout,
	}
}

// Add registers fn under name on the cron spec. Errors are logged.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) run(name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(started))
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop gracefully stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
