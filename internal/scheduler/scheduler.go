// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background jobs: the remote reachability probe
// and the daily reset of the hosted demo content.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/remote"
	"github.com/rmcosta/fedsite-go/internal/store"
)

// probeTimeout bounds a single reachability check.
const probeTimeout = 5 * time.Second

// Scheduler handles the periodic background jobs.
type Scheduler struct {
	db        *sql.DB
	remote    *remote.Client
	facade    *facade.Facade
	cron      *cron.Cron
	logger    *slog.Logger
	demoReset bool
}

// New creates a new scheduler instance. demoReset enables the daily wipe and
// reseed of the demo store.
func New(db *sql.DB, client *remote.Client, f *facade.Facade, logger *slog.Logger, demoReset bool) *Scheduler {
	return &Scheduler{
		db:        db,
		remote:    client,
		facade:    f,
		cron:      cron.New(),
		logger:    logger,
		demoReset: demoReset,
	}
}

// Start registers the jobs and begins the scheduler.
func (s *Scheduler) Start() error {
	if s.remote.Enabled() {
		// Probe every minute; the result drives the serving mode
		if _, err := s.cron.AddFunc("* * * * *", s.probeRemote); err != nil {
			return err
		}
		// Run one probe right away so a recovered backend is noticed at boot
		go s.probeRemote()
	}

	if s.demoReset {
		// Daily at 04:00, quietest hour for the hosted demo
		if _, err := s.cron.AddFunc("0 4 * * *", s.resetDemoContent); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// probeRemote checks remote reachability and flips the serving mode. A
// reachable backend ends demo mode; an unreachable one forces it on so
// requests skip the doomed remote attempt.
func (s *Scheduler) probeRemote() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	err := s.remote.Probe(ctx)
	wasDemo := s.facade.IsDemoMode()

	switch {
	case err == nil && wasDemo:
		s.logger.Info("remote backend reachable again, leaving demo mode")
		s.facade.SetDemoMode(false)
	case err != nil && !wasDemo:
		s.logger.Warn("remote backend unreachable, entering demo mode", "error", err)
		s.facade.SetDemoMode(true)
	}
}

// resetDemoContent wipes and reseeds the demo store.
func (s *Scheduler) resetDemoContent() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.Reset(ctx, s.db); err != nil {
		s.logger.Error("demo content reset failed", "error", err)
		return
	}
	s.logger.Info("demo content reset")
}
