package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/services/account"
)

// Scheduler runs periodic maintenance: Badger value-log garbage collection
// and expired-session cleanup
type Scheduler struct {
	storage  interfaces.StorageManager
	accounts *account.Service
	config   *common.SchedulerConfig
	cron     *cron.Cron
	logger   arbor.ILogger
}

// NewScheduler creates a new maintenance scheduler
func NewScheduler(storage interfaces.StorageManager, accounts *account.Service, config *common.SchedulerConfig, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		storage:  storage,
		accounts: accounts,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the maintenance jobs and begins the cron loop
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Maintenance scheduler disabled")
		return nil
	}

	gcSchedule := s.config.GCSchedule
	if gcSchedule == "" {
		gcSchedule = "@every 10m"
	}
	if _, err := s.cron.AddFunc(gcSchedule, s.runGC); err != nil {
		return err
	}

	sessionSchedule := s.config.SessionSchedule
	if sessionSchedule == "" {
		sessionSchedule = "@every 1h"
	}
	if _, err := s.cron.AddFunc(sessionSchedule, s.runSessionCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("gc_schedule", gcSchedule).
		Str("session_schedule", sessionSchedule).
		Msg("Maintenance scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) runGC() {
	if err := s.storage.RunGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Badger GC run failed")
		return
	}
	s.logger.Debug().Msg("Badger GC run completed")
}

func (s *Scheduler) runSessionCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.accounts.CleanupExpiredSessions(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Session cleanup failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Expired sessions cleaned up")
	}
}
